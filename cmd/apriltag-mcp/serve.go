package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/apriltag-mcp/internal/logging"
	"github.com/ironsheep/apriltag-mcp/internal/server"
	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root)
		},
	}
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	log := logging.Logger()

	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	var engine sys.Engine
	if e, err := openEngine(); err != nil {
		log.Warn().Err(err).Msg("detection tools disabled")
	} else {
		engine = e
	}

	log.Info().
		Str("version", Version).
		Str("built", BuildTime).
		Str("commit", GitCommit).
		Str("family", cfg.Detector.Family).
		Bool("engine", engine != nil).
		Msg("apriltag-mcp starting")

	server.Version = Version
	srv := server.New(engine, cfg)
	defer srv.Close()

	return srv.Serve(cmd.InOrStdin(), cmd.OutOrStdout())
}
