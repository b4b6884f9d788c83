package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/apriltag-mcp/internal/config"
	"github.com/ironsheep/apriltag-mcp/internal/logging"
	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// openEngine is swapped for a fake in tests.
var openEngine = sys.Open

func main() {
	// Logs go to stderr; stdout is for the MCP protocol.
	logging.ConfigureRuntime()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "apriltag-mcp",
		Short: "MCP server for AprilTag detection and pose estimation",
		Long: `apriltag-mcp detects AprilTag fiducials in images and estimates their pose.

Without a subcommand it serves the MCP protocol over stdin/stdout, so it can
be configured directly in an MCP client.

Environment variables:
  APRILTAG_MCP_LOG_LEVEL=debug    Log level (debug, info, warn, error, off)
  APRILTAG_MCP_LOG_NOCOLOR=1      Disable coloured log output
  APRILTAG_MCP_LOG_JSON=1         Log JSON lines instead of console output`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a TOML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newDetectCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "apriltag-mcp %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			if engine, err := openEngine(); err != nil {
				fmt.Fprintf(out, "  Engine:     unavailable (%v)\n", err)
			} else {
				fmt.Fprintf(out, "  Engine:     %s\n", engine.Version())
			}
		},
	}
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	if opts.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(opts.configPath)
}
