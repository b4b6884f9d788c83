package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/apriltag-mcp/internal/apriltag"
	"github.com/ironsheep/apriltag-mcp/internal/imaging"
)

type detectOptions struct {
	family     string
	pose       bool
	json       bool
	iterations int
	camera     apriltag.TagParams
}

func newDetectCommand(root *rootOptions) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect tags in an image file",
		Long: `Detect AprilTags in a PNG, JPEG or GIF image and print them in detection order.

With --pose, every tag also gets the valid candidates of the orthogonal
iteration solver. Camera intrinsics come from the [camera] config section
and can be overridden with flags; the principal point defaults to the image
center.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd.OutOrStdout(), root, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.family, "family", "", "tag family (default from config, tag36h11)")
	f.BoolVar(&opts.pose, "pose", false, "estimate pose candidates")
	f.BoolVar(&opts.json, "json", false, "print JSON instead of text")
	f.IntVar(&opts.iterations, "iterations", 0, "orthogonal iteration steps (default from config)")
	f.Float64Var(&opts.camera.TagSize, "tag-size", 0, "tag edge length; sets the translation unit")
	f.Float64Var(&opts.camera.Fx, "fx", 0, "focal length X in pixels")
	f.Float64Var(&opts.camera.Fy, "fy", 0, "focal length Y in pixels")
	f.Float64Var(&opts.camera.Cx, "cx", 0, "principal point X in pixels")
	f.Float64Var(&opts.camera.Cy, "cy", 0, "principal point Y in pixels")

	return cmd
}

type cliPose struct {
	Rotation    [][]float64 `json:"rotation"`
	Translation []float64   `json:"translation"`
	Error       float64     `json:"error"`
}

type cliTag struct {
	ID             int           `json:"id"`
	Hamming        int           `json:"hamming"`
	DecisionMargin float32       `json:"decision_margin"`
	Center         [2]float64    `json:"center"`
	Corners        [4][2]float64 `json:"corners"`
	Poses          []cliPose     `json:"poses,omitempty"`
}

func runDetect(out io.Writer, root *rootOptions, opts *detectOptions, path string) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	family := opts.family
	if family == "" {
		family = cfg.Detector.Family
	}
	iterations := opts.iterations
	if iterations <= 0 {
		iterations = cfg.Pose.Iterations
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}

	gray, err := imaging.NewImageCache().LoadGray(path, imaging.Preprocess{
		Contrast:  cfg.Preprocess.Contrast,
		BlurSigma: cfg.Preprocess.BlurSigma,
	})
	if err != nil {
		return err
	}

	var params apriltag.TagParams
	if opts.pose {
		b := gray.Bounds()
		if params, err = cfg.CameraFor(opts.camera, b.Dx(), b.Dy()); err != nil {
			return fmt.Errorf("--pose needs --tag-size, --fx and --fy (or a [camera] config section): %w", err)
		}
	}

	det, err := apriltag.NewDetector(engine, family, cfg.DetectorOptions())
	if err != nil {
		return err
	}
	defer det.Close()

	found, err := det.Detect(gray)
	if err != nil {
		return err
	}
	defer apriltag.CloseAll(found)

	tags := make([]cliTag, 0, len(found))
	for _, d := range found {
		tag := cliTag{
			ID:             d.ID(),
			Hamming:        d.Hamming(),
			DecisionMargin: d.DecisionMargin(),
			Center:         d.Center(),
			Corners:        d.Corners(),
		}
		if opts.pose {
			for _, est := range d.EstimatePoseOrthogonalIteration(params, iterations) {
				tag.Poses = append(tag.Poses, cliPose{
					Rotation:    est.Pose.Rotation().Rows(),
					Translation: mat.Col(nil, 0, est.Pose.Translation()),
					Error:       est.Error,
				})
				est.Close()
			}
		}
		tags = append(tags, tag)
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tags)
	}
	printTags(out, path, family, tags)
	return nil
}

func printTags(out io.Writer, path, family string, tags []cliTag) {
	fmt.Fprintf(out, "%s: %d %s tag(s)\n", path, len(tags), family)
	for _, t := range tags {
		fmt.Fprintf(out, "  id=%d hamming=%d margin=%.1f center=(%.1f, %.1f)\n",
			t.ID, t.Hamming, t.DecisionMargin, t.Center[0], t.Center[1])
		for i, p := range t.Poses {
			fmt.Fprintf(out, "    pose %d: t=(%.4f, %.4f, %.4f) err=%.6f\n",
				i+1, p.Translation[0], p.Translation[1], p.Translation[2], p.Error)
		}
	}
}
