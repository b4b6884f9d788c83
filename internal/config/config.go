// Package config loads the TOML configuration of the tag tools.
//
// A config file is optional; Default returns the values used without one.
//
//	[detector]
//	family = "tag36h11"
//	threads = 2
//	quad_decimate = 2.0
//
//	[camera]
//	tag_size = 0.1
//	fx = 800.0
//	fy = 800.0
//	cx = 320.0
//	cy = 240.0
//
//	[pose]
//	iterations = 50
//
//	[preprocess]
//	contrast = 10.0
//	blur_sigma = 0.8
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/apriltag-mcp/internal/apriltag"
	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

type Config struct {
	Detector   DetectorConfig     `toml:"detector"`
	Camera     apriltag.TagParams `toml:"camera"`
	Pose       PoseConfig         `toml:"pose"`
	Preprocess PreprocessConfig   `toml:"preprocess"`
}

type DetectorConfig struct {
	Family           string  `toml:"family"`
	Threads          int     `toml:"threads"`
	QuadDecimate     float32 `toml:"quad_decimate"`
	QuadSigma        float32 `toml:"quad_sigma"`
	RefineEdges      *bool   `toml:"refine_edges"`
	DecodeSharpening float64 `toml:"decode_sharpening"`
}

type PoseConfig struct {
	Iterations int `toml:"iterations"`
}

type PreprocessConfig struct {
	Contrast  float64 `toml:"contrast"`   // percent, -100..100
	BlurSigma float64 `toml:"blur_sigma"` // pixels, 0 disables
}

const (
	DefaultFamily     = "tag36h11"
	DefaultIterations = 50
)

// ErrNoCamera is returned by CameraFor when the tag size or a focal length
// is missing.
var ErrNoCamera = errors.New("pose estimation needs tag_size, fx and fy > 0")

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// Load reads, defaults and validates a config file.
func Load(path string) (Config, error) {
	var cfg Config
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	md, err := toml.Decode(string(data), out)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}
	return nil
}

func applyDefaults(cfg *Config) {
	def := sys.DefaultDetectorOptions()
	d := &cfg.Detector
	if d.Family == "" {
		d.Family = DefaultFamily
	}
	if d.Threads == 0 {
		d.Threads = def.Threads
	}
	if d.QuadDecimate == 0 {
		d.QuadDecimate = def.QuadDecimate
	}
	if d.RefineEdges == nil {
		refine := def.RefineEdges
		d.RefineEdges = &refine
	}
	if d.DecodeSharpening == 0 {
		d.DecodeSharpening = def.DecodeSharpening
	}
	if cfg.Pose.Iterations == 0 {
		cfg.Pose.Iterations = DefaultIterations
	}
}

// Validate checks a defaulted config.
func Validate(cfg Config) error {
	var errs []error
	if !sys.KnownFamily(cfg.Detector.Family) {
		errs = append(errs, fmt.Errorf("detector.family: %w: %s", sys.ErrUnknownFamily, cfg.Detector.Family))
	}
	if cfg.Detector.Threads < 1 {
		errs = append(errs, errors.New("detector.threads must be >= 1"))
	}
	if cfg.Detector.QuadDecimate < 1 {
		errs = append(errs, errors.New("detector.quad_decimate must be >= 1"))
	}
	if cfg.Detector.QuadSigma < 0 {
		errs = append(errs, errors.New("detector.quad_sigma must be >= 0"))
	}
	if cfg.Pose.Iterations < 1 {
		errs = append(errs, errors.New("pose.iterations must be >= 1"))
	}
	if cfg.Camera.TagSize < 0 {
		errs = append(errs, errors.New("camera.tag_size must be >= 0"))
	}
	if cfg.Preprocess.Contrast < -100 || cfg.Preprocess.Contrast > 100 {
		errs = append(errs, errors.New("preprocess.contrast must be within -100..100"))
	}
	if cfg.Preprocess.BlurSigma < 0 {
		errs = append(errs, errors.New("preprocess.blur_sigma must be >= 0"))
	}
	return errors.Join(errs...)
}

// DetectorOptions converts the detector section to engine options.
func (c Config) DetectorOptions() sys.DetectorOptions {
	opts := sys.DefaultDetectorOptions()
	opts.Threads = c.Detector.Threads
	opts.QuadDecimate = c.Detector.QuadDecimate
	opts.QuadSigma = c.Detector.QuadSigma
	if c.Detector.RefineEdges != nil {
		opts.RefineEdges = *c.Detector.RefineEdges
	}
	opts.DecodeSharpening = c.Detector.DecodeSharpening
	return opts
}

// HasCamera reports whether camera intrinsics were configured.
func (c Config) HasCamera() bool {
	return c.Camera.TagSize > 0 && c.Camera.Fx > 0 && c.Camera.Fy > 0
}

// CameraFor overlays the non-zero fields of override on the configured camera.
// A principal point coordinate still zero afterwards defaults to the center of
// a width x height image.
func (c Config) CameraFor(override apriltag.TagParams, width, height int) (apriltag.TagParams, error) {
	p := c.Camera
	for _, f := range []struct{ dst, src *float64 }{
		{&p.TagSize, &override.TagSize},
		{&p.Fx, &override.Fx},
		{&p.Fy, &override.Fy},
		{&p.Cx, &override.Cx},
		{&p.Cy, &override.Cy},
	} {
		if *f.src != 0 {
			*f.dst = *f.src
		}
	}
	if p.Cx == 0 {
		p.Cx = float64(width) / 2
	}
	if p.Cy == 0 {
		p.Cy = float64(height) / 2
	}
	if p.TagSize <= 0 || p.Fx <= 0 || p.Fy <= 0 {
		return p, ErrNoCamera
	}
	return p, nil
}
