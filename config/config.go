// Package config holds the viewer settings loaded from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/akmonengine/egocar"
	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DriveModeStep   = "step"
	DriveModeArcade = "arcade"
)

// maximum accepted config file size
const maxFileSize = 1 * 1024 * 1024

type Config struct {
	StepDistance       float64           `yaml:"step_distance"`
	StepHeadingDegrees float64           `yaml:"step_heading_degrees"`
	Maps               []string          `yaml:"maps"`
	MapTransform       MapTransform      `yaml:"map_transform"`
	Bindings           map[string]string `yaml:"bindings"` // key name -> action name
	Drive              Drive             `yaml:"drive"`
	Window             Window            `yaml:"window"`
	View               View              `yaml:"view"`
	LogLevel           string            `yaml:"log_level"`
}

// MapTransform is applied once to every loaded cloud: a yaw about the world
// origin followed by an offset
type MapTransform struct {
	Offset     [3]float64 `yaml:"offset"`
	YawDegrees float64    `yaml:"yaw_degrees"`
}

type Drive struct {
	Mode   string             `yaml:"mode"`
	Arcade actor.ArcadeParams `yaml:"arcade"`
}

type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	FPS    int    `yaml:"fps"`
}

type View struct {
	PointSize    float64 `yaml:"point_size"`
	DrawDistance float64 `yaml:"draw_distance"`
	MaxPoints    int     `yaml:"max_points"`
	Follow       bool    `yaml:"follow"`
	VoxelSize    float64 `yaml:"voxel_size"`
}

// Default returns the settings used when no file is given
func Default() *Config {
	return &Config{
		StepDistance:       0.2,
		StepHeadingDegrees: 5.0,
		Bindings: map[string]string{
			"W": "advance",
			"S": "retreat",
			"A": "turn-left",
			"D": "turn-right",
		},
		Drive: Drive{
			Mode:   DriveModeStep,
			Arcade: actor.DefaultArcadeParams(),
		},
		Window: Window{
			Width:  1280,
			Height: 720,
			Title:  "EgoCar Map Viewer",
			FPS:    60,
		},
		View: View{
			PointSize:    0.05,
			DrawDistance: 200,
			MaxPoints:    200000,
			Follow:       true,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file on top of Default. Fields omitted from the file keep
// their default values. File bindings are added to the default ones and
// replace a default bound to the same key.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := strings.ToLower(filepath.Ext(cleanPath)); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Decode(bytes.NewReader(data))
}

// Decode parses YAML from r on top of Default and validates the result
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	defaults := cfg.Bindings
	cfg.Bindings = nil

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	bindings, err := mergeBindings(defaults, cfg.Bindings)
	if err != nil {
		return nil, err
	}
	cfg.Bindings = bindings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeBindings overlays file on defaults by normalized key name
func mergeBindings(defaults, file map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(defaults)+len(file))
	for key, action := range defaults {
		merged[egocar.NormalizeKey(key)] = action
	}

	seen := make(map[string]string, len(file))
	for key, action := range file {
		normalized := egocar.NormalizeKey(key)
		if prev, ok := seen[normalized]; ok {
			return nil, fmt.Errorf("%w: bindings %q and %q both name %s", ErrInvalidConfig, prev, key, normalized)
		}
		seen[normalized] = key
		merged[normalized] = action
	}
	return merged, nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.StepDistance <= 0 {
		return fmt.Errorf("%w: step_distance must be positive, got %g", ErrInvalidConfig, c.StepDistance)
	}
	if c.StepHeadingDegrees <= 0 {
		return fmt.Errorf("%w: step_heading_degrees must be positive, got %g", ErrInvalidConfig, c.StepHeadingDegrees)
	}

	for key, action := range c.Bindings {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(action) == "" {
			return fmt.Errorf("%w: binding %q -> %q is empty", ErrInvalidConfig, key, action)
		}
	}

	switch c.Drive.Mode {
	case DriveModeStep:
	case DriveModeArcade:
		a := c.Drive.Arcade
		if a.MaxSpeed <= 0 || a.YawRate <= 0 || a.MaxStep <= 0 {
			return fmt.Errorf("%w: drive.arcade max_speed, yaw_rate and max_step must be positive", ErrInvalidConfig)
		}
		if a.Accel < 0 || a.Brake < 0 || a.CoastDecel < 0 || a.YawSlew < 0 {
			return fmt.Errorf("%w: drive.arcade rates cannot be negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: drive.mode must be %q or %q, got %q", ErrInvalidConfig, DriveModeStep, DriveModeArcade, c.Drive.Mode)
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Window.FPS < 0 {
		return fmt.Errorf("%w: window.fps cannot be negative, got %d", ErrInvalidConfig, c.Window.FPS)
	}

	if c.View.DrawDistance <= 0 {
		return fmt.Errorf("%w: view.draw_distance must be positive, got %g", ErrInvalidConfig, c.View.DrawDistance)
	}
	if c.View.MaxPoints < 0 || c.View.PointSize < 0 || c.View.VoxelSize < 0 {
		return fmt.Errorf("%w: view sizes cannot be negative", ErrInvalidConfig)
	}

	return nil
}

// Transform returns the rigid transform described by the map_transform section
func (m MapTransform) Transform() actor.Transform {
	t := actor.NewTransform()
	if m.YawDegrees != 0 {
		t.RotateAbout(mgl64.QuatRotate(mgl64.DegToRad(m.YawDegrees), mgl64.Vec3{0, 0, 1}), mgl64.Vec3{})
	}
	t.Translate(mgl64.Vec3(m.Offset))
	return t
}

// IsIdentity reports whether the transform leaves points unchanged
func (m MapTransform) IsIdentity() bool {
	return m.YawDegrees == 0 && m.Offset == [3]float64{}
}

// Arcade reports whether the continuous drive model is selected
func (c *Config) Arcade() bool {
	return c.Drive.Mode == DriveModeArcade
}
