package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akmonengine/egocar"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.2, cfg.StepDistance)
	assert.Equal(t, 5.0, cfg.StepHeadingDegrees)
	assert.Equal(t, "advance", cfg.Bindings["W"])
	assert.Equal(t, DriveModeStep, cfg.Drive.Mode)
	assert.False(t, cfg.Arcade())
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	content := `
step_distance: 0.5
maps:
  - maps/a.xyz
  - maps/b.pcd
map_transform:
  offset: [10, -5, 0]
  yaw_degrees: 90
bindings:
  UP: advance
drive:
  mode: arcade
  arcade:
    max_speed: 12
view:
  follow: false
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.StepDistance)
	assert.Equal(t, 5.0, cfg.StepHeadingDegrees, "omitted fields keep defaults")
	assert.Equal(t, []string{"maps/a.xyz", "maps/b.pcd"}, cfg.Maps)
	assert.Equal(t, [3]float64{10, -5, 0}, cfg.MapTransform.Offset)
	assert.Equal(t, "advance", cfg.Bindings["UP"])
	assert.Equal(t, "retreat", cfg.Bindings["S"], "file bindings extend the defaults")
	assert.True(t, cfg.Arcade())
	assert.Equal(t, 12.0, cfg.Drive.Arcade.MaxSpeed)
	assert.Equal(t, 3.2, cfg.Drive.Arcade.YawRate)
	assert.False(t, cfg.View.Follow)
	assert.Equal(t, 200.0, cfg.View.DrawDistance)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecode_BindingReplacesDefault(t *testing.T) {
	cfg, err := Decode(strings.NewReader("bindings:\n  w: retreat\n  arrowup: advance\n"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"W":  "retreat",
		"S":  "retreat",
		"A":  "turn-left",
		"D":  "turn-right",
		"UP": "advance",
	}, cfg.Bindings)

	bindings, err := egocar.ParseBindings(cfg.Bindings)
	require.NoError(t, err)
	var onW []egocar.ActionKind
	for _, b := range bindings {
		if b.Key == "W" {
			onW = append(onW, b.Action)
		}
	}
	assert.Equal(t, []egocar.ActionKind{egocar.ActionRetreat}, onW)
}

func TestDecode_DuplicateBindingKey(t *testing.T) {
	_, err := Decode(strings.NewReader("bindings:\n  w: retreat\n  W: advance\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorContains(t, err, "both name W")
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("step_distanse: 1\n"))
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "viewer.json"))
	assert.ErrorContains(t, err, ".yaml extension")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero step", func(c *Config) { c.StepDistance = 0 }},
		{"negative heading step", func(c *Config) { c.StepHeadingDegrees = -5 }},
		{"empty binding", func(c *Config) { c.Bindings[""] = "advance" }},
		{"unknown mode", func(c *Config) { c.Drive.Mode = "fly" }},
		{"arcade without speed", func(c *Config) {
			c.Drive.Mode = DriveModeArcade
			c.Drive.Arcade.MaxSpeed = 0
		}},
		{"arcade negative brake", func(c *Config) {
			c.Drive.Mode = DriveModeArcade
			c.Drive.Arcade.Brake = -1
		}},
		{"window", func(c *Config) { c.Window.Width = 0 }},
		{"fps", func(c *Config) { c.Window.FPS = -1 }},
		{"draw distance", func(c *Config) { c.View.DrawDistance = 0 }},
		{"voxel size", func(c *Config) { c.View.VoxelSize = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestMapTransform(t *testing.T) {
	assert.True(t, MapTransform{}.IsIdentity())

	m := MapTransform{Offset: [3]float64{10, 0, 1}, YawDegrees: 90}
	assert.False(t, m.IsIdentity())

	got := m.Transform().Apply(mgl64.Vec3{1, 0, 0})
	assert.InDelta(t, 10.0, got.X(), 1e-9)
	assert.InDelta(t, 1.0, got.Y(), 1e-9)
	assert.InDelta(t, 1.0, got.Z(), 1e-9)
}
