package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/akmonengine/egocar"
	"github.com/akmonengine/egocar/config"
	"github.com/akmonengine/egocar/logging"
	"github.com/akmonengine/egocar/pointcloud"
	"github.com/akmonengine/egocar/renderer"
	"go.uber.org/zap"
)

// stringList collects a repeatable flag
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type options struct {
	configPath string
	maps       stringList
	step       float64
	yawStep    float64
	mode       string
	headless   bool
	replay     string
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	flag.Var(&opts.maps, "map", "point cloud file (.xyz .xyzn .xyzrgb .pts .pcd), repeatable")
	flag.Float64Var(&opts.step, "step", 0, "distance per advance/retreat step")
	flag.Float64Var(&opts.yawStep, "yaw-step", 0, "degrees per turn step")
	flag.StringVar(&opts.mode, "mode", "", "drive mode: step or arcade")
	flag.BoolVar(&opts.headless, "headless", false, "run without a window (use with -replay)")
	flag.StringVar(&opts.replay, "replay", "", "comma separated actions to dispatch at startup, e.g. advance,advance,turn-left")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flag.Parse()

	if err := run(opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "mapViewer: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// flags override the file
	if len(opts.maps) > 0 {
		cfg.Maps = opts.maps
	}
	if opts.step != 0 {
		cfg.StepDistance = opts.step
	}
	if opts.yawStep != 0 {
		cfg.StepHeadingDegrees = opts.yawStep
	}
	if opts.mode != "" {
		cfg.Drive.Mode = opts.mode
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clouds, err := loadMaps(ctx, cfg, logger)
	if err != nil {
		return err
	}

	bindings, err := egocar.ParseBindings(cfg.Bindings)
	if err != nil {
		return err
	}
	actions, err := egocar.ParseActions(opts.replay)
	if err != nil {
		return err
	}

	var r egocar.Renderer
	var viewer *renderer.Viewer
	if opts.headless {
		r = renderer.NewRecorder(logger)
	} else {
		viewer = renderer.NewViewer(renderer.Config{
			Width:        cfg.Window.Width,
			Height:       cfg.Window.Height,
			Title:        cfg.Window.Title,
			FPS:          cfg.Window.FPS,
			PointSize:    cfg.View.PointSize,
			DrawDistance: cfg.View.DrawDistance,
			MaxPoints:    cfg.View.MaxPoints,
			Follow:       cfg.View.Follow,
		}, logger)
		r = viewer
	}

	appOpts := egocar.Options{
		Renderer:           r,
		Maps:               clouds,
		StepDistance:       cfg.StepDistance,
		StepHeadingDegrees: cfg.StepHeadingDegrees,
		Bindings:           bindings,
		Logger:             logger,
	}
	if cfg.Arcade() {
		params := cfg.Drive.Arcade
		appOpts.Arcade = &params
	}

	app, err := egocar.NewApp(appOpts)
	if err != nil {
		return err
	}

	if err := app.Replay(actions); err != nil {
		return err
	}

	if viewer == nil {
		pose := app.Pose()
		fmt.Printf("x=%.6f y=%.6f yaw=%.6f\n", pose.X, pose.Y, pose.Heading)
		return nil
	}

	return viewer.Run(ctx, app)
}

// loadMaps loads every configured map, then applies the map transform and the
// voxel filter
func loadMaps(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]*pointcloud.PointCloud, error) {
	clouds, err := pointcloud.LoadAll(ctx, cfg.Maps)
	if err != nil {
		return nil, err
	}

	transform := cfg.MapTransform.Transform()
	for i, pc := range clouds {
		loaded := pc.Len()
		if !cfg.MapTransform.IsIdentity() {
			pc.Transform(transform, runtime.NumCPU())
		}
		clouds[i] = pc.VoxelDownSample(cfg.View.VoxelSize)

		logger.Info("map loaded",
			zap.String("map", pc.Name),
			zap.Int("points", loaded),
			zap.Int("kept", clouds[i].Len()),
			zap.Int("skipped", pc.Skipped),
			zap.Bool("colors", pc.HasColors()),
		)
	}
	return clouds, nil
}
