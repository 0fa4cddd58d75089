package renderer

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"github.com/akmonengine/egocar"
	"github.com/akmonengine/egocar/actor"
	"github.com/akmonengine/egocar/logging"
	"github.com/akmonengine/egocar/pointcloud"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var (
	ErrWindowInit = errors.New("failed to open window")
	ErrUnknownKey = errors.New("unknown key name")
)

var _ egocar.Renderer = (*Viewer)(nil)

// keyCodes are the key names accepted in bindings
var keyCodes = map[string]int32{
	"A": rl.KeyA, "B": rl.KeyB, "C": rl.KeyC, "D": rl.KeyD, "E": rl.KeyE,
	"F": rl.KeyF, "G": rl.KeyG, "H": rl.KeyH, "I": rl.KeyI, "J": rl.KeyJ,
	"K": rl.KeyK, "L": rl.KeyL, "M": rl.KeyM, "N": rl.KeyN, "O": rl.KeyO,
	"P": rl.KeyP, "Q": rl.KeyQ, "R": rl.KeyR, "S": rl.KeyS, "T": rl.KeyT,
	"U": rl.KeyU, "V": rl.KeyV, "W": rl.KeyW, "X": rl.KeyX, "Y": rl.KeyY,
	"Z": rl.KeyZ,
	"UP": rl.KeyUp, "DOWN": rl.KeyDown, "LEFT": rl.KeyLeft, "RIGHT": rl.KeyRight,
	"SPACE": rl.KeySpace,
}

// keyCode resolves a binding key name
func keyCode(name string) (int32, error) {
	code, ok := keyCodes[egocar.NormalizeKey(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	return code, nil
}

type Config struct {
	Width        int
	Height       int
	Title        string
	FPS          int
	PointSize    float64 // 0 draws single pixels
	DrawDistance float64
	MaxPoints    int
	Follow       bool
}

// meshEntry caches a float32 copy of a registered mesh, refreshed when dirty
type meshEntry struct {
	mesh     *actor.TriangleMesh
	dirty    atomic.Bool
	vertices []rl.Vector3
	tris     [][3]int
	colors   []color.RGBA
}

func (e *meshEntry) refresh() {
	if !e.dirty.Swap(false) {
		return
	}
	e.mesh.Read(func(vertices, normals []mgl64.Vec3, triangles [][3]int, c color.RGBA) {
		e.vertices = e.vertices[:0]
		for _, v := range vertices {
			e.vertices = append(e.vertices, toVector3(v))
		}
		e.tris = append(e.tris[:0], triangles...)
		e.colors = shadeTriangles(normals, triangles, c)
	})
}

// cloudEntry holds a map cloud, its grid and the indices visible around the
// last culling center
type cloudEntry struct {
	cloud     *pointcloud.PointCloud
	grid      *pointcloud.SpatialGrid
	bounds    actor.AABB
	points    []rl.Vector3
	colors    []color.RGBA
	visible   []int
	center    mgl64.Vec3
	hasCenter bool
}

// cull queries the points within radius of center on the XY plane, once center
// has moved by more than cell since the last query. It reports whether the
// visible set was refreshed.
func (e *cloudEntry) cull(center mgl64.Vec3, radius, cell float64) bool {
	if e.hasCenter && center.Sub(e.center).Len() <= cell {
		return false
	}
	e.center = center
	e.hasCenter = true

	view := actor.AABB{Min: center, Max: center}.Expand(radius)
	view.Min[2], view.Max[2] = math.Inf(-1), math.Inf(1)
	if !e.bounds.Overlaps(view) {
		e.visible = e.visible[:0]
		return true
	}
	e.visible = e.grid.QueryRadius(center, radius)
	return true
}

// cellSizeFor returns the grid cell size used for a draw distance
func cellSizeFor(drawDistance float64) float64 {
	return math.Max(1, drawDistance/16)
}

// Viewer is a raylib window drawing the registered maps and vehicle meshes.
// RegisterGeometry and NotifyGeometryChanged may be called from any goroutine;
// Run must be called from the main goroutine.
type Viewer struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	meshes []*meshEntry
	clouds []*cloudEntry

	camera orbit
	follow bool
	target mgl64.Vec3
}

func NewViewer(cfg Config, logger *zap.Logger) *Viewer {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.DrawDistance <= 0 {
		cfg.DrawDistance = 200
	}

	return &Viewer{
		cfg:    cfg,
		logger: logging.OrNop(logger),
		camera: defaultOrbit(),
		follow: cfg.Follow,
	}
}

// RegisterGeometry accepts *actor.TriangleMesh and *pointcloud.PointCloud
func (v *Viewer) RegisterGeometry(g egocar.Geometry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch geometry := g.(type) {
	case *actor.TriangleMesh:
		for _, e := range v.meshes {
			if e.mesh == geometry {
				return fmt.Errorf("%w: mesh", ErrAlreadyRegistered)
			}
		}
		e := &meshEntry{mesh: geometry}
		e.dirty.Store(true)
		v.meshes = append(v.meshes, e)

	case *pointcloud.PointCloud:
		for _, e := range v.clouds {
			if e.cloud == geometry {
				return fmt.Errorf("%w: cloud %q", ErrAlreadyRegistered, geometry.Name)
			}
		}
		v.clouds = append(v.clouds, v.newCloudEntry(geometry))
		if len(v.clouds) == 1 {
			v.target = geometry.Centroid()
		}

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}

	return nil
}

func (v *Viewer) newCloudEntry(pc *pointcloud.PointCloud) *cloudEntry {
	cellSize := cellSizeFor(v.cfg.DrawDistance)
	e := &cloudEntry{
		cloud:  pc,
		grid:   pointcloud.NewSpatialGridFromCloud(pc, cellSize),
		bounds: pc.Bounds(),
		points: make([]rl.Vector3, pc.Len()),
	}
	for i, p := range pc.Points {
		e.points[i] = toVector3(p)
	}
	if pc.HasColors() {
		e.colors = pc.Colors
	} else {
		e.colors = heightColors(pc.Points, e.bounds)
	}

	fields := []zap.Field{
		zap.String("map", pc.Name),
		zap.Int("points", pc.Len()),
		zap.Float64("cell_size", cellSize),
	}
	if !e.bounds.IsEmpty() {
		center, extent := e.bounds.Center(), e.bounds.Size()
		fields = append(fields, zap.Float64s("center", center[:]), zap.Float64s("extent", extent[:]))
	}
	v.logger.Info("map registered", fields...)
	return e
}

// NotifyGeometryChanged marks a mesh for refresh before the next frame. Map
// clouds are static and ignored.
func (v *Viewer) NotifyGeometryChanged(g egocar.Geometry) {
	mesh, ok := g.(*actor.TriangleMesh)
	if !ok {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for _, e := range v.meshes {
		if e.mesh == mesh {
			e.dirty.Store(true)
		}
	}
}

// binding is an InputBinding resolved to a raylib key code
type binding struct {
	code   int32
	action egocar.ActionKind
}

// Run opens the window and runs the frame loop until the window is closed or
// ctx is done
func (v *Viewer) Run(ctx context.Context, app *egocar.App) error {
	bindings := make([]binding, 0)
	bound := make(map[int32]bool)
	for _, b := range app.Bindings() {
		code, err := keyCode(b.Key)
		if err != nil {
			return err
		}
		bindings = append(bindings, binding{code: code, action: b.Action})
		bound[code] = true
	}

	rl.SetTraceLogLevel(rl.LogWarning)
	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(int32(v.cfg.Width), int32(v.cfg.Height), v.cfg.Title)
	if !rl.IsWindowReady() {
		return ErrWindowInit
	}
	defer rl.CloseWindow()

	if v.cfg.FPS > 0 {
		rl.SetTargetFPS(int32(v.cfg.FPS))
	}

	v.logger.Info("viewer started",
		zap.Int("width", v.cfg.Width),
		zap.Int("height", v.cfg.Height),
		zap.Bool("arcade", app.Arcade()),
	)

	for !rl.WindowShouldClose() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		v.handleInput(app, bindings)
		v.updateCamera(app, bound)
		v.draw(app)
	}

	return nil
}

func (v *Viewer) handleInput(app *egocar.App, bindings []binding) {
	if !app.Arcade() {
		for _, b := range bindings {
			if !rl.IsKeyPressed(b.code) {
				continue
			}
			if err := app.Dispatch(b.action); err != nil {
				v.logger.Error("dispatch failed", zap.Error(err))
			}
		}
		return
	}

	// held keys would stay down forever once the window loses focus
	if !rl.IsWindowFocused() {
		app.ResetDrive()
		return
	}

	var input actor.DriveInput
	for _, b := range bindings {
		if !rl.IsKeyDown(b.code) {
			continue
		}
		switch b.action {
		case egocar.ActionAdvance:
			input.Forward = true
		case egocar.ActionRetreat:
			input.Backward = true
		case egocar.ActionTurnLeft:
			input.Left = true
		case egocar.ActionTurnRight:
			input.Right = true
		}
	}
	app.Drive(float64(rl.GetFrameTime()), input)
}

func (v *Viewer) updateCamera(app *egocar.App, bound map[int32]bool) {
	dt := float64(rl.GetFrameTime())
	const orbitSpeed = 1.5 // rad/s

	held := func(code int32) bool {
		return !bound[code] && rl.IsKeyDown(code)
	}
	var dYaw, dPitch float64
	if held(rl.KeyLeft) {
		dYaw -= orbitSpeed * dt
	}
	if held(rl.KeyRight) {
		dYaw += orbitSpeed * dt
	}
	if held(rl.KeyUp) {
		dPitch += orbitSpeed * dt
	}
	if held(rl.KeyDown) {
		dPitch -= orbitSpeed * dt
	}
	v.camera.rotate(dYaw, dPitch)

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.camera.zoom(float64(wheel))
	}

	if !bound[rl.KeyF] && rl.IsKeyPressed(rl.KeyF) {
		v.follow = !v.follow
		v.logger.Info("camera follow", zap.Bool("enabled", v.follow))
	}

	if v.follow {
		pose := app.Pose()
		v.target = mgl64.Vec3{pose.X, pose.Y, actor.EgoCarHeight / 2}
	}
}

func (v *Viewer) draw(app *egocar.App) {
	var eye mgl64.Vec3
	if v.follow {
		// orbit yaw is an offset from the chase position behind the vehicle
		o := v.camera
		o.Yaw += followYaw(app.Car().Forward()) + math.Pi/2
		eye = o.position(v.target)
	} else {
		eye = v.camera.position(v.target)
	}

	camera := rl.Camera3D{
		Position:   toVector3(eye),
		Target:     toVector3(v.target),
		Up:         rl.NewVector3(0, 0, 1),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	v.mu.Lock()
	meshes := append([]*meshEntry(nil), v.meshes...)
	clouds := append([]*cloudEntry(nil), v.clouds...)
	v.mu.Unlock()

	for _, e := range meshes {
		e.refresh()
	}

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	rl.BeginMode3D(camera)
	drawn := 0
	for _, e := range clouds {
		drawn += v.drawCloud(e, v.target)
	}
	for _, e := range meshes {
		for i, tri := range e.tris {
			rl.DrawTriangle3D(e.vertices[tri[0]], e.vertices[tri[1]], e.vertices[tri[2]], e.colors[i])
		}
	}
	pose := app.Pose()
	forward := app.Car().Forward()
	origin := mgl64.Vec3{pose.X, pose.Y, actor.EgoCarHeight + 0.05}
	rl.DrawLine3D(toVector3(origin), toVector3(origin.Add(mgl64.Vec3{forward.X(), forward.Y(), 0})), rl.Yellow)
	rl.EndMode3D()

	v.drawHUD(app, drawn)
	rl.EndDrawing()
}

// drawCloud draws the points within the draw distance of center, at most
// MaxPoints of them, and returns how many were drawn
func (v *Viewer) drawCloud(e *cloudEntry, center mgl64.Vec3) int {
	e.cull(center, v.cfg.DrawDistance, cellSizeFor(v.cfg.DrawDistance))

	stride := strideFor(len(e.visible), v.cfg.MaxPoints)
	size := float32(v.cfg.PointSize)
	cube := rl.NewVector3(size, size, size)

	drawn := 0
	for i := 0; i < len(e.visible); i += stride {
		idx := e.visible[i]
		if size > 0 {
			rl.DrawCubeV(e.points[idx], cube, e.colors[idx])
		} else {
			rl.DrawPoint3D(e.points[idx], e.colors[idx])
		}
		drawn++
	}
	return drawn
}

func (v *Viewer) drawHUD(app *egocar.App, drawn int) {
	pose := app.Pose()
	rl.DrawText(fmt.Sprintf("x %.2f  y %.2f  yaw %.1f", pose.X, pose.Y, pose.Heading), 10, 10, 20, rl.RayWhite)

	mode := "step"
	if app.Arcade() {
		mode = fmt.Sprintf("arcade %.1f m/s", app.Speed())
	}
	follow := "off"
	if v.follow {
		follow = "on"
	}
	rl.DrawText(fmt.Sprintf("%s  follow %s  points %d", mode, follow, drawn), 10, 34, 16, rl.LightGray)
	rl.DrawFPS(int32(v.cfg.Width)-90, 10)
}

func toVector3(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v.X()), float32(v.Y()), float32(v.Z()))
}
