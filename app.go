package egocar

import (
	"errors"
	"fmt"
	"sync"

	"github.com/akmonengine/egocar/actor"
	"github.com/akmonengine/egocar/logging"
	"github.com/akmonengine/egocar/pointcloud"
	"go.uber.org/zap"
)

const (
	DEFAULT_STEP_DISTANCE        = 0.2
	DEFAULT_STEP_HEADING_DEGREES = 5.0
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNoRenderer    = errors.New("no renderer")
)

// Options configure an App. Zero step sizes fall back to the defaults, nil
// Bindings to DefaultBindings, and a nil Arcade selects fixed-step driving.
type Options struct {
	Renderer           Renderer
	Maps               []*pointcloud.PointCloud
	StepDistance       float64
	StepHeadingDegrees float64
	Bindings           []InputBinding
	Arcade             *actor.ArcadeParams
	Logger             *zap.Logger
}

// App is the application context: it owns the vehicle and routes actions to
// it, then tells the renderer the vehicle mesh changed
type App struct {
	car      *EgoCar
	renderer Renderer
	maps     []*pointcloud.PointCloud

	stepDistance float64
	stepHeading  float64

	bindings []InputBinding
	keys     map[string]ActionKind
	handlers map[ActionKind]func()
	drive    *actor.ArcadeDrive

	// flushed after every Dispatch and Drive call, on the calling goroutine.
	// Listeners must not call back into the App.
	events Events

	logger *zap.Logger
	mu     sync.Mutex
}

// NewApp builds the EgoCar, checks its mesh and registers it, then every map,
// with the renderer. A registration failure is returned wrapped, and nothing
// else is registered after it.
func NewApp(opts Options) (*App, error) {
	return newApp(opts, NewEgoCar())
}

func newApp(opts Options, car *EgoCar) (*App, error) {
	if opts.Renderer == nil {
		return nil, ErrNoRenderer
	}

	stepDistance := opts.StepDistance
	if stepDistance == 0 {
		stepDistance = DEFAULT_STEP_DISTANCE
	}
	stepHeading := opts.StepHeadingDegrees
	if stepHeading == 0 {
		stepHeading = DEFAULT_STEP_HEADING_DEGREES
	}
	if stepDistance < 0 || stepHeading < 0 {
		return nil, fmt.Errorf("step sizes must be positive, got %g and %g", stepDistance, stepHeading)
	}

	bindings := opts.Bindings
	if bindings == nil {
		bindings = DefaultBindings()
	}

	if err := car.Mesh().Validate(); err != nil {
		return nil, fmt.Errorf("invalid vehicle mesh: %w", err)
	}

	a := &App{
		car:          car,
		renderer:     opts.Renderer,
		maps:         opts.Maps,
		stepDistance: stepDistance,
		stepHeading:  stepHeading,
		bindings:     append([]InputBinding(nil), bindings...),
		keys:         make(map[string]ActionKind, len(bindings)),
		events:       NewEvents(),
		logger:       logging.OrNop(opts.Logger),
	}
	for _, b := range bindings {
		key := NormalizeKey(b.Key)
		if _, ok := a.keys[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBinding, key)
		}
		a.keys[key] = b.Action
	}
	if opts.Arcade != nil {
		a.drive = actor.NewArcadeDrive(*opts.Arcade)
	}

	a.handlers = map[ActionKind]func(){
		ActionAdvance:   func() { a.advance(ActionAdvance, a.stepDistance) },
		ActionRetreat:   func() { a.advance(ActionRetreat, -a.stepDistance) },
		ActionTurnLeft:  func() { a.turn(ActionTurnLeft, a.stepHeading) },
		ActionTurnRight: func() { a.turn(ActionTurnRight, -a.stepHeading) },
	}

	if err := a.renderer.RegisterGeometry(a.car.Mesh()); err != nil {
		return nil, fmt.Errorf("failed to register vehicle mesh: %w", err)
	}
	for _, pc := range a.maps {
		if pc.Len() == 0 {
			a.logger.Warn("map has no points", zap.String("map", pc.Name))
		}
		if pc.Skipped > 0 {
			a.logger.Debug("map rows skipped", zap.String("map", pc.Name), zap.Int("rows", pc.Skipped))
		}
		if err := a.renderer.RegisterGeometry(pc); err != nil {
			return nil, fmt.Errorf("failed to register map %q: %w", pc.Name, err)
		}
	}

	pose := a.car.Pose()
	a.logger.Info("ego car ready",
		zap.Float64("x", pose.X),
		zap.Float64("y", pose.Y),
		zap.Float64("yaw", pose.Heading),
		zap.Int("maps", len(a.maps)),
		zap.Bool("arcade", a.drive != nil),
	)

	return a, nil
}

// Dispatch runs the handler bound to action. The pose is logged and the
// renderer notified once the vehicle has moved.
func (a *App) Dispatch(action ActionKind) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	handler, ok := a.handlers[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	handler()

	pose := a.car.Pose()
	a.logger.Info(action.String(),
		zap.Float64("x", pose.X),
		zap.Float64("y", pose.Y),
		zap.Float64("yaw", pose.Heading),
	)
	a.renderer.NotifyGeometryChanged(a.car.Mesh())
	a.events.flush()

	return nil
}

// Subscribe registers listener for eventType. It is safe to call while
// another goroutine drives the App.
func (a *App) Subscribe(eventType EventType, listener EventListener) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.events.Subscribe(eventType, listener)
}

// Replay dispatches actions in order and stops at the first error
func (a *App) Replay(actions []ActionKind) error {
	for i, action := range actions {
		if err := a.Dispatch(action); err != nil {
			return fmt.Errorf("replay step %d: %w", i, err)
		}
	}
	return nil
}

// Drive advances the continuous drive model by dt seconds with the held keys.
// The heading change is applied before the move. It reports whether the pose
// changed; without arcade parameters, or with no key held and the vehicle at
// rest, it does nothing.
func (a *App) Drive(dt float64, input actor.DriveInput) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.drive == nil {
		return false
	}
	if !input.Any() && a.drive.Speed == 0 && a.drive.AngularVelocity == 0 {
		return false
	}

	distance, deltaHeading := a.drive.Step(dt, input)
	if distance == 0 && deltaHeading == 0 {
		return false
	}

	if deltaHeading != 0 {
		action := ActionTurnLeft
		if deltaHeading < 0 {
			action = ActionTurnRight
		}
		a.turn(action, deltaHeading)
	}
	if distance != 0 {
		action := ActionAdvance
		if distance < 0 {
			action = ActionRetreat
		}
		a.advance(action, distance)
	}

	pose := a.car.Pose()
	a.logger.Debug("drive",
		zap.Float64("x", pose.X),
		zap.Float64("y", pose.Y),
		zap.Float64("yaw", pose.Heading),
		zap.Float64("speed", a.drive.Speed),
	)
	a.renderer.NotifyGeometryChanged(a.car.Mesh())
	a.events.flush()

	return true
}

// ResetDrive stops the continuous drive model, e.g. when the window loses focus
func (a *App) ResetDrive() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.drive != nil {
		a.drive.Reset()
	}
}

func (a *App) advance(action ActionKind, distance float64) {
	a.car.Advance(distance)
	a.events.emit(PoseAdvancedEvent{Action: action, Distance: distance, Pose: a.car.Pose()})
}

func (a *App) turn(action ActionKind, delta float64) {
	a.car.Turn(delta)
	a.events.emit(PoseTurnedEvent{Action: action, Delta: delta, Pose: a.car.Pose()})
}

// ActionForKey returns the action bound to a key name, normalized like the
// bindings
func (a *App) ActionForKey(key string) (ActionKind, bool) {
	action, ok := a.keys[NormalizeKey(key)]
	return action, ok
}

func (a *App) Bindings() []InputBinding {
	return append([]InputBinding(nil), a.bindings...)
}

func (a *App) Car() *EgoCar {
	return a.car
}

func (a *App) Pose() actor.Pose {
	return a.car.Pose()
}

func (a *App) Maps() []*pointcloud.PointCloud {
	return a.maps
}

// Arcade reports whether continuous driving is enabled
func (a *App) Arcade() bool {
	return a.drive != nil
}

// Speed returns the current arcade speed in m/s, 0 in step mode
func (a *App) Speed() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.drive == nil {
		return 0
	}
	return a.drive.Speed
}
