// Package renderer provides the Renderer implementations of the viewer: a
// raylib window and a headless recorder.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/akmonengine/egocar"
	"github.com/akmonengine/egocar/logging"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRegistered   = errors.New("geometry already registered")
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
)

var _ egocar.Renderer = (*Recorder)(nil)

// Recorder is a headless Renderer: it keeps the registered geometries and
// counts change notifications. It is safe for concurrent use.
type Recorder struct {
	logger *zap.Logger

	mu         sync.Mutex
	geometries []egocar.Geometry
	changes    map[egocar.Geometry]int
}

func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{
		logger:  logging.OrNop(logger),
		changes: make(map[egocar.Geometry]int),
	}
}

func (r *Recorder) RegisterGeometry(g egocar.Geometry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.changes[g]; ok {
		return fmt.Errorf("%w: %T", ErrAlreadyRegistered, g)
	}
	r.geometries = append(r.geometries, g)
	r.changes[g] = 0

	box := g.Bounds()
	r.logger.Debug("geometry registered",
		zap.String("type", fmt.Sprintf("%T", g)),
		zap.Float64s("min", box.Min[:]),
		zap.Float64s("max", box.Max[:]),
	)
	return nil
}

// NotifyGeometryChanged counts a change; notifications for geometries never
// registered are dropped with a warning
func (r *Recorder) NotifyGeometryChanged(g egocar.Geometry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.changes[g]; !ok {
		r.logger.Warn("change notified for unregistered geometry", zap.String("type", fmt.Sprintf("%T", g)))
		return
	}
	r.changes[g]++
}

// Registered returns the geometries in registration order
func (r *Recorder) Registered() []egocar.Geometry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]egocar.Geometry(nil), r.geometries...)
}

// Changes returns the number of notifications received for g
func (r *Recorder) Changes(g egocar.Geometry) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.changes[g]
}

func (r *Recorder) TotalChanges() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, n := range r.changes {
		total += n
	}
	return total
}
