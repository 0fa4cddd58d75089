// Package egocar drives a polygonal vehicle proxy over a static point-cloud map.
//
// The EgoCar couples a planar rigid body with its triangle mesh: every motion
// of the body is replayed on the mesh as the same incremental rigid transform,
// so the rendered geometry always matches the pose. The App owns the vehicle,
// maps key bindings to actions and notifies a Renderer after each change.
package egocar

import (
	"sync"

	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
)

var zAxis = mgl64.Vec3{0, 0, 1}

// EgoCar is the vehicle proxy: a RigidBody2D and the mesh that follows it
type EgoCar struct {
	body *actor.RigidBody2D
	mesh *actor.TriangleMesh

	mu sync.RWMutex
}

// NewEgoCar builds the vehicle mesh, with normals and a uniform color, bound to a
// body at the spawn pose (0, 0, 90°)
func NewEgoCar() *EgoCar {
	return &EgoCar{
		body: actor.NewRigidBody2D(actor.DefaultPose()),
		mesh: actor.NewEgoCarMesh(),
	}
}

// Advance moves the vehicle by a signed distance along its heading, then
// translates the mesh by the same displacement
func (e *EgoCar) Advance(distance float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.body.Move(distance)
	e.mesh.Translate(mgl64.Vec3{d.X(), d.Y(), 0})
}

// Turn adds delta degrees to the heading, then rotates the mesh by the same
// angle around the vertical axis through the vehicle position
func (e *EgoCar) Turn(deltaDegrees float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delta, pivot := e.body.Rotate(deltaDegrees)
	q := mgl64.QuatRotate(mgl64.DegToRad(delta), zAxis)
	e.mesh.RotateAbout(q, mgl64.Vec3{pivot.X(), pivot.Y(), 0})
}

func (e *EgoCar) Pose() actor.Pose {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.body.Pose
}

// Forward returns the unit heading vector in the ground plane
func (e *EgoCar) Forward() mgl64.Vec2 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.body.Forward()
}

// Mesh returns the vehicle geometry. Renderers read it through
// TriangleMesh.Read; it must not be mutated outside the EgoCar.
func (e *EgoCar) Mesh() *actor.TriangleMesh {
	return e.mesh
}
