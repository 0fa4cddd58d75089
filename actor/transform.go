package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and orientation in 3D space
type Transform struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	InverseRotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position:        mgl64.Vec3{0, 0, 0},
		Rotation:        mgl64.QuatIdent(),
		InverseRotation: mgl64.QuatIdent(),
	}
}

// Translate composes a world-space translation onto the transform
func (t *Transform) Translate(delta mgl64.Vec3) {
	t.Position = t.Position.Add(delta)
}

// RotateAbout composes a world-space rotation around pivot onto the transform.
// The origin of the transform moves on a circle around pivot, and its orientation
// is pre-multiplied by q.
func (t *Transform) RotateAbout(q mgl64.Quat, pivot mgl64.Vec3) {
	t.Position = q.Rotate(t.Position.Sub(pivot)).Add(pivot)
	t.Rotation = q.Mul(t.Rotation).Normalize()
	t.InverseRotation = t.Rotation.Inverse()
}

// Apply maps a local point to world space
func (t Transform) Apply(local mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(local).Add(t.Position)
}

// ApplyInverse maps a world point back to local space
func (t Transform) ApplyInverse(world mgl64.Vec3) mgl64.Vec3 {
	return t.InverseRotation.Rotate(world.Sub(t.Position))
}
