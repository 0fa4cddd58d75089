package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// yawDegrees returns the rotation of t around +Z
func yawDegrees(t Transform) float64 {
	x := t.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
	return mgl64.RadToDeg(math.Atan2(x.Y(), x.X()))
}

func TestNewTransform_Identity(t *testing.T) {
	tr := NewTransform()
	p := mgl64.Vec3{1, 2, 3}

	if got := tr.Apply(p); !vec3AlmostEqual(got, p, 1e-12) {
		t.Errorf("Apply(%v) = %v, want identity", p, got)
	}
	if got := tr.ApplyInverse(p); !vec3AlmostEqual(got, p, 1e-12) {
		t.Errorf("ApplyInverse(%v) = %v, want identity", p, got)
	}
	if yawDegrees(tr) != 0 {
		t.Errorf("yaw = %v, want 0", yawDegrees(tr))
	}
}

func TestTransform_RotateAboutPivot(t *testing.T) {
	tr := NewTransform()
	pivot := mgl64.Vec3{1, 0, 0}

	tr.RotateAbout(mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1}), pivot)

	// the origin swings around (1,0,0) to (1,-1,0)
	if !vec3AlmostEqual(tr.Position, mgl64.Vec3{1, -1, 0}, 1e-12) {
		t.Errorf("Position = %v, want (1, -1, 0)", tr.Position)
	}
	if !almostEqual(yawDegrees(tr), 90, 1e-9) {
		t.Errorf("yaw = %v, want 90", yawDegrees(tr))
	}
	// the pivot itself is a fixed point
	local := tr.ApplyInverse(pivot)
	if !vec3AlmostEqual(tr.Apply(local), pivot, 1e-12) {
		t.Errorf("round trip of pivot = %v, want %v", tr.Apply(local), pivot)
	}
}

func TestTransform_Translate(t *testing.T) {
	tr := NewTransform()

	tr.Translate(mgl64.Vec3{0, 0.2, 0})
	tr.Translate(mgl64.Vec3{0, -0.2, 0})

	if !vec3AlmostEqual(tr.Position, mgl64.Vec3{}, 1e-12) {
		t.Errorf("Position = %v, want origin", tr.Position)
	}
}
