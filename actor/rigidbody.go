package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultHeading is the heading of a freshly spawned vehicle: facing +Y
const DefaultHeading = 90.0

// Pose is a planar position and heading in the world frame.
// Heading is in degrees, counter-clockwise from +X, and is never wrapped.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// DefaultPose returns the spawn pose (0, 0, 90°)
func DefaultPose() Pose {
	return Pose{X: 0, Y: 0, Heading: DefaultHeading}
}

// RigidBody2D tracks the planar pose of a vehicle under two primitive motions:
// a straight move along the heading and a rotation about its own position.
type RigidBody2D struct {
	Pose Pose
}

// NewRigidBody2D creates a body at the given pose
func NewRigidBody2D(pose Pose) *RigidBody2D {
	return &RigidBody2D{Pose: pose}
}

// Move displaces the body by a signed distance along its current heading.
// The heading is unchanged. It returns the applied displacement so dependent
// geometry can follow.
func (rb *RigidBody2D) Move(distance float64) mgl64.Vec2 {
	yaw := rb.HeadingRadians()
	dx := distance * math.Cos(yaw)
	dy := distance * math.Sin(yaw)

	rb.Pose.X += dx
	rb.Pose.Y += dy

	return mgl64.Vec2{dx, dy}
}

// Rotate adds delta degrees to the heading. It returns the delta and the pivot
// of the rotation, which is the body's current position.
func (rb *RigidBody2D) Rotate(delta float64) (float64, mgl64.Vec2) {
	rb.Pose.Heading += delta

	return delta, rb.Position()
}

func (rb *RigidBody2D) Position() mgl64.Vec2 {
	return mgl64.Vec2{rb.Pose.X, rb.Pose.Y}
}

func (rb *RigidBody2D) HeadingRadians() float64 {
	return mgl64.DegToRad(rb.Pose.Heading)
}

// Forward returns the unit vector along the heading
func (rb *RigidBody2D) Forward() mgl64.Vec2 {
	yaw := rb.HeadingRadians()
	return mgl64.Vec2{math.Cos(yaw), math.Sin(yaw)}
}
