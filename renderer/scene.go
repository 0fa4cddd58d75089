package renderer

import (
	"image/color"
	"math"

	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// light direction used for flat shading of meshes, world frame (Z up)
var lightDir = mgl64.Vec3{0.3, -0.5, 0.8}.Normalize()

const ambient = 0.35

// shadeTriangles returns one color per triangle: base scaled by a Lambert term
// from the mean vertex normal of the triangle
func shadeTriangles(normals []mgl64.Vec3, triangles [][3]int, base color.RGBA) []color.RGBA {
	colors := make([]color.RGBA, len(triangles))
	for i, tri := range triangles {
		var n mgl64.Vec3
		if len(normals) > 0 {
			n = normals[tri[0]].Add(normals[tri[1]]).Add(normals[tri[2]])
		}
		lambert := 0.0
		if n.Len() > 0 {
			lambert = math.Max(0, n.Normalize().Dot(lightDir))
		}
		k := ambient + (1-ambient)*lambert
		colors[i] = color.RGBA{
			R: uint8(math.Round(float64(base.R) * k)),
			G: uint8(math.Round(float64(base.G) * k)),
			B: uint8(math.Round(float64(base.B) * k)),
			A: base.A,
		}
	}
	return colors
}

// heightColors ramps a gray level with the height of each point inside box,
// for clouds loaded without colors
func heightColors(points []mgl64.Vec3, box actor.AABB) []color.RGBA {
	colors := make([]color.RGBA, len(points))
	span := box.Max.Z() - box.Min.Z()
	for i, p := range points {
		t := 0.5
		if span > 0 {
			t = (p.Z() - box.Min.Z()) / span
		}
		level := uint8(math.Round(90 + 165*mgl64.Clamp(t, 0, 1)))
		colors[i] = color.RGBA{R: level, G: level, B: level, A: 255}
	}
	return colors
}

// orbit is a camera looking at a target from a yaw (around Z) and pitch
// (above the ground plane), at a distance
type orbit struct {
	Yaw      float64 // radians
	Pitch    float64 // radians
	Distance float64
}

const (
	minPitch    = 0.05
	maxPitch    = math.Pi/2 - 0.05
	minDistance = 1.0
	maxDistance = 500.0
)

func defaultOrbit() orbit {
	return orbit{Yaw: -math.Pi / 2, Pitch: 0.6, Distance: 12}
}

// position returns the eye position for the given target
func (o orbit) position(target mgl64.Vec3) mgl64.Vec3 {
	cp := math.Cos(o.Pitch)
	return target.Add(mgl64.Vec3{
		o.Distance * cp * math.Cos(o.Yaw),
		o.Distance * cp * math.Sin(o.Yaw),
		o.Distance * math.Sin(o.Pitch),
	})
}

// rotate adds yaw and pitch increments, keeping the pitch above the ground and
// below the zenith
func (o *orbit) rotate(dYaw, dPitch float64) {
	o.Yaw += dYaw
	o.Pitch = mgl64.Clamp(o.Pitch+dPitch, minPitch, maxPitch)
}

// zoom scales the distance; positive steps move closer
func (o *orbit) zoom(steps float64) {
	o.Distance = mgl64.Clamp(o.Distance*math.Pow(0.9, steps), minDistance, maxDistance)
}

// followYaw places the camera behind a vehicle facing forward
func followYaw(forward mgl64.Vec2) float64 {
	return math.Atan2(-forward.Y(), -forward.X())
}

// strideFor returns the index step that keeps n points within budget
func strideFor(n, budget int) int {
	if budget <= 0 || n <= budget {
		return 1
	}
	return (n + budget - 1) / budget
}
