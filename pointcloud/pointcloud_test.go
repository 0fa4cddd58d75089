package pointcloud

import (
	"image/color"
	"math"
	"testing"

	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func vec3InDelta(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	if !got.ApproxEqualThreshold(want, delta) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPointCloud_BoundsAndCentroid(t *testing.T) {
	pc := &PointCloud{Points: []mgl64.Vec3{{0, 0, 0}, {2, 4, 6}, {-2, 2, 0}}}

	box := pc.Bounds()
	if box.Min != (mgl64.Vec3{-2, 0, 0}) || box.Max != (mgl64.Vec3{2, 4, 6}) {
		t.Errorf("Bounds() = %v, want (-2,0,0)..(2,4,6)", box)
	}

	vec3InDelta(t, mgl64.Vec3{0, 2, 2}, pc.Centroid(), 1e-12)
}

func TestPointCloud_Empty(t *testing.T) {
	pc := &PointCloud{}

	if pc.Len() != 0 {
		t.Errorf("Len() = %d, want 0", pc.Len())
	}
	if !pc.Bounds().IsEmpty() {
		t.Errorf("Bounds() = %v, want empty", pc.Bounds())
	}
	if pc.Centroid() != (mgl64.Vec3{}) {
		t.Errorf("Centroid() = %v, want origin", pc.Centroid())
	}
	if pc.HasColors() {
		t.Error("empty cloud reports colors")
	}
}

func TestPointCloud_Transform(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		pc := &PointCloud{Points: make([]mgl64.Vec3, 10)}
		for i := range pc.Points {
			pc.Points[i] = mgl64.Vec3{float64(i), 0, 1}
		}

		tr := actor.NewTransform()
		tr.RotateAbout(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}), mgl64.Vec3{})
		tr.Translate(mgl64.Vec3{100, 0, 0})

		pc.Transform(tr, workers)

		for i, p := range pc.Points {
			vec3InDelta(t, mgl64.Vec3{100, float64(i), 1}, p, 1e-9)
		}
	}
}

func TestPointCloud_VoxelDownSample(t *testing.T) {
	pc := &PointCloud{
		Points: []mgl64.Vec3{
			{0.1, 0.1, 0.1}, {0.3, 0.3, 0.3}, // same voxel
			{1.5, 0.2, 0.2},
			{-0.2, 0.5, 0.5},
		},
		Colors: []color.RGBA{
			{R: 100, A: 255}, {R: 200, A: 255},
			{G: 10, A: 255},
			{B: 30, A: 255},
		},
		Skipped: 2,
	}

	down := pc.VoxelDownSample(1.0)

	if down.Len() != 3 || !down.HasColors() {
		t.Fatalf("VoxelDownSample(1) kept %d points, colors %v; want 3 with colors", down.Len(), down.HasColors())
	}
	vec3InDelta(t, mgl64.Vec3{0.2, 0.2, 0.2}, down.Points[0], 1e-12)
	if want := (color.RGBA{R: 150, A: 255}); down.Colors[0] != want {
		t.Errorf("merged color = %v, want %v", down.Colors[0], want)
	}
	vec3InDelta(t, mgl64.Vec3{1.5, 0.2, 0.2}, down.Points[1], 1e-12)
	vec3InDelta(t, mgl64.Vec3{-0.2, 0.5, 0.5}, down.Points[2], 1e-12)
	if down.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", down.Skipped)
	}

	if pc.VoxelDownSample(0) != pc {
		t.Error("VoxelDownSample(0) should return the cloud itself")
	}
}

func TestTask_CoversEveryIndexOnce(t *testing.T) {
	data := make([]int, 101)
	hits := make([]int, len(data))

	task(8, data, func(i int, _ int) {
		hits[i]++
	})

	for i, h := range hits {
		if h != 1 {
			t.Fatalf("index %d visited %d times", i, h)
		}
	}

	// more workers than elements
	task(16, []int{1, 2}, func(int, int) {})
	task(4, []int{}, func(int, int) { t.Fatal("called on empty data") })
}
