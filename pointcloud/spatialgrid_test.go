package pointcloud

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func TestWorldToCell(t *testing.T) {
	tests := []struct {
		name     string
		position mgl64.Vec3
		expected CellKey
	}{
		{"origin", mgl64.Vec3{0, 0, 0}, CellKey{0, 0, 0}},
		{"positive", mgl64.Vec3{1.5, 2.3, 3.7}, CellKey{1, 2, 3}},
		{"negative", mgl64.Vec3{-1.5, -2.3, -3.7}, CellKey{-2, -3, -4}},
		{"fractional", mgl64.Vec3{0.5, 0.5, 0.5}, CellKey{0, 0, 0}},
		{"large", mgl64.Vec3{100.7, -200.3, 50.1}, CellKey{100, -201, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := worldToCell(tt.position, 1.0)
			if result != tt.expected {
				t.Errorf("worldToCell(%v) = %v, want %v", tt.position, result, tt.expected)
			}
		})
	}
}

func TestHashCell_InRange(t *testing.T) {
	grid := NewSpatialGrid(1.0, 16)

	keys := []CellKey{{0, 0, 0}, {1, 2, 3}, {-1, -2, -3}, {100, 200, 300}, {-7, 0, 99}}
	for _, key := range keys {
		idx := grid.hashCell(key)
		if idx < 0 || idx >= len(grid.cells) {
			t.Errorf("hashCell(%v) = %d, out of range [0, %d)", key, idx, len(grid.cells))
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{-3, 1}, {0, 1}, {1, 1}, {2, 2}, {3, 4}, {16, 16}, {17, 32}, {1000, 1024},
	}

	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestQuery_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	points := make([]mgl64.Vec3, 2000)
	for i := range points {
		points[i] = mgl64.Vec3{rng.Float64()*100 - 50, rng.Float64()*100 - 50, rng.Float64() * 5}
	}

	// few slots so that hash collisions happen
	grid := NewSpatialGrid(2.0, 64)
	grid.Build(points)

	boxes := []actor.AABB{
		{Min: mgl64.Vec3{-5, -5, 0}, Max: mgl64.Vec3{5, 5, 5}},
		{Min: mgl64.Vec3{10, -40, 1}, Max: mgl64.Vec3{12, 40, 2}},
		{Min: mgl64.Vec3{-100, -100, -100}, Max: mgl64.Vec3{100, 100, 100}},
		{Min: mgl64.Vec3{60, 60, 0}, Max: mgl64.Vec3{70, 70, 1}},
	}

	for _, box := range boxes {
		want := make([]int, 0)
		for i, p := range points {
			if box.ContainsPoint(p) {
				want = append(want, i)
			}
		}

		got := grid.Query(box)
		if !equalInts(got, want) {
			t.Errorf("Query(%v) returned %d points, want %d", box, len(got), len(want))
		}
	}
}

func TestQueryRadius(t *testing.T) {
	pc := &PointCloud{Points: []mgl64.Vec3{
		{0, 0, 0},
		{3, 4, 10}, // exactly 5 away on XY, high up
		{5, 5, 0},
		{-1, 0, -2},
	}}
	grid := NewSpatialGridFromCloud(pc, 1.0)

	got := grid.QueryRadius(mgl64.Vec3{0, 0, 0}, 5)
	want := []int{0, 1, 3}
	if !equalInts(got, want) {
		t.Errorf("QueryRadius() = %v, want %v", got, want)
	}

	if got := grid.QueryRadius(mgl64.Vec3{100, 100, 0}, 1); len(got) != 0 {
		t.Errorf("QueryRadius() far away = %v, want none", got)
	}
}

func TestQuery_EmptyGrid(t *testing.T) {
	grid := NewSpatialGrid(1.0, 8)

	if got := grid.Query(actor.AABB{Max: mgl64.Vec3{1, 1, 1}}); got != nil {
		t.Errorf("Query() on empty grid = %v, want nil", got)
	}
	if got := grid.QueryRadius(mgl64.Vec3{}, 10); len(got) != 0 {
		t.Errorf("QueryRadius() on empty grid = %v, want none", got)
	}
}

func TestClear(t *testing.T) {
	grid := NewSpatialGrid(1.0, 8)
	grid.Build([]mgl64.Vec3{{0, 0, 0}, {1, 1, 1}})

	grid.Clear()

	for i, cell := range grid.cells {
		if len(cell.pointIndices) != 0 {
			t.Errorf("cell %d has %d indices after Clear()", i, len(cell.pointIndices))
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	if !sort.IntsAreSorted(a) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
