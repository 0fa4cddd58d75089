package pointcloud

import (
	"math"
	"sort"

	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the points hashed into it
type Cell struct {
	pointIndices []int
}

// SpatialGrid is a uniform hashed grid over a point cloud. Several cells may
// share a slot, so queries return candidates that are then filtered by
// position.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
	points   []mgl64.Vec3
	bounds   actor.AABB
}

// ============================================================================
// Constructor
// ============================================================================

// NewSpatialGrid creates an empty grid; numCells is rounded up to a power of two
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].pointIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
		bounds:   actor.EmptyAABB(),
	}
}

// NewSpatialGridFromCloud sizes a grid for the cloud and inserts every point
func NewSpatialGridFromCloud(pc *PointCloud, cellSize float64) *SpatialGrid {
	sg := NewSpatialGrid(cellSize, max(16, pc.Len()/8))
	sg.Build(pc.Points)
	return sg
}

// nextPowerOfTwo rounds n up to the next power of two
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Build clears the grid and inserts all points, keeping a reference to the
// slice for query filtering
func (sg *SpatialGrid) Build(points []mgl64.Vec3) {
	sg.Clear()
	sg.points = points
	for i, p := range points {
		sg.Insert(i, p)
		sg.bounds = sg.bounds.Extend(p)
	}
}

// Insert adds a point index to the cell containing position
func (sg *SpatialGrid) Insert(pointIndex int, position mgl64.Vec3) {
	cellIdx := sg.hashCell(worldToCell(position, sg.cellSize))
	sg.cells[cellIdx].pointIndices = append(sg.cells[cellIdx].pointIndices, pointIndex)
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].pointIndices = sg.cells[i].pointIndices[:0]
	}
	sg.points = nil
	sg.bounds = actor.EmptyAABB()
}

// Query returns, in ascending order, the indices of the built points that lie
// inside box
func (sg *SpatialGrid) Query(box actor.AABB) []int {
	if box.IsEmpty() || len(sg.points) == 0 {
		return nil
	}

	minCell := worldToCell(box.Min, sg.cellSize)
	maxCell := worldToCell(box.Max, sg.cellSize)

	// a box spanning more cells than the table has slots visits every slot
	span := (maxCell.X - minCell.X + 1) * (maxCell.Y - minCell.Y + 1) * (maxCell.Z - minCell.Z + 1)
	slots := make(map[int]struct{})
	if span <= 0 || span >= len(sg.cells) {
		for i := range sg.cells {
			slots[i] = struct{}{}
		}
	} else {
		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					slots[sg.hashCell(CellKey{x, y, z})] = struct{}{}
				}
			}
		}
	}

	result := make([]int, 0)
	for slot := range slots {
		for _, idx := range sg.cells[slot].pointIndices {
			if box.ContainsPoint(sg.points[idx]) {
				result = append(result, idx)
			}
		}
	}
	sort.Ints(result)

	return result
}

// QueryRadius returns the indices of points within radius of center on the
// XY plane, at any height, in ascending order
func (sg *SpatialGrid) QueryRadius(center mgl64.Vec3, radius float64) []int {
	box := actor.AABB{
		Min: mgl64.Vec3{center.X() - radius, center.Y() - radius, sg.bounds.Min.Z()},
		Max: mgl64.Vec3{center.X() + radius, center.Y() + radius, sg.bounds.Max.Z()},
	}

	candidates := sg.Query(box)
	r2 := radius * radius
	n := 0
	for _, idx := range candidates {
		p := sg.points[idx]
		dx, dy := p.X()-center.X(), p.Y()-center.Y()
		if dx*dx+dy*dy <= r2 {
			candidates[n] = idx
			n++
		}
	}
	return candidates[:n]
}

// worldToCell converts a world position to cell coordinates
func worldToCell(pos mgl64.Vec3, cellSize float64) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / cellSize)),
		Y: int(math.Floor(pos.Y() / cellSize)),
		Z: int(math.Floor(pos.Z() / cellSize)),
	}
}

// hashCell maps a cell to a slot of the table
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
