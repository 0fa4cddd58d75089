package actor

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// EgoCarHeight is the height of the vehicle proxy (top face z)
const EgoCarHeight = 0.8

var ErrInvalidMesh = errors.New("invalid mesh")

// egoCarFootprint is the house-shaped base polygon, apex pointing +Y
var egoCarFootprint = [5]mgl64.Vec3{
	{-0.5, -0.5, 0.0},
	{0.5, -0.5, 0.0},
	{0.5, 0.5, 0.0},
	{0.0, 1.0, 0.0},
	{-0.5, 0.5, 0.0},
}

// egoCarTriangles are wound so every face normal points outward
var egoCarTriangles = [16][3]int{
	// bottom (-Z)
	{0, 2, 1}, {0, 4, 2}, {2, 4, 3},
	// top (+Z)
	{5, 6, 7}, {5, 7, 9}, {7, 8, 9},
	// side walls, two triangles each
	{0, 1, 6}, {0, 6, 5},
	{1, 2, 7}, {1, 7, 6},
	{2, 3, 8}, {2, 8, 7},
	{3, 4, 9}, {3, 9, 8},
	{4, 0, 5}, {4, 5, 9},
}

// EgoCarBaseIndices are the vertex indices of the footprint at z=0
var EgoCarBaseIndices = []int{0, 1, 2, 3, 4}

// TriangleMesh is a renderable triangle soup with per-vertex normals and a
// uniform color. Vertex positions are mutated in place by rigid motions and the
// accumulated motion is tracked in Transform.
type TriangleMesh struct {
	Vertices  []mgl64.Vec3
	Triangles [][3]int
	Normals   []mgl64.Vec3
	Color     color.RGBA

	// Transform is the rigid motion applied since construction
	Transform Transform

	mu sync.RWMutex
}

// NewTriangleMesh copies vertices and triangles into a new mesh
func NewTriangleMesh(vertices []mgl64.Vec3, triangles [][3]int) *TriangleMesh {
	m := &TriangleMesh{
		Vertices:  append([]mgl64.Vec3(nil), vertices...),
		Triangles: append([][3]int(nil), triangles...),
		Transform: NewTransform(),
	}
	return m
}

// NewEgoCarMesh builds the 10-vertex, 16-triangle vehicle proxy: the footprint at
// z=0, the same polygon at z=EgoCarHeight, closed by five side walls.
func NewEgoCarMesh() *TriangleMesh {
	vertices := make([]mgl64.Vec3, 0, 2*len(egoCarFootprint))
	vertices = append(vertices, egoCarFootprint[:]...)
	for _, v := range egoCarFootprint {
		vertices = append(vertices, mgl64.Vec3{v.X(), v.Y(), EgoCarHeight})
	}

	m := NewTriangleMesh(vertices, egoCarTriangles[:])
	m.ComputeVertexNormals()
	m.PaintUniformColor(color.RGBA{R: 255, G: 0, B: 0, A: 255})

	return m
}

// FaceNormal returns the area-weighted normal of triangle i (its length is twice
// the triangle area). The direction follows the winding order.
func (m *TriangleMesh) FaceNormal(i int) mgl64.Vec3 {
	tri := m.Triangles[i]
	a, b, c := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
	return b.Sub(a).Cross(c.Sub(a))
}

// ComputeVertexNormals averages the adjacent face normals of every vertex
func (m *TriangleMesh) ComputeVertexNormals() {
	m.mu.Lock()
	defer m.mu.Unlock()

	normals := make([]mgl64.Vec3, len(m.Vertices))
	for i, tri := range m.Triangles {
		n := m.FaceNormal(i)
		for _, idx := range tri {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	m.Normals = normals
}

func (m *TriangleMesh) PaintUniformColor(c color.RGBA) {
	m.mu.Lock()
	m.Color = c
	m.mu.Unlock()
}

// Translate moves every vertex by delta. Normals are unchanged.
func (m *TriangleMesh) Translate(delta mgl64.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(delta)
	}
	m.Transform.Translate(delta)
}

// RotateAbout rotates every vertex around pivot, and every normal with it
func (m *TriangleMesh) RotateAbout(q mgl64.Quat, pivot mgl64.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := q.Mat4().Mat3()
	for i := range m.Vertices {
		m.Vertices[i] = r.Mul3x1(m.Vertices[i].Sub(pivot)).Add(pivot)
	}
	for i := range m.Normals {
		m.Normals[i] = r.Mul3x1(m.Normals[i])
	}
	m.Transform.RotateAbout(q, pivot)
}

// Read calls fn with the current geometry while holding the read lock, so the
// caller never observes a half-applied motion. fn must not retain the slices.
func (m *TriangleMesh) Read(fn func(vertices, normals []mgl64.Vec3, triangles [][3]int, c color.RGBA)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fn(m.Vertices, m.Normals, m.Triangles, m.Color)
}

// Centroid returns the mean of the given vertices, or of all vertices when no
// index is given
func (m *TriangleMesh) Centroid(indices ...int) mgl64.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(indices) == 0 {
		var sum mgl64.Vec3
		for _, v := range m.Vertices {
			sum = sum.Add(v)
		}
		return sum.Mul(1.0 / float64(len(m.Vertices)))
	}

	var sum mgl64.Vec3
	for _, idx := range indices {
		sum = sum.Add(m.Vertices[idx])
	}
	return sum.Mul(1.0 / float64(len(indices)))
}

func (m *TriangleMesh) Bounds() AABB {
	m.mu.RLock()
	defer m.mu.RUnlock()

	box := EmptyAABB()
	for _, v := range m.Vertices {
		box = box.Extend(v)
	}
	return box
}

// Validate checks that the mesh is a closed solid with outward winding:
// indices in range, no degenerate face, every edge shared by exactly two
// triangles in opposite directions, and every face normal pointing away from
// the vertex centroid.
func (m *TriangleMesh) Validate() error {
	if len(m.Vertices) == 0 || len(m.Triangles) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidMesh)
	}

	type edge struct{ a, b int }
	directed := make(map[edge]int, 3*len(m.Triangles))
	for i, tri := range m.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("%w: triangle %d references vertex %d", ErrInvalidMesh, i, idx)
			}
		}
		for k := 0; k < 3; k++ {
			directed[edge{tri[k], tri[(k+1)%3]}]++
		}
	}

	for e, count := range directed {
		if count != 1 {
			return fmt.Errorf("%w: edge %d->%d used %d times in the same direction", ErrInvalidMesh, e.a, e.b, count)
		}
		if directed[edge{e.b, e.a}] != 1 {
			return fmt.Errorf("%w: edge %d->%d has no opposite", ErrInvalidMesh, e.a, e.b)
		}
	}

	center := m.Centroid()
	for i, tri := range m.Triangles {
		n := m.FaceNormal(i)
		if n.Len() == 0 {
			return fmt.Errorf("%w: triangle %d is degenerate", ErrInvalidMesh, i)
		}
		faceCenter := m.Vertices[tri[0]].Add(m.Vertices[tri[1]]).Add(m.Vertices[tri[2]]).Mul(1.0 / 3.0)
		if n.Dot(faceCenter.Sub(center)) <= 0 {
			return fmt.Errorf("%w: triangle %d faces inward", ErrInvalidMesh, i)
		}
	}

	return nil
}
