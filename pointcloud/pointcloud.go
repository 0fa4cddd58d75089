// Package pointcloud loads static map clouds and indexes them for drawing.
package pointcloud

import (
	"image/color"
	"math"

	"github.com/akmonengine/egocar/actor"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"
)

const DEFAULT_WORKERS = 1

// PointCloud is a static set of world points with optional per-point colors.
// When Colors is set it has the same length as Points.
type PointCloud struct {
	Name   string
	Points []mgl64.Vec3
	Colors []color.RGBA

	// rows dropped by the decoder for having too few columns
	Skipped int
}

func (pc *PointCloud) Len() int {
	return len(pc.Points)
}

func (pc *PointCloud) HasColors() bool {
	return len(pc.Colors) == len(pc.Points) && len(pc.Colors) > 0
}

func (pc *PointCloud) Bounds() actor.AABB {
	box := actor.EmptyAABB()
	for _, p := range pc.Points {
		box = box.Extend(p)
	}
	return box
}

// Centroid returns the mean point, or the origin for an empty cloud
func (pc *PointCloud) Centroid() mgl64.Vec3 {
	if len(pc.Points) == 0 {
		return mgl64.Vec3{}
	}

	var centroid mgl64.Vec3
	axis := make([]float64, len(pc.Points))
	for i := 0; i < 3; i++ {
		for j, p := range pc.Points {
			axis[j] = p[i]
		}
		centroid[i] = stat.Mean(axis, nil)
	}
	return centroid
}

// Transform applies a rigid transform to every point in place, split over
// workers goroutines
func (pc *PointCloud) Transform(transform actor.Transform, workers int) {
	workers = max(DEFAULT_WORKERS, workers)

	task(workers, pc.Points, func(i int, p mgl64.Vec3) {
		pc.Points[i] = transform.Apply(p)
	})
}

// VoxelDownSample keeps one averaged point per occupied voxel of the given
// size. Output order follows the first point seen in each voxel. A size <= 0
// returns the cloud unchanged.
func (pc *PointCloud) VoxelDownSample(size float64) *PointCloud {
	if size <= 0 || len(pc.Points) == 0 {
		return pc
	}

	type voxel struct {
		sum        mgl64.Vec3
		r, g, b, a float64
		count      int
	}

	index := make(map[CellKey]int)
	voxels := make([]voxel, 0)
	colored := pc.HasColors()

	for i, p := range pc.Points {
		key := worldToCell(p, size)
		k, ok := index[key]
		if !ok {
			k = len(voxels)
			index[key] = k
			voxels = append(voxels, voxel{})
		}
		v := &voxels[k]
		v.sum = v.sum.Add(p)
		v.count++
		if colored {
			c := pc.Colors[i]
			v.r += float64(c.R)
			v.g += float64(c.G)
			v.b += float64(c.B)
			v.a += float64(c.A)
		}
	}

	out := &PointCloud{Name: pc.Name, Points: make([]mgl64.Vec3, len(voxels)), Skipped: pc.Skipped}
	if colored {
		out.Colors = make([]color.RGBA, len(voxels))
	}
	for i, v := range voxels {
		n := float64(v.count)
		out.Points[i] = v.sum.Mul(1 / n)
		if colored {
			out.Colors[i] = color.RGBA{
				R: uint8(math.Round(v.r / n)),
				G: uint8(math.Round(v.g / n)),
				B: uint8(math.Round(v.b / n)),
				A: uint8(math.Round(v.a / n)),
			}
		}
	}
	return out
}
