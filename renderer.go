package egocar

import "github.com/akmonengine/egocar/actor"

// Geometry is anything a renderer can draw: the vehicle mesh
// (*actor.TriangleMesh) or a map (*pointcloud.PointCloud)
type Geometry interface {
	Bounds() actor.AABB
}

// Renderer is the output side of the viewer. RegisterGeometry is called once
// per geometry at startup; NotifyGeometryChanged after every change of a
// registered geometry, so the renderer can refresh its cached copy.
type Renderer interface {
	RegisterGeometry(g Geometry) error
	NotifyGeometryChanged(g Geometry)
}
