package renderer

import (
	"testing"

	"github.com/akmonengine/egocar"
	"github.com/akmonengine/egocar/actor"
	"github.com/akmonengine/egocar/pointcloud"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RegisterAndNotify(t *testing.T) {
	r := NewRecorder(nil)
	mesh := actor.NewEgoCarMesh()
	cloud := &pointcloud.PointCloud{Name: "map.xyz", Points: []mgl64.Vec3{{1, 1, 1}}}

	require.NoError(t, r.RegisterGeometry(mesh))
	require.NoError(t, r.RegisterGeometry(cloud))

	r.NotifyGeometryChanged(mesh)
	r.NotifyGeometryChanged(mesh)

	assert.Equal(t, []egocar.Geometry{mesh, cloud}, r.Registered())
	assert.Equal(t, 2, r.Changes(mesh))
	assert.Equal(t, 0, r.Changes(cloud))
	assert.Equal(t, 2, r.TotalChanges())
}

func TestRecorder_Duplicate(t *testing.T) {
	r := NewRecorder(nil)
	mesh := actor.NewEgoCarMesh()

	require.NoError(t, r.RegisterGeometry(mesh))
	assert.ErrorIs(t, r.RegisterGeometry(mesh), ErrAlreadyRegistered)
	assert.Len(t, r.Registered(), 1)
}

func TestRecorder_UnregisteredChangeDropped(t *testing.T) {
	r := NewRecorder(nil)

	r.NotifyGeometryChanged(actor.NewEgoCarMesh())

	assert.Zero(t, r.TotalChanges())
}

// The App drives a Recorder the same way it drives the window
func TestRecorder_WithApp(t *testing.T) {
	r := NewRecorder(nil)
	cloud := &pointcloud.PointCloud{Name: "map.xyz", Points: []mgl64.Vec3{{0, 5, 0}}}

	app, err := egocar.NewApp(egocar.Options{Renderer: r, Maps: []*pointcloud.PointCloud{cloud}})
	require.NoError(t, err)

	require.NoError(t, app.Replay([]egocar.ActionKind{
		egocar.ActionAdvance, egocar.ActionTurnLeft, egocar.ActionRetreat,
	}))

	assert.Len(t, r.Registered(), 2)
	assert.Equal(t, 3, r.Changes(app.Car().Mesh()))
	assert.Equal(t, 0, r.Changes(cloud))
}
