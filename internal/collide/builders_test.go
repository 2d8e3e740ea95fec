package collide

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaneMesh(t *testing.T) {
	v, idx := PlaneMesh(8, 4, 3)
	assert.Len(t, v, 4*4*3)
	assert.Len(t, idx, 3*3*6)

	m, err := NewMeshCollider(v, idx, rl.MatrixIdentity())
	require.NoError(t, err)

	var area float32
	for _, tri := range m.BVH().Triangles() {
		assertVecNear(t, vec(0, 1, 0), tri.Normal, 1e-6)
		area += tri.Area()
	}
	assert.InDelta(t, 32, area, 1e-4)
	assertVecNear(t, vec(-4, 0, -2), m.Bounds().Min, 1e-6)
	assertVecNear(t, vec(4, 0, 2), m.Bounds().Max, 1e-6)
}

func TestBoxMeshFacesOutward(t *testing.T) {
	v, idx := BoxMesh(vec(2, 4, 6))
	m, err := NewMeshCollider(v, idx, rl.MatrixIdentity())
	require.NoError(t, err)
	require.Equal(t, 12, m.BVH().Len())

	var area float32
	for i, tri := range m.BVH().Triangles() {
		assert.Greater(t, rl.Vector3DotProduct(tri.Normal, tri.Centroid), float32(0), "triangle %d", i)
		area += tri.Area()
	}
	assert.InDelta(t, 2*(2*4+4*6+2*6), area, 1e-3)
}
