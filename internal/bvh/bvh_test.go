package bvh

import (
	"math/rand"
	"slices"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spherephys/internal/geom"
)

func vec(x, y, z float32) rl.Vector3 {
	return rl.Vector3{X: x, Y: y, Z: z}
}

func strip(n int) []geom.Triangle {
	tris := make([]geom.Triangle, n)
	for i := range tris {
		x := float32(i)
		tris[i] = geom.NewTriangle(vec(x, 0, 0), vec(x+1, 0, 0), vec(x, 0, 1))
	}
	return tris
}

func randomSoup(rng *rand.Rand, n int, extent float32) []geom.Triangle {
	r := func() float32 { return (rng.Float32()*2 - 1) * extent }
	tris := make([]geom.Triangle, n)
	for i := range tris {
		c := vec(r(), r(), r())
		j := func() rl.Vector3 {
			return rl.Vector3Add(c, vec(rng.Float32()*2-1, rng.Float32()*2-1, rng.Float32()*2-1))
		}
		tris[i] = geom.NewTriangle(j(), j(), j())
	}
	return tris
}

func TestBuildEmpty(t *testing.T) {
	b := Build(nil)
	assert.True(t, b.Empty())
	assert.Nil(t, b.Root())
	assert.True(t, b.Bounds().IsEmpty())
	assert.Empty(t, b.QuerySphere(vec(0, 0, 0), 100, 0, nil))
	_, hit := b.Raycast(vec(0, 10, 0), vec(0, -1, 0), 100)
	assert.False(t, hit)
}

func TestBuildShapes(t *testing.T) {
	t.Run("single triangle creates leaf node", func(t *testing.T) {
		b := Build(strip(1))
		require.NotNil(t, b.Root())
		assert.True(t, b.Root().IsLeaf())
		assert.Len(t, b.Root().Triangles, 1)
	})

	t.Run("leaf threshold triangles stay in one leaf", func(t *testing.T) {
		b := Build(strip(LeafSize))
		assert.True(t, b.Root().IsLeaf())
		assert.Len(t, b.Root().Triangles, LeafSize)
	})

	t.Run("many triangles creates internal nodes", func(t *testing.T) {
		b := Build(strip(10))
		root := b.Root()
		require.False(t, root.IsLeaf())
		assert.Nil(t, root.Triangles)
		assert.NotNil(t, root.Left)
		assert.NotNil(t, root.Right)
		assert.Equal(t, 10, b.Stats().Triangles)
		assert.Greater(t, b.Stats().Leaves, 1)
	})

	t.Run("median split is balanced", func(t *testing.T) {
		b := Build(strip(64))
		assert.Equal(t, 4, b.Stats().Depth)
		assert.Equal(t, 16, b.Stats().Leaves)
	})
}

// every node's bounds must be the exact union of its subtree's triangle bounds
func TestNodeBoundsInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b := Build(randomSoup(rng, 500, 50))

	var walk func(n *Node, depth int) geom.AABB
	walk = func(n *Node, depth int) geom.AABB {
		if n.IsLeaf() {
			assert.True(t, len(n.Triangles) <= LeafSize || depth > MaxDepth)
			box := geom.Empty()
			for _, idx := range n.Triangles {
				box = box.Union(b.Triangle(idx).Bounds)
			}
			assert.Equal(t, box, n.Bounds)
			return box
		}
		assert.Empty(t, n.Triangles)
		box := geom.Union(walk(n.Left, depth+1), walk(n.Right, depth+1))
		assert.Equal(t, box, n.Bounds)
		return box
	}
	walk(b.Root(), 0)

	// every triangle lands in exactly one leaf
	seen := make(map[int]int)
	var collect func(n *Node)
	collect = func(n *Node) {
		if n.IsLeaf() {
			for _, idx := range n.Triangles {
				seen[idx]++
			}
			return
		}
		collect(n.Left)
		collect(n.Right)
	}
	collect(b.Root())
	assert.Len(t, seen, 500)
	for idx, count := range seen {
		assert.Equal(t, 1, count, "triangle %d", idx)
	}
}

func TestBuildDeterministic(t *testing.T) {
	tris := randomSoup(rand.New(rand.NewSource(9)), 200, 20)
	a := Build(slices.Clone(tris))
	b := Build(slices.Clone(tris))
	assert.Equal(t, a.Stats(), b.Stats())
	q := vec(1, 2, 3)
	assert.Equal(t, a.QuerySphere(q, 8, 0, nil), b.QuerySphere(q, 8, 0, nil))
}

func TestQuerySphereSupersetOfBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tris := randomSoup(rng, 400, 30)
	b := Build(tris)

	for trial := 0; trial < 1000; trial++ {
		center := vec((rng.Float32()*2-1)*35, (rng.Float32()*2-1)*35, (rng.Float32()*2-1)*35)
		radius := rng.Float32() * 8

		got := make(map[int]bool)
		for _, idx := range b.QuerySphere(center, radius, 0, nil) {
			got[idx] = true
		}
		for i := range tris {
			if tris[i].Bounds.IntersectsSphere(center, radius) {
				require.True(t, got[i], "trial %d missed triangle %d", trial, i)
			}
		}
	}
}

func TestQuerySphereMaxResults(t *testing.T) {
	b := Build(strip(100))
	all := b.QuerySphere(vec(50, 0, 0), 200, 0, nil)
	assert.Len(t, all, 100)

	capped := b.QuerySphere(vec(50, 0, 0), 200, 8, nil)
	assert.GreaterOrEqual(t, len(capped), 8)
	assert.LessOrEqual(t, len(capped), 8+LeafSize)
}

func TestQuerySphereNearestFirst(t *testing.T) {
	b := Build(strip(100))
	got := b.QuerySphere(vec(90, 0, 0), 200, 4, nil)
	require.NotEmpty(t, got)
	for _, idx := range got {
		assert.Greater(t, b.Triangle(idx).Centroid.X, float32(80), "capped query should keep the nearest leaf")
	}
}

func TestQueryAABB(t *testing.T) {
	b := Build(strip(20))
	got := b.QueryAABB(geom.NewAABB(vec(4.5, -1, 0), vec(6.5, 1, 1)), nil)
	slices.Sort(got)
	assert.Equal(t, []int{4, 5, 6}, got)
}

func TestRaycast(t *testing.T) {
	floor := []geom.Triangle{
		geom.NewTriangle(vec(-10, 0, -10), vec(-10, 0, 10), vec(10, 0, 10)),
		geom.NewTriangle(vec(-10, 0, -10), vec(10, 0, 10), vec(10, 0, -10)),
		geom.NewTriangle(vec(-10, 5, -10), vec(-10, 5, 10), vec(10, 5, 10)),
	}
	b := Build(floor)

	hit, ok := b.Raycast(vec(2, 3, -1), vec(0, -1, 0), 100)
	require.True(t, ok)
	assert.InDelta(t, 3, hit.Distance, 1e-5)
	assert.InDelta(t, 0, hit.Point.Y, 1e-5)
	assert.InDelta(t, 1, hit.Normal.Y, 1e-5, "normal faces the ray origin")

	hit, ok = b.Raycast(vec(-5, 3, 5), vec(0, 1, 0), 100)
	require.True(t, ok)
	assert.Equal(t, 2, hit.Triangle)
	assert.InDelta(t, -1, hit.Normal.Y, 1e-5)

	_, ok = b.Raycast(vec(2, 3, -1), vec(0, -1, 0), 2)
	assert.False(t, ok)

	_, ok = b.Raycast(vec(20, 3, 0), vec(0, -1, 0), 100)
	assert.False(t, ok)
}
