package collide

import (
	"unsafe"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pkg/errors"

	"spherephys/internal/bvh"
	"spherephys/internal/geom"
)

// MeshCollider is static triangle geometry with a cached world-space triangle list and BVH.
//
// The cache is not tied to the transform: after SetTransform the collider keeps colliding
// at its old place until Rebuild is called.
type MeshCollider struct {
	// MaxCandidates optionally bounds the triangles gathered per query. Zero gathers every
	// triangle whose bounds reach the query sphere; a positive cap may drop the earliest or
	// deepest contact.
	MaxCandidates int

	local     []rl.Vector3
	indices   []uint32
	transform rl.Matrix
	tree      *bvh.BVH
	stale     bool

	scratch []int
}

// NewMeshCollider builds a collider from a flat xyz vertex buffer. With a nil index
// buffer every three vertices form a triangle.
func NewMeshCollider(vertices []float32, indices []uint32, transform rl.Matrix) (*MeshCollider, error) {
	if len(vertices)%3 != 0 {
		return nil, errors.Errorf("vertex buffer length %d is not a multiple of 3", len(vertices))
	}
	count := len(vertices) / 3
	local := make([]rl.Vector3, count)
	for i := range local {
		local[i] = rl.Vector3{X: vertices[i*3], Y: vertices[i*3+1], Z: vertices[i*3+2]}
	}

	if indices == nil {
		if count%3 != 0 {
			return nil, errors.Errorf("non-indexed mesh has %d vertices, want a multiple of 3", count)
		}
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	} else {
		if len(indices)%3 != 0 {
			return nil, errors.Errorf("index buffer length %d is not a multiple of 3", len(indices))
		}
		for i, idx := range indices {
			if int(idx) >= count {
				return nil, errors.Errorf("index %d at position %d out of range for %d vertices", idx, i, count)
			}
		}
	}

	m := &MeshCollider{
		local:     local,
		indices:   indices,
		transform: transform,
	}
	m.Rebuild()
	return m, nil
}

// WidenIndices converts a 16-bit index buffer for NewMeshCollider.
func WidenIndices(src []uint16) []uint32 {
	if src == nil {
		return nil
	}
	dst := make([]uint32, len(src))
	for i, v := range src {
		dst[i] = uint32(v)
	}
	return dst
}

// MeshColliderFromModel collects the triangles of every mesh in a raylib model.
func MeshColliderFromModel(model rl.Model, transform rl.Matrix) (*MeshCollider, error) {
	var vertices []float32
	var indices []uint32

	meshes := unsafe.Slice(model.Meshes, model.MeshCount)
	for i, mesh := range meshes {
		if mesh.Vertices == nil || mesh.VertexCount == 0 {
			continue
		}
		base := uint32(len(vertices) / 3)
		verts := unsafe.Slice(mesh.Vertices, mesh.VertexCount*3)
		vertices = append(vertices, verts...)

		if mesh.Indices != nil {
			for _, idx := range unsafe.Slice(mesh.Indices, mesh.TriangleCount*3) {
				if int32(idx) >= mesh.VertexCount {
					return nil, errors.Errorf("mesh %d: index %d out of range for %d vertices", i, idx, mesh.VertexCount)
				}
				indices = append(indices, base+uint32(idx))
			}
			continue
		}
		// Non-indexed mesh (every 3 vertices = 1 triangle)
		for v := int32(0); v < mesh.VertexCount/3*3; v++ {
			indices = append(indices, base+uint32(v))
		}
	}
	if indices == nil {
		indices = []uint32{}
	}

	m, err := NewMeshCollider(vertices, indices, transform)
	if err != nil {
		return nil, errors.Wrap(err, "building collider from model")
	}
	return m, nil
}

// SetTransform records a new world matrix and marks the collider stale.
func (m *MeshCollider) SetTransform(transform rl.Matrix) {
	m.transform = transform
	m.stale = true
}

func (m *MeshCollider) Transform() rl.Matrix {
	return m.transform
}

// Invalidate marks the cached triangles as out of date without rebuilding them.
func (m *MeshCollider) Invalidate() {
	m.stale = true
}

func (m *MeshCollider) Stale() bool {
	return m.stale
}

// Rebuild transforms the local vertices into world space and rebuilds the BVH.
func (m *MeshCollider) Rebuild() {
	tris := make([]geom.Triangle, 0, len(m.indices)/3)
	for i := 0; i+2 < len(m.indices); i += 3 {
		v0 := rl.Vector3Transform(m.local[m.indices[i]], m.transform)
		v1 := rl.Vector3Transform(m.local[m.indices[i+1]], m.transform)
		v2 := rl.Vector3Transform(m.local[m.indices[i+2]], m.transform)
		tris = append(tris, geom.NewTriangle(v0, v1, v2))
	}
	m.tree = bvh.Build(tris)
	m.stale = false
}

// Empty reports a collider without triangles; it never reports contacts.
func (m *MeshCollider) Empty() bool {
	return m.tree.Empty()
}

func (m *MeshCollider) BVH() *bvh.BVH {
	return m.tree
}

func (m *MeshCollider) Bounds() geom.AABB {
	return m.tree.Bounds()
}

// Discrete returns the deepest contact of a sphere resting at center. A centre exactly
// radius away from the surface is not a contact.
func (m *MeshCollider) Discrete(center rl.Vector3, radius float32) (Contact, bool) {
	m.scratch = m.tree.QuerySphere(center, radius*DiscreteMargin, m.MaxCandidates, m.scratch[:0])

	var best Contact
	found := false
	for _, idx := range m.scratch {
		tri := m.tree.Triangle(idx)
		if tri.Degenerate {
			continue
		}
		c, ok := pointContact(center, radius, tri.ClosestPoint(center), tri.Normal)
		if !ok {
			continue
		}
		if !found || c.Penetration > best.Penetration {
			c.Triangle = idx
			best = c
			found = true
		}
	}
	return best, found
}

// Swept returns the earliest contact of a sphere travelling from start to end. Triangles
// are treated as two-sided: each is oriented toward the start side and skipped when the
// sphere is not approaching it.
func (m *MeshCollider) Swept(start, end rl.Vector3, radius float32) (Contact, bool) {
	d := rl.Vector3Subtract(end, start)
	dist := rl.Vector3Length(d)
	if dist < geom.Epsilon {
		return m.Discrete(end, radius)
	}
	mid := rl.Vector3Lerp(start, end, 0.5)
	m.scratch = m.tree.QuerySphere(mid, dist/2+radius, m.MaxCandidates, m.scratch[:0])

	best := Contact{Time: 2}
	for _, idx := range m.scratch {
		tri := m.tree.Triangle(idx)
		if tri.Degenerate {
			continue
		}
		c, ok := sweepTriangle(tri, start, d, radius)
		if ok && c.Time < best.Time {
			c.Triangle = idx
			best = c
		}
	}
	if best.Time > 1 {
		return Contact{}, false
	}
	return best, true
}

func sweepTriangle(tri *geom.Triangle, start, d rl.Vector3, radius float32) (Contact, bool) {
	n := tri.Normal
	s0 := rl.Vector3DotProduct(rl.Vector3Subtract(start, tri.V0), n)
	if s0 < 0 {
		n = rl.Vector3Negate(n)
		s0 = -s0
	}
	vn := rl.Vector3DotProduct(d, n)
	if vn > -geom.Epsilon {
		return Contact{}, false
	}

	// time at which the sphere surface reaches the plane
	t := float32(0)
	if s0 > radius {
		t = (s0 - radius) / -vn
		if t > 1 {
			return Contact{}, false
		}
	}

	center := rl.Vector3Add(start, rl.Vector3Scale(d, t))
	onPlane := rl.Vector3Subtract(center, rl.Vector3Scale(n, math32.Min(s0, radius)))
	if s0 > radius && tri.ContainsProjected(onPlane, 0) {
		return Contact{
			Point:    onPlane,
			Normal:   n,
			Time:     t,
			Swept:    true,
			Triangle: -1,
		}, true
	}

	// the plane is reached outside the triangle (or the start already straddles it):
	// sweep against the triangle point nearest to where the plane was touched
	q := tri.ClosestPoint(onPlane)
	ts, ok := sweepPoint(start, d, radius, q)
	if !ok {
		return Contact{}, false
	}
	at := rl.Vector3Add(start, rl.Vector3Scale(d, ts))
	normal, gap := geom.NormalizeLen(rl.Vector3Subtract(at, q), n)
	pen := float32(0)
	if ts == 0 && gap < radius {
		pen = radius - gap
	}
	return Contact{
		Point:       q,
		Normal:      normal,
		Penetration: pen,
		Time:        ts,
		Swept:       true,
		Triangle:    -1,
	}, true
}

// Raycast returns the nearest triangle hit. Both faces are hit and the normal faces the origin.
func (m *MeshCollider) Raycast(origin, dir rl.Vector3, maxDistance float32) (RayHit, bool) {
	hit, ok := m.tree.Raycast(origin, dir, maxDistance)
	if !ok {
		return RayHit{}, false
	}
	return RayHit{Point: hit.Point, Normal: hit.Normal, Distance: hit.Distance, Triangle: hit.Triangle}, true
}
