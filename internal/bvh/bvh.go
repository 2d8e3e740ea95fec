// Package bvh is a static bounding volume hierarchy over a triangle list. It is built
// once per static mesh and answers "which triangles are near this sphere" queries; the
// exact geometric tests are left to the caller.
package bvh

import (
	"slices"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"spherephys/internal/geom"
)

const (
	// LeafSize is the triangle count at or below which a node becomes a leaf.
	LeafSize = 4
	// MaxDepth stops subdivision regardless of triangle count.
	MaxDepth = 20
)

// Node is a node in the bounding volume hierarchy. Internal nodes have Left and Right
// and no triangles; leaves carry indices into the BVH's triangle array.
type Node struct {
	Bounds    geom.AABB
	Left      *Node
	Right     *Node
	Triangles []int
}

func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// BVH owns its triangles. A BVH over zero triangles has a nil root and reports nothing.
type BVH struct {
	triangles []geom.Triangle
	root      *Node
	stats     Stats
}

// Stats describes the shape of a built tree.
type Stats struct {
	Triangles int
	Nodes     int
	Leaves    int
	Depth     int
}

// Build constructs the hierarchy by median split along the longest axis of each node.
func Build(triangles []geom.Triangle) *BVH {
	b := &BVH{triangles: triangles}
	b.stats.Triangles = len(triangles)
	if len(triangles) == 0 {
		return b
	}

	indices := make([]int, len(triangles))
	for i := range indices {
		indices[i] = i
	}
	b.root = b.buildNode(indices, 0)
	return b
}

func (b *BVH) buildNode(indices []int, depth int) *Node {
	node := &Node{Bounds: b.computeBounds(indices)}
	b.stats.Nodes++
	if depth > b.stats.Depth {
		b.stats.Depth = depth
	}

	// If few triangles or max depth, make leaf
	if len(indices) <= LeafSize || depth > MaxDepth {
		node.Triangles = indices
		b.stats.Leaves++
		return node
	}

	axis := node.Bounds.LongestAxis()
	slices.SortStableFunc(indices, func(i, j int) int {
		ci := geom.Axis(b.triangles[i].Centroid, axis)
		cj := geom.Axis(b.triangles[j].Centroid, axis)
		switch {
		case ci < cj:
			return -1
		case ci > cj:
			return 1
		default:
			return 0
		}
	})

	mid := len(indices) / 2
	node.Left = b.buildNode(indices[:mid], depth+1)
	node.Right = b.buildNode(indices[mid:], depth+1)
	return node
}

func (b *BVH) computeBounds(indices []int) geom.AABB {
	bounds := geom.Empty()
	for _, idx := range indices {
		bounds = bounds.Union(b.triangles[idx].Bounds)
	}
	return bounds
}

func (b *BVH) Empty() bool {
	return b.root == nil
}

func (b *BVH) Root() *Node {
	return b.root
}

// Bounds returns the AABB of the whole tree, or an empty box when there is no geometry.
func (b *BVH) Bounds() geom.AABB {
	if b.root == nil {
		return geom.Empty()
	}
	return b.root.Bounds
}

func (b *BVH) Len() int {
	return len(b.triangles)
}

// Triangle returns the triangle at index i as referenced by query results.
func (b *BVH) Triangle(i int) *geom.Triangle {
	return &b.triangles[i]
}

func (b *BVH) Triangles() []geom.Triangle {
	return b.triangles
}

func (b *BVH) Stats() Stats {
	return b.stats
}

// QuerySphere appends to dst the indices of triangles whose bounds intersect the sphere.
// Subtrees whose bounds miss the sphere are pruned, the nearer child is visited first and
// traversal stops once maxResults candidates were collected (maxResults <= 0: no limit).
func (b *BVH) QuerySphere(center rl.Vector3, radius float32, maxResults int, dst []int) []int {
	if b.root == nil || !b.root.Bounds.IntersectsSphere(center, radius) {
		return dst
	}

	found := 0
	var stackBuf [64]*Node
	stack := append(stackBuf[:0], b.root)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.IsLeaf() {
			for _, idx := range node.Triangles {
				if !b.triangles[idx].Bounds.IntersectsSphere(center, radius) {
					continue
				}
				dst = append(dst, idx)
				found++
			}
			if maxResults > 0 && found >= maxResults {
				return dst
			}
			continue
		}

		left, right := node.Left, node.Right
		leftHit := left.Bounds.IntersectsSphere(center, radius)
		rightHit := right.Bounds.IntersectsSphere(center, radius)
		switch {
		case leftHit && rightHit:
			// push the farther child first so the nearer one pops next
			dl := rl.Vector3LengthSqr(rl.Vector3Subtract(left.Bounds.Center(), center))
			dr := rl.Vector3LengthSqr(rl.Vector3Subtract(right.Bounds.Center(), center))
			if dl <= dr {
				stack = append(stack, right, left)
			} else {
				stack = append(stack, left, right)
			}
		case leftHit:
			stack = append(stack, left)
		case rightHit:
			stack = append(stack, right)
		}
	}
	return dst
}

// QueryAABB appends to dst the indices of triangles whose bounds intersect box.
func (b *BVH) QueryAABB(box geom.AABB, dst []int) []int {
	if b.root == nil {
		return dst
	}
	var stackBuf [64]*Node
	stack := append(stackBuf[:0], b.root)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !node.Bounds.Intersects(box) {
			continue
		}
		if node.IsLeaf() {
			for _, idx := range node.Triangles {
				if b.triangles[idx].Bounds.Intersects(box) {
					dst = append(dst, idx)
				}
			}
			continue
		}
		stack = append(stack, node.Left, node.Right)
	}
	return dst
}

// Hit is the result of a ray query.
type Hit struct {
	Triangle int
	Distance float32
	Point    rl.Vector3
	Normal   rl.Vector3
}

// Raycast returns the nearest triangle hit along a normalized direction within maxDistance.
// Both faces of a triangle are hit; the returned normal faces the ray origin.
func (b *BVH) Raycast(origin, dir rl.Vector3, maxDistance float32) (Hit, bool) {
	best := Hit{Triangle: -1, Distance: maxDistance}
	if b.root == nil {
		return best, false
	}

	var stackBuf [64]*Node
	stack := append(stackBuf[:0], b.root)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := node.Bounds.RayIntersect(origin, dir, best.Distance); !ok {
			continue
		}
		if !node.IsLeaf() {
			stack = append(stack, node.Left, node.Right)
			continue
		}
		for _, idx := range node.Triangles {
			tri := &b.triangles[idx]
			if d, ok := rayTriangle(origin, dir, tri); ok && d <= best.Distance {
				best.Triangle = idx
				best.Distance = d
			}
		}
	}
	if best.Triangle < 0 {
		return best, false
	}

	tri := &b.triangles[best.Triangle]
	best.Point = rl.Vector3Add(origin, rl.Vector3Scale(dir, best.Distance))
	best.Normal = tri.Normal
	if rl.Vector3DotProduct(best.Normal, dir) > 0 {
		best.Normal = rl.Vector3Negate(best.Normal)
	}
	return best, true
}

// rayTriangle is the Möller–Trumbore intersection.
func rayTriangle(origin, dir rl.Vector3, tri *geom.Triangle) (float32, bool) {
	if tri.Degenerate {
		return 0, false
	}
	p := rl.Vector3CrossProduct(dir, tri.Edge1)
	det := rl.Vector3DotProduct(tri.Edge0, p)
	if math32.Abs(det) < geom.Epsilon {
		return 0, false
	}
	inv := 1 / det
	s := rl.Vector3Subtract(origin, tri.V0)
	u := rl.Vector3DotProduct(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := rl.Vector3CrossProduct(s, tri.Edge0)
	v := rl.Vector3DotProduct(dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := rl.Vector3DotProduct(tri.Edge1, q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}
