package geom

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// AABB is an axis-aligned bounding box. Min <= Max on every axis for any box built by
// the constructors below; Empty is the one inverted value and the identity for Union.
type AABB struct {
	Min rl.Vector3
	Max rl.Vector3
}

// NewAABB returns the box spanned by two corners given in any order.
func NewAABB(a, b rl.Vector3) AABB {
	return AABB{Min: rl.Vector3Min(a, b), Max: rl.Vector3Max(a, b)}
}

// NewAABBFromCenter creates an AABB from a center point and full size dimensions.
func NewAABBFromCenter(center, size rl.Vector3) AABB {
	half := rl.Vector3{X: math32.Abs(size.X) / 2, Y: math32.Abs(size.Y) / 2, Z: math32.Abs(size.Z) / 2}
	return AABB{
		Min: rl.Vector3Subtract(center, half),
		Max: rl.Vector3Add(center, half),
	}
}

// SphereBounds returns the box enclosing a sphere.
func SphereBounds(center rl.Vector3, radius float32) AABB {
	r := rl.Vector3{X: radius, Y: radius, Z: radius}
	return AABB{Min: rl.Vector3Subtract(center, r), Max: rl.Vector3Add(center, r)}
}

// Empty returns an inverted box that any Union or Extend replaces.
func Empty() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: rl.Vector3{X: inf, Y: inf, Z: inf},
		Max: rl.Vector3{X: -inf, Y: -inf, Z: -inf},
	}
}

// IsEmpty reports whether the box is the inverted Empty value (or otherwise inverted).
func (a AABB) IsEmpty() bool {
	return a.Min.X > a.Max.X || a.Min.Y > a.Max.Y || a.Min.Z > a.Max.Z
}

func (a AABB) Center() rl.Vector3 {
	return rl.Vector3Scale(rl.Vector3Add(a.Min, a.Max), 0.5)
}

func (a AABB) Size() rl.Vector3 {
	return rl.Vector3Subtract(a.Max, a.Min)
}

// Union returns the smallest box containing both a and b.
func Union(a, b AABB) AABB {
	return AABB{Min: rl.Vector3Min(a.Min, b.Min), Max: rl.Vector3Max(a.Max, b.Max)}
}

func (a AABB) Union(b AABB) AABB {
	return Union(a, b)
}

// Extend grows the box to contain p.
func (a AABB) Extend(p rl.Vector3) AABB {
	return AABB{Min: rl.Vector3Min(a.Min, p), Max: rl.Vector3Max(a.Max, p)}
}

// Expand grows the box by margin on every side.
func (a AABB) Expand(margin float32) AABB {
	m := rl.Vector3{X: margin, Y: margin, Z: margin}
	return AABB{Min: rl.Vector3Subtract(a.Min, m), Max: rl.Vector3Add(a.Max, m)}
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

func (a AABB) Contains(p rl.Vector3) bool {
	return p.X >= a.Min.X && p.X <= a.Max.X &&
		p.Y >= a.Min.Y && p.Y <= a.Max.Y &&
		p.Z >= a.Min.Z && p.Z <= a.Max.Z
}

// ClosestPoint clamps p into the box.
func (a AABB) ClosestPoint(p rl.Vector3) rl.Vector3 {
	return rl.Vector3{
		X: Clamp(p.X, a.Min.X, a.Max.X),
		Y: Clamp(p.Y, a.Min.Y, a.Max.Y),
		Z: Clamp(p.Z, a.Min.Z, a.Max.Z),
	}
}

// DistanceSq returns the squared distance from p to the box (0 inside).
func (a AABB) DistanceSq(p rl.Vector3) float32 {
	return rl.Vector3LengthSqr(rl.Vector3Subtract(p, a.ClosestPoint(p)))
}

// IntersectsSphere clamps the center into the box and compares squared distance to radius².
func (a AABB) IntersectsSphere(center rl.Vector3, radius float32) bool {
	return a.DistanceSq(center) <= radius*radius
}

// LongestAxis returns 0, 1 or 2 for X, Y or Z.
func (a AABB) LongestAxis() int {
	size := a.Size()
	axis := 0
	if size.Y > size.X {
		axis = 1
	}
	if size.Z > Axis(size, axis) {
		axis = 2
	}
	return axis
}

// Resolve returns the minimum translation vector to push 'a' out of 'b'.
// Returns zero vector if no overlap.
func (a AABB) Resolve(b AABB) rl.Vector3 {
	if !a.Intersects(b) {
		return rl.Vector3Zero()
	}

	// candidate pushes, one per face of b
	pushes := [6]rl.Vector3{
		{X: b.Max.X - a.Min.X},
		{X: -(a.Max.X - b.Min.X)},
		{Y: b.Max.Y - a.Min.Y},
		{Y: -(a.Max.Y - b.Min.Y)},
		{Z: b.Max.Z - a.Min.Z},
		{Z: -(a.Max.Z - b.Min.Z)},
	}

	result := pushes[0]
	best := math32.Abs(pushes[0].X)
	for _, p := range pushes[1:] {
		if d := math32.Abs(p.X + p.Y + p.Z); d < best {
			best = d
			result = p
		}
	}
	return result
}

// RayIntersect runs a slab test and returns the entry distance along a normalized
// direction. Origins inside the box report 0.
func (a AABB) RayIntersect(origin, dir rl.Vector3, maxDistance float32) (float32, bool) {
	tmin := float32(0)
	tmax := maxDistance
	for axis := 0; axis < 3; axis++ {
		o := Axis(origin, axis)
		d := Axis(dir, axis)
		lo := Axis(a.Min, axis)
		hi := Axis(a.Max, axis)
		if math32.Abs(d) < Epsilon {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
