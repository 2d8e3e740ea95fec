package collide

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"spherephys/internal/geom"
)

// BoxCollider is a static axis-aligned box.
type BoxCollider struct {
	Center rl.Vector3
	Size   rl.Vector3
}

func NewBoxCollider(center, size rl.Vector3) *BoxCollider {
	return &BoxCollider{Center: center, Size: size}
}

func (b *BoxCollider) Bounds() geom.AABB {
	return geom.NewAABBFromCenter(b.Center, b.Size)
}

// Discrete tests a sphere against the box. A centre inside the box is pushed out
// through the nearest face.
func (b *BoxCollider) Discrete(center rl.Vector3, radius float32) (Contact, bool) {
	box := b.Bounds()
	if !box.Contains(center) {
		return pointContact(center, radius, box.ClosestPoint(center), geom.Up)
	}

	push := geom.SphereBounds(center, radius).Resolve(box)
	normal, depth := geom.NormalizeLen(push, geom.Up)
	return Contact{
		Point:       rl.Vector3Add(center, rl.Vector3Scale(normal, depth-radius)),
		Normal:      normal,
		Penetration: depth,
		Triangle:    -1,
	}, true
}

// Swept intersects the sphere's path with the box grown by the radius, then refines
// corner and edge hits against the nearest box point.
func (b *BoxCollider) Swept(start, end rl.Vector3, radius float32) (Contact, bool) {
	d := rl.Vector3Subtract(end, start)
	dir, dist := geom.NormalizeLen(d, geom.Up)
	if dist < geom.Epsilon {
		return b.Discrete(end, radius)
	}

	box := b.Bounds()
	toi, ok := box.Expand(radius).RayIntersect(start, dir, dist)
	if !ok {
		return Contact{}, false
	}
	if toi == 0 {
		c, hit := b.Discrete(start, radius)
		c.Swept = true
		return c, hit
	}

	t := toi / dist
	at := rl.Vector3Add(start, rl.Vector3Scale(d, t))
	q := box.ClosestPoint(at)
	if rl.Vector3LengthSqr(rl.Vector3Subtract(at, q)) > radius*radius*1.0001 {
		// the expanded box has square corners, the swept sphere does not
		t, ok = sweepPoint(start, d, radius, q)
		if !ok {
			return Contact{}, false
		}
		at = rl.Vector3Add(start, rl.Vector3Scale(d, t))
	}
	return Contact{
		Point:    q,
		Normal:   geom.Normalize(rl.Vector3Subtract(at, q), rl.Vector3Negate(dir)),
		Time:     t,
		Swept:    true,
		Triangle: -1,
	}, true
}

func (b *BoxCollider) Raycast(origin, dir rl.Vector3, maxDistance float32) (RayHit, bool) {
	box := b.Bounds()
	t, ok := box.RayIntersect(origin, dir, maxDistance)
	if !ok {
		return RayHit{}, false
	}
	point := rl.Vector3Add(origin, rl.Vector3Scale(dir, t))
	if t == 0 {
		return RayHit{Point: point, Normal: rl.Vector3Negate(dir), Triangle: -1}, true
	}
	return RayHit{Point: point, Normal: faceNormal(box, point), Distance: t, Triangle: -1}, true
}

// faceNormal picks the box face a surface point lies on.
func faceNormal(box geom.AABB, p rl.Vector3) rl.Vector3 {
	const eps = 0.001
	switch {
	case math32.Abs(p.X-box.Min.X) < eps:
		return rl.Vector3{X: -1}
	case math32.Abs(p.X-box.Max.X) < eps:
		return rl.Vector3{X: 1}
	case math32.Abs(p.Y-box.Min.Y) < eps:
		return rl.Vector3{Y: -1}
	case math32.Abs(p.Y-box.Max.Y) < eps:
		return rl.Vector3{Y: 1}
	case math32.Abs(p.Z-box.Min.Z) < eps:
		return rl.Vector3{Z: -1}
	default:
		return rl.Vector3{Z: 1}
	}
}
