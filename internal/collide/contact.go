// Package collide implements the narrow phase: exact sphere tests against static shapes
// (triangle meshes and axis-aligned boxes) and between spheres.
package collide

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"spherephys/internal/geom"
)

// DiscreteMargin scales the sphere radius for the BVH candidate query of a discrete test.
const DiscreteMargin = 1.5

// Contact describes one point of contact between a sphere and another shape.
// Normal is unit length and points from the surface toward the sphere.
type Contact struct {
	Point       rl.Vector3
	Normal      rl.Vector3
	Penetration float32
	// Triangle is the source triangle index for mesh contacts, -1 otherwise.
	Triangle int
	// Time is the fraction of the swept segment at which the sphere first touches.
	Time  float32
	Swept bool
}

// RayHit is the nearest intersection of a ray with a shape.
type RayHit struct {
	Point    rl.Vector3
	Normal   rl.Vector3
	Distance float32
	Triangle int
}

// Shape is a static collider a sphere can be tested against.
type Shape interface {
	Bounds() geom.AABB
	// Discrete tests a sphere at rest at center.
	Discrete(center rl.Vector3, radius float32) (Contact, bool)
	// Swept tests a sphere moving from start to end and reports the earliest contact.
	Swept(start, end rl.Vector3, radius float32) (Contact, bool)
	Raycast(origin, dir rl.Vector3, maxDistance float32) (RayHit, bool)
}

// pointContact builds the contact of a sphere against a single surface point, or reports
// none when the point lies at or beyond the radius.
func pointContact(center rl.Vector3, radius float32, surface, fallback rl.Vector3) (Contact, bool) {
	diff := rl.Vector3Subtract(center, surface)
	distSq := rl.Vector3LengthSqr(diff)
	if distSq >= radius*radius {
		return Contact{}, false
	}
	dist := math32.Sqrt(distSq)
	normal := fallback
	if dist >= geom.Epsilon {
		normal = rl.Vector3Scale(diff, 1/dist)
	}
	return Contact{
		Point:       surface,
		Normal:      normal,
		Penetration: radius - dist,
		Triangle:    -1,
	}, true
}

// sweepPoint returns the first t in [0,1] at which a sphere moving along start+d*t
// touches point q.
func sweepPoint(start, d rl.Vector3, radius float32, q rl.Vector3) (float32, bool) {
	m := rl.Vector3Subtract(start, q)
	c := rl.Vector3LengthSqr(m) - radius*radius
	if c <= 0 {
		return 0, true
	}
	a := rl.Vector3LengthSqr(d)
	if a < geom.Epsilon*geom.Epsilon {
		return 0, false
	}
	b := rl.Vector3DotProduct(m, d)
	if b >= 0 {
		return 0, false
	}
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	t := (-b - math32.Sqrt(disc)) / a
	if t < 0 || t > 1 {
		return 0, false
	}
	return t, true
}

// RaySphere intersects a normalized ray with a sphere. Origins inside the sphere hit at 0.
func RaySphere(origin, dir, center rl.Vector3, radius, maxDistance float32) (float32, bool) {
	oc := rl.Vector3Subtract(origin, center)
	c := rl.Vector3LengthSqr(oc) - radius*radius
	if c <= 0 {
		return 0, true
	}
	b := rl.Vector3DotProduct(oc, dir)
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math32.Sqrt(disc)
	if t > maxDistance {
		return 0, false
	}
	return t, true
}
