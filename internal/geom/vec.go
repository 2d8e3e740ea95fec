// Package geom holds the value types shared by the collision code: triangles, boxes
// and a few float32 vector helpers on top of raylib's Vector3.
package geom

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Epsilon guards every division in the geometric routines.
const Epsilon = 1e-6

// Up is the fallback direction used when a normal cannot be derived.
var Up = rl.Vector3{X: 0, Y: 1, Z: 0}

// Clamp restricts a value to a range
func Clamp(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Axis returns the X, Y or Z component of v for axis 0, 1 or 2.
func Axis(v rl.Vector3, axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Normalize returns v scaled to unit length, or fallback when v is too short to normalize.
func Normalize(v, fallback rl.Vector3) rl.Vector3 {
	l := rl.Vector3Length(v)
	if l < Epsilon {
		return fallback
	}
	return rl.Vector3Scale(v, 1/l)
}

// NormalizeLen is Normalize that also returns the original length (0 on fallback).
func NormalizeLen(v, fallback rl.Vector3) (rl.Vector3, float32) {
	l := rl.Vector3Length(v)
	if l < Epsilon {
		return fallback, 0
	}
	return rl.Vector3Scale(v, 1/l), l
}

// Finite reports whether every component is a real number.
func Finite(v rl.Vector3) bool {
	return !math32.IsNaN(v.X) && !math32.IsNaN(v.Y) && !math32.IsNaN(v.Z) &&
		!math32.IsInf(v.X, 0) && !math32.IsInf(v.Y, 0) && !math32.IsInf(v.Z, 0)
}

// ClosestPointOnSegment returns the point on segment ab nearest to p.
func ClosestPointOnSegment(p, a, b rl.Vector3) rl.Vector3 {
	ab := rl.Vector3Subtract(b, a)
	denom := rl.Vector3LengthSqr(ab)
	if denom < Epsilon*Epsilon {
		return a
	}
	t := Clamp(rl.Vector3DotProduct(rl.Vector3Subtract(p, a), ab)/denom, 0, 1)
	return rl.Vector3Add(a, rl.Vector3Scale(ab, t))
}
