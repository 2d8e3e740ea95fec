package geom

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Triangle is a world-space triangle with its derived properties precomputed.
// It is immutable once built; when the owning mesh moves the triangles are rebuilt.
type Triangle struct {
	V0, V1, V2 rl.Vector3
	Edge0      rl.Vector3 // V1 - V0
	Edge1      rl.Vector3 // V2 - V0
	Normal     rl.Vector3 // unit, zero for degenerate triangles
	Centroid   rl.Vector3
	Bounds     AABB
	Degenerate bool
}

// NewTriangle computes edges, normal, centroid and bounds. Triangles whose area is
// below Epsilon are flagged Degenerate and keep a zero normal.
func NewTriangle(v0, v1, v2 rl.Vector3) Triangle {
	t := Triangle{
		V0:    v0,
		V1:    v1,
		V2:    v2,
		Edge0: rl.Vector3Subtract(v1, v0),
		Edge1: rl.Vector3Subtract(v2, v0),
		Centroid: rl.Vector3Scale(
			rl.Vector3Add(rl.Vector3Add(v0, v1), v2), 1.0/3.0),
		Bounds: NewAABB(v0, v1).Extend(v2),
	}

	n := rl.Vector3CrossProduct(t.Edge0, t.Edge1)
	l := rl.Vector3Length(n)
	if l < Epsilon {
		t.Degenerate = true
		return t
	}
	t.Normal = rl.Vector3Scale(n, 1/l)
	return t
}

// Area returns the triangle's surface area.
func (t Triangle) Area() float32 {
	return rl.Vector3Length(rl.Vector3CrossProduct(t.Edge0, t.Edge1)) / 2
}

// ClosestPoint returns the point on the triangle, interior included, nearest to p.
func (t Triangle) ClosestPoint(p rl.Vector3) rl.Vector3 {
	q, _ := t.ClosestPointBarycentric(p)
	return q
}

// FromBarycentric returns u*V0 + v*V1 + w*V2.
func (t Triangle) FromBarycentric(b [3]float32) rl.Vector3 {
	return rl.Vector3Add(
		rl.Vector3Add(rl.Vector3Scale(t.V0, b[0]), rl.Vector3Scale(t.V1, b[1])),
		rl.Vector3Scale(t.V2, b[2]))
}

// ClosestPointBarycentric classifies p into one of the seven Voronoi regions of the
// triangle (three vertices, three edges, face) and returns the closest point along with
// its barycentric coordinates, each in [0,1] and summing to 1.
func (t Triangle) ClosestPointBarycentric(p rl.Vector3) (rl.Vector3, [3]float32) {
	if t.Degenerate {
		return t.closestOnEdges(p)
	}

	a, b, c := t.V0, t.V1, t.V2
	ab := t.Edge0
	ac := t.Edge1

	// vertex region outside A
	ap := rl.Vector3Subtract(p, a)
	d1 := rl.Vector3DotProduct(ab, ap)
	d2 := rl.Vector3DotProduct(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a, [3]float32{1, 0, 0}
	}

	// vertex region outside B
	bp := rl.Vector3Subtract(p, b)
	d3 := rl.Vector3DotProduct(ab, bp)
	d4 := rl.Vector3DotProduct(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b, [3]float32{0, 1, 0}
	}

	// edge region of AB
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := safeRatio(d1, d1-d3)
		return rl.Vector3Add(a, rl.Vector3Scale(ab, v)), [3]float32{1 - v, v, 0}
	}

	// vertex region outside C
	cp := rl.Vector3Subtract(p, c)
	d5 := rl.Vector3DotProduct(ab, cp)
	d6 := rl.Vector3DotProduct(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c, [3]float32{0, 0, 1}
	}

	// edge region of AC
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := safeRatio(d2, d2-d6)
		return rl.Vector3Add(a, rl.Vector3Scale(ac, w)), [3]float32{1 - w, 0, w}
	}

	// edge region of BC
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := safeRatio(d4-d3, (d4-d3)+(d5-d6))
		return rl.Vector3Add(b, rl.Vector3Scale(rl.Vector3Subtract(c, b), w)), [3]float32{0, 1 - w, w}
	}

	// face region
	sum := va + vb + vc
	if sum < Epsilon*Epsilon {
		return t.closestOnEdges(p)
	}
	v := Clamp(vb/sum, 0, 1)
	w := Clamp(vc/sum, 0, 1-v)
	return rl.Vector3Add(a, rl.Vector3Add(rl.Vector3Scale(ab, v), rl.Vector3Scale(ac, w))),
		[3]float32{1 - v - w, v, w}
}

// closestOnEdges is the fallback for slivers: the nearest point over the three edges.
func (t Triangle) closestOnEdges(p rl.Vector3) (rl.Vector3, [3]float32) {
	type edge struct {
		from, to rl.Vector3
		i, j     int
	}
	edges := [3]edge{{t.V0, t.V1, 0, 1}, {t.V1, t.V2, 1, 2}, {t.V2, t.V0, 2, 0}}

	var best rl.Vector3
	var bary [3]float32
	bestDist := float32(-1)
	for _, e := range edges {
		seg := rl.Vector3Subtract(e.to, e.from)
		denom := rl.Vector3LengthSqr(seg)
		s := float32(0)
		if denom > Epsilon*Epsilon {
			s = Clamp(rl.Vector3DotProduct(rl.Vector3Subtract(p, e.from), seg)/denom, 0, 1)
		}
		q := rl.Vector3Add(e.from, rl.Vector3Scale(seg, s))
		d := rl.Vector3LengthSqr(rl.Vector3Subtract(p, q))
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = q
			bary = [3]float32{}
			bary[e.i] = 1 - s
			bary[e.j] = s
		}
	}
	return best, bary
}

// ContainsProjected reports whether p, projected onto the triangle's plane, falls inside
// the triangle (edges included, widened by tolerance).
func (t Triangle) ContainsProjected(p rl.Vector3, tolerance float32) bool {
	if t.Degenerate {
		return false
	}
	e0 := t.Edge0
	e1 := t.Edge1
	d := rl.Vector3Subtract(p, t.V0)
	a := rl.Vector3DotProduct(e0, e0)
	b := rl.Vector3DotProduct(e0, e1)
	c := rl.Vector3DotProduct(e1, e1)
	det := a*c - b*b
	if det < Epsilon*Epsilon {
		return false
	}
	u := (c*rl.Vector3DotProduct(e0, d) - b*rl.Vector3DotProduct(e1, d)) / det
	v := (a*rl.Vector3DotProduct(e1, d) - b*rl.Vector3DotProduct(e0, d)) / det
	return u >= -tolerance && v >= -tolerance && u+v <= 1+tolerance
}

func safeRatio(num, denom float32) float32 {
	if denom < Epsilon && denom > -Epsilon {
		return 0
	}
	return Clamp(num/denom, 0, 1)
}
