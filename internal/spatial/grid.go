// Package spatial provides a uniform hash grid used as the broad phase over
// static colliders and bodies.
package spatial

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"spherephys/internal/geom"
)

// DefaultMaxCellsPerObject bounds how many cells a single object may occupy before it is
// kept on the oversize list instead.
const DefaultMaxCellsPerObject = 512

// CellKey identifies one cell of the grid.
type CellKey struct {
	X, Y, Z int
}

// Entry is an object together with the AABB it occupies.
type Entry[T comparable] struct {
	Value  T
	Bounds geom.AABB
}

// Grid maps cells of a fixed size to the objects whose bounds overlap them. An object
// spanning several cells is listed in each of them. The grid is never patched in place:
// callers mark it dirty and Rebuild it from the full object list.
type Grid[T comparable] struct {
	// MaxCellsPerObject is the cell budget per object; larger objects go to the
	// oversize list that every query returns.
	MaxCellsPerObject int

	cellSize float32
	cells    map[CellKey][]T
	bounds   map[T]geom.AABB
	oversize []T
	dirty    bool

	seen map[T]struct{}
}

// NewGrid creates an empty grid. Non-positive cell sizes fall back to 1.
func NewGrid[T comparable](cellSize float32) *Grid[T] {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid[T]{
		MaxCellsPerObject: DefaultMaxCellsPerObject,
		cellSize:          cellSize,
		cells:             make(map[CellKey][]T),
		bounds:            make(map[T]geom.AABB),
		seen:              make(map[T]struct{}),
	}
}

func (g *Grid[T]) CellSize() float32 {
	return g.cellSize
}

// CellOf returns the cell containing p. Floor division keeps negative coordinates in
// their own cells instead of folding them onto cell zero.
// Coordinates beyond MaxCell cells from the origin, infinities included, clamp to the
// outermost cell; NaN maps to cell zero.
func (g *Grid[T]) CellOf(p rl.Vector3) CellKey {
	return CellKey{
		X: g.cellIndex(p.X),
		Y: g.cellIndex(p.Y),
		Z: g.cellIndex(p.Z),
	}
}

// MaxCell is the largest cell index along any axis.
const MaxCell = 1 << 29

func (g *Grid[T]) cellIndex(v float32) int {
	f := math32.Floor(v / g.cellSize)
	switch {
	case math32.IsNaN(f):
		return 0
	case f >= MaxCell:
		return MaxCell
	case f <= -MaxCell:
		return -MaxCell
	}
	return int(f)
}

// Insert adds obj to every cell its bounds overlap. Inserting the same value twice
// replaces its recorded bounds but leaves the old cells in place; use Rebuild to move.
func (g *Grid[T]) Insert(obj T, bounds geom.AABB) {
	if bounds.IsEmpty() {
		return
	}
	g.bounds[obj] = bounds
	if !geom.Finite(bounds.Min) || !geom.Finite(bounds.Max) {
		g.oversize = append(g.oversize, obj)
		return
	}

	lo, hi := g.CellOf(bounds.Min), g.CellOf(bounds.Max)
	if cellSpan(lo, hi) > g.MaxCellsPerObject {
		g.oversize = append(g.oversize, obj)
		return
	}
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				key := CellKey{x, y, z}
				g.cells[key] = append(g.cells[key], obj)
			}
		}
	}
}

// Clear empties the grid and its dirty flag.
func (g *Grid[T]) Clear() {
	clear(g.cells)
	clear(g.bounds)
	g.oversize = g.oversize[:0]
	g.dirty = false
}

// Rebuild clears the grid and inserts every entry.
func (g *Grid[T]) Rebuild(entries []Entry[T]) {
	g.Clear()
	for _, e := range entries {
		g.Insert(e.Value, e.Bounds)
	}
}

func (g *Grid[T]) MarkDirty() {
	g.dirty = true
}

func (g *Grid[T]) Dirty() bool {
	return g.dirty
}

// Len returns the number of distinct objects in the grid.
func (g *Grid[T]) Len() int {
	return len(g.bounds)
}

// CellCount returns the number of occupied cells.
func (g *Grid[T]) CellCount() int {
	return len(g.cells)
}

// Bounds returns the AABB obj was inserted with.
func (g *Grid[T]) Bounds(obj T) (geom.AABB, bool) {
	b, ok := g.bounds[obj]
	return b, ok
}

// QueryNearby appends to dst every object whose bounds intersect the sphere, each once.
func (g *Grid[T]) QueryNearby(center rl.Vector3, radius float32, dst []T) []T {
	return g.query(geom.SphereBounds(center, radius), func(b geom.AABB) bool {
		return b.IntersectsSphere(center, radius)
	}, dst)
}

// QueryAABB appends to dst every object whose bounds intersect box, each once.
func (g *Grid[T]) QueryAABB(box geom.AABB, dst []T) []T {
	return g.query(box, box.Intersects, dst)
}

func (g *Grid[T]) query(box geom.AABB, accept func(geom.AABB) bool, dst []T) []T {
	if len(g.bounds) == 0 || box.IsEmpty() || hasNaN(box) {
		return dst
	}
	clear(g.seen)

	visit := func(obj T) {
		if _, dup := g.seen[obj]; dup {
			return
		}
		g.seen[obj] = struct{}{}
		if accept(g.bounds[obj]) {
			dst = append(dst, obj)
		}
	}

	lo, hi := g.CellOf(box.Min), g.CellOf(box.Max)
	if cellSpan(lo, hi) > len(g.cells) {
		// the query box covers more cells than are occupied, walk the occupied ones
		for key, objs := range g.cells {
			if key.X < lo.X || key.X > hi.X || key.Y < lo.Y || key.Y > hi.Y || key.Z < lo.Z || key.Z > hi.Z {
				continue
			}
			for _, obj := range objs {
				visit(obj)
			}
		}
	} else {
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for z := lo.Z; z <= hi.Z; z++ {
					for _, obj := range g.cells[CellKey{x, y, z}] {
						visit(obj)
					}
				}
			}
		}
	}
	for _, obj := range g.oversize {
		visit(obj)
	}
	return dst
}

func hasNaN(box geom.AABB) bool {
	for _, v := range [6]float32{box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z} {
		if math32.IsNaN(v) {
			return true
		}
	}
	return false
}

// cellSpan counts cells in the inclusive range, saturating instead of overflowing.
func cellSpan(lo, hi CellKey) int {
	const limit = 1 << 30
	n := 1
	for _, d := range [3]int{hi.X - lo.X + 1, hi.Y - lo.Y + 1, hi.Z - lo.Z + 1} {
		if d <= 0 {
			return 0
		}
		if n > limit/d {
			return limit
		}
		n *= d
	}
	return n
}
