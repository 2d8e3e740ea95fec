// Package terrain keeps the static terrain hierarchy in an arena. Segments are addressed
// by stable ids and link to their parent and children by id, so there are no pointer
// cycles and removing a segment can never leave a dangling reference.
package terrain

import (
	"slices"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"spherephys/internal/collide"
	"spherephys/internal/physics"
)

var (
	ErrUnknownSegment = errors.New("unknown terrain segment")
	ErrCycle          = errors.New("terrain segment cannot become its own descendant")
)

// SegmentID identifies a segment. Zero is the root and never names a segment; ids are
// never reused after removal.
type SegmentID uint32

// Segment is a read-only view of one arena entry.
type Segment struct {
	ID       SegmentID
	Name     string
	Parent   SegmentID
	Children []SegmentID
	Local    Transform
	Collider *collide.MeshCollider
	Static   physics.StaticID
}

type segment struct {
	name     string
	parent   SegmentID
	children []SegmentID
	local    Transform
	collider *collide.MeshCollider
	static   physics.StaticID
}

// Arena owns terrain segments and the static colliders they register in a World.
type Arena struct {
	world    *physics.World
	logger   *zap.Logger
	segments []*segment // id-1 -> segment, nil once removed
	roots    []SegmentID
}

// NewArena creates an arena that registers segment colliders in world.
func NewArena(world *physics.World, logger *zap.Logger) *Arena {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arena{world: world, logger: logger}
}

func (a *Arena) get(id SegmentID) (*segment, error) {
	if id == 0 || int(id) > len(a.segments) || a.segments[id-1] == nil {
		return nil, errors.Wrapf(ErrUnknownSegment, "segment %d", id)
	}
	return a.segments[id-1], nil
}

// Add creates a segment under parent (0 for the root). A non-nil collider is placed at
// the segment's world transform, rebuilt and registered as a static collider.
func (a *Arena) Add(name string, parent SegmentID, local Transform, collider *collide.MeshCollider, material physics.Material) (SegmentID, error) {
	if parent != 0 {
		if _, err := a.get(parent); err != nil {
			return 0, errors.Wrapf(err, "adding %q", name)
		}
	}

	s := &segment{name: name, parent: parent, local: local, collider: collider}
	a.segments = append(a.segments, s)
	id := SegmentID(len(a.segments))
	a.link(id, parent)

	if collider != nil {
		collider.SetTransform(a.worldMatrix(id))
		collider.Rebuild()
		s.static = a.world.AddStatic(collider, material)
	}
	a.logger.Debug("terrain segment added",
		zap.Uint32("id", uint32(id)),
		zap.String("name", name),
		zap.Uint32("parent", uint32(parent)))
	return id, nil
}

func (a *Arena) link(id, parent SegmentID) {
	if parent == 0 {
		a.roots = append(a.roots, id)
		return
	}
	p := a.segments[parent-1]
	p.children = append(p.children, id)
}

func (a *Arena) unlink(id, parent SegmentID) {
	drop := func(ids []SegmentID) []SegmentID {
		return slices.DeleteFunc(ids, func(c SegmentID) bool { return c == id })
	}
	if parent == 0 {
		a.roots = drop(a.roots)
		return
	}
	p := a.segments[parent-1]
	p.children = drop(p.children)
}

// Get returns a snapshot of a segment.
func (a *Arena) Get(id SegmentID) (Segment, error) {
	s, err := a.get(id)
	if err != nil {
		return Segment{}, err
	}
	return Segment{
		ID:       id,
		Name:     s.name,
		Parent:   s.parent,
		Children: slices.Clone(s.children),
		Local:    s.local,
		Collider: s.collider,
		Static:   s.static,
	}, nil
}

// Find returns the first live segment with the given name.
func (a *Arena) Find(name string) (SegmentID, bool) {
	for i, s := range a.segments {
		if s != nil && s.name == name {
			return SegmentID(i + 1), true
		}
	}
	return 0, false
}

// IDs returns every live segment id in creation order.
func (a *Arena) IDs() []SegmentID {
	ids := make([]SegmentID, 0, len(a.segments))
	for i, s := range a.segments {
		if s != nil {
			ids = append(ids, SegmentID(i+1))
		}
	}
	return ids
}

func (a *Arena) Roots() []SegmentID {
	return slices.Clone(a.roots)
}

func (a *Arena) Len() int {
	return lo.CountBy(a.segments, func(s *segment) bool { return s != nil })
}

// WorldMatrix composes the segment's local transform with all of its ancestors.
func (a *Arena) WorldMatrix(id SegmentID) (rl.Matrix, error) {
	if _, err := a.get(id); err != nil {
		return rl.Matrix{}, err
	}
	return a.worldMatrix(id), nil
}

func (a *Arena) worldMatrix(id SegmentID) rl.Matrix {
	m := rl.MatrixIdentity()
	for id != 0 {
		s := a.segments[id-1]
		m = rl.MatrixMultiply(m, s.local.Matrix())
		id = s.parent
	}
	return m
}

// SetTransform changes a segment's local transform. The colliders of the segment and
// its descendants are marked stale; they keep colliding at the old place until Sync.
func (a *Arena) SetTransform(id SegmentID, local Transform) error {
	s, err := a.get(id)
	if err != nil {
		return err
	}
	s.local = local
	a.retransform(id)
	return nil
}

// Reparent moves a segment and its subtree under parent (0 for the root).
func (a *Arena) Reparent(id, parent SegmentID) error {
	s, err := a.get(id)
	if err != nil {
		return err
	}
	if parent != 0 {
		if _, err := a.get(parent); err != nil {
			return errors.Wrap(err, "new parent")
		}
		if lo.Contains(a.subtree(id), parent) {
			return errors.Wrapf(ErrCycle, "segment %d under %d", id, parent)
		}
	}
	if s.parent == parent {
		return nil
	}
	a.unlink(id, s.parent)
	s.parent = parent
	a.link(id, parent)
	a.retransform(id)
	return nil
}

// Remove deletes a segment with its whole subtree and unregisters their colliders.
func (a *Arena) Remove(id SegmentID) error {
	s, err := a.get(id)
	if err != nil {
		return err
	}
	a.unlink(id, s.parent)
	for _, sub := range a.subtree(id) {
		seg := a.segments[sub-1]
		if seg.static != 0 {
			a.world.RemoveStatic(seg.static)
		}
		a.segments[sub-1] = nil
	}
	return nil
}

// Sync rebuilds every stale collider, tells the world its bounds changed and wakes the
// bodies around its old and new place. It returns the number of colliders rebuilt.
func (a *Arena) Sync() int {
	rebuilt := 0
	for _, s := range a.segments {
		if s == nil || s.collider == nil || !s.collider.Stale() {
			continue
		}
		before := s.collider.Bounds()
		s.collider.Rebuild()
		a.world.InvalidateStatic(s.static)
		a.world.WakeBodies(before.Union(s.collider.Bounds()))
		rebuilt++
	}
	if rebuilt > 0 {
		a.logger.Debug("terrain colliders rebuilt", zap.Int("count", rebuilt))
	}
	return rebuilt
}

// subtree lists id and all of its descendants, parents before children.
func (a *Arena) subtree(id SegmentID) []SegmentID {
	out := []SegmentID{id}
	for i := 0; i < len(out); i++ {
		out = append(out, a.segments[out[i]-1].children...)
	}
	return out
}

func (a *Arena) retransform(id SegmentID) {
	for _, sub := range a.subtree(id) {
		if c := a.segments[sub-1].collider; c != nil {
			c.SetTransform(a.worldMatrix(sub))
		}
	}
}
