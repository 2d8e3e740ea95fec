// Package physics simulates rigid spheres against static colliders and each other.
//
// A World is driven from a single goroutine. Each Step integrates bodies, resolves
// sphere pairs found through a body hash grid, then resolves one dominant contact per
// body against the static colliders found through a second, lazily rebuilt grid.
package physics

import (
	"slices"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"spherephys/internal/collide"
	"spherephys/internal/geom"
	"spherephys/internal/spatial"
)

// StaticID identifies a static collider added to a World. Zero is never assigned.
type StaticID uint32

// ContactInfo is one resolved contact of the last step. Exactly one of Other and
// Static is set.
type ContactInfo struct {
	Body    BodyID
	Other   BodyID
	Static  StaticID
	Contact collide.Contact
	Impulse Impulse
}

// ContactEvent names the two sides of a contact that began or ended.
type ContactEvent struct {
	Body   BodyID
	Other  BodyID
	Static StaticID
}

// StepStats summarises one call to Step.
type StepStats struct {
	Dt          float32
	Bodies      int
	Awake       int
	Candidates  int // static colliders returned by the broad phase
	Discrete    int
	Swept       int
	BodyPairs   int
	GridRebuilt bool
	Contacts    []ContactInfo
}

type staticEntry struct {
	shape    collide.Shape
	material Material
}

// RayHit is the nearest hit of World.Raycast. Exactly one of Body and Static is set.
type RayHit struct {
	Body   BodyID
	Static StaticID
	collide.RayHit
}

type World struct {
	cfg    Config
	logger *zap.Logger

	bodies     []*Body // ordered by id
	bodyByID   map[BodyID]*Body
	nextBodyID BodyID

	statics      map[StaticID]*staticEntry
	staticIDs    []StaticID // ordered
	nextStaticID StaticID

	staticGrid *spatial.Grid[StaticID]
	bodyGrid   *spatial.Grid[BodyID]

	active  map[ContactEvent]struct{}
	current map[ContactEvent]struct{}

	// ContactBegan fires after a step for every pair that started touching.
	ContactBegan Event[ContactEvent]
	// ContactEnded fires after a step for every pair that stopped touching.
	ContactEnded Event[ContactEvent]

	stats        StepStats
	staticBuf    []StaticID
	bodyBuf      []BodyID
	entryBuf     []spatial.Entry[StaticID]
	bodyEntryBuf []spatial.Entry[BodyID]
}

type Option func(*World)

// WithLogger sets the logger used for setup warnings. Step never logs.
func WithLogger(logger *zap.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

func NewWorld(cfg Config, opts ...Option) *World {
	w := &World{
		cfg:        cfg,
		logger:     zap.NewNop(),
		bodyByID:   make(map[BodyID]*Body),
		statics:    make(map[StaticID]*staticEntry),
		staticGrid: spatial.NewGrid[StaticID](cfg.StaticCellSize),
		bodyGrid:   spatial.NewGrid[BodyID](cfg.BodyCellSize),
		active:     make(map[ContactEvent]struct{}),
		current:    make(map[ContactEvent]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) Config() Config {
	return w.cfg
}

// AddBody registers b and returns its id. Adding a body twice returns its existing id.
func (w *World) AddBody(b *Body) BodyID {
	if b.id != 0 {
		if _, ok := w.bodyByID[b.id]; ok {
			return b.id
		}
	}
	w.nextBodyID++
	b.id = w.nextBodyID
	b.prevPosition = b.Position
	w.bodies = append(w.bodies, b)
	w.bodyByID[b.id] = b
	return b.id
}

// RemoveBody drops a body; contacts it was part of end on the next step.
func (w *World) RemoveBody(id BodyID) bool {
	if _, ok := w.bodyByID[id]; !ok {
		return false
	}
	delete(w.bodyByID, id)
	w.bodies = slices.DeleteFunc(w.bodies, func(b *Body) bool { return b.id == id })
	return true
}

func (w *World) Body(id BodyID) (*Body, bool) {
	b, ok := w.bodyByID[id]
	return b, ok
}

// Bodies returns the bodies in id order. The slice must not be modified.
func (w *World) Bodies() []*Body {
	return w.bodies
}

// BodiesBeyond returns the dynamic bodies farther than distance from point, for
// callers that cull bodies which wandered off.
func (w *World) BodiesBeyond(point rl.Vector3, distance float32) []BodyID {
	var out []BodyID
	for _, b := range w.bodies {
		if b.IsStatic() {
			continue
		}
		if rl.Vector3Distance(b.Position, point) > distance {
			out = append(out, b.id)
		}
	}
	return out
}

// AddStatic registers a static collider. Empty meshes are accepted but never collide.
func (w *World) AddStatic(shape collide.Shape, material Material) StaticID {
	if e, ok := shape.(interface{ Empty() bool }); ok && e.Empty() {
		w.logger.Warn("static collider has no triangles and will never collide")
	}
	w.nextStaticID++
	id := w.nextStaticID
	w.statics[id] = &staticEntry{shape: shape, material: material}
	w.staticIDs = append(w.staticIDs, id)
	w.staticGrid.MarkDirty()
	return id
}

func (w *World) RemoveStatic(id StaticID) bool {
	if _, ok := w.statics[id]; !ok {
		return false
	}
	delete(w.statics, id)
	w.staticIDs = slices.DeleteFunc(w.staticIDs, func(s StaticID) bool { return s == id })
	w.staticGrid.MarkDirty()
	return true
}

// InvalidateStatic tells the world a collider's bounds changed, e.g. after a mesh
// collider was rebuilt. The grid is rebuilt at the start of the next step.
func (w *World) InvalidateStatic(id StaticID) {
	if _, ok := w.statics[id]; ok {
		w.staticGrid.MarkDirty()
	}
}

func (w *World) Static(id StaticID) (collide.Shape, Material, bool) {
	e, ok := w.statics[id]
	if !ok {
		return nil, Material{}, false
	}
	return e.shape, e.material, true
}

// WakeBodies wakes every sleeping body whose bounds intersect box and returns how many woke.
func (w *World) WakeBodies(box geom.AABB) int {
	woke := 0
	for _, b := range w.bodies {
		if b.sleeping && geom.SphereBounds(b.Position, b.radius).Intersects(box) {
			b.Wake()
			woke++
		}
	}
	return woke
}

func (w *World) StaticCount() int {
	return len(w.statics)
}

// StaticBounds returns the world-space bounds of a static collider.
func (w *World) StaticBounds(id StaticID) (geom.AABB, bool) {
	e, ok := w.statics[id]
	if !ok {
		return geom.AABB{}, false
	}
	return e.shape.Bounds(), true
}

// QueryStatics returns the static colliders whose bounds intersect box.
func (w *World) QueryStatics(box geom.AABB) []StaticID {
	w.syncStaticGrid()
	ids := w.staticGrid.QueryAABB(box, nil)
	slices.Sort(ids)
	return ids
}

// syncStaticGrid rebuilds the static broad phase if it is dirty and reports whether it did.
func (w *World) syncStaticGrid() bool {
	if !w.staticGrid.Dirty() {
		return false
	}
	w.entryBuf = w.entryBuf[:0]
	for _, id := range w.staticIDs {
		w.entryBuf = append(w.entryBuf, spatial.Entry[StaticID]{Value: id, Bounds: w.statics[id].shape.Bounds()})
	}
	w.staticGrid.Rebuild(w.entryBuf)
	return true
}

// Step advances the simulation by dt seconds, clamped to MaxDeltaTime. A non-positive
// dt does nothing. The returned Contacts slice is reused by the next Step.
func (w *World) Step(dt float32) StepStats {
	if dt <= 0 {
		return StepStats{}
	}
	if w.cfg.MaxDeltaTime > 0 && dt > w.cfg.MaxDeltaTime {
		dt = w.cfg.MaxDeltaTime
	}

	w.stats = StepStats{Dt: dt, Bodies: len(w.bodies), Contacts: w.stats.Contacts[:0]}
	clear(w.current)

	// 1. integrate
	for _, b := range w.bodies {
		if b.UseGravity && !b.sleeping && !b.IsStatic() {
			b.accel = rl.Vector3Add(b.accel, w.cfg.Gravity)
		}
		b.Integrate(dt)
	}

	// 2. sphere vs sphere
	w.resolveBodyPairs()

	// 3. sphere vs static colliders
	w.stats.GridRebuilt = w.syncStaticGrid()
	for _, b := range w.bodies {
		if b.IsStatic() || b.sleeping {
			continue
		}
		w.stats.Awake++
		w.resolveStatics(b)
	}

	// 4. sleep
	for _, b := range w.bodies {
		b.trySleep(dt, w.cfg.Sleep)
	}

	w.dispatchContactEvents()
	return w.stats
}

func (w *World) resolveBodyPairs() {
	w.bodyEntryBuf = w.bodyEntryBuf[:0]
	for _, b := range w.bodies {
		w.bodyEntryBuf = append(w.bodyEntryBuf, spatial.Entry[BodyID]{Value: b.id, Bounds: geom.SphereBounds(b.Position, b.radius)})
	}
	w.bodyGrid.Rebuild(w.bodyEntryBuf)

	for _, a := range w.bodies {
		w.bodyBuf = w.bodyGrid.QueryAABB(geom.SphereBounds(a.Position, a.radius), w.bodyBuf[:0])
		slices.Sort(w.bodyBuf)
		for _, id := range w.bodyBuf {
			if id <= a.id {
				continue
			}
			b := w.bodyByID[id]
			if (a.IsStatic() || a.sleeping) && (b.IsStatic() || b.sleeping) {
				continue
			}
			c, hit := collide.SphereSphere(a.Position, a.radius, b.Position, b.radius)
			if !hit {
				continue
			}
			w.stats.BodyPairs++
			w.wakePair(a, b)
			imp := Resolve(a, b, Material{}, c, w.cfg.Solver)
			w.record(ContactInfo{Body: a.id, Other: b.id, Contact: c, Impulse: imp})
		}
	}
}

// wakePair wakes a sleeping body hit hard enough by the other one.
func (w *World) wakePair(a, b *Body) {
	if !a.sleeping && !b.sleeping {
		return
	}
	rel := rl.Vector3Length(rl.Vector3Subtract(a.Velocity, b.Velocity))
	if rel <= 2*w.cfg.Sleep.LinearThreshold {
		return
	}
	if a.sleeping {
		a.Wake()
	}
	if b.sleeping {
		b.Wake()
	}
}

// resolveStatics finds the single dominant static contact of b and resolves it: the
// earliest impact for a fast mover, the deepest penetration otherwise.
func (w *World) resolveStatics(b *Body) {
	start, end := b.prevPosition, b.Position
	disp := rl.Vector3Subtract(end, start)
	dist := rl.Vector3Length(disp)

	if w.cfg.Swept && dist > w.cfg.SweptThreshold*b.radius {
		mid := rl.Vector3Lerp(start, end, 0.5)
		w.staticBuf = w.staticGrid.QueryNearby(mid, dist/2+b.radius, w.staticBuf[:0])
		slices.Sort(w.staticBuf)
		w.stats.Candidates += len(w.staticBuf)

		var best collide.Contact
		var bestID StaticID
		for _, id := range w.staticBuf {
			c, hit := w.statics[id].shape.Swept(start, end, b.radius)
			if !hit {
				continue
			}
			// a surface the step approaches by less than the threshold is left to the
			// discrete test at the end position, so rolling along a floor is not clamped
			if -rl.Vector3DotProduct(disp, c.Normal) <= w.cfg.SweptThreshold*b.radius {
				continue
			}
			if bestID == 0 || c.Time < best.Time || (c.Time == best.Time && c.Penetration > best.Penetration) {
				best, bestID = c, id
			}
		}
		if bestID != 0 {
			w.stats.Swept++
			travel := math32.Max(0, best.Time*dist-w.cfg.SafetyMargin)
			b.Position = rl.Vector3Add(start, rl.Vector3Scale(disp, travel/dist))
			w.resolveStatic(b, bestID, best)
			return
		}
	}

	w.staticBuf = w.staticGrid.QueryNearby(b.Position, b.radius, w.staticBuf[:0])
	slices.Sort(w.staticBuf)
	w.stats.Candidates += len(w.staticBuf)

	var best collide.Contact
	var bestID StaticID
	for _, id := range w.staticBuf {
		c, hit := w.statics[id].shape.Discrete(b.Position, b.radius)
		if hit && (bestID == 0 || c.Penetration > best.Penetration) {
			best, bestID = c, id
		}
	}
	if bestID != 0 {
		w.stats.Discrete++
		w.resolveStatic(b, bestID, best)
	}
}

func (w *World) resolveStatic(b *Body, id StaticID, c collide.Contact) {
	imp := Resolve(b, nil, w.statics[id].material, c, w.cfg.Solver)
	w.record(ContactInfo{Body: b.id, Static: id, Contact: c, Impulse: imp})
}

func (w *World) record(info ContactInfo) {
	w.stats.Contacts = append(w.stats.Contacts, info)
	w.current[ContactEvent{Body: info.Body, Other: info.Other, Static: info.Static}] = struct{}{}
}

// dispatchContactEvents compares this step's contact pairs with the last step's.
// Pairs involving a body that slept through the step stay active.
func (w *World) dispatchContactEvents() {
	var began, ended []ContactEvent
	for pair := range w.current {
		if _, ok := w.active[pair]; !ok {
			began = append(began, pair)
		}
	}
	for pair := range w.active {
		if _, ok := w.current[pair]; ok {
			continue
		}
		if w.pairAsleep(pair) {
			w.current[pair] = struct{}{}
			continue
		}
		ended = append(ended, pair)
	}
	slices.SortFunc(began, compareEvents)
	slices.SortFunc(ended, compareEvents)

	w.active, w.current = w.current, w.active
	for _, e := range began {
		w.ContactBegan.Invoke(e)
	}
	for _, e := range ended {
		w.ContactEnded.Invoke(e)
	}
}

func (w *World) pairAsleep(pair ContactEvent) bool {
	a, ok := w.bodyByID[pair.Body]
	if !ok || !a.sleeping {
		return false
	}
	if pair.Static != 0 {
		_, ok := w.statics[pair.Static]
		return ok
	}
	b, ok := w.bodyByID[pair.Other]
	return ok && (b.sleeping || b.IsStatic())
}

func compareEvents(a, b ContactEvent) int {
	switch {
	case a.Body != b.Body:
		return int(a.Body) - int(b.Body)
	case a.Other != b.Other:
		return int(a.Other) - int(b.Other)
	default:
		return int(a.Static) - int(b.Static)
	}
}

// Raycast returns the nearest static collider or body hit by a ray.
func (w *World) Raycast(origin, dir rl.Vector3, maxDistance float32) (RayHit, bool) {
	dir = geom.Normalize(dir, rl.Vector3{})
	if dir == (rl.Vector3{}) {
		return RayHit{}, false
	}

	best := RayHit{}
	best.Distance = maxDistance
	found := false
	for _, id := range w.staticIDs {
		shape := w.statics[id].shape
		if _, ok := shape.Bounds().RayIntersect(origin, dir, best.Distance); !ok {
			continue
		}
		if hit, ok := shape.Raycast(origin, dir, best.Distance); ok && hit.Distance <= best.Distance {
			best = RayHit{Static: id, RayHit: hit}
			found = true
		}
	}
	for _, b := range w.bodies {
		d, ok := collide.RaySphere(origin, dir, b.Position, b.radius, best.Distance)
		if !ok || d > best.Distance {
			continue
		}
		point := rl.Vector3Add(origin, rl.Vector3Scale(dir, d))
		best = RayHit{Body: b.id, RayHit: collide.RayHit{
			Point:    point,
			Normal:   geom.Normalize(rl.Vector3Subtract(point, b.Position), rl.Vector3Negate(dir)),
			Distance: d,
			Triangle: -1,
		}}
		found = true
	}
	return best, found
}
