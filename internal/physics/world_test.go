package physics

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"spherephys/internal/collide"
	"spherephys/internal/geom"
)

const dt = float32(1.0 / 60.0)

func noGravity() Config {
	cfg := DefaultConfig()
	cfg.Gravity = rl.Vector3{}
	cfg.Sleep.Enabled = false
	return cfg
}

// thinSlab is a closed 1-unit-thick box mesh whose top face is at y = 0.
func thinSlab(t *testing.T) *collide.MeshCollider {
	t.Helper()
	v, idx := collide.BoxMesh(vec(40, 1, 40))
	m, err := collide.NewMeshCollider(v, idx, rl.MatrixTranslate(0, -0.5, 0))
	require.NoError(t, err)
	return m
}

func TestStepClampsDeltaTime(t *testing.T) {
	w := NewWorld(noGravity())
	b := NewBody(1, 1, vec(0, 0, 0))
	b.Velocity = vec(1, 0, 0)
	w.AddBody(b)

	assert.Equal(t, StepStats{}, w.Step(0))
	assert.Equal(t, StepStats{}, w.Step(-1))
	assert.Equal(t, vec(0, 0, 0), b.Position)

	stats := w.Step(1)
	assert.InDelta(t, 0.033, stats.Dt, 1e-7)
	assert.InDelta(t, 0.033, b.Position.X, 1e-6)
}

func TestEnergyPreservedWithoutLoss(t *testing.T) {
	tests := []struct {
		name     string
		velocity rl.Vector3
	}{
		{"straight down", vec(0, -5, 0)},
		{"oblique", vec(3, -4, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld(noGravity())
			w.AddStatic(planeFloor(t), Material{Restitution: 1, Friction: 0})
			b := NewBody(1, 1, vec(0, 1.3, 0))
			b.Restitution, b.Friction = 1, 0
			b.Velocity = tt.velocity
			w.AddBody(b)

			before := rl.Vector3Length(b.Velocity)
			bounced := false
			for i := 0; i < 60 && !bounced; i++ {
				w.Step(dt)
				bounced = b.Velocity.Y > 0
			}
			require.True(t, bounced)
			after := rl.Vector3Length(b.Velocity)
			assert.InDelta(t, 0, (after-before)/before, 1e-3)
		})
	}
}

func TestRestingContactConverges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sleep.Enabled = false
	w := NewWorld(cfg)
	w.AddStatic(planeFloor(t), Material{Restitution: 0, Friction: 0.5})
	b := NewBody(1, 1, vec(0, 1.5, 0))
	b.Restitution = 0
	w.AddBody(b)

	first := -1
	for i := 0; i < 120 && first < 0; i++ {
		if len(w.Step(dt).Contacts) > 0 {
			first = i
		}
	}
	require.GreaterOrEqual(t, first, 0, "the sphere never reached the floor")

	for i := 0; i < 10; i++ {
		w.Step(dt)
	}
	assert.Less(t, abs(b.Velocity.Y), float32(0.01))
	assert.InDelta(t, 1, b.Position.Y, 0.01)

	// and it stays there
	for i := 0; i < 300; i++ {
		w.Step(dt)
	}
	assert.Less(t, abs(b.Velocity.Y), float32(0.01))
	assert.InDelta(t, 1, b.Position.Y, 0.01)
}

func TestSweptPreventsTunneling(t *testing.T) {
	run := func(t *testing.T, swept bool, speed, startY float32) (*Body, []StepStats) {
		cfg := noGravity()
		cfg.Swept = swept
		w := NewWorld(cfg)
		w.AddStatic(thinSlab(t), Material{Restitution: 0, Friction: 0})
		b := NewBody(1, 1, vec(1, startY, -2))
		b.Restitution, b.Friction = 0, 0
		b.Velocity = vec(0, -speed, 0)
		w.AddBody(b)

		var history []StepStats
		for i := 0; i < 6; i++ {
			s := w.Step(dt)
			s.Contacts = append([]ContactInfo(nil), s.Contacts...)
			history = append(history, s)
		}
		return b, history
	}

	t.Run("swept at 50 units/s never penetrates", func(t *testing.T) {
		b, history := run(t, true, 50, 3)
		swept := 0
		for _, s := range history {
			swept += s.Swept
			for _, c := range s.Contacts {
				assert.True(t, c.Contact.Swept)
				assert.LessOrEqual(t, c.Contact.Penetration, float32(1e-4))
			}
		}
		assert.Equal(t, 1, swept)
		assert.GreaterOrEqual(t, b.Position.Y, float32(1))
		assert.InDelta(t, 1, b.Position.Y, 0.01)
		assert.InDelta(t, 0, b.Velocity.Y, 1e-4)
	})

	// A closed 1-unit slab is only lost once a step carries the centre past its midplane,
	// so at 50 units/s discrete-only shows up as deep penetration and the pass-through
	// case runs at 240 units/s.
	t.Run("discrete-only at 50 units/s detects the floor only after sinking deep", func(t *testing.T) {
		_, history := run(t, false, 50, 3)
		deepest := float32(0)
		for _, s := range history {
			assert.Zero(t, s.Swept)
			for _, c := range s.Contacts {
				deepest = max(deepest, c.Contact.Penetration)
			}
		}
		assert.Greater(t, deepest, float32(0.4))
	})

	t.Run("discrete-only at 240 units/s passes through", func(t *testing.T) {
		b, _ := run(t, false, 240, 2.7)
		assert.Less(t, b.Position.Y, float32(-1), "ended up below the slab")
	})

	t.Run("swept at 240 units/s stops on top", func(t *testing.T) {
		b, history := run(t, true, 240, 2.7)
		assert.Equal(t, 1, history[0].Swept)
		assert.InDelta(t, 1, b.Position.Y, 0.01)
	})
}

func TestSweptThreshold(t *testing.T) {
	w := NewWorld(noGravity())
	w.AddStatic(planeFloor(t), DefaultMaterial)
	b := NewBody(1, 1, vec(0, 1.2, 0))
	b.Velocity = vec(0, -20, 0) // 0.33 per step, below half the radius
	w.AddBody(b)

	for i := 0; i < 3; i++ {
		assert.Zero(t, w.Step(dt).Swept)
	}
}

func TestRollingFromSlide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sleep.Enabled = false
	w := NewWorld(cfg)
	w.AddStatic(planeFloor(t), Material{Restitution: 0, Friction: 0.5})
	b := NewBody(1, 1, vec(0, 1, 0))
	b.Restitution, b.Friction = 0, 0.5
	b.Velocity = vec(5, 0, 0)
	w.AddBody(b)

	for i := 0; i < 120; i++ {
		w.Step(dt)
	}
	assert.InDelta(t, 5*5.0/7.0, b.Velocity.X, 0.05)
	assert.InDelta(t, -b.Velocity.X, b.AngularVelocity.Z, 0.05, "contact point is at rest")
	assert.InDelta(t, 1, b.Position.Y, 0.01)
}

func TestFastRollingAlongFloor(t *testing.T) {
	floors := []struct {
		name  string
		shape func(t *testing.T) collide.Shape
	}{
		{"mesh", func(t *testing.T) collide.Shape { return planeFloor(t) }},
		{"box", func(t *testing.T) collide.Shape { return collide.NewBoxCollider(vec(0, -1, 0), vec(200, 2, 200)) }},
	}
	for _, tt := range floors {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld(DefaultConfig())
			w.AddStatic(tt.shape(t), Material{Restitution: 0, Friction: 0})
			b := NewBody(1, 1, vec(-90, 1, 0))
			b.Restitution, b.Friction = 0, 0
			b.Velocity = vec(40, 0, 0)
			w.AddBody(b)

			for i := 0; i < 60; i++ {
				w.Step(dt)
			}
			assert.InDelta(t, -50, b.Position.X, 0.5)
			assert.InDelta(t, 40, b.Velocity.X, 0.1)
			assert.InDelta(t, 1, b.Position.Y, 0.01)
		})
	}
}

func TestFastRollingIntoWall(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.AddStatic(planeFloor(t), Material{Restitution: 0, Friction: 0})
	w.AddStatic(collide.NewBoxCollider(vec(10, 2, 0), vec(1, 4, 20)), Material{Restitution: 0, Friction: 0})
	b := NewBody(1, 1, vec(0, 1, 0))
	b.Restitution, b.Friction = 0, 0
	b.Velocity = vec(40, 0, 0)
	w.AddBody(b)

	swept := 0
	for i := 0; i < 60; i++ {
		swept += w.Step(dt).Swept
		require.LessOrEqual(t, b.Position.X, float32(8.51), "step %d", i)
	}
	assert.Equal(t, 1, swept)
	assert.InDelta(t, 8.5, b.Position.X, 0.05)
	assert.Less(t, abs(b.Velocity.X), float32(1))
}

func TestBodyPairs(t *testing.T) {
	w := NewWorld(noGravity())
	a := NewBody(1, 1, vec(0, 0, 0))
	b := NewBody(1, 1, vec(1.5, 0, 0))
	post := NewStaticBody(1, vec(10, 0, 0))
	c := NewBody(1, 1, vec(11.5, 0, 0))
	w.AddBody(a)
	w.AddBody(b)
	w.AddBody(post)
	w.AddBody(c)

	stats := w.Step(dt)
	assert.Equal(t, 2, stats.BodyPairs)
	assert.InDelta(t, 2, b.Position.X-a.Position.X, 1e-5)
	assert.InDelta(t, -0.25, a.Position.X, 1e-5)
	assert.Equal(t, vec(10, 0, 0), post.Position, "static body absorbs no correction")
	assert.InDelta(t, 12, c.Position.X, 1e-5)
}

func TestOneDominantStaticContact(t *testing.T) {
	w := NewWorld(noGravity())
	w.AddStatic(planeFloor(t), DefaultMaterial)
	w.AddStatic(collide.NewBoxCollider(vec(0.9, 0.5, 0), vec(1, 1, 1)), DefaultMaterial)
	b := NewBody(1, 1, vec(0, 0.7, 0))
	w.AddBody(b)

	stats := w.Step(dt)
	require.Len(t, stats.Contacts, 1)
	assert.Equal(t, StaticID(2), stats.Contacts[0].Static, "the box overlaps deeper than the floor")
	assert.Equal(t, 2, stats.Candidates)
}

func TestStaticGridRebuildIsLazy(t *testing.T) {
	w := NewWorld(noGravity())
	id := w.AddStatic(planeFloor(t), DefaultMaterial)
	w.AddBody(NewBody(1, 1, vec(0, 5, 0)))

	assert.True(t, w.Step(dt).GridRebuilt)
	assert.False(t, w.Step(dt).GridRebuilt)

	w.InvalidateStatic(id)
	assert.True(t, w.Step(dt).GridRebuilt)

	box := w.AddStatic(collide.NewBoxCollider(vec(0, 50, 0), vec(2, 2, 2)), DefaultMaterial)
	assert.Equal(t, []StaticID{box}, w.QueryStatics(geom.NewAABB(vec(-1, 49, -1), vec(1, 51, 1))))
	assert.False(t, w.Step(dt).GridRebuilt, "QueryStatics already rebuilt the grid")

	require.True(t, w.RemoveStatic(box))
	assert.False(t, w.RemoveStatic(box))
	assert.Empty(t, w.QueryStatics(geom.NewAABB(vec(-1, 49, -1), vec(1, 51, 1))))

	bounds, ok := w.StaticBounds(id)
	require.True(t, ok)
	assert.InDelta(t, -100, bounds.Min.X, 1e-4)
	_, ok = w.StaticBounds(box)
	assert.False(t, ok)
}

func TestContactEvents(t *testing.T) {
	w := NewWorld(DefaultConfig())
	floorID := w.AddStatic(planeFloor(t), Material{Restitution: 0, Friction: 0.5})
	b := NewBody(1, 1, vec(0, 1.2, 0))
	b.Restitution = 0
	b.CanSleep = false
	id := w.AddBody(b)

	var began, ended []ContactEvent
	w.ContactBegan.AddListener(func(e ContactEvent) { began = append(began, e) })
	w.ContactEnded.AddListener(func(e ContactEvent) { ended = append(ended, e) })

	for i := 0; i < 60; i++ {
		w.Step(dt)
	}
	require.Equal(t, []ContactEvent{{Body: id, Static: floorID}}, began)
	assert.Empty(t, ended)

	b.Position = vec(0, 10, 0)
	w.Step(dt)
	assert.Equal(t, []ContactEvent{{Body: id, Static: floorID}}, ended)
	assert.Len(t, began, 1)
}

func TestSleepingBodyKeepsContact(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.AddStatic(planeFloor(t), Material{Restitution: 0, Friction: 0.5})
	b := NewBody(1, 1, vec(0, 1.1, 0))
	b.Restitution = 0
	w.AddBody(b)

	ended := 0
	w.ContactEnded.AddListener(func(ContactEvent) { ended++ })
	for i := 0; i < 240; i++ {
		w.Step(dt)
	}
	require.True(t, b.Sleeping())
	assert.Zero(t, ended)
	y := b.Position.Y
	w.Step(dt)
	assert.Equal(t, y, b.Position.Y)

	b.ApplyImpulse(vec(0, 5, 0), rl.Vector3{})
	assert.False(t, b.Sleeping())
}

func TestRaycast(t *testing.T) {
	w := NewWorld(noGravity())
	floorID := w.AddStatic(planeFloor(t), DefaultMaterial)
	ball := w.AddBody(NewBody(1, 1, vec(5, 1, 0)))

	hit, ok := w.Raycast(vec(5, 10, 0), vec(0, -2, 0), 100)
	require.True(t, ok)
	assert.Equal(t, ball, hit.Body)
	assert.InDelta(t, 8, hit.Distance, 1e-4)
	assertVecNear(t, vec(0, 1, 0), hit.Normal, 1e-5)

	hit, ok = w.Raycast(vec(0.3, 10, 0.7), vec(0, -1, 0), 100)
	require.True(t, ok)
	assert.Equal(t, floorID, hit.Static)
	assert.InDelta(t, 10, hit.Distance, 1e-4)

	_, ok = w.Raycast(vec(0, 10, 0), vec(0, 1, 0), 100)
	assert.False(t, ok)
	_, ok = w.Raycast(vec(0, 10, 0), vec(0, 0, 0), 100)
	assert.False(t, ok)
}

func TestBodiesBeyondAndRemove(t *testing.T) {
	w := NewWorld(noGravity())
	near := w.AddBody(NewBody(1, 1, vec(1, 0, 0)))
	far := w.AddBody(NewBody(1, 1, vec(100, 0, 0)))
	w.AddBody(NewStaticBody(1, vec(-100, 0, 0)))

	assert.Equal(t, []BodyID{far}, w.BodiesBeyond(vec(0, 0, 0), 50))
	require.True(t, w.RemoveBody(far))
	assert.False(t, w.RemoveBody(far))
	assert.Empty(t, w.BodiesBeyond(vec(0, 0, 0), 50))

	b, ok := w.Body(near)
	require.True(t, ok)
	assert.Equal(t, near, w.AddBody(b), "adding twice keeps the id")
	assert.Len(t, w.Bodies(), 2)
}

func TestEmptyMeshWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	w := NewWorld(DefaultConfig(), WithLogger(zap.New(core)))

	empty, err := collide.NewMeshCollider(nil, nil, rl.MatrixIdentity())
	require.NoError(t, err)
	w.AddStatic(empty, DefaultMaterial)
	w.AddStatic(planeFloor(t), DefaultMaterial)

	assert.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "no triangles")
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestWakeBodies(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.AddStatic(planeFloor(t), Material{Restitution: 0, Friction: 0.5})
	near := NewBody(1, 1, vec(0, 1, 0))
	far := NewBody(1, 1, vec(50, 1, 0))
	near.Restitution, far.Restitution = 0, 0
	w.AddBody(near)
	w.AddBody(far)
	for i := 0; i < 240; i++ {
		w.Step(dt)
	}
	require.True(t, near.Sleeping())
	require.True(t, far.Sleeping())

	woke := w.WakeBodies(geom.NewAABB(vec(-5, -1, -5), vec(5, 1, 5)))
	assert.Equal(t, 1, woke)
	assert.False(t, near.Sleeping())
	assert.True(t, far.Sleeping())
}
