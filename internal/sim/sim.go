// Package sim drives a physics world frame by frame. Everything a frame touches is passed
// in through a Context; there is no global state.
package sim

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"spherephys/internal/physics"
	"spherephys/internal/telemetry"
	"spherephys/internal/terrain"
)

// ForceSource supplies the force applied to the player body each frame.
type ForceSource interface {
	Force(frame uint64) rl.Vector3
}

type ForceFunc func(frame uint64) rl.Vector3

func (f ForceFunc) Force(frame uint64) rl.Vector3 { return f(frame) }

// Constant applies the same force every frame.
type Constant rl.Vector3

func (c Constant) Force(uint64) rl.Vector3 { return rl.Vector3(c) }

// Context is the explicit set of dependencies of a frame.
type Context struct {
	World    *physics.World
	Terrain  *terrain.Arena
	Input    ForceSource
	Observer telemetry.Observer
	Logger   *zap.Logger

	// Player receives the input force. Zero means no player.
	Player physics.BodyID
	// Bodies farther than DespawnDistance from Origin are removed after each step.
	// The player is never removed. Zero disables despawning.
	Origin          rl.Vector3
	DespawnDistance float32

	listener physics.ListenerID
}

// bind forwards contact events to the observer, once.
func (c *Context) bind() {
	if c.listener != 0 || c.Observer == nil {
		return
	}
	obs := c.Observer
	c.listener = c.World.ContactBegan.AddListener(func(ev physics.ContactEvent) {
		obs.ObserveContact(ev)
	})
}

// Close detaches the context from its world's events.
func (c *Context) Close() {
	if c.listener != 0 {
		c.World.ContactBegan.RemoveListener(c.listener)
		c.listener = 0
	}
}

func (c *Context) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// FrameResult describes one frame.
type FrameResult struct {
	Frame   uint64
	Stats   physics.StepStats
	Rebuilt int // terrain colliders rebuilt before the step
	Removed []physics.BodyID
	Elapsed time.Duration
}

// Runner advances a Context at a fixed target rate.
type Runner struct {
	clock clock.Clock
	fps   int
	frame uint64

	// MaxFrames stops Run after this many frames. Zero runs until cancelled.
	MaxFrames uint64
	// OnFrame, if set, is called after every frame Run executes.
	OnFrame func(FrameResult)
}

func NewRunner(c clock.Clock, fps int) *Runner {
	if c == nil {
		c = clock.New()
	}
	if fps <= 0 {
		fps = 60
	}
	return &Runner{clock: c, fps: fps}
}

func (r *Runner) Frames() uint64 {
	return r.frame
}

// Frame runs a single frame: terrain sync, input force, world step, observation and
// despawning.
func (r *Runner) Frame(c *Context, dt float32) FrameResult {
	start := r.clock.Now()
	c.bind()

	res := FrameResult{Frame: r.frame}
	if c.Terrain != nil {
		res.Rebuilt = c.Terrain.Sync()
	}

	if c.Input != nil && c.Player != 0 {
		if b, ok := c.World.Body(c.Player); ok {
			b.ApplyForce(c.Input.Force(r.frame))
		}
	}

	res.Stats = c.World.Step(dt)
	if c.Observer != nil {
		c.Observer.ObserveStep(r.frame, res.Stats)
	}

	if c.DespawnDistance > 0 {
		for _, id := range c.World.BodiesBeyond(c.Origin, c.DespawnDistance) {
			if id == c.Player {
				continue
			}
			c.World.RemoveBody(id)
			res.Removed = append(res.Removed, id)
		}
		if len(res.Removed) > 0 {
			c.logger().Debug("despawned bodies", zap.Int("count", len(res.Removed)), zap.Uint64("frame", r.frame))
		}
	}

	r.frame++
	res.Elapsed = r.clock.Since(start)
	return res
}

// Run steps c on every tick of the runner's clock with the measured time since the
// previous tick as dt. It returns nil after MaxFrames frames or ctx's error once ctx is
// done.
func (r *Runner) Run(ctx context.Context, c *Context) error {
	ticker := r.clock.Ticker(time.Second / time.Duration(r.fps))
	defer ticker.Stop()

	c.logger().Info("simulation started", zap.Int("fps", r.fps), zap.Uint64("maxFrames", r.MaxFrames))
	last := r.clock.Now()
	for {
		select {
		case <-ctx.Done():
			c.logger().Info("simulation stopped", zap.Uint64("frames", r.frame), zap.Error(ctx.Err()))
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			res := r.Frame(c, dt)
			if r.OnFrame != nil {
				r.OnFrame(res)
			}
			if r.MaxFrames > 0 && r.frame >= r.MaxFrames {
				c.logger().Info("simulation finished", zap.Uint64("frames", r.frame))
				return nil
			}
		}
	}
}
