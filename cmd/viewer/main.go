// Command viewer opens a raylib window on a scene. WASD pushes the player sphere relative
// to the camera, the mouse orbits, the wheel zooms, R respawns the player and F1 shows
// collider bounds.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"spherephys/internal/camera"
	"spherephys/internal/collide"
	"spherephys/internal/config"
	"spherephys/internal/physics"
	"spherephys/internal/scene"
	"spherephys/internal/sim"
	"spherephys/internal/telemetry"
	"spherephys/internal/terrain"
)

func main() {
	app := &cli.App{
		Name:  "viewer",
		Usage: "watch and drive a sphere physics scene",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "scene", Usage: "scene `FILE` (built-in demo when empty)"},
			&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
}

// keyboard turns held WASD keys into a force on the player.
type keyboard struct {
	cam   *camera.Follow
	force float32
}

func (k keyboard) Force(uint64) rl.Vector3 {
	dir := k.cam.MoveDirection(
		rl.IsKeyDown(rl.KeyW), rl.IsKeyDown(rl.KeyS),
		rl.IsKeyDown(rl.KeyA), rl.IsKeyDown(rl.KeyD))
	return rl.Vector3Scale(dir, k.force)
}

type viewer struct {
	world   *physics.World
	arena   *terrain.Arena
	loaded  *scene.Loaded
	colors  map[string]string
	cam     *camera.Follow
	spawn   rl.Vector3
	debug   bool
	stats   physics.StepStats
	logger  *zap.Logger
	stepDur time.Duration
}

func run(c *cli.Context) error {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return err
	}
	level := cfg.Telemetry.ParsedLevel()
	if c.Bool("debug") {
		level = zap.DebugLevel
	}
	logger, err := telemetry.NewLogger(level, true)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	f := scene.Demo()
	if path := c.String("scene"); path != "" {
		if f, err = scene.Load(path); err != nil {
			return err
		}
	}

	world := physics.NewWorld(cfg.World(), physics.WithLogger(logger.Named("physics")))
	arena := terrain.NewArena(world, logger.Named("terrain"))
	loaded, err := f.Apply(world, arena)
	if err != nil {
		return err
	}

	v := &viewer{
		world:  world,
		arena:  arena,
		loaded: loaded,
		colors: f.Colors(),
		cam:    camera.NewFollow(),
		logger: logger,
	}
	if b, ok := world.Body(loaded.Player); ok {
		v.spawn = b.Position
	}

	sc := &sim.Context{
		World:    world,
		Terrain:  arena,
		Input:    keyboard{cam: v.cam, force: cfg.Sim.PlayerForce},
		Observer: telemetry.NewZapObserver(logger, telemetry.DefaultOptions()),
		Logger:   logger.Named("sim"),
		Player:   loaded.Player,
	}
	defer sc.Close()
	runner := sim.NewRunner(clock.New(), cfg.Sim.TargetFPS)

	rl.SetConfigFlags(rl.FlagWindowHighdpi | rl.FlagMsaa4xHint)
	rl.InitWindow(1280, 720, "spherephys - "+f.Name)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Sim.TargetFPS))
	rl.DisableCursor()

	for !rl.WindowShouldClose() {
		dt := rl.GetFrameTime()
		res := runner.Frame(sc, dt)
		v.stats = res.Stats
		v.stepDur = res.Elapsed
		v.update(dt)
		v.draw()
	}
	return nil
}

func (v *viewer) update(dt float32) {
	v.cam.Look(rl.GetMouseDelta(), rl.GetMouseWheelMove())

	player, ok := v.world.Body(v.loaded.Player)
	if !ok {
		v.cam.Update(rl.Vector3{}, dt)
		return
	}
	if rl.IsKeyPressed(rl.KeyR) {
		player.Position = v.spawn
		player.Velocity = rl.Vector3{}
		player.AngularVelocity = rl.Vector3{}
		player.Wake()
		v.logger.Info("player respawned")
	}
	if rl.IsKeyPressed(rl.KeyF1) {
		v.debug = !v.debug
	}
	v.cam.Update(player.Position, dt)
}

func (v *viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.RayWhite)

	rl.BeginMode3D(v.cam.Camera3D())
	v.drawTerrain()
	v.drawBoxes()
	v.drawBodies()
	rl.EndMode3D()

	rl.DrawFPS(10, 10)
	rl.DrawText(fmt.Sprintf("bodies %d  awake %d  contacts %d  swept %d  step %s",
		v.stats.Bodies, v.stats.Awake, len(v.stats.Contacts), v.stats.Swept, v.stepDur.Round(time.Microsecond)),
		10, 34, 20, rl.DarkGray)
	rl.DrawText("WASD push  mouse orbit  wheel zoom  R respawn  F1 bounds", 10, 58, 18, rl.Gray)
	rl.EndDrawing()
}

func (v *viewer) drawTerrain() {
	for name, id := range v.loaded.Segments {
		seg, err := v.arena.Get(id)
		if err != nil || seg.Collider == nil {
			continue
		}
		color := lookupColor(v.colors[name], rl.LightGray)
		tree := seg.Collider.BVH()
		for _, tri := range tree.Triangles() {
			// both windings so the surface shows from either side
			rl.DrawTriangle3D(tri.V0, tri.V1, tri.V2, color)
			rl.DrawTriangle3D(tri.V0, tri.V2, tri.V1, color)
			rl.DrawLine3D(tri.V0, tri.V1, rl.Fade(rl.Black, 0.2))
			rl.DrawLine3D(tri.V1, tri.V2, rl.Fade(rl.Black, 0.2))
			rl.DrawLine3D(tri.V2, tri.V0, rl.Fade(rl.Black, 0.2))
		}
		if v.debug {
			b := tree.Bounds()
			rl.DrawBoundingBox(rl.BoundingBox{Min: b.Min, Max: b.Max}, rl.Green)
		}
	}
}

func (v *viewer) drawBoxes() {
	for name, id := range v.loaded.Boxes {
		shape, _, ok := v.world.Static(id)
		if !ok {
			continue
		}
		box, ok := shape.(*collide.BoxCollider)
		if !ok {
			continue
		}
		color := lookupColor(v.colors[name], rl.Gray)
		rl.DrawCubeV(box.Center, box.Size, color)
		rl.DrawCubeWiresV(box.Center, box.Size, rl.DarkGray)
	}
}

func (v *viewer) drawBodies() {
	for name, id := range v.loaded.Bodies {
		b, ok := v.world.Body(id)
		if !ok {
			continue
		}
		color := lookupColor(v.colors[name], rl.SkyBlue)
		if b.Sleeping() {
			color = rl.Fade(color, 0.5)
		}
		rl.DrawSphere(b.Position, b.Radius(), color)

		// spin marker
		tip := rl.Vector3RotateByQuaternion(rl.Vector3{X: b.Radius()}, b.Orientation)
		rl.DrawLine3D(b.Position, rl.Vector3Add(b.Position, rl.Vector3Scale(tip, 1.2)), rl.Black)

		if v.debug {
			r := b.Radius()
			half := rl.Vector3{X: r, Y: r, Z: r}
			rl.DrawBoundingBox(rl.BoundingBox{
				Min: rl.Vector3Subtract(b.Position, half),
				Max: rl.Vector3Add(b.Position, half),
			}, rl.Red)
		}
	}
}
