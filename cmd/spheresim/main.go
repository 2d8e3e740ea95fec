// Command spheresim runs sphere physics scenes headless and benchmarks the broad phase.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"spherephys/internal/bench"
	"spherephys/internal/config"
	"spherephys/internal/physics"
	"spherephys/internal/scene"
	"spherephys/internal/sim"
	"spherephys/internal/telemetry"
	"spherephys/internal/terrain"
)

const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagScene    = "scene"
	flagFrames   = "frames"
	flagRealtime = "realtime"
	flagDespawn  = "despawn"
	flagCounts   = "counts"
	flagQueries  = "queries"
	flagCrowd    = "crowd"
)

func main() {
	app := &cli.App{
		Name:  "spheresim",
		Usage: "simulate rolling spheres over static terrain",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "simulate a scene and print where every body ends up",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagScene, Usage: "scene `FILE` (built-in demo when empty)"},
					&cli.IntFlag{Name: flagFrames, Value: 600, Usage: "number of frames to simulate"},
					&cli.BoolFlag{Name: flagRealtime, Usage: "pace frames with the wall clock at the target fps"},
					&cli.Float64Flag{Name: flagDespawn, Value: 200, Usage: "remove bodies this far from the origin (0 disables)"},
				},
				Action: runAction,
			},
			{
				Name:  "bench",
				Usage: "compare the grid broad phase with a linear scan and time whole steps",
				Flags: []cli.Flag{
					&cli.IntSliceFlag{Name: flagCounts, Value: cli.NewIntSlice(100, 500, 1000, 5000), Usage: "collider counts"},
					&cli.IntFlag{Name: flagQueries, Value: 2000, Usage: "sphere queries per count"},
					&cli.IntFlag{Name: flagCrowd, Value: 200, Usage: "bodies in the step benchmark"},
					&cli.IntFlag{Name: flagFrames, Value: 300, Usage: "frames in the step benchmark"},
				},
				Action: benchAction,
			},
			{
				Name:  "config",
				Usage: "print the effective configuration as TOML",
				Action: func(c *cli.Context) error {
					cfg, err := config.LoadOrDefault(c.String(flagConfig))
					if err != nil {
						return err
					}
					return cfg.Encode(c.App.Writer)
				},
			},
			{
				Name:  "scene",
				Usage: "print the built-in demo scene as YAML",
				Action: func(c *cli.Context) error {
					return scene.Demo().Encode(c.App.Writer)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "spheresim:", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	cfg, err := config.LoadOrDefault(c.String(flagConfig))
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.Telemetry.ParsedLevel()
	if c.Bool(flagDebug) {
		level = zapcore.DebugLevel
	}
	logger, err := telemetry.NewLogger(level, c.Bool(flagDebug))
	if err != nil {
		return config.Config{}, nil, errors.Wrap(err, "building logger")
	}
	return cfg, logger, nil
}

func loadScene(path string) (*scene.File, error) {
	if path == "" {
		return scene.Demo(), nil
	}
	return scene.Load(path)
}

func runAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	f, err := loadScene(c.String(flagScene))
	if err != nil {
		return err
	}

	world := physics.NewWorld(cfg.World(), physics.WithLogger(logger.Named("physics")))
	arena := terrain.NewArena(world, logger.Named("terrain"))
	loaded, err := f.Apply(world, arena)
	if err != nil {
		return err
	}

	obs := telemetry.NewZapObserver(logger, telemetry.Options{
		StatsInterval: time.Duration(cfg.Telemetry.StatsInterval * float64(time.Second)),
		ContactRate:   cfg.Telemetry.ContactRate,
		ContactBurst:  cfg.Telemetry.ContactBurst,
	})
	sc := &sim.Context{
		World:           world,
		Terrain:         arena,
		Observer:        obs,
		Logger:          logger.Named("sim"),
		Player:          loaded.Player,
		DespawnDistance: float32(c.Float64(flagDespawn)),
	}
	defer sc.Close()

	frames := c.Int(flagFrames)
	if frames <= 0 {
		return errors.Errorf("--%s must be positive", flagFrames)
	}
	runner := sim.NewRunner(clock.New(), cfg.Sim.TargetFPS)
	start := time.Now()
	if c.Bool(flagRealtime) {
		runner.MaxFrames = uint64(frames)
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()
		if err := runner.Run(ctx, sc); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	} else {
		dt := 1 / float32(cfg.Sim.TargetFPS)
		for i := 0; i < frames; i++ {
			runner.Frame(sc, dt)
		}
	}
	logger.Info("run complete",
		zap.String("scene", f.Name),
		zap.Uint64("frames", runner.Frames()),
		zap.Duration("wall", time.Since(start)))

	fmt.Fprintln(c.App.Writer, bodyTable(world, loaded))
	fmt.Fprintln(c.App.Writer, totalsTable(obs.Totals()))
	return nil
}

func bodyTable(w *physics.World, loaded *scene.Loaded) string {
	names := make([]string, 0, len(loaded.Bodies))
	for name := range loaded.Bodies {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Body", "Position", "Velocity", "Spin", "State"})
	for _, name := range names {
		b, ok := w.Body(loaded.Bodies[name])
		if !ok {
			t.AppendRow(table.Row{name, "", "", "", "despawned"})
			continue
		}
		state := "awake"
		switch {
		case b.IsStatic():
			state = "static"
		case b.Sleeping():
			state = "asleep"
		}
		t.AppendRow(table.Row{
			name,
			fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f", b.Position.X, b.Position.Y, b.Position.Z),
			fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f", b.Velocity.X, b.Velocity.Y, b.Velocity.Z),
			fmt.Sprintf("%.2f rad/s", rl.Vector3Length(b.AngularVelocity)),
			state,
		})
	}
	return t.Render()
}

func totalsTable(tot telemetry.Totals) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Steps", "Contacts", "Discrete", "Swept", "Body pairs", "Grid rebuilds", "Contacts began"})
	t.AppendRow(table.Row{tot.Steps, tot.Contacts, tot.Discrete, tot.Swept, tot.BodyPairs, tot.GridRebuilds, tot.ContactBegan})
	return t.Render()
}

func benchAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	var results []bench.BroadPhaseResult
	for _, count := range c.IntSlice(flagCounts) {
		res, err := bench.BroadPhase(count, c.Int(flagQueries), cfg.Physics.StaticCellSize, 42)
		if err != nil {
			return errors.Wrapf(err, "%d colliders", count)
		}
		logger.Debug("broad phase measured", zap.Int("colliders", count), zap.Float64("speedup", res.Speedup()))
		results = append(results, res)
	}
	fmt.Fprintln(c.App.Writer, bench.BroadPhaseTable(results))

	crowd := bench.Crowd(c.Int(flagCrowd), 42)
	dt := 1 / float32(cfg.Sim.TargetFPS)
	steps, err := bench.Steps(crowd, cfg.World(), c.Int(flagFrames), dt)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, bench.StepTable(crowd.Name, steps))

	demo := scene.Demo()
	steps, err = bench.Steps(demo, cfg.World(), c.Int(flagFrames), dt)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, bench.StepTable(demo.Name, steps))
	return nil
}
