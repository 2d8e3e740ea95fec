// Package config loads simulation settings from a TOML file.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"spherephys/internal/physics"
)

type Config struct {
	Physics   Physics   `toml:"physics"`
	Solver    Solver    `toml:"solver"`
	Telemetry Telemetry `toml:"telemetry"`
	Sim       Sim       `toml:"sim"`
}

type Physics struct {
	Gravity        [3]float32 `toml:"gravity"`
	MaxDeltaTime   float32    `toml:"max_delta_time"`
	Swept          bool       `toml:"swept"`
	SweptThreshold float32    `toml:"swept_threshold"`
	SafetyMargin   float32    `toml:"safety_margin"`
	StaticCellSize float32    `toml:"static_cell_size"`
	BodyCellSize   float32    `toml:"body_cell_size"`
	Sleep          Sleep      `toml:"sleep"`
}

type Sleep struct {
	Enabled          bool    `toml:"enabled"`
	LinearThreshold  float32 `toml:"linear_threshold"`
	AngularThreshold float32 `toml:"angular_threshold"`
	Time             float32 `toml:"time"`
}

type Solver struct {
	PositionCorrection   float32 `toml:"position_correction"`
	ShallowPenetration   float32 `toml:"shallow_penetration"`
	ApproachEpsilon      float32 `toml:"approach_epsilon"`
	RestingVelocity      float32 `toml:"resting_velocity"`
	RestingNormalDamping float32 `toml:"resting_normal_damping"`
}

type Telemetry struct {
	Level string `toml:"level"`
	// StatsInterval is the minimum number of seconds between step summaries.
	StatsInterval float64 `toml:"stats_interval"`
	// ContactRate and ContactBurst size the token bucket for contact logs.
	ContactRate  float64 `toml:"contact_rate"`
	ContactBurst int     `toml:"contact_burst"`
}

type Sim struct {
	TargetFPS int `toml:"target_fps"`
	// PlayerForce is the force applied per input axis to the player body.
	PlayerForce float32 `toml:"player_force"`
}

// Default mirrors physics.DefaultConfig.
func Default() Config {
	p := physics.DefaultConfig()
	return Config{
		Physics: Physics{
			Gravity:        [3]float32{p.Gravity.X, p.Gravity.Y, p.Gravity.Z},
			MaxDeltaTime:   p.MaxDeltaTime,
			Swept:          p.Swept,
			SweptThreshold: p.SweptThreshold,
			SafetyMargin:   p.SafetyMargin,
			StaticCellSize: p.StaticCellSize,
			BodyCellSize:   p.BodyCellSize,
			Sleep: Sleep{
				Enabled:          p.Sleep.Enabled,
				LinearThreshold:  p.Sleep.LinearThreshold,
				AngularThreshold: p.Sleep.AngularThreshold,
				Time:             p.Sleep.Time,
			},
		},
		Solver: Solver{
			PositionCorrection:   p.Solver.PositionCorrection,
			ShallowPenetration:   p.Solver.ShallowPenetration,
			ApproachEpsilon:      p.Solver.ApproachEpsilon,
			RestingVelocity:      p.Solver.RestingVelocity,
			RestingNormalDamping: p.Solver.RestingNormalDamping,
		},
		Telemetry: Telemetry{
			Level:         "info",
			StatsInterval: 1,
			ContactRate:   20,
			ContactBurst:  10,
		},
		Sim: Sim{
			TargetFPS:   60,
			PlayerForce: 15,
		},
	}
}

// Decode reads TOML from r on top of Default. Unknown keys are errors.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, errors.Errorf("unknown config keys:\n%s", strict.String())
		}
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and validates the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading config")
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	return errors.Wrap(toml.NewEncoder(w).Encode(c), "encoding config")
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = multierr.Append(errs, errors.Errorf(format, args...))
		}
	}
	p := c.Physics
	for i, g := range p.Gravity {
		check(!math32.IsNaN(g) && !math32.IsInf(g, 0), "physics.gravity[%d] must be finite", i)
	}
	check(p.MaxDeltaTime > 0, "physics.max_delta_time must be positive, got %v", p.MaxDeltaTime)
	check(p.SweptThreshold >= 0, "physics.swept_threshold must not be negative, got %v", p.SweptThreshold)
	check(p.SafetyMargin >= 0, "physics.safety_margin must not be negative, got %v", p.SafetyMargin)
	check(p.StaticCellSize > 0, "physics.static_cell_size must be positive, got %v", p.StaticCellSize)
	check(p.BodyCellSize > 0, "physics.body_cell_size must be positive, got %v", p.BodyCellSize)
	check(p.Sleep.LinearThreshold >= 0, "physics.sleep.linear_threshold must not be negative")
	check(p.Sleep.AngularThreshold >= 0, "physics.sleep.angular_threshold must not be negative")
	check(p.Sleep.Time >= 0, "physics.sleep.time must not be negative")

	s := c.Solver
	check(s.PositionCorrection > 0 && s.PositionCorrection <= 1,
		"solver.position_correction must be in (0, 1], got %v", s.PositionCorrection)
	check(s.ShallowPenetration >= 0, "solver.shallow_penetration must not be negative")
	check(s.ApproachEpsilon >= 0, "solver.approach_epsilon must not be negative")
	check(s.RestingVelocity >= 0, "solver.resting_velocity must not be negative")
	check(s.RestingNormalDamping >= 0 && s.RestingNormalDamping <= 1,
		"solver.resting_normal_damping must be in [0, 1], got %v", s.RestingNormalDamping)

	t := c.Telemetry
	if _, err := zapcore.ParseLevel(t.Level); err != nil {
		errs = multierr.Append(errs, errors.Wrap(err, "telemetry.level"))
	}
	check(t.StatsInterval >= 0, "telemetry.stats_interval must not be negative")
	check(t.ContactRate >= 0, "telemetry.contact_rate must not be negative")
	check(t.ContactBurst >= 0, "telemetry.contact_burst must not be negative")

	check(c.Sim.TargetFPS > 0, "sim.target_fps must be positive, got %d", c.Sim.TargetFPS)
	check(c.Sim.PlayerForce >= 0, "sim.player_force must not be negative")
	return errs
}

// World converts the physics and solver sections into a physics.Config.
func (c Config) World() physics.Config {
	p := c.Physics
	return physics.Config{
		Gravity:        rl.Vector3{X: p.Gravity[0], Y: p.Gravity[1], Z: p.Gravity[2]},
		MaxDeltaTime:   p.MaxDeltaTime,
		Swept:          p.Swept,
		SweptThreshold: p.SweptThreshold,
		SafetyMargin:   p.SafetyMargin,
		StaticCellSize: p.StaticCellSize,
		BodyCellSize:   p.BodyCellSize,
		Solver: physics.SolverConfig{
			PositionCorrection:   c.Solver.PositionCorrection,
			ShallowPenetration:   c.Solver.ShallowPenetration,
			ApproachEpsilon:      c.Solver.ApproachEpsilon,
			RestingVelocity:      c.Solver.RestingVelocity,
			RestingNormalDamping: c.Solver.RestingNormalDamping,
		},
		Sleep: physics.SleepConfig{
			Enabled:          p.Sleep.Enabled,
			LinearThreshold:  p.Sleep.LinearThreshold,
			AngularThreshold: p.Sleep.AngularThreshold,
			Time:             p.Sleep.Time,
		},
	}
}

// ParsedLevel returns the log level, defaulting to info.
func (t Telemetry) ParsedLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(t.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
