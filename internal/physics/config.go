package physics

import rl "github.com/gen2brain/raylib-go/raylib"

// Config holds the tunables of a World.
type Config struct {
	Gravity rl.Vector3
	// MaxDeltaTime caps a single step so a stalled frame cannot tunnel or explode.
	MaxDeltaTime float32
	// Swept enables continuous detection for bodies moving more than
	// SweptThreshold*radius in one step.
	Swept          bool
	SweptThreshold float32
	// SafetyMargin is the clearance kept when a swept body is advanced to its impact.
	SafetyMargin float32

	StaticCellSize float32
	BodyCellSize   float32

	Solver SolverConfig
	Sleep  SleepConfig
}

// SolverConfig controls the contact resolver.
type SolverConfig struct {
	// PositionCorrection is the fraction of a shallow penetration removed per contact.
	PositionCorrection float32
	// ShallowPenetration separates damped from full position correction.
	ShallowPenetration float32
	// ApproachEpsilon is the normal speed below which a contact is approaching.
	ApproachEpsilon float32
	// RestingVelocity is the normal speed under which a shallow contact counts as resting.
	RestingVelocity float32
	// RestingNormalDamping is the fraction of normal velocity removed at a resting contact.
	RestingNormalDamping float32
}

// SleepConfig controls when idle bodies stop being simulated.
type SleepConfig struct {
	Enabled          bool
	LinearThreshold  float32 // units/sec
	AngularThreshold float32 // rad/sec
	Time             float32 // seconds below both thresholds before sleeping
}

func DefaultConfig() Config {
	return Config{
		Gravity:        rl.Vector3{Y: -9.81},
		MaxDeltaTime:   0.033,
		Swept:          true,
		SweptThreshold: 0.5,
		SafetyMargin:   0.002,
		StaticCellSize: 16,
		BodyCellSize:   4,
		Solver:         DefaultSolverConfig(),
		Sleep: SleepConfig{
			Enabled:          true,
			LinearThreshold:  0.05,
			AngularThreshold: 0.05,
			Time:             0.5,
		},
	}
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		PositionCorrection:   0.8,
		ShallowPenetration:   0.05,
		ApproachEpsilon:      1e-4,
		RestingVelocity:      0.5,
		RestingNormalDamping: 0.98,
	}
}
