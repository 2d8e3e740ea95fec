package physics

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// BodyID identifies a body added to a World. Zero is never assigned.
type BodyID uint32

// Body is a rigid sphere. A body with zero mass is static: it has infinite mass and
// inertia, ignores forces and is never moved by integration.
type Body struct {
	Position        rl.Vector3
	Velocity        rl.Vector3
	Orientation     rl.Quaternion
	AngularVelocity rl.Vector3 // radians per second

	Restitution float32 // 0 = no bounce, 1 = perfect bounce
	Friction    float32
	UseGravity  bool
	CanSleep    bool

	id         BodyID
	mass       float32
	invMass    float32
	radius     float32
	inertia    float32
	invInertia float32

	accel    rl.Vector3
	angAccel rl.Vector3

	// position at the start of the last integration, for choosing swept detection
	prevPosition rl.Vector3

	sleeping   bool
	sleepTimer float32
}

// NewBody creates a solid sphere. Non-positive mass yields a static body.
func NewBody(mass, radius float32, position rl.Vector3) *Body {
	b := &Body{
		Position:     position,
		Orientation:  rl.QuaternionIdentity(),
		Restitution:  0.5,
		Friction:     0.5,
		UseGravity:   true,
		CanSleep:     true,
		radius:       radius,
		prevPosition: position,
	}
	b.SetMass(mass)
	return b
}

func NewStaticBody(radius float32, position rl.Vector3) *Body {
	return NewBody(0, radius, position)
}

// SetMass updates mass and the solid-sphere inertia 2/5·m·r². A static body has its
// velocities cleared.
func (b *Body) SetMass(mass float32) {
	if mass <= 0 {
		b.mass, b.invMass = 0, 0
		b.inertia, b.invInertia = 0, 0
		b.Velocity = rl.Vector3{}
		b.AngularVelocity = rl.Vector3{}
		return
	}
	b.mass = mass
	b.invMass = 1 / mass
	b.inertia = 0.4 * mass * b.radius * b.radius
	b.invInertia = 0
	if b.inertia > 0 {
		b.invInertia = 1 / b.inertia
	}
}

func (b *Body) ID() BodyID          { return b.id }
func (b *Body) Mass() float32       { return b.mass }
func (b *Body) InvMass() float32    { return b.invMass }
func (b *Body) Radius() float32     { return b.radius }
func (b *Body) Inertia() float32    { return b.inertia }
func (b *Body) InvInertia() float32 { return b.invInertia }
func (b *Body) IsStatic() bool      { return b.mass == 0 }
func (b *Body) Sleeping() bool      { return b.sleeping }

// PreviousPosition is where the body was before the last Integrate.
func (b *Body) PreviousPosition() rl.Vector3 { return b.prevPosition }

// ApplyForce adds F/m to the acceleration accumulated for the next step.
func (b *Body) ApplyForce(force rl.Vector3) {
	if b.IsStatic() {
		return
	}
	if rl.Vector3LengthSqr(force) > 0 {
		b.Wake()
	}
	b.accel = rl.Vector3Add(b.accel, rl.Vector3Scale(force, b.invMass))
}

// ApplyTorque adds τ/I to the angular acceleration accumulated for the next step.
func (b *Body) ApplyTorque(torque rl.Vector3) {
	if b.IsStatic() {
		return
	}
	if rl.Vector3LengthSqr(torque) > 0 {
		b.Wake()
	}
	b.angAccel = rl.Vector3Add(b.angAccel, rl.Vector3Scale(torque, b.invInertia))
}

// ApplyImpulse changes velocity immediately. offset is the point of application
// relative to the centre; a zero offset affects linear velocity only.
func (b *Body) ApplyImpulse(impulse, offset rl.Vector3) {
	if b.IsStatic() {
		return
	}
	if rl.Vector3LengthSqr(impulse) > 0 {
		b.Wake()
	}
	b.applyImpulse(impulse, offset)
}

func (b *Body) applyImpulse(impulse, offset rl.Vector3) {
	b.Velocity = rl.Vector3Add(b.Velocity, rl.Vector3Scale(impulse, b.invMass))
	b.AngularVelocity = rl.Vector3Add(b.AngularVelocity,
		rl.Vector3Scale(rl.Vector3CrossProduct(offset, impulse), b.invInertia))
}

// Integrate advances the body by dt with semi-implicit Euler and clears the force and
// torque accumulators. Static and sleeping bodies only have their accumulators cleared.
func (b *Body) Integrate(dt float32) {
	b.prevPosition = b.Position
	if b.IsStatic() || b.sleeping {
		b.clearAccumulators()
		return
	}

	b.Velocity = rl.Vector3Add(b.Velocity, rl.Vector3Scale(b.accel, dt))
	b.Position = rl.Vector3Add(b.Position, rl.Vector3Scale(b.Velocity, dt))
	b.AngularVelocity = rl.Vector3Add(b.AngularVelocity, rl.Vector3Scale(b.angAccel, dt))

	if w := rl.Vector3Length(b.AngularVelocity); w > 1e-9 {
		axis := rl.Vector3Scale(b.AngularVelocity, 1/w)
		dq := rl.QuaternionFromAxisAngle(axis, w*dt)
		b.Orientation = rl.QuaternionNormalize(rl.QuaternionMultiply(dq, b.Orientation))
	}
	b.clearAccumulators()
}

func (b *Body) clearAccumulators() {
	b.accel = rl.Vector3{}
	b.angAccel = rl.Vector3{}
}

// Wake forces the body out of sleep.
func (b *Body) Wake() {
	b.sleeping = false
	b.sleepTimer = 0
}

// trySleep puts the body to sleep once it stayed below both thresholds for cfg.Time.
func (b *Body) trySleep(dt float32, cfg SleepConfig) {
	if !cfg.Enabled || !b.CanSleep || b.sleeping || b.IsStatic() {
		return
	}

	speed := rl.Vector3Length(b.Velocity)
	angSpeed := rl.Vector3Length(b.AngularVelocity)
	if speed >= cfg.LinearThreshold || angSpeed >= cfg.AngularThreshold {
		b.sleepTimer = 0
		return
	}

	b.sleepTimer += dt
	if b.sleepTimer >= cfg.Time {
		b.sleeping = true
		b.Velocity = rl.Vector3{}
		b.AngularVelocity = rl.Vector3{}
	}
}
