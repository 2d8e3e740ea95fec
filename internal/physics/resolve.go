package physics

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"

	"spherephys/internal/collide"
	"spherephys/internal/geom"
)

// Material holds the surface coefficients of a static collider.
type Material struct {
	Restitution float32
	Friction    float32
}

// DefaultMaterial is used for statics added without an explicit material.
var DefaultMaterial = Material{Restitution: 0.3, Friction: 0.6}

// Impulse reports what a resolution applied.
type Impulse struct {
	Normal   float32
	Friction float32
	Resting  bool
}

// Resolve applies one contact between body a and either body b or, when b is nil, a
// static surface with material other. The contact normal points from the other side
// toward a. Restitution and friction always combine with min.
//
// Position correction is weighted by inverse mass so a static participant takes none
// of it. Penetration up to ShallowPenetration is only partly corrected.
func Resolve(a, b *Body, other Material, c collide.Contact, cfg SolverConfig) Impulse {
	invA, invIA := a.invMass, a.invInertia
	var invB, invIB float32
	if b != nil {
		invB, invIB = b.invMass, b.invInertia
		other = Material{Restitution: b.Restitution, Friction: b.Friction}
	}
	invSum := invA + invB
	if invSum == 0 {
		return Impulse{}
	}
	n := c.Normal

	// 1. push apart along the normal
	if c.Penetration > 0 {
		corr := c.Penetration
		if corr <= cfg.ShallowPenetration {
			corr *= cfg.PositionCorrection
		}
		a.Position = rl.Vector3Add(a.Position, rl.Vector3Scale(n, corr*invA/invSum))
		if b != nil {
			b.Position = rl.Vector3Subtract(b.Position, rl.Vector3Scale(n, corr*invB/invSum))
		}
	}

	// 2. relative velocity of the contact points
	rA := rl.Vector3Scale(n, -a.radius)
	var rB, vB rl.Vector3
	if b != nil {
		rB = rl.Vector3Scale(n, b.radius)
		vB = pointVelocity(b, rB)
	}
	vRel := rl.Vector3Subtract(pointVelocity(a, rA), vB)
	vn := rl.Vector3DotProduct(vRel, n)
	if vn >= -cfg.ApproachEpsilon {
		return Impulse{}
	}

	// 3. normal impulse with the effective mass including the rotational terms
	kn := invSum + invIA*lenSqr(rl.Vector3CrossProduct(rA, n)) + invIB*lenSqr(rl.Vector3CrossProduct(rB, n))
	restitution := math32.Min(a.Restitution, other.Restitution)
	resting := math32.Abs(vn) < cfg.RestingVelocity && c.Penetration <= cfg.ShallowPenetration

	var jn float32
	if resting {
		jn = -cfg.RestingNormalDamping * vn / kn
	} else {
		jn = -(1 + restitution) * vn / kn
	}
	apply(a, b, rl.Vector3Scale(n, jn), rA, rB)

	// 4. Coulomb friction against the slip velocity
	result := Impulse{Normal: jn, Resting: resting}
	mu := math32.Min(a.Friction, other.Friction)
	if mu <= 0 {
		return result
	}
	vt := rl.Vector3Subtract(vRel, rl.Vector3Scale(n, vn))
	tangent, slip := geom.NormalizeLen(vt, rl.Vector3{})
	if slip < geom.Epsilon {
		return result
	}
	kt := invSum + invIA*lenSqr(rl.Vector3CrossProduct(rA, tangent)) + invIB*lenSqr(rl.Vector3CrossProduct(rB, tangent))
	jt := geom.Clamp(-slip/kt, -mu*jn, mu*jn)
	apply(a, b, rl.Vector3Scale(tangent, jt), rA, rB)
	result.Friction = jt
	return result
}

func apply(a, b *Body, impulse, rA, rB rl.Vector3) {
	if !a.IsStatic() {
		a.applyImpulse(impulse, rA)
	}
	if b != nil && !b.IsStatic() {
		b.applyImpulse(rl.Vector3Negate(impulse), rB)
	}
}

// pointVelocity is v + ω×r.
func pointVelocity(b *Body, r rl.Vector3) rl.Vector3 {
	return rl.Vector3Add(b.Velocity, rl.Vector3CrossProduct(b.AngularVelocity, r))
}

func lenSqr(v rl.Vector3) float32 {
	return rl.Vector3LengthSqr(v)
}
