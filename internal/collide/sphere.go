package collide

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"spherephys/internal/geom"
)

// SphereSphere tests sphere a against sphere b. The normal points from b toward a and
// the contact point sits halfway through the overlap.
func SphereSphere(ca rl.Vector3, ra float32, cb rl.Vector3, rb float32) (Contact, bool) {
	sum := ra + rb
	diff := rl.Vector3Subtract(ca, cb)
	if rl.Vector3LengthSqr(diff) >= sum*sum {
		return Contact{}, false
	}
	normal, dist := geom.NormalizeLen(diff, geom.Up)
	pen := sum - dist
	return Contact{
		Point:       rl.Vector3Add(cb, rl.Vector3Scale(normal, rb-pen/2)),
		Normal:      normal,
		Penetration: pen,
		Triangle:    -1,
	}, true
}
