// Package camera implements a third-person camera that orbits and follows a target.
package camera

import (
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

type Follow struct {
	Yaw   float32 // degrees around Y
	Pitch float32 // degrees, negative looks down

	Distance    float32
	MinDistance float32
	MaxDistance float32
	LookSpeed   float32 // degrees per pixel of mouse movement
	ZoomSpeed   float32 // distance per wheel notch
	// Smoothing is how quickly the focus catches up with the target, per second.
	// Zero snaps to the target.
	Smoothing float32
	// Height lifts the focus point above the target.
	Height float32
	Fovy   float32

	focus  rl.Vector3
	placed bool
}

func NewFollow() *Follow {
	return &Follow{
		Yaw:         -90,
		Pitch:       -25,
		Distance:    10,
		MinDistance: 3,
		MaxDistance: 40,
		LookSpeed:   0.1,
		ZoomSpeed:   1,
		Smoothing:   8,
		Height:      0.5,
		Fovy:        45,
	}
}

// Look turns the camera by a mouse delta and zooms by wheel notches.
func (c *Follow) Look(delta rl.Vector2, wheel float32) {
	c.Yaw += delta.X * c.LookSpeed
	c.Pitch -= delta.Y * c.LookSpeed

	// Clamp pitch
	c.Pitch = clamp(c.Pitch, -85, 10)
	c.Distance = clamp(c.Distance-wheel*c.ZoomSpeed, c.MinDistance, c.MaxDistance)
}

// Update moves the focus toward target. The first call snaps.
func (c *Follow) Update(target rl.Vector3, dt float32) {
	target.Y += c.Height
	if !c.placed || c.Smoothing <= 0 {
		c.focus = target
		c.placed = true
		return
	}
	k := clamp(c.Smoothing*dt, 0, 1)
	c.focus = rl.Vector3Lerp(c.focus, target, k)
}

func (c *Follow) Focus() rl.Vector3 {
	return c.focus
}

// View is the unit direction the camera looks in.
func (c *Follow) View() rl.Vector3 {
	yaw := c.Yaw * rl.Deg2rad
	pitch := c.Pitch * rl.Deg2rad
	return rl.Vector3{
		X: math32.Cos(yaw) * math32.Cos(pitch),
		Y: math32.Sin(pitch),
		Z: math32.Sin(yaw) * math32.Cos(pitch),
	}
}

func (c *Follow) Position() rl.Vector3 {
	return rl.Vector3Subtract(c.focus, rl.Vector3Scale(c.View(), c.Distance))
}

// Directions returns the horizontal forward and right vectors of the camera.
func (c *Follow) Directions() (forward, right rl.Vector3) {
	yaw := c.Yaw * rl.Deg2rad
	forward = rl.Vector3{X: math32.Cos(yaw), Z: math32.Sin(yaw)}
	right = rl.Vector3{X: -math32.Sin(yaw), Z: math32.Cos(yaw)}
	return
}

// MoveDirection maps held movement keys to a horizontal unit vector relative to the
// camera, or zero when the keys cancel out.
func (c *Follow) MoveDirection(forward, back, left, right bool) rl.Vector3 {
	f, r := c.Directions()
	var dir rl.Vector3
	if forward {
		dir = rl.Vector3Add(dir, f)
	}
	if back {
		dir = rl.Vector3Subtract(dir, f)
	}
	if right {
		dir = rl.Vector3Add(dir, r)
	}
	if left {
		dir = rl.Vector3Subtract(dir, r)
	}

	// Normalize diagonal movement so you don't go faster diagonally
	if l := rl.Vector3Length(dir); l > 1e-6 {
		return rl.Vector3Scale(dir, 1/l)
	}
	return rl.Vector3{}
}

func (c *Follow) Camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   c.Position(),
		Target:     c.focus,
		Up:         rl.Vector3{Y: 1},
		Fovy:       c.Fovy,
		Projection: rl.CameraPerspective,
	}
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
