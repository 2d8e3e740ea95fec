package geom

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/stretchr/testify/assert"
)

func TestNewAABBOrdersCorners(t *testing.T) {
	box := NewAABB(vec(3, -1, 2), vec(-1, 4, 0))
	assert.Equal(t, vec(-1, -1, 0), box.Min)
	assert.Equal(t, vec(3, 4, 2), box.Max)
	assert.Equal(t, vec(1, 1.5, 1), box.Center())
}

func TestNewAABBFromCenter(t *testing.T) {
	box := NewAABBFromCenter(vec(1, 1, 1), vec(2, -4, 6))
	assert.Equal(t, vec(0, -1, -2), box.Min)
	assert.Equal(t, vec(2, 3, 4), box.Max)
}

func TestUnionWithEmpty(t *testing.T) {
	a := NewAABB(vec(0, 0, 0), vec(1, 1, 1))
	b := NewAABB(vec(-2, 0.5, 0), vec(0.5, 3, 0.5))

	assert.True(t, Empty().IsEmpty())
	assert.Equal(t, a, Union(Empty(), a))
	u := a.Union(b)
	assert.Equal(t, vec(-2, 0, 0), u.Min)
	assert.Equal(t, vec(1, 3, 1), u.Max)
}

func TestIntersectsSphere(t *testing.T) {
	box := NewAABB(vec(0, 0, 0), vec(2, 2, 2))

	tests := []struct {
		name   string
		center rl.Vector3
		radius float32
		want   bool
	}{
		{"center inside", vec(1, 1, 1), 0.1, true},
		{"touching face", vec(3, 1, 1), 1, true},
		{"outside face", vec(3.01, 1, 1), 1, false},
		{"near corner", vec(2.5, 2.5, 2.5), 0.9, true},
		{"beyond corner", vec(2.6, 2.6, 2.6), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, box.IntersectsSphere(tt.center, tt.radius))
		})
	}
}

func TestAABBIntersects(t *testing.T) {
	a := NewAABB(vec(0, 0, 0), vec(1, 1, 1))
	assert.True(t, a.Intersects(NewAABB(vec(1, 1, 1), vec(2, 2, 2))), "shared corner")
	assert.False(t, a.Intersects(NewAABB(vec(1.1, 0, 0), vec(2, 1, 1))))
	assert.False(t, a.Intersects(NewAABB(vec(0, -3, 0), vec(1, -2, 1))))
}

func TestResolvePicksShallowestAxis(t *testing.T) {
	floor := NewAABB(vec(-10, -1, -10), vec(10, 0, 10))
	box := NewAABBFromCenter(vec(0, 0.4, 0), vec(1, 1, 1))

	push := box.Resolve(floor)
	assert.InDelta(t, 0, push.X, 1e-6)
	assert.InDelta(t, 0.1, push.Y, 1e-6)
	assert.InDelta(t, 0, push.Z, 1e-6)

	assert.Equal(t, rl.Vector3Zero(), NewAABBFromCenter(vec(0, 5, 0), vec(1, 1, 1)).Resolve(floor))
}

func TestLongestAxis(t *testing.T) {
	assert.Equal(t, 0, NewAABB(vec(0, 0, 0), vec(3, 1, 1)).LongestAxis())
	assert.Equal(t, 1, NewAABB(vec(0, 0, 0), vec(1, 3, 1)).LongestAxis())
	assert.Equal(t, 2, NewAABB(vec(0, 0, 0), vec(1, 1, 3)).LongestAxis())
}

func TestRayIntersect(t *testing.T) {
	box := NewAABB(vec(-1, -1, -1), vec(1, 1, 1))

	d, ok := box.RayIntersect(vec(-5, 0, 0), vec(1, 0, 0), 100)
	assert.True(t, ok)
	assert.InDelta(t, 4, d, 1e-5)

	_, ok = box.RayIntersect(vec(-5, 2, 0), vec(1, 0, 0), 100)
	assert.False(t, ok)

	_, ok = box.RayIntersect(vec(-5, 0, 0), vec(1, 0, 0), 3)
	assert.False(t, ok, "box beyond max distance")

	d, ok = box.RayIntersect(vec(0, 0, 0), vec(0, 1, 0), 100)
	assert.True(t, ok)
	assert.Equal(t, float32(0), d)
}
