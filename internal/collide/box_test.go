package collide

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxDiscrete(t *testing.T) {
	box := NewBoxCollider(vec(0, -0.5, 0), vec(4, 1, 4))

	t.Run("resting on top face", func(t *testing.T) {
		c, hit := box.Discrete(vec(1, 0.8, 1), 1)
		require.True(t, hit)
		assert.InDelta(t, 0.2, c.Penetration, 1e-5)
		assertVecNear(t, vec(0, 1, 0), c.Normal, 1e-5)
		assert.Equal(t, -1, c.Triangle)
	})

	t.Run("touching is not a contact", func(t *testing.T) {
		_, hit := box.Discrete(vec(1, 1, 1), 1)
		assert.False(t, hit)
	})

	t.Run("corner", func(t *testing.T) {
		c, hit := box.Discrete(vec(2.5, 0.5, 2.5), 1)
		require.True(t, hit)
		inv := 1 / math32.Sqrt(3)
		assertVecNear(t, vec(inv, inv, inv), c.Normal, 1e-5)
		assert.InDelta(t, 1-math32.Sqrt(0.75), c.Penetration, 1e-5)
	})

	t.Run("centre inside leaves through nearest face", func(t *testing.T) {
		c, hit := box.Discrete(vec(0, -0.3, 0.5), 0.5)
		require.True(t, hit)
		assertVecNear(t, vec(0, 1, 0), c.Normal, 1e-5)
		assert.InDelta(t, 0.8, c.Penetration, 1e-5)
		assert.InDelta(t, 0, c.Point.Y, 1e-5)
	})
}

func TestBoxSwept(t *testing.T) {
	box := NewBoxCollider(vec(0, -0.5, 0), vec(4, 1, 4))

	c, hit := box.Swept(vec(0, 3, 0), vec(0, -3, 0), 1)
	require.True(t, hit)
	assert.True(t, c.Swept)
	assert.InDelta(t, 1.0/3.0, c.Time, 1e-5)
	assertVecNear(t, vec(0, 1, 0), c.Normal, 1e-5)

	c, hit = box.Swept(vec(2.5, 3, 2.5), vec(2.5, -3, 2.5), 1)
	require.True(t, hit, "clips the rounded corner")
	assert.InDelta(t, (3-math32.Sqrt(0.5))/6, c.Time, 1e-4)
	assertVecNear(t, vec(0.5, math32.Sqrt(0.5), 0.5), c.Normal, 1e-4)

	_, hit = box.Swept(vec(2.8, 3, 2.8), vec(2.8, -3, 2.8), 1)
	assert.False(t, hit, "inside the square corner of the grown box but clear of the box")

	_, hit = box.Swept(vec(3.5, 3, 3.5), vec(3.5, -3, 3.5), 1)
	assert.False(t, hit)

	c, hit = box.Swept(vec(0, 0.5, 0), vec(0, -1, 0), 1)
	require.True(t, hit)
	assert.Equal(t, float32(0), c.Time)
	assert.InDelta(t, 0.5, c.Penetration, 1e-5)
}

func TestBoxRaycast(t *testing.T) {
	box := NewBoxCollider(vec(0, -0.5, 0), vec(4, 1, 4))

	hit, ok := box.Raycast(vec(0, 5, 0), vec(0, -1, 0), 100)
	require.True(t, ok)
	assert.InDelta(t, 5, hit.Distance, 1e-5)
	assertVecNear(t, vec(0, 1, 0), hit.Normal, 1e-6)

	hit, ok = box.Raycast(vec(-10, -0.5, 0), vec(1, 0, 0), 100)
	require.True(t, ok)
	assertVecNear(t, vec(-1, 0, 0), hit.Normal, 1e-6)

	_, ok = box.Raycast(vec(0, 5, 0), vec(0, 1, 0), 100)
	assert.False(t, ok)
}
