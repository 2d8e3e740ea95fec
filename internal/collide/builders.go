package collide

import rl "github.com/gen2brain/raylib-go/raylib"

// PlaneMesh returns a width x depth grid in the XZ plane centred on the origin with
// subdivisions cells per side. Triangles wind so their normals point up.
func PlaneMesh(width, depth float32, subdivisions int) ([]float32, []uint32) {
	if subdivisions < 1 {
		subdivisions = 1
	}
	n := subdivisions + 1
	vertices := make([]float32, 0, n*n*3)
	for iz := 0; iz < n; iz++ {
		for ix := 0; ix < n; ix++ {
			x := -width/2 + width*float32(ix)/float32(subdivisions)
			z := -depth/2 + depth*float32(iz)/float32(subdivisions)
			vertices = append(vertices, x, 0, z)
		}
	}

	indices := make([]uint32, 0, subdivisions*subdivisions*6)
	for iz := 0; iz < subdivisions; iz++ {
		for ix := 0; ix < subdivisions; ix++ {
			a := uint32(iz*n + ix)
			b := a + uint32(n) // +z
			c := a + 1         // +x
			d := b + 1
			indices = append(indices, a, b, c, b, d, c)
		}
	}
	return vertices, indices
}

// BoxMesh returns the twelve outward-facing triangles of a box of the given size
// centred on the origin.
func BoxMesh(size rl.Vector3) ([]float32, []uint32) {
	h := rl.Vector3Scale(size, 0.5)
	vertices := make([]float32, 0, 8*3)
	// vertex i has x = +h when bit 0 is set, y when bit 1 is set, z when bit 2 is set
	for i := 0; i < 8; i++ {
		v := rl.Vector3{X: -h.X, Y: -h.Y, Z: -h.Z}
		if i&1 != 0 {
			v.X = h.X
		}
		if i&2 != 0 {
			v.Y = h.Y
		}
		if i&4 != 0 {
			v.Z = h.Z
		}
		vertices = append(vertices, v.X, v.Y, v.Z)
	}

	// each quad is counter-clockwise seen from outside
	quads := [6][4]uint32{
		{2, 6, 7, 3}, // +y
		{0, 1, 5, 4}, // -y
		{1, 3, 7, 5}, // +x
		{0, 4, 6, 2}, // -x
		{4, 5, 7, 6}, // +z
		{0, 2, 3, 1}, // -z
	}
	indices := make([]uint32, 0, 36)
	for _, q := range quads {
		indices = append(indices, q[0], q[1], q[2], q[0], q[2], q[3])
	}
	return vertices, indices
}
