package scene

import (
	"bytes"
	_ "embed"
)

//go:embed demo.yaml
var demoYAML []byte

// Demo returns the built-in scene: a ground plane with a terrace and ramp, a floating
// ledge, walls and a handful of spheres, one of them falling fast enough to need swept
// detection.
func Demo() *File {
	f, err := Decode(bytes.NewReader(demoYAML))
	if err != nil {
		panic(err)
	}
	return f
}
