// Package scene reads YAML scene files describing bodies, terrain segments and static
// boxes, and instantiates them into a physics.World and terrain.Arena.
package scene

import (
	"bytes"
	"io"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"spherephys/internal/collide"
	"spherephys/internal/physics"
	"spherephys/internal/terrain"
)

// --- YAML types ---

type File struct {
	Name string `yaml:"name,omitempty"`
	// Player names the body driven by input, if any.
	Player   string       `yaml:"player,omitempty"`
	Bodies   []BodyDef    `yaml:"bodies,omitempty"`
	Segments []SegmentDef `yaml:"segments,omitempty"`
	Boxes    []BoxDef     `yaml:"boxes,omitempty"`
}

type BodyDef struct {
	Name        string     `yaml:"name"`
	Position    [3]float32 `yaml:"position"`
	Velocity    [3]float32 `yaml:"velocity,omitempty"`
	Radius      float32    `yaml:"radius"`
	Mass        float32    `yaml:"mass"`
	Restitution *float32   `yaml:"restitution,omitempty"`
	Friction    *float32   `yaml:"friction,omitempty"`
	UseGravity  *bool      `yaml:"use_gravity,omitempty"`
	CanSleep    *bool      `yaml:"can_sleep,omitempty"`
	Color       string     `yaml:"color,omitempty"`
}

type SegmentDef struct {
	Name string `yaml:"name"`
	// Parent is the name of a segment declared earlier in the file.
	Parent   string       `yaml:"parent,omitempty"`
	Position [3]float32   `yaml:"position,omitempty"`
	Rotation [3]float32   `yaml:"rotation,omitempty"` // degrees
	Scale    [3]float32   `yaml:"scale,omitempty"`    // zero means 1
	Mesh     *MeshDef     `yaml:"mesh,omitempty"`
	Material *MaterialDef `yaml:"material,omitempty"`
	Color    string       `yaml:"color,omitempty"`
}

// MeshDef is one of type "plane" (size [w, d], subdivisions), "box" (size [x, y, z])
// or "mesh" (vertices, optional indices).
type MeshDef struct {
	Type         string    `yaml:"type"`
	Size         []float32 `yaml:"size,omitempty"`
	Subdivisions int       `yaml:"subdivisions,omitempty"`
	Vertices     []float32 `yaml:"vertices,omitempty"`
	Indices      []uint32  `yaml:"indices,omitempty"`
}

type MaterialDef struct {
	Restitution *float32 `yaml:"restitution,omitempty"`
	Friction    *float32 `yaml:"friction,omitempty"`
}

type BoxDef struct {
	Name     string       `yaml:"name"`
	Center   [3]float32   `yaml:"center"`
	Size     [3]float32   `yaml:"size"`
	Material *MaterialDef `yaml:"material,omitempty"`
	Color    string       `yaml:"color,omitempty"`
}

func vec3(v [3]float32) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

// --- Loading ---

// Decode parses a scene. Unknown keys are errors.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse scene")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scene")
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "scene %s", path)
	}
	return f, nil
}

func (f *File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return errors.Wrap(err, "encode scene")
	}
	return enc.Close()
}

// Validate checks names and references without building any geometry.
func (f *File) Validate() error {
	names := make([]string, 0, len(f.Bodies)+len(f.Segments)+len(f.Boxes))
	names = append(names, lo.Map(f.Bodies, func(b BodyDef, _ int) string { return b.Name })...)
	names = append(names, lo.Map(f.Segments, func(s SegmentDef, _ int) string { return s.Name })...)
	names = append(names, lo.Map(f.Boxes, func(b BoxDef, _ int) string { return b.Name })...)
	if lo.Contains(names, "") {
		return errors.New("every body, segment and box needs a name")
	}
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return errors.Errorf("duplicate names: %v", dups)
	}

	for _, b := range f.Bodies {
		if b.Radius <= 0 {
			return errors.Errorf("body %q: radius must be positive", b.Name)
		}
		if b.Mass < 0 {
			return errors.Errorf("body %q: mass must not be negative", b.Name)
		}
	}
	if f.Player != "" && !lo.ContainsBy(f.Bodies, func(b BodyDef) bool { return b.Name == f.Player }) {
		return errors.Errorf("player %q is not a body", f.Player)
	}

	declared := make(map[string]bool, len(f.Segments))
	for _, s := range f.Segments {
		if s.Parent != "" && !declared[s.Parent] {
			return errors.Errorf("segment %q: parent %q must be a segment declared before it", s.Name, s.Parent)
		}
		declared[s.Name] = true
		if s.Mesh != nil {
			if err := s.Mesh.validate(); err != nil {
				return errors.Wrapf(err, "segment %q", s.Name)
			}
		}
	}
	for _, b := range f.Boxes {
		if b.Size[0] <= 0 || b.Size[1] <= 0 || b.Size[2] <= 0 {
			return errors.Errorf("box %q: size must be positive", b.Name)
		}
	}
	return nil
}

func (m *MeshDef) validate() error {
	switch m.Type {
	case "plane":
		if len(m.Size) != 2 {
			return errors.Errorf("plane mesh needs size [width, depth], got %v", m.Size)
		}
	case "box":
		if len(m.Size) != 3 {
			return errors.Errorf("box mesh needs size [x, y, z], got %v", m.Size)
		}
	case "mesh":
		if len(m.Vertices) == 0 {
			return errors.New("mesh needs vertices")
		}
	default:
		return errors.Errorf("unknown mesh type %q", m.Type)
	}
	return nil
}

// collider builds the mesh in local space; the arena places it.
func (m *MeshDef) collider() (*collide.MeshCollider, error) {
	var verts []float32
	var idx []uint32
	switch m.Type {
	case "plane":
		verts, idx = collide.PlaneMesh(m.Size[0], m.Size[1], m.Subdivisions)
	case "box":
		verts, idx = collide.BoxMesh(rl.Vector3{X: m.Size[0], Y: m.Size[1], Z: m.Size[2]})
	default:
		verts, idx = m.Vertices, m.Indices
	}
	return collide.NewMeshCollider(verts, idx, rl.MatrixIdentity())
}

func (m *MaterialDef) material() physics.Material {
	mat := physics.DefaultMaterial
	if m == nil {
		return mat
	}
	if m.Restitution != nil {
		mat.Restitution = *m.Restitution
	}
	if m.Friction != nil {
		mat.Friction = *m.Friction
	}
	return mat
}

// --- Applying ---

// Loaded maps scene names to the ids they were created with.
type Loaded struct {
	Bodies   map[string]physics.BodyID
	Segments map[string]terrain.SegmentID
	Boxes    map[string]physics.StaticID
	// Player is zero when the scene names no player.
	Player physics.BodyID
}

// Apply instantiates the scene. On error, whatever was created before the failing entry
// stays in the world and arena.
func (f *File) Apply(w *physics.World, a *terrain.Arena) (*Loaded, error) {
	out := &Loaded{
		Bodies:   make(map[string]physics.BodyID, len(f.Bodies)),
		Segments: make(map[string]terrain.SegmentID, len(f.Segments)),
		Boxes:    make(map[string]physics.StaticID, len(f.Boxes)),
	}

	for _, s := range f.Segments {
		local := terrain.Transform{
			Position: vec3(s.Position),
			Rotation: vec3(s.Rotation),
			Scale:    vec3(s.Scale),
		}
		if s.Scale == [3]float32{} {
			local.Scale = rl.Vector3{X: 1, Y: 1, Z: 1}
		}
		var c *collide.MeshCollider
		if s.Mesh != nil {
			var err error
			if c, err = s.Mesh.collider(); err != nil {
				return out, errors.Wrapf(err, "segment %q", s.Name)
			}
		}
		id, err := a.Add(s.Name, out.Segments[s.Parent], local, c, s.Material.material())
		if err != nil {
			return out, errors.Wrapf(err, "segment %q", s.Name)
		}
		out.Segments[s.Name] = id
	}

	for _, b := range f.Boxes {
		box := collide.NewBoxCollider(vec3(b.Center), vec3(b.Size))
		out.Boxes[b.Name] = w.AddStatic(box, b.Material.material())
	}

	for _, def := range f.Bodies {
		b := physics.NewBody(def.Mass, def.Radius, vec3(def.Position))
		b.Velocity = vec3(def.Velocity)
		if def.Restitution != nil {
			b.Restitution = *def.Restitution
		}
		if def.Friction != nil {
			b.Friction = *def.Friction
		}
		if def.UseGravity != nil {
			b.UseGravity = *def.UseGravity
		}
		if def.CanSleep != nil {
			b.CanSleep = *def.CanSleep
		}
		out.Bodies[def.Name] = w.AddBody(b)
	}
	out.Player = out.Bodies[f.Player]
	return out, nil
}

// Colors returns the display color name of every named entry that has one.
func (f *File) Colors() map[string]string {
	colors := make(map[string]string)
	for _, b := range f.Bodies {
		if b.Color != "" {
			colors[b.Name] = b.Color
		}
	}
	for _, s := range f.Segments {
		if s.Color != "" {
			colors[s.Name] = s.Color
		}
	}
	for _, b := range f.Boxes {
		if b.Color != "" {
			colors[b.Name] = b.Color
		}
	}
	return colors
}
