// Package bench measures the broad phase and whole simulation steps.
package bench

import (
	"fmt"
	"math/rand"
	"slices"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"spherephys/internal/geom"
	"spherephys/internal/physics"
	"spherephys/internal/scene"
	"spherephys/internal/spatial"
	"spherephys/internal/terrain"
)

// BroadPhaseResult compares grid queries with a linear scan over the same colliders.
type BroadPhaseResult struct {
	Colliders  int
	Queries    int
	Grid       time.Duration // per query
	Linear     time.Duration // per query
	Candidates int           // total over all queries, identical for both
}

func (r BroadPhaseResult) Speedup() float64 {
	if r.Grid <= 0 {
		return 0
	}
	return float64(r.Linear) / float64(r.Grid)
}

// BroadPhase scatters count collider boxes in a region that grows with count and runs
// the same sphere queries against a spatial grid and a linear scan. It fails if the two
// disagree on any query.
func BroadPhase(count, queries int, cellSize float32, seed int64) (BroadPhaseResult, error) {
	rng := rand.New(rand.NewSource(seed))
	extent := float32(50) + float32(count)/10

	r := func(scale float32) float32 { return (rng.Float32()*2 - 1) * scale }
	boxes := make([]geom.AABB, count)
	grid := spatial.NewGrid[int](cellSize)
	for i := range boxes {
		center := rl.Vector3{X: r(extent), Y: r(extent / 10), Z: r(extent)}
		size := rl.Vector3{X: 1 + rng.Float32()*8, Y: 0.5 + rng.Float32()*2, Z: 1 + rng.Float32()*8}
		boxes[i] = geom.NewAABBFromCenter(center, size)
		grid.Insert(i, boxes[i])
	}

	type query struct {
		center rl.Vector3
		radius float32
	}
	qs := make([]query, queries)
	for i := range qs {
		qs[i] = query{rl.Vector3{X: r(extent), Y: r(extent / 10), Z: r(extent)}, 0.5 + rng.Float32()*2}
	}

	res := BroadPhaseResult{Colliders: count, Queries: queries}
	if queries == 0 {
		return res, nil
	}

	var buf []int
	gridHits := make([][]int, len(qs))
	start := time.Now()
	for i, q := range qs {
		buf = grid.QueryNearby(q.center, q.radius, buf[:0])
		gridHits[i] = append(gridHits[i], buf...)
	}
	res.Grid = time.Since(start) / time.Duration(queries)

	linearHits := make([][]int, len(qs))
	start = time.Now()
	for i, q := range qs {
		for j := range boxes {
			if boxes[j].IntersectsSphere(q.center, q.radius) {
				linearHits[i] = append(linearHits[i], j)
			}
		}
	}
	res.Linear = time.Since(start) / time.Duration(queries)

	for i := range qs {
		slices.Sort(gridHits[i])
		if !slices.Equal(gridHits[i], linearHits[i]) {
			return res, errors.Errorf("query %d: grid found %v, linear scan found %v", i, gridHits[i], linearHits[i])
		}
		res.Candidates += len(linearHits[i])
	}
	return res, nil
}

// StepResult summarises per-step wall time of a scene simulation, in milliseconds.
type StepResult struct {
	Frames   int
	Bodies   int
	Mean     float64
	StdDev   float64
	P50      float64
	P95      float64
	Max      float64
	Contacts int
	Swept    int
}

// Steps loads f into a fresh world and times frames steps of dt.
func Steps(f *scene.File, cfg physics.Config, frames int, dt float32) (StepResult, error) {
	w := physics.NewWorld(cfg)
	a := terrain.NewArena(w, nil)
	if _, err := f.Apply(w, a); err != nil {
		return StepResult{}, err
	}

	res := StepResult{Frames: frames, Bodies: len(w.Bodies())}
	if frames <= 0 {
		return res, nil
	}
	times := make([]float64, frames)
	for i := range times {
		start := time.Now()
		a.Sync()
		stats := w.Step(dt)
		times[i] = float64(time.Since(start).Nanoseconds()) / 1e6
		res.Contacts += len(stats.Contacts)
		res.Swept += stats.Swept
	}

	res.Mean, res.StdDev = stat.MeanStdDev(times, nil)
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	res.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	res.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	res.Max = sorted[len(sorted)-1]
	return res, nil
}

// Crowd returns a scene of n spheres dropped in a loose column over a tiled floor.
func Crowd(n int, seed int64) *scene.File {
	rng := rand.New(rand.NewSource(seed))
	f := &scene.File{Name: fmt.Sprintf("crowd-%d", n)}
	const tiles = 4
	const tile = 25
	for x := 0; x < tiles; x++ {
		for z := 0; z < tiles; z++ {
			f.Segments = append(f.Segments, scene.SegmentDef{
				Name:     fmt.Sprintf("tile-%d-%d", x, z),
				Position: [3]float32{float32(x-tiles/2)*tile + tile/2, 0, float32(z-tiles/2)*tile + tile/2},
				Mesh:     &scene.MeshDef{Type: "plane", Size: []float32{tile, tile}, Subdivisions: 5},
			})
		}
	}
	for i := 0; i < n; i++ {
		f.Bodies = append(f.Bodies, scene.BodyDef{
			Name:     fmt.Sprintf("ball-%d", i),
			Position: [3]float32{(rng.Float32()*2 - 1) * 30, 1 + rng.Float32()*20, (rng.Float32()*2 - 1) * 30},
			Radius:   0.3 + rng.Float32()*0.4,
			Mass:     1,
		})
	}
	return f
}

func BroadPhaseTable(results []BroadPhaseResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Colliders", "Queries", "Grid / query", "Linear / query", "Candidates", "Speedup"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Colliders,
			r.Queries,
			r.Grid.Round(time.Nanosecond),
			r.Linear.Round(time.Nanosecond),
			r.Candidates,
			fmt.Sprintf("%.1fx", r.Speedup()),
		})
	}
	return t.Render()
}

func StepTable(name string, r StepResult) string {
	t := table.NewWriter()
	t.SetTitle(name)
	t.AppendHeader(table.Row{"Frames", "Bodies", "Mean ms", "StdDev", "p50", "p95", "Max", "Contacts", "Swept"})
	t.AppendRow(table.Row{
		r.Frames, r.Bodies,
		fmt.Sprintf("%.3f", r.Mean), fmt.Sprintf("%.3f", r.StdDev),
		fmt.Sprintf("%.3f", r.P50), fmt.Sprintf("%.3f", r.P95), fmt.Sprintf("%.3f", r.Max),
		r.Contacts, r.Swept,
	})
	return t.Render()
}
