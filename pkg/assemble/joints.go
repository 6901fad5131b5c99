package assemble

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chazu/autolasercut/pkg/fingerjoint"
	"github.com/chazu/autolasercut/pkg/graph"
	"github.com/chazu/autolasercut/pkg/kernel"
)

// Joint reports one cut joint.
type Joint struct {
	Node        graph.NodeID
	PartA       string
	PartB       string
	Wave        int
	Outcome     fingerjoint.Outcome
	Regions     int
	RawStations int
	Stations    int
	Segments    int
	EdgeLength  float64
	Width       float64
	Axis        graph.Vec3
}

// job is one joint waiting to be cut.
type job struct {
	a, b   *Part
	params fingerjoint.Params
	report Joint
}

// schedule resolves the joints of g and groups them into waves. A joint
// runs one wave after the latest earlier joint touching either of its
// parts, so the joints of a wave touch disjoint parts and every part sees
// its joints in declaration order.
func (a *Assembler) schedule(g *graph.DesignGraph, parts map[graph.NodeID]*Part) ([]*job, [][]*job, error) {
	var (
		jobs  []*job
		waves [][]*job
		last  = make(map[*Part]int)
	)
	for _, id := range g.JoinOrder {
		n := g.Get(id)
		if n == nil {
			continue
		}
		jd, ok := n.Data.(graph.JoinData)
		if !ok {
			return nil, nil, fmt.Errorf("assemble: join node %s has unexpected data type %T", id.Short(), n.Data)
		}
		pa, okA := parts[jd.PartA]
		pb, okB := parts[jd.PartB]
		if !okA || !okB {
			return nil, nil, fmt.Errorf("assemble: joint %s joins a part that is not placed", id.Short())
		}
		if pa == pb {
			return nil, nil, fmt.Errorf("assemble: joint %s joins %q to itself", id.Short(), pa.Name)
		}

		w := max(last[pa], last[pb]) + 1
		last[pa], last[pb] = w, w

		j := &job{
			a: pa,
			b: pb,
			params: fingerjoint.Params{
				MinFingerWidth: g.MinFingerWidth(jd.Params),
				Swap:           jd.Params.Swap,
				FingerType:     jd.Params.Type,
				Components:     jd.Params.Components,
			},
			report: Joint{Node: id, PartA: pa.Name, PartB: pb.Name, Wave: w},
		}
		jobs = append(jobs, j)
		for len(waves) < w {
			waves = append(waves, nil)
		}
		waves[w-1] = append(waves[w-1], j)
	}
	return jobs, waves, nil
}

// run cuts the waves in order. Joints of one wave run concurrently when
// the kernel allows it.
func (a *Assembler) run(ctx context.Context, waves [][]*job) error {
	gen := fingerjoint.New(a.k,
		fingerjoint.WithLogger(a.log),
		fingerjoint.WithTolerance(a.tol),
		fingerjoint.WithMaxSegments(a.maxSegments),
	)
	workers := a.workers
	if !kernel.IsReentrant(a.k) {
		workers = 1
	}

	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("assemble: wave %d: %w", i+1, err)
		}
		a.log.Info("cutting wave", zap.Int("wave", i+1), zap.Int("joints", len(wave)))

		if workers == 1 || len(wave) == 1 {
			for _, j := range wave {
				if err := a.cut(gen, j); err != nil {
					return err
				}
			}
			continue
		}

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			firstErr error
			sem      = make(chan struct{}, workers)
		)
		for _, j := range wave {
			wg.Add(1)
			sem <- struct{}{}
			go func(j *job) {
				defer wg.Done()
				defer func() { <-sem }()
				if err := a.cut(gen, j); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				}
			}(j)
		}
		wg.Wait()
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

// cut runs the generator on one joint and stores the new solids.
func (a *Assembler) cut(gen *fingerjoint.Generator, j *job) error {
	res, err := gen.Cut(j.a.Solid, j.b.Solid, j.params)
	if err != nil {
		return fmt.Errorf("assemble: joint %s/%s: %w", j.a.Name, j.b.Name, err)
	}
	j.a.Solid, j.b.Solid = res.A, res.B

	r := &j.report
	r.Outcome = res.Outcome
	r.Regions = len(res.Plans)
	r.Segments = res.SegmentCount()
	if len(res.Plans) > 0 {
		p := res.Plans[0]
		r.RawStations = p.RawStations
		r.Stations = p.Stations
		r.EdgeLength = p.Edge.Length()
		r.Width = p.Width()
		r.Axis = graph.Vec3{X: p.Axis.X, Y: p.Axis.Y, Z: p.Axis.Z}
	}

	a.log.Info("joint cut",
		zap.String("part_a", j.a.Name),
		zap.String("part_b", j.b.Name),
		zap.Int("wave", r.Wave),
		zap.Stringer("outcome", r.Outcome),
		zap.Int("segments", r.Segments),
		zap.Float64("width", r.Width),
	)
	return nil
}
