package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/streamgrid/internal/extent"
)

// recorder counts visits and executions reported through observer events.
type recorder struct {
	mu       sync.Mutex
	visits   map[Pass]map[string]int
	executed []string
	events   []Event
}

func newRecorder() *recorder {
	return &recorder{visits: make(map[Pass]map[string]int)}
}

func (r *recorder) OnEvent(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	switch ev.Kind {
	case EventNodeVisited:
		if r.visits[ev.Pass] == nil {
			r.visits[ev.Pass] = make(map[string]int)
		}
		r.visits[ev.Pass][ev.Node]++
	case EventNodeExecuted:
		r.executed = append(r.executed, ev.Node)
	}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visits = make(map[Pass]map[string]int)
	r.executed = nil
	r.events = nil
}

// gridPayload is what the test algorithms produce: the extent they were
// asked for and the time they produced.
type gridPayload struct {
	Extent extent.Extent
	Piece  extent.Piece
	Time   float64
	Items  []int
}

// structuredSource declares a whole extent and optional time steps.
func structuredSource(whole extent.Extent, steps ...float64) Spec {
	return Spec{
		Kind:    "test_source",
		Outputs: []PortSpec{{Name: "grid"}},
		Handlers: Handlers{
			DescribeOutputs: func(_ context.Context, req *DescribeRequest) error {
				if err := req.SetWholeExtent(0, whole); err != nil {
					return err
				}
				if len(steps) > 0 {
					return req.SetTimeSteps(0, extent.Discrete(steps...))
				}
				return nil
			},
			Execute: func(_ context.Context, req *ExecuteRequest) error {
				out, _ := req.OutputRequest(0)
				return req.SetOutput(0, gridPayload{Extent: out.Extent, Time: out.Time})
			},
		},
	}
}

// pieceSource produces n items and honours piece requests.
func pieceSource(n int) Spec {
	return Spec{
		Kind:    "test_sequence",
		Outputs: []PortSpec{{Name: "items"}},
		Handlers: Handlers{
			DescribeOutputs: func(_ context.Context, req *DescribeRequest) error {
				return req.SetMaxPieces(0, n)
			},
			Execute: func(_ context.Context, req *ExecuteRequest) error {
				out, _ := req.OutputRequest(0)
				start, end := extent.SplitRange(n, out.Piece)
				items := make([]int, 0, end-start)
				for i := start; i < end; i++ {
					items = append(items, i)
				}
				return req.SetOutput(0, gridPayload{Piece: out.Piece, Items: items})
			},
		},
	}
}

// filter passes its first input through, labelled with what it was asked.
func filter(kind string, caps Capabilities, inputs int) Spec {
	ports := make([]PortSpec, inputs)
	for i := range ports {
		ports[i] = PortSpec{Name: "in"}
	}
	return Spec{
		Kind:         kind,
		Inputs:       ports,
		Outputs:      []PortSpec{{Name: "out"}},
		Capabilities: caps,
		Handlers: Handlers{
			Execute: func(_ context.Context, req *ExecuteRequest) error {
				out, _ := req.OutputRequest(0)
				in := req.Input(0)
				payload := gridPayload{Extent: out.Extent, Piece: out.Piece, Time: out.Time}
				if p, ok := in.Data.(gridPayload); ok {
					payload.Items = p.Items
				}
				return req.SetOutput(0, payload)
			},
		},
	}
}

// unsplittableSort asks for the whole input and returns the requested
// piece of it.
func unsplittableSort() Spec {
	return Spec{
		Kind:         "test_sort",
		Inputs:       []PortSpec{{Name: "in"}},
		Outputs:      []PortSpec{{Name: "out"}},
		Capabilities: Capabilities{Unsplittable: true},
		Handlers: Handlers{
			Execute: func(_ context.Context, req *ExecuteRequest) error {
				in, ok := req.Input(0).Data.(gridPayload)
				if !ok {
					return errors.New("missing input")
				}
				out, _ := req.OutputRequest(0)
				start, end := extent.SplitRange(len(in.Items), out.Piece)
				return req.SetOutput(0, gridPayload{Piece: out.Piece, Items: in.Items[start:end]})
			},
		},
	}
}

func mustAdd(t *testing.T, p *Pipeline, name string, spec Spec) *Node {
	t.Helper()
	n, err := p.AddNode(name, spec)
	require.NoError(t, err)
	return n
}

func mustConnect(t *testing.T, p *Pipeline, src string, srcPort int, dst string, dstPort int) {
	t.Helper()
	require.NoError(t, p.Connect(src, srcPort, dst, dstPort))
}

func executions(p *Pipeline) map[string]int {
	out := make(map[string]int)
	for _, n := range p.Nodes() {
		out[n.Name()] = n.Executive().Executions()
	}
	return out
}

func line(xmin, xmax int) extent.Extent {
	return extent.New(xmin, xmax, 0, 0, 0, 0)
}
