// Package print provides a terminal sink. It writes a one-line summary of
// whatever reaches its input and publishes the same line as its output, so
// it can be the target of an update.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const Kind = "print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the summaries; nil means standard output.
	Out io.Writer

	mu sync.Mutex
}

// Register registers the algorithm with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "Prints a summary of its input.",
		Arguments: map[string]registry.ArgumentDef{
			"label": {Type: cty.String, Optional: true},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return m.Spec(), nil
		},
	})
}

// Spec is the node spec of the sink.
func (m *Module) Spec() pipeline.Spec {
	return pipeline.Spec{
		Kind:         Kind,
		Inputs:       []pipeline.PortSpec{{Name: "input"}},
		Outputs:      []pipeline.PortSpec{{Name: "summary", DataType: "string"}},
		Capabilities: pipeline.Capabilities{TolerateUpstreamFailure: true},
		Handlers:     pipeline.Handlers{Execute: m.execute},
	}
}

func (m *Module) execute(ctx context.Context, req *pipeline.ExecuteRequest) error {
	label := req.Params.String("label", req.Node.Name())
	line := fmt.Sprintf("%s: %s", label, Summary(req.Input(0)))

	ctxlog.FromContext(ctx).Info("Printing input.", "node", req.Node.Name(), "summary", line)
	if err := m.write(line); err != nil {
		return err
	}
	return req.SetOutput(0, line)
}

func (m *Module) write(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.Out
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// Summary describes an input in one line.
func Summary(in pipeline.Input) string {
	switch {
	case !in.Connected:
		return "(not connected)"
	case in.UpstreamFailed:
		return "(upstream failed)"
	case in.Data == nil:
		return "(null)"
	}
	if s, ok := in.Data.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", in.Data)
}
