package field

import (
	"fmt"

	"github.com/vk/streamgrid/internal/pipeline"
)

// FromInput returns the field carried by an input.
func FromInput(req *pipeline.ExecuteRequest, i int) (*Field, error) {
	in := req.Input(i)
	if !in.Connected {
		return nil, fmt.Errorf("input %d is not connected", i)
	}
	f, ok := in.Data.(*Field)
	if !ok {
		return nil, fmt.Errorf("input %d carries %T, want a field", i, in.Data)
	}
	return f, nil
}

// Publish sets f as the payload of output port and records its value range
// as DATA_RANGE.
func Publish(req *pipeline.ExecuteRequest, port int, f *Field) error {
	if lo, hi, ok := f.Range(); ok {
		if err := req.OutputData(port).Set(req.Keys.DataRange, []float64{lo, hi}); err != nil {
			return err
		}
	}
	return req.SetOutput(port, f)
}

// OutputExtent is the extent requested on output port. Unstructured or
// missing requests report false.
func OutputExtent(req *pipeline.ExecuteRequest, port int) (pipeline.Request, bool) {
	out, ok := req.OutputRequest(port)
	if !ok || !out.Structured {
		return out, false
	}
	return out, true
}
