// Package http_source provides an unstructured source that fetches a JSON
// array of numbers over HTTP and serves it as a sequence, piece by piece.
package http_source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/streamgrid/internal/ctxlog"
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/pipeline"
	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/modules/sequence"
	"github.com/zclconf/go-cty/cty"
)

const Kind = "http_source"

// maxBody bounds the response size.
const maxBody = 64 << 20

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client performs the requests; nil means http.DefaultClient.
	Client *http.Client
}

// Register registers the algorithm with the registry.
func (m *Module) Register(r *registry.Registry) {
	get := cty.StringVal(http.MethodGet)
	timeout := cty.NumberIntVal(10)
	r.Register(&registry.Algorithm{
		Kind:        Kind,
		Description: "Fetches a JSON array of numbers and serves it as a sequence.",
		Arguments: map[string]registry.ArgumentDef{
			"url":             {Type: cty.String},
			"method":          {Type: cty.String, Default: &get},
			"timeout_seconds": {Type: cty.Number, Default: &timeout},
			"field":           {Type: cty.String, Optional: true, Description: "object key holding the array"},
		},
		New: func(map[string]cty.Value) (pipeline.Spec, error) {
			return m.Spec(), nil
		},
	})
}

// Spec is the node spec of the source.
func (m *Module) Spec() pipeline.Spec {
	return pipeline.Spec{
		Kind:    Kind,
		Outputs: []pipeline.PortSpec{{Name: "items", DataType: sequence.DataType}},
		Handlers: pipeline.Handlers{
			DescribeOutputs: describe,
			Execute:         m.execute,
		},
	}
}

func describe(_ context.Context, req *pipeline.DescribeRequest) error {
	return req.SetDataType(0, sequence.DataType)
}

func (m *Module) execute(ctx context.Context, req *pipeline.ExecuteRequest) error {
	out, ok := req.OutputRequest(0)
	if !ok {
		out = pipeline.WholeRequest()
	}

	values, err := m.fetch(ctx, req.Params)
	if err != nil {
		return err
	}

	from, to := extent.SplitRange(len(values), out.Piece)
	c := &sequence.Chunk{Start: from, Total: len(values), Values: values[from:to]}
	if len(c.Values) > 0 {
		lo, hi := c.Values[0], c.Values[0]
		for _, v := range c.Values {
			lo, hi = min(lo, v), max(hi, v)
		}
		if err := req.OutputData(0).Set(req.Keys.DataRange, []float64{lo, hi}); err != nil {
			return err
		}
	}
	return req.SetOutput(0, c)
}

func (m *Module) fetch(ctx context.Context, params *pipeline.Parameters) ([]float64, error) {
	url := params.String("url", "")
	method := strings.ToUpper(params.String("method", http.MethodGet))
	timeout := time.Duration(params.Float("timeout_seconds", 10) * float64(time.Second))
	logger := ctxlog.FromContext(ctx)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("Making HTTP request", "method", method, "url", url)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	logger.Debug("Received HTTP response", "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: unexpected status %s", method, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return decode(body, params.String("field", ""))
}

// decode reads a JSON array of numbers, either at the document root or
// under the given object key.
func decode(body []byte, field string) ([]float64, error) {
	if field != "" {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("response is not a JSON object: %w", err)
		}
		raw, ok := doc[field]
		if !ok {
			return nil, fmt.Errorf("response has no field %q", field)
		}
		body = raw
	}
	var values []float64
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("response is not an array of numbers: %w", err)
	}
	return values, nil
}
