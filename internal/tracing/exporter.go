package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanRecord is one line of a span file. The pipeline attributes are
// lifted out of the attribute set so runs can be grepped by node.
type SpanRecord struct {
	TraceID    string    `json:"trace_id"`
	SpanID     string    `json:"span_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Name       string    `json:"name"`
	RunID      string    `json:"run_id,omitempty"`
	Targets    []string  `json:"targets,omitempty"`
	Node       string    `json:"node,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Request    string    `json:"request,omitempty"`
	Start      time.Time `json:"start"`
	DurationMs float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// SpanFile appends spans to a file as JSON lines.
type SpanFile struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenSpanFile opens path for appending, creating its directory.
func OpenSpanFile(path string) (*SpanFile, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating span directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening span file: %w", err)
	}
	return &SpanFile{file: f, enc: json.NewEncoder(f)}, nil
}

// ExportSpans implements sdktrace.SpanExporter.
func (s *SpanFile) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("span file is closed")
	}
	for _, span := range spans {
		if err := s.enc.Encode(NewSpanRecord(span)); err != nil {
			return fmt.Errorf("writing span %s: %w", span.Name(), err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (s *SpanFile) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func NewSpanRecord(span sdktrace.ReadOnlySpan) SpanRecord {
	sc := span.SpanContext()
	rec := SpanRecord{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		Name:       span.Name(),
		Start:      span.StartTime().UTC(),
		DurationMs: float64(span.EndTime().Sub(span.StartTime())) / float64(time.Millisecond),
	}
	if span.Parent().IsValid() {
		rec.ParentID = span.Parent().SpanID().String()
	}
	if span.Status().Code == codes.Error {
		rec.Error = span.Status().Description
	}
	for _, kv := range span.Attributes() {
		switch string(kv.Key) {
		case AttrRunID:
			rec.RunID = kv.Value.AsString()
		case AttrTargets:
			rec.Targets = kv.Value.AsStringSlice()
		case AttrNodeName:
			rec.Node = kv.Value.AsString()
		case AttrNodeKind:
			rec.Kind = kv.Value.AsString()
		case AttrRequest:
			rec.Request = kv.Value.AsString()
		}
	}
	return rec
}
