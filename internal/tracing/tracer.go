// Package tracing configures OpenTelemetry for pipeline updates. Update,
// each pass and each Execute get their own span.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName identifies streamgrid spans at the collector.
const ServiceName = "streamgrid"

// Exporters understood by NewProvider.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterFile   = "file"
	ExporterOTLP   = "otlp"
)

// Config selects where update spans go. The zero value disables tracing.
type Config struct {
	Exporter string `mapstructure:"exporter"`
	// Path is the JSON lines file written by the file exporter.
	Path string `mapstructure:"path"`
	// Endpoint is the OTLP/gRPC collector address.
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

func DefaultConfig() Config {
	return Config{
		Exporter:   ExporterNone,
		Endpoint:   "localhost:4317",
		SampleRate: 1,
	}
}

// Validate rejects settings NewProvider cannot honour.
func (c Config) Validate() error {
	var errs []error
	switch c.Exporter {
	case "", ExporterNone, ExporterStdout, ExporterOTLP:
	case ExporterFile:
		if c.Path == "" {
			errs = append(errs, errors.New("tracing.path is required by the file exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid tracing.exporter %q: must be 'none', 'stdout', 'file' or 'otlp'", c.Exporter))
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid tracing.sample_rate %v: must be within [0, 1]", c.SampleRate))
	}
	return errors.Join(errs...)
}

// Provider hands the pipeline its tracer and flushes spans on shutdown.
type Provider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds the exporter named by cfg. The stdout exporter writes
// pretty-printed spans to out.
func NewProvider(ctx context.Context, cfg Config, out io.Writer) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "", ExporterNone:
		return &Provider{tracer: noop.NewTracerProvider().Tracer(ServiceName)}, nil
	case ExporterStdout:
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	case ExporterFile:
		exporter, err = OpenSpanFile(cfg.Path)
	case ExporterOTLP:
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s span exporter: %w", cfg.Exporter, err)
	}

	rate := cfg.SampleRate
	if rate == 0 {
		rate = 1
	}
	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", ServiceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(sdk)
	return &Provider{sdk: sdk, tracer: sdk.Tracer(ServiceName)}, nil
}

func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Enabled reports whether spans are exported anywhere.
func (p *Provider) Enabled() bool { return p.sdk != nil }

// Shutdown flushes pending spans and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
