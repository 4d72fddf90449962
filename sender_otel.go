package main

import (
	"context"
	"crypto/tls"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
)

var ResourceLibrary = "tracereplay"
var ResourceVersion = "dev"

// make sure it implements Sender
var _ Sender = (*SenderOTel)(nil)

type OTelSendable struct {
	trace.Span
}

func (s OTelSendable) Send() {
	(trace.Span)(s).End()
}

// SenderOTel replays through the OTel SDK to any OTLP endpoint, over grpc or
// http. The batch span processor's knobs are exposed so the harness can
// match whatever batching the backend under test recommends.
type SenderOTel struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown func()
}

func NewSenderOTel(log Logger, opts *Options) *SenderOTel {
	var client otlptrace.Client
	switch opts.Output.Protocol {
	case "grpc":
		client = setupOTelGRPCClient(opts)
	case "http":
		client = setupOTelHTTPClient(opts)
	default:
		log.Fatal("unknown protocol: %s\n", opts.Output.Protocol)
	}

	exporter, err := otlptrace.New(context.Background(), client)
	if err != nil {
		log.Fatal("failure configuring otel trace exporter: %v\n", err)
	}

	var bspOpts []sdktrace.BatchSpanProcessorOption
	if opts.Output.BatchTimeout != 0 {
		bspOpts = append(bspOpts, sdktrace.WithBatchTimeout(opts.Output.BatchTimeout))
	}
	if opts.Output.MaxQueueSize != 0 {
		bspOpts = append(bspOpts, sdktrace.WithMaxQueueSize(opts.Output.MaxQueueSize))
	}
	if opts.Output.MaxExportBatchSize != 0 {
		bspOpts = append(bspOpts, sdktrace.WithMaxExportBatchSize(opts.Output.MaxExportBatchSize))
	}
	if opts.Output.ExportTimeout != 0 {
		bspOpts = append(bspOpts, sdktrace.WithExportTimeout(opts.Output.ExportTimeout))
	}

	bsp := sdktrace.NewBatchSpanProcessor(exporter, bspOpts...)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bsp),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(opts.Telemetry.Dataset))),
	)
	otel.SetTracerProvider(provider)

	return &SenderOTel{
		tracer:   otel.Tracer(ResourceLibrary, trace.WithInstrumentationVersion(ResourceVersion)),
		provider: provider,
		shutdown: func() {
			_ = bsp.Shutdown(context.Background())
			_ = exporter.Shutdown(context.Background())
		},
	}
}

func (t *SenderOTel) Close() {
	t.shutdown()
}

func (t *SenderOTel) Flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return t.provider.ForceFlush(ctx)
}

func (t *SenderOTel) CreateTrace(ctx context.Context, name string, rec *SpanRecord, count int64) (context.Context, Sendable, error) {
	ctx, root := t.tracer.Start(ctx, name)
	addSpanAttrs(root, rec, count)
	var ots OTelSendable
	ots.Span = root
	return ctx, ots, nil
}

func (t *SenderOTel) CreateSpan(ctx context.Context, name string, rec *SpanRecord) (context.Context, Sendable, error) {
	ctx, span := t.tracer.Start(ctx, name)
	addSpanAttrs(span, rec, 0)
	var ots OTelSendable
	ots.Span = span
	return ctx, ots, nil
}

func setupOTelHTTPClient(opts *Options) otlptrace.Client {
	options := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(opts.apihost.Host),
		otlptracehttp.WithHeaders(map[string]string{
			"x-honeycomb-team": opts.Telemetry.APIKey,
		}),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if opts.Telemetry.Insecure {
		options = append(options, otlptracehttp.WithInsecure())
	} else {
		options = append(options, otlptracehttp.WithTLSClientConfig(&tls.Config{}))
	}
	return otlptracehttp.NewClient(options...)
}

func setupOTelGRPCClient(opts *Options) otlptrace.Client {
	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.apihost.Host),
		otlptracegrpc.WithHeaders(map[string]string{
			"x-honeycomb-team": opts.Telemetry.APIKey,
		}),
		otlptracegrpc.WithCompressor(gzip.Name),
	}
	if opts.Telemetry.Insecure {
		options = append(options, otlptracegrpc.WithInsecure())
	} else {
		options = append(options, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	return otlptracegrpc.NewClient(options...)
}
