package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	cuckoo "github.com/panmari/cuckoofilter"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	_ "google.golang.org/grpc/encoding/gzip"
)

// Options defines the command line arguments
type Options struct {
	Port int `long:"port" description:"Port number to listen on for grpc" default:"4317"`
}

const (
	maxSendMsgSize        = 4 * 1024 * 1024
	maxRecvMsgSize        = 64 * 1024 * 1024 // replayed LLM traces carry large payloads
	maxConnectionIdle     = 30 * time.Minute
	maxConnectionAge      = time.Hour
	maxConnectionAgeGrace = 5 * time.Minute
	keepAliveTime         = 2 * time.Minute
	keepAliveTimeout      = 20 * time.Second
)

// traceSink receives OTLP trace exports and counts the distinct trace and
// span ids it has seen, so a replay run can be checked for completeness
// against the sender's own numbers.
type traceSink struct {
	traces     *cuckoo.Filter
	spans      *cuckoo.Filter
	traceCount int
	spanCount  int
	collectortrace.UnimplementedTraceServiceServer
}

func newTraceSink() *traceSink {
	return &traceSink{
		traces: cuckoo.NewFilter(1_000_000),
		spans:  cuckoo.NewFilter(100_000_000),
	}
}

func (t *traceSink) Export(ctx context.Context, req *collectortrace.ExportTraceServiceRequest) (*collectortrace.ExportTraceServiceResponse, error) {
	for _, resource := range req.GetResourceSpans() {
		for _, scope := range resource.GetScopeSpans() {
			for _, span := range scope.GetSpans() {
				if t.traces.Insert(span.GetTraceId()) {
					t.traceCount++
				}
				if t.spans.Insert(span.GetSpanId()) {
					t.spanCount++
				}
			}
		}
	}
	return &collectortrace.ExportTraceServiceResponse{}, nil
}

// serve starts the receiver on localhost and wires graceful shutdown to ctx.
func serve(ctx context.Context, opts Options, sink *traceSink) error {
	addr := fmt.Sprintf("localhost:%d", opts.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := grpc.NewServer(
		grpc.MaxSendMsgSize(maxSendMsgSize),
		grpc.MaxRecvMsgSize(maxRecvMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     maxConnectionIdle,
			MaxConnectionAge:      maxConnectionAge,
			MaxConnectionAgeGrace: maxConnectionAgeGrace,
			Time:                  keepAliveTime,
			Timeout:               keepAliveTimeout,
		}),
	)
	collectortrace.RegisterTraceServiceServer(srv, sink)

	go func() {
		log.Printf("gRPC sink listening on %s", addr)
		if err := srv.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Println("stopping gRPC sink...")
		srv.GracefulStop()
	}()

	return nil
}

func main() {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("error parsing flags: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := newTraceSink()
	if err := serve(ctx, opts, sink); err != nil {
		log.Fatalf("failed to start gRPC sink: %v", err)
	}

	<-ctx.Done()

	fmt.Printf("\n%d traces, %d spans received this session\n", sink.traceCount, sink.spanCount)
	log.Println("shutting down")
}
