package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/jessevdk/go-flags"
	cuckoo "github.com/panmari/cuckoofilter"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
)

// Options defines the command line arguments
type Options struct {
	Port int `long:"port" description:"Port number to listen on for HTTP" default:"4318"`
}

// traceSink counts distinct trace and span ids across everything POSTed to
// /v1/traces, and feeds the rolling rate tracker.
type traceSink struct {
	traces     *cuckoo.Filter
	spans      *cuckoo.Filter
	traceCount int
	spanCount  int
	rate       *rateTracker
}

func newTraceSink() *traceSink {
	return &traceSink{
		traces: cuckoo.NewFilter(1_000_000),
		spans:  cuckoo.NewFilter(100_000_000),
		rate:   newRateTracker(5 * time.Second),
	}
}

func (t *traceSink) record(req *collectortrace.ExportTraceServiceRequest) {
	spansSeen := 0
	for _, resource := range req.GetResourceSpans() {
		for _, scope := range resource.GetScopeSpans() {
			for _, span := range scope.GetSpans() {
				spansSeen++
				if t.traces.Insert(span.GetTraceId()) {
					t.traceCount++
				}
				if t.spans.Insert(span.GetSpanId()) {
					t.spanCount++
				}
			}
		}
	}
	t.rate.track(spansSeen)
}

// handleTraces accepts OTLP over HTTP in protobuf or JSON encoding,
// optionally gzipped.
func (t *traceSink) handleTraces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "failed to decompress gzip data: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer gz.Close()
		reader = gz
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}

	var req collectortrace.ExportTraceServiceRequest
	switch r.Header.Get("Content-Type") {
	case "application/json":
		err = json.Unmarshal(body, &req)
	default:
		// protobuf, also the fallback when no content type is given
		err = proto.Unmarshal(body, &req)
	}
	if err != nil {
		http.Error(w, "invalid trace payload", http.StatusBadRequest)
		return
	}

	t.record(&req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("{}"))
}

func serve(ctx context.Context, opts Options, sink *traceSink) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/traces", sink.handleTraces)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("HTTP sink listening on port %d", opts.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Println("stopping HTTP sink...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("error during server shutdown: %v", err)
		}
	}()
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
	serve(ctx, opts, sink)

	<-ctx.Done()

	fmt.Printf("\n%d traces, %d spans received this session\n", sink.traceCount, sink.spanCount)
	log.Println("shutting down")
}
