package main

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"pgregory.net/rand"
)

// Options defines the command line arguments
type Options struct {
	Out    string `long:"out" description:"path of the JSONL file to write" default:"data/big_traces.jsonl"`
	Traces int    `long:"traces" description:"number of root traces to generate" default:"1000"`
	Depth  int    `long:"depth" description:"the nesting depth of each trace" default:"3"`
	NSpans int    `long:"nspans" description:"the total number of spans in a trace" default:"5"`
	Seed   string `long:"seed" description:"string seed so span names and metadata are reproducible" default:"tracereplay"`
}

// row matches the shape of the recorded dataset, one JSON object per line.
type row struct {
	ID             string         `json:"id"`
	SpanID         string         `json:"span_id"`
	SpanParents    []string       `json:"span_parents"`
	SpanAttributes map[string]any `json:"span_attributes"`
	Input          map[string]any `json:"input"`
	Output         map[string]any `json:"output"`
	Metadata       map[string]any `json:"metadata"`
}

type generator struct {
	rng    Rng
	enc    *json.Encoder
	nrows  int
	names  []string
	models []string
}

func newGenerator(w *bufio.Writer, seed string) *generator {
	rng := NewRng(seed)
	names := make([]string, 12)
	for i := range names {
		names[i] = rng.WordPair()
	}
	return &generator{
		rng:    rng,
		enc:    json.NewEncoder(w),
		names:  names,
		models: []string{"gpt-4o", "gpt-4o-mini", "claude-sonnet", "llama-70b"},
	}
}

// randID mimics the dataset's opaque hex identifiers. It uses the fast
// unseeded rng on purpose: ids must be unique across runs, not reproducible.
func randID(l int) string {
	const hex = "0123456789abcdef"
	id := make([]byte, l)
	for i := range id {
		id[i] = hex[rand.Intn(16)]
	}
	return string(id)
}

func (g *generator) emit(r row) error {
	g.nrows++
	return g.enc.Encode(r)
}

// trace writes one root row followed by its descendants, parent rows first,
// spreading nspans-1 children over the requested depth the way real traces
// fan out.
func (g *generator) trace(depth, nspans int) error {
	rootSpan := randID(16)
	root := row{
		ID:             randID(24),
		SpanID:         rootSpan,
		SpanAttributes: map[string]any{"name": "root"},
		Input:          map[string]any{"question": g.rng.Words(3 + rand.Intn(8))},
		Output:         map[string]any{"answer": g.rng.Words(5 + rand.Intn(20))},
		Metadata: map[string]any{
			"model":       g.rng.Choice(g.models),
			"temperature": g.rng.Float(0, 1),
		},
	}
	if err := g.emit(root); err != nil {
		return err
	}
	return g.children(rootSpan, depth-1, nspans-1)
}

func (g *generator) children(parentSpan string, depth, budget int) error {
	if depth <= 0 || budget <= 0 {
		return nil
	}
	// at least one child per remaining level so the trace reaches its depth
	nchildren := 1
	if budget > depth {
		nchildren += rand.Intn(budget - depth + 1)
	}
	budget -= nchildren
	for i := 0; i < nchildren; i++ {
		share := budget / nchildren
		spanID := randID(16)
		child := row{
			ID:             randID(24),
			SpanID:         spanID,
			SpanParents:    []string{parentSpan},
			SpanAttributes: map[string]any{"name": g.rng.Choice(g.names)},
			Input:          map[string]any{"prompt": g.rng.Words(2 + rand.Intn(6))},
			Output:         map[string]any{"completion": g.rng.Words(4 + rand.Intn(12))},
			Metadata:       map[string]any{"latency_ms": g.rng.Int(5, 2000)},
		}
		if err := g.emit(child); err != nil {
			return err
		}
		if err := g.children(spanID, depth-1, share); err != nil {
			return err
		}
	}
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
	if opts.Traces < 1 || opts.Depth < 1 || opts.NSpans < 1 {
		log.Fatal("traces, depth, and nspans must all be at least 1")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Out), 0o755); err != nil {
		log.Fatalf("unable to create output directory: %v", err)
	}
	f, err := os.Create(opts.Out)
	if err != nil {
		log.Fatalf("unable to create output file: %v", err)
	}
	w := bufio.NewWriter(f)
	gen := newGenerator(w, opts.Seed)

	for i := 0; i < opts.Traces; i++ {
		if err := gen.trace(opts.Depth, opts.NSpans); err != nil {
			log.Fatalf("writing dataset: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("writing dataset: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("writing dataset: %v", err)
	}
	log.Printf("wrote %d rows (%d traces) to %s", gen.nrows, opts.Traces, opts.Out)
}
