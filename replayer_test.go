package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(format string, v ...interface{}) {}
func (l testLogger) Info(format string, v ...interface{})  {}
func (l testLogger) Warn(format string, v ...interface{})  { l.t.Logf(format, v...) }
func (l testLogger) Error(format string, v ...interface{}) { l.t.Logf(format, v...) }
func (l testLogger) Fatal(format string, v ...interface{}) { l.t.Fatalf(format, v...) }

// captureSender records the replay protocol: which records were started as
// traces or spans, and the order in which spans were shipped.
type captureSender struct {
	traces  []string // root record ids, CreateTrace order
	started []string // all record ids, Create order
	sent    []string // record ids in Send order
	names   []string // span names in Create order
	fail    map[string]bool
	flushes int
	closed  bool
}

type captureSendable struct {
	sender *captureSender
	id     string
}

func (s captureSendable) Send() {
	s.sender.sent = append(s.sender.sent, s.id)
}

func (s *captureSender) CreateTrace(ctx context.Context, name string, rec *SpanRecord, count int64) (context.Context, Sendable, error) {
	if s.fail[rec.ID] {
		return ctx, nil, fmt.Errorf("backend rejected %s", rec.ID)
	}
	s.traces = append(s.traces, rec.ID)
	s.started = append(s.started, rec.ID)
	s.names = append(s.names, name)
	return ctx, captureSendable{sender: s, id: rec.ID}, nil
}

func (s *captureSender) CreateSpan(ctx context.Context, name string, rec *SpanRecord) (context.Context, Sendable, error) {
	if s.fail[rec.ID] {
		return ctx, nil, fmt.Errorf("backend rejected %s", rec.ID)
	}
	s.started = append(s.started, rec.ID)
	s.names = append(s.names, name)
	return ctx, captureSendable{sender: s, id: rec.ID}, nil
}

func (s *captureSender) Flush() error {
	s.flushes++
	return nil
}

func (s *captureSender) Close() {
	s.closed = true
}

func newTestReplayer(t *testing.T, path string, sender Sender, cfg ReplayConfig) *Replayer {
	t.Helper()
	r, err := NewReplayer(sender, NewDatasetReader(path, cfg.limit()), testLogger{t}, cfg)
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	return r
}

func intp(n int) *int { return &n }

func Test_Replayer_iterationsAndLimit(t *testing.T) {
	path := writeDataset(t,
		`{"id":"a","span_id":"s-a"}`,
		`{"id":"b","span_id":"s-b"}`,
		`{"id":"c","span_id":"s-c"}`,
	)
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 2, Limit: intp(2)})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 iteration results, got %d", len(results))
	}
	for i, res := range results {
		if res.Iteration != i+1 {
			t.Errorf("result %d: expected iteration %d, got %d", i, i+1, res.Iteration)
		}
		if res.Attempted != 2 || res.Succeeded != 2 || res.Failed != 0 {
			t.Errorf("iteration %d: expected 2 clean submissions, got %+v", i+1, res)
		}
		if res.Elapsed <= 0 {
			t.Errorf("iteration %d: expected a positive elapsed duration", i+1)
		}
	}
	want := []string{"a", "b", "a", "b"}
	if len(sender.traces) != len(want) {
		t.Fatalf("expected %d trace submissions, got %d", len(want), len(sender.traces))
	}
	for i, id := range want {
		if sender.traces[i] != id {
			t.Errorf("submission %d: expected %s, got %s", i, id, sender.traces[i])
		}
	}
}

func Test_Replayer_allRecordsInOrder(t *testing.T) {
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"id":"rec-%02d","span_id":"span-%02d"}`, i, i)
	}
	path := writeDataset(t, lines...)
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Attempted != 25 {
		t.Errorf("expected 25 submissions, got %d", results[0].Attempted)
	}
	for i, id := range sender.traces {
		if want := fmt.Sprintf("rec-%02d", i); id != want {
			t.Errorf("submission %d: expected %s, got %s", i, want, id)
		}
	}
}

func Test_Replayer_senderFailure(t *testing.T) {
	path := writeDataset(t,
		`{"id":"a","span_id":"s-a"}`,
		`{"id":"b","span_id":"s-b"}`,
		`{"id":"c","span_id":"s-c"}`,
	)
	sender := &captureSender{fail: map[string]bool{"b": true}}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("a sender failure must not end the run: %v", err)
	}
	res := results[0]
	if res.Attempted != 3 || res.Failed != 1 || res.Succeeded != 2 {
		t.Errorf("expected 3 attempted / 1 failed / 2 succeeded, got %+v", res)
	}
	if !equalIDsFromStrings(sender.traces, "a", "c") {
		t.Errorf("expected a and c submitted, got %v", sender.traces)
	}
}

func Test_Replayer_invalidConfig(t *testing.T) {
	// the reader points at a file that doesn't exist: validation must reject
	// the config before any I/O would notice
	missing := filepath.Join(t.TempDir(), "nope.jsonl")
	for name, cfg := range map[string]ReplayConfig{
		"zero iterations":     {Iterations: 0},
		"negative iterations": {Iterations: -3},
		"zero limit":          {Iterations: 1, Limit: intp(0)},
		"negative limit":      {Iterations: 1, Limit: intp(-1)},
		"zero batch size":     {Iterations: 1, BatchSize: intp(0)},
		"negative batch size": {Iterations: 1, BatchSize: intp(-2)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewReplayer(&captureSender{}, NewDatasetReader(missing, cfg.limit()), testLogger{t}, cfg)
			var icErr *InvalidConfigError
			if !errors.As(err, &icErr) {
				t.Fatalf("expected an InvalidConfigError, got %v", err)
			}
		})
	}
}

func Test_Replayer_parseErrors(t *testing.T) {
	path := writeDataset(t,
		`{"id":"a","span_id":"s-a"}`,
		`not json at all`,
		`{"id":"c","span_id":"s-c"}`,
	)
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	if res.ParseErrors != 1 {
		t.Errorf("expected 1 parse error, got %d", res.ParseErrors)
	}
	if !equalIDsFromStrings(sender.traces, "a", "c") {
		t.Errorf("expected the records around the bad line submitted, got %v", sender.traces)
	}
}

func Test_Replayer_hierarchy(t *testing.T) {
	path := writeDataset(t,
		`{"id":"root","span_id":"s-root","metadata":{"env":"prod"}}`,
		`{"id":"child1","span_id":"s-c1","span_parents":["s-root"],"span_attributes":{"name":"retrieval"}}`,
		`{"id":"grandchild","span_id":"s-g1","span_parents":["s-c1"],"span_attributes":{"name":"embedding"}}`,
		`{"id":"child2","span_id":"s-c2","span_parents":["s-root"],"span_attributes":{"name":"completion"}}`,
	)
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Attempted != 1 {
		t.Errorf("expected a single root trace, got %d", results[0].Attempted)
	}
	if !equalIDsFromStrings(sender.started, "root", "child1", "grandchild", "child2") {
		t.Errorf("expected depth-first start order, got %v", sender.started)
	}
	// children are shipped before their parents
	if !equalIDsFromStrings(sender.sent, "grandchild", "child1", "child2", "root") {
		t.Errorf("expected post-order send, got %v", sender.sent)
	}
	if sender.names[0] != RootSpanName {
		t.Errorf("expected the root named %q, got %q", RootSpanName, sender.names[0])
	}
	if sender.names[1] != "retrieval" {
		t.Errorf("expected the child's recorded name, got %q", sender.names[1])
	}
}

func Test_Replayer_flatten(t *testing.T) {
	path := writeDataset(t,
		`{"id":"root","span_id":"s-root"}`,
		`{"id":"child","span_id":"s-c1","span_parents":["s-root"]}`,
	)
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1, Flatten: true})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Attempted != 2 {
		t.Errorf("expected both rows replayed as roots, got %d", results[0].Attempted)
	}
	if !equalIDsFromStrings(sender.traces, "root", "child") {
		t.Errorf("expected both rows as root traces, got %v", sender.traces)
	}
}

func Test_Replayer_batchFlush(t *testing.T) {
	path := writeDataset(t,
		`{"id":"a","span_id":"s-a"}`,
		`{"id":"b","span_id":"s-b"}`,
		`{"id":"c","span_id":"s-c"}`,
		`{"id":"d","span_id":"s-d"}`,
	)
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1, BatchSize: intp(2)})

	if _, err := replayer.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// two mid-pass flushes plus the end-of-iteration one
	if sender.flushes != 3 {
		t.Errorf("expected 3 flushes, got %d", sender.flushes)
	}
}

func Test_Replayer_childFailureCountsTheRoot(t *testing.T) {
	path := writeDataset(t,
		`{"id":"root","span_id":"s-root"}`,
		`{"id":"child","span_id":"s-c1","span_parents":["s-root"]}`,
		`{"id":"other","span_id":"s-o"}`,
	)
	sender := &captureSender{fail: map[string]bool{"child": true}}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 1})

	results, err := replayer.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res := results[0]
	if res.Attempted != 2 || res.Failed != 1 || res.Succeeded != 1 {
		t.Errorf("expected the broken trace counted failed and the other to continue, got %+v", res)
	}
	// the root span is still closed even though its child was rejected
	if !equalIDsFromStrings(sender.sent, "root", "other") {
		t.Errorf("expected root and other shipped, got %v", sender.sent)
	}
}

func Test_Replayer_cancellation(t *testing.T) {
	path := writeDataset(t,
		`{"id":"a","span_id":"s-a"}`,
		`{"id":"b","span_id":"s-b"}`,
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := &captureSender{}
	replayer := newTestReplayer(t, path, sender, ReplayConfig{Iterations: 3})

	results, err := replayer.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected the partial iteration reported, got %d results", len(results))
	}
	if len(sender.traces) != 0 {
		t.Errorf("expected no submissions after cancellation, got %v", sender.traces)
	}
}

func equalIDsFromStrings(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
