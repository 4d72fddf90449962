package main

import (
	"context"
	"fmt"
	"time"
)

// InvalidConfigError reports a replay option that fails validation. It is
// raised before the dataset file is touched.
type InvalidConfigError struct {
	Field string
	Value int
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: bad value %d for %s", e.Value, e.Field)
}

// ReplayConfig's optional knobs are pointers so that leaving one out is
// distinct from passing a bad value: an explicit limit or batch size below 1
// is rejected, while nil means "no cap" / "flush once per pass".
type ReplayConfig struct {
	Iterations int  // number of full passes, >= 1
	Limit      *int // max dataset lines per pass, nil = all
	BatchSize  *int // flush after this many root traces, nil = once per pass
	Flatten    bool // replay every row as its own root
}

func (c ReplayConfig) Validate() error {
	if c.Iterations < 1 {
		return &InvalidConfigError{Field: "iterations", Value: c.Iterations}
	}
	if c.Limit != nil && *c.Limit < 1 {
		return &InvalidConfigError{Field: "limit", Value: *c.Limit}
	}
	if c.BatchSize != nil && *c.BatchSize < 1 {
		return &InvalidConfigError{Field: "batchsize", Value: *c.BatchSize}
	}
	return nil
}

// limit returns the per-pass row cap as the reader understands it, 0 when
// uncapped.
func (c ReplayConfig) limit() int {
	if c.Limit == nil {
		return 0
	}
	return *c.Limit
}

func (c ReplayConfig) batchSize() int {
	if c.BatchSize == nil {
		return 0
	}
	return *c.BatchSize
}

// IterationResult is the measurement for one pass over the dataset.
type IterationResult struct {
	Iteration   int // 1-based
	Attempted   int // root traces walked
	Succeeded   int
	Failed      int // root traces the sender rejected
	ParseErrors int // malformed dataset lines skipped
	Elapsed     time.Duration
}

func (r IterationResult) TracesPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Attempted) / r.Elapsed.Seconds()
}

// A Replayer drives the dataset through a sender. Each iteration re-reads
// the file, reassembles the trace forest, and submits every root trace in
// file order. Submission is synchronous and single-streamed: one record at a
// time, so the timing reflects the backend's ingestion rate rather than the
// harness's scheduling.
type Replayer struct {
	cfg    ReplayConfig
	reader *DatasetReader
	sender Sender
	log    Logger
	count  int64 // running root-trace count across iterations
}

func NewReplayer(sender Sender, reader *DatasetReader, log Logger, cfg ReplayConfig) (*Replayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Replayer{
		cfg:    cfg,
		reader: reader,
		sender: sender,
		log:    log,
	}, nil
}

// Run replays the dataset for the configured number of iterations. It
// returns the results of the iterations that ran; when ctx is canceled
// mid-pass, the partial iteration's result is included and Run returns
// ctx.Err() alongside the results. A sender error on one record never ends
// the pass; it is counted in the result so a partially-failed pass still
// yields a throughput number.
func (r *Replayer) Run(ctx context.Context) ([]IterationResult, error) {
	results := make([]IterationResult, 0, r.cfg.Iterations)
	for i := 1; i <= r.cfg.Iterations; i++ {
		res, err := r.runIteration(ctx, i)
		results = append(results, res)
		r.log.Info("iteration %d/%d: %d traces (%d failed, %d parse errors) in %.2fs (%.1f traces/sec)\n",
			i, r.cfg.Iterations, res.Attempted, res.Failed, res.ParseErrors,
			res.Elapsed.Seconds(), res.TracesPerSec())
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (r *Replayer) runIteration(ctx context.Context, iteration int) (res IterationResult, err error) {
	res = IterationResult{Iteration: iteration}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	forest, parseErrs, err := r.load(ctx)
	res.ParseErrors = parseErrs
	if err != nil {
		return res, err
	}

	roots := forest.Roots()
	r.log.Debug("replaying %d root traces from %d records\n", len(roots), forest.Len())

	for idx, root := range roots {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempted++
		r.count++
		if err := r.submitRoot(ctx, forest, root); err != nil {
			res.Failed++
			r.log.Error("record %s: submission failed: %v\n", root.ID, err)
		} else {
			res.Succeeded++
		}
		if bs := r.cfg.batchSize(); bs > 0 && (idx+1)%bs == 0 {
			if err := r.sender.Flush(); err != nil {
				r.log.Error("flush after %d traces failed: %v\n", idx+1, err)
			}
		}
	}

	if err := r.sender.Flush(); err != nil {
		r.log.Error("end-of-iteration flush failed: %v\n", err)
	}
	return res, nil
}

// load performs one full reader pass and assembles the forest. Malformed
// lines are counted and skipped; anything else from the reader is fatal for
// the run.
func (r *Replayer) load(ctx context.Context) (*Forest, int, error) {
	pass, err := r.reader.Open()
	if err != nil {
		return nil, 0, err
	}
	defer pass.Close()

	forest := NewForest(r.cfg.Flatten)
	parseErrs := 0
	for {
		if err := ctx.Err(); err != nil {
			return forest, parseErrs, err
		}
		rec, err := pass.Next()
		if err == ErrEndOfPass {
			break
		}
		if perr, ok := err.(*ParseError); ok {
			parseErrs++
			r.log.Warn("skipping %v\n", perr)
			continue
		}
		if err != nil {
			return forest, parseErrs, err
		}
		forest.Add(rec)
	}
	return forest, parseErrs, nil
}

// submitRoot replays one trace: the root span, then its subtree in
// depth-first file order, closing each span after its children the way the
// original recording nested them.
func (r *Replayer) submitRoot(ctx context.Context, forest *Forest, root *SpanRecord) error {
	if root.Metadata != nil {
		root.Metadata["model"] = DefaultModel
	}
	ctx, sendable, err := r.sender.CreateTrace(ctx, RootSpanName, root, r.count)
	if err != nil {
		return err
	}
	err = r.submitChildren(ctx, forest, root)
	sendable.Send()
	return err
}

func (r *Replayer) submitChildren(ctx context.Context, forest *Forest, parent *SpanRecord) error {
	for _, child := range forest.Children(parent.SpanID) {
		ctx, sendable, err := r.sender.CreateSpan(ctx, child.Name(), child)
		if err != nil {
			return err
		}
		err = r.submitChildren(ctx, forest, child)
		sendable.Send()
		if err != nil {
			return err
		}
	}
	return nil
}
