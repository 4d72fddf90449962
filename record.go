package main

import "encoding/json"

// The dataset's root spans don't carry a useful name of their own, so every
// replayed root gets this one, matching how the traces were originally
// recorded.
const RootSpanName = "Chat Pipeline"

// DefaultModel is stamped into each root's metadata at submit time so the
// backend can group the replayed traces by model.
const DefaultModel = "gpt-4o"

// SpanRecord is one decoded line of the dataset. The harness only interprets
// the identity and linkage fields; input, output, and metadata are passed
// through to the backend unmodified.
type SpanRecord struct {
	ID             string          `json:"id"`
	SpanID         string          `json:"span_id"`
	SpanParents    []string        `json:"span_parents"`
	SpanAttributes SpanAttributes  `json:"span_attributes"`
	Input          json.RawMessage `json:"input"`
	Output         json.RawMessage `json:"output"`
	Metadata       map[string]any  `json:"metadata"`
}

type SpanAttributes struct {
	Name string `json:"name"`
}

// Name returns the span's recorded name, or a placeholder when the row
// didn't have one.
func (r *SpanRecord) Name() string {
	if r.SpanAttributes.Name == "" {
		return "span"
	}
	return r.SpanAttributes.Name
}

// A Forest indexes one pass worth of records into trees: every record is
// reachable either as a root (no parents, or flatten mode) or as a child of
// each span listed in its span_parents. Rows whose parents never appear in
// the pass are treated as roots rather than dropped, so a limit that cuts a
// trace in half still replays the remainder.
type Forest struct {
	flatten  bool
	byID     map[string]*SpanRecord
	bySpanID map[string]struct{}
	children map[string][]string // parent span_id -> child record ids, file order
	order    []string            // record ids, file order
}

func NewForest(flatten bool) *Forest {
	return &Forest{
		flatten:  flatten,
		byID:     make(map[string]*SpanRecord),
		bySpanID: make(map[string]struct{}),
		children: make(map[string][]string),
	}
}

func (f *Forest) Add(rec *SpanRecord) {
	f.byID[rec.ID] = rec
	f.bySpanID[rec.SpanID] = struct{}{}
	f.order = append(f.order, rec.ID)
	if f.flatten {
		return
	}
	for _, parent := range rec.SpanParents {
		f.children[parent] = append(f.children[parent], rec.ID)
	}
}

func (f *Forest) Len() int {
	return len(f.order)
}

// Roots returns the root records in file order. A record is a root if it has
// no parents, if flatten mode is on, or if none of its parents showed up in
// this pass.
func (f *Forest) Roots() []*SpanRecord {
	roots := make([]*SpanRecord, 0, len(f.order))
	for _, id := range f.order {
		rec := f.byID[id]
		if f.isRoot(rec) {
			roots = append(roots, rec)
		}
	}
	return roots
}

func (f *Forest) isRoot(rec *SpanRecord) bool {
	if f.flatten || len(rec.SpanParents) == 0 {
		return true
	}
	for _, parent := range rec.SpanParents {
		if _, ok := f.bySpanID[parent]; ok {
			return false
		}
	}
	return true
}

// Children returns the records parented under the given span id, in file
// order.
func (f *Forest) Children(spanID string) []*SpanRecord {
	ids := f.children[spanID]
	if len(ids) == 0 {
		return nil
	}
	recs := make([]*SpanRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, f.byID[id])
	}
	return recs
}
