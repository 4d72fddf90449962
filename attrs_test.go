package main

import (
	"encoding/json"
	"testing"
)

func Test_recordFields(t *testing.T) {
	rec := &SpanRecord{
		ID:     "rec-1",
		Input:  json.RawMessage(`{"question":"why"}`),
		Output: json.RawMessage(`{"answer":"because"}`),
		Metadata: map[string]any{
			"model":       "gpt-4o",
			"temperature": 0.7,
			"cached":      true,
			"tags":        []any{"replay", "bench"},
		},
	}

	fields := recordFields(rec, 42)

	if fields["count"] != int64(42) {
		t.Errorf("expected count 42, got %v", fields["count"])
	}
	if fields["record_id"] != "rec-1" {
		t.Errorf("expected record_id, got %v", fields["record_id"])
	}
	if fields["input"] != `{"question":"why"}` {
		t.Errorf("expected input passed through verbatim, got %v", fields["input"])
	}
	if fields["metadata.model"] != "gpt-4o" {
		t.Errorf("expected scalar metadata kept as-is, got %v", fields["metadata.model"])
	}
	if fields["metadata.cached"] != true {
		t.Errorf("expected bool metadata kept as-is, got %v", fields["metadata.cached"])
	}
	if fields["metadata.tags"] != `["replay","bench"]` {
		t.Errorf("expected nested metadata re-encoded as JSON, got %v", fields["metadata.tags"])
	}
}

func Test_recordFields_sparseRecord(t *testing.T) {
	fields := recordFields(&SpanRecord{ID: "bare"}, 0)
	if _, ok := fields["count"]; ok {
		t.Errorf("expected no count field for count 0")
	}
	if _, ok := fields["input"]; ok {
		t.Errorf("expected no input field for an empty record")
	}
	if fields["record_id"] != "bare" {
		t.Errorf("expected record_id even on a sparse record")
	}
}
