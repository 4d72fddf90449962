package main

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// rawString renders an opaque JSON value as a compact string for backends
// whose span fields are scalar.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return string(raw)
}

// recordFields flattens a record into the field map a Honeycomb-style sender
// submits. Metadata keys are flattened one level deep; nested values are
// re-encoded as JSON strings. A nonzero count is included so repeated
// iterations are distinguishable in the backend.
func recordFields(rec *SpanRecord, count int64) map[string]any {
	fields := make(map[string]any, len(rec.Metadata)+4)
	if count != 0 {
		fields["count"] = count
	}
	fields["record_id"] = rec.ID
	if in := rawString(rec.Input); in != "" {
		fields["input"] = in
	}
	if out := rawString(rec.Output); out != "" {
		fields["output"] = out
	}
	for k, v := range rec.Metadata {
		switch v.(type) {
		case string, bool, float64, int64, int:
			fields["metadata."+k] = v
		default:
			enc, err := json.Marshal(v)
			if err != nil {
				continue
			}
			fields["metadata."+k] = string(enc)
		}
	}
	return fields
}

// addSpanAttrs sets the same fields on an OTel span, keeping native types
// where the attribute API has them.
func addSpanAttrs(span trace.Span, rec *SpanRecord, count int64) {
	for k, v := range recordFields(rec, count) {
		switch val := v.(type) {
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case string:
			span.SetAttributes(attribute.String(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}
