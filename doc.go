package main

// tracereplay replays a recorded dataset of LLM/agent traces into an
// observability backend and reports how long each pass took. The dataset is
// newline-delimited JSON, one span row per line; rows are linked into trees
// through their span_parents field. The harness streams the file, reassembles
// each trace, and submits every root trace in file order through a pluggable
// sender, once per iteration.
//
// Senders:
//   - honeycomb: submits via the beeline SDK
//   - otel: submits OTLP over grpc or http to any collector
//   - print: writes a line per span to stdout (debugging)
//   - dummy: counts spans without sending (driver-overhead baseline)
//
// The replay is deliberately single-threaded and unbatched beyond what the
// vendor SDKs do themselves: the number being measured is the backend's
// ingestion rate under a realistic single-stream submission, not the
// harness's own throughput.
//
// Typical use:
//
//	go run ./cmd/preparedata          # fetch data/big_traces.jsonl
//	tracereplay --sender=otel --host=local -n 5 -l 1000
//
// cmd/gendata writes a synthetic dataset in the same shape when the real one
// is too large to be convenient. cmd/grpcsink and cmd/httpsink are local
// OTLP receivers that count unique traces and spans, so the otel sender can
// be benchmarked without credentials or a network.
