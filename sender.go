package main

import "context"

// A Sendable is a span that has been started but not yet shipped; Send marks
// it finished. Senders hand these back so the replayer can close spans in
// post-order, children before parents, the way the traces were recorded.
type Sendable interface {
	Send()
}

// Sender is the boundary to an ingestion backend. CreateTrace starts the
// root span of one replayed trace; CreateSpan starts a child span within the
// trace carried by ctx. An error from either means the backend rejected the
// record. Flush pushes anything the backend has buffered; Close releases the
// backend for good.
//
// Senders are driven sequentially from a single goroutine and don't need to
// be safe for concurrent use.
type Sender interface {
	CreateTrace(ctx context.Context, name string, rec *SpanRecord, count int64) (context.Context, Sendable, error)
	CreateSpan(ctx context.Context, name string, rec *SpanRecord) (context.Context, Sendable, error)
	Flush() error
	Close()
}
