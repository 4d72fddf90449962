package main

import (
	"context"

	"github.com/honeycombio/beeline-go"
	"github.com/honeycombio/beeline-go/trace"
)

// SenderHoneycomb submits replayed traces through the beeline SDK. The
// beeline batches and ships events on its own; Flush drains its queue so a
// timed pass doesn't leak sends into the next one.
type SenderHoneycomb struct{}

// make sure it implements Sender
var _ Sender = (*SenderHoneycomb)(nil)

type beelineSendable struct {
	span *trace.Span
}

func (s beelineSendable) Send() {
	s.span.Send()
}

func NewSenderHoneycomb(opts *Options) *SenderHoneycomb {
	beeline.Init(beeline.Config{
		WriteKey:    opts.Telemetry.APIKey,
		APIHost:     opts.apihost.String(),
		Dataset:     opts.Telemetry.Dataset,
		ServiceName: "tracereplay",
		Debug:       opts.DebugLevel() > 2,
	})
	return &SenderHoneycomb{}
}

func (t *SenderHoneycomb) Close() {
	beeline.Close()
}

func (t *SenderHoneycomb) Flush() error {
	beeline.Flush(context.Background())
	return nil
}

func (t *SenderHoneycomb) CreateTrace(ctx context.Context, name string, rec *SpanRecord, count int64) (context.Context, Sendable, error) {
	ctx, span := beeline.StartSpan(ctx, name)
	for k, v := range recordFields(rec, count) {
		span.AddField(k, v)
	}
	return ctx, beelineSendable{span: span}, nil
}

func (t *SenderHoneycomb) CreateSpan(ctx context.Context, name string, rec *SpanRecord) (context.Context, Sendable, error) {
	ctx, span := beeline.StartSpan(ctx, name)
	for k, v := range recordFields(rec, 0) {
		span.AddField(k, v)
	}
	return ctx, beelineSendable{span: span}, nil
}
