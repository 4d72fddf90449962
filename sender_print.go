package main

import (
	"context"
	"fmt"
	"time"
)

// make sure it implements Sender
var _ Sender = (*SenderPrint)(nil)

func ft(ts time.Time) string {
	return ts.Format("15:04:05.000")
}

type printTraceInfo struct {
	TraceID  string
	SpanID   string
	ParentID string
}

type PrintSendable struct {
	TInfo     printTraceInfo
	Name      string
	StartTime time.Time
	Fields    map[string]any
}

func (s *PrintSendable) Send() {
	endTime := time.Now()
	fmt.Printf("%s - T:%8.8s S:%8.8s P:%8.8s start:%v end:%v %v\n",
		s.Name, s.TInfo.TraceID, s.TInfo.SpanID, s.TInfo.ParentID, ft(s.StartTime), ft(endTime), s.Fields)
}

// SenderPrint writes one line per span to stdout using the dataset's own
// identifiers, which makes it the easiest way to eyeball what a replay would
// submit.
type SenderPrint struct {
	tracecount int
	nspans     int
	log        Logger
}

func NewSenderPrint(log Logger, opts *Options) Sender {
	return &SenderPrint{log: log}
}

func (t *SenderPrint) Close() {
	t.log.Warn("sender sent %d traces with %d spans\n", t.tracecount, t.nspans)
}

func (t *SenderPrint) Flush() error {
	return nil
}

type printKey string

func (t *SenderPrint) CreateTrace(ctx context.Context, name string, rec *SpanRecord, count int64) (context.Context, Sendable, error) {
	t.tracecount++
	t.nspans++
	tinfo := printTraceInfo{
		TraceID: rec.ID,
		SpanID:  rec.SpanID,
	}
	ctx = context.WithValue(ctx, printKey("trace"), tinfo)
	return ctx, &PrintSendable{
		Name:      name,
		TInfo:     tinfo,
		StartTime: time.Now(),
		Fields:    recordFields(rec, count),
	}, nil
}

func (t *SenderPrint) CreateSpan(ctx context.Context, name string, rec *SpanRecord) (context.Context, Sendable, error) {
	t.nspans++
	parent, _ := ctx.Value(printKey("trace")).(printTraceInfo)
	tinfo := printTraceInfo{
		TraceID:  parent.TraceID,
		SpanID:   rec.SpanID,
		ParentID: parent.SpanID,
	}
	ctx = context.WithValue(ctx, printKey("trace"), tinfo)
	return ctx, &PrintSendable{
		Name:      name,
		TInfo:     tinfo,
		StartTime: time.Now(),
		Fields:    recordFields(rec, 0),
	}, nil
}
