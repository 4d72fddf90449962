package main

import (
	"log"
	"sync"
	"time"
)

// maxWindowSeconds is the widest rolling average we report; older per-second
// buckets are dropped.
const maxWindowSeconds = 60

// rateTracker keeps per-second span counts and periodically logs rolling
// spans/sec averages, which is the number a replay benchmark actually wants
// from the receiving side.
type rateTracker struct {
	mu             sync.Mutex
	perSecond      map[int64]int // unix second -> spans
	startTime      time.Time
	totalSpans     int
	lastReport     time.Time
	reportInterval time.Duration
}

func newRateTracker(reportInterval time.Duration) *rateTracker {
	now := time.Now()
	return &rateTracker{
		perSecond:      make(map[int64]int),
		startTime:      now,
		lastReport:     now,
		reportInterval: reportInterval,
	}
}

// track adds spans to the current second and reports when the report
// interval has passed.
func (t *rateTracker) track(count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.perSecond[now.Unix()] += count
	t.totalSpans += count

	// drop buckets no window can see so a long run doesn't grow the map
	// one entry per second forever
	oldest := now.Unix() - maxWindowSeconds
	for ts := range t.perSecond {
		if ts < oldest {
			delete(t.perSecond, ts)
		}
	}

	if now.Sub(t.lastReport) >= t.reportInterval {
		log.Printf("spans per second: %.2f (1s) | %.2f (10s) | %.2f (60s) | total: %d",
			t.rate(now, 1), t.rate(now, 10), t.rate(now, maxWindowSeconds), t.totalSpans)
		t.lastReport = now
	}
}

// rate returns the average spans/sec over the trailing window, using however
// much history exists when the tracker is younger than the window. Callers
// hold t.mu.
func (t *rateTracker) rate(now time.Time, seconds int) float64 {
	cutoff := now.Add(-time.Duration(seconds) * time.Second).Unix()
	var total int
	for ts, count := range t.perSecond {
		if ts >= cutoff {
			total += count
		}
	}

	window := int64(seconds)
	if elapsed := now.Unix() - t.startTime.Unix(); elapsed < window {
		window = elapsed
		if window == 0 {
			window = 1
		}
	}
	return float64(total) / float64(window)
}
