package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/promptfire/internal/stats"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	agg      *stats.Aggregator
	total    int
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(agg *stats.Aggregator, total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		agg:      agg,
		total:    total,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			snap := p.agg.Snapshot()
			line := fmt.Sprintf("\rRequests: %d/%d | Successes: %d | Failures: %d | RPS: %.1f",
				snap.Total, p.total, snap.Successes, snap.Failures, snap.RequestsSec)
			if snap.P95Ms > 0 {
				line += fmt.Sprintf(" | P95: %.0fms", snap.P95Ms)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
