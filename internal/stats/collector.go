// Package stats runs the cooperative task that drains per-batch
// created/updated classifications from workers and dispatches per-record
// notifications to signal subscribers, without ever touching the
// indexing hot path. Grounded on spec.md §4.D and the stats-aggregation
// idea in original_source/eevee/indexing/indexers.py's report_stats,
// split here into live notification (this package) and end-of-run
// aggregation (internal/report).
package stats

import (
	"context"

	"github.com/sudarshan/verindex/internal/searchindex"
	"github.com/sudarshan/verindex/internal/signal"
)

// Tuple is one batch's reconciliation classification, pushed by a worker
// after a flush (spec.md §4.C step 6).
type Tuple struct {
	IndexName  string
	CreatedIDs []int64
	UpdatedIDs []int64
	Payloads   map[int64]searchindex.BulkPayload
}

// Collector drains Tuples and fans them out as signal.RecordEvents.
type Collector struct {
	in      <-chan Tuple
	subject *signal.Subject
}

// NewCollector builds a Collector reading from in and notifying subject.
func NewCollector(in <-chan Tuple, subject *signal.Subject) *Collector {
	return &Collector{in: in, subject: subject}
}

// Run drains the tuple channel until it is closed or ctx is cancelled,
// dispatching one created/updated notification per record id in each
// tuple. Cancellation drains silently, matching spec.md §4.D.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case tuple, ok := <-c.in:
			if !ok {
				return
			}
			c.dispatch(tuple)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collector) dispatch(tuple Tuple) {
	for _, id := range tuple.CreatedIDs {
		c.subject.NotifyCreated(signal.RecordEvent{
			Index:    tuple.IndexName,
			RecordID: id,
			Record:   tuple.Payloads[id],
		})
	}
	for _, id := range tuple.UpdatedIDs {
		c.subject.NotifyUpdated(signal.RecordEvent{
			Index:    tuple.IndexName,
			RecordID: id,
			Record:   tuple.Payloads[id],
		})
	}
}
