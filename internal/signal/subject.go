// Package signal implements the observer fanout spec.md §9 describes as
// "a simple subject registering zero-or-more subscribers, each an opaque
// callable". Grounded on the monitor-registration idea in
// original_source/eevee/indexing/indexers.py's register_monitor, rendered
// here as typed Go func subscribers instead of an untyped callback list.
package signal

import "github.com/sudarshan/verindex/internal/searchindex"

// AboutToIndex is fired before the coordinator enqueues a source document.
type AboutToIndex struct {
	RecordID      int64
	FeederName    string
	IndexName     string
	DocumentCount int64
	CommandCount  int64
	DocumentTotal int64
}

// RecordEvent is fired for a single record after it has been indexed,
// classified as either created or updated.
type RecordEvent struct {
	Index    string
	RecordID int64
	Record   searchindex.BulkPayload
}

// Finished is fired once at run end.
type Finished struct {
	DocumentCount int64
	CommandCount  int64
}

// Subject is the fanout point: zero or more subscribers per event kind.
// Subscribers are invoked serially by whoever calls Notify* — the stats
// collector for created/updated, the coordinator for about_to_index and
// finished, never a worker — so a slow created/updated subscriber never
// stalls bulk throughput; it only applies backpressure through the
// bounded stats queue that feeds the collector (spec.md §9).
type Subject struct {
	onAboutToIndex []func(AboutToIndex)
	onCreated      []func(RecordEvent)
	onUpdated      []func(RecordEvent)
	onFinished     []func(Finished)
}

// New returns an empty Subject.
func New() *Subject {
	return &Subject{}
}

// OnAboutToIndex registers a subscriber for the about_to_index signal.
func (s *Subject) OnAboutToIndex(fn func(AboutToIndex)) {
	s.onAboutToIndex = append(s.onAboutToIndex, fn)
}

// OnCreated registers a subscriber for the created signal.
func (s *Subject) OnCreated(fn func(RecordEvent)) {
	s.onCreated = append(s.onCreated, fn)
}

// OnUpdated registers a subscriber for the updated signal.
func (s *Subject) OnUpdated(fn func(RecordEvent)) {
	s.onUpdated = append(s.onUpdated, fn)
}

// OnFinished registers a subscriber for the finished signal.
func (s *Subject) OnFinished(fn func(Finished)) {
	s.onFinished = append(s.onFinished, fn)
}

// NotifyAboutToIndex invokes every about_to_index subscriber in registration order.
func (s *Subject) NotifyAboutToIndex(e AboutToIndex) {
	for _, fn := range s.onAboutToIndex {
		fn(e)
	}
}

// NotifyCreated invokes every created subscriber in registration order.
func (s *Subject) NotifyCreated(e RecordEvent) {
	for _, fn := range s.onCreated {
		fn(e)
	}
}

// NotifyUpdated invokes every updated subscriber in registration order.
func (s *Subject) NotifyUpdated(e RecordEvent) {
	for _, fn := range s.onUpdated {
		fn(e)
	}
}

// NotifyFinished invokes every finished subscriber in registration order.
func (s *Subject) NotifyFinished(e Finished) {
	for _, fn := range s.onFinished {
		fn(e)
	}
}
