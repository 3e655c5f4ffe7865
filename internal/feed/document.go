// Package feed defines the source-document contract the coordinator reads
// from, and a MongoDB-backed implementation.
package feed

import "context"

// SourceDocument is a record drawn from the upstream document store. ID is
// the record's stable identity across revisions. Versions is the ascending,
// unique sequence of version stamps (epoch milliseconds) the record has
// been observed at; History holds the data payload for each entry in
// Versions. A record with no Versions carries its single payload in Data
// instead (the "versionless" case, see searchindex.Index.CommandsFor).
type SourceDocument struct {
	ID       int64
	Versions []int64
	History  map[int64]map[string]any
	Data     map[string]any
}

// Feeder produces a finite ordered stream of SourceDocuments for one
// logical source collection and reports the expected total, consistent
// with spec.md §4.B. Feeders are single-reader: the coordinator consumes
// each exactly once.
type Feeder interface {
	// Documents streams the feeder's documents on the returned channel,
	// which is closed when the feeder is exhausted or ctx is cancelled.
	// The error channel carries at most one error before being closed.
	Documents(ctx context.Context) (<-chan SourceDocument, <-chan error)

	// Total returns the expected document count, used only for progress
	// reporting. A slight over-count is tolerated; an under-count yields a
	// progress ratio above 1.0.
	Total(ctx context.Context) (int64, error)

	// Collection names the logical source, used in the IndexingReport's
	// "sources" set and in the about_to_index signal.
	Collection() string
}
