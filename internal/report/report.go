// Package report builds the end-of-run IndexingReport (spec.md §3) and
// persists a history of past reports to disk, adapted from the
// teacher's on-disk cache.
package report

import (
	"sort"
	"time"
)

// OperationCounts maps a bulk result kind ("created", "updated",
// "noop", "deleted", ...) to the number of commands that produced it,
// for one target index.
type OperationCounts map[string]int64

// IndexingReport is generated at the end of a run (spec.md §3).
type IndexingReport struct {
	Version         int64                      `json:"version"`
	Versions        []int64                    `json:"versions"`
	Sources         []string                   `json:"sources"`
	Targets         []string                   `json:"targets"`
	Start           time.Time                  `json:"start"`
	End             time.Time                  `json:"end"`
	DurationSeconds float64                    `json:"duration_seconds"`
	Operations      map[string]OperationCounts `json:"operations"`
	DocumentCount   int64                      `json:"document_count"`
	CommandCount    int64                      `json:"command_count"`
}

// Builder accumulates the inputs to an IndexingReport across (Feeder,
// Index) pairs as the coordinator processes them, then produces the
// final sorted, immutable report.
type Builder struct {
	start      time.Time
	versions   map[int64]struct{}
	sources    map[string]struct{}
	targets    map[string]struct{}
	operations map[string]OperationCounts
	version    int64
	docCount   int64
	cmdCount   int64
}

// NewBuilder starts a report for the given run version.
func NewBuilder(version int64, start time.Time) *Builder {
	return &Builder{
		start:      start,
		versions:   make(map[int64]struct{}),
		sources:    make(map[string]struct{}),
		targets:    make(map[string]struct{}),
		operations: make(map[string]OperationCounts),
		version:    version,
	}
}

// AddSource records a feeder collection name.
func (b *Builder) AddSource(name string) { b.sources[name] = struct{}{} }

// AddTarget records a prefixed target index name.
func (b *Builder) AddTarget(name string) { b.targets[name] = struct{}{} }

// AddSeenVersions folds a worker's seen-versions set into the run total.
func (b *Builder) AddSeenVersions(versions map[int64]struct{}) {
	for v := range versions {
		b.versions[v] = struct{}{}
	}
}

// AddOperations folds a worker's per-result-kind counts into the
// aggregate for unprefixedIndex.
func (b *Builder) AddOperations(unprefixedIndex string, counts map[string]int64) {
	existing, ok := b.operations[unprefixedIndex]
	if !ok {
		existing = OperationCounts{}
		b.operations[unprefixedIndex] = existing
	}
	for kind, n := range counts {
		existing[kind] += n
	}
}

// AddCounts folds document/command totals observed while draining one
// (Feeder, Index) pair.
func (b *Builder) AddCounts(documents, commands int64) {
	b.docCount += documents
	b.cmdCount += commands
}

// Build produces the final report as of end.
func (b *Builder) Build(end time.Time) IndexingReport {
	return IndexingReport{
		Version:         b.version,
		Versions:        sortedInt64Keys(b.versions),
		Sources:         sortedStringKeys(b.sources),
		Targets:         sortedStringKeys(b.targets),
		Start:           b.start,
		End:             end,
		DurationSeconds: end.Sub(b.start).Seconds(),
		Operations:      b.operations,
		DocumentCount:   b.docCount,
		CommandCount:    b.cmdCount,
	}
}

func sortedInt64Keys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStringKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
