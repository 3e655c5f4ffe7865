package coordinator

import "fmt"

// IndexingError is surfaced when any worker (or the feeder driving it)
// reports an error; it carries the first error observed, per spec.md
// §7: "Aggregates the first error's stringification."
type IndexingError struct {
	First error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("indexing failed: %v", e.First)
}

func (e *IndexingError) Unwrap() error { return e.First }
