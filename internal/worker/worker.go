// Package worker implements the per-pair indexing worker: it consumes
// source documents, synthesizes bulk commands via internal/searchindex,
// batches them, performs pre-delete reconciliation, submits bulk
// requests, and reports per-batch statistics. Grounded on the teacher's
// internal/indexer/indexer.go worker-stage idiom (atomic progress
// counters, channel-range main loop) generalized from a fixed
// embed-then-index pipeline to the bulk flush protocol spec.md §4.C
// describes; the NDJSON bulk-body encoder is grounded on
// other_examples/da0fc937_...bulk_index_request.go.go's two-line
// action/document wire format.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sudarshan/verindex/internal/cluster"
	"github.com/sudarshan/verindex/internal/feed"
	"github.com/sudarshan/verindex/internal/searchindex"
	"github.com/sudarshan/verindex/internal/stats"
)

// clusterClient is the subset of *cluster.Client the worker's flush
// protocol calls. Declared here (rather than depended on directly) so
// tests can exercise the flush protocol against a fake.
type clusterClient interface {
	ExistingRecordIDs(ctx context.Context, index string, ids []int64) (map[int64]bool, error)
	DeleteByQuery(ctx context.Context, index string, ids []int64) error
	Bulk(ctx context.Context, body io.Reader) (*cluster.BulkResponse, error)
}

// Config configures one Worker. Docs is closed by the coordinator to
// signal "no more work" — the idiomatic Go rendering of spec.md's null
// sentinel (§4.C, GLOSSARY "Sentinel").
type Config struct {
	WorkerID    int
	Index       *searchindex.Index
	Cluster     clusterClient
	BulkSize    int
	CleanInsert bool

	Docs    <-chan feed.SourceDocument
	Results chan<- Result
	Errs    chan<- error
	Stats   chan<- stats.Tuple // nil when signal_stats is disabled

	// CommandCounter, when non-nil, is atomically incremented by the
	// number of commands synthesized for each document. The coordinator
	// reads it to report a live command_count on the about_to_index
	// signal without the worker and coordinator sharing any other state.
	CommandCounter *int64
}

// Result is the per-worker summary pushed onto the result queue after
// the worker drains its document channel and flushes any residual
// buffer (spec.md §4.C, end of main loop).
type Result struct {
	WorkerID          int
	CommandsSubmitted int64
	SeenVersions      map[int64]struct{}
	Operations        map[string]int64 // result_kind -> count, for this worker's index
}

// Worker runs the main loop described in spec.md §4.C.
type Worker struct {
	cfg Config

	buffer   []searchindex.BulkCommand
	idBuffer map[int64]searchindex.BulkPayload

	result Result
}

// New builds a Worker ready to Run.
func New(cfg Config) *Worker {
	return &Worker{
		cfg:      cfg,
		buffer:   make([]searchindex.BulkCommand, 0, cfg.BulkSize),
		idBuffer: make(map[int64]searchindex.BulkPayload, cfg.BulkSize),
		result: Result{
			WorkerID:     cfg.WorkerID,
			SeenVersions: make(map[int64]struct{}),
			Operations:   make(map[string]int64),
		},
	}
}

// Run drains cfg.Docs until it is closed or ctx is cancelled, batching
// and flushing commands, then posts the final Result. A context
// cancellation terminates the worker quietly with no result, matching
// spec.md's "cancellation terminates the worker quietly with no result."
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case doc, ok := <-w.cfg.Docs:
			if !ok {
				if err := w.flush(ctx); err != nil {
					w.postError(err)
					return
				}
				w.postResult()
				return
			}
			if err := w.handle(ctx, doc); err != nil {
				w.postError(err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, doc feed.SourceDocument) error {
	commands, err := w.cfg.Index.CommandsFor(doc)
	if err != nil {
		return fmt.Errorf("synthesize commands for record %d: %w", doc.ID, err)
	}
	if len(commands) == 0 {
		return nil
	}

	if w.cfg.CommandCounter != nil {
		atomic.AddInt64(w.cfg.CommandCounter, int64(len(commands)))
	}

	w.buffer = append(w.buffer, commands...)
	for _, cmd := range commands {
		if cmd.Payload.Meta.Version != nil {
			w.result.SeenVersions[*cmd.Payload.Meta.Version] = struct{}{}
		}
	}
	// The last emitted command is always the newest revision (searchindex
	// guarantees ascending order), so this overwrite lands on the latest.
	w.idBuffer[doc.ID] = commands[len(commands)-1].Payload

	if len(w.buffer) >= w.cfg.BulkSize {
		return w.flush(ctx)
	}
	return nil
}

// flush implements the six-step protocol of spec.md §4.C.
func (w *Worker) flush(ctx context.Context) error {
	if len(w.buffer) == 0 {
		return nil
	}

	batch := w.buffer
	idBuffer := w.idBuffer
	w.buffer = make([]searchindex.BulkCommand, 0, w.cfg.BulkSize)
	w.idBuffer = make(map[int64]searchindex.BulkPayload, w.cfg.BulkSize)

	w.result.CommandsSubmitted += int64(len(batch))

	ids := make([]int64, 0, len(idBuffer))
	for id := range idBuffer {
		ids = append(ids, id)
	}

	var createdIDs, updatedIDs []int64
	if w.cfg.Stats != nil {
		if w.cfg.CleanInsert {
			createdIDs = ids
		} else {
			existing, err := w.cfg.Cluster.ExistingRecordIDs(ctx, w.cfg.Index.PrefixedName(), ids)
			if err != nil {
				return fmt.Errorf("reconciliation query: %w", err)
			}
			for _, id := range ids {
				if existing[id] {
					updatedIDs = append(updatedIDs, id)
				} else {
					createdIDs = append(createdIDs, id)
				}
			}
		}
	}

	if !w.cfg.CleanInsert {
		if err := w.cfg.Cluster.DeleteByQuery(ctx, w.cfg.Index.PrefixedName(), ids); err != nil {
			return fmt.Errorf("pre-delete: %w", err)
		}
	}

	body, err := encodeBulkBody(batch)
	if err != nil {
		return fmt.Errorf("encode bulk body: %w", err)
	}

	resp, err := w.cfg.Cluster.Bulk(ctx, body)
	if err != nil {
		return fmt.Errorf("bulk submission: %w", err)
	}
	if resp.Errors {
		return &BulkSubmissionError{Response: resp}
	}

	for _, item := range resp.Items {
		w.result.Operations[item.ResultKind()]++
	}

	if w.cfg.Stats != nil {
		select {
		case w.cfg.Stats <- stats.Tuple{
			IndexName:  w.cfg.Index.UnprefixedName(),
			CreatedIDs: createdIDs,
			UpdatedIDs: updatedIDs,
			Payloads:   idBuffer,
		}:
		case <-ctx.Done():
		}
	}

	return nil
}

func (w *Worker) postResult() {
	w.cfg.Results <- w.result
}

// postError posts err prefixed with its Go type name, keeping it
// wrapped for errors.As. A cancellation is not posted: the worker ends
// quietly.
func (w *Worker) postError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	w.cfg.Errs <- fmt.Errorf("%T: %w", err, err)
}

// encodeBulkBody renders commands as the bulk protocol's NDJSON wire
// format: one action line followed by one document line per command.
func encodeBulkBody(commands []searchindex.BulkCommand) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	for _, cmd := range commands {
		actionBytes, err := json.Marshal(cmd.Action)
		if err != nil {
			return nil, fmt.Errorf("marshal action: %w", err)
		}
		buf.Write(actionBytes)
		buf.WriteByte('\n')

		payloadBytes, err := json.Marshal(cmd.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		buf.Write(payloadBytes)
		buf.WriteByte('\n')
	}
	return &buf, nil
}

// BulkSubmissionError is spec.md §7's fatal per-batch condition: the
// cluster returned errors:true at the top level of a bulk response.
type BulkSubmissionError struct {
	Response *cluster.BulkResponse
}

func (e *BulkSubmissionError) Error() string {
	raw, _ := json.Marshal(e.Response)
	return fmt.Sprintf("bulk submission reported errors: %s", raw)
}
