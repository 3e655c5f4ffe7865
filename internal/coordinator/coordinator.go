// Package coordinator orchestrates one Worker pool per (Feeder, Index)
// pair: it owns every queue, mediates the clean-insert snapshot,
// mutates refresh intervals, aggregates the final report, and updates
// the status index. Grounded on the teacher's internal/indexer/
// indexer.go Run() pipeline (atomic progress counters, channel-based
// stage wiring), generalized from a fixed four-stage embed/index/sync
// pipeline to the seven-step sequence spec.md §4.E describes.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sudarshan/verindex/internal/cluster"
	"github.com/sudarshan/verindex/internal/feed"
	"github.com/sudarshan/verindex/internal/report"
	"github.com/sudarshan/verindex/internal/searchindex"
	"github.com/sudarshan/verindex/internal/signal"
	"github.com/sudarshan/verindex/internal/stats"
	"github.com/sudarshan/verindex/internal/status"
	"github.com/sudarshan/verindex/internal/worker"
)

// AdminClient is the set of cluster operations the coordinator itself
// performs (as opposed to the per-worker bulk/reconciliation path).
// Satisfied by *cluster.Client.
type AdminClient interface {
	IndexExists(name string) (bool, error)
	CreateIndex(ctx context.Context, name string, body map[string]any) error
	Count(ctx context.Context, name string) (int64, error)
	SetRefreshInterval(ctx context.Context, name, interval string) error
	Upsert(ctx context.Context, index, id string, doc map[string]any) error
}

// WorkerCluster is the set of cluster operations a single worker's
// private client needs. Satisfied by *cluster.Client.
type WorkerCluster interface {
	ExistingRecordIDs(ctx context.Context, index string, ids []int64) (map[int64]bool, error)
	DeleteByQuery(ctx context.Context, index string, ids []int64) error
	Bulk(ctx context.Context, body io.Reader) (*cluster.BulkResponse, error)
}

const (
	refreshDisabled = "-1"
	refreshNormal   = "30s"
	refreshDefault  = ""
)

// Pair is one (Feeder, Index) unit of work. Pairs are processed
// sequentially, not concurrently, to bound per-index contention
// (spec.md §2).
type Pair struct {
	Feeder feed.Feeder
	Index  *searchindex.Index
}

// Config configures a Coordinator run.
type Config struct {
	Admin            AdminClient
	NewWorkerCluster func() (WorkerCluster, error)

	Pairs           []Pair
	PoolSize        int
	BulkSize        int
	QueueCapacity   int
	UpdateStatus    bool
	SignalStats     bool
	Version         int64
	StatusIndexName string
	Subject         *signal.Subject
}

// Coordinator runs the indexing pipeline described in spec.md §4.E.
type Coordinator struct {
	cfg    Config
	status *status.Writer
}

// New builds a Coordinator from cfg.
func New(cfg Config) *Coordinator {
	if cfg.Subject == nil {
		cfg.Subject = signal.New()
	}
	return &Coordinator{
		cfg:    cfg,
		status: status.NewWriter(cfg.Admin, cfg.StatusIndexName),
	}
}

// Run executes the full seven-step sequence and returns the final
// IndexingReport. A failure in any pair aborts the remaining pairs and
// returns an *IndexingError wrapping the first error observed.
func (c *Coordinator) Run(ctx context.Context) (report.IndexingReport, error) {
	start := time.Now()
	builder := report.NewBuilder(c.cfg.Version, start)

	indexes := distinctIndexes(c.cfg.Pairs)

	// Step 1: define_indexes.
	if err := c.defineIndexes(ctx, indexes); err != nil {
		return report.IndexingReport{}, err
	}

	// Step 2: clean-insert snapshot, taken once before any worker spawns
	// (spec.md §9 "Clean-insert determination is a snapshot"). No
	// run-wide document total is computed here: each pair reads its own
	// feeder's Total when it starts, and about_to_index carries that
	// per-pair figure, not a sum across pairs.
	cleanIndexes, err := c.snapshotCleanIndexes(ctx, indexes)
	if err != nil {
		return report.IndexingReport{}, err
	}

	// Step 3: stats collector.
	var statsCh chan stats.Tuple
	var collectorWG sync.WaitGroup
	if c.cfg.SignalStats {
		statsCh = make(chan stats.Tuple, 10)
		collector := stats.NewCollector(statsCh, c.cfg.Subject)
		collectorWG.Add(1)
		go func() {
			defer collectorWG.Done()
			collector.Run(ctx)
		}()
	}

	var documentCount, commandCount int64

	// Step 4: drive each pair in order.
	for _, pair := range c.cfg.Pairs {
		builder.AddSource(pair.Feeder.Collection())
		builder.AddTarget(pair.Index.PrefixedName())

		cleanInsert := cleanIndexes[pair.Index.PrefixedName()]
		pairDocs, pairCommands, runErr := c.runPair(ctx, pair, cleanInsert, statsCh, builder)
		documentCount += pairDocs
		commandCount += pairCommands
		builder.AddCounts(pairDocs, pairCommands)

		if runErr != nil {
			if statsCh != nil {
				close(statsCh)
				collectorWG.Wait()
			}
			return report.IndexingReport{}, &IndexingError{First: runErr}
		}
	}

	// Step 5: stop the stats collector.
	if statsCh != nil {
		close(statsCh)
		collectorWG.Wait()
	}

	// Step 6: update_statuses.
	if err := c.updateStatuses(ctx, indexes); err != nil {
		return report.IndexingReport{}, err
	}

	// Step 7: build report, emit finished.
	rep := builder.Build(time.Now())
	c.cfg.Subject.NotifyFinished(signal.Finished{DocumentCount: documentCount, CommandCount: commandCount})

	return rep, nil
}

func distinctIndexes(pairs []Pair) []*searchindex.Index {
	seen := make(map[string]bool)
	var out []*searchindex.Index
	for _, p := range pairs {
		name := p.Index.PrefixedName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, p.Index)
	}
	return out
}

func (c *Coordinator) defineIndexes(ctx context.Context, indexes []*searchindex.Index) error {
	for _, ix := range indexes {
		exists, err := c.cfg.Admin.IndexExists(ix.PrefixedName())
		if err != nil {
			return fmt.Errorf("check index %s exists: %w", ix.PrefixedName(), err)
		}
		if exists {
			continue
		}
		if err := c.cfg.Admin.CreateIndex(ctx, ix.PrefixedName(), ix.CreationBody()); err != nil {
			return fmt.Errorf("create index %s: %w", ix.PrefixedName(), err)
		}
	}
	return nil
}

func (c *Coordinator) snapshotCleanIndexes(ctx context.Context, indexes []*searchindex.Index) (map[string]bool, error) {
	clean := make(map[string]bool, len(indexes))
	for _, ix := range indexes {
		count, err := c.cfg.Admin.Count(ctx, ix.PrefixedName())
		if err != nil {
			return nil, fmt.Errorf("count index %s: %w", ix.PrefixedName(), err)
		}
		clean[ix.PrefixedName()] = count == 0
	}
	return clean, nil
}

// runPair drives one (Feeder, Index) pair: spawns the worker pool,
// feeds documents, drains results, and restores the refresh interval
// unconditionally on exit. Returns the document and command counts
// observed, plus the first error encountered (feeder-side or
// worker-side), if any.
func (c *Coordinator) runPair(
	ctx context.Context,
	pair Pair,
	cleanInsert bool,
	statsCh chan stats.Tuple,
	builder *report.Builder,
) (documentCount, commandCount int64, err error) {
	refresh := refreshNormal
	if cleanInsert {
		refresh = refreshDisabled
	}
	if err := c.cfg.Admin.SetRefreshInterval(ctx, pair.Index.PrefixedName(), refresh); err != nil {
		return 0, 0, fmt.Errorf("set refresh interval: %w", err)
	}
	defer func() {
		// Mandatory cleanup step: restore the default regardless of
		// outcome (spec.md §4.E step 4).
		_ = c.cfg.Admin.SetRefreshInterval(context.Background(), pair.Index.PrefixedName(), refreshDefault)
	}()

	// Cancelled on the first error so the feeder goroutine and the
	// workers stop; documents already buffered in docCh may still be
	// picked up by a worker before it observes the cancellation.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	docCh := make(chan feed.SourceDocument, c.cfg.QueueCapacity)
	resultCh := make(chan worker.Result, c.cfg.PoolSize)
	errCh := make(chan error, c.cfg.PoolSize)
	var statsOut chan<- stats.Tuple
	if statsCh != nil {
		statsOut = statsCh
	}

	var progress int64
	var workerWG sync.WaitGroup
	for i := 0; i < c.cfg.PoolSize; i++ {
		workerClient, werr := c.cfg.NewWorkerCluster()
		if werr != nil {
			close(docCh)
			return 0, 0, fmt.Errorf("create worker cluster client: %w", werr)
		}
		w := worker.New(worker.Config{
			WorkerID:       i,
			Index:          pair.Index,
			Cluster:        workerClient,
			BulkSize:       c.cfg.BulkSize,
			CleanInsert:    cleanInsert,
			Docs:           docCh,
			Results:        resultCh,
			Errs:           errCh,
			Stats:          statsOut,
			CommandCounter: &progress,
		})
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			w.Run(ctx)
		}()
	}

	docStream, feederErrs := pair.Feeder.Documents(ctx)
	total, _ := pair.Feeder.Total(ctx)

	var feedErr error
feedLoop:
	for doc := range docStream {
		select {
		case e := <-errCh:
			feedErr = e
			break feedLoop
		default:
		}

		select {
		case docCh <- doc:
			documentCount++
			c.cfg.Subject.NotifyAboutToIndex(signal.AboutToIndex{
				RecordID:      doc.ID,
				FeederName:    pair.Feeder.Collection(),
				IndexName:     pair.Index.PrefixedName(),
				DocumentCount: documentCount,
				CommandCount:  atomic.LoadInt64(&progress),
				DocumentTotal: total,
			})
		case <-ctx.Done():
			feedErr = ctx.Err()
			break feedLoop
		}
	}
	if feedErr == nil {
		select {
		case e, ok := <-feederErrs:
			if ok && e != nil {
				feedErr = e
			}
		default:
		}
	}
	if feedErr != nil {
		cancel()
	}

	close(docCh)

	reported := 0
drainLoop:
	for reported < c.cfg.PoolSize {
		select {
		case res := <-resultCh:
			builder.AddSeenVersions(res.SeenVersions)
			builder.AddOperations(pair.Index.UnprefixedName(), res.Operations)
			commandCount += res.CommandsSubmitted
			reported++
		case e := <-errCh:
			if feedErr == nil {
				feedErr = e
			}
			cancel()
			reported++
		case <-ctx.Done():
			if feedErr == nil {
				feedErr = ctx.Err()
			}
			break drainLoop
		case <-time.After(3 * time.Second):
		}
	}

	workerWG.Wait()

	return documentCount, commandCount, feedErr
}

func (c *Coordinator) updateStatuses(ctx context.Context, indexes []*searchindex.Index) error {
	if err := c.status.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure status index: %w", err)
	}
	if !c.cfg.UpdateStatus {
		return nil
	}
	for _, ix := range indexes {
		doc := status.Document{
			Name:          ix.UnprefixedName(),
			IndexName:     ix.PrefixedName(),
			LatestVersion: c.cfg.Version,
		}
		if err := c.status.Upsert(ctx, doc); err != nil {
			return fmt.Errorf("update status for %s: %w", ix.PrefixedName(), err)
		}
	}
	return nil
}
