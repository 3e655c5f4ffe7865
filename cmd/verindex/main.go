package main

import (
	"context"
	"flag"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/sudarshan/verindex/internal/cliui"
	"github.com/sudarshan/verindex/internal/cluster"
	"github.com/sudarshan/verindex/internal/config"
	"github.com/sudarshan/verindex/internal/coordinator"
	"github.com/sudarshan/verindex/internal/feed"
	"github.com/sudarshan/verindex/internal/report"
	"github.com/sudarshan/verindex/internal/searchindex"
	"github.com/sudarshan/verindex/internal/signal"
	"github.com/sudarshan/verindex/internal/webhook"
)

func main() {
	version := flag.Int64("version", time.Now().UnixMilli(), "run version stamp (epoch milliseconds)")
	workers := flag.Int("workers", 0, "number of parallel workers (0 = use config default)")
	quiet := flag.Bool("quiet", false, "suppress progress output")
	versionlessReject := flag.Bool("reject-versionless", false, "reject source documents with no versions instead of applying the sentinel version")
	flag.Parse()

	cfg := config.Load()
	if *workers > 0 {
		cfg.NumWorkers = *workers
	}

	log.Println("===========================================================")
	log.Println("  verindex - versioned bulk indexing pipeline")
	log.Println("===========================================================")
	log.Printf("  Collection: %s", cfg.MongoCollection)
	log.Printf("  Index:      %s%s", cfg.IndexPrefix, cfg.MongoCollection)
	log.Printf("  Workers:    %d", cfg.NumWorkers)
	log.Printf("  Bulk size:  %d", cfg.BulkSize)
	log.Printf("  Version:    %d", *version)
	log.Println("===========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	osSigChan := make(chan os.Signal, 1)
	osSignal.Notify(osSigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-osSigChan
		log.Println("received shutdown signal, cancelling...")
		cancel()
	}()

	if err := run(ctx, cfg, *version, *quiet, *versionlessReject); err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, version int64, quiet, versionlessReject bool) error {
	feeder, err := feed.NewMongoFeeder(ctx, feed.MongoConfig{
		URI:         cfg.MongoURI,
		Collection:  cfg.MongoCollection,
		MaxPoolSize: cfg.MongoMaxPoolSize,
		BatchSize:   cfg.MongoBatchSize,
	})
	if err != nil {
		return err
	}
	defer feeder.Close(context.Background())
	log.Println("connected to MongoDB")

	admin, err := cluster.New(cluster.Config{
		Hosts:       cfg.OpenSearchHosts,
		Username:    cfg.OpenSearchUser,
		Password:    cfg.OpenSearchPassword,
		VerifyCerts: cfg.OpenSearchVerifyCerts,
	})
	if err != nil {
		return err
	}
	log.Println("connected to OpenSearch")

	policy := searchindex.VersionlessSentinel
	if versionlessReject {
		policy = searchindex.VersionlessReject
	}
	index := searchindex.New(cfg.IndexPrefix, cfg.MongoCollection, version, policy)

	hook := webhook.NewClient(webhook.Config{
		URL:           cfg.WebhookURL,
		Timeout:       cfg.WebhookTimeout,
		MaxRetries:    cfg.WebhookMaxRetries,
		MaxConcurrent: int64(cfg.WebhookMaxConcurrent),
		RatePerSecond: cfg.WebhookRatePerSecond,
	})
	logWebhookErr := func(err error) { log.Printf("webhook delivery failed: %v", err) }

	ui := cliui.New(quiet)
	subject := signal.New()
	subject.OnAboutToIndex(ui.OnAboutToIndex)
	subject.OnCreated(hook.AsCreatedSubscriber(logWebhookErr))
	subject.OnUpdated(hook.AsUpdatedSubscriber(logWebhookErr))

	history, err := report.NewHistory(cfg.HistoryDir)
	if err != nil {
		return err
	}
	if err := history.Load(); err != nil {
		log.Printf("failed to load report history: %v", err)
	}

	total, _ := feeder.Total(ctx)
	ui.StartPair(feeder.Collection(), index.PrefixedName(), total)

	c := coordinator.New(coordinator.Config{
		Admin: admin,
		NewWorkerCluster: func() (coordinator.WorkerCluster, error) {
			return cluster.New(cluster.Config{
				Hosts:       cfg.OpenSearchHosts,
				Username:    cfg.OpenSearchUser,
				Password:    cfg.OpenSearchPassword,
				VerifyCerts: cfg.OpenSearchVerifyCerts,
			})
		},
		Pairs:           []coordinator.Pair{{Feeder: feeder, Index: index}},
		PoolSize:        cfg.NumWorkers,
		BulkSize:        cfg.BulkSize,
		QueueCapacity:   cfg.QueueCapacity,
		UpdateStatus:    cfg.UpdateStatus,
		SignalStats:     cfg.SignalStats,
		Version:         version,
		StatusIndexName: cfg.StatusIndexName,
		Subject:         subject,
	})

	rep, err := c.Run(ctx)
	ui.EndPair()
	if err != nil {
		ui.Error(err)
		return err
	}

	ui.Summary(rep)
	if err := history.Append(rep); err != nil {
		log.Printf("failed to persist report history: %v", err)
	}
	return nil
}
