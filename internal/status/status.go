// Package status manages the auxiliary status index: one document per
// target index recording the last successfully completed run version
// (spec.md §3 "Status Document", GLOSSARY "Status index").
package status

import (
	"context"
	"fmt"
)

// Document is one status index entry, keyed by IndexName.
type Document struct {
	Name         string `json:"name"`
	IndexName    string `json:"index_name"`
	LatestVersion int64 `json:"latest_version"`
}

// clusterClient is the subset of *cluster.Client status operations need.
type clusterClient interface {
	IndexExists(name string) (bool, error)
	CreateIndex(ctx context.Context, name string, body map[string]any) error
	Upsert(ctx context.Context, index, id string, doc map[string]any) error
}

// Writer ensures the status index exists and upserts status documents
// into it. Grounded on the teacher's internal/opensearch/client.go
// CreateIndex/BulkIndex conventions, applied here to a single small
// index and single-document upserts rather than the bulk path.
type Writer struct {
	cluster   clusterClient
	indexName string
}

// NewWriter builds a Writer targeting indexName.
func NewWriter(cluster clusterClient, indexName string) *Writer {
	return &Writer{cluster: cluster, indexName: indexName}
}

// EnsureIndex creates the status index if absent: single shard, one
// replica; name/index_name as keyword, latest_version as a date in
// epoch millis (spec.md §4.E step 6).
func (w *Writer) EnsureIndex(ctx context.Context) error {
	exists, err := w.cluster.IndexExists(w.indexName)
	if err != nil {
		return fmt.Errorf("check status index exists: %w", err)
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 1,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"name":       map[string]any{"type": "keyword"},
				"index_name": map[string]any{"type": "keyword"},
				"latest_version": map[string]any{
					"type":   "date",
					"format": "epoch_millis",
				},
			},
		},
	}
	if err := w.cluster.CreateIndex(ctx, w.indexName, body); err != nil {
		return fmt.Errorf("create status index: %w", err)
	}
	return nil
}

// Upsert writes one status document, keyed by its prefixed index name.
func (w *Writer) Upsert(ctx context.Context, doc Document) error {
	body := map[string]any{
		"name":           doc.Name,
		"index_name":     doc.IndexName,
		"latest_version": doc.LatestVersion,
	}
	if err := w.cluster.Upsert(ctx, w.indexName, doc.IndexName, body); err != nil {
		return fmt.Errorf("upsert status document for %s: %w", doc.IndexName, err)
	}
	return nil
}
