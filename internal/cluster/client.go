// Package cluster wraps the search cluster's wire transport: index
// lifecycle, bulk submission, reconciliation queries, and refresh-interval
// control. It knows nothing about records, versions, or the bulk command
// synthesis rules — those live in internal/searchindex and internal/worker.
// Grounded on the teacher's internal/opensearch/client.go.
package cluster

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Config holds the connection parameters for one cluster client.
type Config struct {
	Hosts       []string
	Username    string
	Password    string
	VerifyCerts bool
}

// Client wraps *opensearch.Client with the operations the indexing
// pipeline needs. Each worker owns a private Client (spec.md §5:
// "Each worker owns a private client"); sniffing and compression are
// disabled on the underlying transport to keep bulk throughput
// predictable, matching the teacher's NewClient transport setup.
type Client struct {
	raw *opensearch.Client
}

// New dials the cluster and verifies connectivity via an Info call,
// exactly as the teacher's NewClient does.
func New(cfg Config) (*Client, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !cfg.VerifyCerts,
		},
		DisableCompression: true,
	}

	raw, err := opensearch.NewClient(opensearch.Config{
		Addresses:            cfg.Hosts,
		Username:             cfg.Username,
		Password:             cfg.Password,
		Transport:            transport,
		DisableRetry:         true,
		EnableRetryOnTimeout: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create cluster client: %w", err)
	}

	res, err := raw.Info()
	if err != nil {
		return nil, fmt.Errorf("cluster info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("cluster info error: %s", res.String())
	}

	return &Client{raw: raw}, nil
}

// IndexExists reports whether name already exists in the cluster.
func (c *Client) IndexExists(name string) (bool, error) {
	res, err := c.raw.Indices.Exists([]string{name})
	if err != nil {
		return false, fmt.Errorf("index exists: %w", err)
	}
	defer res.Body.Close()
	return res.StatusCode == http.StatusOK, nil
}

// CreateIndex creates name with the given mapping/settings body. body is
// marshaled as-is; callers pass searchindex.Index.CreationBody().
func (c *Client) CreateIndex(ctx context.Context, name string, body map[string]any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}

	req := opensearchapi.IndicesCreateRequest{
		Index: name,
		Body:  bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.String())
	}
	return nil
}

// Count returns the number of documents currently in name. Used by the
// coordinator to compute the clean-insert snapshot.
func (c *Client) Count(ctx context.Context, name string) (int64, error) {
	req := opensearchapi.CountRequest{Index: []string{name}}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return body.Count, nil
}

// ExistingRecordIDs searches name for documents whose data._id is in ids,
// returning the subset that already exists. Used in the worker's flush
// protocol step 2 (reconciliation stats) when clean_insert is false.
func (c *Client) ExistingRecordIDs(ctx context.Context, name string, ids []int64) (map[int64]bool, error) {
	if len(ids) == 0 {
		return map[int64]bool{}, nil
	}

	query := map[string]any{
		"size":    len(ids),
		"_source": []string{"data._id"},
		"query": map[string]any{
			"terms": map[string]any{
				"data._id": ids,
			},
		},
	}
	raw, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{name},
		Body:  bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return map[int64]bool{}, nil
		}
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Data struct {
						ID int64 `json:"_id"`
					} `json:"data"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	found := make(map[int64]bool, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		found[hit.Source.Data.ID] = true
	}
	return found, nil
}

// DeleteByQuery removes every document in name whose data._id is in ids.
// This is the worker's pre-delete step (spec.md §4.C step 3).
func (c *Client) DeleteByQuery(ctx context.Context, name string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := map[string]any{
		"query": map[string]any{
			"terms": map[string]any{
				"data._id": ids,
			},
		},
	}
	raw, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("marshal delete_by_query body: %w", err)
	}

	req := opensearchapi.DeleteByQueryRequest{
		Index: []string{name},
		Body:  bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("delete_by_query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete_by_query error: %s", res.String())
	}
	return nil
}

// Bulk submits body (pre-encoded NDJSON, produced by internal/worker) to
// the cluster's bulk endpoint and returns the parsed response.
func (c *Client) Bulk(ctx context.Context, body io.Reader) (*BulkResponse, error) {
	req := opensearchapi.BulkRequest{Body: body}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return nil, fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk error: %s", res.String())
	}

	var parsed BulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	return &parsed, nil
}

// Upsert indexes a single document with an explicit _id, used by the
// status writer (internal/status) to write status documents.
func (c *Client) Upsert(ctx context.Context, index, id string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("upsert error: %s", res.String())
	}
	return nil
}

// SetRefreshInterval sets name's refresh_interval. Pass "-1" to disable
// refresh during a clean insert, "30s" for a normal run, or "" to reset
// to the server default (spec.md §4.E step 4's cleanup step passes null,
// rendered here as an empty string that is translated to JSON null).
func (c *Client) SetRefreshInterval(ctx context.Context, name, interval string) error {
	var value any = interval
	if interval == "" {
		value = nil
	}
	body := map[string]any{
		"index": map[string]any{
			"refresh_interval": value,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal settings body: %w", err)
	}

	req := opensearchapi.IndicesPutSettingsRequest{
		Index: []string{name},
		Body:  bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, c.raw)
	if err != nil {
		return fmt.Errorf("set refresh interval: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("set refresh interval error: %s", res.String())
	}
	return nil
}

// BulkResponse is the subset of the bulk endpoint's response body the
// pipeline needs: whether any item failed, and each item's result kind
// keyed by its position in the request.
type BulkResponse struct {
	Errors bool               `json:"errors"`
	Items  []BulkResponseItem `json:"items"`
	Raw    string             `json:"-"`
}

// BulkResponseItem is one entry of the bulk response's "items" array.
type BulkResponseItem struct {
	Index BulkResponseAction `json:"index"`
}

// BulkResponseAction carries the per-item outcome of a bulk "index" op.
type BulkResponseAction struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
	Status int    `json:"status"`
}

// ResultKind classifies a bulk response item for operation counting
// (spec.md §4.C step 5). A non-2xx status with no "result" string (a
// hard per-item error) is reported as "error".
func (item BulkResponseItem) ResultKind() string {
	if item.Index.Status < 200 || item.Index.Status >= 300 {
		if item.Index.Result != "" {
			return item.Index.Result
		}
		return "error"
	}
	return item.Index.Result
}
