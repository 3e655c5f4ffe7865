// Package webhook is a concrete signal.Subject subscriber: it delivers
// created/updated record notifications to an HTTP endpoint. Adapted
// from the teacher's internal/embedding/client.go (semaphore-bounded,
// rate-limited HTTP client with retry), repurposed from fetching
// embeddings to delivering best-effort outbound notifications.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sudarshan/verindex/internal/signal"
)

// Config configures a Client.
type Config struct {
	URL           string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int64
	RatePerSecond float64
}

// notification is the JSON body posted to Config.URL for every
// created/updated record event.
type notification struct {
	Kind     string         `json:"kind"` // "created" | "updated"
	Index    string         `json:"index"`
	RecordID int64          `json:"record_id"`
	Record   map[string]any `json:"record"`
}

// Client delivers notifications to a webhook endpoint, bounding
// concurrency with a semaphore and pacing requests with a rate
// limiter, exactly as the teacher's embedding client does for its
// upstream service. Unlike the indexing hot path (spec.md §7: "no
// automatic retries at any level"), this is a best-effort ambient
// concern, so it keeps the teacher's retry-with-backoff behavior —
// a delivery failure here must never fail the run.
type Client struct {
	httpClient *http.Client
	cfg        Config
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
}

// NewClient builds a Client. An empty URL disables the subscriber
// (Notify becomes a no-op), which lets callers wire webhook support
// unconditionally and simply leave the URL unset. A MaxConcurrent below
// 1 is raised to 1.
func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		sem:        semaphore.NewWeighted(max64(cfg.MaxConcurrent, 1)),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

func max64(v, floor int64) int64 {
	if v < floor {
		return floor
	}
	return v
}

// Notify delivers one notification, retrying with exponential backoff
// for at most MaxRetries attempts in total. Errors are logged by the caller (see
// AsCreatedSubscriber/AsUpdatedSubscriber), never propagated into the
// indexing hot path.
func (c *Client) Notify(ctx context.Context, n notification) error {
	if c.cfg.URL == "" {
		return nil
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire webhook semaphore: %w", err)
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for webhook rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := c.doRequest(ctx, n); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt < c.cfg.MaxRetries-1 {
			backoff := time.Duration(1<<attempt) * time.Second
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("webhook delivery failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, n notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// AsCreatedSubscriber adapts Client into a signal.Subject OnCreated
// callback. Delivery errors are swallowed after logging by the caller's
// errLog; the observer fanout must never stall or fail indexing.
func (c *Client) AsCreatedSubscriber(errLog func(error)) func(signal.RecordEvent) {
	return func(e signal.RecordEvent) {
		err := c.Notify(context.Background(), notification{
			Kind:     "created",
			Index:    e.Index,
			RecordID: e.RecordID,
			Record:   e.Record.Data,
		})
		if err != nil && errLog != nil {
			errLog(err)
		}
	}
}

// AsUpdatedSubscriber is AsCreatedSubscriber's "updated" counterpart.
func (c *Client) AsUpdatedSubscriber(errLog func(error)) func(signal.RecordEvent) {
	return func(e signal.RecordEvent) {
		err := c.Notify(context.Background(), notification{
			Kind:     "updated",
			Index:    e.Index,
			RecordID: e.RecordID,
			Record:   e.Record.Data,
		})
		if err != nil && errLog != nil {
			errLog(err)
		}
	}
}
