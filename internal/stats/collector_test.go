package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudarshan/verindex/internal/searchindex"
	"github.com/sudarshan/verindex/internal/signal"
)

func TestCollector_DispatchesCreatedAndUpdated(t *testing.T) {
	subject := signal.New()
	var createdIDs, updatedIDs []int64
	subject.OnCreated(func(e signal.RecordEvent) { createdIDs = append(createdIDs, e.RecordID) })
	subject.OnUpdated(func(e signal.RecordEvent) { updatedIDs = append(updatedIDs, e.RecordID) })

	in := make(chan Tuple, 1)
	collector := NewCollector(in, subject)

	done := make(chan struct{})
	go func() {
		collector.Run(context.Background())
		close(done)
	}()

	in <- Tuple{
		IndexName:  "verindex_records",
		CreatedIDs: []int64{1, 2},
		UpdatedIDs: []int64{3},
		Payloads: map[int64]searchindex.BulkPayload{
			1: {Data: map[string]any{"a": 1}},
			2: {Data: map[string]any{"a": 2}},
			3: {Data: map[string]any{"a": 3}},
		},
	}
	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not exit after channel close")
	}

	assert.ElementsMatch(t, []int64{1, 2}, createdIDs)
	assert.ElementsMatch(t, []int64{3}, updatedIDs)
}

func TestCollector_CancellationStopsDraining(t *testing.T) {
	subject := signal.New()
	in := make(chan Tuple)
	collector := NewCollector(in, subject)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		collector.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not exit on cancellation")
	}
	require.True(t, true)
}
