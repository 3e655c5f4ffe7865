package cliui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sudarshan/verindex/internal/report"
	"github.com/sudarshan/verindex/internal/signal"
)

func TestQuietReporterRunsWithoutPanicking(t *testing.T) {
	r := New(true)
	assert.NotPanics(t, func() {
		r.StartPair("records", "verindex_records", 10)
		r.OnAboutToIndex(signal.AboutToIndex{RecordID: 1, DocumentCount: 1, CommandCount: 2, DocumentTotal: 10})
		r.EndPair()
		r.Summary(report.IndexingReport{Version: 1})
	})
}

func TestOnAboutToIndex_NoopWithoutActiveBar(t *testing.T) {
	r := New(false)
	assert.NotPanics(t, func() {
		r.OnAboutToIndex(signal.AboutToIndex{RecordID: 1, DocumentCount: 1, CommandCount: 2, DocumentTotal: 10})
	})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.0s", formatDuration(time.Second))
	assert.Equal(t, "1m1s", formatDuration(61*time.Second))
	assert.Equal(t, "1h1m", formatDuration(time.Hour+time.Minute))
}
