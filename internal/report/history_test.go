package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AppendAndReload(t *testing.T) {
	dir := t.TempDir()

	h, err := NewHistory(dir)
	require.NoError(t, err)

	rep := IndexingReport{Version: 1, Start: time.Now(), DocumentCount: 3}
	require.NoError(t, h.Append(rep))

	reloaded, err := NewHistory(dir)
	require.NoError(t, err)
	require.NoError(t, reloaded.Load())

	latest, ok := reloaded.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(1), latest.Version)
	assert.Equal(t, int64(3), latest.DocumentCount)
}

func TestHistory_LatestOnEmptyIsFalse(t *testing.T) {
	h, err := NewHistory(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, h.Load())

	_, ok := h.Latest()
	assert.False(t, ok)
}

func TestHistory_ReportsReturnsCopy(t *testing.T) {
	h, err := NewHistory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, h.Append(IndexingReport{Version: 1}))
	require.NoError(t, h.Append(IndexingReport{Version: 2}))

	reports := h.Reports()
	require.Len(t, reports, 2)
	reports[0].Version = 999

	again := h.Reports()
	assert.Equal(t, int64(1), again[0].Version)
}
