package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_BuildSortsAndAggregates(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuilder(999, start)

	b.AddSource("research_records")
	b.AddSource("archive_records")
	b.AddTarget("verindex_records")
	b.AddSeenVersions(map[int64]struct{}{20: {}, 10: {}})
	b.AddSeenVersions(map[int64]struct{}{30: {}})
	b.AddOperations("records", map[string]int64{"created": 2})
	b.AddOperations("records", map[string]int64{"created": 1, "updated": 1})
	b.AddCounts(5, 7)

	end := start.Add(2 * time.Second)
	rep := b.Build(end)

	assert.Equal(t, int64(999), rep.Version)
	assert.Equal(t, []int64{10, 20, 30}, rep.Versions)
	assert.Equal(t, []string{"archive_records", "research_records"}, rep.Sources)
	assert.Equal(t, []string{"verindex_records"}, rep.Targets)
	assert.Equal(t, int64(3), rep.Operations["records"]["created"])
	assert.Equal(t, int64(1), rep.Operations["records"]["updated"])
	assert.Equal(t, int64(5), rep.DocumentCount)
	assert.Equal(t, int64(7), rep.CommandCount)
	assert.Equal(t, 2.0, rep.DurationSeconds)
}
