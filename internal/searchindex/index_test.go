package searchindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudarshan/verindex/internal/feed"
)

func TestCommandsFor_TwoVersions(t *testing.T) {
	ix := New("verindex_", "records", 999, VersionlessSentinel)
	doc := feed.SourceDocument{
		ID:       42,
		Versions: []int64{10, 20},
		History: map[int64]map[string]any{
			10: {"title": "v1"},
			20: {"title": "v2"},
		},
	}

	cmds, err := ix.CommandsFor(doc)
	require.NoError(t, err)
	require.Len(t, cmds, 2)

	first := cmds[0]
	assert.Equal(t, "42:10", first.Action.Index.ID)
	assert.Equal(t, "verindex_records", first.Action.Index.Index)
	assert.Equal(t, DocType, first.Action.Index.Type)
	assert.Equal(t, int64(10), first.Payload.Meta.Versions.GTE)
	require.NotNil(t, first.Payload.Meta.Versions.LT)
	assert.Equal(t, int64(20), *first.Payload.Meta.Versions.LT)
	require.NotNil(t, first.Payload.Meta.NextVersion)
	assert.Equal(t, int64(20), *first.Payload.Meta.NextVersion)
	require.NotNil(t, first.Payload.Meta.Version)
	assert.Equal(t, int64(10), *first.Payload.Meta.Version)
	assert.Equal(t, "v1", first.Payload.Data["title"])
	assert.Equal(t, int64(42), first.Payload.Data[RecordIDField])

	last := cmds[1]
	assert.Equal(t, "42:20", last.Action.Index.ID)
	assert.Nil(t, last.Payload.Meta.Versions.LT)
	assert.Nil(t, last.Payload.Meta.NextVersion)
	assert.Equal(t, int64(20), last.Payload.Meta.Versions.GTE)
}

func TestCommandsFor_Versionless_Sentinel(t *testing.T) {
	ix := New("verindex_", "records", 999, VersionlessSentinel)
	doc := feed.SourceDocument{ID: 7, Data: map[string]any{"title": "no history"}}

	cmds, err := ix.CommandsFor(doc)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Nil(t, cmds[0].Payload.Meta.Version)
	assert.Equal(t, VersionlessSentinelVersion, cmds[0].Payload.Meta.Versions.GTE)
	assert.Equal(t, "7:0", cmds[0].Action.Index.ID)
}

func TestCommandsFor_Versionless_Reject(t *testing.T) {
	ix := New("verindex_", "records", 999, VersionlessReject)
	doc := feed.SourceDocument{ID: 7, Data: map[string]any{"title": "no history"}}

	_, err := ix.CommandsFor(doc)
	assert.Error(t, err)
}

func TestCommandsFor_SingleVersion_NoNext(t *testing.T) {
	ix := New("verindex_", "records", 999, VersionlessSentinel)
	doc := feed.SourceDocument{
		ID:       1,
		Versions: []int64{5},
		History:  map[int64]map[string]any{5: {"a": 1}},
	}

	cmds, err := ix.CommandsFor(doc)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Nil(t, cmds[0].Payload.Meta.Versions.LT)
	require.NotNil(t, cmds[0].Payload.Meta.Version)
	assert.Equal(t, int64(5), *cmds[0].Payload.Meta.Version)
}

func TestPrefixedName(t *testing.T) {
	ix := New("verindex_", "records", 1, VersionlessSentinel)
	assert.Equal(t, "records", ix.UnprefixedName())
	assert.Equal(t, "verindex_records", ix.PrefixedName())
	assert.Equal(t, int64(1), ix.Version())
}

func TestCreationBody_HasExpectedShape(t *testing.T) {
	ix := New("verindex_", "records", 1, VersionlessSentinel)
	body := ix.CreationBody()

	mappings, ok := body["mappings"].(map[string]any)
	require.True(t, ok)
	props, ok := mappings["properties"].(map[string]any)
	require.True(t, ok)
	metaProps, ok := props["meta"].(map[string]any)
	require.True(t, ok)
	fields, ok := metaProps["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "versions")
	assert.Contains(t, fields, "version")
	assert.Contains(t, fields, "next_version")
}
