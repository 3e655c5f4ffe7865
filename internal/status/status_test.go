package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCluster struct {
	exists       bool
	createCalls  int
	createdBody  map[string]any
	upsertedDocs map[string]map[string]any
}

func (f *fakeCluster) IndexExists(name string) (bool, error) { return f.exists, nil }

func (f *fakeCluster) CreateIndex(ctx context.Context, name string, body map[string]any) error {
	f.createCalls++
	f.createdBody = body
	return nil
}

func (f *fakeCluster) Upsert(ctx context.Context, index, id string, doc map[string]any) error {
	if f.upsertedDocs == nil {
		f.upsertedDocs = make(map[string]map[string]any)
	}
	f.upsertedDocs[id] = doc
	return nil
}

func TestEnsureIndex_CreatesWhenAbsent(t *testing.T) {
	fc := &fakeCluster{exists: false}
	w := NewWriter(fc, "verindex_status")

	require.NoError(t, w.EnsureIndex(context.Background()))
	assert.Equal(t, 1, fc.createCalls)
}

func TestEnsureIndex_NoopWhenPresent(t *testing.T) {
	fc := &fakeCluster{exists: true}
	w := NewWriter(fc, "verindex_status")

	require.NoError(t, w.EnsureIndex(context.Background()))
	assert.Equal(t, 0, fc.createCalls)
}

func TestUpsert_WritesKeyedDocument(t *testing.T) {
	fc := &fakeCluster{}
	w := NewWriter(fc, "verindex_status")

	doc := Document{Name: "records", IndexName: "verindex_records", LatestVersion: 999}
	require.NoError(t, w.Upsert(context.Background(), doc))

	written := fc.upsertedDocs["verindex_records"]
	require.NotNil(t, written)
	assert.Equal(t, "records", written["name"])
	assert.Equal(t, int64(999), written["latest_version"])
}
