package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestToSourceDocument_Versioned(t *testing.T) {
	rec := mongoRecord{
		RecordID: 7,
		Versions: []int64{10, 20},
		DataHistory: bson.M{
			"10": bson.M{"a": int32(1)},
			"20": bson.M{"a": int32(2)},
		},
	}

	doc := toSourceDocument(rec)

	assert.Equal(t, int64(7), doc.ID)
	assert.Equal(t, []int64{10, 20}, doc.Versions)
	assert.Equal(t, map[string]any{"a": int32(1)}, doc.History[10])
	assert.Equal(t, map[string]any{"a": int32(2)}, doc.History[20])
	assert.Nil(t, doc.Data)
}

func TestToSourceDocument_Versionless(t *testing.T) {
	rec := mongoRecord{
		RecordID: 9,
		Data:     bson.M{"title": "no history"},
	}

	doc := toSourceDocument(rec)

	assert.Empty(t, doc.Versions)
	assert.Nil(t, doc.History)
	assert.Equal(t, map[string]any{"title": "no history"}, doc.Data)
}

func TestToSourceDocument_MissingHistoryEntryDefaultsEmpty(t *testing.T) {
	rec := mongoRecord{
		RecordID:    1,
		Versions:    []int64{5},
		DataHistory: bson.M{},
	}

	doc := toSourceDocument(rec)

	assert.Equal(t, map[string]any{}, doc.History[5])
}

func TestDatabaseNameFromURI(t *testing.T) {
	assert.Equal(t, "research_db", databaseNameFromURI("mongodb://localhost:27017/research_db"))
	assert.Equal(t, "research_db", databaseNameFromURI("mongodb://localhost:27017/research_db?retryWrites=true"))
	assert.Equal(t, "verindex", databaseNameFromURI("mongodb://localhost:27017"))
}
