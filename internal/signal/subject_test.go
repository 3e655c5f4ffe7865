package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sudarshan/verindex/internal/searchindex"
)

func TestSubject_NotifiesInRegistrationOrder(t *testing.T) {
	s := New()
	var order []string

	s.OnCreated(func(e RecordEvent) { order = append(order, "first") })
	s.OnCreated(func(e RecordEvent) { order = append(order, "second") })

	s.NotifyCreated(RecordEvent{Index: "records", RecordID: 1})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSubject_NoSubscribersIsNoop(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() {
		s.NotifyAboutToIndex(AboutToIndex{RecordID: 1})
		s.NotifyFinished(Finished{DocumentCount: 1})
	})
}

func TestSubject_CreatedAndUpdatedAreIndependent(t *testing.T) {
	s := New()
	var created, updated []int64

	s.OnCreated(func(e RecordEvent) { created = append(created, e.RecordID) })
	s.OnUpdated(func(e RecordEvent) { updated = append(updated, e.RecordID) })

	s.NotifyCreated(RecordEvent{RecordID: 1, Record: searchindex.BulkPayload{}})
	s.NotifyUpdated(RecordEvent{RecordID: 2, Record: searchindex.BulkPayload{}})

	assert.Equal(t, []int64{1}, created)
	assert.Equal(t, []int64{2}, updated)
}
