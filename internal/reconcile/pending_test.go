package reconcile

import (
	"testing"

	"github.com/academyops/backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingEdit(status string) models.PendingChange {
	return models.PendingChange{
		StudentID:  "S1",
		PaymentKey: "P1",
		NewStatus:  status,
		CourseID:   "C1",
	}
}

func TestTracker_SetUpsertsByChangeKey(t *testing.T) {
	tracker := NewTracker()

	key := tracker.Set(pendingEdit(models.StatusConfirmed))
	assert.Equal(t, "S1-P1", key)
	assert.Equal(t, 1, tracker.Len())

	// Editing the same slot again replaces, never duplicates.
	tracker.Set(pendingEdit(models.StatusError))
	assert.Equal(t, 1, tracker.Len())

	change, ok := tracker.Get(key)
	require.True(t, ok)
	assert.Equal(t, models.StatusError, change.NewStatus)
}

func TestTracker_Discard(t *testing.T) {
	tracker := NewTracker()
	key := tracker.Set(pendingEdit(models.StatusConfirmed))

	assert.True(t, tracker.Discard(key))
	assert.Equal(t, 0, tracker.Len())

	assert.False(t, tracker.Discard(key), "second discard finds nothing")
	assert.False(t, tracker.Discard("S9-P9"))
}

func TestTracker_BeginSaveGuardsPerKey(t *testing.T) {
	tracker := NewTracker()

	require.True(t, tracker.BeginSave("S1-P1"))
	assert.False(t, tracker.BeginSave("S1-P1"), "same key cannot save twice")
	assert.True(t, tracker.BeginSave("S2-P2"), "unrelated keys save concurrently")

	tracker.EndSave("S1-P1")
	assert.True(t, tracker.BeginSave("S1-P1"))
}

func TestTracker_OverlayMarksDirtyAndSaving(t *testing.T) {
	tracker := NewTracker()
	tracker.Set(pendingEdit(models.StatusConfirmed))
	require.True(t, tracker.BeginSave("S1-P1"))

	views := map[models.JoinKey]models.JoinedPaymentView{
		{StudentID: "S1", CourseID: "C1"}: {
			Key:        models.JoinKey{StudentID: "S1", CourseID: "C1"},
			PaymentKey: "P1",
			Status:     models.StatusPending,
		},
		{StudentID: "S2", CourseID: "C1"}: {
			Key:        models.JoinKey{StudentID: "S2", CourseID: "C1"},
			PaymentKey: "P2",
			Status:     models.StatusPending,
		},
	}

	overlaid := tracker.Overlay(views)

	edited := overlaid[models.JoinKey{StudentID: "S1", CourseID: "C1"}]
	assert.Equal(t, models.StatusConfirmed, edited.Status)
	assert.True(t, edited.Dirty)
	assert.True(t, edited.Saving)

	untouched := overlaid[models.JoinKey{StudentID: "S2", CourseID: "C1"}]
	assert.Equal(t, models.StatusPending, untouched.Status)
	assert.False(t, untouched.Dirty)

	// The projection itself is untouched.
	original := views[models.JoinKey{StudentID: "S1", CourseID: "C1"}]
	assert.Equal(t, models.StatusPending, original.Status)
	assert.False(t, original.Dirty)
}

func TestTracker_ChangesReturnsSnapshot(t *testing.T) {
	tracker := NewTracker()
	tracker.Set(pendingEdit(models.StatusConfirmed))

	snapshot := tracker.Changes()
	require.Len(t, snapshot, 1)

	delete(snapshot, "S1-P1")
	assert.Equal(t, 1, tracker.Len(), "mutating the snapshot must not touch the tracker")
}
