package reconcile

import (
	"sync"

	"github.com/academyops/backoffice/internal/models"
)

// Tracker holds uncommitted status edits keyed by studentID + "-" +
// paymentKey. Entries live until a successful commit or an explicit discard;
// they are never persisted.
type Tracker struct {
	mu      sync.Mutex
	changes map[string]models.PendingChange
	saving  map[string]bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		changes: make(map[string]models.PendingChange),
		saving:  make(map[string]bool),
	}
}

// Set upserts a pending change and returns its change key. A second edit to
// the same key overwrites; the map never holds two entries for one key.
func (t *Tracker) Set(change models.PendingChange) string {
	key := change.ChangeKey()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes[key] = change
	return key
}

// Get returns the pending change for key, if any.
func (t *Tracker) Get(key string) (models.PendingChange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	change, ok := t.changes[key]
	return change, ok
}

// Discard drops a pending change without committing it.
func (t *Tracker) Discard(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.changes[key]
	delete(t.changes, key)
	return ok
}

// Remove drops the entry after a successful commit.
func (t *Tracker) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.changes, key)
}

// Changes returns a snapshot of all pending edits.
func (t *Tracker) Changes() map[string]models.PendingChange {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]models.PendingChange, len(t.changes))
	for k, v := range t.changes {
		out[k] = v
	}
	return out
}

// Len reports the number of pending edits.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.changes)
}

// BeginSave marks a key as saving. Returns false when a save for the same key
// is already in flight; unrelated keys save concurrently.
func (t *Tracker) BeginSave(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saving[key] {
		return false
	}
	t.saving[key] = true
	return true
}

// EndSave clears the in-flight marker for a key.
func (t *Tracker) EndSave(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.saving, key)
}

// Saving reports whether a commit for key is in flight.
func (t *Tracker) Saving(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saving[key]
}

// Overlay applies pending edits on top of a joined projection for display.
// The input map is not mutated.
func (t *Tracker) Overlay(views map[models.JoinKey]models.JoinedPaymentView) map[models.JoinKey]models.JoinedPaymentView {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[models.JoinKey]models.JoinedPaymentView, len(views))
	for key, view := range views {
		changeKey := view.Key.StudentID + "-" + view.PaymentKey
		if change, ok := t.changes[changeKey]; ok {
			view.Status = change.NewStatus
			view.Dirty = true
			view.Saving = t.saving[changeKey]
		}
		out[key] = view
	}
	return out
}
