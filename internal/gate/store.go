package gate

import (
	"context"
	"sync"
	"time"

	"github.com/academyops/backoffice/internal/models"
)

// AttemptStore is the ledger of failed login attempts. Implementations must
// treat records as append-only; pruning happens through DeleteBefore, never by
// editing rows in place.
type AttemptStore interface {
	Record(ctx context.Context, attempt models.LoginAttempt) error
	// Since returns attempts with AttemptTime strictly after cutoff, oldest first.
	Since(ctx context.Context, cutoff time.Time) ([]models.LoginAttempt, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) error
	Clear(ctx context.Context) error
}

// MemoryAttemptStore keeps the ledger in process memory. Lockouts do not
// survive a restart; use the Postgres store when they must.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts []models.LoginAttempt
}

// NewMemoryAttemptStore creates an empty in-memory ledger.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{}
}

func (s *MemoryAttemptStore) Record(ctx context.Context, attempt models.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *MemoryAttemptStore) Since(ctx context.Context, cutoff time.Time) ([]models.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.LoginAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		if a.AttemptTime.After(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryAttemptStore) DeleteBefore(ctx context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.attempts[:0]
	for _, a := range s.attempts {
		if a.AttemptTime.After(cutoff) {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	return nil
}

func (s *MemoryAttemptStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = nil
	return nil
}
