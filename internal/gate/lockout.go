package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/academyops/backoffice/internal/models"
	"github.com/google/uuid"
)

// LockoutPolicy holds the attempt-window and lockout tuning.
type LockoutPolicy struct {
	MaxAttempts   int
	AttemptWindow time.Duration
	BlockDuration time.Duration
}

// DefaultLockoutPolicy returns the production policy: three failures inside a
// fifteen-minute sliding window lock the gate for fifteen minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts:   3,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
	}
}

// LockoutGuard decides blocked/unblocked from the attempt ledger. All window
// math is recomputed against wall clock on every check; nothing is cached as a
// second source of truth.
type LockoutGuard struct {
	store  AttemptStore
	policy LockoutPolicy
	logger *slog.Logger

	mu         sync.Mutex
	wasBlocked bool
}

// NewLockoutGuard creates a guard over the given ledger.
func NewLockoutGuard(store AttemptStore, policy LockoutPolicy, logger *slog.Logger) *LockoutGuard {
	return &LockoutGuard{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

// Status computes the current lockout state. The unblock time anchors on the
// oldest attempt still inside the window: the lock lifts exactly when that
// attempt ages out, so a countdown shown at lock time runs down to zero
// without jumping.
func (g *LockoutGuard) Status(ctx context.Context, now time.Time) (models.LockoutState, error) {
	cutoff := now.Add(-g.policy.AttemptWindow)
	attempts, err := g.store.Since(ctx, cutoff)
	if err != nil {
		return models.LockoutState{}, err
	}

	state := models.LockoutState{Attempts: len(attempts)}
	if len(attempts) >= g.policy.MaxAttempts {
		unblockAt := attempts[0].AttemptTime.Add(g.policy.BlockDuration)
		if now.Before(unblockAt) {
			state.Blocked = true
			state.UnblockAt = unblockAt
		}
	}

	g.noteTransition(ctx, state.Blocked, cutoff)
	return state, nil
}

// noteTransition prunes attempts older than the window when the guard flips
// from blocked to unblocked, so the next failure sequence starts clean.
func (g *LockoutGuard) noteTransition(ctx context.Context, blocked bool, cutoff time.Time) {
	g.mu.Lock()
	wasBlocked := g.wasBlocked
	g.wasBlocked = blocked
	g.mu.Unlock()

	if wasBlocked && !blocked {
		if err := g.store.DeleteBefore(ctx, cutoff); err != nil {
			g.logger.Warn("failed to prune expired attempts", slog.Any("error", err))
		}
	}
}

// RecordFailure appends a failed attempt to the ledger.
func (g *LockoutGuard) RecordFailure(ctx context.Context, now time.Time, ipAddress, userAgent string) error {
	attempt := models.LoginAttempt{
		ID:          uuid.New().String(),
		AttemptTime: now,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	}
	if err := g.store.Record(ctx, attempt); err != nil {
		g.logger.Error("failed to record login attempt", slog.Any("error", err))
		return err
	}
	return nil
}

// IsBlocked reports whether the gate is currently locked.
func (g *LockoutGuard) IsBlocked(ctx context.Context, now time.Time) (bool, error) {
	state, err := g.Status(ctx, now)
	if err != nil {
		return false, err
	}
	return state.Blocked, nil
}

// Remaining reports the time left until the lockout lifts, zero when open.
func (g *LockoutGuard) Remaining(ctx context.Context, now time.Time) (time.Duration, error) {
	state, err := g.Status(ctx, now)
	if err != nil {
		return 0, err
	}
	return state.Remaining(now), nil
}

// ClearOnSuccess discards all recorded attempts. Called only after a
// successful credential check.
func (g *LockoutGuard) ClearOnSuccess(ctx context.Context) error {
	g.mu.Lock()
	g.wasBlocked = false
	g.mu.Unlock()
	return g.store.Clear(ctx)
}
