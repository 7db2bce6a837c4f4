package models

import "time"

// LoginAttempt is a single failed authentication attempt. Immutable once
// recorded; pruned by filtering, never edited in place.
type LoginAttempt struct {
	ID          string    `db:"id"`
	AttemptTime time.Time `db:"attempt_time"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
}

// LockoutState is derived from the attempt ledger on every check; it is never
// stored.
type LockoutState struct {
	Blocked   bool
	UnblockAt time.Time // zero when not blocked
	Attempts  int       // failed attempts currently inside the window
}

// Remaining reports the countdown until the lockout lifts. Presentation only;
// recomputed each tick from UnblockAt.
func (s LockoutState) Remaining(now time.Time) time.Duration {
	if !s.Blocked || !now.Before(s.UnblockAt) {
		return 0
	}
	return s.UnblockAt.Sub(now)
}
