package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrInvalidCredentials is deliberately undifferentiated: callers must not
	// learn whether the id or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrCommitInFlight means a save for the same change key is already running.
	ErrCommitInFlight = errors.New("commit already in flight for this change")

	// ErrStoreUnavailable covers attempt-ledger storage failures; the gate
	// treats it as "not authenticated" (fail closed).
	ErrStoreUnavailable = errors.New("attempt store unavailable")
)

// LockedOutError is returned when the gate refuses to even check credentials.
// It carries how long the caller has to wait.
type LockedOutError struct {
	Remaining time.Duration
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked out for %s", e.Remaining.Round(time.Second))
}
