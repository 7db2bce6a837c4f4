package repositories

import (
	"context"
	"time"

	"github.com/academyops/backoffice/internal/database"
	"github.com/academyops/backoffice/internal/models"
)

// AttemptRepository is the durable attempt ledger. Because it outlives the
// process, a lockout survives a restart of the service.
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record appends a failed login attempt.
func (r *AttemptRepository) Record(ctx context.Context, attempt models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (id, attempt_time, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.AttemptTime,
		attempt.IPAddress,
		attempt.UserAgent,
	)
	return err
}

// Since returns attempts strictly newer than cutoff, oldest first.
func (r *AttemptRepository) Since(ctx context.Context, cutoff time.Time) ([]models.LoginAttempt, error) {
	query := `
		SELECT id, attempt_time, ip_address, user_agent
		FROM login_attempts
		WHERE attempt_time > $1
		ORDER BY attempt_time ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.LoginAttempt
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.AttemptTime, &a.IPAddress, &a.UserAgent); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// DeleteBefore prunes attempts at or older than cutoff.
func (r *AttemptRepository) DeleteBefore(ctx context.Context, cutoff time.Time) error {
	query := `DELETE FROM login_attempts WHERE attempt_time <= $1`
	_, err := r.db.Pool.Exec(ctx, query, cutoff)
	return err
}

// Clear empties the ledger after a successful login.
func (r *AttemptRepository) Clear(ctx context.Context) error {
	query := `DELETE FROM login_attempts`
	_, err := r.db.Pool.Exec(ctx, query)
	return err
}

// DeleteExpired removes attempts that can no longer influence any window.
// Used by the background cleanup.
func (r *AttemptRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempt_time <= $1`
	tag, err := r.db.Pool.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
