package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/academyops/backoffice/internal/gate"
	"github.com/academyops/backoffice/internal/models"
	"github.com/academyops/backoffice/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAttemptRepo(t *testing.T) (*repositories.AttemptRepository, *TestDB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	testDB, err := SetupTestDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Teardown(context.Background()) })

	return repositories.NewAttemptRepository(testDB.DB), testDB
}

func newAttempt(at time.Time) models.LoginAttempt {
	return models.LoginAttempt{
		ID:          uuid.New().String(),
		AttemptTime: at,
		IPAddress:   "10.0.0.1",
		UserAgent:   "integration-test",
	}
}

func TestAttemptRepository_RecordAndSince(t *testing.T) {
	repo, _ := setupAttemptRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Record(ctx, newAttempt(base.Add(-20*time.Minute))))
	require.NoError(t, repo.Record(ctx, newAttempt(base.Add(-5*time.Minute))))
	require.NoError(t, repo.Record(ctx, newAttempt(base.Add(-1*time.Minute))))

	// Only attempts strictly inside the window come back, oldest first.
	attempts, err := repo.Since(ctx, base.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.True(t, attempts[0].AttemptTime.Before(attempts[1].AttemptTime))
	assert.Equal(t, "10.0.0.1", attempts[0].IPAddress)
}

func TestAttemptRepository_DeleteBeforeAndClear(t *testing.T) {
	repo, _ := setupAttemptRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, repo.Record(ctx, newAttempt(base.Add(-30*time.Minute))))
	require.NoError(t, repo.Record(ctx, newAttempt(base)))

	require.NoError(t, repo.DeleteBefore(ctx, base.Add(-15*time.Minute)))

	attempts, err := repo.Since(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, attempts, 1)

	require.NoError(t, repo.Clear(ctx))
	attempts, err = repo.Since(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, attempts)
}

func TestAttemptRepository_DeleteExpired(t *testing.T) {
	repo, _ := setupAttemptRepo(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, repo.Record(ctx, newAttempt(base.Add(-2*time.Hour))))
	require.NoError(t, repo.Record(ctx, newAttempt(base)))

	deleted, err := repo.DeleteExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestLockoutGuard_OverDurableLedger(t *testing.T) {
	repo, testDB := setupAttemptRepo(t)
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := gate.NewLockoutGuard(repo, gate.DefaultLockoutPolicy(), logger)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, guard.RecordFailure(ctx, base.Add(time.Duration(i)*time.Minute), "10.0.0.1", "integration-test"))
	}

	state, err := guard.Status(ctx, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.True(t, state.Blocked)

	// A second guard over the same database sees the same lockout: this is
	// what survives a process restart.
	fresh := gate.NewLockoutGuard(repositories.NewAttemptRepository(testDB.DB), gate.DefaultLockoutPolicy(), logger)
	blocked, err := fresh.IsBlocked(ctx, base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.True(t, blocked)
}
