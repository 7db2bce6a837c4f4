package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/academyops/backoffice/internal/models"
	"github.com/academyops/backoffice/internal/platform"
	pkglogger "github.com/academyops/backoffice/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend stands in for the platform API on both the read and the write
// side, recording the order of calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	payments []models.PaymentRecord
	students []models.Student
	courses  []models.Course

	nextPaymentID string
	createErr     error
	confirmErr    error
	lastCreate    platform.CreatePaymentRequest
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) ListPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	f.record("list_payments")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.PaymentRecord, len(f.payments))
	copy(out, f.payments)
	return out, nil
}

func (f *fakeBackend) ListStudents(ctx context.Context) ([]models.Student, error) {
	f.record("list_students")
	return f.students, nil
}

func (f *fakeBackend) ListCourses(ctx context.Context) ([]models.Course, error) {
	f.record("list_courses")
	return f.courses, nil
}

func (f *fakeBackend) CreatePayment(ctx context.Context, req platform.CreatePaymentRequest) (platform.PaymentCreated, error) {
	f.record("create_payment")
	if f.createErr != nil {
		return platform.PaymentCreated{}, f.createErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCreate = req
	f.payments = append(f.payments, models.PaymentRecord{
		PaymentID:          f.nextPaymentID,
		StudentID:          req.StudentID,
		CourseID:           req.CourseID,
		Amount:             req.Amount,
		ConfirmationStatus: models.StatusPending,
		TransactionID:      req.TransactionID,
		CreatedAt:          time.Now(),
	})
	return platform.PaymentCreated{PaymentID: f.nextPaymentID}, nil
}

func (f *fakeBackend) ConfirmPayment(ctx context.Context, paymentID string, req platform.ConfirmPaymentRequest) error {
	f.record("confirm_payment")
	if f.confirmErr != nil {
		return f.confirmErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payments {
		if f.payments[i].PaymentID == paymentID {
			f.payments[i].ConfirmationStatus = req.ConfirmationStatus
		}
	}
	return nil
}

func newCommitterFixture(t *testing.T, backend *fakeBackend) (*Committer, *Tracker, *Mirror) {
	t.Helper()

	logger := discardLogger()
	mirror := NewMirror(backend, logger)
	require.NoError(t, mirror.RefreshAll(context.Background()))
	require.NoError(t, mirror.RefreshCatalog(context.Background()))

	tracker := NewTracker()
	committer := NewCommitter(backend, tracker, mirror, "ops@academyops.dev", logger, pkglogger.NewAuditLogger(logger)).
		WithTransactionIDs(func() string { return "txn_TEST" })
	return committer, tracker, mirror
}

func studentS1() models.Student {
	return models.Student{
		ID:    "S1",
		Name:  "Sam Learner",
		Email: "sam@example.com",
		Enrollments: []models.EnrollmentRecord{
			{StudentID: "S1", CourseID: "C1"},
		},
	}
}

func TestCommit_NewPaymentCreatesThenConfirms(t *testing.T) {
	backend := &fakeBackend{
		nextPaymentID: "pay_1",
		students:      []models.Student{studentS1()},
		courses:       []models.Course{{ID: "C1", Name: "Go Basics", Price: 150}},
	}
	committer, tracker, mirror := newCommitterFixture(t, backend)

	key := committer.SetPending(models.PendingChange{
		StudentID:    "S1",
		PaymentKey:   models.VirtualPaymentKey("S1", "C1"),
		NewStatus:    models.StatusConfirmed,
		CourseID:     "C1",
		IsNewPayment: true,
	})

	result, err := committer.Commit(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.True(t, result.CreatedPayment)
	assert.Equal(t, "pay_1", result.PaymentID)
	assert.False(t, result.PriceMissing)

	// Create strictly precedes confirm; nothing else is interleaved.
	calls := backend.callLog()
	createIdx, confirmIdx := -1, -1
	for i, call := range calls {
		switch call {
		case "create_payment":
			createIdx = i
		case "confirm_payment":
			confirmIdx = i
		}
	}
	require.NotEqual(t, -1, createIdx)
	require.NotEqual(t, -1, confirmIdx)
	assert.Less(t, createIdx, confirmIdx)

	assert.Equal(t, "txn_TEST", backend.lastCreate.TransactionID)
	assert.Equal(t, 150.0, backend.lastCreate.Amount)
	assert.Equal(t, "Sam Learner", backend.lastCreate.StudentName)

	// Entry cleared only after both steps succeeded, and the mirror now
	// reflects server truth.
	_, stillPending := tracker.Get(key)
	assert.False(t, stillPending)

	payments := mirror.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, models.StatusConfirmed, payments[0].ConfirmationStatus)
}

func TestCommit_NewPaymentConfirmFailureKeepsPending(t *testing.T) {
	backend := &fakeBackend{
		nextPaymentID: "pay_3",
		students:      []models.Student{studentS1()},
		courses:       []models.Course{{ID: "C1", Name: "Go Basics", Price: 150}},
		confirmErr:    &platform.APIError{StatusCode: 500, Message: "confirmation unavailable"},
	}
	committer, tracker, mirror := newCommitterFixture(t, backend)

	key := committer.SetPending(models.PendingChange{
		StudentID:    "S1",
		PaymentKey:   models.VirtualPaymentKey("S1", "C1"),
		NewStatus:    models.StatusConfirmed,
		CourseID:     "C1",
		IsNewPayment: true,
	})

	result, err := committer.Commit(context.Background(), key)
	require.Error(t, err)
	assert.False(t, result.Committed)
	assert.True(t, result.CreatedPayment, "create finished before the confirm failed")
	assert.Equal(t, "pay_3", result.PaymentID)

	// The edit stays queued for a retry, and the refetched mirror shows the
	// created payment still at its default status.
	_, stillPending := tracker.Get(key)
	assert.True(t, stillPending)

	payments := mirror.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, models.StatusPending, payments[0].ConfirmationStatus)
}

func TestCommit_NewPaymentCreateFailureKeepsPending(t *testing.T) {
	backend := &fakeBackend{
		students:  []models.Student{studentS1()},
		courses:   []models.Course{{ID: "C1", Name: "Go Basics", Price: 150}},
		createErr: &platform.APIError{StatusCode: 503, Message: "payments unavailable"},
	}
	committer, tracker, _ := newCommitterFixture(t, backend)

	key := committer.SetPending(models.PendingChange{
		StudentID:    "S1",
		PaymentKey:   models.VirtualPaymentKey("S1", "C1"),
		NewStatus:    models.StatusConfirmed,
		CourseID:     "C1",
		IsNewPayment: true,
	})

	result, err := committer.Commit(context.Background(), key)
	require.Error(t, err)
	assert.False(t, result.Committed)
	assert.False(t, result.CreatedPayment)

	_, stillPending := tracker.Get(key)
	assert.True(t, stillPending)

	// The confirm step was never reached.
	assert.NotContains(t, backend.callLog(), "confirm_payment")
}

func TestCommit_RejectionKeepsPendingAndRollsBack(t *testing.T) {
	backend := &fakeBackend{
		students: []models.Student{studentS1()},
		payments: []models.PaymentRecord{
			{PaymentID: "P1", StudentID: "S1", CourseID: "C1", ConfirmationStatus: models.StatusPending},
		},
		confirmErr: &platform.APIError{StatusCode: 422, Message: "stale payment state"},
	}
	committer, tracker, mirror := newCommitterFixture(t, backend)

	key := committer.SetPending(models.PendingChange{
		StudentID:  "S1",
		PaymentKey: "P1",
		NewStatus:  models.StatusConfirmed,
		CourseID:   "C1",
	})

	// Optimistic apply is visible before the commit.
	require.Equal(t, models.StatusConfirmed, mirror.Payments()[0].ConfirmationStatus)

	_, err := committer.Commit(context.Background(), key)
	require.Error(t, err)

	var apiErr *platform.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 422, apiErr.StatusCode)

	// The pending edit survives for a retry, and the refetch rolled the
	// optimistic status back to what the server holds.
	_, stillPending := tracker.Get(key)
	assert.True(t, stillPending)
	assert.Equal(t, models.StatusPending, mirror.Payments()[0].ConfirmationStatus)
}

func TestCommit_AbsentKeyIsNoOp(t *testing.T) {
	backend := &fakeBackend{students: []models.Student{studentS1()}}
	committer, _, _ := newCommitterFixture(t, backend)
	callsBefore := len(backend.callLog())

	result, err := committer.Commit(context.Background(), "S1-gone")
	require.NoError(t, err)
	assert.False(t, result.Committed)
	assert.Len(t, backend.callLog(), callsBefore, "no backend calls for an absent key")
}

func TestCommit_SecondSaveForSameKeyRejected(t *testing.T) {
	backend := &fakeBackend{students: []models.Student{studentS1()}}
	committer, tracker, _ := newCommitterFixture(t, backend)

	key := committer.SetPending(models.PendingChange{
		StudentID:  "S1",
		PaymentKey: "P1",
		NewStatus:  models.StatusConfirmed,
		CourseID:   "C1",
	})

	require.True(t, tracker.BeginSave(key))
	defer tracker.EndSave(key)

	_, err := committer.Commit(context.Background(), key)
	assert.ErrorIs(t, err, models.ErrCommitInFlight)
}

func TestCommit_MissingPriceCreatesZeroAmountPayment(t *testing.T) {
	backend := &fakeBackend{
		nextPaymentID: "pay_2",
		students:      []models.Student{studentS1()},
		// No catalog entry for C1.
	}
	committer, _, _ := newCommitterFixture(t, backend)

	key := committer.SetPending(models.PendingChange{
		StudentID:    "S1",
		PaymentKey:   models.VirtualPaymentKey("S1", "C1"),
		NewStatus:    models.StatusConfirmed,
		CourseID:     "C1",
		IsNewPayment: true,
	})

	result, err := committer.Commit(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.True(t, result.PriceMissing)
	assert.Equal(t, 0.0, backend.lastCreate.Amount)
}

func TestSetPending_VirtualKeyDoesNotTouchMirror(t *testing.T) {
	backend := &fakeBackend{
		students: []models.Student{studentS1()},
		payments: []models.PaymentRecord{
			{PaymentID: "P1", StudentID: "S1", CourseID: "C1", ConfirmationStatus: models.StatusPending},
		},
	}
	committer, _, mirror := newCommitterFixture(t, backend)

	committer.SetPending(models.PendingChange{
		StudentID:    "S2",
		PaymentKey:   models.VirtualPaymentKey("S2", "C1"),
		NewStatus:    models.StatusConfirmed,
		CourseID:     "C1",
		IsNewPayment: true,
	})

	// There is no mirrored record for a payment that does not exist yet.
	assert.Equal(t, models.StatusPending, mirror.Payments()[0].ConfirmationStatus)
}
