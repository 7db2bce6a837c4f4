package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/academyops/backoffice/internal/models"
	"github.com/academyops/backoffice/internal/obs"
	"github.com/academyops/backoffice/internal/platform"
	pkglogger "github.com/academyops/backoffice/pkg/logger"
	"github.com/oklog/ulid/v2"
)

// PaymentsAPI is the mutation half of the platform backend.
type PaymentsAPI interface {
	CreatePayment(ctx context.Context, req platform.CreatePaymentRequest) (platform.PaymentCreated, error)
	ConfirmPayment(ctx context.Context, paymentID string, req platform.ConfirmPaymentRequest) error
}

// CommitResult reports what a commit did.
type CommitResult struct {
	Committed      bool
	CreatedPayment bool
	PaymentID      string
	// PriceMissing is a non-fatal warning: the catalog had no price for the
	// course, so the payment was created with a zero amount.
	PriceMissing bool
}

// Committer turns pending edits into backend state. For a virtual key it
// creates the payment and then confirms it; for an existing payment it
// confirms directly. Either way local state is reconciled afterwards:
// refetch both collections on success, refetch payments on failure so the
// optimistic guess rolls back.
type Committer struct {
	api        PaymentsAPI
	tracker    *Tracker
	mirror     *Mirror
	adminEmail string
	logger     *slog.Logger
	audit      *pkglogger.AuditLogger

	newTransactionID func() string
}

// NewCommitter wires the committer.
func NewCommitter(api PaymentsAPI, tracker *Tracker, mirror *Mirror, adminEmail string, logger *slog.Logger, audit *pkglogger.AuditLogger) *Committer {
	return &Committer{
		api:        api,
		tracker:    tracker,
		mirror:     mirror,
		adminEmail: adminEmail,
		logger:     logger,
		audit:      audit,
		newTransactionID: func() string {
			return "txn_" + ulid.Make().String()
		},
	}
}

// WithTransactionIDs replaces the transaction id generator. For tests.
func (c *Committer) WithTransactionIDs(gen func() string) *Committer {
	c.newTransactionID = gen
	return c
}

// SetPending records a status edit. For an existing payment the mirrored
// status updates immediately (optimistic apply); virtual keys have nothing to
// mirror yet.
func (c *Committer) SetPending(change models.PendingChange) string {
	key := c.tracker.Set(change)
	if !change.IsNewPayment {
		c.mirror.ApplyStatus(change.PaymentKey, change.NewStatus)
	}
	return key
}

// Commit persists the pending change for changeKey.
//
// Committing a key whose change is already gone is a no-op: after a
// successful commit the entry has been removed, so a duplicate save is
// harmless. A failure at any step leaves the pending entry in place so the
// operator can retry.
func (c *Committer) Commit(ctx context.Context, changeKey string) (CommitResult, error) {
	change, ok := c.tracker.Get(changeKey)
	if !ok {
		return CommitResult{}, nil
	}

	if !c.tracker.BeginSave(changeKey) {
		return CommitResult{}, models.ErrCommitInFlight
	}
	defer c.tracker.EndSave(changeKey)

	var result CommitResult
	var err error
	if change.IsNewPayment {
		result, err = c.commitNew(ctx, change)
	} else {
		result, err = c.commitExisting(ctx, change)
	}

	if err != nil {
		obs.Commit(commitResultLabel(err))
		c.audit.LogCommit(changeKey, change.NewStatus, change.IsNewPayment, false, map[string]string{"error": err.Error()})
		// Roll back the optimistic guess; the pending edit stays queued.
		if refreshErr := c.mirror.RefreshPayments(ctx); refreshErr != nil {
			c.logger.Warn("failed to refetch payments after failed commit", slog.Any("error", refreshErr))
		}
		return result, err
	}

	c.tracker.Remove(changeKey)
	obs.Commit("ok")
	c.audit.LogCommit(changeKey, change.NewStatus, result.CreatedPayment, true, nil)

	if refreshErr := c.mirror.RefreshAll(ctx); refreshErr != nil {
		c.logger.Warn("failed to refetch collections after commit", slog.Any("error", refreshErr))
	}

	result.Committed = true
	return result, nil
}

// commitNew is the create-then-confirm path. The create must finish before
// the confirm is attempted; the two calls are never issued concurrently.
func (c *Committer) commitNew(ctx context.Context, change models.PendingChange) (CommitResult, error) {
	var result CommitResult

	course, courseOK := c.mirror.CourseByID(change.CourseID)
	amount := course.Price
	if !courseOK || course.Price == 0 {
		// Non-fatal: proceed with a zero amount but make sure the operator
		// hears about it.
		result.PriceMissing = true
		amount = 0
		c.logger.Warn("course price missing, creating payment with zero amount",
			slog.String("course_id", change.CourseID),
			slog.String("student_id", change.StudentID))
	}

	student, _ := c.mirror.StudentByID(change.StudentID)

	created, err := c.api.CreatePayment(ctx, platform.CreatePaymentRequest{
		TransactionID: c.newTransactionID(),
		StudentID:     change.StudentID,
		CourseID:      change.CourseID,
		CourseName:    course.Name,
		Amount:        amount,
		StudentName:   student.Name,
		StudentEmail:  student.Email,
		PaymentMethod: "manual",
		Metadata:      map[string]string{"source": "backoffice"},
	})
	if err != nil {
		return result, err
	}
	result.CreatedPayment = true
	result.PaymentID = created.PaymentID

	c.logger.Info("payment created",
		slog.String("payment_id", created.PaymentID),
		slog.String("course_id", change.CourseID),
		slog.String("student_email", pkglogger.SanitizedEmail(student.Email)))

	err = c.api.ConfirmPayment(ctx, created.PaymentID, platform.ConfirmPaymentRequest{
		ConfirmationStatus: change.NewStatus,
		AdminEmail:         c.adminEmail,
	})
	if err != nil {
		// Create succeeded but confirm failed: the new resource sits at its
		// default status until the operator retries. A compensating delete
		// would need backend support.
		return result, err
	}

	return result, nil
}

// commitExisting confirms directly on the known payment id.
func (c *Committer) commitExisting(ctx context.Context, change models.PendingChange) (CommitResult, error) {
	result := CommitResult{PaymentID: change.PaymentKey}
	err := c.api.ConfirmPayment(ctx, change.PaymentKey, platform.ConfirmPaymentRequest{
		ConfirmationStatus: change.NewStatus,
		AdminEmail:         c.adminEmail,
	})
	return result, err
}

func commitResultLabel(err error) string {
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		return "rejected"
	}
	return "network_error"
}
