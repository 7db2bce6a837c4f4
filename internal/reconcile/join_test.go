package reconcile

import (
	"testing"

	"github.com/academyops/backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_MatchesPaymentToEnrollment(t *testing.T) {
	enrollments := []models.EnrollmentRecord{
		{StudentID: "S1", CourseID: "C1"},
	}
	payments := []models.PaymentRecord{
		{PaymentID: "P1", StudentID: "S1", CourseID: "C1", ConfirmationStatus: models.StatusConfirmed, Amount: 99.5},
	}

	views := Project(enrollments, payments)
	require.Len(t, views, 1)

	view := views[models.JoinKey{StudentID: "S1", CourseID: "C1"}]
	assert.Equal(t, "P1", view.PaymentKey)
	assert.Equal(t, "P1", view.PaymentID)
	assert.Equal(t, models.StatusConfirmed, view.Status)
	assert.Equal(t, 99.5, view.Amount)
	assert.False(t, view.IsNew)
}

func TestProject_UnmatchedEnrollmentGetsVirtualKey(t *testing.T) {
	enrollments := []models.EnrollmentRecord{
		{StudentID: "S1", CourseID: "C1"},
	}

	views := Project(enrollments, nil)
	require.Len(t, views, 1)

	view := views[models.JoinKey{StudentID: "S1", CourseID: "C1"}]
	assert.Equal(t, "new_payment_S1_C1", view.PaymentKey)
	assert.Empty(t, view.PaymentID)
	assert.Equal(t, models.StatusPending, view.Status)
	assert.True(t, view.IsNew)
}

func TestProject_FirstPaymentWinsOnDuplicates(t *testing.T) {
	enrollments := []models.EnrollmentRecord{
		{StudentID: "S1", CourseID: "C1"},
	}
	payments := []models.PaymentRecord{
		{PaymentID: "P1", StudentID: "S1", CourseID: "C1", ConfirmationStatus: models.StatusPending},
		{PaymentID: "P2", StudentID: "S1", CourseID: "C1", ConfirmationStatus: models.StatusConfirmed},
	}

	views := Project(enrollments, payments)
	view := views[models.JoinKey{StudentID: "S1", CourseID: "C1"}]
	assert.Equal(t, "P1", view.PaymentID)
	assert.Equal(t, models.StatusPending, view.Status)
}

func TestProject_PaymentsWithoutEnrollmentAreIgnored(t *testing.T) {
	payments := []models.PaymentRecord{
		{PaymentID: "P1", StudentID: "S9", CourseID: "C9"},
	}

	views := Project(nil, payments)
	assert.Empty(t, views)
}

func TestProject_IsPure(t *testing.T) {
	enrollments := []models.EnrollmentRecord{
		{StudentID: "S1", CourseID: "C1"},
		{StudentID: "S2", CourseID: "C1"},
	}
	payments := []models.PaymentRecord{
		{PaymentID: "P1", StudentID: "S1", CourseID: "C1", ConfirmationStatus: models.StatusPending},
	}

	first := Project(enrollments, payments)
	second := Project(enrollments, payments)

	assert.Equal(t, first, second, "identical inputs must yield identical output")
	assert.Equal(t, "P1", payments[0].PaymentID, "inputs must not be mutated")
	assert.Len(t, enrollments, 2)
}
