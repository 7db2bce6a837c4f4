package reconcile

import "github.com/academyops/backoffice/internal/models"

// Project merges enrollments and payments into one logical payment view per
// (student, course). Pure: no side effects, no caching, identical inputs give
// identical output.
//
// An enrollment with no matching payment is the normal "not invoiced yet"
// case, not an error: it gets a deterministic virtual key and a default
// pending status. When several payments exist for the same pair, the first
// match wins; the model does not expect duplicates.
func Project(enrollments []models.EnrollmentRecord, payments []models.PaymentRecord) map[models.JoinKey]models.JoinedPaymentView {
	views := make(map[models.JoinKey]models.JoinedPaymentView, len(enrollments))

	for _, enrollment := range enrollments {
		key := models.JoinKey{StudentID: enrollment.StudentID, CourseID: enrollment.CourseID}

		payment, found := firstPayment(payments, key)
		if found {
			views[key] = models.JoinedPaymentView{
				Key:        key,
				PaymentKey: payment.PaymentID,
				PaymentID:  payment.PaymentID,
				Status:     payment.ConfirmationStatus,
				Amount:     payment.Amount,
			}
			continue
		}

		views[key] = models.JoinedPaymentView{
			Key:        key,
			PaymentKey: models.VirtualPaymentKey(enrollment.StudentID, enrollment.CourseID),
			Status:     models.StatusPending,
			IsNew:      true,
		}
	}

	return views
}

func firstPayment(payments []models.PaymentRecord, key models.JoinKey) (models.PaymentRecord, bool) {
	for _, p := range payments {
		if p.StudentID == key.StudentID && p.CourseID == key.CourseID {
			return p, true
		}
	}
	return models.PaymentRecord{}, false
}
