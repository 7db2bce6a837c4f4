package models

import (
	"fmt"
	"time"
)

// Confirmation statuses a payment record can carry.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusError     = "error"
)

// PaymentRecord mirrors an authoritative payment owned by the platform
// backend.
type PaymentRecord struct {
	PaymentID          string    `json:"payment_id"`
	StudentID          string    `json:"student_id"`
	CourseID           string    `json:"course_id"`
	CourseName         string    `json:"course_name,omitempty"`
	Amount             float64   `json:"amount"`
	ConfirmationStatus string    `json:"confirmation_status"`
	TransactionID      string    `json:"transaction_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// JoinKey identifies one logical payment slot per (student, course).
type JoinKey struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// JoinedPaymentView is the per-enrollment projection of the two authoritative
// collections. Derived, never persisted.
type JoinedPaymentView struct {
	Key        JoinKey `json:"key"`
	PaymentKey string  `json:"payment_key"`          // paymentID, or a virtual key when no payment exists
	PaymentID  string  `json:"payment_id,omitempty"` // empty for virtual entries
	Status     string  `json:"status"`
	Amount     float64 `json:"amount"`
	IsNew      bool    `json:"is_new"`            // true when the payment does not exist server-side yet
	Dirty      bool    `json:"dirty,omitempty"`   // an uncommitted edit overlays this view
	Saving     bool    `json:"saving,omitempty"`  // a commit for this view is in flight
}

// PendingChange is an uncommitted status edit. Owned by the reconciler until
// committed; never persisted across restarts.
type PendingChange struct {
	StudentID    string `json:"student_id" validate:"required"`
	PaymentKey   string `json:"payment_key" validate:"required"`
	NewStatus    string `json:"new_status" validate:"required,oneof=pending confirmed error"`
	CourseID     string `json:"course_id" validate:"required"`
	IsNewPayment bool   `json:"is_new_payment"`
}

// ChangeKey returns the tracker key for this change.
func (c PendingChange) ChangeKey() string {
	return c.StudentID + "-" + c.PaymentKey
}

// VirtualPaymentKey is the deterministic stand-in key for an enrollment with
// no payment record yet.
func VirtualPaymentKey(studentID, courseID string) string {
	return fmt.Sprintf("new_payment_%s_%s", studentID, courseID)
}
