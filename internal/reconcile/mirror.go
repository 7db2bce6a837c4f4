package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/academyops/backoffice/internal/models"
)

// SourceAPI is the slice of the platform backend the mirror consumes.
type SourceAPI interface {
	ListPayments(ctx context.Context) ([]models.PaymentRecord, error)
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
}

// Mirror caches the authoritative collections locally. Authority stays with
// the backend: the mirror only ever changes through a refetch or through an
// explicit optimistic status apply, which the next refetch overwrites.
type Mirror struct {
	api    SourceAPI
	logger *slog.Logger

	mu       sync.RWMutex
	payments []models.PaymentRecord
	students []models.Student
	courses  []models.Course
}

// NewMirror creates an empty mirror over the given source.
func NewMirror(api SourceAPI, logger *slog.Logger) *Mirror {
	return &Mirror{api: api, logger: logger}
}

// snapshot detaches a fetched slice from the source's backing array. The
// mirror mutates its payment records in ApplyStatus, and that write must
// never reach a slice the SourceAPI still holds.
func snapshot[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// RefreshAll refetches payments and students so the joined view reflects
// server truth rather than optimistic guesses.
func (m *Mirror) RefreshAll(ctx context.Context) error {
	payments, err := m.api.ListPayments(ctx)
	if err != nil {
		return err
	}
	students, err := m.api.ListStudents(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.payments = snapshot(payments)
	m.students = snapshot(students)
	m.mu.Unlock()
	return nil
}

// RefreshPayments refetches payments only. Used after a failed commit to roll
// back any optimistic mutation the server did not accept.
func (m *Mirror) RefreshPayments(ctx context.Context) error {
	payments, err := m.api.ListPayments(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.payments = snapshot(payments)
	m.mu.Unlock()
	return nil
}

// RefreshCatalog refetches the course catalog (authoritative prices).
func (m *Mirror) RefreshCatalog(ctx context.Context) error {
	courses, err := m.api.ListCourses(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.courses = snapshot(courses)
	m.mu.Unlock()
	return nil
}

// Payments returns a copy of the mirrored payment records.
func (m *Mirror) Payments() []models.PaymentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PaymentRecord, len(m.payments))
	copy(out, m.payments)
	return out
}

// Enrollments flattens the mirrored students into enrollment records.
func (m *Mirror) Enrollments() []models.EnrollmentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.EnrollmentRecord
	for _, s := range m.students {
		out = append(out, s.Enrollments...)
	}
	return out
}

// StudentByID looks up a mirrored student.
func (m *Mirror) StudentByID(id string) (models.Student, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.ID == id {
			return s, true
		}
	}
	return models.Student{}, false
}

// CourseByID looks up a catalog entry.
func (m *Mirror) CourseByID(id string) (models.Course, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if c.ID == id {
			return c, true
		}
	}
	return models.Course{}, false
}

// ApplyStatus optimistically updates the displayed status of a mirrored
// payment before the server confirms. A later refetch replaces the guess with
// server truth.
func (m *Mirror) ApplyStatus(paymentID, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.payments {
		if m.payments[i].PaymentID == paymentID {
			m.payments[i].ConfirmationStatus = status
			return true
		}
	}
	return false
}
