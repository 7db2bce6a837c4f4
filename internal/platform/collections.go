package platform

import (
	"context"
	"net/http"

	"github.com/academyops/backoffice/internal/models"
)

// ListPayments fetches the authoritative payment records.
func (c *Client) ListPayments(ctx context.Context) ([]models.PaymentRecord, error) {
	var wire []wirePayment
	if err := c.do(ctx, http.MethodGet, "/payments", nil, &wire); err != nil {
		return nil, err
	}

	payments := make([]models.PaymentRecord, 0, len(wire))
	for _, p := range wire {
		payments = append(payments, models.PaymentRecord{
			PaymentID:          p.PaymentID,
			StudentID:          p.StudentID,
			CourseID:           p.CourseID,
			CourseName:         p.CourseName,
			Amount:             p.Amount,
			ConfirmationStatus: p.ConfirmationStatus,
			TransactionID:      p.TransactionID,
			CreatedAt:          p.CreatedAt,
		})
	}
	return payments, nil
}

// ListStudents fetches students with their enrollments.
func (c *Client) ListStudents(ctx context.Context) ([]models.Student, error) {
	var wire []wireStudent
	if err := c.do(ctx, http.MethodGet, "/students", nil, &wire); err != nil {
		return nil, err
	}

	students := make([]models.Student, 0, len(wire))
	for _, s := range wire {
		student := models.Student{
			ID:    s.ID,
			Name:  s.Name,
			Email: s.Email,
		}
		for _, e := range s.Enrollments {
			student.Enrollments = append(student.Enrollments, models.EnrollmentRecord{
				StudentID:      s.ID,
				CourseID:       e.CourseID,
				EnrollmentDate: e.EnrollmentDate,
				Progress:       e.Progress,
				Status:         e.Status,
			})
		}
		students = append(students, student)
	}
	return students, nil
}

// ListCourses fetches the catalog, including authoritative prices.
func (c *Client) ListCourses(ctx context.Context) ([]models.Course, error) {
	var wire []wireCourse
	if err := c.do(ctx, http.MethodGet, "/courses", nil, &wire); err != nil {
		return nil, err
	}

	courses := make([]models.Course, 0, len(wire))
	for _, course := range wire {
		courses = append(courses, models.Course{
			ID:    course.ID,
			Name:  course.Name,
			Price: course.Price,
		})
	}
	return courses, nil
}
