package models

import "time"

// EnrollmentRecord mirrors an authoritative enrollment. It may exist with no
// corresponding PaymentRecord (free or manually enrolled, not yet invoiced).
type EnrollmentRecord struct {
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	EnrollmentDate time.Time `json:"enrollment_date"`
	Progress       float64   `json:"progress"`
	Status         string    `json:"status"`
}

// Student mirrors a platform student together with their enrollments.
type Student struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Enrollments []EnrollmentRecord `json:"enrollments"`
}

// Course is the catalog entry carrying the authoritative price.
type Course struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}
