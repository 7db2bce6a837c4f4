package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// APIError is a business rejection from the platform backend: the transport
// worked, the server said no. It carries the server-provided message so the
// operator sees the real reason.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform rejected request (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform rejected request (%d)", e.StatusCode)
}

// Client talks to the training-platform backend. All calls honor the passed
// context; timeouts beyond that are the HTTP client's.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given base URL and service token.
func NewClient(baseURL, apiToken string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// envelope is the backend's common response shape. Success defaults to true
// when the field is absent.
type envelope struct {
	Success *bool           `json:"success,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// CreatePaymentRequest is the body for POST /payments.
type CreatePaymentRequest struct {
	TransactionID string            `json:"transactionId"`
	StudentID     string            `json:"studentId"`
	CourseID      string            `json:"courseId"`
	CourseName    string            `json:"courseName"`
	Amount        float64           `json:"amount"`
	StudentName   string            `json:"studentName"`
	StudentEmail  string            `json:"studentEmail"`
	PaymentMethod string            `json:"paymentMethod"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ConfirmPaymentRequest is the body for PUT /payments/{id}/confirm.
type ConfirmPaymentRequest struct {
	ConfirmationStatus string `json:"confirmationStatus"`
	AdminEmail         string `json:"adminEmail"`
}

// PaymentCreated is the created-resource half of a two-step commit.
type PaymentCreated struct {
	PaymentID string `json:"paymentId"`
}

// Wire shapes for the backend's collections.

type wirePayment struct {
	PaymentID          string    `json:"paymentId"`
	StudentID          string    `json:"studentId"`
	CourseID           string    `json:"courseId"`
	CourseName         string    `json:"courseName"`
	Amount             float64   `json:"amount"`
	ConfirmationStatus string    `json:"confirmationStatus"`
	TransactionID      string    `json:"transactionId"`
	CreatedAt          time.Time `json:"createdAt"`
}

type wireEnrollment struct {
	CourseID       string    `json:"courseId"`
	EnrollmentDate time.Time `json:"enrollmentDate"`
	Progress       float64   `json:"progress"`
	Status         string    `json:"status"`
}

type wireStudent struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Enrollments []wireEnrollment `json:"enrollments"`
}

type wireCourse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type accessResponse struct {
	Success bool   `json:"success"`
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
}

// do issues one JSON request and decodes the data envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read platform response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		// A body that is not the envelope shape is tolerated; status code
		// still decides below.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if env.Success != nil && !*env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out == nil {
		return nil
	}
	payload := []byte(env.Data)
	if len(payload) == 0 {
		payload = raw
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}

// CreatePayment creates a new payment resource (first half of a commit).
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentCreated, error) {
	var created PaymentCreated
	if err := c.do(ctx, http.MethodPost, "/payments", req, &created); err != nil {
		return PaymentCreated{}, err
	}
	if created.PaymentID == "" {
		return PaymentCreated{}, &APIError{StatusCode: http.StatusOK, Message: "create payment returned no paymentId"}
	}
	return created, nil
}

// ConfirmPayment sets the confirmation status on an existing payment.
func (c *Client) ConfirmPayment(ctx context.Context, paymentID string, req ConfirmPaymentRequest) error {
	path := "/payments/" + url.PathEscape(paymentID) + "/confirm"
	return c.do(ctx, http.MethodPut, path, req, nil)
}

// CheckCourseAccess asks whether the bearer of studentToken may open a course
// page. Consumed by the page gates, which share the session concept.
func (c *Client) CheckCourseAccess(ctx context.Context, courseID, studentToken string) (bool, string, error) {
	path := "/courses/access/" + url.PathEscape(courseID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+studentToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("platform request GET %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var access accessResponse
	if err := json.NewDecoder(resp.Body).Decode(&access); err != nil {
		return false, "", fmt.Errorf("failed to decode access response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !access.Success {
		return false, access.Message, &APIError{StatusCode: resp.StatusCode, Message: access.Message}
	}
	return access.Allowed, access.Message, nil
}
