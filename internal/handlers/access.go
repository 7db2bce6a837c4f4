package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/academyops/backoffice/internal/gate"
	"github.com/academyops/backoffice/internal/platform"
	pkghttp "github.com/academyops/backoffice/pkg/http"
	"github.com/go-chi/chi/v5"
)

// CourseAccessChecker asks the platform backend whether a student token may
// open a course page.
type CourseAccessChecker interface {
	CheckCourseAccess(ctx context.Context, courseID, studentToken string) (bool, string, error)
}

// AccessHandler proxies course-access checks for the page gates. The caller's
// own platform token is the credential; no admin session is involved.
type AccessHandler struct {
	platform CourseAccessChecker
	logger   *slog.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(platform CourseAccessChecker, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		platform: platform,
		logger:   logger,
	}
}

// AccessResponse reports whether the course page may be opened
type AccessResponse struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
}

// CheckCourse forwards the caller's bearer token to the platform backend
func (h *AccessHandler) CheckCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	if courseID == "" {
		pkghttp.WriteBadRequest(w, "course id is required")
		return
	}

	token := gate.TokenFromRequest(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "Missing bearer token")
		return
	}

	allowed, message, err := h.platform.CheckCourseAccess(r.Context(), courseID, token)
	if err != nil {
		var apiErr *platform.APIError
		if !errors.As(err, &apiErr) {
			h.logger.Warn("course access check failed", slog.String("course_id", courseID), slog.Any("error", err))
			pkghttp.WriteBadGateway(w, "Platform backend unreachable")
			return
		}
		// A rejection is an answer, not an outage: the page stays closed.
		allowed = false
		if message == "" {
			message = apiErr.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(AccessResponse{Allowed: allowed, Message: message})
}
