package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/academyops/backoffice/internal/gate"
	"github.com/academyops/backoffice/internal/models"
	pkghttp "github.com/academyops/backoffice/pkg/http"
)

// CredentialValidatorInterface defines the interface for the login check
type CredentialValidatorInterface interface {
	Validate(ctx context.Context, userID, password, ipAddress, userAgent string) (*models.Session, error)
}

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	validator CredentialValidatorInterface
	tokens    *gate.TokenManager
	ipConfig  *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(validator CredentialValidatorInterface, tokens *gate.TokenManager, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		validator: validator,
		tokens:    tokens,
		ipConfig:  ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse describes the current session
type SessionResponse struct {
	AdminID   string    `json:"admin_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles admin login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	session, err := h.validator.Validate(r.Context(), req.UserID, req.Password, ipAddress, userAgent)
	if err != nil {
		var lockedOut *models.LockedOutError
		switch {
		case errors.As(err, &lockedOut):
			pkghttp.WriteLocked(w, lockedOut.Error(), int(lockedOut.Remaining.Seconds()))
		case errors.Is(err, models.ErrInvalidCredentials),
			errors.Is(err, models.ErrStoreUnavailable):
			// Undifferentiated on purpose: never reveal which part failed.
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	claims, err := h.tokens.Validate(session.Token)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		Token:     session.Token,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// Logout revokes the current session token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := gate.TokenFromRequest(r)
	if token == "" {
		pkghttp.WriteUnauthorized(w, "Missing session token")
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		// Already invalid or expired; logout is idempotent.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.tokens.Revoke(claims)
	w.WriteHeader(http.StatusNoContent)
}

// Session reports the authenticated session's identity and expiry
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := gate.SessionFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "No active session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SessionResponse{
		AdminID:   claims.AdminID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}
