package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/academyops/backoffice/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates admin session tokens. Expiry is never
// pushed: an expired token is only discovered when it is next validated.
type TokenManager struct {
	secret     string
	sessionTTL time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

// NewTokenManager creates a TokenManager with the given signing secret and
// session lifetime.
func NewTokenManager(secret string, sessionTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     secret,
		sessionTTL: sessionTTL,
		revoked:    make(map[string]time.Time),
	}
}

// Issue creates a fresh session token for the admin identity.
func (tm *TokenManager) Issue(adminID string, now time.Time) (string, *models.SessionClaims, error) {
	claims := &models.SessionClaims{
		Type:    models.SessionTokenType,
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, claims, nil
}

// Validate verifies a session token and returns its claims. Expired, revoked
// and malformed tokens all come back as models.ErrUnauthorized.
func (tm *TokenManager) Validate(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.SessionTokenType {
		return nil, models.ErrUnauthorized
	}

	if tm.isRevoked(claims.ID) {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

// Revoke invalidates a session immediately (explicit logout).
func (tm *TokenManager) Revoke(claims *models.SessionClaims) {
	if claims == nil || claims.ID == "" {
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.revoked[claims.ID] = expiresAt
	tm.pruneLocked(time.Now())
}

func (tm *TokenManager) isRevoked(jti string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, ok := tm.revoked[jti]
	return ok
}

// pruneLocked drops revocation entries whose tokens have expired anyway.
// Caller must hold tm.mu.
func (tm *TokenManager) pruneLocked(now time.Time) {
	for jti, expiresAt := range tm.revoked {
		if !expiresAt.IsZero() && now.After(expiresAt) {
			delete(tm.revoked, jti)
		}
	}
}
