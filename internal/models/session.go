package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenType is the only token type the gate issues.
const SessionTokenType = "admin_session"

// Session is the result of a successful credential check.
type Session struct {
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// SessionClaims are the JWT claims carried by an admin session token.
type SessionClaims struct {
	Type    string `json:"type"`
	AdminID string `json:"admin_id"`
	jwt.RegisteredClaims
}
