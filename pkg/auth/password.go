package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for the admin password hash. The hash is
// generated once during provisioning (ADMIN_PASSWORD_HASH), so a cost above
// the library default is affordable.
const BcryptCost = 12

// HashPassword produces the bcrypt hash stored in configuration.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash generation failed: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks a candidate password against the stored hash.
// bcrypt's comparison is constant-time over the candidate.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
