package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse-battery", hash)

	assert.NoError(t, ComparePassword(hash, "correct-horse-battery"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	first, err := HashPassword("same-input")
	require.NoError(t, err)
	second, err := HashPassword("same-input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestComparePassword_MalformedHash(t *testing.T) {
	assert.Error(t, ComparePassword("not-a-bcrypt-hash", "anything"))
}
