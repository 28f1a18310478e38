package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, expiresAt, err := GenerateToken("admin", RoleAdmin, "s3cret-value", time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	claims, err := ValidateToken(token, "s3cret-value")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ValidateToken(token, "other-secret")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidateToken_Expired(t *testing.T) {
	token, _, err := GenerateToken("admin", RoleAdmin, "s3cret-value", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "s3cret-value")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(unsigned, "s3cret-value")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("2468")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("2468", hash))
	assert.False(t, CheckPasswordHash("1357", hash))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "--- EMPTY ---", MaskSecret("", "x"))
	assert.Contains(t, MaskSecret("default-secret", "default-secret"), "DEFAULT")
	assert.Equal(t, "*** MASKED (short: 4 chars) ***", MaskSecret("9876", "1234"))
	assert.Equal(t, "*** MASKED ***", MaskSecret("a-long-secret", ""))
}

func TestDescribeStoreLocation(t *testing.T) {
	assert.Equal(t, "(in-memory only)", DescribeStoreLocation("memory", "./data", "x.db"))
	assert.Equal(t, "sqlite in-memory database", DescribeStoreLocation("sqlite", "./data", ":memory:"))
	assert.Equal(t, "data/x.db", DescribeStoreLocation("sqlite", "./data", "x.db"))
}
