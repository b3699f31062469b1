package middleware

import (
	"testing"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-that-is-long-enough-for-hs256"

func init() {
	logger.IsTest = true
}

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func newHS256Validator(t *testing.T) Validator {
	t.Helper()
	cfg := &config.Config{}
	cfg.Supabase.JWTSecret = testJWTSecret

	v, err := NewJWTValidator(cfg)
	require.NoError(t, err)
	return v
}

func TestJWTValidator_ValidToken(t *testing.T) {
	v := newHS256Validator(t)

	token := signTestToken(t, jwt.MapClaims{
		"sub":  "user-123",
		"role": "authenticated",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	userID, role, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
	assert.Equal(t, "authenticated", role)
}

func TestJWTValidator_ExpiredToken(t *testing.T) {
	v := newHS256Validator(t)

	token := signTestToken(t, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, _, err := v.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTValidator_WrongSignature(t *testing.T) {
	v := newHS256Validator(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("a-completely-different-secret-value"))
	require.NoError(t, err)

	_, _, verr := v.Validate(signed)
	require.Error(t, verr)
	assert.ErrorIs(t, verr, ErrTokenInvalid)
}

func TestJWTValidator_MissingSubject(t *testing.T) {
	v := newHS256Validator(t)

	token := signTestToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, _, err := v.Validate(token)
	require.Error(t, err)
}

func TestJWTValidator_GarbageToken(t *testing.T) {
	v := newHS256Validator(t)

	_, _, err := v.Validate("not-a-jwt")
	assert.Error(t, err)
}

func TestNewJWTValidator_RequiresAMethod(t *testing.T) {
	_, err := NewJWTValidator(&config.Config{})
	assert.Error(t, err)
}
