package middleware

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AgriPilot/agripilot-backend/config"
	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var (
	// ErrTokenExpired is returned when JWT validation fails due to expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for general token validation failures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMissingClaim is returned if a required claim (like 'sub') is missing.
	ErrTokenMissingClaim = errors.New("token missing required claim")
	// ErrJWKSKeyNotFound is returned if the key specified by 'kid' is not found in JWKS.
	ErrJWKSKeyNotFound = errors.New("jwks key not found")
)

// Validator defines the interface for validating tokens. Validate returns
// the subject (user ID) and role claim on success.
type Validator interface {
	Validate(tokenString string) (userID, role string, err error)
}

// JWTValidator validates Supabase JWTs using the static HS256 secret and,
// for tokens carrying a 'kid' header, the project's JWKS endpoint.
type JWTValidator struct {
	jwksCache    *JWKSCache
	staticSecret []byte
	clockSkew    time.Duration
}

var _ Validator = (*JWTValidator)(nil)

// NewJWTValidator creates a validator instance from application configuration.
// At least one validation method (HS256 secret or JWKS) must be configured.
func NewJWTValidator(cfg *config.Config) (Validator, error) {
	log := logger.GetLogger()
	var staticSecret []byte
	var jwksCache *JWKSCache

	if cfg.Supabase.JWTSecret != "" {
		staticSecret = []byte(cfg.Supabase.JWTSecret)
	} else {
		log.Warn("JWT validator: SUPABASE_JWT_SECRET not set, HS256 validation disabled")
	}

	if cfg.Supabase.URL != "" && cfg.Supabase.AnonKey != "" {
		jwksURL := fmt.Sprintf("%s/auth/v1/jwks", cfg.Supabase.URL)
		jwksCache = GetJWKSCache(jwksURL, cfg.Supabase.AnonKey, 15*time.Minute)
	} else {
		log.Warn("JWT validator: SUPABASE_URL or SUPABASE_ANON_KEY not set, JWKS validation disabled")
	}

	if staticSecret == nil && jwksCache == nil {
		return nil, fmt.Errorf("jwt validator: neither HS256 secret nor JWKS endpoint is configured")
	}

	return &JWTValidator{
		jwksCache:    jwksCache,
		staticSecret: staticSecret,
		clockSkew:    30 * time.Second,
	}, nil
}

// Validate tries HS256 first (if configured), then JWKS for tokens with a
// 'kid' header. Expiry from either method wins over other failures.
func (v *JWTValidator) Validate(tokenString string) (string, string, error) {
	log := logger.GetLogger()

	var staticErr error
	if len(v.staticSecret) > 0 {
		userID, role, err := v.validateWithKey(tokenString, jwt.WithKey(jwa.HS256, v.staticSecret))
		if err == nil {
			return userID, role, nil
		}
		staticErr = err
	}

	var jwksErr error
	if v.jwksCache != nil {
		kid, err := extractKID(tokenString)
		if err != nil {
			if staticErr != nil {
				return "", "", staticErr
			}
			return "", "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}

		if kid != "" {
			key, err := v.jwksCache.GetKey(kid)
			if err != nil {
				jwksErr = fmt.Errorf("%w: %w", ErrJWKSKeyNotFound, err)
			} else {
				userID, role, err := v.validateWithKey(tokenString, jwt.WithKey(key.Algorithm(), key))
				if err == nil {
					return userID, role, nil
				}
				jwksErr = err
			}
		}
	}

	log.Warnw("JWT validation failed", "static_error", staticErr, "jwks_error", jwksErr)

	if errors.Is(staticErr, ErrTokenExpired) || errors.Is(jwksErr, ErrTokenExpired) {
		return "", "", ErrTokenExpired
	}
	if jwksErr != nil {
		return "", "", jwksErr
	}
	if staticErr != nil {
		return "", "", fmt.Errorf("%w: %w", ErrTokenInvalid, staticErr)
	}
	return "", "", ErrTokenInvalid
}

func (v *JWTValidator) validateWithKey(tokenString string, keyOpt jwt.ParseOption) (string, string, error) {
	token, err := jwt.Parse([]byte(tokenString),
		keyOpt,
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.clockSkew),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return "", "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", "", fmt.Errorf("parse/validation failed: %w", err)
	}

	sub := token.Subject()
	if sub == "" {
		return "", "", ErrTokenMissingClaim
	}

	role := ""
	if r, ok := token.PrivateClaims()["role"].(string); ok {
		role = r
	}
	return sub, role, nil
}

// extractKID parses the JWT header without validation to get the key ID.
func extractKID(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format, expected 3 parts, got %d", len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("failed to decode token header: %w", err)
	}

	var header map[string]interface{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return "", fmt.Errorf("failed to unmarshal token header: %w", err)
	}

	kid, _ := header["kid"].(string)
	return kid, nil
}
