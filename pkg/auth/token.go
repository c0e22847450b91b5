// Package auth signs and verifies the HS256 access tokens handed to clients.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/storetrail/storetrail-backend/pkg/config"
	"github.com/storetrail/storetrail-backend/pkg/enums"
)

var (
	ErrSecretMissing  = errors.New("auth: jwt secret not configured")
	ErrUserIDMissing  = errors.New("auth: token carries no user id")
	errIssuerMissing  = errors.New("auth: jwt issuer not configured")
	errLifetimeNotSet = errors.New("auth: jwt expiration must be positive")
)

var method = jwt.SigningMethodHS256

// Identity is what a signed token asserts about its bearer. SessionID
// becomes the jti and links the token to its refresh session.
type Identity struct {
	UserID    uuid.UUID
	Role      enums.UserRole
	SessionID string
}

// Claims is the decoded form of an access token.
type Claims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Sign issues an access token valid from now for cfg.ExpirationMinutes.
// A blank SessionID gets a random one.
func Sign(cfg config.JWTConfig, now time.Time, id Identity) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrSecretMissing
	case cfg.Issuer == "":
		return "", errIssuerMissing
	case cfg.ExpirationMinutes <= 0:
		return "", errLifetimeNotSet
	case id.UserID == uuid.Nil:
		return "", ErrUserIDMissing
	case !id.Role.IsValid():
		return "", fmt.Errorf("auth: unknown role %q", id.Role)
	}

	jti := strings.TrimSpace(id.SessionID)
	if jti == "" {
		jti = uuid.NewString()
	}
	lifetime := time.Duration(cfg.ExpirationMinutes) * time.Minute

	signed, err := jwt.NewWithClaims(method, Claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry.
func Verify(cfg config.JWTConfig, raw string) (*Claims, error) {
	return parse(cfg, raw)
}

// VerifyLapsed checks signature and issuer but accepts an expired token, so
// logout and refresh keep working once the access token runs out.
func VerifyLapsed(cfg config.JWTConfig, raw string) (*Claims, error) {
	return parse(cfg, raw, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, raw string, extra ...jwt.ParserOption) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretMissing
	}

	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return nil, err
	}
	if claims.Issuer != cfg.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	if claims.UserID == uuid.Nil {
		return nil, ErrUserIDMissing
	}
	return &claims, nil
}
