package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mojomaniac/skillswap/internal/apperror"
)

// TokenIssuer mints and verifies signed session tokens. The HMAC secret is
// loaded once at startup and shared process-wide; tokens carry no server-side
// state and expiry is the only invalidation mechanism.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. The secret must be at least 16
// characters; ttl defaults to 24h when zero.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: signing secret must be at least 16 characters")
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if issuer == "" {
		issuer = "skillswap"
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Issue mints a signed HS256 token with subject userID expiring exactly
// ttl after issuance.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := t.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			Issuer:    t.issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, returning the subject user id.
// Failures carry KindTokenExpired or KindTokenInvalid.
func (t *TokenIssuer) Verify(tokenStr string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.Wrap(apperror.KindTokenExpired, "session token expired", err)
		}
		return "", apperror.Wrap(apperror.KindTokenInvalid, "session token invalid", err)
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", apperror.New(apperror.KindTokenInvalid, "session token has no subject")
	}
	return claims.Subject, nil
}
