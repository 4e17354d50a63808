package auth

import (
	"testing"
	"time"

	"github.com/mojomaniac/skillswap/internal/apperror"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(testSecret, 24*time.Hour, "skillswap")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	return issuer
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", subject)
	}
}

func TestTokenExpiryBoundary(t *testing.T) {
	t.Parallel()
	issuer := newTestIssuer(t)

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issuedAt }
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	issuer.now = func() time.Time { return issuedAt.Add(23 * time.Hour) }
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("token rejected at T+23h: %v", err)
	}

	issuer.now = func() time.Time { return issuedAt.Add(25 * time.Hour) }
	_, err = issuer.Verify(token)
	if !apperror.IsKind(err, apperror.KindTokenExpired) {
		t.Fatalf("error at T+25h = %v, want token_expired", err)
	}
}

func TestTokenRejectsBadSignature(t *testing.T) {
	t.Parallel()
	issuer := newTestIssuer(t)
	other, err := NewTokenIssuer("fedcba9876543210fedcba9876543210", 24*time.Hour, "skillswap")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = issuer.Verify(token)
	if !apperror.IsKind(err, apperror.KindTokenInvalid) {
		t.Fatalf("error = %v, want token_invalid", err)
	}
}

func TestTokenRejectsMalformed(t *testing.T) {
	t.Parallel()
	issuer := newTestIssuer(t)

	_, err := issuer.Verify("not-a-jwt")
	if !apperror.IsKind(err, apperror.KindTokenInvalid) {
		t.Fatalf("error = %v, want token_invalid", err)
	}
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	t.Parallel()
	issuer := newTestIssuer(t)
	other, err := NewTokenIssuer(testSecret, 24*time.Hour, "another-app")
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, err := other.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = issuer.Verify(token)
	if !apperror.IsKind(err, apperror.KindTokenInvalid) {
		t.Fatalf("error = %v, want token_invalid", err)
	}
}

func TestShortSecretRejected(t *testing.T) {
	t.Parallel()
	if _, err := NewTokenIssuer("short", time.Hour, "skillswap"); err == nil {
		t.Fatal("NewTokenIssuer accepted a short secret")
	}
}
