package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(jwtConfig, "twin_session")
}

func TestValidateToken_RoundTrip(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.IssueToken("user-42", "Alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	id, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected token to validate, got %v", err)
	}
	if id.UserID != "user-42" || id.Name != "Alice" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestValidateToken_Missing(t *testing.T) {
	svc := newTestAuthService(t)

	if _, err := svc.ValidateToken("  "); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := newTestAuthService(t)

	other := &JWTConfig{Secret: []byte("other"), Issuer: "test", Audience: "test", TTL: time.Hour}
	token, err := GenerateToken(other, "user-1", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_FallsBackToSubject(t *testing.T) {
	svc := newTestAuthService(t)

	claims := jwt.MapClaims{
		"sub": "user-sub",
		"iss": "test",
		"aud": "test",
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-change-me"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if id.UserID != "user-sub" {
		t.Fatalf("expected subject as user id, got %q", id.UserID)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestAuthService(t)

	expired := &JWTConfig{Secret: []byte("test-secret-change-me"), Issuer: "test", Audience: "test", TTL: -time.Minute}
	token, err := GenerateToken(expired, "user-1", "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenFromRequest(t *testing.T) {
	svc := newTestAuthService(t)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=query-token", nil)
	if got := svc.TokenFromRequest(req); got != "query-token" {
		t.Fatalf("expected query token, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer header-token")
	if got := svc.TokenFromRequest(req); got != "header-token" {
		t.Fatalf("expected header token to win, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.AddCookie(&http.Cookie{Name: "twin_session", Value: "cookie-token"})
	if got := svc.TokenFromRequest(req); got != "cookie-token" {
		t.Fatalf("expected cookie token, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Basic abc")
	if got := svc.TokenFromRequest(req); got != "" {
		t.Fatalf("expected no token for non-bearer scheme, got %q", got)
	}
}
