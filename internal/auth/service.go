package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingToken is returned when a request carries no credentials.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken is returned when a token fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Name   string
}

// Service verifies tokens issued by the identity provider.
type Service struct {
	jwtConfig     *JWTConfig
	sessionCookie string
}

// NewService creates a new authentication service.
// sessionCookie may be empty to disable cookie lookup.
func NewService(jwtConfig *JWTConfig, sessionCookie string) *Service {
	return &Service{
		jwtConfig:     jwtConfig,
		sessionCookie: sessionCookie,
	}
}

// ValidateToken validates a JWT token and returns the caller identity.
func (s *Service) ValidateToken(tokenString string) (*Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &Identity{UserID: claims.Identity(), Name: claims.Name}, nil
}

// IssueToken mints a token signed with the configured secret.
func (s *Service) IssueToken(userID, name string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	return GenerateToken(s.jwtConfig, userID, name)
}

// TokenFromRequest extracts a token from the Authorization header,
// the token query parameter, or the session cookie, in that order.
func (s *Service) TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if s.sessionCookie != "" {
		if cookie, err := r.Cookie(s.sessionCookie); err == nil {
			return cookie.Value
		}
	}

	return ""
}

// Authenticate resolves the identity for an HTTP request.
func (s *Service) Authenticate(r *http.Request) (*Identity, error) {
	return s.ValidateToken(s.TokenFromRequest(r))
}
