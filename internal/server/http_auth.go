package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSessionTokenMissing indicates no session token was configured.
	ErrSessionTokenMissing = errors.New("session token is not configured")
	// ErrBearerTokenMissing indicates the Authorization header did not contain a bearer token.
	ErrBearerTokenMissing = errors.New("missing or malformed Authorization bearer token")
	// ErrBearerTokenInvalid indicates the presented bearer token did not match the configured session token.
	ErrBearerTokenInvalid = errors.New("invalid bearer token for session")
)

// SessionPrincipal carries caller identity for audit entries. There are no
// per-identity permission sets; the policy engine decides on tool name and
// mode alone.
type SessionPrincipal struct {
	Subject string
}

// SessionAuthenticator authenticates callers of mutating endpoints.
type SessionAuthenticator interface {
	Authenticate(r *http.Request) (SessionPrincipal, error)
}

// TokenSessionAuthenticator validates incoming bearer tokens against a single
// configured session token.
type TokenSessionAuthenticator struct {
	token string
}

// NewTokenSessionAuthenticator creates a session authenticator.
func NewTokenSessionAuthenticator(token string) *TokenSessionAuthenticator {
	return &TokenSessionAuthenticator{token: strings.TrimSpace(token)}
}

// Authenticate validates the Authorization bearer token.
func (a *TokenSessionAuthenticator) Authenticate(r *http.Request) (SessionPrincipal, error) {
	if a.token == "" {
		return SessionPrincipal{}, fmt.Errorf("%w; set PROXI_MCP_TOKEN", ErrSessionTokenMissing)
	}
	presented := parseBearerToken(r.Header.Get("Authorization"))
	if presented == "" {
		return SessionPrincipal{}, ErrBearerTokenMissing
	}
	if presented != a.token {
		return SessionPrincipal{}, ErrBearerTokenInvalid
	}
	return SessionPrincipal{Subject: "proxi-session"}, nil
}

func parseBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func authFailureResponse(err error) (int, string) {
	if err == nil {
		return http.StatusUnauthorized, "unauthorized"
	}
	switch {
	case errors.Is(err, ErrSessionTokenMissing):
		return http.StatusUnauthorized, "session token is not configured; set PROXI_MCP_TOKEN"
	case errors.Is(err, ErrBearerTokenMissing):
		return http.StatusUnauthorized, "missing or malformed Authorization header; expected Bearer <token>"
	case errors.Is(err, ErrBearerTokenInvalid):
		return http.StatusUnauthorized, "invalid bearer token for session"
	default:
		return http.StatusUnauthorized, err.Error()
	}
}
