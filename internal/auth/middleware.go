package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/redmonkez12/go-auth-starter/internal/account"
	"github.com/redmonkez12/go-auth-starter/internal/httputil"
	"github.com/redmonkez12/go-auth-starter/internal/logging"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	SessionContextKey ContextKey = "session"
	AccountContextKey ContextKey = "account"
)

// SessionResolver is satisfied by *Service
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*Session, *account.Account, error)
}

// Middleware handles authentication for protected routes
type Middleware struct {
	resolver SessionResolver
}

func NewMiddleware(resolver SessionResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// RequireSession resolves the session token and stores the session and account in the request context
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractToken(w, r)
		if !ok {
			return
		}

		session, acc, err := m.resolver.ResolveSession(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				httputil.RespondErrorWithCode(w, "invalid or expired session", httputil.CodeUnauthorized, http.StatusUnauthorized)
				return
			}
			logging.GetLoggerFromContext(r.Context()).Error("failed to resolve session", "error", err)
			httputil.RespondErrorWithCode(w, "failed to resolve session", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, session)
		ctx = context.WithValue(ctx, AccountContextKey, acc)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken prefers the Authorization header and falls back to the session cookie
func extractToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return "", false
		}
		return strings.TrimSpace(token), true
	}

	token, err := GetSessionTokenFromCookie(r)
	if err != nil {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeUnauthorized, http.StatusUnauthorized)
		return "", false
	}
	return token, true
}

// requestToken returns the session token of a request without writing a response
func requestToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, found := strings.Cut(authHeader, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, _ := GetSessionTokenFromCookie(r)
	return token
}

// GetSessionFromContext extracts the session placed by RequireSession
func GetSessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*Session)
	return session, ok
}

// GetAccountFromContext extracts the account placed by RequireSession
func GetAccountFromContext(ctx context.Context) (*account.Account, bool) {
	acc, ok := ctx.Value(AccountContextKey).(*account.Account)
	return acc, ok
}
