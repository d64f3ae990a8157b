package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// SessionContextKey is the context key for the request's session
	SessionContextKey ContextKey = "session"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Session attaches the request's owner to the context. With a verifier
// every request needs a valid bearer token; without one all requests act as
// devOwner.
func Session(verifier TokenVerifier, devOwner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				session := &domain.Session{UserID: devOwner}
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
				return
			}

			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			// Parse Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims.Session())))
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, session)
}

// SessionFromContext extracts the session. It returns nil when the request
// is unauthenticated, which the use cases reject with ErrAccessDenied.
func SessionFromContext(ctx context.Context) *domain.Session {
	session, _ := ctx.Value(SessionContextKey).(*domain.Session)
	return session
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
