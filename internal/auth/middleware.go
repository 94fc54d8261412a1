package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// principalContextKey is the context key for the authenticated principal
const principalContextKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal, if any
func PrincipalFromContext(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(types.Principal)
	return p, ok
}

// ContextWithPrincipal injects a principal, used by handler tests
func ContextWithPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// Middleware authenticates requests. The token only identifies the user;
// role and company always come from the stored record, so a role change
// or deactivation takes effect on the next request rather than at token
// expiry.
type Middleware struct {
	tokens *TokenService
	users  store.UserStore
	logger *zap.Logger
}

// NewMiddleware creates an authentication middleware
func NewMiddleware(tokens *TokenService, users store.UserStore, logger *zap.Logger) (*Middleware, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{tokens: tokens, users: users, logger: logger}, nil
}

// Handler returns an HTTP middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractToken(r)
		if err != nil {
			m.respondUnauthorized(w, "missing or invalid authorization header")
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.Error(err),
				zap.String("path", r.URL.Path))
			m.respondUnauthorized(w, "invalid token")
			return
		}

		user, err := m.users.GetUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				m.respondUnauthorized(w, "invalid token")
				return
			}
			m.logger.Error("principal lookup failed",
				zap.Error(err),
				zap.String("user_id", claims.Subject))
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		if !user.Active {
			m.respondUnauthorized(w, "account is deactivated")
			return
		}

		ctx := ContextWithPrincipal(r.Context(), *user.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken extracts the bearer token from the Authorization header
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header must use Bearer scheme")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}

func (m *Middleware) respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="expenseflow"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
