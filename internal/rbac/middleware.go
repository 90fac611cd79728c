// Package rbac gates HTTP routes on the role stored in the session at login.
// The domain services perform no authorization logic themselves.
package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iransamarasekara/cnh-distributors-sub000/internal/shared"
)

// Roles recognised by the application.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleLoader  = "loader"
)

// SessionRoleKey is the session value holding the user's role.
const SessionRoleKey = "role"

// Middleware wires role checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the current user carries at least one of the given roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	required := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			role, ok := currentRole(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			for _, want := range required {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("role denied", slog.String("role", role), slog.String("path", r.URL.Path))
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireAuthenticated only checks that a logged-in user exists.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentRole(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return "", false
	}
	role := strings.ToLower(strings.TrimSpace(sess.Get(SessionRoleKey)))
	if role == "" {
		return "", false
	}
	return role, true
}

func normalizeRoles(roles []string) []string {
	unique := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		unique[role] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for role := range unique {
		normalized = append(normalized, role)
	}
	return normalized
}
