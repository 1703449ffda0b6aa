package rbac

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/mendaur/mendaur-admin/internal/platform/httpx"
)

// Resolver extracts the current subject from a request.
type Resolver func(r *http.Request) (Subject, bool)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Resolve Resolver
	Logger  *slog.Logger
	Guard   Guard
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			subject, ok := m.current(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
				return
			}
			for _, perm := range normalized {
				if m.Guard.Allowed(subject, perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, r, normalized)
		})
	}
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			subject, ok := m.current(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
				return
			}
			for _, perm := range normalized {
				if !m.Guard.Allowed(subject, perm) {
					m.deny(w, r, normalized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession only checks that someone is signed in.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.current(r); !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) current(r *http.Request) (Subject, bool) {
	if m.Resolve == nil {
		return nil, false
	}
	subject, ok := m.Resolve(r)
	if !ok || isNil(subject) {
		return nil, false
	}
	return subject, true
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, required []string) {
	if m.Logger != nil {
		m.Logger.Warn("rbac denied", slog.String("path", r.URL.Path), slog.Any("required", required))
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}
