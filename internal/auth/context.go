package auth

import (
	"context"
	"net/http"

	"github.com/mendaur/mendaur-admin/internal/rbac"
	"github.com/mendaur/mendaur-admin/internal/shared"
)

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// FromContext returns the signed-in identity or nil.
func FromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}

// Middleware restores the identity from the request session.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.Load(shared.SessionFromContext(r.Context()))
		if ok {
			r = r.WithContext(ContextWithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

// Resolve adapts FromContext for rbac.Middleware.
func Resolve(r *http.Request) (rbac.Subject, bool) {
	identity := FromContext(r.Context())
	if identity == nil {
		return nil, false
	}
	return identity, true
}
