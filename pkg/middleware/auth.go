package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/planora/planora/pkg/auth"
	"github.com/planora/planora/pkg/contextkeys"
	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/observability"
)

// Authenticator resolves a raw bearer token to an identity.
// Implemented by auth.Store.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Identity, error)
}

// AuthMiddleware validates bearer tokens and attaches the caller's
// identity to the request context. It never consults workspace roles;
// per-workspace authorization happens in the services behind it.
type AuthMiddleware struct {
	authenticator Authenticator
	optional      bool
}

// NewAuthMiddleware creates a new authentication middleware. When
// optional is true, requests without an Authorization header pass
// through anonymously.
func NewAuthMiddleware(authenticator Authenticator, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		optional:      optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		identity, err := m.authenticator.Authenticate(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		ctx = contextkeys.WithUserID(ctx, identity.UserID.String())
		ctx = observability.WithUserID(ctx, identity.UserID.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity extracts the authenticated identity from a request, or nil
// when the request is anonymous.
func Identity(r *http.Request) *auth.Identity {
	v := r.Context().Value(contextkeys.IdentityKey)
	if v == nil {
		return nil
	}
	identity, ok := v.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

// RequireIdentity extracts the identity or writes a 401 response.
// Handlers behind an optional auth chain use it to gate protected
// routes.
func RequireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity := Identity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return identity, true
}
