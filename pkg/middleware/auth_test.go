package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/pkg/auth"
	"github.com/planora/planora/pkg/errs"
)

type fakeAuthenticator struct {
	tokens map[string]*auth.Identity
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	identity, ok := f.tokens[token]
	if !ok {
		return nil, errs.E(errs.Unauthorized, "invalid or expired token")
	}
	return identity, nil
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	authenticator := &fakeAuthenticator{tokens: map[string]*auth.Identity{
		"plnr_good": {UserID: userID, Email: "dev@example.com"},
	}}

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity := Identity(r); identity != nil {
			w.Header().Set("X-User", identity.UserID.String())
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		handler := NewAuthMiddleware(authenticator, false).Handler(echo)
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Bearer plnr_good")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID.String(), rec.Header().Get("X-User"))
	})

	t.Run("missing header rejected", func(t *testing.T) {
		handler := NewAuthMiddleware(authenticator, false).Handler(echo)
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		handler := NewAuthMiddleware(authenticator, false).Handler(echo)
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Token plnr_good")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		handler := NewAuthMiddleware(authenticator, false).Handler(echo)
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Bearer plnr_forged")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("optional mode passes anonymous requests", func(t *testing.T) {
		handler := NewAuthMiddleware(authenticator, true).Handler(echo)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-User"))
	})
}

func TestRequireIdentity(t *testing.T) {
	t.Run("anonymous request gets 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		rec := httptest.NewRecorder()

		identity, ok := RequireIdentity(rec, req)

		assert.False(t, ok)
		assert.Nil(t, identity)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated request passes", func(t *testing.T) {
		userID := uuid.New()
		authenticator := &fakeAuthenticator{tokens: map[string]*auth.Identity{
			"plnr_good": {UserID: userID},
		}}

		var got *auth.Identity
		handler := NewAuthMiddleware(authenticator, false).Handler(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				identity, ok := RequireIdentity(w, r)
				require.True(t, ok)
				got = identity
			}))

		req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
		req.Header.Set("Authorization", "Bearer plnr_good")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, got)
		assert.Equal(t, userID, got.UserID)
	})
}
