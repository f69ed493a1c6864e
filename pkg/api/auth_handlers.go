package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/planora/planora/pkg/auth"
	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/middleware"
)

// loginTokenTTL is the lifetime of tokens minted by the OIDC callback.
const loginTokenTTL = 30 * 24 * time.Hour

// UserStore is the slice of auth.Store the handlers use.
type UserStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*auth.User, error)
	UpsertOIDCUser(ctx context.Context, subject, email, displayName, avatarURL string) (*auth.User, error)
	CreateToken(ctx context.Context, userID uuid.UUID, name string, ttl time.Duration) (*auth.APIToken, string, error)
	ListTokens(ctx context.Context, userID uuid.UUID) ([]*auth.APIToken, error)
	RevokeToken(ctx context.Context, userID, tokenID uuid.UUID) error
}

// OIDCExchanger is the provider-facing slice of auth.OIDCClient.
type OIDCExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.OIDCClaims, error)
}

// AuthHandlers serves the OIDC login flow, the current-user endpoint,
// and API token management.
type AuthHandlers struct {
	store UserStore
	oidc  OIDCExchanger
}

// NewAuthHandlers creates a new AuthHandlers. oidc may be nil when no
// provider is configured; the login routes then respond 503.
func NewAuthHandlers(store UserStore, oidc OIDCExchanger) *AuthHandlers {
	return &AuthHandlers{store: store, oidc: oidc}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.Login).Methods("GET")
	router.HandleFunc("/auth/callback", h.Callback).Methods("GET")
	router.HandleFunc("/me", h.Me).Methods("GET")
	router.HandleFunc("/me/tokens", h.ListTokens).Methods("GET")
	router.HandleFunc("/me/tokens", h.CreateToken).Methods("POST")
	router.HandleFunc("/me/tokens/{tokenID}", h.RevokeToken).Methods("DELETE")
}

// Login returns the provider URL the client should redirect to
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		httputil.WriteServiceUnavailable(w, "login is not configured")
		return
	}

	state := httputil.ParseQueryString(r, "state", "")
	if state == "" {
		state = uuid.New().String()
	}

	httputil.WriteSuccess(w, loginResponse{AuthURL: h.oidc.AuthCodeURL(state)})
}

// Callback redeems the authorization code, upserts the user, and
// mints an API token. The plaintext token appears in this response
// only; we store just its hash.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		httputil.WriteServiceUnavailable(w, "login is not configured")
		return
	}

	code := httputil.ParseQueryString(r, "code", "")
	if code == "" {
		httputil.WriteBadRequest(w, "missing code parameter")
		return
	}

	claims, err := h.oidc.Exchange(r.Context(), code)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	user, err := h.store.UpsertOIDCUser(r.Context(), claims.Subject, claims.Email, claims.Name, claims.Picture)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	token, plaintext, err := h.store.CreateToken(r.Context(), user.ID, "oidc-login", loginTokenTTL)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteCreated(w, tokenResponse{
		ID:          token.ID,
		Name:        token.Name,
		TokenPrefix: token.TokenPrefix,
		Token:       plaintext,
	})
}

// Me returns the authenticated user's profile
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.store.GetUser(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, user)
}

// ListTokens returns the caller's API tokens, hashes omitted
func (h *AuthHandlers) ListTokens(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}

	tokens, err := h.store.ListTokens(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, tokens)
}

// CreateToken mints a named API token for the caller
func (h *AuthHandlers) CreateToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}

	var req createTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "invalid ttl")
			return
		}
		ttl = parsed
	}

	token, plaintext, err := h.store.CreateToken(r.Context(), identity.UserID, req.Name, ttl)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteCreated(w, tokenResponse{
		ID:          token.ID,
		Name:        token.Name,
		TokenPrefix: token.TokenPrefix,
		Token:       plaintext,
	})
}

// RevokeToken deletes one of the caller's tokens
func (h *AuthHandlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	tokenID, ok := httputil.ParsePathUUIDOrError(w, r, "tokenID")
	if !ok {
		return
	}

	if err := h.store.RevokeToken(r.Context(), identity.UserID, tokenID); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
