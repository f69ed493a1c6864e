package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/middleware"
)

// WorkspaceHandlers serves workspace CRUD, invite rotation, and the
// invite-join flow.
type WorkspaceHandlers struct {
	workspaces  WorkspaceService
	joinLimiter *middleware.RateLimiter
}

// NewWorkspaceHandlers creates a new WorkspaceHandlers
func NewWorkspaceHandlers(workspaces WorkspaceService) *WorkspaceHandlers {
	return &WorkspaceHandlers{
		workspaces:  workspaces,
		joinLimiter: middleware.NewRateLimiter(middleware.JoinRateLimitConfig()),
	}
}

// RegisterRoutes registers workspace routes
func (h *WorkspaceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/workspaces", h.Create).Methods("POST")
	router.HandleFunc("/workspaces", h.List).Methods("GET")
	router.HandleFunc("/workspaces/{workspaceID}", h.Get).Methods("GET")
	router.HandleFunc("/workspaces/{workspaceID}", h.Update).Methods("PUT")
	router.HandleFunc("/workspaces/{workspaceID}", h.Delete).Methods("DELETE")
	router.HandleFunc("/workspaces/{workspaceID}/invite-code", h.RotateInviteCode).Methods("POST")
	// Invite-code joins get a tighter per-route limiter so a leaked
	// code cannot be brute-forced at the global rate.
	router.Handle("/workspaces/{workspaceID}/join",
		middleware.Limit(h.joinLimiter)(http.HandlerFunc(h.Join))).Methods("POST")
}

// Create creates a workspace owned by the caller
func (h *WorkspaceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}

	var req createWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	workspace, err := h.workspaces.Create(r.Context(), identity.UserID, req.Name, req.ImageURL)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteCreated(w, workspace)
}

// List returns the workspaces the caller belongs to
func (h *WorkspaceHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}

	list, err := h.workspaces.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

// Get returns one workspace; the invite code is only present for
// admins and the owner
func (h *WorkspaceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	workspace, err := h.workspaces.Get(r.Context(), identity.UserID, workspaceID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, workspace)
}

// Update renames a workspace or swaps its image
func (h *WorkspaceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	var req updateWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	workspace, err := h.workspaces.Update(r.Context(), identity.UserID, workspaceID, req.Name, req.ImageURL)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, workspace)
}

// Delete removes a workspace and everything beneath it
func (h *WorkspaceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	if err := h.workspaces.Delete(r.Context(), identity.UserID, workspaceID); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// RotateInviteCode replaces the invite code, invalidating the old one
func (h *WorkspaceHandlers) RotateInviteCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	code, err := h.workspaces.RotateInviteCode(r.Context(), identity.UserID, workspaceID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, inviteCodeResponse{InviteCode: code})
}

// Join adds the caller as a member when the invite code matches
func (h *WorkspaceHandlers) Join(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	var req joinWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	membership, err := h.workspaces.JoinByInvite(r.Context(), identity.UserID, workspaceID, req.Code)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteCreated(w, membership)
}
