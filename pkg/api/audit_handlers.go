package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/middleware"
	"github.com/planora/planora/pkg/roles"
)

// AuditHandlers exposes the workspace audit trail to admins.
type AuditHandlers struct {
	query AuditQuerier
	guard Authorizer
}

// NewAuditHandlers creates a new AuditHandlers
func NewAuditHandlers(query AuditQuerier, guard Authorizer) *AuditHandlers {
	return &AuditHandlers{query: query, guard: guard}
}

// RegisterRoutes registers audit routes
func (h *AuditHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/workspaces/{workspaceID}/audit", h.List).Methods("GET")
}

// List returns recent audit records for a workspace
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	if _, err := h.guard.Authorize(r.Context(), identity.UserID, workspaceID, roles.RoleAdmin); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	filters := audit.Filters{
		WorkspaceID: &workspaceID,
		Action:      audit.Action(httputil.ParseQueryString(r, "action", "")),
		Limit:       limit,
		Offset:      offset,
	}
	if since := httputil.ParseQueryString(r, "since", ""); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			httputil.WriteBadRequest(w, "since must be RFC 3339")
			return
		}
		filters.Since = parsed
	}
	if actor := httputil.ParseQueryString(r, "actor_id", ""); actor != "" {
		id, err := uuid.Parse(actor)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid actor_id")
			return
		}
		filters.ActorID = &id
	}

	records, err := h.query.Query(r.Context(), filters)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, records)
}
