package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/middleware"
	"github.com/planora/planora/pkg/roles"
)

// MemberHandlers serves the member roster, role changes, removals,
// and the caller's own leave operation.
type MemberHandlers struct {
	members MembershipService
}

// NewMemberHandlers creates a new MemberHandlers
func NewMemberHandlers(members MembershipService) *MemberHandlers {
	return &MemberHandlers{members: members}
}

// RegisterRoutes registers membership routes
func (h *MemberHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/workspaces/{workspaceID}/members", h.List).Methods("GET")
	router.HandleFunc("/workspaces/{workspaceID}/members/{membershipID}", h.ChangeRole).Methods("PUT")
	router.HandleFunc("/workspaces/{workspaceID}/members/{membershipID}", h.Remove).Methods("DELETE")
	router.HandleFunc("/workspaces/{workspaceID}/leave", h.Leave).Methods("POST")
}

// List returns the workspace roster with pagination
func (h *MemberHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	limit, offset, err := httputil.ParsePagination(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	members, total, err := h.members.ListMembers(r.Context(), identity.UserID, workspaceID, limit, offset)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, memberListResponse{
		Members: members,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// ChangeRole assigns a new role to a member
func (h *MemberHandlers) ChangeRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	membershipID, ok := httputil.ParsePathUUIDOrError(w, r, "membershipID")
	if !ok {
		return
	}

	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	role, err := roles.Parse(req.Role)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	membership, err := h.members.ChangeRole(r.Context(), identity.UserID, workspaceID, membershipID, role)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, membership)
}

// Remove kicks a member out of the workspace
func (h *MemberHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	membershipID, ok := httputil.ParsePathUUIDOrError(w, r, "membershipID")
	if !ok {
		return
	}

	if err := h.members.RemoveMember(r.Context(), identity.UserID, workspaceID, membershipID); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// Leave removes the caller's own membership
func (h *MemberHandlers) Leave(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	if err := h.members.Leave(r.Context(), identity.UserID, workspaceID); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
