package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/middleware"
)

// ProjectHandlers serves project CRUD and archival inside a workspace.
type ProjectHandlers struct {
	projects ProjectService
}

// NewProjectHandlers creates a new ProjectHandlers
func NewProjectHandlers(projects ProjectService) *ProjectHandlers {
	return &ProjectHandlers{projects: projects}
}

// RegisterRoutes registers project routes
func (h *ProjectHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/workspaces/{workspaceID}/projects", h.Create).Methods("POST")
	router.HandleFunc("/workspaces/{workspaceID}/projects", h.List).Methods("GET")
	router.HandleFunc("/workspaces/{workspaceID}/projects/{projectID}", h.Get).Methods("GET")
	router.HandleFunc("/workspaces/{workspaceID}/projects/{projectID}", h.Update).Methods("PUT")
	router.HandleFunc("/workspaces/{workspaceID}/projects/{projectID}", h.Delete).Methods("DELETE")
	router.HandleFunc("/workspaces/{workspaceID}/projects/{projectID}/archive", h.SetArchived).Methods("POST")
}

func (h *ProjectHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}

	var req createProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := h.projects.Create(r.Context(), identity.UserID, workspaceID, req.Name, req.Description)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteCreated(w, project)
}

func (h *ProjectHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	includeArchived, err := httputil.ParseQueryBool(r, "include_archived", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := h.projects.List(r.Context(), identity.UserID, workspaceID, includeArchived)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (h *ProjectHandlers) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathUUIDOrError(w, r, "projectID")
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), identity.UserID, workspaceID, projectID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, project)
}

func (h *ProjectHandlers) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathUUIDOrError(w, r, "projectID")
	if !ok {
		return
	}

	var req updateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := h.projects.Update(r.Context(), identity.UserID, workspaceID, projectID, req.Name, req.Description)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, project)
}

func (h *ProjectHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathUUIDOrError(w, r, "projectID")
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), identity.UserID, workspaceID, projectID); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ProjectHandlers) SetArchived(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return
	}
	workspaceID, ok := httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return
	}
	projectID, ok := httputil.ParsePathUUIDOrError(w, r, "projectID")
	if !ok {
		return
	}

	var req archiveProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.projects.SetArchived(r.Context(), identity.UserID, workspaceID, projectID, req.Archived); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
