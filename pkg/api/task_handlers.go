package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/planora/planora/pkg/httputil"
	"github.com/planora/planora/pkg/middleware"
	"github.com/planora/planora/pkg/tasks"
)

// TaskHandlers serves the task board inside a project.
type TaskHandlers struct {
	tasks TaskService
}

// NewTaskHandlers creates a new TaskHandlers
func NewTaskHandlers(tasks TaskService) *TaskHandlers {
	return &TaskHandlers{tasks: tasks}
}

// RegisterRoutes registers task routes
func (h *TaskHandlers) RegisterRoutes(router *mux.Router) {
	base := "/workspaces/{workspaceID}/projects/{projectID}/tasks"
	router.HandleFunc(base, h.Create).Methods("POST")
	router.HandleFunc(base, h.List).Methods("GET")
	router.HandleFunc(base+"/reposition", h.BulkReposition).Methods("POST")
	router.HandleFunc(base+"/{taskID}", h.Get).Methods("GET")
	router.HandleFunc(base+"/{taskID}", h.Update).Methods("PUT")
	router.HandleFunc(base+"/{taskID}", h.Delete).Methods("DELETE")
}

func taskScope(w http.ResponseWriter, r *http.Request) (userID, workspaceID, projectID uuid.UUID, ok bool) {
	identity, ok := middleware.RequireIdentity(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	workspaceID, ok = httputil.ParsePathUUIDOrError(w, r, "workspaceID")
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	projectID, ok = httputil.ParsePathUUIDOrError(w, r, "projectID")
	if !ok {
		return uuid.Nil, uuid.Nil, uuid.Nil, false
	}
	return identity.UserID, workspaceID, projectID, true
}

func (h *TaskHandlers) Create(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, projectID, ok := taskScope(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, workspaceID, projectID, tasks.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      tasks.Status(req.Status),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteCreated(w, task)
}

func (h *TaskHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, projectID, ok := taskScope(w, r)
	if !ok {
		return
	}

	var filter tasks.ListFilter
	if status := httputil.ParseQueryString(r, "status", ""); status != "" {
		s := tasks.Status(status)
		filter.Status = &s
	}
	if assignee := httputil.ParseQueryString(r, "assignee_id", ""); assignee != "" {
		id, err := uuid.Parse(assignee)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid assignee_id")
			return
		}
		filter.AssigneeID = &id
	}

	list, err := h.tasks.List(r.Context(), userID, workspaceID, projectID, filter)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

func (h *TaskHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, projectID, ok := taskScope(w, r)
	if !ok {
		return
	}
	taskID, ok := httputil.ParsePathUUIDOrError(w, r, "taskID")
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), userID, workspaceID, projectID, taskID)
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, task)
}

func (h *TaskHandlers) Update(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, projectID, ok := taskScope(w, r)
	if !ok {
		return
	}
	taskID, ok := httputil.ParsePathUUIDOrError(w, r, "taskID")
	if !ok {
		return
	}

	var req taskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	task, err := h.tasks.Update(r.Context(), userID, workspaceID, projectID, taskID, tasks.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Status:      tasks.Status(req.Status),
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteSuccess(w, task)
}

func (h *TaskHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, projectID, ok := taskScope(w, r)
	if !ok {
		return
	}
	taskID, ok := httputil.ParsePathUUIDOrError(w, r, "taskID")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, workspaceID, projectID, taskID); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TaskHandlers) BulkReposition(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, projectID, ok := taskScope(w, r)
	if !ok {
		return
	}

	var req bulkRepositionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	moves := make([]tasks.Move, 0, len(req.Moves))
	for _, m := range req.Moves {
		moves = append(moves, tasks.Move{
			TaskID:   m.TaskID,
			Status:   tasks.Status(m.Status),
			Position: m.Position,
		})
	}

	if err := h.tasks.BulkReposition(r.Context(), userID, workspaceID, projectID, moves); err != nil {
		httputil.WriteErr(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
