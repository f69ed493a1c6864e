package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/roles"
)

const maxTitleLength = 500

// Store is the persistence interface the service operates against.
type Store interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, projectID uuid.UUID, filter ListFilter) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	BulkReposition(ctx context.Context, projectID uuid.UUID, moves []Move) error
	ReindexLane(ctx context.Context, projectID uuid.UUID, status Status) error
}

// Authorizer is the slice of the guard the task service needs.
type Authorizer interface {
	RequireProject(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, minRole roles.Role) (*memberships.Membership, error)
	RequireTask(ctx context.Context, callerID, workspaceID, projectID, taskID uuid.UUID, minRole roles.Role) (*memberships.Membership, error)
}

// MemberChecker verifies that a user belongs to a workspace, used to
// validate assignees.
type MemberChecker interface {
	Find(ctx context.Context, userID, workspaceID uuid.UUID) (*memberships.Membership, error)
}

// CreateParams are the caller-provided fields for a new task.
type CreateParams struct {
	Title       string
	Description string
	Status      Status
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// UpdateParams are the caller-provided fields for a task update.
type UpdateParams struct {
	Title       string
	Description string
	Status      Status
	AssigneeID  *uuid.UUID
	DueDate     *time.Time
}

// Service applies role gates and per-field validation to task operations.
type Service struct {
	store   Store
	guard   Authorizer
	members MemberChecker
	auditor audit.Logger
	logger  *observability.Logger
}

// NewService creates a task service.
func NewService(store Store, guard Authorizer, members MemberChecker, auditor audit.Logger, logger *observability.Logger) *Service {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Service{store: store, guard: guard, members: members, auditor: auditor, logger: logger}
}

// Create adds a task to the project. Requires Moderator. The task lands at
// the end of its status lane.
func (s *Service) Create(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, params CreateParams) (*Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errs.E(errs.Invalid, "task title is required")
	}
	if len(title) > maxTitleLength {
		return nil, errs.Ef(errs.Invalid, "task title exceeds %d characters", maxTitleLength)
	}
	status := params.Status
	if status == "" {
		status = StatusBacklog
	}
	if !ValidStatus(status) {
		return nil, errs.Ef(errs.Invalid, "invalid task status: %q", status)
	}

	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleModerator); err != nil {
		return nil, err
	}

	if err := s.checkAssignee(ctx, workspaceID, params.AssigneeID); err != nil {
		return nil, err
	}

	task := &Task{
		ProjectID:   projectID,
		Title:       title,
		Description: params.Description,
		Status:      status,
		AssigneeID:  params.AssigneeID,
		DueDate:     params.DueDate,
		CreatedBy:   actorID,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event(audit.ActionTaskCreated, audit.EntityTask, workspaceID, actorID).
		WithEntity(task.ID).
		WithDetail("title", title).
		WithDetail("status", string(status)))

	return task, nil
}

// Get retrieves a task for a member, verifying the full nesting chain.
func (s *Service) Get(ctx context.Context, actorID, workspaceID, projectID, taskID uuid.UUID) (*Task, error) {
	if _, err := s.guard.RequireTask(ctx, actorID, workspaceID, projectID, taskID, roles.RoleMember); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, taskID)
}

// List retrieves the project's tasks in board order for a member.
func (s *Service) List(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, filter ListFilter) ([]*Task, error) {
	if filter.Status != nil && !ValidStatus(*filter.Status) {
		return nil, errs.Ef(errs.Invalid, "invalid task status: %q", *filter.Status)
	}
	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleMember); err != nil {
		return nil, err
	}
	return s.store.List(ctx, projectID, filter)
}

// Update rewrites a task's fields. Requires Moderator.
func (s *Service) Update(ctx context.Context, actorID, workspaceID, projectID, taskID uuid.UUID, params UpdateParams) (*Task, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, errs.E(errs.Invalid, "task title is required")
	}
	if !ValidStatus(params.Status) {
		return nil, errs.Ef(errs.Invalid, "invalid task status: %q", params.Status)
	}

	if _, err := s.guard.RequireTask(ctx, actorID, workspaceID, projectID, taskID, roles.RoleModerator); err != nil {
		return nil, err
	}

	if err := s.checkAssignee(ctx, workspaceID, params.AssigneeID); err != nil {
		return nil, err
	}

	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	task.Title = title
	task.Description = params.Description
	task.Status = params.Status
	task.AssigneeID = params.AssigneeID
	task.DueDate = params.DueDate

	if err := s.store.Update(ctx, task); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event(audit.ActionTaskUpdated, audit.EntityTask, workspaceID, actorID).
		WithEntity(taskID).
		WithDetail("status", string(params.Status)))

	return task, nil
}

// Delete removes a task. Requires Moderator.
func (s *Service) Delete(ctx context.Context, actorID, workspaceID, projectID, taskID uuid.UUID) error {
	if _, err := s.guard.RequireTask(ctx, actorID, workspaceID, projectID, taskID, roles.RoleModerator); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}

	s.record(ctx, audit.Event(audit.ActionTaskDeleted, audit.EntityTask, workspaceID, actorID).
		WithEntity(taskID))

	return nil
}

// BulkReposition applies a board reorder in one transaction. Requires
// Moderator. Each move is validated against the project inside the
// transaction, so a foreign task ID fails the whole batch.
func (s *Service) BulkReposition(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, moves []Move) error {
	for _, move := range moves {
		if !ValidStatus(move.Status) {
			return errs.Ef(errs.Invalid, "invalid task status: %q", move.Status)
		}
	}

	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleModerator); err != nil {
		return err
	}

	if err := s.store.BulkReposition(ctx, projectID, moves); err != nil {
		return err
	}

	s.record(ctx, audit.Event(audit.ActionTasksRepositioned, audit.EntityProject, workspaceID, actorID).
		WithEntity(projectID).
		WithDetail("moves", len(moves)))

	return nil
}

func (s *Service) checkAssignee(ctx context.Context, workspaceID uuid.UUID, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	membership, err := s.members.Find(ctx, *assigneeID, workspaceID)
	if err != nil {
		return err
	}
	if membership == nil {
		return errs.E(errs.Invalid, "assignee is not a member of this workspace")
	}
	return nil
}

func (s *Service) record(ctx context.Context, rec *audit.Record) {
	if err := s.auditor.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("failed to write audit record")
	}
}
