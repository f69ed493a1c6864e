package projects

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/roles"
)

const maxNameLength = 255

// Store is the persistence interface the service operates against.
type Store interface {
	Create(ctx context.Context, workspaceID uuid.UUID, name, description string, createdBy uuid.UUID) (*Project, error)
	Get(ctx context.Context, id uuid.UUID) (*Project, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, includeArchived bool) ([]*Project, error)
	Update(ctx context.Context, id uuid.UUID, name, description string) error
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Authorizer is the slice of the guard the project service needs.
type Authorizer interface {
	Authorize(ctx context.Context, callerID, workspaceID uuid.UUID, minRole roles.Role) (*memberships.Membership, error)
	RequireProject(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, minRole roles.Role) (*memberships.Membership, error)
}

// Service applies role gates to project operations: reads need membership,
// writes need Moderator or above.
type Service struct {
	store   Store
	guard   Authorizer
	auditor audit.Logger
	logger  *observability.Logger
}

// NewService creates a project service.
func NewService(store Store, guard Authorizer, auditor audit.Logger, logger *observability.Logger) *Service {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Service{store: store, guard: guard, auditor: auditor, logger: logger}
}

// Create makes a new project in the workspace. Requires Moderator.
func (s *Service) Create(ctx context.Context, actorID, workspaceID uuid.UUID, name, description string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.E(errs.Invalid, "project name is required")
	}
	if len(name) > maxNameLength {
		return nil, errs.Ef(errs.Invalid, "project name exceeds %d characters", maxNameLength)
	}

	if _, err := s.guard.Authorize(ctx, actorID, workspaceID, roles.RoleModerator); err != nil {
		return nil, err
	}

	project, err := s.store.Create(ctx, workspaceID, name, description, actorID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event(audit.ActionProjectCreated, audit.EntityProject, workspaceID, actorID).
		WithEntity(project.ID).
		WithDetail("name", name))

	return project, nil
}

// Get retrieves a project for a member.
func (s *Service) Get(ctx context.Context, actorID, workspaceID, projectID uuid.UUID) (*Project, error) {
	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleMember); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, projectID)
}

// List retrieves the workspace's projects for a member.
func (s *Service) List(ctx context.Context, actorID, workspaceID uuid.UUID, includeArchived bool) ([]*Project, error) {
	if _, err := s.guard.Authorize(ctx, actorID, workspaceID, roles.RoleMember); err != nil {
		return nil, err
	}
	return s.store.ListByWorkspace(ctx, workspaceID, includeArchived)
}

// Update changes the project's name and description. Requires Moderator.
func (s *Service) Update(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, name, description string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.E(errs.Invalid, "project name is required")
	}

	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleModerator); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, projectID, name, description); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event(audit.ActionProjectUpdated, audit.EntityProject, workspaceID, actorID).
		WithEntity(projectID).
		WithDetail("name", name))

	return s.store.Get(ctx, projectID)
}

// SetArchived archives or restores a project. Requires Moderator.
func (s *Service) SetArchived(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, archived bool) error {
	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleModerator); err != nil {
		return err
	}

	if err := s.store.SetArchived(ctx, projectID, archived); err != nil {
		return err
	}

	s.record(ctx, audit.Event(audit.ActionProjectUpdated, audit.EntityProject, workspaceID, actorID).
		WithEntity(projectID).
		WithDetail("archived", archived))

	return nil
}

// Delete removes the project and its tasks. Requires Moderator.
func (s *Service) Delete(ctx context.Context, actorID, workspaceID, projectID uuid.UUID) error {
	if _, err := s.guard.RequireProject(ctx, actorID, workspaceID, projectID, roles.RoleModerator); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, projectID); err != nil {
		return err
	}

	s.record(ctx, audit.Event(audit.ActionProjectDeleted, audit.EntityProject, workspaceID, actorID).
		WithEntity(projectID))

	return nil
}

func (s *Service) record(ctx context.Context, rec *audit.Record) {
	if err := s.auditor.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("failed to write audit record")
	}
}
