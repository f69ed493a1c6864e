package workspaces

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

// maxNameLength bounds workspace display names.
const maxNameLength = 255

// Store is the persistence interface the service operates against.
type Store interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, imageURL string) (*Workspace, error)
	Get(ctx context.Context, id uuid.UUID) (*Workspace, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error)
	Update(ctx context.Context, id uuid.UUID, name, imageURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
	RotateInviteCode(ctx context.Context, id uuid.UUID) (string, error)
	JoinByInvite(ctx context.Context, userID, workspaceID uuid.UUID, code string) (*memberships.Membership, error)
}

// Authorizer resolves the caller's membership and enforces a minimum role.
type Authorizer interface {
	Authorize(ctx context.Context, callerID, workspaceID uuid.UUID, minRole roles.Role) (*memberships.Membership, error)
}

// Invalidator drops cached membership lookups after a mutation.
type Invalidator interface {
	InvalidateMembership(ctx context.Context, userID, workspaceID uuid.UUID)
	InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID)
}

// Service owns workspace lifecycle and the invite join flow.
type Service struct {
	store   Store
	guard   Authorizer
	cache   Invalidator
	auditor audit.Logger
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a workspace service. The invalidator and metrics may
// be nil.
func NewService(store Store, guard Authorizer, cache Invalidator, auditor audit.Logger, logger *observability.Logger, metrics *observability.Metrics) *Service {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Service{
		store:   store,
		guard:   guard,
		cache:   cache,
		auditor: auditor,
		logger:  logger,
		metrics: metrics,
	}
}

// Create makes a new workspace with the caller as owner and first member.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, name, imageURL string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.E(errs.Invalid, "workspace name is required")
	}
	if len(name) > maxNameLength {
		return nil, errs.Ef(errs.Invalid, "workspace name exceeds %d characters", maxNameLength)
	}

	workspace, err := s.store.Create(ctx, ownerID, name, imageURL)
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event(audit.ActionWorkspaceCreated, audit.EntityWorkspace, workspace.ID, ownerID).
		WithEntity(workspace.ID).
		WithDetail("name", name))

	return workspace, nil
}

// Get retrieves a workspace for a member. The invite code is included only
// for Admin and above.
func (s *Service) Get(ctx context.Context, callerID, workspaceID uuid.UUID) (*Workspace, error) {
	membership, err := s.guard.Authorize(ctx, callerID, workspaceID, roles.RoleMember)
	if err != nil {
		return nil, err
	}

	workspace, err := s.store.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	if !roles.Satisfies(membership.Role, roles.RoleAdmin) {
		workspace = workspace.Redacted()
	}
	return workspace, nil
}

// ListForUser retrieves the caller's workspaces, invite codes redacted.
func (s *Service) ListForUser(ctx context.Context, callerID uuid.UUID) ([]*Workspace, error) {
	workspaces, err := s.store.ListForUser(ctx, callerID)
	if err != nil {
		return nil, err
	}
	for i, w := range workspaces {
		workspaces[i] = w.Redacted()
	}
	return workspaces, nil
}

// Update changes the workspace name and image. Requires Admin.
func (s *Service) Update(ctx context.Context, callerID, workspaceID uuid.UUID, name, imageURL string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.E(errs.Invalid, "workspace name is required")
	}

	if _, err := s.guard.Authorize(ctx, callerID, workspaceID, roles.RoleAdmin); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, workspaceID, name, imageURL); err != nil {
		return nil, err
	}

	s.record(ctx, audit.Event(audit.ActionWorkspaceUpdated, audit.EntityWorkspace, workspaceID, callerID).
		WithEntity(workspaceID).
		WithDetail("name", name))

	return s.store.Get(ctx, workspaceID)
}

// Delete destroys the workspace and everything in it. Only the owner may
// delete; Admin rank alone is not enough.
func (s *Service) Delete(ctx context.Context, callerID, workspaceID uuid.UUID) error {
	if _, err := s.guard.Authorize(ctx, callerID, workspaceID, roles.RoleMember); err != nil {
		return err
	}

	workspace, err := s.store.Get(ctx, workspaceID)
	if err != nil {
		return err
	}
	if workspace.OwnerID != callerID {
		return errs.E(errs.Forbidden, "only the owner can delete a workspace")
	}

	if err := s.store.Delete(ctx, workspaceID); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateWorkspace(ctx, workspaceID)
	}
	s.record(ctx, audit.Event(audit.ActionWorkspaceDeleted, audit.EntityWorkspace, workspaceID, callerID).
		WithEntity(workspaceID).
		WithDetail("name", workspace.Name))

	return nil
}

// RotateInviteCode replaces the invite code. Requires Admin. Outstanding
// invite links stop working immediately.
func (s *Service) RotateInviteCode(ctx context.Context, callerID, workspaceID uuid.UUID) (string, error) {
	if _, err := s.guard.Authorize(ctx, callerID, workspaceID, roles.RoleAdmin); err != nil {
		return "", err
	}

	code, err := s.store.RotateInviteCode(ctx, workspaceID)
	if err != nil {
		return "", err
	}

	s.record(ctx, audit.Event(audit.ActionInviteCodeRotated, audit.EntityWorkspace, workspaceID, callerID).
		WithEntity(workspaceID))

	return code, nil
}

// JoinByInvite adds the caller to the workspace as a Member if the code
// matches the current invite code. A stale code is rejected with Forbidden
// and an existing membership with Conflict, so the caller can tell "already
// in" apart from "just joined".
func (s *Service) JoinByInvite(ctx context.Context, userID, workspaceID uuid.UUID, code string) (*memberships.Membership, error) {
	if code == "" {
		return nil, errs.E(errs.Invalid, "invite code is required")
	}

	membership, err := s.store.JoinByInvite(ctx, userID, workspaceID, code)
	if err != nil {
		s.countJoin(joinOutcome(err))
		return nil, err
	}
	s.countJoin("joined")

	if s.cache != nil {
		s.cache.InvalidateMembership(ctx, userID, workspaceID)
	}
	s.record(ctx, audit.Event(audit.ActionMemberJoined, audit.EntityMembership, workspaceID, userID).
		WithEntity(membership.ID).
		WithDetail("role", string(membership.Role)))

	return membership, nil
}

func joinOutcome(err error) string {
	switch {
	case errs.IsForbidden(err):
		return "invalid_code"
	case errs.IsConflict(err):
		return "already_member"
	case errs.IsNotFound(err):
		return "unknown_workspace"
	default:
		return "error"
	}
}

func (s *Service) countJoin(outcome string) {
	if s.metrics != nil {
		s.metrics.InviteJoinsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) record(ctx context.Context, rec *audit.Record) {
	if err := s.auditor.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("failed to write audit record")
	}
}
