package memberships

import (
	"context"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/roles"
)

// Store is the persistence interface the service operates against.
// *PostgresStore is the canonical implementation.
type Store interface {
	Create(ctx context.Context, userID, workspaceID uuid.UUID, role roles.Role) (*Membership, error)
	Find(ctx context.Context, userID, workspaceID uuid.UUID) (*Membership, error)
	Get(ctx context.Context, id uuid.UUID) (*Membership, error)
	SetRole(ctx context.Context, id uuid.UUID, newRole, expectedCurrent roles.Role) error
	Remove(ctx context.Context, id uuid.UUID) error
	CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*Member, int, error)
}

// Authorizer resolves the caller's membership and enforces a minimum role.
// Implemented by the authorization guard.
type Authorizer interface {
	Authorize(ctx context.Context, callerID, workspaceID uuid.UUID, minRole roles.Role) (*Membership, error)
}

// Invalidator drops cached membership lookups after a mutation.
type Invalidator interface {
	InvalidateMembership(ctx context.Context, userID, workspaceID uuid.UUID)
}

// Service applies the ownership-safety rules on top of the store: owner
// protection, rank checks on role changes, and the member-removal and
// leave-workspace paths.
type Service struct {
	store   Store
	guard   Authorizer
	cache   Invalidator
	auditor audit.Logger
	logger  *observability.Logger
}

// NewService creates a membership service. The invalidator may be nil when
// no membership cache is configured.
func NewService(store Store, guard Authorizer, cache Invalidator, auditor audit.Logger, logger *observability.Logger) *Service {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Service{
		store:   store,
		guard:   guard,
		cache:   cache,
		auditor: auditor,
		logger:  logger,
	}
}

// ChangeRole assigns a new role to the target membership. The actor must
// hold Admin or above and must strictly outrank both the target's current
// role and the role being assigned. The owner's membership is never
// changeable through this path, not even by the owner themselves.
func (s *Service) ChangeRole(ctx context.Context, actorID, workspaceID, membershipID uuid.UUID, newRole roles.Role) (*Membership, error) {
	if !roles.Valid(newRole) {
		return nil, errs.Ef(errs.Invalid, "invalid role: %s", newRole)
	}

	actor, err := s.guard.Authorize(ctx, actorID, workspaceID, roles.RoleAdmin)
	if err != nil {
		return nil, err
	}

	target, err := s.store.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if target.WorkspaceID != workspaceID {
		return nil, errs.E(errs.NotFound, "membership not found")
	}

	if target.Role == roles.RoleOwner {
		return nil, errs.E(errs.Forbidden, "the workspace owner's role cannot be changed")
	}
	if !roles.Outranks(actor.Role, target.Role) || !roles.Outranks(actor.Role, newRole) {
		return nil, errs.E(errs.Forbidden, "insufficient rank to assign this role")
	}

	if err := s.store.SetRole(ctx, membershipID, newRole, target.Role); err != nil {
		return nil, err
	}

	s.invalidate(ctx, target.UserID, workspaceID)
	s.record(ctx, audit.Event(audit.ActionMemberRoleChanged, audit.EntityMembership, workspaceID, actorID).
		WithEntity(membershipID).
		WithDetail("user_id", target.UserID.String()).
		WithDetail("from", string(target.Role)).
		WithDetail("to", string(newRole)))

	target.Role = newRole
	return target, nil
}

// RemoveMember removes the target membership. The actor must hold Admin or
// above. The owner can never be removed, and self-removal must go through
// Leave instead.
func (s *Service) RemoveMember(ctx context.Context, actorID, workspaceID, membershipID uuid.UUID) error {
	if _, err := s.guard.Authorize(ctx, actorID, workspaceID, roles.RoleAdmin); err != nil {
		return err
	}

	target, err := s.store.Get(ctx, membershipID)
	if err != nil {
		return err
	}
	if target.WorkspaceID != workspaceID {
		return errs.E(errs.NotFound, "membership not found")
	}

	if target.Role == roles.RoleOwner {
		return errs.E(errs.Forbidden, "the workspace owner cannot be removed")
	}
	if target.UserID == actorID {
		return errs.E(errs.Forbidden, "cannot remove yourself; leave the workspace instead")
	}

	if err := s.store.Remove(ctx, membershipID); err != nil {
		return err
	}

	s.invalidate(ctx, target.UserID, workspaceID)
	s.record(ctx, audit.Event(audit.ActionMemberRemoved, audit.EntityMembership, workspaceID, actorID).
		WithEntity(membershipID).
		WithDetail("user_id", target.UserID.String()).
		WithDetail("role", string(target.Role)))

	return nil
}

// Leave removes the caller's own membership. The owner may never leave
// while still owner.
func (s *Service) Leave(ctx context.Context, callerID, workspaceID uuid.UUID) error {
	membership, err := s.store.Find(ctx, callerID, workspaceID)
	if err != nil {
		return err
	}
	if membership == nil {
		return errs.E(errs.Unauthorized, "no membership in this workspace")
	}

	if membership.Role == roles.RoleOwner {
		return errs.E(errs.Forbidden, "the owner cannot leave the workspace")
	}

	if err := s.store.Remove(ctx, membership.ID); err != nil {
		return err
	}

	s.invalidate(ctx, callerID, workspaceID)
	s.record(ctx, audit.Event(audit.ActionMemberLeft, audit.EntityMembership, workspaceID, callerID).
		WithEntity(membership.ID).
		WithDetail("role", string(membership.Role)))

	return nil
}

// ListMembers returns a page of workspace members. Any member may list.
func (s *Service) ListMembers(ctx context.Context, callerID, workspaceID uuid.UUID, limit, offset int) ([]*Member, int, error) {
	if _, err := s.guard.Authorize(ctx, callerID, workspaceID, roles.RoleMember); err != nil {
		return nil, 0, err
	}
	return s.store.ListByWorkspace(ctx, workspaceID, limit, offset)
}

func (s *Service) invalidate(ctx context.Context, userID, workspaceID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidateMembership(ctx, userID, workspaceID)
	}
}

func (s *Service) record(ctx context.Context, rec *audit.Record) {
	if err := s.auditor.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("failed to write audit record")
	}
}
