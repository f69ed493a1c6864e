package authz

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/roles"
	"github.com/planora/planora/pkg/storage/postgres"
)

// MembershipFinder resolves a user's membership in a workspace. Absence is
// (nil, nil).
type MembershipFinder interface {
	Find(ctx context.Context, userID, workspaceID uuid.UUID) (*memberships.Membership, error)
}

// WorkspaceChecker reports whether a workspace exists.
type WorkspaceChecker interface {
	Exists(ctx context.Context, workspaceID uuid.UUID) (bool, error)
}

// ProjectResolver maps a project to its owning workspace.
type ProjectResolver interface {
	WorkspaceOf(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)
}

// TaskResolver maps a task to its owning project.
type TaskResolver interface {
	ProjectOf(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error)
}

// Deps collects the guard's collaborators. Projects and Tasks are only
// needed when the nested checks are used; Redis, Auditor, Logger, and
// Metrics may be nil.
type Deps struct {
	Members    MembershipFinder
	Workspaces WorkspaceChecker
	Projects   ProjectResolver
	Tasks      TaskResolver

	Redis   *postgres.RedisClient
	Auditor audit.Logger
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// CacheSize enables the membership cache when positive.
	CacheSize int
	CacheTTL  time.Duration
}

// Guard is the single authorization decision point. Every scoped operation
// resolves the caller's membership through it, so the outcome taxonomy is
// consistent across all entry points:
//
//	workspace missing      -> NotFound
//	caller not a member    -> Unauthorized
//	rank below the minimum -> Forbidden
type Guard struct {
	members    MembershipFinder
	workspaces WorkspaceChecker
	projects   ProjectResolver
	tasks      TaskResolver
	cache      *membershipCache
	auditor    audit.Logger
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewGuard creates the authorization guard.
func NewGuard(deps Deps) *Guard {
	auditor := deps.Auditor
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	guard := &Guard{
		members:    deps.Members,
		workspaces: deps.Workspaces,
		projects:   deps.Projects,
		tasks:      deps.Tasks,
		auditor:    auditor,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
	if deps.CacheSize > 0 {
		ttl := deps.CacheTTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		guard.cache = newMembershipCache(deps.CacheSize, ttl, deps.Redis, deps.Metrics)
	}
	return guard
}

// Authorize resolves the caller's membership in the workspace and checks it
// against the minimum role. On success it returns the membership so callers
// can apply further rules without a second lookup.
func (g *Guard) Authorize(ctx context.Context, callerID, workspaceID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	start := time.Now()
	defer g.observeDuration(minRole, start)

	membership, err := g.lookup(ctx, callerID, workspaceID)
	if err != nil {
		g.count(minRole, "error")
		return nil, storageErr(err, "membership lookup failed")
	}

	if membership == nil {
		exists, err := g.workspaces.Exists(ctx, workspaceID)
		if err != nil {
			g.count(minRole, "error")
			return nil, storageErr(err, "workspace lookup failed")
		}
		if !exists {
			g.count(minRole, "not_found")
			return nil, errs.E(errs.NotFound, "workspace not found")
		}
		g.count(minRole, "unauthorized")
		g.denied(ctx, callerID, workspaceID, minRole, "no membership")
		return nil, errs.E(errs.Unauthorized, "no membership in this workspace")
	}

	if !roles.Satisfies(membership.Role, minRole) {
		g.count(minRole, "forbidden")
		g.denied(ctx, callerID, workspaceID, minRole, string(membership.Role))
		return nil, errs.E(errs.Forbidden, "insufficient role")
	}

	g.count(minRole, "allowed")
	return membership, nil
}

// RequireProject authorizes the caller in the workspace and verifies the
// project actually belongs to it. A project under a different workspace is
// reported as NotFound so guessed IDs never reveal their true parent.
func (g *Guard) RequireProject(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	membership, err := g.Authorize(ctx, callerID, workspaceID, minRole)
	if err != nil {
		return nil, err
	}

	owner, err := g.projects.WorkspaceOf(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if owner != workspaceID {
		return nil, errs.E(errs.NotFound, "project not found")
	}

	return membership, nil
}

// RequireTask authorizes the caller and verifies the full nesting chain:
// the task belongs to the project and the project to the workspace.
func (g *Guard) RequireTask(ctx context.Context, callerID, workspaceID, projectID, taskID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	membership, err := g.RequireProject(ctx, callerID, workspaceID, projectID, minRole)
	if err != nil {
		return nil, err
	}

	parent, err := g.tasks.ProjectOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if parent != projectID {
		return nil, errs.E(errs.NotFound, "task not found")
	}

	return membership, nil
}

// InvalidateMembership drops the cached lookup for a (user, workspace)
// pair. Called after any membership mutation.
func (g *Guard) InvalidateMembership(ctx context.Context, userID, workspaceID uuid.UUID) {
	if g.cache != nil {
		g.cache.invalidate(ctx, userID, workspaceID)
	}
}

// InvalidateWorkspace drops every cached lookup for a workspace. Called on
// workspace deletion.
func (g *Guard) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) {
	if g.cache != nil {
		g.cache.invalidateWorkspace(ctx, workspaceID)
	}
}

func (g *Guard) lookup(ctx context.Context, callerID, workspaceID uuid.UUID) (*memberships.Membership, error) {
	if g.cache != nil {
		if entry, ok := g.cache.get(ctx, callerID, workspaceID); ok {
			if !entry.Found {
				return nil, nil
			}
			return entry.Membership, nil
		}
	}

	membership, err := g.members.Find(ctx, callerID, workspaceID)
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		g.cache.set(ctx, callerID, workspaceID, cacheEntry{Found: membership != nil, Membership: membership})
	}

	return membership, nil
}

// storageErr classifies a lookup failure. Caller cancellation is not a
// backend outage and must not surface as retryable; errors that already
// carry a kind keep it.
func storageErr(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.Internal, err, msg)
	}
	var classified *errs.Error
	if errors.As(err, &classified) {
		return errs.Wrap(classified.Kind, err, msg)
	}
	return errs.Wrap(errs.Unavailable, err, msg)
}

func (g *Guard) count(minRole roles.Role, outcome string) {
	if g.metrics != nil {
		g.metrics.AuthzChecksTotal.WithLabelValues(string(minRole), outcome).Inc()
	}
}

func (g *Guard) observeDuration(minRole roles.Role, start time.Time) {
	if g.metrics != nil {
		g.metrics.AuthzCheckDuration.WithLabelValues(string(minRole)).Observe(time.Since(start).Seconds())
	}
}

func (g *Guard) denied(ctx context.Context, callerID, workspaceID uuid.UUID, minRole roles.Role, have string) {
	rec := audit.Event(audit.ActionAccessDenied, audit.EntityWorkspace, workspaceID, callerID).
		WithDetail("minimum_role", string(minRole)).
		WithDetail("have", have)
	if err := g.auditor.Record(ctx, rec); err != nil && g.logger != nil {
		g.logger.WithError(err).Warn("failed to write audit record")
	}
}
