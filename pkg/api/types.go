package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/projects"
	"github.com/planora/planora/pkg/roles"
	"github.com/planora/planora/pkg/tasks"
	"github.com/planora/planora/pkg/workspaces"
)

// WorkspaceService is the workspace surface the handlers depend on.
// Implemented by workspaces.Service.
type WorkspaceService interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, imageURL string) (*workspaces.Workspace, error)
	Get(ctx context.Context, callerID, workspaceID uuid.UUID) (*workspaces.Workspace, error)
	ListForUser(ctx context.Context, callerID uuid.UUID) ([]*workspaces.Workspace, error)
	Update(ctx context.Context, callerID, workspaceID uuid.UUID, name, imageURL string) (*workspaces.Workspace, error)
	Delete(ctx context.Context, callerID, workspaceID uuid.UUID) error
	RotateInviteCode(ctx context.Context, callerID, workspaceID uuid.UUID) (string, error)
	JoinByInvite(ctx context.Context, userID, workspaceID uuid.UUID, code string) (*memberships.Membership, error)
}

// MembershipService is implemented by memberships.Service.
type MembershipService interface {
	ChangeRole(ctx context.Context, actorID, workspaceID, membershipID uuid.UUID, newRole roles.Role) (*memberships.Membership, error)
	RemoveMember(ctx context.Context, actorID, workspaceID, membershipID uuid.UUID) error
	Leave(ctx context.Context, callerID, workspaceID uuid.UUID) error
	ListMembers(ctx context.Context, callerID, workspaceID uuid.UUID, limit, offset int) ([]*memberships.Member, int, error)
}

// ProjectService is implemented by projects.Service.
type ProjectService interface {
	Create(ctx context.Context, actorID, workspaceID uuid.UUID, name, description string) (*projects.Project, error)
	Get(ctx context.Context, actorID, workspaceID, projectID uuid.UUID) (*projects.Project, error)
	List(ctx context.Context, actorID, workspaceID uuid.UUID, includeArchived bool) ([]*projects.Project, error)
	Update(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, name, description string) (*projects.Project, error)
	SetArchived(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, archived bool) error
	Delete(ctx context.Context, actorID, workspaceID, projectID uuid.UUID) error
}

// TaskService is implemented by tasks.Service.
type TaskService interface {
	Create(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, params tasks.CreateParams) (*tasks.Task, error)
	Get(ctx context.Context, actorID, workspaceID, projectID, taskID uuid.UUID) (*tasks.Task, error)
	List(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, filter tasks.ListFilter) ([]*tasks.Task, error)
	Update(ctx context.Context, actorID, workspaceID, projectID, taskID uuid.UUID, params tasks.UpdateParams) (*tasks.Task, error)
	Delete(ctx context.Context, actorID, workspaceID, projectID, taskID uuid.UUID) error
	BulkReposition(ctx context.Context, actorID, workspaceID, projectID uuid.UUID, moves []tasks.Move) error
}

// AuditQuerier is implemented by audit.Store.
type AuditQuerier interface {
	Query(ctx context.Context, filters audit.Filters) ([]*audit.Record, error)
}

// Authorizer gates routes that sit outside a domain service, such as
// the audit log endpoint. Implemented by authz.Guard.
type Authorizer interface {
	Authorize(ctx context.Context, callerID, workspaceID uuid.UUID, minimumRole roles.Role) (*memberships.Membership, error)
}

// Request bodies.

type createWorkspaceRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

type updateWorkspaceRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

type joinWorkspaceRequest struct {
	Code string `json:"code"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type updateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type archiveProjectRequest struct {
	Archived bool `json:"archived"`
}

type taskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type taskMoveRequest struct {
	TaskID   uuid.UUID `json:"task_id"`
	Status   string    `json:"status"`
	Position int64     `json:"position"`
}

type bulkRepositionRequest struct {
	Moves []taskMoveRequest `json:"moves"`
}

type createTokenRequest struct {
	Name string `json:"name"`
	TTL  string `json:"ttl,omitempty"`
}

// Response bodies.

type inviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

type memberListResponse struct {
	Members []*memberships.Member `json:"members"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

type tokenResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	TokenPrefix string    `json:"token_prefix"`
	Token       string    `json:"token,omitempty"`
}

type loginResponse struct {
	AuthURL string `json:"auth_url"`
}
