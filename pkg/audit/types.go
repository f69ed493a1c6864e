package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the kind of security-relevant event being recorded.
type Action string

const (
	// Workspace lifecycle
	ActionWorkspaceCreated  Action = "workspace.created"
	ActionWorkspaceUpdated  Action = "workspace.updated"
	ActionWorkspaceDeleted  Action = "workspace.deleted"
	ActionInviteCodeRotated Action = "workspace.invite_rotated"

	// Membership lifecycle
	ActionMemberJoined      Action = "membership.joined"
	ActionMemberRoleChanged Action = "membership.role_changed"
	ActionMemberRemoved     Action = "membership.removed"
	ActionMemberLeft        Action = "membership.left"

	// Resource mutations
	ActionProjectCreated    Action = "project.created"
	ActionProjectUpdated    Action = "project.updated"
	ActionProjectDeleted    Action = "project.deleted"
	ActionTaskCreated       Action = "task.created"
	ActionTaskUpdated       Action = "task.updated"
	ActionTaskDeleted       Action = "task.deleted"
	ActionTasksRepositioned Action = "task.repositioned"

	// Authorization outcomes
	ActionAccessDenied Action = "authz.denied"
)

// Entity type values stored alongside records.
const (
	EntityWorkspace  = "workspace"
	EntityMembership = "membership"
	EntityProject    = "project"
	EntityTask       = "task"
)

// Record is a single audit log entry.
type Record struct {
	ID          int64                  `json:"id"`
	WorkspaceID *uuid.UUID             `json:"workspace_id,omitempty"`
	ActorID     *uuid.UUID             `json:"actor_id,omitempty"`
	Action      Action                 `json:"action"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id,omitempty"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Filters narrows a Query call. Nil and zero values mean no filter.
type Filters struct {
	WorkspaceID *uuid.UUID
	ActorID     *uuid.UUID
	Action      Action
	Since       time.Time
	Limit       int
	Offset      int
}

// RetentionPolicy defines how long audit records are kept.
type RetentionPolicy struct {
	RetentionDays int
}

// DefaultRetentionPolicy keeps records for 90 days.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{RetentionDays: 90}
}
