package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/roles"
)

// Membership binds a user to a workspace with a role. A user holds at most
// one membership per workspace.
type Membership struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Role        roles.Role `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Member is a membership joined with the user's profile fields, as returned
// by member listings.
type Member struct {
	Membership
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
