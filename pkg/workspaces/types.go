package workspaces

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is a tenant container. The invite code is an opaque capability:
// any authenticated user presenting the current code may join as a Member.
type Workspace struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"image_url,omitempty"`
	InviteCode string    `json:"invite_code,omitempty"`
	OwnerID    uuid.UUID `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Redacted returns a copy without the invite code, for responses to members
// below Admin who must not be able to hand out invites.
func (w *Workspace) Redacted() *Workspace {
	copied := *w
	copied.InviteCode = ""
	return &copied
}
