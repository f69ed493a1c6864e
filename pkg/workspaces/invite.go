package workspaces

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// inviteCodeBytes yields 24-character base64url codes, comfortably inside
// the 32-character column.
const inviteCodeBytes = 18

// NewInviteCode generates a fresh opaque invite code.
func NewInviteCode() (string, error) {
	buf := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
