// Package roles defines the workspace role hierarchy and its comparison
// predicates. Roles form a strict total order: Owner > Admin > Moderator >
// Member. Comparison is always by rank, never by string value.
package roles

import (
	"github.com/planora/planora/pkg/errs"
)

// Role is a workspace-level role.
type Role string

const (
	// RoleOwner has full control, including workspace deletion. Assigned only
	// at workspace creation; never assignable through role changes.
	RoleOwner Role = "owner"
	// RoleAdmin manages members, invite codes, and all resources.
	RoleAdmin Role = "admin"
	// RoleModerator manages projects and tasks.
	RoleModerator Role = "moderator"
	// RoleMember has read access and may work on tasks.
	RoleMember Role = "member"
)

// ranks is the authoritative ordering. Any role outside this map is a
// programmer error and ranks below every valid role.
var ranks = map[Role]int{
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
	RoleOwner:     4,
}

// All returns every valid role, highest rank first.
func All() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleModerator, RoleMember}
}

// Valid reports whether r is one of the four defined roles.
func Valid(r Role) bool {
	_, ok := ranks[r]
	return ok
}

// Rank returns the numeric rank of r. Unknown roles rank 0, below Member.
func Rank(r Role) int {
	return ranks[r]
}

// Satisfies reports whether actual meets the required minimum role.
func Satisfies(actual, required Role) bool {
	return Rank(actual) >= Rank(required)
}

// Outranks reports whether a strictly outranks b. Used for role-change
// rules, where equal rank is not enough.
func Outranks(a, b Role) bool {
	return Rank(a) > Rank(b)
}

// AtOrAbove returns the roles whose rank is at least that of min, highest
// first. Useful for enumerating who may see a role-gated surface.
func AtOrAbove(min Role) []Role {
	var out []Role
	for _, r := range All() {
		if Satisfies(r, min) {
			out = append(out, r)
		}
	}
	return out
}

// Parse converts external input into a Role. It is the single boundary where
// untyped role strings enter the system; anything outside the fixed set,
// including case mismatches, fails with Invalid.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !Valid(r) {
		return "", errs.Ef(errs.Invalid, "unknown role %q", s)
	}
	return r, nil
}
