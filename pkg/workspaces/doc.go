// Package workspaces owns workspace lifecycle and the invite-code join
// flow.
//
// Creation inserts the workspace and the creator's Owner membership in one
// transaction. Deletion is owner-only and cascades to memberships,
// projects, and tasks atomically. JoinByInvite checks the presented code
// under a row lock so a concurrent rotation cannot race the join, then
// creates a Member-role membership in the same transaction.
//
// Invite codes are opaque random tokens; rotating one invalidates every
// previously distributed invite link immediately.
package workspaces
