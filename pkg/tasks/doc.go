// Package tasks implements project-scoped task CRUD and board ordering.
//
// Tasks carry a sparse integer position inside their (project, status)
// lane, spaced by PositionGap so a drag-and-drop lands between two
// neighbors without rewriting the lane. When the gap between neighbors is
// exhausted, ReindexLane restores the spacing. BulkReposition applies a
// whole board reorder atomically, validating that every task belongs to
// the claimed project.
//
// Access follows the guard: reads require membership, mutations require
// Moderator or above, and assignees must be members of the workspace.
package tasks
