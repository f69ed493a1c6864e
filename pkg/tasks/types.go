package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/errs"
)

// Status is a task's board column.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
)

// AllStatuses returns the statuses in board order.
func AllStatuses() []Status {
	return []Status{StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone}
}

// ValidStatus reports whether s is a known status. Matching is exact; the
// stored values are lowercase.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBacklog, StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !ValidStatus(status) {
		return "", errs.Ef(errs.Invalid, "invalid task status: %q", s)
	}
	return status, nil
}

// Task is a unit of work inside a project. Position orders tasks within
// their (project, status) lane.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	Position    int64      `json:"position"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Move is one entry in a bulk reposition: the task takes the given status
// and position.
type Move struct {
	TaskID   uuid.UUID `json:"task_id"`
	Status   Status    `json:"status"`
	Position int64     `json:"position"`
}

// ListFilter narrows a task listing. Nil fields mean no filter.
type ListFilter struct {
	Status     *Status
	AssigneeID *uuid.UUID
}
