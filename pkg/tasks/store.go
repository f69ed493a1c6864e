package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/errs"
)

// PostgresStore persists tasks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new task store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a task at the end of its (project, status) lane. The
// position is computed in the insert itself so concurrent appends cannot
// claim the same slot outside a serializable gap.
func (s *PostgresStore) Create(ctx context.Context, task *Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	query := `
		INSERT INTO tasks (id, project_id, title, description, status, assignee_id, position, due_date, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6,
			(SELECT COALESCE(MAX(position), 0) + $7 FROM tasks WHERE project_id = $2 AND status = $5),
			$8, $9)
		RETURNING position, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		task.ID, task.ProjectID, task.Title, task.Description, task.Status,
		task.AssigneeID, int64(PositionGap), task.DueDate, task.CreatedBy,
	).Scan(&task.Position, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `
		SELECT id, project_id, title, description, status, assignee_id, position, due_date,
		       created_by, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`
	task := &Task{}
	var description sql.NullString
	var createdBy uuid.NullUUID
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID, &task.ProjectID, &task.Title, &description, &task.Status,
		&task.AssigneeID, &task.Position, &task.DueDate,
		&createdBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.NotFound, "task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if description.Valid {
		task.Description = description.String
	}
	if createdBy.Valid {
		task.CreatedBy = createdBy.UUID
	}

	return task, nil
}

// ProjectOf maps a task to its owning project. Implements the guard's task
// resolver.
func (s *PostgresStore) ProjectOf(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	var projectID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id FROM tasks WHERE id = $1`, taskID,
	).Scan(&projectID)
	if err == sql.ErrNoRows {
		return uuid.Nil, errs.E(errs.NotFound, "task not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve task project: %w", err)
	}
	return projectID, nil
}

// List retrieves a project's tasks in board order (status, then position),
// optionally filtered by status and assignee.
func (s *PostgresStore) List(ctx context.Context, projectID uuid.UUID, filter ListFilter) ([]*Task, error) {
	query := `
		SELECT id, project_id, title, description, status, assignee_id, position, due_date,
		       created_by, created_at, updated_at
		FROM tasks
		WHERE project_id = $1
	`
	args := []interface{}{projectID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		query += " AND assignee_id = $" + strconv.Itoa(len(args))
	}

	query += " ORDER BY status, position"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task := &Task{}
		var description sql.NullString
		var createdBy uuid.NullUUID
		if err := rows.Scan(
			&task.ID, &task.ProjectID, &task.Title, &description, &task.Status,
			&task.AssigneeID, &task.Position, &task.DueDate,
			&createdBy, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if description.Valid {
			task.Description = description.String
		}
		if createdBy.Valid {
			task.CreatedBy = createdBy.UUID
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Update rewrites the task's editable fields.
func (s *PostgresStore) Update(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = NULLIF($2, ''), status = $3, assignee_id = $4,
		    due_date = $5, updated_at = NOW()
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title, task.Description, task.Status, task.AssigneeID, task.DueDate, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "task not found")
	}

	return nil
}

// Delete removes a task by ID.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "task not found")
	}

	return nil
}

// BulkReposition applies a batch of status/position moves in one
// transaction. Every update is scoped to the project, so a task ID from
// another project fails the whole batch as NotFound and nothing is applied.
func (s *PostgresStore) BulkReposition(ctx context.Context, projectID uuid.UUID, moves []Move) error {
	if len(moves) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE tasks
		SET status = $1, position = $2, updated_at = NOW()
		WHERE id = $3 AND project_id = $4
	`
	for _, move := range moves {
		result, err := tx.ExecContext(ctx, query, move.Status, move.Position, move.TaskID, projectID)
		if err != nil {
			return fmt.Errorf("failed to reposition task %s: %w", move.TaskID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return errs.Ef(errs.NotFound, "task %s not found in project", move.TaskID)
		}
	}

	return tx.Commit()
}

// ReindexLane rewrites a (project, status) lane's positions to multiples of
// the standard gap, restoring room between neighbors.
func (s *PostgresStore) ReindexLane(ctx context.Context, projectID uuid.UUID, status Status) error {
	query := `
		UPDATE tasks
		SET position = ranked.new_position, updated_at = NOW()
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY position, id) * $1 AS new_position
			FROM tasks
			WHERE project_id = $2 AND status = $3
		) ranked
		WHERE tasks.id = ranked.id
	`
	if _, err := s.db.ExecContext(ctx, query, int64(PositionGap), projectID, status); err != nil {
		return fmt.Errorf("failed to reindex lane: %w", err)
	}
	return nil
}
