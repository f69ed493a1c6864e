package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/planora/planora/pkg/errs"
)

// PostgresStore persists projects in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new project store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a project. A duplicate name within the workspace fails
// with Conflict.
func (s *PostgresStore) Create(ctx context.Context, workspaceID uuid.UUID, name, description string, createdBy uuid.UUID) (*Project, error) {
	project := &Project{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
	}

	query := `
		INSERT INTO projects (id, workspace_id, name, description, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		project.ID, workspaceID, name, description, createdBy,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.Ef(errs.Conflict, "project %q already exists in this workspace", name)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// Get retrieves a project by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `
		SELECT id, workspace_id, name, description, archived, created_by, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	return s.scanProject(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) scanProject(row *sql.Row) (*Project, error) {
	project := &Project{}
	var description sql.NullString
	var createdBy uuid.NullUUID
	err := row.Scan(
		&project.ID, &project.WorkspaceID, &project.Name, &description,
		&project.Archived, &createdBy, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.NotFound, "project not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if description.Valid {
		project.Description = description.String
	}
	if createdBy.Valid {
		project.CreatedBy = createdBy.UUID
	}

	return project, nil
}

// WorkspaceOf maps a project to its owning workspace. Implements the
// guard's project resolver.
func (s *PostgresStore) WorkspaceOf(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error) {
	var workspaceID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT workspace_id FROM projects WHERE id = $1`, projectID,
	).Scan(&workspaceID)
	if err == sql.ErrNoRows {
		return uuid.Nil, errs.E(errs.NotFound, "project not found")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve project workspace: %w", err)
	}
	return workspaceID, nil
}

// ListByWorkspace retrieves the workspace's projects, newest first.
// Archived projects are included only when requested.
func (s *PostgresStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, includeArchived bool) ([]*Project, error) {
	query := `
		SELECT id, workspace_id, name, description, archived, created_by, created_at, updated_at
		FROM projects
		WHERE workspace_id = $1 AND (archived = FALSE OR $2)
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		var description sql.NullString
		var createdBy uuid.NullUUID
		if err := rows.Scan(
			&project.ID, &project.WorkspaceID, &project.Name, &description,
			&project.Archived, &createdBy, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if description.Valid {
			project.Description = description.String
		}
		if createdBy.Valid {
			project.CreatedBy = createdBy.UUID
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// Update changes the project's name and description.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, name, description string) error {
	query := `
		UPDATE projects
		SET name = $1, description = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, name, description, id)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Ef(errs.Conflict, "project %q already exists in this workspace", name)
		}
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "project not found")
	}

	return nil
}

// SetArchived flips the project's archived flag.
func (s *PostgresStore) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	query := `UPDATE projects SET archived = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, archived, id)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "project not found")
	}

	return nil
}

// Delete removes a project and, via cascade, its tasks.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "project not found")
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
