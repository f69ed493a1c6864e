package workspaces

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/roles"
)

// PostgresStore persists workspaces in PostgreSQL. Operations that create
// memberships run them in the same transaction through the membership store.
type PostgresStore struct {
	db      *sql.DB
	members *memberships.PostgresStore
}

// NewPostgresStore creates a new workspace store.
func NewPostgresStore(db *sql.DB, members *memberships.PostgresStore) *PostgresStore {
	return &PostgresStore{db: db, members: members}
}

// Create inserts the workspace and the owner's membership in one
// transaction. Both succeed or neither does.
func (s *PostgresStore) Create(ctx context.Context, ownerID uuid.UUID, name, imageURL string) (*Workspace, error) {
	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}

	workspace := &Workspace{
		ID:         uuid.New(),
		Name:       name,
		ImageURL:   imageURL,
		InviteCode: code,
		OwnerID:    ownerID,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO workspaces (id, name, image_url, invite_code, owner_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		workspace.ID, name, imageURL, code, ownerID,
	).Scan(&workspace.CreatedAt, &workspace.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	if _, err := s.members.CreateTx(ctx, tx, ownerID, workspace.ID, roles.RoleOwner); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit workspace creation: %w", err)
	}

	return workspace, nil
}

// Get retrieves a workspace by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	query := `
		SELECT id, name, image_url, invite_code, owner_id, created_at, updated_at
		FROM workspaces
		WHERE id = $1
	`
	return s.scanWorkspace(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) scanWorkspace(row *sql.Row) (*Workspace, error) {
	workspace := &Workspace{}
	var imageURL sql.NullString
	err := row.Scan(
		&workspace.ID, &workspace.Name, &imageURL, &workspace.InviteCode,
		&workspace.OwnerID, &workspace.CreatedAt, &workspace.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.NotFound, "workspace not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	if imageURL.Valid {
		workspace.ImageURL = imageURL.String
	}

	return workspace, nil
}

// Exists reports whether a workspace with this ID exists.
func (s *PostgresStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM workspaces WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check workspace existence: %w", err)
	}
	return exists, nil
}

// ListForUser retrieves the workspaces the user is a member of, oldest
// first.
func (s *PostgresStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error) {
	query := `
		SELECT w.id, w.name, w.image_url, w.invite_code, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		JOIN memberships m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY w.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*Workspace
	for rows.Next() {
		workspace := &Workspace{}
		var imageURL sql.NullString
		if err := rows.Scan(
			&workspace.ID, &workspace.Name, &imageURL, &workspace.InviteCode,
			&workspace.OwnerID, &workspace.CreatedAt, &workspace.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		if imageURL.Valid {
			workspace.ImageURL = imageURL.String
		}
		workspaces = append(workspaces, workspace)
	}

	return workspaces, rows.Err()
}

// Update changes the workspace's display fields.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, name, imageURL string) error {
	query := `
		UPDATE workspaces
		SET name = $1, image_url = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, name, imageURL, id)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "workspace not found")
	}

	return nil
}

// Delete removes the workspace. Memberships, projects, and tasks cascade
// with it; the single statement keeps the cascade all-or-nothing.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "workspace not found")
	}

	return nil
}

// RotateInviteCode replaces the workspace's invite code and returns the new
// one. Previously distributed codes stop working immediately.
func (s *PostgresStore) RotateInviteCode(ctx context.Context, id uuid.UUID) (string, error) {
	code, err := NewInviteCode()
	if err != nil {
		return "", err
	}

	query := `UPDATE workspaces SET invite_code = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, code, id)
	if err != nil {
		return "", fmt.Errorf("failed to rotate invite code: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return "", errs.E(errs.NotFound, "workspace not found")
	}

	return code, nil
}

// JoinByInvite validates the invite code under a row lock and creates a
// Member-role membership in the same transaction. The lock pins the code
// against a concurrent rotation between the check and the insert.
func (s *PostgresStore) JoinByInvite(ctx context.Context, userID, workspaceID uuid.UUID, code string) (*memberships.Membership, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT invite_code FROM workspaces WHERE id = $1 FOR UPDATE`, workspaceID,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.NotFound, "workspace not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check invite code: %w", err)
	}

	if code != current {
		return nil, errs.E(errs.Forbidden, "invalid invite code")
	}

	membership, err := s.members.CreateTx(ctx, tx, userID, workspaceID, roles.RoleMember)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}

	return membership, nil
}
