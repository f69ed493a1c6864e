package memberships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/roles"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so membership inserts can
// participate in workspace-level transactions.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PostgresStore persists memberships in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new membership store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a membership. A duplicate (workspace, user) pair fails
// with Conflict.
func (s *PostgresStore) Create(ctx context.Context, userID, workspaceID uuid.UUID, role roles.Role) (*Membership, error) {
	return createIn(ctx, s.db, userID, workspaceID, role)
}

// CreateTx inserts a membership inside an existing transaction. Used by
// workspace creation and invite join, which pair the insert with other
// statements that must commit atomically.
func (s *PostgresStore) CreateTx(ctx context.Context, tx *sql.Tx, userID, workspaceID uuid.UUID, role roles.Role) (*Membership, error) {
	return createIn(ctx, tx, userID, workspaceID, role)
}

func createIn(ctx context.Context, q queryer, userID, workspaceID uuid.UUID, role roles.Role) (*Membership, error) {
	if !roles.Valid(role) {
		return nil, errs.Ef(errs.Invalid, "invalid role: %s", role)
	}

	membership := &Membership{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}

	query := `
		INSERT INTO memberships (id, workspace_id, user_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := q.QueryRowContext(ctx, query,
		membership.ID, workspaceID, userID, role,
	).Scan(&membership.CreatedAt, &membership.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errs.E(errs.Conflict, "user is already a member of this workspace")
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	return membership, nil
}

// Find retrieves a user's membership in a workspace. Absence is a normal
// outcome and returns (nil, nil).
func (s *PostgresStore) Find(ctx context.Context, userID, workspaceID uuid.UUID) (*Membership, error) {
	query := `
		SELECT id, workspace_id, user_id, role, created_at, updated_at
		FROM memberships
		WHERE user_id = $1 AND workspace_id = $2
	`
	membership := &Membership{}
	err := s.db.QueryRowContext(ctx, query, userID, workspaceID).Scan(
		&membership.ID, &membership.WorkspaceID, &membership.UserID,
		&membership.Role, &membership.CreatedAt, &membership.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find membership: %w", err)
	}

	return membership, nil
}

// Get retrieves a membership by ID.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Membership, error) {
	query := `
		SELECT id, workspace_id, user_id, role, created_at, updated_at
		FROM memberships
		WHERE id = $1
	`
	membership := &Membership{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&membership.ID, &membership.WorkspaceID, &membership.UserID,
		&membership.Role, &membership.CreatedAt, &membership.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errs.E(errs.NotFound, "membership not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return membership, nil
}

// SetRole updates a membership's role only if it still holds the expected
// current role, so concurrent role changes serialize instead of silently
// overwriting each other.
func (s *PostgresStore) SetRole(ctx context.Context, id uuid.UUID, newRole, expectedCurrent roles.Role) error {
	if !roles.Valid(newRole) {
		return errs.Ef(errs.Invalid, "invalid role: %s", newRole)
	}

	query := `
		UPDATE memberships
		SET role = $1, updated_at = NOW()
		WHERE id = $2 AND role = $3
	`
	result, err := s.db.ExecContext(ctx, query, newRole, id, expectedCurrent)
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var current roles.Role
		err := s.db.QueryRowContext(ctx, `SELECT role FROM memberships WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return errs.E(errs.NotFound, "membership not found")
		}
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		return errs.Ef(errs.Conflict, "membership role changed concurrently (now %s)", current)
	}

	return nil
}

// Remove deletes a membership by ID.
func (s *PostgresStore) Remove(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errs.E(errs.NotFound, "membership not found")
	}

	return nil
}

// CountByWorkspace returns the number of members in a workspace.
func (s *PostgresStore) CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memberships WHERE workspace_id = $1`, workspaceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", err)
	}
	return count, nil
}

// ListByWorkspace retrieves a page of members ordered by join time, along
// with the total member count. The count rides on the page query as a
// window function so page and total come from the same snapshot.
func (s *PostgresStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]*Member, int, error) {
	query := `
		SELECT m.id, m.workspace_id, m.user_id, m.role, m.created_at, m.updated_at,
		       u.email, u.display_name, COUNT(*) OVER () AS total
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	var total int
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(
			&member.ID, &member.WorkspaceID, &member.UserID, &member.Role,
			&member.CreatedAt, &member.UpdatedAt,
			&member.Email, &member.DisplayName, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// An offset past the last page yields no rows, so the window count
	// is absent and the total needs its own query.
	if len(members) == 0 && offset > 0 {
		total, err = s.CountByWorkspace(ctx, workspaceID)
		if err != nil {
			return nil, 0, err
		}
	}

	return members, total, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key")
}
