package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/planora/planora/pkg/errs"
)

// Store implements Logger backed by the audit_log table and additionally
// supports querying and retention cleanup.
type Store struct {
	db *sql.DB
}

// NewStore creates a database-backed audit store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record persists a single audit record and fills in its ID and CreatedAt.
func (s *Store) Record(ctx context.Context, rec *Record) error {
	if rec.Action == "" {
		return errs.E(errs.Invalid, "audit action is required")
	}
	if rec.EntityType == "" {
		return errs.E(errs.Invalid, "audit entity type is required")
	}

	detailJSON := []byte("{}")
	if rec.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(rec.Detail)
		if err != nil {
			return fmt.Errorf("failed to marshal audit detail: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (workspace_id, actor_id, action, entity_type, entity_id, detail)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		rec.WorkspaceID, rec.ActorID, rec.Action, rec.EntityType, rec.EntityID, detailJSON,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	return nil
}

// Query retrieves audit records matching the filters, newest first.
func (s *Store) Query(ctx context.Context, filters Filters) ([]*Record, error) {
	query := `
		SELECT id, workspace_id, actor_id, action, entity_type, entity_id, detail, created_at
		FROM audit_log
		WHERE 1=1
	`
	args := []interface{}{}
	argn := 0

	next := func(v interface{}) string {
		argn++
		args = append(args, v)
		return "$" + strconv.Itoa(argn)
	}

	if filters.WorkspaceID != nil {
		query += " AND workspace_id = " + next(*filters.WorkspaceID)
	}
	if filters.ActorID != nil {
		query += " AND actor_id = " + next(*filters.ActorID)
	}
	if filters.Action != "" {
		query += " AND action = " + next(filters.Action)
	}
	if !filters.Since.IsZero() {
		query += " AND created_at >= " + next(filters.Since)
	}

	query += " ORDER BY created_at DESC"

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT " + next(limit)
	if filters.Offset > 0 {
		query += " OFFSET " + next(filters.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec := &Record{}
		var entityID sql.NullString
		var detailJSON []byte
		if err := rows.Scan(
			&rec.ID, &rec.WorkspaceID, &rec.ActorID, &rec.Action,
			&rec.EntityType, &entityID, &detailJSON, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		if entityID.Valid {
			rec.EntityID = entityID.String
		}
		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &rec.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit detail: %w", err)
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Cleanup removes records older than the retention period and returns the
// number deleted.
func (s *Store) Cleanup(ctx context.Context, policy RetentionPolicy) (int64, error) {
	if policy.RetentionDays <= 0 {
		return 0, errs.E(errs.Invalid, "retention days must be positive")
	}
	cutoff := time.Now().AddDate(0, 0, -policy.RetentionDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up audit log: %w", err)
	}
	return result.RowsAffected()
}
