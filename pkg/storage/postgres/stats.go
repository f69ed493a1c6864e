package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EntityCounts holds the table totals exported as gauges.
type EntityCounts struct {
	Workspaces  int64
	Memberships int64
	Projects    int64
	Tasks       int64
}

// CollectCounts reads the entity totals in one round trip.
func CollectCounts(ctx context.Context, db *sql.DB) (EntityCounts, error) {
	var c EntityCounts
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM workspaces),
			(SELECT COUNT(*) FROM memberships),
			(SELECT COUNT(*) FROM projects),
			(SELECT COUNT(*) FROM tasks)`,
	).Scan(&c.Workspaces, &c.Memberships, &c.Projects, &c.Tasks)
	if err != nil {
		return EntityCounts{}, fmt.Errorf("failed to collect entity counts: %w", err)
	}
	return c, nil
}
