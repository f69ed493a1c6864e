//go:build integration

package workspaces

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/roles"
	"github.com/planora/planora/pkg/storage/postgres"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("planora_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, testWriter{t})
	require.NoError(t, postgres.RunMigrations(ctx, db, logger))

	return db
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func createTestUser(t *testing.T, db *sql.DB, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, display_name) VALUES ($1, $2, $3)`,
		id, email, email)
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, db *sql.DB, table string, workspaceColumn string, workspaceID uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM `+table+` WHERE `+workspaceColumn+` = $1`, workspaceID).Scan(&n))
	return n
}

func TestWorkspaceCascadeDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	memberStore := memberships.NewPostgresStore(db)
	store := NewPostgresStore(db, memberStore)

	owner := createTestUser(t, db, "owner@example.com")
	member := createTestUser(t, db, "member@example.com")

	ws, err := store.Create(ctx, owner, "Atlas", "")
	require.NoError(t, err)

	_, err = store.JoinByInvite(ctx, member, ws.ID, ws.InviteCode)
	require.NoError(t, err)

	projectID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO projects (id, workspace_id, name, created_by) VALUES ($1, $2, $3, $4)`,
		projectID, ws.ID, "Migration", owner)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, status, position, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), projectID, "Ship it", "todo", 1000, owner)
	require.NoError(t, err)

	require.Equal(t, 2, countRows(t, db, "memberships", "workspace_id", ws.ID))
	require.Equal(t, 1, countRows(t, db, "projects", "workspace_id", ws.ID))

	require.NoError(t, store.Delete(ctx, ws.ID))

	assert.Equal(t, 0, countRows(t, db, "memberships", "workspace_id", ws.ID))
	assert.Equal(t, 0, countRows(t, db, "projects", "workspace_id", ws.ID))

	var tasksLeft int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&tasksLeft))
	assert.Equal(t, 0, tasksLeft, "tasks should cascade with their project")

	// Users survive workspace deletion.
	var usersLeft int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&usersLeft))
	assert.Equal(t, 2, usersLeft)
}

func TestJoinByInviteAgainstRealDB(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	memberStore := memberships.NewPostgresStore(db)
	store := NewPostgresStore(db, memberStore)

	owner := createTestUser(t, db, "owner@example.com")
	joiner := createTestUser(t, db, "joiner@example.com")

	ws, err := store.Create(ctx, owner, "Atlas", "")
	require.NoError(t, err)

	t.Run("owner membership created with the workspace", func(t *testing.T) {
		m, err := memberStore.Find(ctx, owner, ws.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, roles.RoleOwner, m.Role)
	})

	t.Run("valid code joins as member", func(t *testing.T) {
		m, err := store.JoinByInvite(ctx, joiner, ws.ID, ws.InviteCode)
		require.NoError(t, err)
		assert.Equal(t, roles.RoleMember, m.Role)
	})

	t.Run("second join conflicts", func(t *testing.T) {
		_, err := store.JoinByInvite(ctx, joiner, ws.ID, ws.InviteCode)
		require.Error(t, err)
	})

	t.Run("rotated code invalidates the old one", func(t *testing.T) {
		newCode, err := store.RotateInviteCode(ctx, ws.ID)
		require.NoError(t, err)

		late := createTestUser(t, db, "late@example.com")
		_, err = store.JoinByInvite(ctx, late, ws.ID, ws.InviteCode)
		require.Error(t, err, "stale code must not admit")

		_, err = store.JoinByInvite(ctx, late, ws.ID, newCode)
		require.NoError(t, err)
	})
}
