package memberships

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/roles"
)

func newStoreTest(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewPostgresStore(db), mock, func() { db.Close() }
}

type errDup struct{}

func (errDup) Error() string {
	return `pq: duplicate key value violates unique constraint "memberships_workspace_id_user_id_key"`
}

func TestPostgresStore_Create(t *testing.T) {
	userID := uuid.New()
	workspaceID := uuid.New()

	t.Run("success", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO memberships")).
			WithArgs(sqlmock.AnyArg(), workspaceID, userID, roles.RoleMember).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).
				AddRow(time.Now(), time.Now()))

		membership, err := store.Create(context.Background(), userID, workspaceID, roles.RoleMember)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, membership.ID)
		assert.Equal(t, roles.RoleMember, membership.Role)
		assert.Equal(t, workspaceID, membership.WorkspaceID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate pair conflicts", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO memberships")).
			WillReturnError(errDup{})

		_, err := store.Create(context.Background(), userID, workspaceID, roles.RoleMember)

		assert.True(t, errs.IsConflict(err))
	})

	t.Run("invalid role rejected before insert", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		_, err := store.Create(context.Background(), userID, workspaceID, roles.Role("Admin"))

		assert.True(t, errs.IsInvalid(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_Find(t *testing.T) {
	userID := uuid.New()
	workspaceID := uuid.New()

	t.Run("found", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, workspace_id, user_id, role, created_at, updated_at")).
			WithArgs(userID, workspaceID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role", "created_at", "updated_at"}).
				AddRow(id, workspaceID, userID, "admin", time.Now(), time.Now()))

		membership, err := store.Find(context.Background(), userID, workspaceID)

		require.NoError(t, err)
		require.NotNil(t, membership)
		assert.Equal(t, id, membership.ID)
		assert.Equal(t, roles.RoleAdmin, membership.Role)
	})

	t.Run("absent is nil without error", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, workspace_id, user_id, role, created_at, updated_at")).
			WithArgs(userID, workspaceID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role", "created_at", "updated_at"}))

		membership, err := store.Find(context.Background(), userID, workspaceID)

		require.NoError(t, err)
		assert.Nil(t, membership)
	})
}

func TestPostgresStore_Get(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, workspace_id, user_id, role, created_at, updated_at")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role", "created_at", "updated_at"}))

		_, err := store.Get(context.Background(), id)

		assert.True(t, errs.IsNotFound(err))
	})
}

func TestPostgresStore_SetRole(t *testing.T) {
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE memberships")).
			WithArgs(roles.RoleModerator, id, roles.RoleMember).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.SetRole(context.Background(), id, roles.RoleModerator, roles.RoleMember)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent change conflicts", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE memberships")).
			WithArgs(roles.RoleModerator, id, roles.RoleMember).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM memberships WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

		err := store.SetRole(context.Background(), id, roles.RoleModerator, roles.RoleMember)

		assert.True(t, errs.IsConflict(err))
	})

	t.Run("vanished membership is not found", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE memberships")).
			WithArgs(roles.RoleModerator, id, roles.RoleMember).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM memberships WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		err := store.SetRole(context.Background(), id, roles.RoleModerator, roles.RoleMember)

		assert.True(t, errs.IsNotFound(err))
	})
}

func TestPostgresStore_Remove(t *testing.T) {
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM memberships WHERE id = $1")).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Remove(context.Background(), id))
	})

	t.Run("already gone", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM memberships WHERE id = $1")).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.True(t, errs.IsNotFound(store.Remove(context.Background(), id)))
	})
}

func TestPostgresStore_ListByWorkspace(t *testing.T) {
	workspaceID := uuid.New()

	t.Run("page and total come from one query", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		ownerID := uuid.New()
		memberID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) OVER () AS total")).
			WithArgs(workspaceID, 50, 0).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "workspace_id", "user_id", "role", "created_at", "updated_at", "email", "display_name", "total",
			}).
				AddRow(uuid.New(), workspaceID, ownerID, "owner", time.Now().Add(-time.Hour), time.Now(), "ada@example.com", "Ada", 7).
				AddRow(uuid.New(), workspaceID, memberID, "member", time.Now(), time.Now(), "grace@example.com", "Grace", 7))

		members, total, err := store.ListByWorkspace(context.Background(), workspaceID, 50, 0)

		require.NoError(t, err)
		assert.Equal(t, 7, total)
		require.Len(t, members, 2)
		assert.Equal(t, roles.RoleOwner, members[0].Role)
		assert.Equal(t, "ada@example.com", members[0].Email)
		assert.Equal(t, "Grace", members[1].DisplayName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty page past the end still reports the total", func(t *testing.T) {
		store, mock, cleanup := newStoreTest(t)
		defer cleanup()

		mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) OVER () AS total")).
			WithArgs(workspaceID, 50, 100).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "workspace_id", "user_id", "role", "created_at", "updated_at", "email", "display_name", "total",
			}))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM memberships WHERE workspace_id = $1")).
			WithArgs(workspaceID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		members, total, err := store.ListByWorkspace(context.Background(), workspaceID, 50, 100)

		require.NoError(t, err)
		assert.Empty(t, members)
		assert.Equal(t, 3, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
