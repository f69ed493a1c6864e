package tasks

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/roles"
)

type fakeStore struct {
	tasks map[uuid.UUID]*Task
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: make(map[uuid.UUID]*Task)}
}

func (f *fakeStore) lastPosition(projectID uuid.UUID, status Status) int64 {
	var last int64
	for _, task := range f.tasks {
		if task.ProjectID == projectID && task.Status == status && task.Position > last {
			last = task.Position
		}
	}
	return last
}

func (f *fakeStore) Create(ctx context.Context, task *Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.Position = NextPosition(f.lastPosition(task.ProjectID, task.Status))
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, errs.E(errs.NotFound, "task not found")
	}
	copied := *task
	return &copied, nil
}

func (f *fakeStore) List(ctx context.Context, projectID uuid.UUID, filter ListFilter) ([]*Task, error) {
	var out []*Task
	for _, task := range f.tasks {
		if task.ProjectID != projectID {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.AssigneeID != nil && (task.AssigneeID == nil || *task.AssigneeID != *filter.AssigneeID) {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status < out[j].Status
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, task *Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return errs.E(errs.NotFound, "task not found")
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.tasks[id]; !ok {
		return errs.E(errs.NotFound, "task not found")
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) BulkReposition(ctx context.Context, projectID uuid.UUID, moves []Move) error {
	for _, move := range moves {
		task, ok := f.tasks[move.TaskID]
		if !ok || task.ProjectID != projectID {
			return errs.Ef(errs.NotFound, "task %s not found in project", move.TaskID)
		}
	}
	for _, move := range moves {
		task := f.tasks[move.TaskID]
		task.Status = move.Status
		task.Position = move.Position
	}
	return nil
}

func (f *fakeStore) ReindexLane(ctx context.Context, projectID uuid.UUID, status Status) error {
	return nil
}

type fakeGuard struct {
	store    *fakeStore
	roles    map[uuid.UUID]roles.Role
	projects map[uuid.UUID]uuid.UUID
}

func (g *fakeGuard) authorize(callerID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	role, ok := g.roles[callerID]
	if !ok {
		return nil, errs.E(errs.Unauthorized, "no membership in this workspace")
	}
	if !roles.Satisfies(role, minRole) {
		return nil, errs.E(errs.Forbidden, "insufficient role")
	}
	return &memberships.Membership{UserID: callerID, Role: role}, nil
}

func (g *fakeGuard) RequireProject(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	m, err := g.authorize(callerID, minRole)
	if err != nil {
		return nil, err
	}
	if g.projects[projectID] != workspaceID {
		return nil, errs.E(errs.NotFound, "project not found")
	}
	return m, nil
}

func (g *fakeGuard) RequireTask(ctx context.Context, callerID, workspaceID, projectID, taskID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	m, err := g.RequireProject(ctx, callerID, workspaceID, projectID, minRole)
	if err != nil {
		return nil, err
	}
	task, ok := g.store.tasks[taskID]
	if !ok || task.ProjectID != projectID {
		return nil, errs.E(errs.NotFound, "task not found")
	}
	return m, nil
}

type fakeMembers struct {
	members map[uuid.UUID]bool
}

func (f *fakeMembers) Find(ctx context.Context, userID, workspaceID uuid.UUID) (*memberships.Membership, error) {
	if !f.members[userID] {
		return nil, nil
	}
	return &memberships.Membership{UserID: userID, WorkspaceID: workspaceID, Role: roles.RoleMember}, nil
}

type fixture struct {
	service     *Service
	store       *fakeStore
	members     *fakeMembers
	workspaceID uuid.UUID
	projectID   uuid.UUID
	modID       uuid.UUID
	memberID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	workspaceID := uuid.New()
	projectID := uuid.New()
	modID := uuid.New()
	memberID := uuid.New()
	guard := &fakeGuard{
		store:    store,
		roles:    map[uuid.UUID]roles.Role{modID: roles.RoleModerator, memberID: roles.RoleMember},
		projects: map[uuid.UUID]uuid.UUID{projectID: workspaceID},
	}
	members := &fakeMembers{members: map[uuid.UUID]bool{modID: true, memberID: true}}
	return &fixture{
		service:     NewService(store, guard, members, audit.NopLogger{}, nil),
		store:       store,
		members:     members,
		workspaceID: workspaceID,
		projectID:   projectID,
		modID:       modID,
		memberID:    memberID,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to backlog and appends to the lane", func(t *testing.T) {
		f := newFixture(t)

		first, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "First"})
		require.NoError(t, err)
		second, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "Second"})
		require.NoError(t, err)

		assert.Equal(t, StatusBacklog, first.Status)
		assert.Equal(t, int64(PositionGap), first.Position)
		assert.Equal(t, int64(2*PositionGap), second.Position)
	})

	t.Run("member may not create", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(ctx, f.memberID, f.workspaceID, f.projectID, CreateParams{Title: "Nope"})

		assert.True(t, errs.IsForbidden(err))
	})

	t.Run("assignee outside the workspace rejected", func(t *testing.T) {
		f := newFixture(t)
		outsider := uuid.New()

		_, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{
			Title:      "Assign",
			AssigneeID: &outsider,
		})

		assert.True(t, errs.IsInvalid(err))
	})

	t.Run("member assignee accepted", func(t *testing.T) {
		f := newFixture(t)

		task, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{
			Title:      "Assign",
			AssigneeID: &f.memberID,
		})

		require.NoError(t, err)
		assert.Equal(t, f.memberID, *task.AssigneeID)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{
			Title:  "Bad",
			Status: Status("Doing"),
		})

		assert.True(t, errs.IsInvalid(err))
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "A", Status: StatusTodo})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "B", Status: StatusDone})
	require.NoError(t, err)

	t.Run("member lists all", func(t *testing.T) {
		tasks, err := f.service.List(ctx, f.memberID, f.workspaceID, f.projectID, ListFilter{})
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("status filter", func(t *testing.T) {
		status := StatusDone
		tasks, err := f.service.List(ctx, f.memberID, f.workspaceID, f.projectID, ListFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "B", tasks[0].Title)
	})

	t.Run("outsider is unauthorized", func(t *testing.T) {
		_, err := f.service.List(ctx, uuid.New(), f.workspaceID, f.projectID, ListFilter{})
		assert.True(t, errs.IsUnauthorized(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("moderator moves task to review", func(t *testing.T) {
		f := newFixture(t)
		task, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "Ship", Status: StatusInProgress})
		require.NoError(t, err)

		updated, err := f.service.Update(ctx, f.modID, f.workspaceID, f.projectID, task.ID, UpdateParams{
			Title:  "Ship it",
			Status: StatusInReview,
		})

		require.NoError(t, err)
		assert.Equal(t, "Ship it", updated.Title)
		assert.Equal(t, StatusInReview, updated.Status)
	})

	t.Run("task in another project is not found", func(t *testing.T) {
		f := newFixture(t)
		foreign := &Task{ProjectID: uuid.New(), Title: "Foreign", Status: StatusTodo}
		require.NoError(t, f.store.Create(ctx, foreign))

		_, err := f.service.Update(ctx, f.modID, f.workspaceID, f.projectID, foreign.ID, UpdateParams{
			Title:  "Steal",
			Status: StatusTodo,
		})

		assert.True(t, errs.IsNotFound(err))
	})
}

func TestService_BulkReposition(t *testing.T) {
	ctx := context.Background()

	t.Run("reorders the board atomically", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "A", Status: StatusTodo})
		require.NoError(t, err)
		b, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "B", Status: StatusTodo})
		require.NoError(t, err)

		err = f.service.BulkReposition(ctx, f.modID, f.workspaceID, f.projectID, []Move{
			{TaskID: b.ID, Status: StatusTodo, Position: 1000},
			{TaskID: a.ID, Status: StatusInProgress, Position: 1000},
		})

		require.NoError(t, err)
		tasks, err := f.service.List(ctx, f.memberID, f.workspaceID, f.projectID, ListFilter{})
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "A", tasks[0].Title)
		assert.Equal(t, StatusInProgress, tasks[0].Status)
	})

	t.Run("foreign task fails the batch", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "A", Status: StatusTodo})
		require.NoError(t, err)

		err = f.service.BulkReposition(ctx, f.modID, f.workspaceID, f.projectID, []Move{
			{TaskID: a.ID, Status: StatusDone, Position: 1000},
			{TaskID: uuid.New(), Status: StatusDone, Position: 2000},
		})

		assert.True(t, errs.IsNotFound(err))
		got, err := f.store.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusTodo, got.Status)
	})

	t.Run("member may not reposition", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.BulkReposition(ctx, f.memberID, f.workspaceID, f.projectID, nil)

		assert.True(t, errs.IsForbidden(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task, err := f.service.Create(ctx, f.modID, f.workspaceID, f.projectID, CreateParams{Title: "Gone"})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, f.modID, f.workspaceID, f.projectID, task.ID))

	_, err = f.store.Get(ctx, task.ID)
	assert.True(t, errs.IsNotFound(err))
}
