package workspaces

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/errs"
	"github.com/planora/planora/pkg/memberships"
	"github.com/planora/planora/pkg/roles"
)

// fakeStore keeps workspaces and memberships in memory with the same
// semantics as PostgresStore.
type fakeStore struct {
	workspaces  map[uuid.UUID]*Workspace
	memberships map[uuid.UUID]*memberships.Membership
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		workspaces:  make(map[uuid.UUID]*Workspace),
		memberships: make(map[uuid.UUID]*memberships.Membership),
	}
}

func (f *fakeStore) addMembership(userID, workspaceID uuid.UUID, role roles.Role) *memberships.Membership {
	m := &memberships.Membership{ID: uuid.New(), WorkspaceID: workspaceID, UserID: userID, Role: role}
	f.memberships[m.ID] = m
	return m
}

func (f *fakeStore) find(userID, workspaceID uuid.UUID) *memberships.Membership {
	for _, m := range f.memberships {
		if m.UserID == userID && m.WorkspaceID == workspaceID {
			return m
		}
	}
	return nil
}

func (f *fakeStore) Create(ctx context.Context, ownerID uuid.UUID, name, imageURL string) (*Workspace, error) {
	code, err := NewInviteCode()
	if err != nil {
		return nil, err
	}
	w := &Workspace{ID: uuid.New(), Name: name, ImageURL: imageURL, InviteCode: code, OwnerID: ownerID}
	f.workspaces[w.ID] = w
	f.addMembership(ownerID, w.ID, roles.RoleOwner)
	return w, nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	w, ok := f.workspaces[id]
	if !ok {
		return nil, errs.E(errs.NotFound, "workspace not found")
	}
	copied := *w
	return &copied, nil
}

func (f *fakeStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Workspace, error) {
	var out []*Workspace
	for _, m := range f.memberships {
		if m.UserID == userID {
			if w, ok := f.workspaces[m.WorkspaceID]; ok {
				copied := *w
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, id uuid.UUID, name, imageURL string) error {
	w, ok := f.workspaces[id]
	if !ok {
		return errs.E(errs.NotFound, "workspace not found")
	}
	w.Name = name
	w.ImageURL = imageURL
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.workspaces[id]; !ok {
		return errs.E(errs.NotFound, "workspace not found")
	}
	delete(f.workspaces, id)
	for mid, m := range f.memberships {
		if m.WorkspaceID == id {
			delete(f.memberships, mid)
		}
	}
	return nil
}

func (f *fakeStore) RotateInviteCode(ctx context.Context, id uuid.UUID) (string, error) {
	w, ok := f.workspaces[id]
	if !ok {
		return "", errs.E(errs.NotFound, "workspace not found")
	}
	code, err := NewInviteCode()
	if err != nil {
		return "", err
	}
	w.InviteCode = code
	return code, nil
}

func (f *fakeStore) JoinByInvite(ctx context.Context, userID, workspaceID uuid.UUID, code string) (*memberships.Membership, error) {
	w, ok := f.workspaces[workspaceID]
	if !ok {
		return nil, errs.E(errs.NotFound, "workspace not found")
	}
	if code != w.InviteCode {
		return nil, errs.E(errs.Forbidden, "invalid invite code")
	}
	if f.find(userID, workspaceID) != nil {
		return nil, errs.E(errs.Conflict, "user is already a member of this workspace")
	}
	return f.addMembership(userID, workspaceID, roles.RoleMember), nil
}

type fakeGuard struct {
	store *fakeStore
}

func (g *fakeGuard) Authorize(ctx context.Context, callerID, workspaceID uuid.UUID, minRole roles.Role) (*memberships.Membership, error) {
	if _, ok := g.store.workspaces[workspaceID]; !ok {
		return nil, errs.E(errs.NotFound, "workspace not found")
	}
	m := g.store.find(callerID, workspaceID)
	if m == nil {
		return nil, errs.E(errs.Unauthorized, "no membership in this workspace")
	}
	if !roles.Satisfies(m.Role, minRole) {
		return nil, errs.E(errs.Forbidden, "insufficient role")
	}
	return m, nil
}

type fakeInvalidator struct {
	memberCalls    int
	workspaceCalls int
}

func (f *fakeInvalidator) InvalidateMembership(ctx context.Context, userID, workspaceID uuid.UUID) {
	f.memberCalls++
}

func (f *fakeInvalidator) InvalidateWorkspace(ctx context.Context, workspaceID uuid.UUID) {
	f.workspaceCalls++
}

type captureAuditor struct {
	records []*audit.Record
}

func (c *captureAuditor) Record(ctx context.Context, rec *audit.Record) error {
	c.records = append(c.records, rec)
	return nil
}

type serviceFixture struct {
	service     *Service
	store       *fakeStore
	invalidator *fakeInvalidator
	auditor     *captureAuditor
	ownerID     uuid.UUID
	workspace   *Workspace
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	store := newFakeStore()
	invalidator := &fakeInvalidator{}
	auditor := &captureAuditor{}
	ownerID := uuid.New()
	service := NewService(store, &fakeGuard{store: store}, invalidator, auditor, nil, nil)
	workspace, err := service.Create(context.Background(), ownerID, "Atlas", "")
	require.NoError(t, err)
	auditor.records = nil
	return &serviceFixture{
		service:     service,
		store:       store,
		invalidator: invalidator,
		auditor:     auditor,
		ownerID:     ownerID,
		workspace:   workspace,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creator becomes owner and first member", func(t *testing.T) {
		store := newFakeStore()
		auditor := &captureAuditor{}
		service := NewService(store, &fakeGuard{store: store}, nil, auditor, nil, nil)
		ownerID := uuid.New()

		workspace, err := service.Create(ctx, ownerID, "  Atlas  ", "")

		require.NoError(t, err)
		assert.Equal(t, "Atlas", workspace.Name)
		assert.NotEmpty(t, workspace.InviteCode)
		m := store.find(ownerID, workspace.ID)
		require.NotNil(t, m)
		assert.Equal(t, roles.RoleOwner, m.Role)
		require.Len(t, auditor.records, 1)
		assert.Equal(t, audit.ActionWorkspaceCreated, auditor.records[0].Action)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		store := newFakeStore()
		service := NewService(store, &fakeGuard{store: store}, nil, nil, nil, nil)

		_, err := service.Create(ctx, uuid.New(), "   ", "")

		assert.True(t, errs.IsInvalid(err))
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("owner sees invite code", func(t *testing.T) {
		f := newServiceFixture(t)

		workspace, err := f.service.Get(ctx, f.ownerID, f.workspace.ID)

		require.NoError(t, err)
		assert.NotEmpty(t, workspace.InviteCode)
	})

	t.Run("member gets redacted invite code", func(t *testing.T) {
		f := newServiceFixture(t)
		memberID := uuid.New()
		f.store.addMembership(memberID, f.workspace.ID, roles.RoleMember)

		workspace, err := f.service.Get(ctx, memberID, f.workspace.ID)

		require.NoError(t, err)
		assert.Empty(t, workspace.InviteCode)
	})

	t.Run("outsider is unauthorized", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Get(ctx, uuid.New(), f.workspace.ID)

		assert.True(t, errs.IsUnauthorized(err))
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("admin may update", func(t *testing.T) {
		f := newServiceFixture(t)
		adminID := uuid.New()
		f.store.addMembership(adminID, f.workspace.ID, roles.RoleAdmin)

		updated, err := f.service.Update(ctx, adminID, f.workspace.ID, "Atlas 2", "https://img.example/a.png")

		require.NoError(t, err)
		assert.Equal(t, "Atlas 2", updated.Name)
	})

	t.Run("moderator may not", func(t *testing.T) {
		f := newServiceFixture(t)
		modID := uuid.New()
		f.store.addMembership(modID, f.workspace.ID, roles.RoleModerator)

		_, err := f.service.Update(ctx, modID, f.workspace.ID, "Atlas 2", "")

		assert.True(t, errs.IsForbidden(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner deletes and cache is flushed", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.service.Delete(ctx, f.ownerID, f.workspace.ID)

		require.NoError(t, err)
		assert.Empty(t, f.store.workspaces)
		assert.Equal(t, 1, f.invalidator.workspaceCalls)
		require.Len(t, f.auditor.records, 1)
		assert.Equal(t, audit.ActionWorkspaceDeleted, f.auditor.records[0].Action)
	})

	t.Run("admin rank is not enough", func(t *testing.T) {
		f := newServiceFixture(t)
		adminID := uuid.New()
		f.store.addMembership(adminID, f.workspace.ID, roles.RoleAdmin)

		err := f.service.Delete(ctx, adminID, f.workspace.ID)

		assert.True(t, errs.IsForbidden(err))
		assert.Len(t, f.store.workspaces, 1)
	})

	t.Run("outsider is unauthorized", func(t *testing.T) {
		f := newServiceFixture(t)

		err := f.service.Delete(ctx, uuid.New(), f.workspace.ID)

		assert.True(t, errs.IsUnauthorized(err))
	})
}

func TestService_RotateInviteCode(t *testing.T) {
	ctx := context.Background()

	t.Run("admin rotates", func(t *testing.T) {
		f := newServiceFixture(t)
		adminID := uuid.New()
		f.store.addMembership(adminID, f.workspace.ID, roles.RoleAdmin)
		old := f.workspace.InviteCode

		code, err := f.service.RotateInviteCode(ctx, adminID, f.workspace.ID)

		require.NoError(t, err)
		assert.NotEqual(t, old, code)
	})

	t.Run("member may not", func(t *testing.T) {
		f := newServiceFixture(t)
		memberID := uuid.New()
		f.store.addMembership(memberID, f.workspace.ID, roles.RoleMember)

		_, err := f.service.RotateInviteCode(ctx, memberID, f.workspace.ID)

		assert.True(t, errs.IsForbidden(err))
	})
}

func TestService_JoinByInvite(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code joins as member", func(t *testing.T) {
		f := newServiceFixture(t)
		userID := uuid.New()

		membership, err := f.service.JoinByInvite(ctx, userID, f.workspace.ID, f.workspace.InviteCode)

		require.NoError(t, err)
		assert.Equal(t, roles.RoleMember, membership.Role)
		assert.Equal(t, 1, f.invalidator.memberCalls)
		require.Len(t, f.auditor.records, 1)
		assert.Equal(t, audit.ActionMemberJoined, f.auditor.records[0].Action)
	})

	t.Run("stale code is forbidden", func(t *testing.T) {
		f := newServiceFixture(t)
		adminID := uuid.New()
		f.store.addMembership(adminID, f.workspace.ID, roles.RoleAdmin)
		old := f.workspace.InviteCode
		_, err := f.service.RotateInviteCode(ctx, adminID, f.workspace.ID)
		require.NoError(t, err)

		_, err = f.service.JoinByInvite(ctx, uuid.New(), f.workspace.ID, old)

		assert.True(t, errs.IsForbidden(err))
	})

	t.Run("existing member conflicts", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.JoinByInvite(ctx, f.ownerID, f.workspace.ID, f.workspace.InviteCode)

		assert.True(t, errs.IsConflict(err))
	})

	t.Run("empty code rejected before lookup", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.JoinByInvite(ctx, uuid.New(), f.workspace.ID, "")

		assert.True(t, errs.IsInvalid(err))
	})
}

func TestService_ListForUser(t *testing.T) {
	f := newServiceFixture(t)

	workspaces, err := f.service.ListForUser(context.Background(), f.ownerID)

	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Empty(t, workspaces[0].InviteCode)
}
