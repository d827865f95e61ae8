package permission

import (
	"codeshare/domain"
	"codeshare/errors"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTable(engine Engine, owner string, others ...string) *RoleTable {
	table := NewRoleTable(domain.VisibilityPublic)
	// a public table admits everyone
	for _, userID := range append([]string{owner}, others...) {
		_, _ = engine.Admit(table, userID)
	}
	return table
}

func admit(t *testing.T, engine Engine, table *RoleTable, userID string) domain.Role {
	t.Helper()
	role, err := engine.Admit(table, userID)
	require.NoError(t, err)
	return role
}

func countOwners(roles map[string]domain.Role) int {
	return len(lo.PickByValues(roles, []domain.Role{domain.RoleOwner}))
}

func TestDerive(t *testing.T) {
	tests := []struct {
		role   domain.Role
		locked bool
		want   domain.Capabilities
	}{
		{domain.RoleOwner, false, domain.Capabilities{CanEdit: true, CanExecute: true, CanManage: true}},
		{domain.RoleOwner, true, domain.Capabilities{CanEdit: false, CanExecute: true, CanManage: true}},
		{domain.RoleEditor, false, domain.Capabilities{CanEdit: true, CanExecute: true}},
		{domain.RoleEditor, true, domain.Capabilities{CanExecute: true}},
		{domain.RoleViewer, false, domain.Capabilities{}},
		{domain.RoleViewer, true, domain.Capabilities{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			require.Equal(t, tt.want, Derive(tt.role, tt.locked))
		})
	}
}

func TestEngine_Lock_Removes_Edit_For_Every_Role(t *testing.T) {
	req := require.New(t)
	engine := NewEngine()
	table := newTable(engine, "alice", "bob", "carol")
	req.NoError(engine.SetRole(table, "alice", "bob", domain.RoleEditor))

	// When the session is locked nobody can edit, owner included
	for _, userID := range []string{"alice", "bob", "carol"} {
		req.False(engine.Capabilities(table, userID, true).CanEdit)
		req.ErrorIs(engine.Authorize(table, userID, true, domain.IntentEdit), errors.ErrUnauthorized)
	}

	// Then unlocking restores the per role capability
	req.True(engine.Capabilities(table, "alice", false).CanEdit)
	req.True(engine.Capabilities(table, "bob", false).CanEdit)
	req.False(engine.Capabilities(table, "carol", false).CanEdit)
}

func TestEngine_Authorize(t *testing.T) {
	engine := NewEngine()
	table := newTable(engine, "alice", "bob")

	tests := []struct {
		user    string
		kind    domain.IntentKind
		wantErr error
	}{
		{"alice", domain.IntentEdit, nil},
		{"alice", domain.IntentRoleChange, nil},
		{"alice", domain.IntentLockToggle, nil},
		{"bob", domain.IntentEdit, errors.ErrUnauthorized},
		{"bob", domain.IntentLanguageChange, errors.ErrUnauthorized},
		{"bob", domain.IntentExecuteRequest, errors.ErrUnauthorized},
		{"bob", domain.IntentLockToggle, errors.ErrUnauthorized},
		{"bob", domain.IntentCursorMove, nil},
		{"bob", domain.IntentChat, nil},
		{"mallory", domain.IntentChat, errors.ErrUnauthorized},
		{"alice", domain.IntentKind("teleport"), errors.ErrUnknownIntent},
	}
	for _, tt := range tests {
		t.Run(tt.user+" "+string(tt.kind), func(t *testing.T) {
			err := engine.Authorize(table, tt.user, false, tt.kind)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEngine_Admit(t *testing.T) {
	req := require.New(t)
	engine := NewEngine()
	table := NewRoleTable("")
	req.Equal(domain.VisibilityPublic, table.Visibility())

	// The first user admitted owns the session
	req.Equal(domain.RoleOwner, admit(t, engine, table, "alice"))
	req.Equal("alice", table.Owner())

	// Later users watch
	req.Equal(domain.RoleViewer, admit(t, engine, table, "bob"))

	// A returning user keeps the role they were given
	req.NoError(engine.SetRole(table, "alice", "bob", domain.RoleEditor))
	req.Equal(domain.RoleEditor, admit(t, engine, table, "bob"))
}

func TestEngine_Admit_Private_Session(t *testing.T) {
	req := require.New(t)
	engine := NewEngine()
	table := NewRoleTable(domain.VisibilityPrivate)

	// Given the creator owns a private session
	req.Equal(domain.RoleOwner, admit(t, engine, table, "alice"))

	// When a stranger arrives, they are refused and get no role
	_, err := engine.Admit(table, "mallory")
	req.ErrorIs(err, errors.ErrUnauthorized)
	_, ok := table.Role("mallory")
	req.False(ok)

	// Then an invited user is admitted with the granted role
	req.NoError(engine.SetRole(table, "alice", "bob", domain.RoleViewer))
	req.Equal(domain.RoleViewer, admit(t, engine, table, "bob"))
}

func TestEngine_Revoke(t *testing.T) {
	engine := NewEngine()

	t.Run("Owner removes a collaborator", func(t *testing.T) {
		table := NewRoleTable(domain.VisibilityPrivate)
		admit(t, engine, table, "alice")
		require.NoError(t, engine.SetRole(table, "alice", "bob", domain.RoleEditor))
		admit(t, engine, table, "bob")

		require.NoError(t, engine.Revoke(table, "alice", "bob"))

		_, ok := table.Role("bob")
		require.False(t, ok)
		_, err := engine.Admit(table, "bob")
		require.ErrorIs(t, err, errors.ErrUnauthorized)
	})
	t.Run("Editor cannot remove anyone", func(t *testing.T) {
		table := newTable(engine, "alice", "bob", "carol")
		require.NoError(t, engine.SetRole(table, "alice", "bob", domain.RoleEditor))
		before := table.Snapshot()
		require.ErrorIs(t, engine.Revoke(table, "bob", "carol"), errors.ErrUnauthorized)
		require.Equal(t, before, table.Snapshot())
	})
	t.Run("Owner cannot be removed", func(t *testing.T) {
		table := newTable(engine, "alice", "bob")
		require.ErrorIs(t, engine.Revoke(table, "alice", "alice"), errors.ErrInvariantViolation)
		require.Equal(t, "alice", table.Owner())
	})
	t.Run("Unknown user", func(t *testing.T) {
		table := newTable(engine, "alice")
		require.ErrorIs(t, engine.Revoke(table, "alice", "ghost"), errors.ErrUnknownParticipant)
	})
}

func TestEngine_SetRole(t *testing.T) {
	engine := NewEngine()

	t.Run("Owner promotes a viewer", func(t *testing.T) {
		table := newTable(engine, "alice", "bob")
		require.NoError(t, engine.SetRole(table, "alice", "bob", domain.RoleEditor))
		role, _ := table.Role("bob")
		require.Equal(t, domain.RoleEditor, role)
	})
	t.Run("Owner may grant a user not connected yet", func(t *testing.T) {
		table := newTable(engine, "alice")
		require.NoError(t, engine.SetRole(table, "alice", "dave", domain.RoleEditor))
		require.Equal(t, domain.RoleEditor, admit(t, engine, table, "dave"))
	})
	t.Run("Editor cannot change roles", func(t *testing.T) {
		table := newTable(engine, "alice", "bob", "carol")
		require.NoError(t, engine.SetRole(table, "alice", "bob", domain.RoleEditor))
		before := table.Snapshot()
		require.ErrorIs(t, engine.SetRole(table, "bob", "carol", domain.RoleEditor), errors.ErrUnauthorized)
		require.Equal(t, before, table.Snapshot())
	})
	t.Run("Owner cannot be assigned directly", func(t *testing.T) {
		table := newTable(engine, "alice", "bob")
		require.ErrorIs(t, engine.SetRole(table, "alice", "bob", domain.RoleOwner), errors.ErrInvariantViolation)
		require.Equal(t, 1, countOwners(table.Snapshot()))
	})
	t.Run("Owner cannot be demoted", func(t *testing.T) {
		table := newTable(engine, "alice")
		require.ErrorIs(t, engine.SetRole(table, "alice", "alice", domain.RoleViewer), errors.ErrInvariantViolation)
		require.Equal(t, "alice", table.Owner())
	})
	t.Run("Unknown role", func(t *testing.T) {
		table := newTable(engine, "alice", "bob")
		require.ErrorIs(t, engine.SetRole(table, "alice", "bob", domain.Role("admin")), errors.ErrInvalidPayload)
	})
}

func TestEngine_TransferOwnership_From_Non_Owner_Is_A_No_Op(t *testing.T) {
	req := require.New(t)
	engine := NewEngine()
	table := newTable(engine, "alice", "bob", "carol")
	req.NoError(engine.SetRole(table, "alice", "bob", domain.RoleEditor))
	before := table.Snapshot()

	req.False(engine.TransferOwnership(table, "bob", "carol"))
	req.False(engine.TransferOwnership(table, "carol", "carol"))
	req.False(engine.TransferOwnership(table, "mallory", "bob"))
	req.False(engine.TransferOwnership(table, "alice", "alice"))
	req.False(engine.TransferOwnership(table, "alice", ""))
	req.False(engine.TransferOwnership(table, "alice", "stranger"))

	req.Equal(before, table.Snapshot())
	req.Equal("alice", table.Owner())
}

func TestEngine_TransferOwnership(t *testing.T) {
	req := require.New(t)
	engine := NewEngine()
	table := newTable(engine, "alice", "bob")

	req.True(engine.TransferOwnership(table, "alice", "bob"))

	roles := table.Snapshot()
	req.Equal(domain.RoleEditor, roles["alice"])
	req.Equal(domain.RoleOwner, roles["bob"])
	req.Equal(1, countOwners(roles))
	req.Equal("bob", table.Owner())

	// The previous owner lost the management capability
	req.ErrorIs(engine.SetRole(table, "alice", "bob", domain.RoleViewer), errors.ErrUnauthorized)
}

func TestEngine_Concurrent_Transfers_Keep_One_Owner(t *testing.T) {
	req := require.New(t)
	engine := NewEngine()
	users := []string{"alice", "bob", "carol", "dave", "erin"}
	table := newTable(engine, users[0], users[1:]...)

	var writers, readers sync.WaitGroup
	stop := make(chan struct{})
	violations := make(chan int, 64)

	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if n := countOwners(table.Snapshot()); n != 1 {
					violations <- n
					return
				}
			}
		}()
	}

	for i, from := range users {
		writers.Add(1)
		go func(from, to string) {
			defer writers.Done()
			for j := 0; j < 200; j++ {
				engine.TransferOwnership(table, from, to)
			}
		}(from, users[(i+1)%len(users)])
	}
	writers.Wait()
	close(stop)
	readers.Wait()
	close(violations)

	for n := range violations {
		req.Failf("owner invariant broken", "observed %d owners", n)
	}
	req.Equal(1, countOwners(table.Snapshot()))
	owner := table.Owner()
	role, _ := table.Role(owner)
	req.Equal(domain.RoleOwner, role)
}
