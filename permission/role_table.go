package permission

import (
	"codeshare/domain"
	"maps"
	"sync"
)

// RoleTable maps user ids to roles for one session. Only the Engine mutates
// it; every mutation happens under the write lock, so a reader never sees a
// table with zero or two owners once an owner exists.
type RoleTable struct {
	mu         sync.RWMutex
	roles      map[string]domain.Role
	owner      string
	visibility domain.Visibility
}

// NewRoleTable builds the table of a session. Anything but private is public.
func NewRoleTable(visibility domain.Visibility) *RoleTable {
	if visibility != domain.VisibilityPrivate {
		visibility = domain.VisibilityPublic
	}
	return &RoleTable{roles: make(map[string]domain.Role), visibility: visibility}
}

func (t *RoleTable) Visibility() domain.Visibility {
	return t.visibility
}

func (t *RoleTable) Role(userID string) (domain.Role, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	role, ok := t.roles[userID]
	return role, ok
}

func (t *RoleTable) Owner() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.owner
}

// Snapshot returns a consistent copy of the table.
func (t *RoleTable) Snapshot() map[string]domain.Role {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.roles)
}
