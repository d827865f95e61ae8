// Package permission derives what a participant may do from their role and
// the session lock, and owns the only transitions of a session role table.
package permission

import (
	"codeshare/domain"
	"codeshare/errors"
	"fmt"
)

// Engine is stateless: capabilities are recomputed on every check.
type Engine struct{}

func NewEngine() Engine {
	return Engine{}
}

// Derive computes capabilities from a role and the lock flag.
func Derive(role domain.Role, locked bool) domain.Capabilities {
	writer := role == domain.RoleOwner || role == domain.RoleEditor
	return domain.Capabilities{
		CanEdit:    writer && !locked,
		CanExecute: writer,
		CanManage:  role == domain.RoleOwner,
	}
}

// Capabilities of a user unknown to the table are all false.
func (Engine) Capabilities(table *RoleTable, userID string, locked bool) domain.Capabilities {
	role, ok := table.Role(userID)
	if !ok {
		return domain.Capabilities{}
	}
	return Derive(role, locked)
}

// Authorize checks whether userID may submit an intent of the given kind.
func (e Engine) Authorize(table *RoleTable, userID string, locked bool, kind domain.IntentKind) error {
	role, ok := table.Role(userID)
	if !ok {
		return fmt.Errorf("%w: %s has no role in this session", errors.ErrUnauthorized, userID)
	}
	caps := Derive(role, locked)

	var allowed bool
	switch kind {
	case domain.IntentEdit, domain.IntentLanguageChange:
		allowed = caps.CanEdit
	case domain.IntentLockToggle, domain.IntentRoleChange:
		allowed = caps.CanManage
	case domain.IntentExecuteRequest:
		allowed = caps.CanExecute
	case domain.IntentCursorMove, domain.IntentChat:
		allowed = true
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownIntent, kind)
	}
	if !allowed {
		return fmt.Errorf("%w: %s as %s cannot %s", errors.ErrUnauthorized, userID, role, kind)
	}
	return nil
}

// Admit returns the role userID holds in the session, assigning one on first
// sight: owner when the table has no owner yet, viewer otherwise. A private
// session refuses users the owner has not granted a role.
func (Engine) Admit(table *RoleTable, userID string) (domain.Role, error) {
	table.mu.Lock()
	defer table.mu.Unlock()
	if role, ok := table.roles[userID]; ok {
		return role, nil
	}
	role := domain.RoleViewer
	switch {
	case table.owner == "":
		role = domain.RoleOwner
		table.owner = userID
	case table.visibility == domain.VisibilityPrivate:
		return "", fmt.Errorf("%w: %s is not a collaborator of this private session", errors.ErrUnauthorized, userID)
	}
	table.roles[userID] = role
	return role, nil
}

// SetRole assigns editor or viewer to targetID. Only the owner may call it,
// ownership moves only through TransferOwnership and the owner cannot be demoted.
func (Engine) SetRole(table *RoleTable, callerID, targetID string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", errors.ErrInvalidPayload, role)
	}

	table.mu.Lock()
	defer table.mu.Unlock()
	if table.roles[callerID] != domain.RoleOwner {
		return fmt.Errorf("%w: only the owner can change roles", errors.ErrUnauthorized)
	}
	if role == domain.RoleOwner {
		return fmt.Errorf("%w: owner is assigned by ownership transfer", errors.ErrInvariantViolation)
	}
	if targetID == table.owner {
		return fmt.Errorf("%w: the owner cannot be demoted", errors.ErrInvariantViolation)
	}
	table.roles[targetID] = role
	return nil
}

// Revoke removes targetID from the table. Only the owner may call it and the
// owner cannot be removed. A revoked user of a private session can no longer join.
func (Engine) Revoke(table *RoleTable, callerID, targetID string) error {
	table.mu.Lock()
	defer table.mu.Unlock()
	if table.roles[callerID] != domain.RoleOwner {
		return fmt.Errorf("%w: only the owner can remove collaborators", errors.ErrUnauthorized)
	}
	if targetID == table.owner {
		return fmt.Errorf("%w: the owner cannot be removed", errors.ErrInvariantViolation)
	}
	if _, ok := table.roles[targetID]; !ok {
		return fmt.Errorf("%w: %s has no role in this session", errors.ErrUnknownParticipant, targetID)
	}
	delete(table.roles, targetID)
	return nil
}

// TransferOwnership makes toUserID the owner and fromUserID an editor. It
// returns false and leaves the table untouched unless fromUserID is the owner
// and toUserID already has a role in the session.
func (Engine) TransferOwnership(table *RoleTable, fromUserID, toUserID string) bool {
	table.mu.Lock()
	defer table.mu.Unlock()
	if toUserID == "" || fromUserID == toUserID || table.roles[fromUserID] != domain.RoleOwner {
		return false
	}
	if _, member := table.roles[toUserID]; !member {
		return false
	}
	table.roles[fromUserID] = domain.RoleEditor
	table.roles[toUserID] = domain.RoleOwner
	table.owner = toUserID
	return true
}
