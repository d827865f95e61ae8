package domain

// Role is the per-session standing of a user. Exactly one user holds RoleOwner.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	// RoleNone is never held. A role change to RoleNone removes the user from the session.
	RoleNone Role = "none"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Visibility decides who may join a session. A private session only admits
// users the owner has granted a role.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Capabilities are derived from a role and the session lock on every check.
// They are never stored.
type Capabilities struct {
	CanEdit    bool `json:"can_edit"`
	CanExecute bool `json:"can_execute"`
	CanManage  bool `json:"can_manage"`
}
