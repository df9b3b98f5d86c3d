// Package capability exposes the session's cached permission snapshot to
// templates and UI helpers.
//
// ADVISORY ONLY. Nothing in this package is a security boundary: the
// snapshot can be stale and the rendered page is under the user's control.
// Capabilities decide what to show, never what to allow. Every
// state-changing operation must be re-checked by the guard layer and is
// independently re-validated by the backend. Do not add enforcement here.
package capability

import (
	"github.com/agora-civic/agora/internal/authz"
)

// Snapshot carries the session facts the helpers read. The session layer
// builds one from its verified claims; templates never see the claims
// themselves.
type Snapshot struct {
	Email         string
	Role          authz.Role
	Permissions   []authz.Permission
	ConsoleAccess bool
}

// Capabilities answers what the current session's UI may show. The zero
// value (no session) answers false to everything.
type Capabilities struct {
	signedIn bool
	snap     Snapshot
}

// New builds Capabilities for a signed-in session.
func New(snap Snapshot) Capabilities {
	return Capabilities{signedIn: true, snap: snap}
}

// SignedIn reports whether a session is present.
func (c Capabilities) SignedIn() bool {
	return c.signedIn
}

// Can reports whether the snapshot holds the permission.
func (c Capabilities) Can(perm authz.Permission) bool {
	for _, p := range c.snap.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// CanAny reports whether the snapshot holds at least one permission.
func (c Capabilities) CanAny(perms ...authz.Permission) bool {
	for _, p := range perms {
		if c.Can(p) {
			return true
		}
	}
	return false
}

// CanAll reports whether the snapshot holds every permission.
func (c Capabilities) CanAll(perms ...authz.Permission) bool {
	if !c.signedIn {
		return false
	}
	for _, p := range perms {
		if !c.Can(p) {
			return false
		}
	}
	return true
}

// IsAtLeast reports whether the session role reaches the given tier.
func (c Capabilities) IsAtLeast(role authz.Role) bool {
	return c.signedIn && authz.IsRoleAtLeast(c.snap.Role, role)
}

// Console reports whether the console navigation entry should render,
// honoring the legacy moderator widening.
func (c Capabilities) Console() bool {
	return c.signedIn && c.snap.ConsoleAccess
}

// Email returns the signed-in address for display, or "".
func (c Capabilities) Email() string {
	if !c.signedIn {
		return ""
	}
	return c.snap.Email
}
