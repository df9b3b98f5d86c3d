package authz

// HasPermission reports whether the role's effective set contains the
// permission.
func (t *Table) HasPermission(role Role, perm Permission) bool {
	set, ok := t.effective[role]
	if !ok {
		return false
	}
	_, granted := set[perm]
	return granted
}

// HasAnyPermission reports whether at least one of the permissions is
// granted. An empty list is never satisfied.
func (t *Table) HasAnyPermission(role Role, perms []Permission) bool {
	for _, p := range perms {
		if t.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission is granted. An empty
// list is vacuously satisfied.
func (t *Table) HasAllPermissions(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !t.HasPermission(role, p) {
			return false
		}
	}
	return true
}

// IsRoleAtLeast reports whether role is at least as senior as required in
// the tier ordering.
func IsRoleAtLeast(role, required Role) bool {
	return role >= required
}

// IsRoleAllowed reports whether role appears in the allow list.
func IsRoleAllowed(role Role, allowed []Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// CanActOnIdentity reports whether actor may perform identity-mutating
// operations (deactivate, edit, change role) on a target with targetRole.
// This relation is deliberately narrower than IsRoleAtLeast: admins rank
// equal to other admins but must not manage them, which closes the peer
// self-elevation path. Call sites mutating an identity must consult this
// predicate, not the tier ordering.
func CanActOnIdentity(actor, target Role) bool {
	switch actor {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return target == RoleUser || target == RoleModerator
	default:
		return false
	}
}

// CanElevateRoleTo reports whether actor may elevate an identity to the
// target role. Admins can promote to moderator only; creating a peer admin
// requires a super admin.
func CanElevateRoleTo(actor, target Role) bool {
	switch actor {
	case RoleSuperAdmin:
		return target.Valid()
	case RoleAdmin:
		return target == RoleModerator
	default:
		return false
	}
}
