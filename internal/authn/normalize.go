package authn

import "github.com/agora-civic/agora/internal/authz"

// roleLabels lists every accepted identity-provider spelling explicitly.
// Providers have shipped several casings over the years; each one is listed
// rather than case-folded so an unintended variant is never silently
// accepted as an elevated role.
var roleLabels = map[string]authz.Role{
	"USER": authz.RoleUser,
	"user": authz.RoleUser,
	"User": authz.RoleUser,

	"MODERATOR": authz.RoleModerator,
	"moderator": authz.RoleModerator,
	"Moderator": authz.RoleModerator,
	"MOD":       authz.RoleModerator,

	"ADMIN": authz.RoleAdmin,
	"admin": authz.RoleAdmin,
	"Admin": authz.RoleAdmin,

	"SUPER_ADMIN": authz.RoleSuperAdmin,
	"super_admin": authz.RoleSuperAdmin,
	"SuperAdmin":  authz.RoleSuperAdmin,
	"SUPERADMIN":  authz.RoleSuperAdmin,
	"superadmin":  authz.RoleSuperAdmin,
}

// NormalizeRoleLabel maps a raw provider label to the canonical role. An
// unrecognized label fails closed to RoleUser with ok=false; callers log the
// anomaly and record it for operational follow-up, but login proceeds: a
// low-privilege session beats a blocked login.
func NormalizeRoleLabel(raw string) (role authz.Role, ok bool) {
	role, ok = roleLabels[raw]
	if !ok {
		return authz.RoleUser, false
	}
	return role, true
}
