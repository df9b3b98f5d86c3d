package authn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agora-civic/agora/internal/authz"
)

func TestNormalizeRoleLabelAcceptedSpellings(t *testing.T) {
	cases := map[string]authz.Role{
		"USER":        authz.RoleUser,
		"user":        authz.RoleUser,
		"User":        authz.RoleUser,
		"MODERATOR":   authz.RoleModerator,
		"moderator":   authz.RoleModerator,
		"Moderator":   authz.RoleModerator,
		"MOD":         authz.RoleModerator,
		"ADMIN":       authz.RoleAdmin,
		"admin":       authz.RoleAdmin,
		"Admin":       authz.RoleAdmin,
		"SUPER_ADMIN": authz.RoleSuperAdmin,
		"super_admin": authz.RoleSuperAdmin,
		"SuperAdmin":  authz.RoleSuperAdmin,
		"SUPERADMIN":  authz.RoleSuperAdmin,
		"superadmin":  authz.RoleSuperAdmin,
	}
	for label, want := range cases {
		role, ok := NormalizeRoleLabel(label)
		assert.True(t, ok, "label %q should be recognized", label)
		assert.Equal(t, want, role, "label %q", label)
	}
}

func TestNormalizeRoleLabelFailsClosed(t *testing.T) {
	for _, label := range []string{"wizard", "", "ADMIN ", " admin", "aDmIn", "MODERATOR\n", "Super_Admin", "mod", "Mod"} {
		role, ok := NormalizeRoleLabel(label)
		assert.False(t, ok, "label %q must not be recognized", label)
		assert.Equal(t, authz.RoleUser, role, "unknown label %q must demote to USER", label)
	}
}

func TestNormalizeRoleLabelIdempotentOnCanonicalNames(t *testing.T) {
	// Normalizing a canonical label and re-normalizing its String() form
	// must land on the same role.
	for _, role := range authz.Roles() {
		got, ok := NormalizeRoleLabel(role.String())
		assert.True(t, ok)
		assert.Equal(t, role, got)
	}
}
