package authn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/identity"
)

func TestMapperIssuesModeratorSnapshot(t *testing.T) {
	mapper := NewMapper(nil, nil, nil, nil)

	claims := mapper.Issue(context.Background(), &identity.Identity{
		ID:           "id-7",
		Email:        "mod@example.org",
		RawRoleLabel: "Moderator",
		BackendToken: "tok",
	})

	require.NotNil(t, claims)
	assert.Equal(t, "MODERATOR", claims.RoleName)
	assert.True(t, claims.HasPermission(authz.PermModerateAnnouncement))
	assert.True(t, claims.HasPermission(authz.PermViewContent), "lower-tier permissions are cumulative")
	assert.False(t, claims.HasPermission(authz.PermManageSystemSettings))
	assert.False(t, claims.HasPermission(authz.PermManageUsers))
	assert.True(t, claims.ConsoleAccess())
}

func TestMapperDemotesUnknownLabel(t *testing.T) {
	mapper := NewMapper(nil, nil, nil, nil)

	claims := mapper.Issue(context.Background(), &identity.Identity{
		ID:           "id-8",
		Email:        "odd@example.org",
		RawRoleLabel: "wizard",
	})

	assert.Equal(t, "USER", claims.RoleName)
	assert.True(t, claims.HasPermission(authz.PermViewContent))
	assert.False(t, claims.HasPermission(authz.PermViewConsole))
	assert.False(t, claims.ConsoleAccess())
}

func TestMapperLegacyFlagWidensEntryOnly(t *testing.T) {
	mapper := NewMapper(nil, nil, nil, nil)

	claims := mapper.Issue(context.Background(), &identity.Identity{
		ID:                  "id-9",
		Email:               "legacy@example.org",
		RawRoleLabel:        "user",
		LegacyModeratorFlag: true,
	})

	assert.Equal(t, "USER", claims.RoleName)
	assert.True(t, claims.ConsoleAccess(), "legacy flag opens the console door")
	assert.False(t, claims.HasPermission(authz.PermViewConsole), "but never widens the snapshot")
	assert.False(t, claims.HasPermission(authz.PermManageUsers))
	assert.False(t, claims.HasPermission(authz.PermModerateAnnouncement))
}

func TestMapperSuperAdminSnapshot(t *testing.T) {
	mapper := NewMapper(nil, nil, nil, nil)

	claims := mapper.Issue(context.Background(), &identity.Identity{
		ID:           "id-10",
		RawRoleLabel: "SUPER_ADMIN",
	})

	assert.Equal(t, "SUPER_ADMIN", claims.RoleName)
	assert.True(t, claims.HasAllPermissions(
		authz.PermViewContent,
		authz.PermModerateAnnouncement,
		authz.PermManageUsers,
		authz.PermManageSystemSettings,
		authz.PermManageAdmins,
	))
}

func TestMapperCopiesPermissions(t *testing.T) {
	mapper := NewMapper(nil, nil, nil, nil)
	a := mapper.Issue(context.Background(), &identity.Identity{ID: "a", RawRoleLabel: "USER"})
	b := mapper.Issue(context.Background(), &identity.Identity{ID: "b", RawRoleLabel: "USER"})

	require.NotEmpty(t, a.Permissions)
	a.Permissions[0] = authz.Permission("mutated")
	assert.NotContains(t, b.Permissions, authz.Permission("mutated"), "snapshots must not share backing storage")
}

func TestClaimsCapabilitiesAdapter(t *testing.T) {
	mapper := NewMapper(nil, nil, nil, nil)
	claims := mapper.Issue(context.Background(), &identity.Identity{
		ID:           "acct-9",
		Email:        "mod@example.org",
		RawRoleLabel: "MODERATOR",
	})
	require.NotNil(t, claims)

	caps := claims.Capabilities()
	assert.True(t, caps.SignedIn())
	assert.Equal(t, "mod@example.org", caps.Email())
	assert.True(t, caps.Can(authz.PermModerateAnnouncement))
	assert.True(t, caps.Console())

	var missing *Claims
	assert.False(t, missing.Capabilities().SignedIn())
}
