package perf

import (
	"testing"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/guard"
)

// The guard sits on every request, so decisions must stay allocation-light.
// These benchmarks watch the hot pieces: registry lookup, permission checks
// on the claims snapshot, and the role predicates.

func benchRegistry() *guard.Registry {
	return guard.NewRegistry(
		[]authz.Permission{authz.PermViewConsole},
		guard.Entry{Pattern: "/console/queue", Permissions: []authz.Permission{authz.PermModerateAnnouncement}},
		guard.Entry{Pattern: "/console/queue/{id}/approve", Permissions: []authz.Permission{authz.PermModerateAnnouncement}},
		guard.Entry{Pattern: "/console/users", Permissions: []authz.Permission{authz.PermManageUsers}},
		guard.Entry{Pattern: "/console/users/{id}/role", Permissions: []authz.Permission{authz.PermManageUsers}},
		guard.Entry{Pattern: "/console/audit", Permissions: []authz.Permission{authz.PermViewAuditLog}},
		guard.Entry{Pattern: "/console/settings", Permissions: []authz.Permission{authz.PermManageSystemSettings}},
	)
}

func BenchmarkRegistryExactMatch(b *testing.B) {
	registry := benchRegistry()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		registry.ResolveRequiredPermissions("/console/users")
	}
}

func BenchmarkRegistryPatternMatch(b *testing.B) {
	registry := benchRegistry()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		registry.ResolveRequiredPermissions("/console/users/7c9e6679/role")
	}
}

func BenchmarkRegistryDefaultFallback(b *testing.B) {
	registry := benchRegistry()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		registry.ResolveRequiredPermissions("/console/some/unlisted/page")
	}
}

func BenchmarkClaimsPermissionCheck(b *testing.B) {
	claims := &authn.Claims{
		RoleName:    authz.RoleSuperAdmin.String(),
		Permissions: authz.Default().Effective(authz.RoleSuperAdmin),
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		claims.HasPermission(authz.PermManageAdmins)
	}
}

func BenchmarkEffectiveSnapshot(b *testing.B) {
	table := authz.Default()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		table.Effective(authz.RoleAdmin)
	}
}

func BenchmarkRolePredicates(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		authz.CanActOnIdentity(authz.RoleAdmin, authz.RoleModerator)
		authz.CanElevateRoleTo(authz.RoleAdmin, authz.RoleModerator)
		authz.IsRoleAtLeast(authz.RoleModerator, authz.RoleUser)
	}
}
