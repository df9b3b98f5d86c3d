// Package authz holds the role hierarchy, the permission vocabulary and the
// pure predicates every enforcement point in Agora is built on. Nothing in
// this package performs I/O; the table is constructed once and never mutated.
package authz

// Role is one of the four ordered authorization tiers. The integer order is
// significant: it defines seniority for IsRoleAtLeast.
type Role int

const (
	RoleUser Role = iota
	RoleModerator
	RoleAdmin
	RoleSuperAdmin
)

// roleNames are the canonical labels persisted in claims and audit records.
var roleNames = map[Role]string{
	RoleUser:       "USER",
	RoleModerator:  "MODERATOR",
	RoleAdmin:      "ADMIN",
	RoleSuperAdmin: "SUPER_ADMIN",
}

// String returns the canonical label for the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "USER"
}

// Valid reports whether r is one of the four known tiers.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// RoleFromName maps a canonical label back to its Role. Only the exact
// canonical spellings are accepted here; identity-provider label variants are
// handled by the authn mapper, not by this function.
func RoleFromName(name string) (Role, bool) {
	for role, n := range roleNames {
		if n == name {
			return role, true
		}
	}
	return RoleUser, false
}

// Roles lists all tiers in ascending seniority order.
func Roles() []Role {
	return []Role{RoleUser, RoleModerator, RoleAdmin, RoleSuperAdmin}
}
