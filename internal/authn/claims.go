// Package authn derives, signs and reads Agora session claims. Claims are a
// snapshot taken at login: the role label is normalized once, the permission
// set is copied out of the authz table once, and neither updates until the
// identity re-authenticates or refreshes.
package authn

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/capability"
)

// Claims are the authorization-relevant facts attached to a session. They
// ride in a signed HTTP-only cookie; the backend token is opaque to this
// package and is forwarded verbatim on backend calls.
type Claims struct {
	jwt.RegisteredClaims
	Email           string             `json:"email"`
	RoleName        string             `json:"role"`
	Permissions     []authz.Permission `json:"perms"`
	LegacyModerator bool               `json:"legacy_moderator,omitempty"`
	BackendToken    string             `json:"backend_token,omitempty"`
}

// Role returns the canonical role, failing closed to the lowest tier when
// the stored name is not canonical.
func (c *Claims) Role() authz.Role {
	role, ok := authz.RoleFromName(c.RoleName)
	if !ok {
		return authz.RoleUser
	}
	return role
}

// IdentityID returns the authenticated identity's id.
func (c *Claims) IdentityID() string {
	return c.Subject
}

// HasPermission tests the snapshot, not the live table. A stale snapshot is
// the documented trade-off; refresh re-derives it.
func (c *Claims) HasPermission(perm authz.Permission) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the snapshot holds at least one of the
// permissions. Empty input is never satisfied.
func (c *Claims) HasAnyPermission(perms ...authz.Permission) bool {
	for _, p := range perms {
		if c.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the snapshot holds every permission.
// Empty input is vacuously satisfied.
func (c *Claims) HasAllPermissions(perms ...authz.Permission) bool {
	for _, p := range perms {
		if !c.HasPermission(p) {
			return false
		}
	}
	return true
}

// ConsoleAccess reports whether this session may enter the moderation
// console. The legacy moderator flag deliberately widens access for accounts
// from the pre-role scheme even when their role is USER; the flag widens
// console entry only, never the permission snapshot.
func (c *Claims) ConsoleAccess() bool {
	return authz.IsRoleAtLeast(c.Role(), authz.RoleModerator) || c.LegacyModerator
}

// Capabilities builds the advisory template snapshot. Nil claims yield the
// zero value, which answers false to everything.
func (c *Claims) Capabilities() capability.Capabilities {
	if c == nil {
		return capability.Capabilities{}
	}
	return capability.New(capability.Snapshot{
		Email:         c.Email,
		Role:          c.Role(),
		Permissions:   c.Permissions,
		ConsoleAccess: c.ConsoleAccess(),
	})
}

// Identity is the read-only view handlers and templates consume.
type Identity struct {
	ID          string
	Email       string
	Role        authz.Role
	Permissions []authz.Permission
}

type claimsContextKey struct{}

// ContextWithClaims stores verified claims in context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts verified claims, or nil when the request is
// unauthenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}

// CurrentIdentity returns the authenticated identity view, or nil.
func CurrentIdentity(ctx context.Context) *Identity {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return nil
	}
	return &Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role(),
		Permissions: claims.Permissions,
	}
}
