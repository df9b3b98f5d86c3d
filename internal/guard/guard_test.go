package guard

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
)

func testGuard(t *testing.T) (*Guard, *authn.TokenCodec) {
	t.Helper()
	codec := authn.NewTokenCodec("guard-test-secret", "agora_token", time.Hour, false)
	return New(codec, nil, nil, nil), codec
}

func signedRequest(t *testing.T, codec *authn.TokenCodec, target string, claims *authn.Claims) *http.Request {
	t.Helper()
	signed, err := codec.Sign(claims)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: codec.CookieName(), Value: signed})
	return req
}

func claimsFor(role authz.Role, legacy bool) *authn.Claims {
	return &authn.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "id-test"},
		RoleName:         role.String(),
		Permissions:      authz.Default().Effective(role),
		LegacyModerator:  legacy,
	}
}

func TestRequireAuthRedirectsAnonymousToLogin(t *testing.T) {
	g, _ := testGuard(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/petitions?page=2", nil)

	reached := false
	if _, ok := g.RequireAuth(rr, req); ok {
		reached = true
	}

	assert.False(t, reached, "handler body must not run")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, LoginPath, loc.Path)
	assert.Equal(t, "/petitions?page=2", loc.Query().Get("next"))
}

func TestRequireAuthAnswersAPIWithProblemJSON(t *testing.T) {
	g, _ := testGuard(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/petitions", nil)

	_, ok := g.RequireAuth(rr, req)

	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
}

func TestRequireAuthRejectsTamperedCookie(t *testing.T) {
	g, codec := testGuard(t)
	req := signedRequest(t, codec, "/petitions", claimsFor(authz.RoleAdmin, false))
	// Corrupt the cookie value.
	req.Header.Set("Cookie", "agora_token=not-a-token")
	rr := httptest.NewRecorder()

	_, ok := g.RequireAuth(rr, req)

	assert.False(t, ok)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestRequirePermissionDeniesMissingGrant(t *testing.T) {
	g, codec := testGuard(t)
	req := signedRequest(t, codec, "/console/settings", claimsFor(authz.RoleModerator, false))
	rr := httptest.NewRecorder()

	_, ok := g.RequirePermission(rr, req, authz.PermManageSystemSettings)

	assert.False(t, ok)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, UnauthorizedPath, rr.Header().Get("Location"))
}

func TestRequirePermissionPassesWithGrant(t *testing.T) {
	g, codec := testGuard(t)
	req := signedRequest(t, codec, "/console/queue", claimsFor(authz.RoleModerator, false))
	rr := httptest.NewRecorder()

	claims, ok := g.RequirePermission(rr, req, authz.PermModerateAnnouncement)

	require.True(t, ok)
	assert.Equal(t, "MODERATOR", claims.RoleName)
}

func TestRequireAnyPermissionEmptyListDenies(t *testing.T) {
	g, codec := testGuard(t)
	req := signedRequest(t, codec, "/x", claimsFor(authz.RoleSuperAdmin, false))
	rr := httptest.NewRecorder()

	_, ok := g.RequireAnyPermission(rr, req)

	assert.False(t, ok, "empty any-of list must deny even the highest tier")
}

func TestRequireAllPermissionsEmptyListPasses(t *testing.T) {
	g, codec := testGuard(t)
	req := signedRequest(t, codec, "/x", claimsFor(authz.RoleUser, false))
	rr := httptest.NewRecorder()

	_, ok := g.RequireAllPermissions(rr, req)

	assert.True(t, ok)
}

func TestRequireRoleChecksAllowList(t *testing.T) {
	g, codec := testGuard(t)

	rr := httptest.NewRecorder()
	req := signedRequest(t, codec, "/x", claimsFor(authz.RoleAdmin, false))
	_, ok := g.RequireRole(rr, req, authz.RoleAdmin, authz.RoleSuperAdmin)
	assert.True(t, ok)

	rr = httptest.NewRecorder()
	req = signedRequest(t, codec, "/x", claimsFor(authz.RoleModerator, false))
	_, ok = g.RequireRole(rr, req, authz.RoleAdmin, authz.RoleSuperAdmin)
	assert.False(t, ok)
	assert.Equal(t, UnauthorizedPath, rr.Header().Get("Location"))
}

func TestRequireConsoleWidensForLegacyModerator(t *testing.T) {
	g, codec := testGuard(t)

	req := signedRequest(t, codec, "/console", claimsFor(authz.RoleUser, true))
	rr := httptest.NewRecorder()
	claims, ok := g.RequireConsole(rr, req)
	require.True(t, ok, "legacy flag grants console entry")
	assert.False(t, claims.HasPermission(authz.PermManageUsers), "entry widening never adds permissions")

	req = signedRequest(t, codec, "/console", claimsFor(authz.RoleUser, false))
	rr = httptest.NewRecorder()
	_, ok = g.RequireConsole(rr, req)
	assert.False(t, ok)
}

func TestRequireAuthPrefersContextClaims(t *testing.T) {
	g, _ := testGuard(t)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(authn.ContextWithClaims(req.Context(), claimsFor(authz.RoleUser, false)))
	rr := httptest.NewRecorder()

	claims, ok := g.RequireAuth(rr, req)

	require.True(t, ok)
	assert.Equal(t, "id-test", claims.Subject)
}
