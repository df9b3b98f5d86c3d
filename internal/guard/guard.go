// Package guard enforces authentication and authorization at the top of
// page handlers and, via the edge middleware, before requests reach any
// handler at all. Guards terminate the request themselves on failure (they
// redirect browsers to the login or unauthorized page and answer API paths
// with problem JSON), so handler code only runs with verified claims in
// hand. Expected failures never escape as errors, and unexpected
// verification faults fail closed to "unauthenticated".
package guard

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/agora-civic/agora/internal/audit"
	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/observability"
	"github.com/agora-civic/agora/internal/platform/httpx"
)

// LoginPath is where unauthenticated requests are sent; the originally
// requested path rides along in the next parameter.
const LoginPath = "/auth/login"

// UnauthorizedPath is the terminal page for authenticated requests that
// fail an authorization check.
const UnauthorizedPath = "/unauthorized"

// Guard evaluates authorization requirements for a request.
type Guard struct {
	codec    *authn.TokenCodec
	logger   *slog.Logger
	recorder *audit.Recorder
	metrics  *observability.Metrics
}

// New constructs a Guard.
func New(codec *authn.TokenCodec, logger *slog.Logger, recorder *audit.Recorder, metrics *observability.Metrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{codec: codec, logger: logger, recorder: recorder, metrics: metrics}
}

// authenticate returns verified claims for the request. Claims placed in
// context by the edge middleware are preferred; otherwise the cookie is
// verified directly, so a page guarded here stays guarded even if it is
// mounted outside the middleware (defense in depth).
func (g *Guard) authenticate(r *http.Request) (*authn.Claims, error) {
	if claims := authn.ClaimsFromContext(r.Context()); claims != nil {
		return claims, nil
	}
	return g.codec.FromRequest(r)
}

// RequireAuth asserts an authenticated session. On failure it redirects to
// the login page with the requested path as callback and returns ok=false;
// the caller must return immediately.
func (g *Guard) RequireAuth(w http.ResponseWriter, r *http.Request) (*authn.Claims, bool) {
	claims, err := g.authenticate(r)
	if err == nil {
		return claims, true
	}
	if !errors.Is(err, authn.ErrNoToken) && !errors.Is(err, authn.ErrInvalidToken) {
		// Unexpected verification fault; fail closed, never allow through.
		g.logger.Error("session verification fault", slog.Any("error", err))
		g.toLogin(w, r, true)
		return nil, false
	}
	g.toLogin(w, r, false)
	return nil, false
}

// RequireRole asserts the session role appears in the allow list.
func (g *Guard) RequireRole(w http.ResponseWriter, r *http.Request, roles ...authz.Role) (*authn.Claims, bool) {
	claims, ok := g.RequireAuth(w, r)
	if !ok {
		return nil, false
	}
	if !authz.IsRoleAllowed(claims.Role(), roles) {
		g.deny(w, r, claims, "role not allowed")
		return nil, false
	}
	return claims, true
}

// RequirePermission asserts a single permission against the session's
// snapshot.
func (g *Guard) RequirePermission(w http.ResponseWriter, r *http.Request, perm authz.Permission) (*authn.Claims, bool) {
	claims, ok := g.RequireAuth(w, r)
	if !ok {
		return nil, false
	}
	if !claims.HasPermission(perm) {
		g.deny(w, r, claims, string(perm))
		return nil, false
	}
	return claims, true
}

// RequireAnyPermission asserts at least one of the permissions. An empty
// list always denies.
func (g *Guard) RequireAnyPermission(w http.ResponseWriter, r *http.Request, perms ...authz.Permission) (*authn.Claims, bool) {
	claims, ok := g.RequireAuth(w, r)
	if !ok {
		return nil, false
	}
	if !claims.HasAnyPermission(perms...) {
		g.deny(w, r, claims, "any-of check failed")
		return nil, false
	}
	return claims, true
}

// RequireAllPermissions asserts every permission. An empty list passes.
func (g *Guard) RequireAllPermissions(w http.ResponseWriter, r *http.Request, perms ...authz.Permission) (*authn.Claims, bool) {
	claims, ok := g.RequireAuth(w, r)
	if !ok {
		return nil, false
	}
	if !claims.HasAllPermissions(perms...) {
		g.deny(w, r, claims, "all-of check failed")
		return nil, false
	}
	return claims, true
}

// RequireConsole asserts moderation-console entry. The legacy moderator
// flag widens entry here; individual console actions still require their
// real permissions.
func (g *Guard) RequireConsole(w http.ResponseWriter, r *http.Request) (*authn.Claims, bool) {
	claims, ok := g.RequireAuth(w, r)
	if !ok {
		return nil, false
	}
	if !claims.ConsoleAccess() {
		g.deny(w, r, claims, "console access")
		return nil, false
	}
	return claims, true
}

func (g *Guard) toLogin(w http.ResponseWriter, r *http.Request, fault bool) {
	if g.metrics != nil {
		g.metrics.GuardDenial("unauthenticated")
	}
	if isAPIPath(r.URL.Path) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	if fault {
		target += "&err=auth"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, claims *authn.Claims, requirement string) {
	if g.metrics != nil {
		g.metrics.GuardDenial("forbidden")
	}
	g.logger.Warn("authorization denied",
		slog.String("identity", claims.Subject),
		slog.String("role", claims.RoleName),
		slog.String("path", r.URL.Path),
		slog.String("requirement", requirement))
	if err := g.recorder.Record(r.Context(), audit.Entry{
		ActorID: claims.Subject,
		Action:  audit.ActionGuardDenied,
		Subject: r.URL.Path,
		Meta:    map[string]any{"requirement": requirement, "role": claims.RoleName},
	}); err != nil {
		g.logger.Warn("record guard denial", slog.Any("error", err))
	}
	if isAPIPath(r.URL.Path) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
		return
	}
	http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
