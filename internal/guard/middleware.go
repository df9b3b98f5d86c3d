package guard

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/platform/httpx"
)

// Identity headers forwarded to downstream handlers and the backend proxy
// once the edge check passes.
const (
	HeaderUser = "X-Agora-User"
	HeaderRole = "X-Agora-Role"
)

// EdgeOptions configures an edge enforcement middleware.
type EdgeOptions struct {
	// Registry supplies per-path permission requirements.
	Registry *Registry
	// ConsoleWidening lets the legacy moderator flag satisfy a bare
	// console-entry requirement. Entry only: requirements beyond
	// PermViewConsole are always checked against the real snapshot.
	ConsoleWidening bool
}

// Edge returns middleware that authenticates the claims cookie and checks
// the route's registered permissions before any handler runs. Handlers
// still call their own guard; this is the independent outer enforcement
// point, not a replacement for it.
func (g *Guard) Edge(opts EdgeOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.codec.FromRequest(r)
			if err != nil {
				g.toLogin(w, r, false)
				return
			}

			required := opts.Registry.ResolveRequiredPermissions(r.URL.Path)
			if !satisfies(claims, required, opts.ConsoleWidening) {
				g.deny(w, r, claims, "edge: "+r.URL.Path)
				return
			}

			r.Header.Set(HeaderUser, claims.Subject)
			r.Header.Set(HeaderRole, claims.RoleName)
			ctx := authn.ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func satisfies(claims *authn.Claims, required []authz.Permission, consoleWidening bool) bool {
	if len(required) == 0 {
		// An empty requirement list means "authenticated is enough";
		// unauthenticated requests never reach this point.
		return true
	}
	for _, perm := range required {
		if claims.HasPermission(perm) {
			return true
		}
		if consoleWidening && perm == authz.PermViewConsole && claims.ConsoleAccess() {
			return true
		}
	}
	return false
}

// RequireAny is the middleware form of RequireAnyPermission for mounting on
// whole route groups.
func (g *Guard) RequireAny(perms ...authz.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := g.RequireAnyPermission(w, r, perms...)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(authn.ContextWithClaims(r.Context(), claims)))
		})
	}
}

// Attach verifies the claims cookie when present and stores the claims in
// context without enforcing anything. Public pages use it so templates can
// render signed-in state.
func (g *Guard) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.codec.FromRequest(r)
		if err == nil {
			r = r.WithContext(authn.ContextWithClaims(r.Context(), claims))
		} else if !errors.Is(err, authn.ErrNoToken) && !errors.Is(err, authn.ErrInvalidToken) {
			g.logger.Warn("attach claims", slog.Any("error", err))
		}
		next.ServeHTTP(w, r)
	})
}

// Unauthorized renders the terminal unauthorized response for direct mounts
// of UnauthorizedPath on API surfaces.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
}

// LoginRedirectTarget builds the login URL carrying the original request
// path. Exposed for tests and for handlers that trigger re-authentication
// explicitly.
func LoginRedirectTarget(r *http.Request) string {
	return LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
}
