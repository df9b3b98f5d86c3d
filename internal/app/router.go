package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/console"
	"github.com/agora-civic/agora/internal/guard"
	"github.com/agora-civic/agora/internal/observability"
	"github.com/agora-civic/agora/internal/portal"
	"github.com/agora-civic/agora/internal/shared"
	"github.com/agora-civic/agora/internal/view"
	"github.com/agora-civic/agora/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          *guard.Guard
	AuthHandler    *authn.Handler
	PortalHandler  *portal.Handler
	ConsoleHandler *console.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// PortalRegistry declares the permissions each portal route needs. Routes not
// listed fall back to baseline authenticated access.
func PortalRegistry() *guard.Registry {
	return guard.NewRegistry(
		[]authz.Permission{authz.PermViewContent},
		guard.Entry{Pattern: "/events/new", Permissions: []authz.Permission{authz.PermCreateEvent}},
		guard.Entry{Pattern: "/events/{id}/attend", Permissions: []authz.Permission{authz.PermAttendEvent}},
		guard.Entry{Pattern: "/petitions/new", Permissions: []authz.Permission{authz.PermCreatePetition}},
		guard.Entry{Pattern: "/petitions/{id}/sign", Permissions: []authz.Permission{authz.PermSignPetition}},
		guard.Entry{Pattern: "/polls/{id}/vote", Permissions: []authz.Permission{authz.PermVotePoll}},
		guard.Entry{Pattern: "/groups/{id}/join", Permissions: []authz.Permission{authz.PermJoinGroup}},
		guard.Entry{Pattern: "/issues/new", Permissions: []authz.Permission{authz.PermReportIssue}},
		guard.Entry{Pattern: "/transport", Permissions: []authz.Permission{authz.PermViewTransport}},
	)
}

// ConsoleRegistry declares the permissions each console route needs. Routes
// not listed require console entry, which the edge middleware may widen for
// legacy moderators.
func ConsoleRegistry() *guard.Registry {
	moderate := []authz.Permission{
		authz.PermModerateAnnouncement,
		authz.PermModerateEvent,
		authz.PermModeratePetition,
		authz.PermModerateComment,
	}
	return guard.NewRegistry(
		[]authz.Permission{authz.PermViewConsole},
		guard.Entry{Pattern: "/console/queue", Permissions: moderate},
		guard.Entry{Pattern: "/console/queue/{id}/approve", Permissions: []authz.Permission{authz.PermModerateAnnouncement}},
		guard.Entry{Pattern: "/console/queue/{id}/reject", Permissions: []authz.Permission{authz.PermModerateAnnouncement}},
		guard.Entry{Pattern: "/console/users", Permissions: []authz.Permission{authz.PermManageUsers}},
		guard.Entry{Pattern: "/console/users/{id}/role", Permissions: []authz.Permission{authz.PermManageUsers}},
		guard.Entry{Pattern: "/console/users/{id}/suspend", Permissions: []authz.Permission{authz.PermManageUsers}},
		guard.Entry{Pattern: "/console/audit", Permissions: []authz.Permission{authz.PermViewAuditLog}},
		guard.Entry{Pattern: "/console/settings", Permissions: []authz.Permission{authz.PermManageSystemSettings}},
	)
}

// NewRouter constructs the chi.Router with Agora defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	g := params.Guard

	// Public surface: login pages, the landing/dashboard split and the
	// terminal unauthorized page. Claims attach without enforcement so
	// templates can show signed-in state.
	r.Group(func(r chi.Router) {
		r.Use(g.Attach)
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Get("/", params.PortalHandler.Dashboard)
		r.Get(guard.UnauthorizedPath, params.PortalHandler.Unauthorized)
	})

	// Citizen portal: edge enforcement from the route registry, handlers
	// re-check with their own guards.
	r.Group(func(r chi.Router) {
		r.Use(g.Edge(guard.EdgeOptions{Registry: PortalRegistry()}))
		params.PortalHandler.MountRoutes(r)
	})

	// Moderation console: stricter registry plus the legacy-flag widening
	// for bare entry.
	r.Route("/console", func(r chi.Router) {
		r.Use(g.Edge(guard.EdgeOptions{Registry: ConsoleRegistry(), ConsoleWidening: true}))
		params.ConsoleHandler.MountRoutes(r)
	})

	return r
}
