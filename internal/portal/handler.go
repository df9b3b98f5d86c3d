// Package portal serves the citizen-facing pages. Handlers are thin glue:
// guard check, backend call, render. Template capability helpers only hide
// controls; the guard call at the top of each handler is the enforcement
// point on this side of the trust boundary, and the backend re-checks every
// operation regardless.
package portal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/guard"
	"github.com/agora-civic/agora/internal/platform/httpx"
	"github.com/agora-civic/agora/internal/shared"
	"github.com/agora-civic/agora/internal/view"
)

// Handler wires the citizen-facing routes.
type Handler struct {
	logger      *slog.Logger
	backend     *backend.Client
	guard       *guard.Guard
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	validator   *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, client *backend.Client, g *guard.Guard, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		backend:     client,
		guard:       g,
		templates:   templates,
		csrfManager: csrf,
		validator:   validator.New(),
	}
}

// MountRoutes registers the authenticated portal routes. The dashboard is
// mounted separately because it doubles as the anonymous landing page.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/announcements", h.listAnnouncements)
	r.Get("/announcements/{id}", h.showAnnouncement)

	r.Get("/events", h.listEvents)
	r.Get("/events/new", h.newEventForm)
	r.Post("/events/new", h.createEvent)
	r.Get("/events/{id}", h.showEvent)
	r.Post("/events/{id}/attend", h.attendEvent)

	r.Get("/petitions", h.listPetitions)
	r.Get("/petitions/new", h.newPetitionForm)
	r.Post("/petitions/new", h.createPetition)
	r.Get("/petitions/{id}", h.showPetition)
	r.Post("/petitions/{id}/sign", h.signPetition)

	r.Get("/polls", h.listPolls)
	r.Get("/polls/{id}", h.showPoll)
	r.Post("/polls/{id}/vote", h.votePoll)

	r.Get("/groups", h.listGroups)
	r.Post("/groups/{id}/join", h.joinGroup)

	r.Get("/issues", h.listIssues)
	r.Get("/issues/new", h.newIssueForm)
	r.Post("/issues/new", h.reportIssue)

	r.Get("/transport", h.listTransport)
}

// render wraps template execution with the shared page chrome.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Caps:        authn.ClaimsFromContext(r.Context()).Capabilities(),
		Data:        data,
	}
	if err := h.templates.Render(w, name, viewData); err != nil {
		h.logger.Error("render page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail maps backend errors to user-facing responses for GET pages.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, httpx.ErrUnauthorized):
		http.Redirect(w, r, guard.LoginRedirectTarget(r), http.StatusSeeOther)
	default:
		h.logger.Error("backend request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

// failAction maps backend errors on a state-changing action to a flash plus
// redirect, keeping the user on the page they acted from.
func (h *Handler) failAction(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, httpx.ErrDuplicate):
		h.flashAndBack(w, r, "info", "Already done", fallback)
	case errors.Is(err, httpx.ErrValidation):
		h.flashAndBack(w, r, "error", "The request was not accepted", fallback)
	case errors.Is(err, httpx.ErrForbidden):
		http.Redirect(w, r, guard.UnauthorizedPath, http.StatusSeeOther)
	default:
		h.fail(w, r, err)
	}
}

// flashAndBack records a flash message and returns to the referring page.
func (h *Handler) flashAndBack(w http.ResponseWriter, r *http.Request, kind, message, fallback string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	target := r.Referer()
	if target == "" {
		target = fallback
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type dashboardData struct {
	Announcements []backend.Announcement
	Events        []backend.Event
	Petitions     []backend.Petition
}

// Dashboard aggregates the three headline feeds in parallel. Anonymous
// visitors get the landing page instead.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if authn.ClaimsFromContext(r.Context()) == nil {
		h.render(w, r, "pages/landing.html", "Welcome", nil)
		return
	}
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}

	var data dashboardData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.backend.ListAnnouncements(ctx, claims.BackendToken, 1)
		if err == nil {
			data.Announcements = page.Items
		}
		return err
	})
	g.Go(func() error {
		page, err := h.backend.ListEvents(ctx, claims.BackendToken, 1)
		if err == nil {
			data.Events = page.Items
		}
		return err
	})
	g.Go(func() error {
		page, err := h.backend.ListPetitions(ctx, claims.BackendToken, 1)
		if err == nil {
			data.Petitions = page.Items
		}
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/dashboard.html", "Dashboard", data)
}

// Unauthorized renders the terminal unauthorized page.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusForbidden)
	h.render(w, r, "pages/unauthorized.html", "Not allowed", nil)
}
