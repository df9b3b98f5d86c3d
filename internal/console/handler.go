// Package console serves the moderator/admin pages. Entry honors the legacy
// moderator widening; every individual action is gated on a real permission,
// and identity-mutating operations additionally pass through
// authz.CanActOnIdentity / authz.CanElevateRoleTo without exception.
package console

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agora-civic/agora/internal/audit"
	"github.com/agora-civic/agora/internal/authn"
	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/guard"
	"github.com/agora-civic/agora/internal/platform/httpx"
	"github.com/agora-civic/agora/internal/shared"
	"github.com/agora-civic/agora/internal/view"
)

// Handler wires the console routes.
type Handler struct {
	logger      *slog.Logger
	backend     *backend.Client
	guard       *guard.Guard
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	recorder    *audit.Recorder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, client *backend.Client, g *guard.Guard, templates *view.Engine, csrf *shared.CSRFManager, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		backend:     client,
		guard:       g,
		templates:   templates,
		csrfManager: csrf,
		recorder:    recorder,
	}
}

// MountRoutes registers console routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/queue", h.moderationQueue)
	r.Post("/queue/{id}/approve", h.approveAnnouncement)
	r.Post("/queue/{id}/reject", h.rejectAnnouncement)
	r.Get("/users", h.listUsers)
	r.Post("/users/{id}/role", h.changeUserRole)
	r.Post("/users/{id}/suspend", h.suspendUser)
	r.Get("/audit", h.auditLog)
	r.Get("/settings", h.settingsForm)
	r.Post("/settings", h.updateSettings)
}

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
		h.logger.Error("render console page", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, httpx.ErrForbidden):
		http.Redirect(w, r, guard.UnauthorizedPath, http.StatusSeeOther)
	default:
		h.logger.Error("console backend request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
	}
}

func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, kind, message, target string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// home is reachable with console entry alone; this is the one surface the
// legacy moderator flag opens. A legacy-flag USER sees the shell but holds
// no moderation permissions, so every link beyond this page stays shut.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard.RequireConsole(w, r); !ok {
		return
	}
	h.render(w, r, "pages/console_home.html", "Console", nil)
}

type queueData struct {
	Items []backend.Announcement
}

func (h *Handler) moderationQueue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequireAnyPermission(w, r,
		authz.PermModerateAnnouncement, authz.PermModeratePetition, authz.PermModerateEvent)
	if !ok {
		return
	}
	page, err := h.backend.ListPendingAnnouncements(r.Context(), claims.BackendToken, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/console_queue.html", "Moderation queue", queueData{Items: page.Items})
}

func (h *Handler) approveAnnouncement(w http.ResponseWriter, r *http.Request) {
	h.moderateAnnouncement(w, r, backend.ModerationDecision{Approve: true})
}

func (h *Handler) rejectAnnouncement(w http.ResponseWriter, r *http.Request) {
	h.moderateAnnouncement(w, r, backend.ModerationDecision{Approve: false, Reason: r.PostFormValue("reason")})
}

func (h *Handler) moderateAnnouncement(w http.ResponseWriter, r *http.Request, decision backend.ModerationDecision) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermModerateAnnouncement)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.backend.ModerateAnnouncement(r.Context(), claims.BackendToken, id, decision); err != nil {
		h.fail(w, r, err)
		return
	}
	verdict := "rejected"
	if decision.Approve {
		verdict = "approved"
	}
	h.flashAndRedirect(w, r, "success", "Announcement "+verdict, "/console/queue")
}

type userRow struct {
	backend.User
	CanManage       bool
	AssignableRoles []string
}

type usersData struct {
	Items []userRow
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermManageUsers)
	if !ok {
		return
	}
	page, err := h.backend.ListUsers(r.Context(), claims.BackendToken, shared.PageFromQuery(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	actorRole := claims.Role()
	rows := make([]userRow, 0, len(page.Items))
	for _, user := range page.Items {
		targetRole, recognized := roleOf(user)
		row := userRow{User: user, CanManage: recognized && authz.CanActOnIdentity(actorRole, targetRole)}
		if row.CanManage {
			for _, candidate := range authz.Roles() {
				if candidate != targetRole && authz.CanElevateRoleTo(actorRole, candidate) {
					row.AssignableRoles = append(row.AssignableRoles, candidate.String())
				}
			}
		}
		rows = append(rows, row)
	}
	h.render(w, r, "pages/console_users.html", "Users", usersData{Items: rows})
}

func (h *Handler) changeUserRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermManageUsers)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	newRole, known := authz.RoleFromName(r.PostFormValue("role"))
	if !known {
		h.flashAndRedirect(w, r, "error", "Unknown role", "/console/users")
		return
	}

	target, err := h.backend.GetUser(r.Context(), claims.BackendToken, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	actorRole := claims.Role()
	targetRole, recognized := roleOf(*target)
	// Both predicates, always: the actor must be able to manage the target
	// as they are now, and be allowed to grant the requested tier.
	if !recognized || !authz.CanActOnIdentity(actorRole, targetRole) || !authz.CanElevateRoleTo(actorRole, newRole) {
		http.Redirect(w, r, guard.UnauthorizedPath, http.StatusSeeOther)
		return
	}

	if err := h.backend.SetUserRole(r.Context(), claims.BackendToken, id, newRole.String()); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.recorder.Record(r.Context(), audit.Entry{
		ActorID: claims.Subject,
		Action:  audit.ActionRoleChange,
		Subject: id,
		Meta:    map[string]any{"from": target.Role, "to": newRole.String()},
	}); err != nil {
		h.logger.Warn("record role change", slog.Any("error", err))
	}
	h.flashAndRedirect(w, r, "success", "Role updated", "/console/users")
}

func (h *Handler) suspendUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermManageUsers)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	target, err := h.backend.GetUser(r.Context(), claims.BackendToken, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	targetRole, recognized := roleOf(*target)
	if !recognized || !authz.CanActOnIdentity(claims.Role(), targetRole) {
		http.Redirect(w, r, guard.UnauthorizedPath, http.StatusSeeOther)
		return
	}
	if err := h.backend.SetUserSuspended(r.Context(), claims.BackendToken, id, !target.Suspended); err != nil {
		h.fail(w, r, err)
		return
	}
	h.flashAndRedirect(w, r, "success", "User updated", "/console/users")
}

type auditData struct {
	Entries []audit.Entry
}

func (h *Handler) auditLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard.RequirePermission(w, r, authz.PermViewAuditLog); !ok {
		return
	}
	entries, err := h.recorder.ListRecent(r.Context(), 100)
	if err != nil {
		h.logger.Error("list audit log", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/console_audit.html", "Audit log", auditData{Entries: entries})
}

type settingsData struct {
	Settings backend.Settings
}

func (h *Handler) settingsForm(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermManageSystemSettings)
	if !ok {
		return
	}
	settings, err := h.backend.GetSettings(r.Context(), claims.BackendToken)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/console_settings.html", "Settings", settingsData{Settings: *settings})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermManageSystemSettings)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	settings := backend.Settings{
		MaintenanceMode:    r.PostFormValue("maintenance_mode") == "on",
		PetitionsEnabled:   r.PostFormValue("petitions_enabled") == "on",
		PollsEnabled:       r.PostFormValue("polls_enabled") == "on",
		SupportContact:     r.PostFormValue("support_contact"),
		AnnouncementBanner: r.PostFormValue("announcement_banner"),
	}
	if err := h.backend.UpdateSettings(r.Context(), claims.BackendToken, settings); err != nil {
		h.fail(w, r, err)
		return
	}
	h.flashAndRedirect(w, r, "success", "Settings saved", "/console/settings")
}

// roleOf normalizes the backend's role string to the canonical enum using
// the same explicit table logins use. An unrecognized label must deny, not
// demote: treating an unknown target as USER would let an admin act on an
// identity whose real tier could be anything.
func roleOf(user backend.User) (authz.Role, bool) {
	return authn.NormalizeRoleLabel(user.Role)
}
