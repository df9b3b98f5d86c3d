package authn

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agora-civic/agora/internal/audit"
	"github.com/agora-civic/agora/internal/identity"
	"github.com/agora-civic/agora/internal/observability"
	"github.com/agora-civic/agora/internal/shared"
	"github.com/agora-civic/agora/internal/view"
)

// Handler wires HTTP endpoints for the login/logout/refresh flows.
type Handler struct {
	logger         *slog.Logger
	provider       identity.Provider
	mapper         *Mapper
	codec          *TokenCodec
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	templates      *view.Engine
	recorder       *audit.Recorder
	metrics        *observability.Metrics
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, provider identity.Provider, mapper *Mapper, codec *TokenCodec, sessions *shared.SessionManager, csrf *shared.CSRFManager, templates *view.Engine, recorder *audit.Recorder, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		provider:       provider,
		mapper:         mapper,
		codec:          codec,
		sessionManager: sessions,
		csrfManager:    csrf,
		templates:      templates,
		recorder:       recorder,
		metrics:        metrics,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/refresh", h.handleRefresh)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
	Next   string
}

// SanitizeNext restricts a post-login callback target to local paths so the
// login flow can never be used as an open redirect.
func SanitizeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	data := loginPageData{Next: SanitizeNext(r.URL.Query().Get("next"))}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	next := SanitizeNext(r.PostFormValue("next"))

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldErr := range fieldErrors {
				formErrors[fieldErr.Field()] = fieldErr.Error()
			}
		}
	}

	if len(formErrors) == 0 {
		ident, err := h.provider.Exchange(r.Context(), form.Email, form.Password)
		switch {
		case errors.Is(err, shared.ErrInvalidCredentials):
			h.metrics.Login("failure")
			formErrors["general"] = "Invalid email or password"
		case err != nil:
			// Provider fault is indistinguishable from bad credentials to
			// the user; never leak upstream detail.
			h.logger.Error("identity exchange failed", slog.Any("error", err))
			formErrors["general"] = "Sign in is temporarily unavailable"
		default:
			claims := h.mapper.Issue(r.Context(), ident)
			signed, err := h.codec.Sign(claims)
			if err != nil {
				h.logger.Error("sign claims", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			h.codec.Write(w, signed)
			if sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})
			}
			if err := h.recorder.Record(r.Context(), audit.Entry{
				ActorID: ident.ID,
				Action:  audit.ActionLogin,
				Subject: ident.Email,
				Meta:    map[string]any{"role": claims.RoleName, "remote": r.RemoteAddr},
			}); err != nil {
				h.logger.Warn("record login", slog.Any("error", err))
			}
			h.metrics.Login("success")
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
	}

	data := loginPageData{Form: loginForm{Email: form.Email}, Errors: formErrors, Next: next}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(http.StatusBadRequest)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login invalid", slog.Any("error", err))
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		if err := h.recorder.Record(r.Context(), audit.Entry{
			ActorID: claims.Subject,
			Action:  audit.ActionLogout,
			Subject: claims.Email,
		}); err != nil {
			h.logger.Warn("record logout", slog.Any("error", err))
		}
	}
	h.codec.Clear(w)
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRefresh re-derives the permission snapshot for the current session
// from the live table. It picks up grant changes for the session's role;
// role changes made upstream still require a full re-login, because only the
// identity provider can attest the new role.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, err := h.codec.FromRequest(r)
	if err != nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	fresh := h.mapper.Issue(r.Context(), &identity.Identity{
		ID:                  claims.Subject,
		Email:               claims.Email,
		RawRoleLabel:        claims.RoleName,
		LegacyModeratorFlag: claims.LegacyModerator,
		BackendToken:        claims.BackendToken,
	})
	signed, err := h.codec.Sign(fresh)
	if err != nil {
		h.logger.Error("sign refreshed claims", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.codec.Write(w, signed)
	http.Redirect(w, r, SanitizeNext(r.PostFormValue("next")), http.StatusSeeOther)
}
