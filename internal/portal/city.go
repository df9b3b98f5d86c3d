package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/shared"
)

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListGroups(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/groups.html", "Groups", newListData(page, pageNum))
}

func (h *Handler) joinGroup(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermJoinGroup)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.backend.JoinGroup(r.Context(), claims.BackendToken, id); err != nil {
		h.failAction(w, r, err, "/groups")
		return
	}
	h.flashAndBack(w, r, "success", "Joined the group", "/groups")
}

func (h *Handler) listIssues(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListIssues(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/issues.html", "City issues", newListData(page, pageNum))
}

type issueForm struct {
	Title    string `validate:"required,min=3,max=200"`
	Category string `validate:"required"`
	Body     string `validate:"required"`
}

type issueFormData struct {
	Form   issueForm
	Errors map[string]string
}

func (h *Handler) newIssueForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard.RequirePermission(w, r, authz.PermReportIssue); !ok {
		return
	}
	h.render(w, r, "pages/issue_new.html", "Report an issue", issueFormData{})
}

func (h *Handler) reportIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermReportIssue)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := issueForm{
		Title:    r.PostFormValue("title"),
		Category: r.PostFormValue("category"),
		Body:     r.PostFormValue("body"),
	}
	if formErrors := validateForm(h.validator, form); len(formErrors) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "pages/issue_new.html", "Report an issue", issueFormData{Form: form, Errors: formErrors})
		return
	}
	if _, err := h.backend.ReportIssue(r.Context(), claims.BackendToken, backend.IssueInput{
		Title:    form.Title,
		Category: form.Category,
		Body:     form.Body,
	}); err != nil {
		h.fail(w, r, err)
		return
	}
	h.flashAndBack(w, r, "success", "Issue reported", "/issues")
}

func (h *Handler) listTransport(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewTransport)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListTransportRoutes(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/transport.html", "Transport routes", newListData(page, pageNum))
}
