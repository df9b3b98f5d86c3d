package portal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/shared"
)

type listData[T any] struct {
	Items      []T
	Pagination shared.Pagination
	PrevPage   int
	NextPage   int
}

func newListData[T any](page *backend.Page[T], requested int) listData[T] {
	p := shared.NewPagination(page.Page, page.PerPage, page.Total)
	if p.Page == 0 {
		p.Page = requested
	}
	return listData[T]{
		Items:      page.Items,
		Pagination: p,
		PrevPage:   p.Page - 1,
		NextPage:   p.Page + 1,
	}
}

type detailData[T any] struct {
	Item T
}

func (h *Handler) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListAnnouncements(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/announcements.html", "Announcements", newListData(page, pageNum))
}

func (h *Handler) showAnnouncement(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	item, err := h.backend.GetAnnouncement(r.Context(), claims.BackendToken, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/announcement_detail.html", item.Title, detailData[backend.Announcement]{Item: *item})
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListEvents(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/events.html", "Events", newListData(page, pageNum))
}

func (h *Handler) showEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	item, err := h.backend.GetEvent(r.Context(), claims.BackendToken, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/event_detail.html", item.Title, detailData[backend.Event]{Item: *item})
}

type eventForm struct {
	Title    string `validate:"required,min=3,max=200"`
	Body     string `validate:"required"`
	Location string `validate:"required"`
	StartsAt string `validate:"required"`
}

type eventFormData struct {
	Form   eventForm
	Errors map[string]string
}

func (h *Handler) newEventForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard.RequirePermission(w, r, authz.PermCreateEvent); !ok {
		return
	}
	h.render(w, r, "pages/event_new.html", "Propose an event", eventFormData{})
}

func (h *Handler) createEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermCreateEvent)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := eventForm{
		Title:    r.PostFormValue("title"),
		Body:     r.PostFormValue("body"),
		Location: r.PostFormValue("location"),
		StartsAt: r.PostFormValue("starts_at"),
	}
	formErrors := validateForm(h.validator, form)
	startsAt, err := time.Parse("2006-01-02T15:04", form.StartsAt)
	if err != nil && form.StartsAt != "" {
		formErrors["StartsAt"] = "invalid date"
	}
	if len(formErrors) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "pages/event_new.html", "Propose an event", eventFormData{Form: form, Errors: formErrors})
		return
	}
	created, err := h.backend.CreateEvent(r.Context(), claims.BackendToken, backend.EventInput{
		Title:    form.Title,
		Body:     form.Body,
		Location: form.Location,
		StartsAt: startsAt,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.flashAndBack(w, r, "success", "Event submitted", "/events/"+created.ID)
}

func (h *Handler) attendEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermAttendEvent)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.backend.AttendEvent(r.Context(), claims.BackendToken, id); err != nil {
		h.failAction(w, r, err, "/events/"+id)
		return
	}
	h.flashAndBack(w, r, "success", "See you there", "/events/"+id)
}

// validateForm flattens validator errors to a field→message map.
func validateForm(v *validator.Validate, form any) map[string]string {
	formErrors := make(map[string]string)
	if err := v.Struct(form); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldErr := range fieldErrors {
				formErrors[fieldErr.Field()] = fieldErr.Error()
			}
		}
	}
	return formErrors
}
