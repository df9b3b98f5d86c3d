package portal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agora-civic/agora/internal/authz"
	"github.com/agora-civic/agora/internal/backend"
	"github.com/agora-civic/agora/internal/shared"
)

func (h *Handler) listPetitions(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListPetitions(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/petitions.html", "Petitions", newListData(page, pageNum))
}

func (h *Handler) showPetition(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	item, err := h.backend.GetPetition(r.Context(), claims.BackendToken, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/petition_detail.html", item.Title, detailData[backend.Petition]{Item: *item})
}

type petitionForm struct {
	Title    string `validate:"required,min=3,max=200"`
	Body     string `validate:"required"`
	Deadline string `validate:"required"`
}

type petitionFormData struct {
	Form   petitionForm
	Errors map[string]string
}

func (h *Handler) newPetitionForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.guard.RequirePermission(w, r, authz.PermCreatePetition); !ok {
		return
	}
	h.render(w, r, "pages/petition_new.html", "Start a petition", petitionFormData{})
}

func (h *Handler) createPetition(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermCreatePetition)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := petitionForm{
		Title:    r.PostFormValue("title"),
		Body:     r.PostFormValue("body"),
		Deadline: r.PostFormValue("deadline"),
	}
	formErrors := validateForm(h.validator, form)
	deadline, err := time.Parse("2006-01-02", form.Deadline)
	if err != nil && form.Deadline != "" {
		formErrors["Deadline"] = "invalid date"
	}
	if len(formErrors) > 0 {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "pages/petition_new.html", "Start a petition", petitionFormData{Form: form, Errors: formErrors})
		return
	}
	created, err := h.backend.CreatePetition(r.Context(), claims.BackendToken, backend.PetitionInput{
		Title:    form.Title,
		Body:     form.Body,
		Deadline: deadline,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.flashAndBack(w, r, "success", "Petition submitted for review", "/petitions/"+created.ID)
}

func (h *Handler) signPetition(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermSignPetition)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.backend.SignPetition(r.Context(), claims.BackendToken, id); err != nil {
		h.failAction(w, r, err, "/petitions/"+id)
		return
	}
	h.flashAndBack(w, r, "success", "Signature added", "/petitions/"+id)
}

func (h *Handler) listPolls(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	pageNum := shared.PageFromQuery(r.URL.Query())
	page, err := h.backend.ListPolls(r.Context(), claims.BackendToken, pageNum)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/polls.html", "Polls", newListData(page, pageNum))
}

func (h *Handler) showPoll(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermViewContent)
	if !ok {
		return
	}
	item, err := h.backend.GetPoll(r.Context(), claims.BackendToken, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, "pages/poll_detail.html", item.Question, detailData[backend.Poll]{Item: *item})
}

func (h *Handler) votePoll(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.guard.RequirePermission(w, r, authz.PermVotePoll)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	optionID := r.PostFormValue("option_id")
	if optionID == "" {
		h.flashAndBack(w, r, "error", "Pick an option first", "/polls/"+id)
		return
	}
	if err := h.backend.VotePoll(r.Context(), claims.BackendToken, id, optionID); err != nil {
		h.failAction(w, r, err, "/polls/"+id)
		return
	}
	h.flashAndBack(w, r, "success", "Vote recorded", "/polls/"+id)
}
