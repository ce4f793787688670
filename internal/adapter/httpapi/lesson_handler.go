package httpapi

import (
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/go-chi/chi/v5"
)

type notesRequest struct {
	Notes string `json:"notes" validate:"max=5000"`
}

type ratingRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

func (h *Handler) listLessons(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	items, total, err := h.svc.Lessons.ListMine(r.Context(), actor(r), domain.LessonStatus(r.URL.Query().Get("status")), p, l)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) getLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.svc.Lessons.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (h *Handler) lessonNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if !h.decode(w, r, &req) {
		return
	}
	lesson, err := h.svc.Lessons.AddNotes(r.Context(), actor(r), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

func (h *Handler) rateLesson(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if !h.decode(w, r, &req) {
		return
	}
	lesson, err := h.svc.Lessons.Rate(r.Context(), actor(r), chi.URLParam(r, "id"), req.Rating, req.Feedback)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}
