package httpapi

import (
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type bookRequest struct {
	TeacherID   string `json:"teacherId" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
	StartTime   string `json:"startTime" validate:"required,clock"`
	EndTime     string `json:"endTime" validate:"required,clock"`
	LessonType  string `json:"lessonType" validate:"required,oneof=conversation grammar business exam_prep pronunciation"`
	LessonLevel string `json:"lessonLevel" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Reservations.Book(r.Context(), actor(r), usecase.BookInput{
		TeacherID:   req.TeacherID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		LessonType:  domain.LessonType(req.LessonType),
		LessonLevel: domain.CEFRLevel(req.LessonLevel),
		Notes:       req.Notes,
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	upcoming := queryBool(r, "upcoming")
	items, total, err := h.svc.Reservations.ListMine(r.Context(), actor(r), usecase.ListReservationsInput{
		Page:     p,
		Limit:    l,
		Status:   domain.ReservationStatus(r.URL.Query().Get("status")),
		Upcoming: upcoming != nil && *upcoming,
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reservations.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) reservationResult(w http.ResponseWriter, r *http.Request, res *domain.Reservation, err error) {
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) confirmReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reservations.Confirm(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.reservationResult(w, r, res, err)
}

func (h *Handler) completeReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reservations.Complete(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.reservationResult(w, r, res, err)
}

func (h *Handler) noShowReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reservations.MarkNoShow(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.reservationResult(w, r, res, err)
}

// cancelReservation takes an optional {"reason"} body.
func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := h.validate.decodeOptional(r, &req); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	res, err := h.svc.Reservations.Cancel(r.Context(), actor(r), chi.URLParam(r, "id"), req.Reason)
	h.reservationResult(w, r, res, err)
}

func (h *Handler) accessStatus(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Sessions.AccessStatus(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Sessions.Join(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
