package httpapi

import (
	"net/http"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type windowRequest struct {
	DayOfWeek *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

type weeklyRequest struct {
	Windows []windowRequest `json:"windows" validate:"max=50,dive"`
}

func (h *Handler) myAvailability(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Availability.List(r.Context(), actor(r).UserID)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"windows": items})
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req weeklyRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := make([]usecase.WindowInput, len(req.Windows))
	for i, win := range req.Windows {
		in[i] = usecase.WindowInput{DayOfWeek: *win.DayOfWeek, StartTime: win.StartTime, EndTime: win.EndTime}
	}
	items, err := h.svc.Availability.SetWeekly(r.Context(), actor(r), in)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"windows": items})
}

func (h *Handler) teacherAvailability(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Availability.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"windows": items})
}

// teacherSlots accepts from, to (YYYY-MM-DD) and duration in minutes.
func (h *Handler) teacherSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := usecase.SlotsInput{
		TeacherID: chi.URLParam(r, "id"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	}
	if q.Has("duration") {
		minutes := queryInt(r, "duration", 0)
		if minutes <= 0 {
			h.rs.fail(w, r, errBadRequest("duration must be a positive number of minutes"))
			return
		}
		in.Duration = time.Duration(minutes) * time.Minute
	}
	slots, err := h.svc.Availability.Slots(r.Context(), in)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}
