package httpapi

import (
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/go-chi/chi/v5"
)

type profileRequest struct {
	Name         *string  `json:"name" validate:"omitempty,notblank,max=100"`
	Bio          *string  `json:"bio" validate:"omitempty,max=2000"`
	Specialties  []string `json:"specialties" validate:"omitempty,max=20,dive,notblank,max=50"`
	HourlyRate   *int64   `json:"hourlyRate" validate:"omitempty,min=0"`
	EnglishLevel *string  `json:"englishLevel" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	AvatarURL    *string  `json:"avatarUrl" validate:"omitempty,url"`
}

type activeRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=student teacher admin"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.Me(r.Context(), actor(r))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := domain.ProfileUpdate{
		Name:        req.Name,
		Bio:         req.Bio,
		Specialties: req.Specialties,
		HourlyRate:  req.HourlyRate,
		AvatarURL:   req.AvatarURL,
	}
	if req.EnglishLevel != nil {
		lvl := domain.CEFRLevel(*req.EnglishLevel)
		upd.EnglishLevel = &lvl
	}
	u, err := h.svc.Users.UpdateProfile(r.Context(), actor(r), upd)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) listTeachers(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	q := r.URL.Query()
	items, total, err := h.svc.Users.ListTeachers(r.Context(), domain.UserFilter{
		Page:      p,
		Limit:     l,
		Specialty: q.Get("specialty"),
		Level:     domain.CEFRLevel(q.Get("level")),
		Query:     q.Get("q"),
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) getTeacher(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.GetTeacher(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	q := r.URL.Query()
	filter := domain.UserFilter{
		Page:       p,
		Limit:      l,
		IsActive:   queryBool(r, "active"),
		IsApproved: queryBool(r, "approved"),
		Query:      q.Get("q"),
	}
	if role := domain.Role(q.Get("role")); role != "" {
		filter.Role = &role
	}
	items, total, err := h.svc.Users.ListUsers(r.Context(), filter)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) adminApproveTeacher(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Users.ApproveTeacher(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) adminSetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.Users.SetActive(r.Context(), actor(r), chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) adminChangeRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	u, err := h.svc.Users.ChangeRole(r.Context(), actor(r), chi.URLParam(r, "id"), domain.Role(req.Role))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
