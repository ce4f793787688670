package httpapi

import (
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type settingsRequest struct {
	MaxTeachers int `json:"maxTeachers" validate:"min=0"`
	MaxStudents int `json:"maxStudents" validate:"min=0"`
}

type createOrganizationRequest struct {
	Name     string          `json:"name" validate:"required,notblank,max=120"`
	Type     string          `json:"type" validate:"required,oneof=school company individual"`
	Settings settingsRequest `json:"settings"`
}

type updateOrganizationRequest struct {
	Name     *string          `json:"name" validate:"omitempty,notblank,max=120"`
	Type     *string          `json:"type" validate:"omitempty,oneof=school company individual"`
	Settings *settingsRequest `json:"settings"`
}

type memberRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=admin teacher student"`
}

func (s settingsRequest) toDomain() domain.OrganizationSettings {
	return domain.OrganizationSettings{MaxTeachers: s.MaxTeachers, MaxStudents: s.MaxStudents}
}

func (h *Handler) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if !h.decode(w, r, &req) {
		return
	}
	org, err := h.svc.Organizations.Create(r.Context(), actor(r), usecase.CreateOrganizationInput{
		Name:     req.Name,
		Type:     domain.OrganizationType(req.Type),
		Settings: req.Settings.toDomain(),
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	items, total, err := h.svc.Organizations.List(r.Context(), actor(r), p, l)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) organizationResult(w http.ResponseWriter, r *http.Request, org *domain.Organization, err error) {
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *Handler) getOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.svc.Organizations.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	h.organizationResult(w, r, org, err)
}

func (h *Handler) updateOrganization(w http.ResponseWriter, r *http.Request) {
	var req updateOrganizationRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := domain.OrganizationUpdate{Name: req.Name}
	if req.Type != nil {
		t := domain.OrganizationType(*req.Type)
		upd.Type = &t
	}
	if req.Settings != nil {
		s := req.Settings.toDomain()
		upd.Settings = &s
	}
	org, err := h.svc.Organizations.Update(r.Context(), actor(r), chi.URLParam(r, "id"), upd)
	h.organizationResult(w, r, org, err)
}

func (h *Handler) deactivateOrganization(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Organizations.Deactivate(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	org, err := h.svc.Organizations.AddMember(r.Context(), actor(r), chi.URLParam(r, "id"), req.UserID, domain.MemberRole(req.Role))
	h.organizationResult(w, r, org, err)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	org, err := h.svc.Organizations.RemoveMember(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	h.organizationResult(w, r, org, err)
}
