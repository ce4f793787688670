package httpapi

import (
	"net/http"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,notblank,max=50"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"dive,notblank"`
}

type updateRoleRequest struct {
	Name        *string  `json:"name" validate:"omitempty,notblank,max=50"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,notblank"`
	IsActive    *bool    `json:"isActive"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	all := queryBool(r, "includeInactive")
	roles, err := h.svc.Roles.List(r.Context(), all != nil && *all)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"roles": roles})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.svc.Roles.Create(r.Context(), actor(r), usecase.CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if !h.decode(w, r, &req) {
		return
	}
	role, err := h.svc.Roles.Update(r.Context(), actor(r), chi.URLParam(r, "id"), usecase.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Roles.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTimeParam(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errBadRequest(key + " must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func (h *Handler) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	q := r.URL.Query()
	filter := domain.AuditFilter{
		Page:       p,
		Limit:      l,
		ActorID:    q.Get("actorId"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		Action:     q.Get("action"),
	}
	var err error
	if filter.From, err = parseTimeParam(r, "from"); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	if filter.To, err = parseTimeParam(r, "to"); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	items, total, err := h.svc.Audit.List(r.Context(), filter)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}
