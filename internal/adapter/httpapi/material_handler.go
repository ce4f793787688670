package httpapi

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/go-chi/chi/v5"
)

const (
	multipartMemory    = 8 << 20
	multipartOverhead  = 1 << 20
	materialFileField  = "file"
	defaultContentType = "application/octet-stream"
)

type materialUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Level       *string  `json:"level" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	IsPublic    *bool    `json:"isPublic"`
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// uploadMaterial reads a multipart form: file, title, description, level,
// tags (comma separated) and isPublic.
func (h *Handler) uploadMaterial(w http.ResponseWriter, r *http.Request) {
	limit := h.svc.Materials.MaxUploadSize()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.rs.fail(w, r, fmt.Errorf("%w: file exceeds the %d MB limit", domain.ErrInvalidInput, limit>>20))
			return
		}
		h.rs.fail(w, r, errBadRequest("invalid multipart form"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(materialFileField)
	if err != nil {
		h.rs.fail(w, r, fmt.Errorf("%w: file is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	} else {
		contentType = defaultContentType
	}
	isPublic, _ := strconv.ParseBool(r.FormValue("isPublic"))

	m, err := h.svc.Materials.Upload(r.Context(), actor(r), usecase.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Level:       domain.CEFRLevel(r.FormValue("level")),
		Tags:        splitTags(r.FormValue("tags")),
		IsPublic:    isPublic,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		File:        file,
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	q := r.URL.Query()
	items, total, err := h.svc.Materials.List(r.Context(), actor(r), domain.MaterialFilter{
		Page:       p,
		Limit:      l,
		Level:      domain.CEFRLevel(q.Get("level")),
		Type:       domain.MaterialType(q.Get("type")),
		Tag:        q.Get("tag"),
		UploaderID: q.Get("uploader"),
		Query:      q.Get("q"),
	})
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) getMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Materials.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) updateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	upd := domain.MaterialUpdate{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	}
	if req.Level != nil {
		lvl := domain.CEFRLevel(*req.Level)
		upd.CEFRLevel = &lvl
	}
	m, err := h.svc.Materials.Update(r.Context(), actor(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) deleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Materials.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) downloadMaterial(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Materials.Download(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("redirect") == "true" {
		http.Redirect(w, r, link.URL, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
