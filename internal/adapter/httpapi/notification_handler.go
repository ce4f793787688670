package httpapi

import (
	"fmt"
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	unread := queryBool(r, "unread")
	items, total, err := h.svc.Notifications.ListMine(r.Context(), actor(r), unread != nil && *unread, p, l)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.UnreadCount(r.Context(), actor(r))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Notifications.MarkRead(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkAllRead(r.Context(), actor(r))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Notifications.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// notificationSocket authenticates with ?token= since browsers cannot set
// headers on a WebSocket handshake.
func (h *Handler) notificationSocket(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = bearerToken(r)
	}
	if raw == "" {
		h.rs.fail(w, r, fmt.Errorf("%w: missing token", domain.ErrUnauthorized))
		return
	}
	claims, err := h.svc.Tokens.ParseAccess(raw)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	h.svc.Stream.Serve(w, r, claims.UserID)
}
