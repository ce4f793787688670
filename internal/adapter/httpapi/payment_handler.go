package httpapi

import (
	"io"
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/go-chi/chi/v5"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "Stripe-Signature"
)

type createPaymentRequest struct {
	ReservationID string `json:"reservationId" validate:"required"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.Payments.CreateForReservation(r.Context(), actor(r), req.ReservationID)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) listMyPayments(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	items, total, err := h.svc.Payments.ListMine(r.Context(), actor(r), p, l)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Payments.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// paymentWebhook needs the raw body for signature verification.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.rs.fail(w, r, errBadRequest("unreadable body"))
		return
	}
	if err := h.svc.Payments.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader)); err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) adminListPayments(w http.ResponseWriter, r *http.Request) {
	p, l := pagination(r)
	filter := domain.PaymentFilter{Page: p, Limit: l, UserID: r.URL.Query().Get("userId")}
	if s := domain.PaymentStatus(r.URL.Query().Get("status")); s != "" {
		filter.Status = &s
	}
	items, total, err := h.svc.Payments.List(r.Context(), filter)
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: l})
}

func (h *Handler) adminRefund(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Payments.Refund(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
