package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

// Gateway event types handled by HandleWebhook.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

type PaymentUsecase struct {
	payments     domain.PaymentRepository
	reservations domain.ReservationRepository
	gateway      PaymentGateway
	publisher    EventPublisher
	auditor      Auditor
	metrics      Metrics
	currency     string
	logger       *logger.Logger
	now          func() time.Time
}

func NewPaymentUsecase(
	payments domain.PaymentRepository,
	reservations domain.ReservationRepository,
	gateway PaymentGateway,
	publisher EventPublisher,
	auditor Auditor,
	metrics Metrics,
	currency string,
	log *logger.Logger,
) *PaymentUsecase {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentUsecase{
		payments:     payments,
		reservations: reservations,
		gateway:      gateway,
		publisher:    publisher,
		auditor:      auditorOrNop(auditor),
		metrics:      metricsOrNop(metrics),
		currency:     currency,
		logger:       log.Named("PaymentUsecase"),
		now:          time.Now,
	}
}

// CreateForReservation opens a payment intent for the student's reservation.
// The returned payment carries the client secret; later reads do not.
func (uc *PaymentUsecase) CreateForReservation(ctx context.Context, actor domain.Actor, reservationID string) (*domain.Payment, error) {
	uc.logger.Info("Creating payment", zap.String("reservation_id", reservationID), zap.String("user_id", actor.UserID))
	res, err := uc.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.StudentID != actor.UserID {
		return nil, fmt.Errorf("%w: only the booking student can pay", domain.ErrForbidden)
	}
	if res.Status != domain.ReservationPending && res.Status != domain.ReservationConfirmed {
		return nil, fmt.Errorf("%w: a %s reservation cannot be paid", domain.ErrInvalidTransition, res.Status)
	}
	if res.Price <= 0 {
		return nil, fmt.Errorf("%w: reservation has nothing to pay", domain.ErrInvalidInput)
	}

	open, err := uc.payments.FindOpenForReservation(ctx, res.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: reservation already has a %s payment %s", domain.ErrConflict, open.Status, open.ID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	description := fmt.Sprintf("Verbfy lesson %s %s-%s", res.ActualDate, res.StartTime, res.EndTime)
	payment, err := domain.NewPayment(actor.UserID, res.ID, res.Price, uc.currency, description)
	if err != nil {
		return nil, err
	}
	intent, err := uc.gateway.CreateIntent(ctx, payment.Amount, payment.Currency, description, map[string]string{
		"reservation_id": res.ID,
		"user_id":        actor.UserID,
	})
	if err != nil {
		uc.logger.Error("Payment gateway rejected intent", zap.Error(err), zap.String("reservation_id", res.ID))
		return nil, err
	}
	payment.ProviderRef = intent.Ref
	if err := uc.payments.Create(ctx, payment); err != nil {
		uc.logger.Error("Failed to save payment", zap.Error(err), zap.String("provider_ref", intent.Ref))
		return nil, err
	}
	if err := uc.reservations.SetPayment(ctx, res.ID, payment.ID); err != nil {
		uc.logger.Warn("Failed to link payment to reservation", zap.Error(err), zap.String("payment_id", payment.ID))
	}

	uc.metrics.PaymentChanged(string(payment.Status))
	uc.auditor.Record(ctx, actor, domain.AuditPaymentStatus, domain.EntityPayment, payment.ID, map[string]interface{}{
		"status": payment.Status, "amount": payment.Amount, "reservationId": res.ID,
	})
	payment.ClientSecret = intent.ClientSecret
	return payment, nil
}

// HandleWebhook applies a verified gateway event. Unknown payments, unknown
// event types and already-applied statuses are acknowledged without change.
func (uc *PaymentUsecase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := uc.gateway.ParseWebhook(payload, signature)
	if err != nil {
		uc.logger.Warn("Rejected payment webhook", zap.Error(err))
		return err
	}
	var target domain.PaymentStatus
	switch ev.Type {
	case EventPaymentSucceeded:
		target = domain.PaymentSucceeded
	case EventPaymentFailed:
		target = domain.PaymentFailed
	case EventChargeRefunded:
		target = domain.PaymentRefunded
	default:
		uc.logger.Debug("Ignoring payment webhook", zap.String("type", ev.Type), zap.String("event_id", ev.ID))
		return nil
	}

	payment, err := uc.payments.GetByProviderRef(ctx, ev.Ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("Webhook for unknown payment", zap.String("provider_ref", ev.Ref), zap.String("event_id", ev.ID))
			return nil
		}
		return err
	}
	changed, err := payment.Transition(target, ev.FailureReason, uc.now())
	if err != nil {
		uc.logger.Warn("Webhook transition not applied", zap.Error(err), zap.String("payment_id", payment.ID), zap.String("event_id", ev.ID))
		return nil
	}
	if !changed {
		uc.logger.Debug("Webhook already applied", zap.String("payment_id", payment.ID), zap.String("event_id", ev.ID))
		return nil
	}
	if err := uc.payments.Update(ctx, payment); err != nil {
		uc.logger.Error("Failed to update payment from webhook", zap.Error(err), zap.String("payment_id", payment.ID))
		return err
	}
	uc.afterChange(ctx, domain.SystemActor, payment)
	uc.logger.Info("Payment status changed", zap.String("payment_id", payment.ID), zap.String("status", string(payment.Status)))
	return nil
}

func (uc *PaymentUsecase) afterChange(ctx context.Context, actor domain.Actor, p *domain.Payment) {
	uc.metrics.PaymentChanged(string(p.Status))
	uc.auditor.Record(ctx, actor, domain.AuditPaymentStatus, domain.EntityPayment, p.ID, map[string]interface{}{
		"status": p.Status, "failureReason": p.FailureReason,
	})
	subject := ""
	switch p.Status {
	case domain.PaymentSucceeded:
		subject = domain.SubjectPaymentSucceeded
	case domain.PaymentFailed:
		subject = domain.SubjectPaymentFailed
	}
	if subject == "" || uc.publisher == nil {
		return
	}
	ev := domain.PaymentEvent{
		PaymentID:     p.ID,
		UserID:        p.UserID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        p.Status,
		OccurredAt:    uc.now().UTC(),
	}
	if err := uc.publisher.Publish(ctx, subject, ev); err != nil {
		uc.logger.Warn("Failed to publish payment event", zap.Error(err), zap.String("subject", subject), zap.String("payment_id", p.ID))
	}
}

// Refund returns a succeeded payment to the customer.
func (uc *PaymentUsecase) Refund(ctx context.Context, actor domain.Actor, id string) (*domain.Payment, error) {
	uc.logger.Info("Refunding payment", zap.String("payment_id", id), zap.String("actor_id", actor.UserID))
	payment, err := uc.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentSucceeded {
		return nil, fmt.Errorf("%w: only succeeded payments can be refunded", domain.ErrInvalidTransition)
	}
	if err := uc.gateway.Refund(ctx, payment.ProviderRef); err != nil {
		uc.logger.Error("Payment gateway refund failed", zap.Error(err), zap.String("payment_id", id))
		return nil, err
	}
	if _, err := payment.Transition(domain.PaymentRefunded, "", uc.now()); err != nil {
		return nil, err
	}
	if err := uc.payments.Update(ctx, payment); err != nil {
		uc.logger.Error("Failed to save refunded payment", zap.Error(err), zap.String("payment_id", id))
		return nil, err
	}
	uc.afterChange(ctx, actor, payment)
	return redact(payment), nil
}

func redact(p *domain.Payment) *domain.Payment {
	p.ClientSecret = ""
	return p
}

func (uc *PaymentUsecase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Payment, error) {
	payment, err := uc.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && payment.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: payment %s", domain.ErrNotFound, id)
	}
	return redact(payment), nil
}

func (uc *PaymentUsecase) ListMine(ctx context.Context, actor domain.Actor, page, limit int64) ([]*domain.Payment, int64, error) {
	return uc.List(ctx, domain.PaymentFilter{UserID: actor.UserID, Page: page, Limit: limit})
}

// List is the unrestricted listing used by administrators.
func (uc *PaymentUsecase) List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, int64, error) {
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown payment status %q", domain.ErrInvalidInput, *filter.Status)
	}
	payments, total, err := uc.payments.List(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to list payments", zap.Error(err))
		return nil, 0, err
	}
	for _, p := range payments {
		redact(p)
	}
	return payments, total, nil
}
