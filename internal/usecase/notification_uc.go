package usecase

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

// NotificationUsecase turns domain events into stored notifications, live
// pushes and emails, and serves the user's inbox.
type NotificationUsecase struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	notifier      Notifier
	mailer        EmailSender
	metrics       Metrics
	logger        *logger.Logger
	now           func() time.Time
}

func NewNotificationUsecase(
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	notifier Notifier,
	mailer EmailSender,
	metrics Metrics,
	log *logger.Logger,
) *NotificationUsecase {
	return &NotificationUsecase{
		notifications: notifications,
		users:         users,
		notifier:      notifier,
		mailer:        mailer,
		metrics:       metricsOrNop(metrics),
		logger:        log.Named("NotificationUsecase"),
		now:           time.Now,
	}
}

type reservationNotice struct {
	recipient string
	kind      domain.NotificationType
	title     string
	body      string
}

func reservationNotices(ev domain.ReservationEvent) []reservationNotice {
	when := fmt.Sprintf("%s %s-%s", ev.ActualDate, ev.StartTime, ev.EndTime)
	switch ev.Status {
	case domain.ReservationPending:
		return []reservationNotice{{ev.TeacherID, domain.NotifyReservationCreated, "New lesson request", "A student requested a lesson on " + when + "."}}
	case domain.ReservationConfirmed:
		return []reservationNotice{{ev.StudentID, domain.NotifyReservationConfirmed, "Lesson confirmed", "Your lesson on " + when + " is confirmed."}}
	case domain.ReservationCancelled:
		body := "The lesson on " + when + " was cancelled."
		if ev.Reason != "" {
			body += " Reason: " + ev.Reason
		}
		var out []reservationNotice
		for _, id := range []string{ev.StudentID, ev.TeacherID} {
			if id != ev.ActorID {
				out = append(out, reservationNotice{id, domain.NotifyReservationCancelled, "Lesson cancelled", body})
			}
		}
		return out
	case domain.ReservationCompleted, domain.ReservationNoShow:
		body := "The lesson on " + when + " is finished."
		if ev.Status == domain.ReservationNoShow {
			body = "The lesson on " + when + " was marked as a no-show."
		}
		return []reservationNotice{
			{ev.StudentID, domain.NotifyReservationCompleted, "Lesson finished", body},
			{ev.TeacherID, domain.NotifyReservationCompleted, "Lesson finished", body},
		}
	}
	return nil
}

// HandleReservationEvent notifies the users affected by a reservation change.
func (uc *NotificationUsecase) HandleReservationEvent(ctx context.Context, ev domain.ReservationEvent) error {
	uc.logger.Debug("Handling reservation event", zap.String("reservation_id", ev.ReservationID), zap.String("status", string(ev.Status)))
	data := map[string]interface{}{
		"reservationId": ev.ReservationID,
		"status":        ev.Status,
		"startsAt":      ev.StartsAt,
	}
	var firstErr error
	for _, notice := range reservationNotices(ev) {
		n, err := uc.dispatch(ctx, notice.recipient, notice.kind, notice.title, notice.body, data)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		uc.email(ctx, n)
	}
	return firstErr
}

func (uc *NotificationUsecase) HandlePaymentEvent(ctx context.Context, ev domain.PaymentEvent) error {
	uc.logger.Debug("Handling payment event", zap.String("payment_id", ev.PaymentID), zap.String("status", string(ev.Status)))
	amount := fmt.Sprintf("%d.%02d %s", ev.Amount/100, ev.Amount%100, ev.Currency)
	var kind domain.NotificationType
	var title, body string
	switch ev.Status {
	case domain.PaymentSucceeded:
		kind, title, body = domain.NotifyPaymentSucceeded, "Payment received", "Your payment of "+amount+" was successful."
	case domain.PaymentFailed:
		kind, title, body = domain.NotifyPaymentFailed, "Payment failed", "Your payment of "+amount+" could not be processed."
	default:
		return nil
	}
	_, err := uc.dispatch(ctx, ev.UserID, kind, title, body, map[string]interface{}{
		"paymentId":     ev.PaymentID,
		"reservationId": ev.ReservationID,
		"amount":        ev.Amount,
		"currency":      ev.Currency,
	})
	return err
}

func (uc *NotificationUsecase) dispatch(ctx context.Context, userID string, kind domain.NotificationType, title, body string, data map[string]interface{}) (*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: notification recipient is required", domain.ErrInvalidInput)
	}
	n := &domain.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.notifications.Create(ctx, n); err != nil {
		uc.logger.Error("Failed to store notification", zap.Error(err), zap.String("user_id", userID), zap.String("type", string(kind)))
		return nil, err
	}
	if uc.notifier != nil {
		uc.notifier.Push(userID, n)
	}
	uc.metrics.NotificationDispatched()
	return n, nil
}

func (uc *NotificationUsecase) email(ctx context.Context, n *domain.Notification) {
	if uc.mailer == nil {
		return
	}
	user, err := uc.users.GetByID(ctx, n.UserID)
	if err != nil {
		uc.logger.Warn("Notification recipient not loaded", zap.Error(err), zap.String("user_id", n.UserID))
		return
	}
	bodyHTML := fmt.Sprintf("<p>Hello %s,</p><p>%s</p><p>Verbfy</p>", html.EscapeString(user.Name), html.EscapeString(n.Body))
	bodyText := fmt.Sprintf("Hello %s,\n\n%s\n\nVerbfy", user.Name, n.Body)
	if err := uc.mailer.Send(ctx, user.Email, n.Title, bodyHTML, bodyText); err != nil {
		uc.logger.Warn("Failed to email notification", zap.Error(err), zap.String("user_id", user.ID))
	}
}

// Notify stores and pushes a system notification.
func (uc *NotificationUsecase) Notify(ctx context.Context, userID, title, body string) (*domain.Notification, error) {
	return uc.dispatch(ctx, userID, domain.NotifySystem, title, body, nil)
}

func (uc *NotificationUsecase) ListMine(ctx context.Context, actor domain.Actor, unreadOnly bool, page, limit int64) ([]*domain.Notification, int64, error) {
	filter := domain.NotificationFilter{UserID: actor.UserID, UnreadOnly: unreadOnly}
	filter.Page, filter.Limit = domain.NormalizePage(page, limit)
	return uc.notifications.List(ctx, filter)
}

func (uc *NotificationUsecase) UnreadCount(ctx context.Context, actor domain.Actor) (int64, error) {
	return uc.notifications.CountUnread(ctx, actor.UserID)
}

func (uc *NotificationUsecase) MarkRead(ctx context.Context, actor domain.Actor, id string) error {
	return uc.notifications.MarkRead(ctx, actor.UserID, id, uc.now().UTC())
}

func (uc *NotificationUsecase) MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error) {
	n, err := uc.notifications.MarkAllRead(ctx, actor.UserID, uc.now().UTC())
	if err != nil {
		uc.logger.Error("Failed to mark notifications read", zap.Error(err), zap.String("user_id", actor.UserID))
		return 0, err
	}
	return n, nil
}

func (uc *NotificationUsecase) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return uc.notifications.Delete(ctx, actor.UserID, id)
}
