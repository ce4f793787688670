package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	notificationQueue = "verbfy-notifications"
	handleTimeout     = 30 * time.Second
)

// EventHandler consumes domain events; NotificationUsecase implements it.
type EventHandler interface {
	HandleReservationEvent(ctx context.Context, ev domain.ReservationEvent) error
	HandlePaymentEvent(ctx context.Context, ev domain.PaymentEvent) error
}

// Subscriber fans reservation and payment events into the handler.
// Instances share a queue group so each event is handled once.
type Subscriber struct {
	conn    *nats.Conn
	prefix  string
	handler EventHandler
	subs    []*nats.Subscription
	logger  *logger.Logger
}

func NewSubscriber(conn *nats.Conn, prefix string, handler EventHandler, log *logger.Logger) *Subscriber {
	return &Subscriber{conn: conn, prefix: prefix, handler: handler, logger: log.Named("NATSSubscriber")}
}

func (s *Subscriber) Start() error {
	for _, pattern := range []string{"reservation.*", "payment.*"} {
		subject := subjectFor(s.prefix, pattern)
		sub, err := s.conn.QueueSubscribe(subject, notificationQueue, func(msg *nats.Msg) {
			if err := s.handle(msg); err != nil {
				s.logger.Error("Failed to handle event", zap.String("subject", msg.Subject), zap.Error(err))
			}
		})
		if err != nil {
			s.Stop()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("Subscribed", zap.String("subject", subject), zap.String("queue", notificationQueue))
	}
	return nil
}

func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil {
			s.logger.Warn("Failed to drain subscription", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	s.subs = nil
}

// handle routes a message by its subject relative to the prefix.
func (s *Subscriber) handle(msg *nats.Msg) error {
	ctx := context.Background()
	if msg.Header != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, HeaderCarrier(msg.Header))
	}
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "NATS.Handle "+msg.Subject, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	subject := strings.TrimPrefix(msg.Subject, subjectFor(s.prefix, ""))
	switch {
	case strings.HasPrefix(subject, "reservation."):
		var ev domain.ReservationEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("decode reservation event: %w", err)
		}
		return s.handler.HandleReservationEvent(ctx, ev)
	case strings.HasPrefix(subject, "payment."):
		var ev domain.PaymentEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("decode payment event: %w", err)
		}
		return s.handler.HandlePaymentEvent(ctx, ev)
	}
	s.logger.Debug("Ignoring event", zap.String("subject", msg.Subject))
	return nil
}
