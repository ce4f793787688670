package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("verbfy/nats")

// msgPublisher is the subset of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Publisher implements usecase.EventPublisher.
type Publisher struct {
	conn   msgPublisher
	prefix string
	logger *logger.Logger
}

func NewPublisher(conn *nats.Conn, prefix string, log *logger.Logger) *Publisher {
	return &Publisher{conn: conn, prefix: prefix, logger: log.Named("NATSPublisher")}
}

func (p *Publisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	full := subjectFor(p.prefix, subject)
	ctx, span := tracer.Start(ctx, "NATS.Publish "+full, trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	data, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal")
		return fmt.Errorf("failed to marshal event for %s: %w", full, err)
	}

	msg := nats.NewMsg(full)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, HeaderCarrier(msg.Header))

	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("Failed to publish event", zap.String("subject", full), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish")
		return fmt.Errorf("failed to publish to %s: %w", full, err)
	}
	p.logger.Debug("Event published", zap.String("subject", full), zap.Int("bytes", len(data)))
	return nil
}
