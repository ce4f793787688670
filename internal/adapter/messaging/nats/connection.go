package nats

import (
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	defaultConnectWait = 5 * time.Second
	maxReconnects      = -1
	reconnectWait      = 2 * time.Second
)

// NewConnection dials NATS and reconnects forever.
func NewConnection(cfg config.NATSConfig, name string, log *logger.Logger) (*nats.Conn, error) {
	wait := cfg.ConnectTimeout
	if wait <= 0 {
		wait = defaultConnectWait
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(wait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			log.Error("NATS error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	log.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}

// HeaderCarrier adapts nats.Header to an OpenTelemetry TextMapCarrier.
type HeaderCarrier nats.Header

func (c HeaderCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c HeaderCarrier) Set(key, value string) {
	nats.Header(c).Set(key, value)
}

func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func subjectFor(prefix, subject string) string {
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}
