package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("key not found in cache")

// EventPublisher sends domain events. Subjects are relative to the
// publisher's prefix, e.g. "reservation.created".
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenStore keeps single-use secrets: refresh token ids and password reset tokens.
type TokenStore interface {
	SaveRefresh(ctx context.Context, tokenID, userID string, ttl time.Duration) error
	// ConsumeRefresh deletes the id and returns its owner; a missing id is ErrUnauthorized.
	ConsumeRefresh(ctx context.Context, tokenID string) (string, error)
	SaveReset(ctx context.Context, token, userID string, ttl time.Duration) error
	ConsumeReset(ctx context.Context, token string) (string, error)
}

// Locker provides short-lived mutual exclusion across instances.
type Locker interface {
	// Acquire returns domain.ErrLockNotAcquired when the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

type FileStorage interface {
	Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, objectKey string, ttl time.Duration, filename string) (string, error)
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, bodyHTML, bodyText string) error
}

// RoomGrant describes access to one live lesson room.
type RoomGrant struct {
	Room        string
	Identity    string
	Name        string
	Role        domain.Role
	IsModerator bool
	NotBefore   time.Time
	ExpiresAt   time.Time
}

type RoomTokenIssuer interface {
	Issue(grant RoomGrant) (string, error)
	ServerURL() string
}

// PaymentIntent is the gateway's view of a created charge.
type PaymentIntent struct {
	Ref          string
	ClientSecret string
	Status       domain.PaymentStatus
}

// WebhookEvent is a verified gateway notification.
type WebhookEvent struct {
	ID            string
	Type          string
	Ref           string
	FailureReason string
}

type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*PaymentIntent, error)
	Refund(ctx context.Context, ref string) error
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// Auditor records audit entries. Implementations never fail the caller.
type Auditor interface {
	Record(ctx context.Context, actor domain.Actor, action, entityType, entityID string, changes map[string]interface{})
}

// Notifier pushes a notification to the user's live connections.
type Notifier interface {
	Push(userID string, n *domain.Notification)
}

type Metrics interface {
	ReservationChanged(status string)
	SessionJoin(result string)
	NotificationDispatched()
	PaymentChanged(status string)
	MaterialUploaded(size int64)
}

type nopMetrics struct{}

func (nopMetrics) ReservationChanged(string) {}
func (nopMetrics) SessionJoin(string)        {}
func (nopMetrics) NotificationDispatched()   {}
func (nopMetrics) PaymentChanged(string)     {}
func (nopMetrics) MaterialUploaded(int64)    {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
