package app

import (
	"context"
	"fmt"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
)

// disabledGateway stands in for Stripe when no secret key is configured.
type disabledGateway struct{}

func (disabledGateway) CreateIntent(context.Context, int64, string, string, map[string]string) (*usecase.PaymentIntent, error) {
	return nil, fmt.Errorf("%w: payments are not configured", domain.ErrExternal)
}

func (disabledGateway) Refund(context.Context, string) error {
	return fmt.Errorf("%w: payments are not configured", domain.ErrExternal)
}

func (disabledGateway) ParseWebhook([]byte, string) (*usecase.WebhookEvent, error) {
	return nil, fmt.Errorf("%w: payments are not configured", domain.ErrUnauthorized)
}

// disabledRooms stands in for LiveKit when credentials are missing.
type disabledRooms struct{}

func (disabledRooms) Issue(usecase.RoomGrant) (string, error) {
	return "", fmt.Errorf("%w: video rooms are not configured", domain.ErrExternal)
}

func (disabledRooms) ServerURL() string { return "" }
