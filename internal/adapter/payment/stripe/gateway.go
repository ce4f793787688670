// Package stripe adapts Stripe payment intents to usecase.PaymentGateway.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type Gateway struct {
	api           *client.API
	webhookSecret string
	logger        *logger.Logger
}

func NewGateway(cfg config.StripeConfig, log *logger.Logger) (*Gateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &Gateway{api: api, webhookSecret: cfg.WebhookSecret, logger: log.Named("StripeGateway")}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*usecase.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("Failed to create payment intent", zap.Int64("amount", amount), zap.Error(err))
		return nil, fmt.Errorf("%w: create payment intent: %v", domain.ErrExternal, err)
	}
	return &usecase.PaymentIntent{Ref: pi.ID, ClientSecret: pi.ClientSecret, Status: intentStatus(pi.Status)}, nil
}

func (g *Gateway) Refund(ctx context.Context, ref string) error {
	params := &stripe.RefundParams{PaymentIntent: stripe.String(ref)}
	params.Context = ctx
	if _, err := g.api.Refunds.New(params); err != nil {
		g.logger.Error("Failed to refund payment intent", zap.String("ref", ref), zap.Error(err))
		return fmt.Errorf("%w: refund: %v", domain.ErrExternal, err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the intent reference.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*usecase.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: webhook signature: %v", domain.ErrUnauthorized, err)
	}
	return toWebhookEvent(event)
}

func toWebhookEvent(event stripe.Event) (*usecase.WebhookEvent, error) {
	out := &usecase.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent payload: %v", domain.ErrInvalidInput, err)
		}
		out.Ref = pi.ID
		if pi.LastPaymentError != nil {
			out.FailureReason = pi.LastPaymentError.Msg
		}
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: charge payload: %v", domain.ErrInvalidInput, err)
		}
		if ch.PaymentIntent != nil {
			out.Ref = ch.PaymentIntent.ID
		}
	}
	return out, nil
}

func intentStatus(s stripe.PaymentIntentStatus) domain.PaymentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.PaymentSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return domain.PaymentCancelled
	}
	return domain.PaymentPending
}
