package domain

import (
	"fmt"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPending, PaymentSucceeded, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return true
	}
	return false
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentSucceeded, PaymentFailed, PaymentCancelled},
	PaymentFailed:    {PaymentSucceeded},
	PaymentSucceeded: {PaymentRefunded},
}

// CanTransitionPayment reports whether from -> to is allowed.
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

const ProviderStripe = "stripe"

type Payment struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	ReservationID string        `json:"reservationId,omitempty"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	Provider      string        `json:"provider"`
	ProviderRef   string        `json:"providerRef,omitempty"`
	ClientSecret  string        `json:"clientSecret,omitempty"`
	Description   string        `json:"description,omitempty"`
	FailureReason string        `json:"failureReason,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func NewPayment(userID, reservationID string, amount int64, currency, description string) (*Payment, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency %q must be an ISO 4217 code", ErrInvalidInput, currency)
	}
	now := time.Now().UTC()
	return &Payment{
		UserID:        userID,
		ReservationID: reservationID,
		Amount:        amount,
		Currency:      currency,
		Status:        PaymentPending,
		Provider:      ProviderStripe,
		Description:   description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Transition returns false without error when the payment is already in status to.
func (p *Payment) Transition(to PaymentStatus, reason string, now time.Time) (bool, error) {
	if p.Status == to {
		return false, nil
	}
	if !CanTransitionPayment(p.Status, to) {
		return false, fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	if to == PaymentFailed {
		p.FailureReason = reason
	} else {
		p.FailureReason = ""
	}
	p.UpdatedAt = now.UTC()
	return true, nil
}

type PaymentFilter struct {
	Page   int64
	Limit  int64
	UserID string
	Status *PaymentStatus
}
