package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	payments     *MockPaymentRepository
	reservations *MockReservationRepository
	gateway      *MockPaymentGateway
	publisher    *MockEventPublisher
	metrics      *recordingMetrics
	uc           *PaymentUsecase
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		payments:     new(MockPaymentRepository),
		reservations: new(MockReservationRepository),
		gateway:      new(MockPaymentGateway),
		publisher:    new(MockEventPublisher),
		metrics:      &recordingMetrics{},
	}
	f.uc = NewPaymentUsecase(f.payments, f.reservations, f.gateway, f.publisher, nil, f.metrics, "eur", logger.NewNop())
	f.uc.now = fixedClock(bookingNow)
	return f
}

func payableReservation() *domain.Reservation {
	r := pendingReservation()
	r.Price = 4500
	r.ActualDate, r.StartTime, r.EndTime = "2026-06-01", "10:00", "11:00"
	return r
}

func TestPaymentUsecase_CreateForReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newPaymentFixture()
		f.reservations.On("GetByID", ctx, "r1").Return(payableReservation(), nil)
		f.payments.On("FindOpenForReservation", ctx, "r1").Return(nil, domain.ErrNotFound)
		f.gateway.On("CreateIntent", ctx, int64(4500), "eur", "Verbfy lesson 2026-06-01 10:00-11:00",
			map[string]string{"reservation_id": "r1", "user_id": "s1"}).
			Return(&PaymentIntent{Ref: "pi_1", ClientSecret: "pi_1_secret", Status: domain.PaymentPending}, nil)
		f.payments.On("Create", ctx, mock.MatchedBy(func(p *domain.Payment) bool {
			return p.ProviderRef == "pi_1" && p.ClientSecret == "" && p.Status == domain.PaymentPending
		})).Run(func(args mock.Arguments) { args.Get(1).(*domain.Payment).ID = "p1" }).Return(nil)
		f.reservations.On("SetPayment", ctx, "r1", "p1").Return(nil)

		p, err := f.uc.CreateForReservation(ctx, student, "r1")
		require.NoError(t, err)
		assert.Equal(t, "pi_1_secret", p.ClientSecret)
		assert.Equal(t, "eur", p.Currency)
		assert.Equal(t, []string{"pending"}, f.metrics.payments)
		f.reservations.AssertExpectations(t)
	})

	t.Run("second open payment conflicts", func(t *testing.T) {
		f := newPaymentFixture()
		f.reservations.On("GetByID", ctx, "r1").Return(payableReservation(), nil)
		f.payments.On("FindOpenForReservation", ctx, "r1").Return(&domain.Payment{ID: "p0", Status: domain.PaymentPending}, nil)

		_, err := f.uc.CreateForReservation(ctx, student, "r1")
		assert.ErrorIs(t, err, domain.ErrConflict)
		f.gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("only the booking student pays", func(t *testing.T) {
		f := newPaymentFixture()
		f.reservations.On("GetByID", ctx, "r1").Return(payableReservation(), nil)
		_, err := f.uc.CreateForReservation(ctx, teacherAct, "r1")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("cancelled reservation", func(t *testing.T) {
		f := newPaymentFixture()
		r := payableReservation()
		r.Status = domain.ReservationCancelled
		f.reservations.On("GetByID", ctx, "r1").Return(r, nil)
		_, err := f.uc.CreateForReservation(ctx, student, "r1")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestPaymentUsecase_HandleWebhook(t *testing.T) {
	ctx := context.Background()
	payload, sig := []byte(`{}`), "t=1,v1=abc"

	t.Run("succeeded publishes event", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(&WebhookEvent{ID: "evt_1", Type: EventPaymentSucceeded, Ref: "pi_1"}, nil)
		f.payments.On("GetByProviderRef", ctx, "pi_1").Return(&domain.Payment{ID: "p1", UserID: "s1", Amount: 4500, Currency: "eur", Status: domain.PaymentPending}, nil)
		f.payments.On("Update", ctx, mock.MatchedBy(func(p *domain.Payment) bool { return p.Status == domain.PaymentSucceeded })).Return(nil)
		f.publisher.On("Publish", ctx, domain.SubjectPaymentSucceeded, mock.MatchedBy(func(ev domain.PaymentEvent) bool {
			return ev.PaymentID == "p1" && ev.UserID == "s1" && ev.Status == domain.PaymentSucceeded
		})).Return(nil)

		require.NoError(t, f.uc.HandleWebhook(ctx, payload, sig))
		f.publisher.AssertExpectations(t)
		assert.Equal(t, []string{"succeeded"}, f.metrics.payments)
	})

	t.Run("replayed event is a no-op", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(&WebhookEvent{Type: EventPaymentSucceeded, Ref: "pi_1"}, nil)
		f.payments.On("GetByProviderRef", ctx, "pi_1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentSucceeded}, nil)

		require.NoError(t, f.uc.HandleWebhook(ctx, payload, sig))
		f.payments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("terminal status is not re-applied", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(&WebhookEvent{Type: EventPaymentFailed, Ref: "pi_1", FailureReason: "card_declined"}, nil)
		f.payments.On("GetByProviderRef", ctx, "pi_1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentRefunded}, nil)

		require.NoError(t, f.uc.HandleWebhook(ctx, payload, sig))
		f.payments.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("failed records reason", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(&WebhookEvent{Type: EventPaymentFailed, Ref: "pi_1", FailureReason: "card_declined"}, nil)
		f.payments.On("GetByProviderRef", ctx, "pi_1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentPending}, nil)
		f.payments.On("Update", ctx, mock.MatchedBy(func(p *domain.Payment) bool { return p.FailureReason == "card_declined" })).Return(nil)
		f.publisher.On("Publish", ctx, domain.SubjectPaymentFailed, mock.Anything).Return(nil)

		require.NoError(t, f.uc.HandleWebhook(ctx, payload, sig))
		f.payments.AssertExpectations(t)
	})

	t.Run("bad signature", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(nil, errors.New("signature mismatch"))
		assert.Error(t, f.uc.HandleWebhook(ctx, payload, sig))
	})

	t.Run("unknown payment acknowledged", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(&WebhookEvent{Type: EventChargeRefunded, Ref: "pi_x"}, nil)
		f.payments.On("GetByProviderRef", ctx, "pi_x").Return(nil, domain.ErrNotFound)
		assert.NoError(t, f.uc.HandleWebhook(ctx, payload, sig))
	})

	t.Run("unhandled type ignored", func(t *testing.T) {
		f := newPaymentFixture()
		f.gateway.On("ParseWebhook", payload, sig).Return(&WebhookEvent{Type: "customer.created"}, nil)
		assert.NoError(t, f.uc.HandleWebhook(ctx, payload, sig))
		f.payments.AssertNotCalled(t, "GetByProviderRef", mock.Anything, mock.Anything)
	})
}

func TestPaymentUsecase_Refund(t *testing.T) {
	ctx := context.Background()
	admin := domain.Actor{UserID: "a1", Role: domain.RoleAdmin}

	t.Run("only succeeded payments", func(t *testing.T) {
		f := newPaymentFixture()
		f.payments.On("GetByID", ctx, "p1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentPending}, nil)
		_, err := f.uc.Refund(ctx, admin, "p1")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("refunds through gateway", func(t *testing.T) {
		f := newPaymentFixture()
		f.payments.On("GetByID", ctx, "p1").Return(&domain.Payment{ID: "p1", Status: domain.PaymentSucceeded, ProviderRef: "pi_1", ClientSecret: "s"}, nil)
		f.gateway.On("Refund", ctx, "pi_1").Return(nil)
		f.payments.On("Update", ctx, mock.Anything).Return(nil)

		p, err := f.uc.Refund(ctx, admin, "p1")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRefunded, p.Status)
		assert.Empty(t, p.ClientSecret)
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentUsecase_GetHidesOthers(t *testing.T) {
	ctx := context.Background()
	f := newPaymentFixture()
	f.payments.On("GetByID", ctx, "p1").Return(&domain.Payment{ID: "p1", UserID: "s2"}, nil)

	_, err := f.uc.Get(ctx, student, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
