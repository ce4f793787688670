package usecase

import (
	"context"
	"io"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}
func (m *MockUserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}
func (m *MockUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Get(1).(int64), args.Error(2)
}

type MockAvailabilityRepository struct{ mock.Mock }

func (m *MockAvailabilityRepository) ReplaceForTeacher(ctx context.Context, teacherID string, windows []domain.Availability) ([]domain.Availability, error) {
	args := m.Called(ctx, teacherID, windows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Availability), args.Error(1)
}
func (m *MockAvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Availability, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Availability), args.Error(1)
}

type MockReservationRepository struct{ mock.Mock }

func (m *MockReservationRepository) Create(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepository) Update(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockReservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Reservation), args.Get(1).(int64), args.Error(2)
}
func (m *MockReservationRepository) FindOverlapping(ctx context.Context, userIDs []string, start, end time.Time) ([]*domain.Reservation, error) {
	args := m.Called(ctx, userIDs, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepository) SetPayment(ctx context.Context, id, paymentID string) error {
	args := m.Called(ctx, id, paymentID)
	return args.Error(0)
}

type MockLessonRepository struct{ mock.Mock }

func (m *MockLessonRepository) Create(ctx context.Context, l *domain.Lesson) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}
func (m *MockLessonRepository) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lesson), args.Error(1)
}
func (m *MockLessonRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Lesson, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Lesson), args.Error(1)
}
func (m *MockLessonRepository) Update(ctx context.Context, l *domain.Lesson) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}
func (m *MockLessonRepository) List(ctx context.Context, filter domain.LessonFilter) ([]*domain.Lesson, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Lesson), args.Get(1).(int64), args.Error(2)
}

type MockMaterialRepository struct{ mock.Mock }

func (m *MockMaterialRepository) Create(ctx context.Context, mat *domain.Material) error {
	args := m.Called(ctx, mat)
	return args.Error(0)
}
func (m *MockMaterialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Material), args.Error(1)
}
func (m *MockMaterialRepository) Update(ctx context.Context, mat *domain.Material) error {
	args := m.Called(ctx, mat)
	return args.Error(0)
}
func (m *MockMaterialRepository) IncrementDownloads(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockMaterialRepository) List(ctx context.Context, filter domain.MaterialFilter) ([]*domain.Material, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Material), args.Get(1).(int64), args.Error(2)
}

type MockOrganizationRepository struct{ mock.Mock }

func (m *MockOrganizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
func (m *MockOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}
func (m *MockOrganizationRepository) Update(ctx context.Context, o *domain.Organization) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
func (m *MockOrganizationRepository) List(ctx context.Context, filter domain.OrganizationFilter) ([]*domain.Organization, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Organization), args.Get(1).(int64), args.Error(2)
}

type MockRoleRepository struct{ mock.Mock }

func (m *MockRoleRepository) Create(ctx context.Context, r *domain.RoleDefinition) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRoleRepository) GetByID(ctx context.Context, id string) (*domain.RoleDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleDefinition), args.Error(1)
}
func (m *MockRoleRepository) GetByName(ctx context.Context, name string) (*domain.RoleDefinition, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoleDefinition), args.Error(1)
}
func (m *MockRoleRepository) Update(ctx context.Context, r *domain.RoleDefinition) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRoleRepository) List(ctx context.Context, includeInactive bool) ([]*domain.RoleDefinition, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RoleDefinition), args.Error(1)
}
func (m *MockRoleRepository) EnsureSystemRoles(ctx context.Context, roles []*domain.RoleDefinition) error {
	args := m.Called(ctx, roles)
	return args.Error(0)
}

type MockAuditLogRepository struct{ mock.Mock }

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *MockAuditLogRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.AuditLog), args.Get(1).(int64), args.Error(2)
}

type MockNotificationRepository struct{ mock.Mock }

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNotificationRepository) List(ctx context.Context, filter domain.NotificationFilter) ([]*domain.Notification, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Notification), args.Get(1).(int64), args.Error(2)
}
func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	args := m.Called(ctx, userID, id, at)
	return args.Error(0)
}
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockNotificationRepository) Delete(ctx context.Context, userID, id string) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type MockPaymentRepository struct{ mock.Mock }

func (m *MockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepository) GetByProviderRef(ctx context.Context, ref string) (*domain.Payment, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepository) FindOpenForReservation(ctx context.Context, reservationID string) (*domain.Payment, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}
func (m *MockPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPaymentRepository) List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Payment), args.Get(1).(int64), args.Error(2)
}

type MockCache struct{ mock.Mock }

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}
func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

type MockTokenStore struct{ mock.Mock }

func (m *MockTokenStore) SaveRefresh(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, ttl)
	return args.Error(0)
}
func (m *MockTokenStore) ConsumeRefresh(ctx context.Context, tokenID string) (string, error) {
	args := m.Called(ctx, tokenID)
	return args.String(0), args.Error(1)
}
func (m *MockTokenStore) SaveReset(ctx context.Context, token, userID string, ttl time.Duration) error {
	args := m.Called(ctx, token, userID, ttl)
	return args.Error(0)
}
func (m *MockTokenStore) ConsumeReset(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// MockLocker records acquired keys and never blocks.
type MockLocker struct {
	mock.Mock
	released []string
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, key, ttl)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released = append(m.released, key)
		return nil
	}, nil
}

type MockFileStorage struct{ mock.Mock }

func (m *MockFileStorage) Upload(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, objectKey, r, size, contentType)
	return args.String(0), args.Error(1)
}
func (m *MockFileStorage) PresignedURL(ctx context.Context, objectKey string, ttl time.Duration, filename string) (string, error) {
	args := m.Called(ctx, objectKey, ttl, filename)
	return args.String(0), args.Error(1)
}

type MockEmailSender struct{ mock.Mock }

func (m *MockEmailSender) Send(ctx context.Context, to, subject, bodyHTML, bodyText string) error {
	args := m.Called(ctx, to, subject, bodyHTML, bodyText)
	return args.Error(0)
}

type MockRoomTokenIssuer struct{ mock.Mock }

func (m *MockRoomTokenIssuer) Issue(grant RoomGrant) (string, error) {
	args := m.Called(grant)
	return args.String(0), args.Error(1)
}
func (m *MockRoomTokenIssuer) ServerURL() string {
	return "wss://livekit.test"
}

type MockPaymentGateway struct{ mock.Mock }

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, amount int64, currency, description string, metadata map[string]string) (*PaymentIntent, error) {
	args := m.Called(ctx, amount, currency, description, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentIntent), args.Error(1)
}
func (m *MockPaymentGateway) Refund(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}
func (m *MockPaymentGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WebhookEvent), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	args := m.Called(ctx, subject, payload)
	return args.Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Push(userID string, n *domain.Notification) {
	m.Called(userID, n)
}

// recordingMetrics counts calls by label for assertions.
type recordingMetrics struct {
	reservations  []string
	joins         []string
	notifications int
	payments      []string
	uploaded      int64
}

func (r *recordingMetrics) ReservationChanged(status string) { r.reservations = append(r.reservations, status) }
func (r *recordingMetrics) SessionJoin(result string)        { r.joins = append(r.joins, result) }
func (r *recordingMetrics) NotificationDispatched()          { r.notifications++ }
func (r *recordingMetrics) PaymentChanged(status string)     { r.payments = append(r.payments, status) }
func (r *recordingMetrics) MaterialUploaded(size int64)      { r.uploaded += size }

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
