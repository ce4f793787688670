package httpapi

import (
	"context"
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
	"github.com/stretchr/testify/mock"
)

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Register(ctx context.Context, a domain.Actor, in usecase.RegisterInput) (*usecase.AuthResult, error) {
	args := m.Called(a, in)
	res, _ := args.Get(0).(*usecase.AuthResult)
	return res, args.Error(1)
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*usecase.AuthResult, error) {
	args := m.Called(email, password)
	res, _ := args.Get(0).(*usecase.AuthResult)
	return res, args.Error(1)
}

func (m *mockAuth) Refresh(ctx context.Context, token string) (*usecase.AuthResult, error) {
	args := m.Called(token)
	res, _ := args.Get(0).(*usecase.AuthResult)
	return res, args.Error(1)
}

func (m *mockAuth) Logout(ctx context.Context, token string) error {
	return m.Called(token).Error(0)
}

func (m *mockAuth) ChangePassword(ctx context.Context, a domain.Actor, oldPassword, newPassword string) error {
	return m.Called(a, oldPassword, newPassword).Error(0)
}

func (m *mockAuth) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(email).Error(0)
}

func (m *mockAuth) ResetPassword(ctx context.Context, token, pw string) error {
	return m.Called(token, pw).Error(0)
}

type mockReservations struct{ mock.Mock }

func (m *mockReservations) result(args mock.Arguments) (*domain.Reservation, error) {
	res, _ := args.Get(0).(*domain.Reservation)
	return res, args.Error(1)
}

func (m *mockReservations) Book(ctx context.Context, a domain.Actor, in usecase.BookInput) (*domain.Reservation, error) {
	return m.result(m.Called(a, in))
}

func (m *mockReservations) Get(ctx context.Context, a domain.Actor, id string) (*domain.Reservation, error) {
	return m.result(m.Called(a, id))
}

func (m *mockReservations) ListMine(ctx context.Context, a domain.Actor, in usecase.ListReservationsInput) ([]*domain.Reservation, int64, error) {
	args := m.Called(a, in)
	items, _ := args.Get(0).([]*domain.Reservation)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockReservations) Confirm(ctx context.Context, a domain.Actor, id string) (*domain.Reservation, error) {
	return m.result(m.Called(a, id))
}

func (m *mockReservations) Cancel(ctx context.Context, a domain.Actor, id, reason string) (*domain.Reservation, error) {
	return m.result(m.Called(a, id, reason))
}

func (m *mockReservations) Complete(ctx context.Context, a domain.Actor, id string) (*domain.Reservation, error) {
	return m.result(m.Called(a, id))
}

func (m *mockReservations) MarkNoShow(ctx context.Context, a domain.Actor, id string) (*domain.Reservation, error) {
	return m.result(m.Called(a, id))
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) CreateForReservation(ctx context.Context, a domain.Actor, id string) (*domain.Payment, error) {
	args := m.Called(a, id)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *mockPayments) HandleWebhook(ctx context.Context, payload []byte, sig string) error {
	return m.Called(string(payload), sig).Error(0)
}

func (m *mockPayments) Refund(ctx context.Context, a domain.Actor, id string) (*domain.Payment, error) {
	args := m.Called(a, id)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *mockPayments) Get(ctx context.Context, a domain.Actor, id string) (*domain.Payment, error) {
	args := m.Called(a, id)
	p, _ := args.Get(0).(*domain.Payment)
	return p, args.Error(1)
}

func (m *mockPayments) ListMine(ctx context.Context, a domain.Actor, page, limit int64) ([]*domain.Payment, int64, error) {
	args := m.Called(a, page, limit)
	items, _ := args.Get(0).([]*domain.Payment)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockPayments) List(ctx context.Context, f domain.PaymentFilter) ([]*domain.Payment, int64, error) {
	args := m.Called(f)
	items, _ := args.Get(0).([]*domain.Payment)
	return items, args.Get(1).(int64), args.Error(2)
}

// stubRoles grants permissions from a fixed table.
type stubRoles struct {
	RoleService
	grants map[string][]string
}

func (s stubRoles) HasPermission(ctx context.Context, role, perm string) (bool, error) {
	for _, p := range s.grants[role] {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

type stubMaterials struct {
	MaterialService
	max      int64
	uploaded *usecase.UploadInput
	body     []byte
}

func (s *stubMaterials) MaxUploadSize() int64 { return s.max }

func (s *stubMaterials) Upload(ctx context.Context, a domain.Actor, in usecase.UploadInput) (*domain.Material, error) {
	buf := make([]byte, in.Size)
	n, _ := in.File.Read(buf)
	s.body = buf[:n]
	s.uploaded = &in
	return &domain.Material{ID: "m1", Title: in.Title}, nil
}

type stubStream struct{ userID string }

func (s *stubStream) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	s.userID = userID
	w.WriteHeader(http.StatusSwitchingProtocols)
}

// stubUsers serves one teacher through the public directory.
type stubUsers struct {
	UserService
	teacher *domain.User
}

func (s *stubUsers) GetTeacher(ctx context.Context, id string) (*domain.TeacherProfile, error) {
	if s.teacher == nil || s.teacher.ID != id {
		return nil, domain.ErrNotFound
	}
	return s.teacher.PublicProfile(), nil
}

func (s *stubUsers) ListTeachers(ctx context.Context, filter domain.UserFilter) ([]*domain.TeacherProfile, int64, error) {
	return []*domain.TeacherProfile{s.teacher.PublicProfile()}, 1, nil
}

// stubSessions refuses every join with a fixed decision.
type stubSessions struct {
	SessionService
	decision domain.AccessDecision
}

func (s *stubSessions) Join(ctx context.Context, a domain.Actor, reservationID string) (*usecase.JoinResult, error) {
	return nil, s.decision.Err()
}
