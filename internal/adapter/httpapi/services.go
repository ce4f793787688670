package httpapi

import (
	"context"
	"net/http"

	"github.com/cemonal1/Verbfy-sub006/internal/auth"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/usecase"
)

// The interfaces below are satisfied by the usecase layer.

type TokenParser interface {
	ParseAccess(token string) (*auth.Claims, error)
}

type PermissionChecker interface {
	HasPermission(ctx context.Context, roleName, permission string) (bool, error)
}

type AuthService interface {
	Register(ctx context.Context, actor domain.Actor, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*usecase.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, actor domain.Actor, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type UserService interface {
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, upd domain.ProfileUpdate) (*domain.User, error)
	ListTeachers(ctx context.Context, filter domain.UserFilter) ([]*domain.TeacherProfile, int64, error)
	GetTeacher(ctx context.Context, id string) (*domain.TeacherProfile, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	ApproveTeacher(ctx context.Context, actor domain.Actor, id string) (*domain.User, error)
	SetActive(ctx context.Context, actor domain.Actor, id string, active bool) (*domain.User, error)
	ChangeRole(ctx context.Context, actor domain.Actor, id string, role domain.Role) (*domain.User, error)
}

type AvailabilityService interface {
	SetWeekly(ctx context.Context, actor domain.Actor, in []usecase.WindowInput) ([]domain.Availability, error)
	List(ctx context.Context, teacherID string) ([]domain.Availability, error)
	Slots(ctx context.Context, in usecase.SlotsInput) ([]domain.Slot, error)
}

type ReservationService interface {
	Book(ctx context.Context, actor domain.Actor, in usecase.BookInput) (*domain.Reservation, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error)
	ListMine(ctx context.Context, actor domain.Actor, in usecase.ListReservationsInput) ([]*domain.Reservation, int64, error)
	Confirm(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error)
	Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Reservation, error)
	Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error)
	MarkNoShow(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error)
}

type SessionService interface {
	AccessStatus(ctx context.Context, actor domain.Actor, reservationID string) (*domain.AccessDecision, error)
	Join(ctx context.Context, actor domain.Actor, reservationID string) (*usecase.JoinResult, error)
}

type LessonService interface {
	ListMine(ctx context.Context, actor domain.Actor, status domain.LessonStatus, page, limit int64) ([]*domain.Lesson, int64, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Lesson, error)
	AddNotes(ctx context.Context, actor domain.Actor, id, notes string) (*domain.Lesson, error)
	Rate(ctx context.Context, actor domain.Actor, id string, rating int, feedback string) (*domain.Lesson, error)
}

type MaterialService interface {
	MaxUploadSize() int64
	Upload(ctx context.Context, actor domain.Actor, in usecase.UploadInput) (*domain.Material, error)
	List(ctx context.Context, actor domain.Actor, filter domain.MaterialFilter) ([]*domain.Material, int64, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Material, error)
	Update(ctx context.Context, actor domain.Actor, id string, upd domain.MaterialUpdate) (*domain.Material, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
	Download(ctx context.Context, actor domain.Actor, id string) (*usecase.DownloadLink, error)
}

type OrganizationService interface {
	Create(ctx context.Context, actor domain.Actor, in usecase.CreateOrganizationInput) (*domain.Organization, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Organization, error)
	List(ctx context.Context, actor domain.Actor, page, limit int64) ([]*domain.Organization, int64, error)
	Update(ctx context.Context, actor domain.Actor, id string, upd domain.OrganizationUpdate) (*domain.Organization, error)
	AddMember(ctx context.Context, actor domain.Actor, id, userID string, role domain.MemberRole) (*domain.Organization, error)
	RemoveMember(ctx context.Context, actor domain.Actor, id, userID string) (*domain.Organization, error)
	Deactivate(ctx context.Context, actor domain.Actor, id string) error
}

type NotificationService interface {
	ListMine(ctx context.Context, actor domain.Actor, unreadOnly bool, page, limit int64) ([]*domain.Notification, int64, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int64, error)
	MarkRead(ctx context.Context, actor domain.Actor, id string) error
	MarkAllRead(ctx context.Context, actor domain.Actor) (int64, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
}

type PaymentService interface {
	CreateForReservation(ctx context.Context, actor domain.Actor, reservationID string) (*domain.Payment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, actor domain.Actor, id string) (*domain.Payment, error)
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Payment, error)
	ListMine(ctx context.Context, actor domain.Actor, page, limit int64) ([]*domain.Payment, int64, error)
	List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, int64, error)
}

type RoleService interface {
	PermissionChecker
	Create(ctx context.Context, actor domain.Actor, in usecase.CreateRoleInput) (*domain.RoleDefinition, error)
	List(ctx context.Context, includeInactive bool) ([]*domain.RoleDefinition, error)
	Update(ctx context.Context, actor domain.Actor, id string, in usecase.UpdateRoleInput) (*domain.RoleDefinition, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
}

type AuditService interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, int64, error)
}

// NotificationStream upgrades a request into a live notification feed.
type NotificationStream interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}
