package domain

import (
	"context"
	"time"
)

// Repositories operate on domain entities; mapping to storage documents is
// the adapter's concern. List methods return the page and the total count.

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, filter UserFilter) ([]*User, int64, error)
}

type AvailabilityRepository interface {
	// ReplaceForTeacher swaps the teacher's whole week atomically per call.
	ReplaceForTeacher(ctx context.Context, teacherID string, windows []Availability) ([]Availability, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Availability, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	// Update persists r if its Version matches; Version is incremented.
	Update(ctx context.Context, r *Reservation) error
	List(ctx context.Context, filter ReservationFilter) ([]*Reservation, int64, error)
	// FindOverlapping returns active reservations of any of userIDs intersecting [start, end).
	FindOverlapping(ctx context.Context, userIDs []string, start, end time.Time) ([]*Reservation, error)
	SetPayment(ctx context.Context, id, paymentID string) error
}

type LessonRepository interface {
	Create(ctx context.Context, l *Lesson) error
	GetByID(ctx context.Context, id string) (*Lesson, error)
	GetByReservationID(ctx context.Context, reservationID string) (*Lesson, error)
	Update(ctx context.Context, l *Lesson) error
	List(ctx context.Context, filter LessonFilter) ([]*Lesson, int64, error)
}

type MaterialRepository interface {
	Create(ctx context.Context, m *Material) error
	GetByID(ctx context.Context, id string) (*Material, error)
	Update(ctx context.Context, m *Material) error
	IncrementDownloads(ctx context.Context, id string) error
	List(ctx context.Context, filter MaterialFilter) ([]*Material, int64, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	List(ctx context.Context, filter OrganizationFilter) ([]*Organization, int64, error)
}

type RoleRepository interface {
	Create(ctx context.Context, r *RoleDefinition) error
	GetByID(ctx context.Context, id string) (*RoleDefinition, error)
	GetByName(ctx context.Context, name string) (*RoleDefinition, error)
	Update(ctx context.Context, r *RoleDefinition) error
	List(ctx context.Context, includeInactive bool) ([]*RoleDefinition, error)
	// EnsureSystemRoles inserts missing system roles without touching existing ones.
	EnsureSystemRoles(ctx context.Context, roles []*RoleDefinition) error
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]*AuditLog, int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, filter NotificationFilter) ([]*Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, id string) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	GetByProviderRef(ctx context.Context, ref string) (*Payment, error)
	// FindOpenForReservation returns a pending or succeeded payment of the reservation.
	FindOpenForReservation(ctx context.Context, reservationID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	List(ctx context.Context, filter PaymentFilter) ([]*Payment, int64, error)
}
