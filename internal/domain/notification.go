package domain

import "time"

type NotificationType string

const (
	NotifyReservationCreated   NotificationType = "reservation_created"
	NotifyReservationConfirmed NotificationType = "reservation_confirmed"
	NotifyReservationCancelled NotificationType = "reservation_cancelled"
	NotifyReservationCompleted NotificationType = "reservation_completed"
	NotifyPaymentSucceeded     NotificationType = "payment_succeeded"
	NotifyPaymentFailed        NotificationType = "payment_failed"
	NotifySystem               NotificationType = "system"
)

type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	IsRead    bool                   `json:"isRead"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

type NotificationFilter struct {
	Page       int64
	Limit      int64
	UserID     string
	UnreadOnly bool
}
