package domain

import "time"

// Event subjects, relative to the configured prefix.
const (
	SubjectReservationCreated   = "reservation.created"
	SubjectReservationConfirmed = "reservation.confirmed"
	SubjectReservationCancelled = "reservation.cancelled"
	SubjectReservationCompleted = "reservation.completed"
	SubjectReservationNoShow    = "reservation.no_show"
	SubjectPaymentSucceeded     = "payment.succeeded"
	SubjectPaymentFailed        = "payment.failed"
)

// ReservationEvent is published on every reservation state change.
type ReservationEvent struct {
	ReservationID string            `json:"reservationId"`
	StudentID     string            `json:"studentId"`
	TeacherID     string            `json:"teacherId"`
	Status        ReservationStatus `json:"status"`
	ActualDate    string            `json:"actualDate"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	StartsAt      time.Time         `json:"startsAt"`
	ActorID       string            `json:"actorId"`
	Reason        string            `json:"reason,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

func NewReservationEvent(r *Reservation, actorID string, now time.Time) ReservationEvent {
	return ReservationEvent{
		ReservationID: r.ID,
		StudentID:     r.StudentID,
		TeacherID:     r.TeacherID,
		Status:        r.Status,
		ActualDate:    r.ActualDate,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		StartsAt:      r.StartsAt,
		ActorID:       actorID,
		Reason:        r.CancellationReason,
		OccurredAt:    now.UTC(),
	}
}

type PaymentEvent struct {
	PaymentID     string        `json:"paymentId"`
	UserID        string        `json:"userId"`
	ReservationID string        `json:"reservationId,omitempty"`
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	Status        PaymentStatus `json:"status"`
	OccurredAt    time.Time     `json:"occurredAt"`
}
