package domain

import (
	"fmt"
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
	ReservationNoShow    ReservationStatus = "no_show"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted, ReservationNoShow:
		return true
	}
	return false
}

// IsActive reports whether the reservation still occupies its slot.
func (s ReservationStatus) IsActive() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled},
	ReservationConfirmed: {ReservationCancelled, ReservationCompleted, ReservationNoShow},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type LessonType string

const (
	LessonConversation  LessonType = "conversation"
	LessonGrammar       LessonType = "grammar"
	LessonBusiness      LessonType = "business"
	LessonExamPrep      LessonType = "exam_prep"
	LessonPronunciation LessonType = "pronunciation"
)

func (t LessonType) IsValid() bool {
	switch t {
	case LessonConversation, LessonGrammar, LessonBusiness, LessonExamPrep, LessonPronunciation:
		return true
	}
	return false
}

const DateLayout = "2006-01-02"

// Reservation is a booked lesson slot between a student and a teacher.
// ActualDate, StartTime and EndTime are wall-clock strings in the booking
// timezone; StartsAt and EndsAt are the instants derived from them.
type Reservation struct {
	ID                 string            `json:"id"`
	StudentID          string            `json:"studentId"`
	TeacherID          string            `json:"teacherId"`
	LessonType         LessonType        `json:"lessonType"`
	LessonLevel        CEFRLevel         `json:"lessonLevel"`
	ActualDate         string            `json:"actualDate"`
	StartTime          string            `json:"startTime"`
	EndTime            string            `json:"endTime"`
	StartsAt           time.Time         `json:"startsAt"`
	EndsAt             time.Time         `json:"endsAt"`
	Status             ReservationStatus `json:"status"`
	RoomName           string            `json:"roomName,omitempty"`
	Price              int64             `json:"price"`
	PaymentID          string            `json:"paymentId,omitempty"`
	CancelledBy        string            `json:"cancelledBy,omitempty"`
	CancellationReason string            `json:"cancellationReason,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	Version            int64             `json:"version"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// ParseSchedule turns a date and two clock strings into instants in loc.
func ParseSchedule(date, start, end string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, date)
	}
	s, err := ParseClock(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e <= s {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	return s.On(day, loc), e.On(day, loc), nil
}

// BookingRules are the limits applied when a reservation is created.
type BookingRules struct {
	Location    *time.Location
	MinDuration time.Duration
	MaxDuration time.Duration
	MinLeadTime time.Duration
}

// NewReservationInput is the student-supplied part of a booking.
type NewReservationInput struct {
	StudentID   string
	TeacherID   string
	Date        string
	StartTime   string
	EndTime     string
	LessonType  LessonType
	LessonLevel CEFRLevel
	Notes       string
}

// NewReservation validates the input against rules at time now.
// Teacher existence, availability and overlap are checked by the caller.
func NewReservation(in NewReservationInput, rules BookingRules, now time.Time) (*Reservation, error) {
	if in.StudentID == "" || in.TeacherID == "" {
		return nil, fmt.Errorf("%w: student and teacher are required", ErrInvalidInput)
	}
	if in.StudentID == in.TeacherID {
		return nil, fmt.Errorf("%w: cannot book a lesson with yourself", ErrInvalidInput)
	}
	if !in.LessonType.IsValid() {
		return nil, fmt.Errorf("%w: unknown lesson type %q", ErrInvalidInput, in.LessonType)
	}
	if in.LessonLevel != "" && !in.LessonLevel.IsValid() {
		return nil, fmt.Errorf("%w: unknown CEFR level %q", ErrInvalidInput, in.LessonLevel)
	}
	loc := rules.Location
	if loc == nil {
		loc = time.UTC
	}
	startsAt, endsAt, err := ParseSchedule(in.Date, in.StartTime, in.EndTime, loc)
	if err != nil {
		return nil, err
	}
	duration := endsAt.Sub(startsAt)
	if rules.MinDuration > 0 && duration < rules.MinDuration {
		return nil, fmt.Errorf("%w: lesson must last at least %s", ErrInvalidInput, rules.MinDuration)
	}
	if rules.MaxDuration > 0 && duration > rules.MaxDuration {
		return nil, fmt.Errorf("%w: lesson cannot last longer than %s", ErrInvalidInput, rules.MaxDuration)
	}
	if startsAt.Before(now.Add(rules.MinLeadTime)) {
		return nil, fmt.Errorf("%w: lesson must be booked at least %s in advance", ErrInvalidInput, rules.MinLeadTime)
	}

	created := now.UTC()
	return &Reservation{
		StudentID:   in.StudentID,
		TeacherID:   in.TeacherID,
		LessonType:  in.LessonType,
		LessonLevel: in.LessonLevel,
		ActualDate:  startsAt.Format(DateLayout),
		StartTime:   startsAt.Format("15:04"),
		EndTime:     endsAt.Format("15:04"),
		StartsAt:    startsAt.UTC(),
		EndsAt:      endsAt.UTC(),
		Status:      ReservationPending,
		Notes:       strings.TrimSpace(in.Notes),
		Version:     1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}, nil
}

func (r *Reservation) Duration() time.Duration {
	return r.EndsAt.Sub(r.StartsAt)
}

// IsParticipant reports whether userID is the student or the teacher.
func (r *Reservation) IsParticipant(userID string) bool {
	return userID != "" && (r.StudentID == userID || r.TeacherID == userID)
}

// Overlaps reports whether [start, end) intersects the reservation.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return start.Before(r.EndsAt) && end.After(r.StartsAt)
}

// PriceFor charges hourlyRate pro rata for the reservation length.
func PriceFor(hourlyRate int64, d time.Duration) int64 {
	return hourlyRate * int64(d/time.Minute) / 60
}

func (r *Reservation) transition(to ReservationStatus, now time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = now.UTC()
	return nil
}

// RoomNameFor is the LiveKit room used for a reservation.
func RoomNameFor(reservationID string) string {
	return "verbfy-" + reservationID
}

// Confirm accepts a pending reservation and assigns its room.
func (r *Reservation) Confirm(now time.Time) error {
	if !now.Before(r.EndsAt) {
		return fmt.Errorf("%w: reservation has already ended", ErrInvalidTransition)
	}
	if err := r.transition(ReservationConfirmed, now); err != nil {
		return err
	}
	r.RoomName = RoomNameFor(r.ID)
	return nil
}

// Cancel is only possible before the lesson starts.
func (r *Reservation) Cancel(by, reason string, now time.Time) error {
	if !now.Before(r.StartsAt) {
		return fmt.Errorf("%w: reservation has already started", ErrInvalidTransition)
	}
	if err := r.transition(ReservationCancelled, now); err != nil {
		return err
	}
	r.CancelledBy = by
	r.CancellationReason = strings.TrimSpace(reason)
	return nil
}

// Complete is only possible once the lesson has started.
func (r *Reservation) Complete(now time.Time) error {
	if now.Before(r.StartsAt) {
		return fmt.Errorf("%w: reservation has not started yet", ErrInvalidTransition)
	}
	return r.transition(ReservationCompleted, now)
}

// MarkNoShow is only possible once the lesson has ended.
func (r *Reservation) MarkNoShow(now time.Time) error {
	if now.Before(r.EndsAt) {
		return fmt.Errorf("%w: reservation has not ended yet", ErrInvalidTransition)
	}
	return r.transition(ReservationNoShow, now)
}

// ReservationFilter selects reservations. Zero values mean "any".
type ReservationFilter struct {
	Page      int64
	Limit     int64
	StudentID string
	TeacherID string
	// ParticipantID matches either side of the reservation.
	ParticipantID string
	Statuses      []ReservationStatus
	From          *time.Time
	To            *time.Time
}
