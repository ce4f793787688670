package domain

import (
	"fmt"
	"strings"
	"time"
)

type LessonStatus string

const (
	LessonScheduled  LessonStatus = "scheduled"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
	LessonCancelled  LessonStatus = "cancelled"
)

func (s LessonStatus) IsValid() bool {
	switch s {
	case LessonScheduled, LessonInProgress, LessonCompleted, LessonCancelled:
		return true
	}
	return false
}

// Lesson is the record of a confirmed reservation's live session.
type Lesson struct {
	ID              string       `json:"id"`
	ReservationID   string       `json:"reservationId"`
	TeacherID       string       `json:"teacherId"`
	StudentID       string       `json:"studentId"`
	Type            LessonType   `json:"type"`
	Level           CEFRLevel    `json:"level,omitempty"`
	StartsAt        time.Time    `json:"startsAt"`
	EndsAt          time.Time    `json:"endsAt"`
	Status          LessonStatus `json:"status"`
	RoomName        string       `json:"roomName"`
	TeacherNotes    string       `json:"teacherNotes,omitempty"`
	Rating          int          `json:"rating,omitempty"`
	StudentFeedback string       `json:"studentFeedback,omitempty"`
	StartedAt       *time.Time   `json:"startedAt,omitempty"`
	CompletedAt     *time.Time   `json:"completedAt,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// NewLessonFor builds the lesson of a confirmed reservation.
func NewLessonFor(r *Reservation, now time.Time) (*Lesson, error) {
	if r.Status != ReservationConfirmed {
		return nil, fmt.Errorf("%w: lesson requires a confirmed reservation", ErrInvalidTransition)
	}
	now = now.UTC()
	return &Lesson{
		ReservationID: r.ID,
		TeacherID:     r.TeacherID,
		StudentID:     r.StudentID,
		Type:          r.LessonType,
		Level:         r.LessonLevel,
		StartsAt:      r.StartsAt,
		EndsAt:        r.EndsAt,
		Status:        LessonScheduled,
		RoomName:      r.RoomName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (l *Lesson) IsParticipant(userID string) bool {
	return userID != "" && (l.TeacherID == userID || l.StudentID == userID)
}

// Start moves a scheduled lesson in progress. Starting twice is a no-op.
func (l *Lesson) Start(now time.Time) bool {
	if l.Status != LessonScheduled {
		return false
	}
	t := now.UTC()
	l.Status = LessonInProgress
	l.StartedAt = &t
	l.UpdatedAt = t
	return true
}

func (l *Lesson) Complete(now time.Time) error {
	if l.Status != LessonScheduled && l.Status != LessonInProgress {
		return fmt.Errorf("%w: lesson is %s", ErrInvalidTransition, l.Status)
	}
	t := now.UTC()
	l.Status = LessonCompleted
	l.CompletedAt = &t
	l.UpdatedAt = t
	return nil
}

func (l *Lesson) Cancel(now time.Time) error {
	if l.Status == LessonCompleted {
		return fmt.Errorf("%w: lesson is already completed", ErrInvalidTransition)
	}
	l.Status = LessonCancelled
	l.UpdatedAt = now.UTC()
	return nil
}

// Rate stores the student's rating once the lesson is completed.
func (l *Lesson) Rate(rating int, feedback string, now time.Time) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if l.Status != LessonCompleted {
		return fmt.Errorf("%w: only completed lessons can be rated", ErrInvalidTransition)
	}
	if l.Rating != 0 {
		return fmt.Errorf("%w: lesson has already been rated", ErrConflict)
	}
	l.Rating = rating
	l.StudentFeedback = strings.TrimSpace(feedback)
	l.UpdatedAt = now.UTC()
	return nil
}

type LessonFilter struct {
	Page          int64
	Limit         int64
	ParticipantID string
	Status        *LessonStatus
}
