package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

type ReservationUsecase struct {
	reservations domain.ReservationRepository
	lessons      domain.LessonRepository
	users        domain.UserRepository
	availability domain.AvailabilityRepository
	locker       Locker
	publisher    EventPublisher
	auditor      Auditor
	metrics      Metrics
	policy       BookingPolicy
	logger       *logger.Logger
	now          func() time.Time
}

func NewReservationUsecase(
	reservations domain.ReservationRepository,
	lessons domain.LessonRepository,
	users domain.UserRepository,
	availability domain.AvailabilityRepository,
	locker Locker,
	publisher EventPublisher,
	auditor Auditor,
	metrics Metrics,
	policy BookingPolicy,
	log *logger.Logger,
) *ReservationUsecase {
	return &ReservationUsecase{
		reservations: reservations,
		lessons:      lessons,
		users:        users,
		availability: availability,
		locker:       locker,
		publisher:    publisher,
		auditor:      auditorOrNop(auditor),
		metrics:      metricsOrNop(metrics),
		policy:       policy,
		logger:       log.Named("ReservationUsecase"),
		now:          time.Now,
	}
}

type BookInput struct {
	TeacherID   string
	Date        string
	StartTime   string
	EndTime     string
	LessonType  domain.LessonType
	LessonLevel domain.CEFRLevel
	Notes       string
}

func bookingLockKey(userID string) string {
	return "lock:booking:" + userID
}

// Book creates a pending reservation for the acting student.
func (uc *ReservationUsecase) Book(ctx context.Context, actor domain.Actor, in BookInput) (*domain.Reservation, error) {
	uc.logger.Info("Booking reservation",
		zap.String("student_id", actor.UserID),
		zap.String("teacher_id", in.TeacherID),
		zap.String("date", in.Date),
		zap.String("start", in.StartTime),
		zap.String("end", in.EndTime))

	if actor.Role != domain.RoleStudent {
		return nil, fmt.Errorf("%w: only students can book lessons", domain.ErrForbidden)
	}
	now := uc.now()
	res, err := domain.NewReservation(domain.NewReservationInput{
		StudentID:   actor.UserID,
		TeacherID:   in.TeacherID,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		LessonType:  in.LessonType,
		LessonLevel: in.LessonLevel,
		Notes:       in.Notes,
	}, uc.policy.Rules, now)
	if err != nil {
		return nil, err
	}

	teacher, err := uc.users.GetByID(ctx, in.TeacherID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: teacher not found", domain.ErrNotFound)
		}
		return nil, err
	}
	if !teacher.CanTeach() {
		return nil, fmt.Errorf("%w: teacher is not accepting bookings", domain.ErrInvalidInput)
	}

	windows, err := uc.availability.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, err
	}
	if !domain.FitsAvailability(windows, res.StartsAt, res.EndsAt, uc.policy.location()) {
		return nil, fmt.Errorf("%w: outside the teacher's availability", domain.ErrSlotUnavailable)
	}

	// Overlap check and insert must not interleave with another booking of the
	// same teacher or student. Keys are locked in a fixed order.
	keys := []string{bookingLockKey(res.TeacherID), bookingLockKey(res.StudentID)}
	sort.Strings(keys)
	for _, key := range keys {
		release, err := uc.locker.Acquire(ctx, key, uc.policy.LockTTL)
		if err != nil {
			uc.logger.Warn("Booking lock not acquired", zap.Error(err), zap.String("key", key))
			return nil, err
		}
		defer func(key string) {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				uc.logger.Warn("Failed to release booking lock", zap.Error(err), zap.String("key", key))
			}
		}(key)
	}

	clashes, err := uc.reservations.FindOverlapping(ctx, []string{res.TeacherID, res.StudentID}, res.StartsAt, res.EndsAt)
	if err != nil {
		uc.logger.Error("Failed to check overlapping reservations", zap.Error(err))
		return nil, err
	}
	for _, c := range clashes {
		if c.TeacherID == res.TeacherID {
			return nil, fmt.Errorf("%w: the teacher already has a lesson at this time", domain.ErrSlotUnavailable)
		}
	}
	if len(clashes) > 0 {
		return nil, fmt.Errorf("%w: you already have a lesson at this time", domain.ErrSlotUnavailable)
	}

	res.Price = domain.PriceFor(teacher.HourlyRate, res.Duration())
	if err := uc.reservations.Create(ctx, res); err != nil {
		uc.logger.Error("Failed to save reservation", zap.Error(err))
		return nil, err
	}

	uc.afterChange(ctx, actor, res, domain.SubjectReservationCreated, domain.AuditReservationCreated, map[string]interface{}{
		"teacherId": res.TeacherID, "startsAt": res.StartsAt, "endsAt": res.EndsAt,
	})
	uc.logger.Info("Reservation created", zap.String("reservation_id", res.ID))
	return res, nil
}

// afterChange publishes, audits and counts a state change. None of it can fail the caller.
func (uc *ReservationUsecase) afterChange(ctx context.Context, actor domain.Actor, res *domain.Reservation, subject, action string, changes map[string]interface{}) {
	if uc.publisher != nil {
		if err := uc.publisher.Publish(ctx, subject, domain.NewReservationEvent(res, actor.UserID, uc.now())); err != nil {
			uc.logger.Warn("Failed to publish reservation event", zap.Error(err), zap.String("subject", subject), zap.String("reservation_id", res.ID))
		}
	}
	if changes == nil {
		changes = map[string]interface{}{}
	}
	changes["status"] = res.Status
	uc.auditor.Record(ctx, actor, action, domain.EntityReservation, res.ID, changes)
	uc.metrics.ReservationChanged(string(res.Status))
}

func (uc *ReservationUsecase) load(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error) {
	res, err := uc.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !res.IsParticipant(actor.UserID) {
		return nil, fmt.Errorf("%w: you are not a participant of this reservation", domain.ErrForbidden)
	}
	return res, nil
}

func (uc *ReservationUsecase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error) {
	return uc.load(ctx, actor, id)
}

// ListReservationsInput narrows the caller's reservations.
type ListReservationsInput struct {
	Page     int64
	Limit    int64
	Status   domain.ReservationStatus
	Upcoming bool
}

func (uc *ReservationUsecase) ListMine(ctx context.Context, actor domain.Actor, in ListReservationsInput) ([]*domain.Reservation, int64, error) {
	filter := domain.ReservationFilter{ParticipantID: actor.UserID}
	filter.Page, filter.Limit = domain.NormalizePage(in.Page, in.Limit)
	if in.Status != "" {
		if !in.Status.IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, in.Status)
		}
		filter.Statuses = []domain.ReservationStatus{in.Status}
	}
	if in.Upcoming {
		now := uc.now().UTC()
		filter.From = &now
	}
	return uc.reservations.List(ctx, filter)
}

func (uc *ReservationUsecase) requireTeacher(actor domain.Actor, res *domain.Reservation) error {
	if actor.IsAdmin() || res.TeacherID == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: only the teacher can do this", domain.ErrForbidden)
}

// Confirm accepts a pending reservation and schedules its lesson.
func (uc *ReservationUsecase) Confirm(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error) {
	uc.logger.Info("Confirming reservation", zap.String("reservation_id", id), zap.String("actor_id", actor.UserID))
	res, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := uc.requireTeacher(actor, res); err != nil {
		return nil, err
	}
	now := uc.now()
	if err := res.Confirm(now); err != nil {
		return nil, err
	}
	if err := uc.reservations.Update(ctx, res); err != nil {
		uc.logger.Error("Failed to confirm reservation", zap.Error(err), zap.String("reservation_id", id))
		return nil, err
	}

	lesson, err := domain.NewLessonFor(res, now)
	if err == nil {
		err = uc.lessons.Create(ctx, lesson)
	}
	if err != nil && !errors.Is(err, domain.ErrConflict) {
		// The session use case creates the lesson lazily on first join.
		uc.logger.Error("Failed to create lesson for reservation", zap.Error(err), zap.String("reservation_id", id))
	}

	uc.afterChange(ctx, actor, res, domain.SubjectReservationConfirmed, domain.AuditReservationConfirmed, nil)
	return res, nil
}

func (uc *ReservationUsecase) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Reservation, error) {
	uc.logger.Info("Cancelling reservation", zap.String("reservation_id", id), zap.String("actor_id", actor.UserID))
	res, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	if err := res.Cancel(actor.UserID, reason, now); err != nil {
		return nil, err
	}
	if err := uc.reservations.Update(ctx, res); err != nil {
		uc.logger.Error("Failed to cancel reservation", zap.Error(err), zap.String("reservation_id", id))
		return nil, err
	}
	uc.updateLesson(ctx, res.ID, func(l *domain.Lesson) error { return l.Cancel(now) })
	uc.afterChange(ctx, actor, res, domain.SubjectReservationCancelled, domain.AuditReservationCancelled, map[string]interface{}{"reason": res.CancellationReason})
	return res, nil
}

func (uc *ReservationUsecase) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error) {
	res, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := uc.requireTeacher(actor, res); err != nil {
		return nil, err
	}
	now := uc.now()
	if err := res.Complete(now); err != nil {
		return nil, err
	}
	if err := uc.reservations.Update(ctx, res); err != nil {
		uc.logger.Error("Failed to complete reservation", zap.Error(err), zap.String("reservation_id", id))
		return nil, err
	}
	uc.updateLesson(ctx, res.ID, func(l *domain.Lesson) error { return l.Complete(now) })
	uc.afterChange(ctx, actor, res, domain.SubjectReservationCompleted, domain.AuditReservationCompleted, nil)
	return res, nil
}

func (uc *ReservationUsecase) MarkNoShow(ctx context.Context, actor domain.Actor, id string) (*domain.Reservation, error) {
	res, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := uc.requireTeacher(actor, res); err != nil {
		return nil, err
	}
	now := uc.now()
	if err := res.MarkNoShow(now); err != nil {
		return nil, err
	}
	if err := uc.reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	uc.updateLesson(ctx, res.ID, func(l *domain.Lesson) error { return l.Cancel(now) })
	uc.afterChange(ctx, actor, res, domain.SubjectReservationNoShow, domain.AuditReservationNoShow, nil)
	return res, nil
}

func (uc *ReservationUsecase) updateLesson(ctx context.Context, reservationID string, apply func(*domain.Lesson) error) {
	lesson, err := uc.lessons.GetByReservationID(ctx, reservationID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.logger.Warn("Failed to load lesson for reservation", zap.Error(err), zap.String("reservation_id", reservationID))
		}
		return
	}
	if err := apply(lesson); err != nil {
		uc.logger.Warn("Lesson state not updated", zap.Error(err), zap.String("lesson_id", lesson.ID))
		return
	}
	if err := uc.lessons.Update(ctx, lesson); err != nil {
		uc.logger.Warn("Failed to save lesson", zap.Error(err), zap.String("lesson_id", lesson.ID))
	}
}
