package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

// BookingPolicy groups the tunables shared by availability and reservations.
type BookingPolicy struct {
	Rules        domain.BookingRules
	SlotStep     time.Duration
	MaxRangeDays int
	LockTTL      time.Duration
}

func (p BookingPolicy) location() *time.Location {
	if p.Rules.Location == nil {
		return time.UTC
	}
	return p.Rules.Location
}

type AvailabilityUsecase struct {
	availability domain.AvailabilityRepository
	reservations domain.ReservationRepository
	users        domain.UserRepository
	policy       BookingPolicy
	logger       *logger.Logger
	now          func() time.Time
}

func NewAvailabilityUsecase(
	availability domain.AvailabilityRepository,
	reservations domain.ReservationRepository,
	users domain.UserRepository,
	policy BookingPolicy,
	log *logger.Logger,
) *AvailabilityUsecase {
	return &AvailabilityUsecase{
		availability: availability,
		reservations: reservations,
		users:        users,
		policy:       policy,
		logger:       log.Named("AvailabilityUsecase"),
		now:          time.Now,
	}
}

// WindowInput is one weekly window as submitted by a teacher.
type WindowInput struct {
	DayOfWeek int
	StartTime string
	EndTime   string
}

// SetWeekly replaces the teacher's weekly availability.
func (uc *AvailabilityUsecase) SetWeekly(ctx context.Context, actor domain.Actor, in []WindowInput) ([]domain.Availability, error) {
	if actor.Role != domain.RoleTeacher {
		return nil, fmt.Errorf("%w: only teachers have availability", domain.ErrForbidden)
	}
	now := uc.now().UTC()
	windows := make([]domain.Availability, 0, len(in))
	for _, w := range in {
		windows = append(windows, domain.Availability{
			TeacherID: actor.UserID,
			DayOfWeek: time.Weekday(w.DayOfWeek),
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if err := domain.ValidateWeek(windows); err != nil {
		return nil, err
	}

	saved, err := uc.availability.ReplaceForTeacher(ctx, actor.UserID, windows)
	if err != nil {
		uc.logger.Error("Failed to save availability", zap.Error(err), zap.String("teacher_id", actor.UserID))
		return nil, err
	}
	uc.logger.Info("Availability updated", zap.String("teacher_id", actor.UserID), zap.Int("windows", len(saved)))
	return saved, nil
}

func (uc *AvailabilityUsecase) List(ctx context.Context, teacherID string) ([]domain.Availability, error) {
	return uc.availability.ListByTeacher(ctx, teacherID)
}

// SlotsInput: From and To are YYYY-MM-DD in the booking timezone.
type SlotsInput struct {
	TeacherID string
	From      string
	To        string
	Duration  time.Duration
}

// Slots lists the teacher's bookable slots in the date range.
func (uc *AvailabilityUsecase) Slots(ctx context.Context, in SlotsInput) ([]domain.Slot, error) {
	loc := uc.policy.location()
	from, err := time.ParseInLocation(domain.DateLayout, in.From, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: from must be YYYY-MM-DD", domain.ErrInvalidInput)
	}
	to := from
	if in.To != "" {
		if to, err = time.ParseInLocation(domain.DateLayout, in.To, loc); err != nil {
			return nil, fmt.Errorf("%w: to must be YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end is before range start", domain.ErrInvalidInput)
	}
	if limit := uc.policy.MaxRangeDays; limit > 0 && to.Sub(from) >= time.Duration(limit)*24*time.Hour {
		return nil, fmt.Errorf("%w: range cannot exceed %d days", domain.ErrInvalidInput, limit)
	}
	duration := in.Duration
	if duration == 0 {
		duration = time.Hour
	}
	rules := uc.policy.Rules
	if (rules.MinDuration > 0 && duration < rules.MinDuration) || (rules.MaxDuration > 0 && duration > rules.MaxDuration) {
		return nil, fmt.Errorf("%w: duration must be between %s and %s", domain.ErrInvalidInput, rules.MinDuration, rules.MaxDuration)
	}

	teacher, err := uc.users.GetByID(ctx, in.TeacherID)
	if err != nil {
		return nil, err
	}
	if !teacher.CanTeach() {
		return nil, fmt.Errorf("%w: teacher not found", domain.ErrNotFound)
	}

	windows, err := uc.availability.ListByTeacher(ctx, in.TeacherID)
	if err != nil {
		return nil, err
	}
	booked, err := uc.reservations.FindOverlapping(ctx, []string{in.TeacherID}, from, to.AddDate(0, 0, 1))
	if err != nil {
		uc.logger.Error("Failed to load reservations for slots", zap.Error(err), zap.String("teacher_id", in.TeacherID))
		return nil, err
	}

	return domain.ComputeSlots(windows, booked, domain.SlotQuery{
		From:         from,
		To:           to,
		Duration:     duration,
		Step:         uc.policy.SlotStep,
		NotBefore:    uc.now().Add(rules.MinLeadTime),
		Location:     loc,
		MaxRangeDays: uc.policy.MaxRangeDays,
	})
}
