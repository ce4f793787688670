package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

// SessionUsecase gates entry into live lesson rooms.
type SessionUsecase struct {
	reservations domain.ReservationRepository
	lessons      domain.LessonRepository
	users        domain.UserRepository
	rooms        RoomTokenIssuer
	metrics      Metrics
	earlyJoin    time.Duration
	tokenGrace   time.Duration
	logger       *logger.Logger
	now          func() time.Time
}

func NewSessionUsecase(
	reservations domain.ReservationRepository,
	lessons domain.LessonRepository,
	users domain.UserRepository,
	rooms RoomTokenIssuer,
	metrics Metrics,
	earlyJoin, tokenGrace time.Duration,
	log *logger.Logger,
) *SessionUsecase {
	if earlyJoin <= 0 {
		earlyJoin = domain.DefaultEarlyJoin
	}
	return &SessionUsecase{
		reservations: reservations,
		lessons:      lessons,
		users:        users,
		rooms:        rooms,
		metrics:      metricsOrNop(metrics),
		earlyJoin:    earlyJoin,
		tokenGrace:   tokenGrace,
		logger:       log.Named("SessionUsecase"),
		now:          time.Now,
	}
}

// AccessStatus reports the access window and whether joining is allowed now.
func (uc *SessionUsecase) AccessStatus(ctx context.Context, actor domain.Actor, reservationID string) (*domain.AccessDecision, error) {
	res, err := uc.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !res.IsParticipant(actor.UserID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, domain.MsgNotParticipant)
	}
	d := domain.CheckAccess(res, actor.UserID, uc.now(), uc.earlyJoin)
	return &d, nil
}

// JoinResult is what a client needs to connect to the room.
type JoinResult struct {
	Token     string              `json:"token"`
	ServerURL string              `json:"serverUrl"`
	RoomName  string              `json:"roomName"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Window    domain.AccessWindow `json:"window"`
	LessonID  string              `json:"lessonId,omitempty"`
}

// Join checks the access window and mints a room token.
func (uc *SessionUsecase) Join(ctx context.Context, actor domain.Actor, reservationID string) (*JoinResult, error) {
	uc.logger.Info("Join requested", zap.String("reservation_id", reservationID), zap.String("user_id", actor.UserID))

	res, err := uc.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	now := uc.now()
	decision := domain.CheckAccess(res, actor.UserID, now, uc.earlyJoin)
	if !decision.Allowed {
		uc.metrics.SessionJoin("denied")
		uc.logger.Info("Join denied", zap.String("reservation_id", reservationID), zap.String("user_id", actor.UserID), zap.String("reason", decision.Reason))
		return nil, decision.Err()
	}

	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	room := res.RoomName
	if room == "" {
		room = domain.RoomNameFor(res.ID)
	}
	expires := res.EndsAt.Add(uc.tokenGrace)
	token, err := uc.rooms.Issue(RoomGrant{
		Room:        room,
		Identity:    user.ID,
		Name:        user.Name,
		Role:        user.Role,
		IsModerator: user.ID == res.TeacherID,
		NotBefore:   now,
		ExpiresAt:   expires,
	})
	if err != nil {
		uc.metrics.SessionJoin("error")
		uc.logger.Error("Failed to issue room token", zap.Error(err), zap.String("reservation_id", reservationID))
		return nil, fmt.Errorf("%w: cannot issue room token: %v", domain.ErrExternal, err)
	}

	lesson := uc.startLesson(ctx, res, now)
	uc.metrics.SessionJoin("allowed")

	result := &JoinResult{
		Token:     token,
		ServerURL: uc.rooms.ServerURL(),
		RoomName:  room,
		ExpiresAt: expires,
		Window:    decision.Window,
	}
	if lesson != nil {
		result.LessonID = lesson.ID
	}
	return result, nil
}

// startLesson marks the lesson in progress on first join, creating it if the
// confirm step could not.
func (uc *SessionUsecase) startLesson(ctx context.Context, res *domain.Reservation, now time.Time) *domain.Lesson {
	lesson, err := uc.lessons.GetByReservationID(ctx, res.ID)
	if errors.Is(err, domain.ErrNotFound) {
		lesson, err = domain.NewLessonFor(res, now)
		if err == nil {
			err = uc.lessons.Create(ctx, lesson)
		}
		if err != nil {
			uc.logger.Warn("Failed to create lesson on join", zap.Error(err), zap.String("reservation_id", res.ID))
			return nil
		}
	} else if err != nil {
		uc.logger.Warn("Failed to load lesson on join", zap.Error(err), zap.String("reservation_id", res.ID))
		return nil
	}

	if lesson.Start(now) {
		if err := uc.lessons.Update(ctx, lesson); err != nil {
			uc.logger.Warn("Failed to mark lesson in progress", zap.Error(err), zap.String("lesson_id", lesson.ID))
		}
	}
	return lesson
}
