package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

type LessonUsecase struct {
	lessons domain.LessonRepository
	logger  *logger.Logger
	now     func() time.Time
}

func NewLessonUsecase(lessons domain.LessonRepository, log *logger.Logger) *LessonUsecase {
	return &LessonUsecase{lessons: lessons, logger: log.Named("LessonUsecase"), now: time.Now}
}

func (uc *LessonUsecase) ListMine(ctx context.Context, actor domain.Actor, status domain.LessonStatus, page, limit int64) ([]*domain.Lesson, int64, error) {
	filter := domain.LessonFilter{ParticipantID: actor.UserID}
	filter.Page, filter.Limit = domain.NormalizePage(page, limit)
	if status != "" {
		if !status.IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown lesson status %q", domain.ErrInvalidInput, status)
		}
		filter.Status = &status
	}
	return uc.lessons.List(ctx, filter)
}

func (uc *LessonUsecase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Lesson, error) {
	lesson, err := uc.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !lesson.IsParticipant(actor.UserID) {
		return nil, fmt.Errorf("%w: you are not a participant of this lesson", domain.ErrForbidden)
	}
	return lesson, nil
}

func (uc *LessonUsecase) AddNotes(ctx context.Context, actor domain.Actor, id, notes string) (*domain.Lesson, error) {
	lesson, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lesson.TeacherID != actor.UserID {
		return nil, fmt.Errorf("%w: only the teacher can add notes", domain.ErrForbidden)
	}
	lesson.TeacherNotes = strings.TrimSpace(notes)
	lesson.UpdatedAt = uc.now().UTC()
	if err := uc.lessons.Update(ctx, lesson); err != nil {
		uc.logger.Error("Failed to save lesson notes", zap.Error(err), zap.String("lesson_id", id))
		return nil, err
	}
	return lesson, nil
}

func (uc *LessonUsecase) Rate(ctx context.Context, actor domain.Actor, id string, rating int, feedback string) (*domain.Lesson, error) {
	lesson, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lesson.StudentID != actor.UserID {
		return nil, fmt.Errorf("%w: only the student can rate the lesson", domain.ErrForbidden)
	}
	if err := lesson.Rate(rating, feedback, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.lessons.Update(ctx, lesson); err != nil {
		uc.logger.Error("Failed to save lesson rating", zap.Error(err), zap.String("lesson_id", id))
		return nil, err
	}
	uc.logger.Info("Lesson rated", zap.String("lesson_id", id), zap.Int("rating", rating))
	return lesson, nil
}
