package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func lessonWith(status domain.LessonStatus) *domain.Lesson {
	return &domain.Lesson{
		ID:            "l1",
		ReservationID: "r1",
		TeacherID:     "t1",
		StudentID:     "s1",
		Status:        status,
	}
}

func newLessonUsecase(lessons *MockLessonRepository) *LessonUsecase {
	uc := NewLessonUsecase(lessons, logger.NewNop())
	uc.now = fixedClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	return uc
}

func TestLessonUsecase_Get(t *testing.T) {
	ctx := context.Background()
	lessons := new(MockLessonRepository)
	uc := newLessonUsecase(lessons)
	lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonScheduled), nil)

	for _, actor := range []domain.Actor{student, teacherAct, adminAct} {
		got, err := uc.Get(ctx, actor, "l1")
		require.NoError(t, err, actor.UserID)
		assert.Equal(t, "l1", got.ID)
	}

	_, err := uc.Get(ctx, domain.Actor{UserID: "x", Role: domain.RoleStudent}, "l1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLessonUsecase_AddNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher saves trimmed notes", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lesson := lessonWith(domain.LessonCompleted)
		lessons.On("GetByID", ctx, "l1").Return(lesson, nil)
		lessons.On("Update", ctx, lesson).Return(nil)

		got, err := uc.AddNotes(ctx, teacherAct, "l1", "  practise past tense \n")
		require.NoError(t, err)
		assert.Equal(t, "practise past tense", got.TeacherNotes)
		lessons.AssertExpectations(t)
	})

	t.Run("student cannot add notes", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonCompleted), nil)

		_, err := uc.AddNotes(ctx, student, "l1", "notes")
		assert.ErrorIs(t, err, domain.ErrForbidden)
		lessons.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("admin is not the teacher", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonCompleted), nil)

		_, err := uc.AddNotes(ctx, adminAct, "l1", "notes")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonCompleted), nil)

		_, err := uc.AddNotes(ctx, domain.Actor{UserID: "t9", Role: domain.RoleTeacher}, "l1", "notes")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestLessonUsecase_Rate(t *testing.T) {
	ctx := context.Background()

	t.Run("student rates a completed lesson", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lesson := lessonWith(domain.LessonCompleted)
		lessons.On("GetByID", ctx, "l1").Return(lesson, nil)
		lessons.On("Update", ctx, lesson).Return(nil)

		got, err := uc.Rate(ctx, student, "l1", 5, " great ")
		require.NoError(t, err)
		assert.Equal(t, 5, got.Rating)
		assert.Equal(t, "great", got.StudentFeedback)
	})

	t.Run("only once", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lesson := lessonWith(domain.LessonCompleted)
		lesson.Rating = 4
		lessons.On("GetByID", ctx, "l1").Return(lesson, nil)

		_, err := uc.Rate(ctx, student, "l1", 5, "")
		assert.ErrorIs(t, err, domain.ErrConflict)
		assert.Equal(t, 4, lesson.Rating)
		lessons.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("teacher cannot rate", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonCompleted), nil)

		_, err := uc.Rate(ctx, teacherAct, "l1", 5, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("outsider is forbidden", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonCompleted), nil)

		_, err := uc.Rate(ctx, domain.Actor{UserID: "s9", Role: domain.RoleStudent}, "l1", 5, "")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("not yet completed", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonInProgress), nil)

		_, err := uc.Rate(ctx, student, "l1", 5, "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("rating out of range", func(t *testing.T) {
		lessons := new(MockLessonRepository)
		uc := newLessonUsecase(lessons)
		lessons.On("GetByID", ctx, "l1").Return(lessonWith(domain.LessonCompleted), nil)

		_, err := uc.Rate(ctx, student, "l1", 6, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLessonUsecase_ListMine(t *testing.T) {
	ctx := context.Background()
	lessons := new(MockLessonRepository)
	uc := newLessonUsecase(lessons)
	lessons.On("List", ctx, mock.MatchedBy(func(f domain.LessonFilter) bool {
		return f.ParticipantID == "s1" && f.Status != nil && *f.Status == domain.LessonCompleted
	})).Return([]*domain.Lesson{lessonWith(domain.LessonCompleted)}, int64(1), nil)

	items, total, err := uc.ListMine(ctx, student, domain.LessonCompleted, 1, 20)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), total)

	_, _, err = uc.ListMine(ctx, student, "bogus", 1, 20)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
