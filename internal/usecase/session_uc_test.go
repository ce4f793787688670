package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var lessonStart = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func confirmedReservation() *domain.Reservation {
	return &domain.Reservation{
		ID:        "r1",
		StudentID: "s1",
		TeacherID: "t1",
		StartsAt:  lessonStart,
		EndsAt:    lessonStart.Add(time.Hour),
		Status:    domain.ReservationConfirmed,
		RoomName:  "verbfy-r1",
	}
}

type sessionFixture struct {
	reservations *MockReservationRepository
	lessons      *MockLessonRepository
	users        *MockUserRepository
	rooms        *MockRoomTokenIssuer
	metrics      *recordingMetrics
	uc           *SessionUsecase
}

func newSessionFixture(now time.Time) *sessionFixture {
	f := &sessionFixture{
		reservations: new(MockReservationRepository),
		lessons:      new(MockLessonRepository),
		users:        new(MockUserRepository),
		rooms:        new(MockRoomTokenIssuer),
		metrics:      &recordingMetrics{},
	}
	f.uc = NewSessionUsecase(f.reservations, f.lessons, f.users, f.rooms, f.metrics, 15*time.Minute, 10*time.Minute, logger.NewNop())
	f.uc.now = fixedClock(now)
	return f
}

func TestSessionUsecase_JoinWindow(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		now     time.Time
		userID  string
		status  domain.ReservationStatus
		allowed bool
		wantErr error
	}{
		{name: "sixteen minutes early", now: lessonStart.Add(-16 * time.Minute), userID: "s1", wantErr: domain.ErrAccessWindow},
		{name: "exactly fifteen minutes early", now: lessonStart.Add(-15 * time.Minute), userID: "s1", allowed: true},
		{name: "during lesson", now: lessonStart.Add(30 * time.Minute), userID: "t1", allowed: true},
		{name: "exactly at end", now: lessonStart.Add(time.Hour), userID: "s1", allowed: true},
		{name: "after end", now: lessonStart.Add(time.Hour + time.Second), userID: "s1", wantErr: domain.ErrAccessWindow},
		{name: "not a participant", now: lessonStart, userID: "x", wantErr: domain.ErrForbidden},
		{name: "pending reservation", now: lessonStart, userID: "s1", status: domain.ReservationPending, wantErr: domain.ErrAccessWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(tt.now)
			res := confirmedReservation()
			if tt.status != "" {
				res.Status = tt.status
			}
			f.reservations.On("GetByID", ctx, "r1").Return(res, nil)
			if tt.allowed {
				f.users.On("GetByID", ctx, tt.userID).Return(&domain.User{ID: tt.userID, Name: "U", Role: domain.RoleStudent}, nil)
				f.rooms.On("Issue", mock.AnythingOfType("usecase.RoomGrant")).Return("room-token", nil)
				f.lessons.On("GetByReservationID", ctx, "r1").Return(&domain.Lesson{ID: "l1", Status: domain.LessonInProgress}, nil)
			}

			result, err := f.uc.Join(ctx, domain.Actor{UserID: tt.userID}, "r1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				assert.Equal(t, []string{"denied"}, f.metrics.joins)
				f.rooms.AssertNotCalled(t, "Issue", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "room-token", result.Token)
			assert.Equal(t, "verbfy-r1", result.RoomName)
			assert.Equal(t, "wss://livekit.test", result.ServerURL)
			assert.Equal(t, "l1", result.LessonID)
			assert.Equal(t, []string{"allowed"}, f.metrics.joins)
		})
	}
}

func TestSessionUsecase_JoinGrant(t *testing.T) {
	ctx := context.Background()
	now := lessonStart.Add(-5 * time.Minute)
	f := newSessionFixture(now)
	f.reservations.On("GetByID", ctx, "r1").Return(confirmedReservation(), nil)
	f.users.On("GetByID", ctx, "t1").Return(&domain.User{ID: "t1", Name: "Tina", Role: domain.RoleTeacher}, nil)
	f.rooms.On("Issue", RoomGrant{
		Room:        "verbfy-r1",
		Identity:    "t1",
		Name:        "Tina",
		Role:        domain.RoleTeacher,
		IsModerator: true,
		NotBefore:   now,
		ExpiresAt:   lessonStart.Add(time.Hour + 10*time.Minute),
	}).Return("tok", nil)
	f.lessons.On("GetByReservationID", ctx, "r1").Return(nil, domain.ErrNotFound)
	f.lessons.On("Create", ctx, mock.AnythingOfType("*domain.Lesson")).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Lesson).ID = "l9" }).
		Return(nil)
	f.lessons.On("Update", ctx, mock.MatchedBy(func(l *domain.Lesson) bool { return l.Status == domain.LessonInProgress })).Return(nil)

	result, err := f.uc.Join(ctx, teacherAct, "r1")
	require.NoError(t, err)
	assert.Equal(t, "l9", result.LessonID)
	assert.Equal(t, lessonStart.Add(-15*time.Minute), result.Window.OpensAt)
	f.rooms.AssertExpectations(t)
	f.lessons.AssertExpectations(t)
}

func TestSessionUsecase_JoinTokenFailure(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(lessonStart)
	f.reservations.On("GetByID", ctx, "r1").Return(confirmedReservation(), nil)
	f.users.On("GetByID", ctx, "s1").Return(&domain.User{ID: "s1"}, nil)
	f.rooms.On("Issue", mock.Anything).Return("", errors.New("bad secret"))

	_, err := f.uc.Join(ctx, student, "r1")
	assert.ErrorIs(t, err, domain.ErrExternal)
	assert.Equal(t, []string{"error"}, f.metrics.joins)
}

func TestSessionUsecase_AccessStatus(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture(lessonStart.Add(-20 * time.Minute))
	f.reservations.On("GetByID", ctx, "r1").Return(confirmedReservation(), nil)

	d, err := f.uc.AccessStatus(ctx, student, "r1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "lesson room opens 15 minutes before the start time", d.Reason)
	assert.Equal(t, int64(300), d.OpensInSeconds)

	d, err = f.uc.AccessStatus(ctx, domain.Actor{UserID: "a1", Role: domain.RoleAdmin}, "r1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	_, err = f.uc.AccessStatus(ctx, domain.Actor{UserID: "x", Role: domain.RoleStudent}, "r1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
