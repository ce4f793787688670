package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var adminAct = domain.Actor{UserID: "a1", Role: domain.RoleAdmin}

func TestUserUsecase_GetTeacherCache(t *testing.T) {
	ctx := context.Background()

	t.Run("served from cache", func(t *testing.T) {
		users, cache := new(MockUserRepository), new(MockCache)
		uc := NewUserUsecase(users, cache, nil, logger.NewNop())
		data, _ := json.Marshal(approvedTeacher().PublicProfile())
		cache.On("Get", ctx, "teacher:t1").Return(data, nil)

		teacher, err := uc.GetTeacher(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Tina", teacher.Name)
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("miss loads and caches", func(t *testing.T) {
		users, cache := new(MockUserRepository), new(MockCache)
		uc := NewUserUsecase(users, cache, nil, logger.NewNop())
		cache.On("Get", ctx, "teacher:t1").Return(nil, ErrCacheMiss)
		teacher := approvedTeacher()
		teacher.Email = "tina@private.example"
		users.On("GetByID", ctx, "t1").Return(teacher, nil)
		cache.On("Set", ctx, "teacher:t1", mock.MatchedBy(func(data []byte) bool {
			return !strings.Contains(string(data), "tina@private.example")
		}), teacherCacheTTL).Return(nil)

		got, err := uc.GetTeacher(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, int64(3000), got.HourlyRate)
		cache.AssertExpectations(t)
	})

	t.Run("directory hides private fields", func(t *testing.T) {
		users := new(MockUserRepository)
		uc := NewUserUsecase(users, nil, nil, logger.NewNop())
		teacher := approvedTeacher()
		teacher.Email = "tina@private.example"
		users.On("List", ctx, mock.MatchedBy(func(f domain.UserFilter) bool {
			return *f.Role == domain.RoleTeacher && *f.IsActive && *f.IsApproved
		})).Return([]*domain.User{teacher}, int64(1), nil)

		list, total, err := uc.ListTeachers(ctx, domain.UserFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		data, err := json.Marshal(list)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "email")
		assert.NotContains(t, string(data), "lastLoginAt")
	})

	t.Run("students are not teachers", func(t *testing.T) {
		users := new(MockUserRepository)
		uc := NewUserUsecase(users, nil, nil, logger.NewNop())
		users.On("GetByID", ctx, "s1").Return(&domain.User{ID: "s1", Role: domain.RoleStudent, IsActive: true}, nil)

		_, err := uc.GetTeacher(ctx, "s1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestUserUsecase_AdminActions(t *testing.T) {
	ctx := context.Background()

	t.Run("approve invalidates cache", func(t *testing.T) {
		users, cache := new(MockUserRepository), new(MockCache)
		uc := NewUserUsecase(users, cache, nil, logger.NewNop())
		teacher := approvedTeacher()
		teacher.IsApproved = false
		users.On("GetByID", ctx, "t1").Return(teacher, nil)
		users.On("Update", ctx, teacher).Return(nil)
		cache.On("Delete", ctx, []string{"teacher:t1"}).Return(nil)

		got, err := uc.ApproveTeacher(ctx, adminAct, "t1")
		require.NoError(t, err)
		assert.True(t, got.IsApproved)
		cache.AssertExpectations(t)
	})

	t.Run("cannot deactivate yourself", func(t *testing.T) {
		uc := NewUserUsecase(new(MockUserRepository), nil, nil, logger.NewNop())
		_, err := uc.SetActive(ctx, adminAct, "a1", false)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("promoting to teacher requires approval", func(t *testing.T) {
		users := new(MockUserRepository)
		uc := NewUserUsecase(users, nil, nil, logger.NewNop())
		u := &domain.User{ID: "s1", Role: domain.RoleStudent, IsActive: true, IsApproved: true}
		users.On("GetByID", ctx, "s1").Return(u, nil)
		users.On("Update", ctx, u).Return(nil)

		got, err := uc.ChangeRole(ctx, adminAct, "s1", domain.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleTeacher, got.Role)
		assert.False(t, got.IsApproved)
	})
}

func TestUserUsecase_SeedAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates when missing", func(t *testing.T) {
		users := new(MockUserRepository)
		uc := NewUserUsecase(users, nil, nil, logger.NewNop())
		users.On("GetByEmail", ctx, "root@verbfy.test").Return(nil, domain.ErrNotFound)
		users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool { return u.Role == domain.RoleAdmin })).Return(nil)

		_, created, err := uc.SeedAdmin(ctx, "Root", "Root@verbfy.test", "hash")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("idempotent for existing admin", func(t *testing.T) {
		users := new(MockUserRepository)
		uc := NewUserUsecase(users, nil, nil, logger.NewNop())
		users.On("GetByEmail", ctx, "root@verbfy.test").Return(&domain.User{ID: "a1", Role: domain.RoleAdmin, IsActive: true}, nil)

		_, created, err := uc.SeedAdmin(ctx, "Root", "root@verbfy.test", "hash")
		require.NoError(t, err)
		assert.False(t, created)
		users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
