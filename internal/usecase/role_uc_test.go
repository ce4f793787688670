package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRoleUsecase_HasPermission(t *testing.T) {
	ctx := context.Background()
	teacherRole := &domain.RoleDefinition{Name: "teacher", Permissions: []string{domain.PermMaterialsUpload}, IsActive: true}

	t.Run("admin always passes", func(t *testing.T) {
		roles, cache := new(MockRoleRepository), new(MockCache)
		uc := NewRoleUsecase(roles, cache, nil, logger.NewNop())

		ok, err := uc.HasPermission(ctx, "admin", domain.PermAuditRead)
		require.NoError(t, err)
		assert.True(t, ok)
		cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("cache miss loads and stores", func(t *testing.T) {
		roles, cache := new(MockRoleRepository), new(MockCache)
		uc := NewRoleUsecase(roles, cache, nil, logger.NewNop())
		cache.On("Get", ctx, "perm:teacher").Return(nil, ErrCacheMiss)
		roles.On("GetByName", ctx, "teacher").Return(teacherRole, nil)
		cache.On("Set", ctx, "perm:teacher", mock.Anything, permissionCacheTTL).Return(nil)

		ok, err := uc.HasPermission(ctx, "teacher", domain.PermMaterialsUpload)
		require.NoError(t, err)
		assert.True(t, ok)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips repository", func(t *testing.T) {
		roles, cache := new(MockRoleRepository), new(MockCache)
		uc := NewRoleUsecase(roles, cache, nil, logger.NewNop())
		data, _ := json.Marshal(teacherRole)
		cache.On("Get", ctx, "perm:teacher").Return(data, nil)

		ok, err := uc.HasPermission(ctx, "teacher", domain.PermAuditRead)
		require.NoError(t, err)
		assert.False(t, ok)
		roles.AssertNotCalled(t, "GetByName", mock.Anything, mock.Anything)
	})

	t.Run("corrupted entry is dropped", func(t *testing.T) {
		roles, cache := new(MockRoleRepository), new(MockCache)
		uc := NewRoleUsecase(roles, cache, nil, logger.NewNop())
		cache.On("Get", ctx, "perm:teacher").Return([]byte("{not json"), nil)
		cache.On("Delete", ctx, []string{"perm:teacher"}).Return(nil)
		roles.On("GetByName", ctx, "teacher").Return(teacherRole, nil)
		cache.On("Set", ctx, "perm:teacher", mock.Anything, permissionCacheTTL).Return(nil)

		ok, err := uc.HasPermission(ctx, "teacher", domain.PermMaterialsUpload)
		require.NoError(t, err)
		assert.True(t, ok)
		cache.AssertExpectations(t)
	})

	t.Run("unknown role denies", func(t *testing.T) {
		roles := new(MockRoleRepository)
		uc := NewRoleUsecase(roles, nil, nil, logger.NewNop())
		roles.On("GetByName", ctx, "ghost").Return(nil, domain.ErrNotFound)

		ok, err := uc.HasPermission(ctx, "ghost", domain.PermAuditRead)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRoleUsecase_SystemRolesAreProtected(t *testing.T) {
	ctx := context.Background()
	admin := domain.Actor{UserID: "a1", Role: domain.RoleAdmin}
	roles, cache := new(MockRoleRepository), new(MockCache)
	uc := NewRoleUsecase(roles, cache, nil, logger.NewNop())
	system := &domain.RoleDefinition{ID: "role1", Name: "teacher", Permissions: []string{domain.PermMaterialsUpload}, IsSystem: true, IsActive: true}
	roles.On("GetByID", ctx, "role1").Return(system, nil)

	name := "tutor"
	_, err := uc.Update(ctx, admin, "role1", UpdateRoleInput{Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	assert.ErrorIs(t, uc.Delete(ctx, admin, "role1"), domain.ErrForbidden)

	roles.On("Update", ctx, system).Return(nil)
	cache.On("Delete", ctx, []string{"perm:teacher", "perm:teacher"}).Return(nil)
	updated, err := uc.Update(ctx, admin, "role1", UpdateRoleInput{Permissions: []string{"Materials:Upload", "reservations:*"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"materials:upload", "reservations:*"}, updated.Permissions)
	cache.AssertExpectations(t)

	_, err = uc.Update(ctx, admin, "role1", UpdateRoleInput{Permissions: []string{"not a permission"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
