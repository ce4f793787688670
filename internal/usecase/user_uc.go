package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

const teacherCacheTTL = 5 * time.Minute

func teacherCacheKey(id string) string {
	return fmt.Sprintf("teacher:%s", id)
}

type UserUsecase struct {
	users   domain.UserRepository
	cache   Cache
	auditor Auditor
	logger  *logger.Logger
}

func NewUserUsecase(users domain.UserRepository, cache Cache, auditor Auditor, log *logger.Logger) *UserUsecase {
	return &UserUsecase{users: users, cache: cache, auditor: auditorOrNop(auditor), logger: log.Named("UserUsecase")}
}

func (uc *UserUsecase) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	return uc.users.GetByID(ctx, actor.UserID)
}

func (uc *UserUsecase) UpdateProfile(ctx context.Context, actor domain.Actor, upd domain.ProfileUpdate) (*domain.User, error) {
	uc.logger.Info("Updating profile", zap.String("user_id", actor.UserID))
	user, err := uc.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := upd.Apply(user); err != nil {
		return nil, err
	}
	if err := uc.users.Update(ctx, user); err != nil {
		uc.logger.Error("Failed to update profile", zap.Error(err), zap.String("user_id", user.ID))
		return nil, err
	}
	uc.invalidateTeacher(ctx, user)
	return user, nil
}

// ListTeachers returns the public teacher directory.
func (uc *UserUsecase) ListTeachers(ctx context.Context, filter domain.UserFilter) ([]*domain.TeacherProfile, int64, error) {
	role := domain.RoleTeacher
	active, approved := true, true
	filter.Role, filter.IsActive, filter.IsApproved = &role, &active, &approved
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	users, total, err := uc.users.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.TeacherProfile, len(users))
	for i, u := range users {
		out[i] = u.PublicProfile()
	}
	return out, total, nil
}

// GetTeacher returns an approved, active teacher, served from cache when possible.
func (uc *UserUsecase) GetTeacher(ctx context.Context, id string) (*domain.TeacherProfile, error) {
	key := teacherCacheKey(id)
	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, key)
		if err == nil {
			var teacher domain.TeacherProfile
			if err := json.Unmarshal(cached, &teacher); err == nil {
				uc.logger.Debug("Teacher fetched from cache", zap.String("key", key))
				return &teacher, nil
			}
			uc.logger.Warn("Corrupted teacher cache entry", zap.String("key", key))
			_ = uc.cache.Delete(ctx, key)
		} else if !errors.Is(err, ErrCacheMiss) {
			uc.logger.Warn("Teacher cache read failed", zap.Error(err), zap.String("key", key))
		}
	}

	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.CanTeach() {
		return nil, fmt.Errorf("%w: teacher not found", domain.ErrNotFound)
	}
	profile := user.PublicProfile()

	if uc.cache != nil {
		if data, err := json.Marshal(profile); err == nil {
			if err := uc.cache.Set(ctx, key, data, teacherCacheTTL); err != nil {
				uc.logger.Warn("Failed to cache teacher", zap.Error(err), zap.String("key", key))
			}
		}
	}
	return profile, nil
}

func (uc *UserUsecase) invalidateTeacher(ctx context.Context, user *domain.User) {
	if uc.cache == nil || user.Role != domain.RoleTeacher {
		return
	}
	if err := uc.cache.Delete(ctx, teacherCacheKey(user.ID)); err != nil {
		uc.logger.Warn("Failed to invalidate teacher cache", zap.Error(err), zap.String("user_id", user.ID))
	}
}

func (uc *UserUsecase) ListUsers(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	return uc.users.List(ctx, filter)
}

func (uc *UserUsecase) ApproveTeacher(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	uc.logger.Info("Approving teacher", zap.String("user_id", id), zap.String("admin_id", actor.UserID))
	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleTeacher {
		return nil, fmt.Errorf("%w: only teachers require approval", domain.ErrInvalidInput)
	}
	if user.IsApproved {
		return user, nil
	}
	user.IsApproved = true
	user.UpdatedAt = time.Now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	uc.invalidateTeacher(ctx, user)
	uc.auditor.Record(ctx, actor, domain.AuditUserApproved, domain.EntityUser, user.ID, nil)
	return user, nil
}

// SetActive soft-deletes or restores an account.
func (uc *UserUsecase) SetActive(ctx context.Context, actor domain.Actor, id string, active bool) (*domain.User, error) {
	if id == actor.UserID && !active {
		return nil, fmt.Errorf("%w: you cannot deactivate yourself", domain.ErrForbidden)
	}
	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return user, nil
	}
	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	uc.invalidateTeacher(ctx, user)
	uc.auditor.Record(ctx, actor, domain.AuditUserActiveChanged, domain.EntityUser, user.ID, map[string]interface{}{"isActive": active})
	uc.logger.Info("User active flag changed", zap.String("user_id", id), zap.Bool("is_active", active))
	return user, nil
}

func (uc *UserUsecase) ChangeRole(ctx context.Context, actor domain.Actor, id string, role domain.Role) (*domain.User, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if id == actor.UserID {
		return nil, fmt.Errorf("%w: you cannot change your own role", domain.ErrForbidden)
	}
	user, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	previous := user.Role
	uc.invalidateTeacher(ctx, user)
	user.Role = role
	if role == domain.RoleTeacher {
		user.IsApproved = false
	} else {
		user.IsApproved = true
	}
	user.UpdatedAt = time.Now().UTC()
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditUserRoleChanged, domain.EntityUser, user.ID, map[string]interface{}{"from": previous, "to": role})
	return user, nil
}

// SeedAdmin creates an admin or promotes an existing account. Used by verbfyctl.
func (uc *UserUsecase) SeedAdmin(ctx context.Context, name, email, passwordHash string) (*domain.User, bool, error) {
	existing, err := uc.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin && existing.IsActive {
			return existing, false, nil
		}
		existing.Role, existing.IsActive, existing.IsApproved = domain.RoleAdmin, true, true
		existing.UpdatedAt = time.Now().UTC()
		if err := uc.users.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		uc.auditor.Record(ctx, domain.SystemActor, domain.AuditUserRoleChanged, domain.EntityUser, existing.ID, map[string]interface{}{"to": domain.RoleAdmin, "via": "seed"})
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, err
	}

	admin, err := domain.NewUser(name, email, passwordHash, domain.RoleAdmin, "")
	if err != nil {
		return nil, false, err
	}
	if err := uc.users.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	uc.auditor.Record(ctx, domain.SystemActor, domain.AuditUserRegistered, domain.EntityUser, admin.ID, map[string]interface{}{"role": domain.RoleAdmin, "via": "seed"})
	return admin, true, nil
}
