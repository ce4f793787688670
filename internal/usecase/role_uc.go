package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

const permissionCacheTTL = 5 * time.Minute

func permissionCacheKey(role string) string {
	return fmt.Sprintf("perm:%s", role)
}

// RoleUsecase manages role definitions and answers permission checks.
type RoleUsecase struct {
	roles   domain.RoleRepository
	cache   Cache
	auditor Auditor
	logger  *logger.Logger
}

func NewRoleUsecase(roles domain.RoleRepository, cache Cache, auditor Auditor, log *logger.Logger) *RoleUsecase {
	return &RoleUsecase{roles: roles, cache: cache, auditor: auditorOrNop(auditor), logger: log.Named("RoleUsecase")}
}

// EnsureSystemRoles seeds the built-in roles; existing definitions are kept.
func (uc *RoleUsecase) EnsureSystemRoles(ctx context.Context) error {
	if err := uc.roles.EnsureSystemRoles(ctx, domain.SystemRoles()); err != nil {
		uc.logger.Error("Failed to seed system roles", zap.Error(err))
		return err
	}
	uc.logger.Info("System roles ensured")
	return nil
}

type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []string
}

func (uc *RoleUsecase) Create(ctx context.Context, actor domain.Actor, in CreateRoleInput) (*domain.RoleDefinition, error) {
	uc.logger.Info("Creating role", zap.String("name", in.Name), zap.String("actor_id", actor.UserID))
	role, err := domain.NewRoleDefinition(in.Name, in.Description, in.Permissions)
	if err != nil {
		return nil, err
	}
	if err := uc.roles.Create(ctx, role); err != nil {
		uc.logger.Error("Failed to create role", zap.Error(err), zap.String("name", role.Name))
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditRoleChanged, domain.EntityRole, role.ID, map[string]interface{}{"created": role.Name, "permissions": role.Permissions})
	return role, nil
}

func (uc *RoleUsecase) List(ctx context.Context, includeInactive bool) ([]*domain.RoleDefinition, error) {
	return uc.roles.List(ctx, includeInactive)
}

type UpdateRoleInput struct {
	Name        *string
	Description *string
	Permissions []string
	IsActive    *bool
}

// Update changes a role. System roles accept permission changes only.
func (uc *RoleUsecase) Update(ctx context.Context, actor domain.Actor, id string, in UpdateRoleInput) (*domain.RoleDefinition, error) {
	role, err := uc.roles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := role.Name
	if role.IsSystem && (in.Name != nil || in.Description != nil || in.IsActive != nil) {
		return nil, fmt.Errorf("%w: only permissions of a system role can change", domain.ErrForbidden)
	}
	if in.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*in.Name))
		if name == "" {
			return nil, fmt.Errorf("%w: role name cannot be empty", domain.ErrInvalidInput)
		}
		role.Name = name
	}
	if in.Description != nil {
		role.Description = strings.TrimSpace(*in.Description)
	}
	if in.Permissions != nil {
		perms, err := domain.ValidatePermissions(in.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = perms
	}
	if in.IsActive != nil {
		role.IsActive = *in.IsActive
	}
	role.UpdatedAt = time.Now().UTC()
	if err := uc.roles.Update(ctx, role); err != nil {
		uc.logger.Error("Failed to update role", zap.Error(err), zap.String("role_id", id))
		return nil, err
	}
	uc.invalidate(ctx, oldName, role.Name)
	uc.auditor.Record(ctx, actor, domain.AuditRoleChanged, domain.EntityRole, role.ID, map[string]interface{}{"name": role.Name, "permissions": role.Permissions, "isActive": role.IsActive})
	return role, nil
}

// Delete deactivates a custom role.
func (uc *RoleUsecase) Delete(ctx context.Context, actor domain.Actor, id string) error {
	role, err := uc.roles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: system roles cannot be deleted", domain.ErrForbidden)
	}
	role.IsActive = false
	role.UpdatedAt = time.Now().UTC()
	if err := uc.roles.Update(ctx, role); err != nil {
		uc.logger.Error("Failed to delete role", zap.Error(err), zap.String("role_id", id))
		return err
	}
	uc.invalidate(ctx, role.Name)
	uc.auditor.Record(ctx, actor, domain.AuditRoleChanged, domain.EntityRole, role.ID, map[string]interface{}{"deleted": role.Name})
	return nil
}

// HasPermission reports whether roleName grants permission. The admin role always does.
func (uc *RoleUsecase) HasPermission(ctx context.Context, roleName, permission string) (bool, error) {
	if roleName == string(domain.RoleAdmin) {
		return true, nil
	}
	role, err := uc.lookup(ctx, roleName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return role.Grants(permission), nil
}

func (uc *RoleUsecase) lookup(ctx context.Context, name string) (*domain.RoleDefinition, error) {
	key := permissionCacheKey(name)
	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, key)
		if err == nil {
			var role domain.RoleDefinition
			if err := json.Unmarshal(cached, &role); err == nil {
				return &role, nil
			}
			uc.logger.Warn("Corrupted permission cache entry", zap.String("key", key))
			_ = uc.cache.Delete(ctx, key)
		} else if !errors.Is(err, ErrCacheMiss) {
			uc.logger.Warn("Permission cache read failed", zap.Error(err), zap.String("key", key))
		}
	}

	role, err := uc.roles.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		if data, err := json.Marshal(role); err == nil {
			if err := uc.cache.Set(ctx, key, data, permissionCacheTTL); err != nil {
				uc.logger.Warn("Failed to cache permissions", zap.Error(err), zap.String("key", key))
			}
		}
	}
	return role, nil
}

func (uc *RoleUsecase) invalidate(ctx context.Context, names ...string) {
	if uc.cache == nil {
		return
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, permissionCacheKey(n))
	}
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.logger.Warn("Failed to invalidate permission cache", zap.Error(err), zap.Strings("keys", keys))
	}
}
