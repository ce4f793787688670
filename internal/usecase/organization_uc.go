package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

type OrganizationUsecase struct {
	orgs    domain.OrganizationRepository
	users   domain.UserRepository
	auditor Auditor
	logger  *logger.Logger
	now     func() time.Time
}

func NewOrganizationUsecase(orgs domain.OrganizationRepository, users domain.UserRepository, auditor Auditor, log *logger.Logger) *OrganizationUsecase {
	return &OrganizationUsecase{
		orgs:    orgs,
		users:   users,
		auditor: auditorOrNop(auditor),
		logger:  log.Named("OrganizationUsecase"),
		now:     time.Now,
	}
}

type CreateOrganizationInput struct {
	Name     string
	Type     domain.OrganizationType
	Settings domain.OrganizationSettings
}

func (uc *OrganizationUsecase) Create(ctx context.Context, actor domain.Actor, in CreateOrganizationInput) (*domain.Organization, error) {
	uc.logger.Info("Creating organization", zap.String("owner_id", actor.UserID), zap.String("name", in.Name))
	org, err := domain.NewOrganization(in.Name, in.Type, actor.UserID, in.Settings)
	if err != nil {
		return nil, err
	}
	if err := uc.orgs.Create(ctx, org); err != nil {
		uc.logger.Error("Failed to create organization", zap.Error(err), zap.String("slug", org.Slug))
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditOrganizationCreated, domain.EntityOrganization, org.ID, map[string]interface{}{"name": org.Name, "slug": org.Slug})
	return org, nil
}

// Get is open to members and platform admins.
func (uc *OrganizationUsecase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Organization, error) {
	org, err := uc.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return org, nil
	}
	if _, ok := org.MemberRoleOf(actor.UserID); !ok || !org.IsActive {
		return nil, fmt.Errorf("%w: organization %s", domain.ErrNotFound, id)
	}
	return org, nil
}

func (uc *OrganizationUsecase) List(ctx context.Context, actor domain.Actor, page, limit int64) ([]*domain.Organization, int64, error) {
	filter := domain.OrganizationFilter{}
	filter.Page, filter.Limit = domain.NormalizePage(page, limit)
	if !actor.IsAdmin() {
		active := true
		filter.MemberID, filter.IsActive = actor.UserID, &active
	}
	return uc.orgs.List(ctx, filter)
}

func (uc *OrganizationUsecase) manageable(ctx context.Context, actor domain.Actor, id string) (*domain.Organization, error) {
	org, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !org.CanManage(actor.UserID) {
		return nil, fmt.Errorf("%w: only organization admins can do this", domain.ErrForbidden)
	}
	if !org.IsActive {
		return nil, fmt.Errorf("%w: organization is deactivated", domain.ErrInvalidInput)
	}
	return org, nil
}

func (uc *OrganizationUsecase) Update(ctx context.Context, actor domain.Actor, id string, upd domain.OrganizationUpdate) (*domain.Organization, error) {
	org, err := uc.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := upd.Apply(org); err != nil {
		return nil, err
	}
	if err := uc.orgs.Update(ctx, org); err != nil {
		uc.logger.Error("Failed to update organization", zap.Error(err), zap.String("organization_id", id))
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditOrganizationUpdated, domain.EntityOrganization, org.ID, map[string]interface{}{"name": org.Name, "type": org.Type})
	return org, nil
}

func (uc *OrganizationUsecase) AddMember(ctx context.Context, actor domain.Actor, id, userID string, role domain.MemberRole) (*domain.Organization, error) {
	uc.logger.Info("Adding organization member", zap.String("organization_id", id), zap.String("user_id", userID), zap.String("role", string(role)))
	org, err := uc.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if role == domain.MemberTeacher && user.Role != domain.RoleTeacher {
		return nil, fmt.Errorf("%w: user is not a teacher", domain.ErrInvalidInput)
	}
	if err := org.AddMember(user.ID, role, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.orgs.Update(ctx, org); err != nil {
		uc.logger.Error("Failed to save organization member", zap.Error(err), zap.String("organization_id", id))
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditOrganizationMember, domain.EntityOrganization, org.ID, map[string]interface{}{"added": user.ID, "role": role})
	return org, nil
}

// RemoveMember lets managers remove anyone but the owner, and members leave.
func (uc *OrganizationUsecase) RemoveMember(ctx context.Context, actor domain.Actor, id, userID string) (*domain.Organization, error) {
	var (
		org *domain.Organization
		err error
	)
	if userID == actor.UserID {
		org, err = uc.Get(ctx, actor, id)
	} else {
		org, err = uc.manageable(ctx, actor, id)
	}
	if err != nil {
		return nil, err
	}
	if err := org.RemoveMember(userID, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.orgs.Update(ctx, org); err != nil {
		uc.logger.Error("Failed to remove organization member", zap.Error(err), zap.String("organization_id", id))
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditOrganizationMember, domain.EntityOrganization, org.ID, map[string]interface{}{"removed": userID})
	return org, nil
}

// Deactivate is a soft delete allowed to the owner and platform admins.
func (uc *OrganizationUsecase) Deactivate(ctx context.Context, actor domain.Actor, id string) error {
	org, err := uc.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && org.OwnerID != actor.UserID {
		return fmt.Errorf("%w: only the owner can deactivate the organization", domain.ErrForbidden)
	}
	org.IsActive = false
	org.UpdatedAt = uc.now().UTC()
	if err := uc.orgs.Update(ctx, org); err != nil {
		uc.logger.Error("Failed to deactivate organization", zap.Error(err), zap.String("organization_id", id))
		return err
	}
	uc.auditor.Record(ctx, actor, domain.AuditOrganizationDeleted, domain.EntityOrganization, org.ID, nil)
	return nil
}
