package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.uber.org/zap"
)

// AuditUsecase writes and reads the audit trail.
type AuditUsecase struct {
	repo   domain.AuditLogRepository
	logger *logger.Logger
	now    func() time.Time
}

func NewAuditUsecase(repo domain.AuditLogRepository, log *logger.Logger) *AuditUsecase {
	return &AuditUsecase{repo: repo, logger: log.Named("AuditUsecase"), now: time.Now}
}

// Record stores an entry. Storage failures are logged and swallowed so the
// audited operation is never rolled back by its audit trail.
func (uc *AuditUsecase) Record(ctx context.Context, actor domain.Actor, action, entityType, entityID string, changes map[string]interface{}) {
	entry := &domain.AuditLog{
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		IP:         actor.IP,
		UserAgent:  actor.UserAgent,
		CreatedAt:  uc.now().UTC(),
	}
	if err := uc.repo.Create(ctx, entry); err != nil {
		uc.logger.Warn("Failed to record audit entry",
			zap.Error(err),
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
		)
		return
	}
	uc.logger.Debug("Audit entry recorded", zap.String("action", action), zap.String("entity_id", entityID))
}

func (uc *AuditUsecase) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, int64, error) {
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, fmt.Errorf("%w: 'to' must not be before 'from'", domain.ErrInvalidInput)
	}
	logs, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		uc.logger.Error("Failed to list audit logs", zap.Error(err))
		return nil, 0, err
	}
	return logs, total, nil
}

// nopAuditor is used when no auditor is wired.
type nopAuditor struct{}

func (nopAuditor) Record(context.Context, domain.Actor, string, string, string, map[string]interface{}) {}

func auditorOrNop(a Auditor) Auditor {
	if a == nil {
		return nopAuditor{}
	}
	return a
}
