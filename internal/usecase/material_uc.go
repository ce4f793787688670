package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxUploadSize int64 = 50 << 20
	DefaultPresignTTL          = 15 * time.Minute
)

type MaterialUsecase struct {
	materials     domain.MaterialRepository
	storage       FileStorage
	auditor       Auditor
	metrics       Metrics
	maxUploadSize int64
	presignTTL    time.Duration
	logger        *logger.Logger
	newKey        func(ext string) string
}

func NewMaterialUsecase(
	materials domain.MaterialRepository,
	storage FileStorage,
	auditor Auditor,
	metrics Metrics,
	maxUploadSize int64,
	presignTTL time.Duration,
	log *logger.Logger,
) *MaterialUsecase {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	if presignTTL <= 0 {
		presignTTL = DefaultPresignTTL
	}
	return &MaterialUsecase{
		materials:     materials,
		storage:       storage,
		auditor:       auditorOrNop(auditor),
		metrics:       metricsOrNop(metrics),
		maxUploadSize: maxUploadSize,
		presignTTL:    presignTTL,
		logger:        log.Named("MaterialUsecase"),
		newKey: func(ext string) string {
			return fmt.Sprintf("materials/%s%s", uuid.New().String(), ext)
		},
	}
}

// MaxUploadSize is the largest accepted file in bytes.
func (uc *MaterialUsecase) MaxUploadSize() int64 {
	return uc.maxUploadSize
}

type UploadInput struct {
	Title       string
	Description string
	Level       domain.CEFRLevel
	Tags        []string
	IsPublic    bool
	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
}

func (uc *MaterialUsecase) Upload(ctx context.Context, actor domain.Actor, in UploadInput) (*domain.Material, error) {
	uc.logger.Info("Uploading material",
		zap.String("uploader_id", actor.UserID),
		zap.String("filename", in.Filename),
		zap.String("content_type", in.ContentType),
		zap.Int64("size", in.Size))

	if actor.Role != domain.RoleTeacher && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only teachers can upload materials", domain.ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if in.File == nil || in.Size <= 0 {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	if in.Size > uc.maxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds the %d MB limit", domain.ErrInvalidInput, uc.maxUploadSize>>20)
	}
	if in.Level != "" && !in.Level.IsValid() {
		return nil, fmt.Errorf("%w: unknown CEFR level %q", domain.ErrInvalidInput, in.Level)
	}
	mtype, err := domain.MaterialTypeFromMIME(in.ContentType)
	if err != nil {
		return nil, err
	}

	key := uc.newKey(strings.ToLower(filepath.Ext(in.Filename)))
	url, err := uc.storage.Upload(ctx, key, in.File, in.Size, in.ContentType)
	if err != nil {
		uc.logger.Error("Failed to store material file", zap.Error(err), zap.String("object_key", key))
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.Material{
		UploaderID:  actor.UserID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Type:        mtype,
		CEFRLevel:   in.Level,
		Tags:        domain.NormalizeTags(in.Tags),
		ObjectKey:   key,
		URL:         url,
		MimeType:    in.ContentType,
		Size:        in.Size,
		IsPublic:    in.IsPublic,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.materials.Create(ctx, m); err != nil {
		uc.logger.Error("Failed to save material", zap.Error(err), zap.String("object_key", key))
		return nil, err
	}

	uc.metrics.MaterialUploaded(in.Size)
	uc.auditor.Record(ctx, actor, domain.AuditMaterialUploaded, domain.EntityMaterial, m.ID, map[string]interface{}{
		"title": m.Title, "type": m.Type, "size": m.Size,
	})
	uc.logger.Info("Material uploaded", zap.String("material_id", m.ID))
	return m, nil
}

func (uc *MaterialUsecase) List(ctx context.Context, actor domain.Actor, filter domain.MaterialFilter) ([]*domain.Material, int64, error) {
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	filter.ViewerID = actor.UserID
	filter.IncludeAll = actor.IsAdmin()
	if filter.Level != "" && !filter.Level.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown CEFR level %q", domain.ErrInvalidInput, filter.Level)
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown material type %q", domain.ErrInvalidInput, filter.Type)
	}
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	return uc.materials.List(ctx, filter)
}

func (uc *MaterialUsecase) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Material, error) {
	m, err := uc.materials.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.CanView(actor.UserID, actor.Role) {
		// Hidden materials are indistinguishable from missing ones.
		return nil, fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	return m, nil
}

func (uc *MaterialUsecase) manageable(ctx context.Context, actor domain.Actor, id string) (*domain.Material, error) {
	m, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !m.CanManage(actor.UserID, actor.Role) {
		return nil, fmt.Errorf("%w: only the uploader can change this material", domain.ErrForbidden)
	}
	return m, nil
}

func (uc *MaterialUsecase) Update(ctx context.Context, actor domain.Actor, id string, upd domain.MaterialUpdate) (*domain.Material, error) {
	m, err := uc.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := upd.Apply(m); err != nil {
		return nil, err
	}
	if err := uc.materials.Update(ctx, m); err != nil {
		uc.logger.Error("Failed to update material", zap.Error(err), zap.String("material_id", id))
		return nil, err
	}
	uc.auditor.Record(ctx, actor, domain.AuditMaterialUpdated, domain.EntityMaterial, m.ID, map[string]interface{}{"title": m.Title, "isPublic": m.IsPublic})
	return m, nil
}

// Delete hides the material. The stored object is kept.
func (uc *MaterialUsecase) Delete(ctx context.Context, actor domain.Actor, id string) error {
	uc.logger.Info("Deleting material", zap.String("material_id", id), zap.String("actor_id", actor.UserID))
	m, err := uc.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	if !m.IsActive {
		return nil
	}
	m.IsActive = false
	m.UpdatedAt = time.Now().UTC()
	if err := uc.materials.Update(ctx, m); err != nil {
		uc.logger.Error("Failed to delete material", zap.Error(err), zap.String("material_id", id))
		return err
	}
	uc.auditor.Record(ctx, actor, domain.AuditMaterialDeleted, domain.EntityMaterial, m.ID, nil)
	return nil
}

type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Download issues a short-lived link to the object and counts the download.
func (uc *MaterialUsecase) Download(ctx context.Context, actor domain.Actor, id string) (*DownloadLink, error) {
	m, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !m.IsActive && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: material %s", domain.ErrNotFound, id)
	}
	filename := domain.Slugify(m.Title) + filepath.Ext(m.ObjectKey)
	url, err := uc.storage.PresignedURL(ctx, m.ObjectKey, uc.presignTTL, filename)
	if err != nil {
		uc.logger.Error("Failed to presign material", zap.Error(err), zap.String("material_id", id))
		return nil, err
	}
	if err := uc.materials.IncrementDownloads(ctx, m.ID); err != nil {
		uc.logger.Warn("Failed to count download", zap.Error(err), zap.String("material_id", id))
	}
	return &DownloadLink{URL: url, ExpiresAt: time.Now().UTC().Add(uc.presignTTL)}, nil
}
