package mongodb

import (
	"context"
	"regexp"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const materialCollectionName = "materials"

type materialDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UploaderID    string             `bson:"uploader_id"`
	Title         string             `bson:"title"`
	Description   string             `bson:"description,omitempty"`
	Type          string             `bson:"type"`
	CEFRLevel     string             `bson:"cefr_level,omitempty"`
	Tags          []string           `bson:"tags,omitempty"`
	ObjectKey     string             `bson:"object_key"`
	URL           string             `bson:"url"`
	MimeType      string             `bson:"mime_type"`
	Size          int64              `bson:"size"`
	IsPublic      bool               `bson:"is_public"`
	IsActive      bool               `bson:"is_active"`
	DownloadCount int64              `bson:"download_count"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func fromDomainMaterial(m *domain.Material) materialDocument {
	doc := materialDocument{
		UploaderID:    m.UploaderID,
		Title:         m.Title,
		Description:   m.Description,
		Type:          string(m.Type),
		CEFRLevel:     string(m.CEFRLevel),
		Tags:          m.Tags,
		ObjectKey:     m.ObjectKey,
		URL:           m.URL,
		MimeType:      m.MimeType,
		Size:          m.Size,
		IsPublic:      m.IsPublic,
		IsActive:      m.IsActive,
		DownloadCount: m.DownloadCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(m.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d materialDocument) toDomain() *domain.Material {
	return &domain.Material{
		ID:            d.ID.Hex(),
		UploaderID:    d.UploaderID,
		Title:         d.Title,
		Description:   d.Description,
		Type:          domain.MaterialType(d.Type),
		CEFRLevel:     domain.CEFRLevel(d.CEFRLevel),
		Tags:          d.Tags,
		ObjectKey:     d.ObjectKey,
		URL:           d.URL,
		MimeType:      d.MimeType,
		Size:          d.Size,
		IsPublic:      d.IsPublic,
		IsActive:      d.IsActive,
		DownloadCount: d.DownloadCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type MaterialRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewMaterialRepository(db *mongo.Database, log *logger.Logger) (*MaterialRepository, error) {
	collection := db.Collection(materialCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploader_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "is_public", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "cefr_level", Value: 1}, {Key: "type", Value: 1}}},
	}, log)
	return &MaterialRepository{collection: collection, logger: log.Named("MaterialRepository")}, nil
}

func (r *MaterialRepository) Create(ctx context.Context, m *domain.Material) error {
	doc := fromDomainMaterial(m)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert material", zap.String("object_key", m.ObjectKey), zap.Error(err))
		return dbError("insert material", err)
	}
	m.ID = doc.ID.Hex()
	return nil
}

func (r *MaterialRepository) GetByID(ctx context.Context, id string) (*domain.Material, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc materialDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, dbError("find material", err)
	}
	return doc.toDomain(), nil
}

func (r *MaterialRepository) Update(ctx context.Context, m *domain.Material) error {
	oid, err := objectID(m.ID)
	if err != nil {
		return err
	}
	doc := fromDomainMaterial(m)
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"cefr_level":  doc.CEFRLevel,
		"tags":        doc.Tags,
		"is_public":   doc.IsPublic,
		"is_active":   doc.IsActive,
		"updated_at":  doc.UpdatedAt,
	}})
	if err != nil {
		r.logger.Error("Failed to update material", zap.String("material_id", m.ID), zap.Error(err))
		return dbError("update material", err)
	}
	if result.MatchedCount == 0 {
		return dbError("update material", mongo.ErrNoDocuments)
	}
	m.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *MaterialRepository) IncrementDownloads(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"download_count": 1}})
	if err != nil {
		return dbError("increment downloads", err)
	}
	if result.MatchedCount == 0 {
		return dbError("increment downloads", mongo.ErrNoDocuments)
	}
	return nil
}

// List shows active materials that are public or the viewer's own, unless IncludeAll.
func (r *MaterialRepository) List(ctx context.Context, filter domain.MaterialFilter) ([]*domain.Material, int64, error) {
	and := bson.A{bson.M{"is_active": true}}
	if !filter.IncludeAll {
		and = append(and, bson.M{"$or": bson.A{bson.M{"is_public": true}, bson.M{"uploader_id": filter.ViewerID}}})
	}
	if filter.Level != "" {
		and = append(and, bson.M{"cefr_level": string(filter.Level)})
	}
	if filter.Type != "" {
		and = append(and, bson.M{"type": string(filter.Type)})
	}
	if filter.Tag != "" {
		and = append(and, bson.M{"tags": filter.Tag})
	}
	if filter.UploaderID != "" {
		and = append(and, bson.M{"uploader_id": filter.UploaderID})
	}
	if filter.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}})
	}

	docs, total, err := findPage[materialDocument](ctx, r.collection, bson.M{"$and": and},
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		r.logger.Error("Failed to list materials", zap.Error(err))
		return nil, 0, err
	}
	out := make([]*domain.Material, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}
