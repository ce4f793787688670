package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const organizationCollectionName = "organizations"

type memberDocument struct {
	UserID   string    `bson:"user_id"`
	Role     string    `bson:"role"`
	JoinedAt time.Time `bson:"joined_at"`
}

type organizationDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Slug        string             `bson:"slug"`
	Type        string             `bson:"type"`
	OwnerID     string             `bson:"owner_id"`
	Members     []memberDocument   `bson:"members"`
	MaxTeachers int                `bson:"max_teachers"`
	MaxStudents int                `bson:"max_students"`
	IsActive    bool               `bson:"is_active"`
	Version     int64              `bson:"version"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func fromDomainOrganization(o *domain.Organization) organizationDocument {
	doc := organizationDocument{
		Name:        o.Name,
		Slug:        o.Slug,
		Type:        string(o.Type),
		OwnerID:     o.OwnerID,
		Members:     make([]memberDocument, len(o.Members)),
		MaxTeachers: o.Settings.MaxTeachers,
		MaxStudents: o.Settings.MaxStudents,
		IsActive:    o.IsActive,
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for i, m := range o.Members {
		doc.Members[i] = memberDocument{UserID: m.UserID, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	if oid, err := primitive.ObjectIDFromHex(o.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d organizationDocument) toDomain() *domain.Organization {
	o := &domain.Organization{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Slug:      d.Slug,
		Type:      domain.OrganizationType(d.Type),
		OwnerID:   d.OwnerID,
		Members:   make([]domain.Member, len(d.Members)),
		Settings:  domain.OrganizationSettings{MaxTeachers: d.MaxTeachers, MaxStudents: d.MaxStudents},
		IsActive:  d.IsActive,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, m := range d.Members {
		o.Members[i] = domain.Member{UserID: m.UserID, Role: domain.MemberRole(m.Role), JoinedAt: m.JoinedAt}
	}
	return o
}

type OrganizationRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewOrganizationRepository(db *mongo.Database, log *logger.Logger) (*OrganizationRepository, error) {
	collection := db.Collection(organizationCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "members.user_id", Value: 1}}},
	}, log)
	return &OrganizationRepository{collection: collection, logger: log.Named("OrganizationRepository")}, nil
}

// Create fails with ErrConflict on a taken slug.
func (r *OrganizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	doc := fromDomainOrganization(o)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Warn("Organization slug taken", zap.String("slug", o.Slug))
		} else {
			r.logger.Error("Failed to insert organization", zap.Error(err))
		}
		return dbError("insert organization", err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc organizationDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, dbError("find organization", err)
	}
	return doc.toDomain(), nil
}

// Update writes the organization only if nobody changed it since it was
// read. A stale version yields ErrOptimisticLock.
func (r *OrganizationRepository) Update(ctx context.Context, o *domain.Organization) error {
	oid, err := objectID(o.ID)
	if err != nil {
		return err
	}
	doc := fromDomainOrganization(o)
	doc.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":         doc.Name,
			"type":         doc.Type,
			"members":      doc.Members,
			"max_teachers": doc.MaxTeachers,
			"max_students": doc.MaxStudents,
			"is_active":    doc.IsActive,
			"updated_at":   doc.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "version": o.Version}, update)
	if err != nil {
		r.logger.Error("Failed to update organization", zap.String("organization_id", o.ID), zap.Error(err))
		return dbError("update organization", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return dbError("update organization", err)
		}
		if count == 0 {
			return dbError("update organization", mongo.ErrNoDocuments)
		}
		r.logger.Warn("Organization version mismatch", zap.String("organization_id", o.ID), zap.Int64("version", o.Version))
		return fmt.Errorf("%w: organization %s", domain.ErrOptimisticLock, o.ID)
	}
	o.Version++
	o.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *OrganizationRepository) List(ctx context.Context, filter domain.OrganizationFilter) ([]*domain.Organization, int64, error) {
	query := bson.M{}
	if filter.MemberID != "" {
		query["members.user_id"] = filter.MemberID
	}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}
	docs, total, err := findPage[organizationDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Organization, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}
