package mongodb

import (
	"context"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const roleCollectionName = "roles"

type roleDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Permissions []string           `bson:"permissions"`
	IsSystem    bool               `bson:"is_system"`
	IsActive    bool               `bson:"is_active"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func fromDomainRole(r *domain.RoleDefinition) roleDocument {
	doc := roleDocument{
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsSystem:    r.IsSystem,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if doc.Permissions == nil {
		doc.Permissions = []string{}
	}
	if oid, err := primitive.ObjectIDFromHex(r.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d roleDocument) toDomain() *domain.RoleDefinition {
	return &domain.RoleDefinition{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Permissions: d.Permissions,
		IsSystem:    d.IsSystem,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type RoleRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewRoleRepository(db *mongo.Database, log *logger.Logger) (*RoleRepository, error) {
	collection := db.Collection(roleCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	}, log)
	return &RoleRepository{collection: collection, logger: log.Named("RoleRepository")}, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.RoleDefinition) error {
	doc := fromDomainRole(role)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return dbError("insert role", err)
	}
	role.ID = doc.ID.Hex()
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*domain.RoleDefinition, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.RoleDefinition, error) {
	return r.findOne(ctx, bson.M{"name": name})
}

func (r *RoleRepository) findOne(ctx context.Context, filter bson.M) (*domain.RoleDefinition, error) {
	var doc roleDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, dbError("find role", err)
	}
	return doc.toDomain(), nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.RoleDefinition) error {
	oid, err := objectID(role.ID)
	if err != nil {
		return err
	}
	doc := fromDomainRole(role)
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"name":        doc.Name,
		"description": doc.Description,
		"permissions": doc.Permissions,
		"is_active":   doc.IsActive,
		"updated_at":  doc.UpdatedAt,
	}})
	if err != nil {
		return dbError("update role", err)
	}
	if result.MatchedCount == 0 {
		return dbError("update role", mongo.ErrNoDocuments)
	}
	role.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *RoleRepository) List(ctx context.Context, includeInactive bool) ([]*domain.RoleDefinition, error) {
	query := bson.M{}
	if !includeInactive {
		query["is_active"] = true
	}
	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, dbError("find roles", err)
	}
	defer cursor.Close(ctx)

	var docs []roleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError("decode roles", err)
	}
	out := make([]*domain.RoleDefinition, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// EnsureSystemRoles upserts with $setOnInsert so edited permissions survive restarts.
func (r *RoleRepository) EnsureSystemRoles(ctx context.Context, roles []*domain.RoleDefinition) error {
	models := make([]mongo.WriteModel, 0, len(roles))
	for _, role := range roles {
		doc := fromDomainRole(role)
		doc.ID = primitive.NewObjectID()
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": doc.Name}).
			SetUpdate(bson.M{"$setOnInsert": doc}).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return nil
	}
	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("Failed to seed system roles", zap.Error(err))
		return dbError("seed roles", err)
	}
	if result.UpsertedCount > 0 {
		r.logger.Info("Seeded system roles", zap.Int64("inserted", result.UpsertedCount))
	}
	return nil
}
