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

const auditCollectionName = "audit_logs"

type auditDocument struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty"`
	ActorID    string                 `bson:"actor_id"`
	ActorRole  string                 `bson:"actor_role,omitempty"`
	Action     string                 `bson:"action"`
	EntityType string                 `bson:"entity_type"`
	EntityID   string                 `bson:"entity_id"`
	Changes    map[string]interface{} `bson:"changes,omitempty"`
	IP         string                 `bson:"ip,omitempty"`
	UserAgent  string                 `bson:"user_agent,omitempty"`
	CreatedAt  time.Time              `bson:"created_at"`
}

func (d auditDocument) toDomain() *domain.AuditLog {
	return &domain.AuditLog{
		ID:         d.ID.Hex(),
		ActorID:    d.ActorID,
		ActorRole:  domain.Role(d.ActorRole),
		Action:     d.Action,
		EntityType: d.EntityType,
		EntityID:   d.EntityID,
		Changes:    d.Changes,
		IP:         d.IP,
		UserAgent:  d.UserAgent,
		CreatedAt:  d.CreatedAt,
	}
}

// AuditLogRepository is append-only; entries expire through a TTL index.
type AuditLogRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewAuditLogRepository(db *mongo.Database, retentionDays int, log *logger.Logger) (*AuditLogRepository, error) {
	collection := db.Collection(auditCollectionName)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if retentionDays > 0 {
		indexes = append(indexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retentionDays * 24 * 60 * 60)),
		})
	}
	ensureIndexes(collection, indexes, log)
	return &AuditLogRepository{collection: collection, logger: log.Named("AuditLogRepository")}, nil
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	doc := auditDocument{
		ID:         primitive.NewObjectID(),
		ActorID:    entry.ActorID,
		ActorRole:  string(entry.ActorRole),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Changes:    entry.Changes,
		IP:         entry.IP,
		UserAgent:  entry.UserAgent,
		CreatedAt:  entry.CreatedAt.UTC(),
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert audit entry", zap.String("action", entry.Action), zap.Error(err))
		return dbError("insert audit entry", err)
	}
	entry.ID = doc.ID.Hex()
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, int64, error) {
	query := bson.M{}
	if filter.ActorID != "" {
		query["actor_id"] = filter.ActorID
	}
	if filter.EntityType != "" {
		query["entity_type"] = filter.EntityType
	}
	if filter.EntityID != "" {
		query["entity_id"] = filter.EntityID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}
	if filter.From != nil || filter.To != nil {
		rng := bson.M{}
		if filter.From != nil {
			rng["$gte"] = filter.From.UTC()
		}
		if filter.To != nil {
			rng["$lt"] = filter.To.UTC()
		}
		query["created_at"] = rng
	}
	docs, total, err := findPage[auditDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.AuditLog, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}
