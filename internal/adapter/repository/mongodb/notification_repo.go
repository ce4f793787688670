package mongodb

import (
	"context"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const notificationCollectionName = "notifications"

type notificationDocument struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty"`
	UserID    string                 `bson:"user_id"`
	Type      string                 `bson:"type"`
	Title     string                 `bson:"title"`
	Body      string                 `bson:"body"`
	Data      map[string]interface{} `bson:"data,omitempty"`
	IsRead    bool                   `bson:"is_read"`
	ReadAt    *time.Time             `bson:"read_at,omitempty"`
	CreatedAt time.Time              `bson:"created_at"`
}

func (d notificationDocument) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Type:      domain.NotificationType(d.Type),
		Title:     d.Title,
		Body:      d.Body,
		Data:      d.Data,
		IsRead:    d.IsRead,
		ReadAt:    d.ReadAt,
		CreatedAt: d.CreatedAt,
	}
}

type NotificationRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewNotificationRepository(db *mongo.Database, log *logger.Logger) (*NotificationRepository, error) {
	collection := db.Collection(notificationCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}}},
	}, log)
	return &NotificationRepository{collection: collection, logger: log.Named("NotificationRepository")}, nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	doc := notificationDocument{
		ID:        primitive.NewObjectID(),
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt.UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return dbError("insert notification", err)
	}
	n.ID = doc.ID.Hex()
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, filter domain.NotificationFilter) ([]*domain.Notification, int64, error) {
	query := bson.M{"user_id": filter.UserID}
	if filter.UnreadOnly {
		query["is_read"] = false
	}
	docs, total, err := findPage[notificationDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Notification, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "is_read": false})
	if err != nil {
		return 0, dbError("count unread notifications", err)
	}
	return n, nil
}

// MarkRead is scoped to the owner; other users' ids are not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at.UTC()}})
	if err != nil {
		return dbError("mark notification read", err)
	}
	if result.MatchedCount == 0 {
		return dbError("mark notification read", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result, err := r.collection.UpdateMany(ctx, bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": at.UTC()}})
	if err != nil {
		return 0, dbError("mark notifications read", err)
	}
	return result.ModifiedCount, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "user_id": userID})
	if err != nil {
		return dbError("delete notification", err)
	}
	if result.DeletedCount == 0 {
		return dbError("delete notification", mongo.ErrNoDocuments)
	}
	return nil
}
