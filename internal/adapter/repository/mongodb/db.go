package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/config"
	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 10 * time.Second
	pingTimeout           = 5 * time.Second
	indexTimeout          = 10 * time.Second
)

// NewClient connects and pings the primary.
func NewClient(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	clientOptions := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(timeout)
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, timeout)
	defer cancelConnect()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// ensureIndexes creates indexes; failures are logged and startup continues.
func ensureIndexes(coll *mongo.Collection, indexes []mongo.IndexModel, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Error("Failed to create indexes", zap.String("collection", coll.Name()), zap.Error(err))
		return
	}
	log.Info("Ensured indexes", zap.String("collection", coll.Name()))
}

// objectID parses a hex id. Malformed ids cannot exist, so they are not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: id %q", domain.ErrNotFound, id)
	}
	return oid, nil
}

func pageOptions(page, limit int64, sort bson.D) *options.FindOptions {
	page, limit = domain.NormalizePage(page, limit)
	return options.Find().SetSkip((page - 1) * limit).SetLimit(limit).SetSort(sort)
}

// dbError maps driver errors onto domain sentinels.
func dbError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %s: duplicate key", domain.ErrConflict, op)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrRepository, op, err)
}

// findPage runs a paginated find plus count and decodes into docs.
func findPage[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, int64, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, dbError("find "+coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, dbError("decode "+coll.Name(), err)
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, dbError("count "+coll.Name(), err)
	}
	return docs, total, nil
}
