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

const paymentCollectionName = "payments"

// ClientSecret is never persisted.
type paymentDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	UserID        string             `bson:"user_id"`
	ReservationID string             `bson:"reservation_id,omitempty"`
	Amount        int64              `bson:"amount"`
	Currency      string             `bson:"currency"`
	Status        string             `bson:"status"`
	Provider      string             `bson:"provider"`
	ProviderRef   string             `bson:"provider_ref,omitempty"`
	Description   string             `bson:"description,omitempty"`
	FailureReason string             `bson:"failure_reason,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func fromDomainPayment(p *domain.Payment) paymentDocument {
	doc := paymentDocument{
		UserID:        p.UserID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		Provider:      p.Provider,
		ProviderRef:   p.ProviderRef,
		Description:   p.Description,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d paymentDocument) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:            d.ID.Hex(),
		UserID:        d.UserID,
		ReservationID: d.ReservationID,
		Amount:        d.Amount,
		Currency:      d.Currency,
		Status:        domain.PaymentStatus(d.Status),
		Provider:      d.Provider,
		ProviderRef:   d.ProviderRef,
		Description:   d.Description,
		FailureReason: d.FailureReason,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type PaymentRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewPaymentRepository(db *mongo.Database, log *logger.Logger) (*PaymentRepository, error) {
	collection := db.Collection(paymentCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "provider_ref", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"provider_ref": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "reservation_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}, log)
	return &PaymentRepository{collection: collection, logger: log.Named("PaymentRepository")}, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	doc := fromDomainPayment(p)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Error("Failed to insert payment", zap.String("user_id", p.UserID), zap.Error(err))
		return dbError("insert payment", err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid}, nil)
}

func (r *PaymentRepository) GetByProviderRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{"provider_ref": ref}, nil)
}

func (r *PaymentRepository) FindOpenForReservation(ctx context.Context, reservationID string) (*domain.Payment, error) {
	return r.findOne(ctx, bson.M{
		"reservation_id": reservationID,
		"status":         bson.M{"$in": bson.A{string(domain.PaymentPending), string(domain.PaymentSucceeded)}},
	}, options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *PaymentRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Payment, error) {
	var doc paymentDocument
	if opts == nil {
		opts = options.FindOne()
	}
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, dbError("find payment", err)
	}
	return doc.toDomain(), nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	oid, err := objectID(p.ID)
	if err != nil {
		return err
	}
	doc := fromDomainPayment(p)
	doc.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"status":         doc.Status,
		"failure_reason": doc.FailureReason,
		"updated_at":     doc.UpdatedAt,
	}
	if doc.ProviderRef != "" {
		set["provider_ref"] = doc.ProviderRef
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update payment", zap.String("payment_id", p.ID), zap.Error(err))
		return dbError("update payment", err)
	}
	if result.MatchedCount == 0 {
		return dbError("update payment", mongo.ErrNoDocuments)
	}
	p.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *PaymentRepository) List(ctx context.Context, filter domain.PaymentFilter) ([]*domain.Payment, int64, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	docs, total, err := findPage[paymentDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Payment, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}
