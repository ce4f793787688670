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

const reservationCollectionName = "reservations"

type reservationDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	StudentID          string             `bson:"student_id"`
	TeacherID          string             `bson:"teacher_id"`
	LessonType         string             `bson:"lesson_type"`
	LessonLevel        string             `bson:"lesson_level,omitempty"`
	ActualDate         string             `bson:"actual_date"`
	StartTime          string             `bson:"start_time"`
	EndTime            string             `bson:"end_time"`
	StartsAt           time.Time          `bson:"starts_at"`
	EndsAt             time.Time          `bson:"ends_at"`
	Status             string             `bson:"status"`
	RoomName           string             `bson:"room_name,omitempty"`
	Price              int64              `bson:"price"`
	PaymentID          string             `bson:"payment_id,omitempty"`
	CancelledBy        string             `bson:"cancelled_by,omitempty"`
	CancellationReason string             `bson:"cancellation_reason,omitempty"`
	Notes              string             `bson:"notes,omitempty"`
	Version            int64              `bson:"version"`
	CreatedAt          time.Time          `bson:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at"`
}

func fromDomainReservation(r *domain.Reservation) reservationDocument {
	doc := reservationDocument{
		StudentID:          r.StudentID,
		TeacherID:          r.TeacherID,
		LessonType:         string(r.LessonType),
		LessonLevel:        string(r.LessonLevel),
		ActualDate:         r.ActualDate,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		StartsAt:           r.StartsAt.UTC(),
		EndsAt:             r.EndsAt.UTC(),
		Status:             string(r.Status),
		RoomName:           r.RoomName,
		Price:              r.Price,
		PaymentID:          r.PaymentID,
		CancelledBy:        r.CancelledBy,
		CancellationReason: r.CancellationReason,
		Notes:              r.Notes,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(r.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d reservationDocument) toDomain() *domain.Reservation {
	return &domain.Reservation{
		ID:                 d.ID.Hex(),
		StudentID:          d.StudentID,
		TeacherID:          d.TeacherID,
		LessonType:         domain.LessonType(d.LessonType),
		LessonLevel:        domain.CEFRLevel(d.LessonLevel),
		ActualDate:         d.ActualDate,
		StartTime:          d.StartTime,
		EndTime:            d.EndTime,
		StartsAt:           d.StartsAt,
		EndsAt:             d.EndsAt,
		Status:             domain.ReservationStatus(d.Status),
		RoomName:           d.RoomName,
		Price:              d.Price,
		PaymentID:          d.PaymentID,
		CancelledBy:        d.CancelledBy,
		CancellationReason: d.CancellationReason,
		Notes:              d.Notes,
		Version:            d.Version,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

var activeReservationStatuses = bson.A{string(domain.ReservationPending), string(domain.ReservationConfirmed)}

type ReservationRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewReservationRepository(db *mongo.Database, log *logger.Logger) (*ReservationRepository, error) {
	collection := db.Collection(reservationCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		// One active reservation per teacher start time.
		{
			Keys: bson.D{{Key: "teacher_id", Value: 1}, {Key: "starts_at", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_active_teacher_start").
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": activeReservationStatuses}}),
		},
	}, log)
	return &ReservationRepository{collection: collection, logger: log.Named("ReservationRepository")}, nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	doc := fromDomainReservation(res)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Warn("Active reservation already exists at this start", zap.String("teacher_id", res.TeacherID), zap.Time("starts_at", res.StartsAt))
			return fmt.Errorf("%w: teacher already booked at %s", domain.ErrSlotUnavailable, res.StartsAt.Format(time.RFC3339))
		}
		r.logger.Error("Failed to insert reservation", zap.Error(err))
		return dbError("insert reservation", err)
	}
	res.ID = doc.ID.Hex()
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc reservationDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, dbError("find reservation", err)
	}
	return doc.toDomain(), nil
}

// Update matches on the loaded version and bumps it.
func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	oid, err := objectID(res.ID)
	if err != nil {
		return err
	}
	doc := fromDomainReservation(res)
	doc.UpdatedAt = time.Now().UTC()

	update := bson.M{
		"$set": bson.M{
			"status":              doc.Status,
			"room_name":           doc.RoomName,
			"price":               doc.Price,
			"payment_id":          doc.PaymentID,
			"cancelled_by":        doc.CancelledBy,
			"cancellation_reason": doc.CancellationReason,
			"notes":               doc.Notes,
			"updated_at":          doc.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "version": res.Version}, update)
	if err != nil {
		r.logger.Error("Failed to update reservation", zap.String("reservation_id", res.ID), zap.Error(err))
		return dbError("update reservation", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return dbError("update reservation", err)
		}
		if count == 0 {
			return dbError("update reservation", mongo.ErrNoDocuments)
		}
		r.logger.Warn("Reservation version mismatch", zap.String("reservation_id", res.ID), zap.Int64("version", res.Version))
		return fmt.Errorf("%w: reservation %s", domain.ErrOptimisticLock, res.ID)
	}
	res.Version++
	res.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *ReservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, int64, error) {
	query := bson.M{}
	if filter.StudentID != "" {
		query["student_id"] = filter.StudentID
	}
	if filter.TeacherID != "" {
		query["teacher_id"] = filter.TeacherID
	}
	if filter.ParticipantID != "" {
		query["$or"] = bson.A{bson.M{"student_id": filter.ParticipantID}, bson.M{"teacher_id": filter.ParticipantID}}
	}
	if len(filter.Statuses) > 0 {
		statuses := make(bson.A, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query["status"] = bson.M{"$in": statuses}
	}
	if filter.From != nil || filter.To != nil {
		rng := bson.M{}
		if filter.From != nil {
			rng["$gte"] = filter.From.UTC()
		}
		if filter.To != nil {
			rng["$lt"] = filter.To.UTC()
		}
		query["starts_at"] = rng
	}

	docs, total, err := findPage[reservationDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "starts_at", Value: -1}}))
	if err != nil {
		r.logger.Error("Failed to list reservations", zap.Error(err))
		return nil, 0, err
	}
	out := make([]*domain.Reservation, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}

func (r *ReservationRepository) FindOverlapping(ctx context.Context, userIDs []string, start, end time.Time) ([]*domain.Reservation, error) {
	ids := make(bson.A, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id
	}
	query := bson.M{
		"status":    bson.M{"$in": activeReservationStatuses},
		"starts_at": bson.M{"$lt": end.UTC()},
		"ends_at":   bson.M{"$gt": start.UTC()},
		"$or": bson.A{
			bson.M{"teacher_id": bson.M{"$in": ids}},
			bson.M{"student_id": bson.M{"$in": ids}},
		},
	}
	cursor, err := r.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}}))
	if err != nil {
		return nil, dbError("find overlapping reservations", err)
	}
	defer cursor.Close(ctx)

	var docs []reservationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, dbError("decode reservations", err)
	}
	out := make([]*domain.Reservation, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (r *ReservationRepository) SetPayment(ctx context.Context, id, paymentID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"payment_id": paymentID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return dbError("set reservation payment", err)
	}
	if result.MatchedCount == 0 {
		return dbError("set reservation payment", mongo.ErrNoDocuments)
	}
	return nil
}
