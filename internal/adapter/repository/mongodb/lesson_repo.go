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

const lessonCollectionName = "lessons"

type lessonDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ReservationID   string             `bson:"reservation_id"`
	TeacherID       string             `bson:"teacher_id"`
	StudentID       string             `bson:"student_id"`
	Type            string             `bson:"type"`
	Level           string             `bson:"level,omitempty"`
	StartsAt        time.Time          `bson:"starts_at"`
	EndsAt          time.Time          `bson:"ends_at"`
	Status          string             `bson:"status"`
	RoomName        string             `bson:"room_name"`
	TeacherNotes    string             `bson:"teacher_notes,omitempty"`
	Rating          int                `bson:"rating,omitempty"`
	StudentFeedback string             `bson:"student_feedback,omitempty"`
	StartedAt       *time.Time         `bson:"started_at,omitempty"`
	CompletedAt     *time.Time         `bson:"completed_at,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func fromDomainLesson(l *domain.Lesson) lessonDocument {
	doc := lessonDocument{
		ReservationID:   l.ReservationID,
		TeacherID:       l.TeacherID,
		StudentID:       l.StudentID,
		Type:            string(l.Type),
		Level:           string(l.Level),
		StartsAt:        l.StartsAt.UTC(),
		EndsAt:          l.EndsAt.UTC(),
		Status:          string(l.Status),
		RoomName:        l.RoomName,
		TeacherNotes:    l.TeacherNotes,
		Rating:          l.Rating,
		StudentFeedback: l.StudentFeedback,
		StartedAt:       l.StartedAt,
		CompletedAt:     l.CompletedAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(l.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d lessonDocument) toDomain() *domain.Lesson {
	return &domain.Lesson{
		ID:              d.ID.Hex(),
		ReservationID:   d.ReservationID,
		TeacherID:       d.TeacherID,
		StudentID:       d.StudentID,
		Type:            domain.LessonType(d.Type),
		Level:           domain.CEFRLevel(d.Level),
		StartsAt:        d.StartsAt,
		EndsAt:          d.EndsAt,
		Status:          domain.LessonStatus(d.Status),
		RoomName:        d.RoomName,
		TeacherNotes:    d.TeacherNotes,
		Rating:          d.Rating,
		StudentFeedback: d.StudentFeedback,
		StartedAt:       d.StartedAt,
		CompletedAt:     d.CompletedAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type LessonRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewLessonRepository(db *mongo.Database, log *logger.Logger) (*LessonRepository, error) {
	collection := db.Collection(lessonCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reservation_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "teacher_id", Value: 1}, {Key: "starts_at", Value: -1}}},
		{Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "starts_at", Value: -1}}},
	}, log)
	return &LessonRepository{collection: collection, logger: log.Named("LessonRepository")}, nil
}

// Create fails with ErrConflict when the reservation already has a lesson.
func (r *LessonRepository) Create(ctx context.Context, l *domain.Lesson) error {
	doc := fromDomainLesson(l)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			r.logger.Error("Failed to insert lesson", zap.String("reservation_id", l.ReservationID), zap.Error(err))
		}
		return dbError("insert lesson", err)
	}
	l.ID = doc.ID.Hex()
	return nil
}

func (r *LessonRepository) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *LessonRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Lesson, error) {
	return r.findOne(ctx, bson.M{"reservation_id": reservationID})
}

func (r *LessonRepository) findOne(ctx context.Context, filter bson.M) (*domain.Lesson, error) {
	var doc lessonDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, dbError("find lesson", err)
	}
	return doc.toDomain(), nil
}

func (r *LessonRepository) Update(ctx context.Context, l *domain.Lesson) error {
	oid, err := objectID(l.ID)
	if err != nil {
		return err
	}
	doc := fromDomainLesson(l)
	doc.UpdatedAt = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"status":           doc.Status,
		"teacher_notes":    doc.TeacherNotes,
		"rating":           doc.Rating,
		"student_feedback": doc.StudentFeedback,
		"started_at":       doc.StartedAt,
		"completed_at":     doc.CompletedAt,
		"updated_at":       doc.UpdatedAt,
	}})
	if err != nil {
		r.logger.Error("Failed to update lesson", zap.String("lesson_id", l.ID), zap.Error(err))
		return dbError("update lesson", err)
	}
	if result.MatchedCount == 0 {
		return dbError("update lesson", mongo.ErrNoDocuments)
	}
	l.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *LessonRepository) List(ctx context.Context, filter domain.LessonFilter) ([]*domain.Lesson, int64, error) {
	query := bson.M{}
	if filter.ParticipantID != "" {
		query["$or"] = bson.A{bson.M{"student_id": filter.ParticipantID}, bson.M{"teacher_id": filter.ParticipantID}}
	}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	docs, total, err := findPage[lessonDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "starts_at", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Lesson, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, total, nil
}
