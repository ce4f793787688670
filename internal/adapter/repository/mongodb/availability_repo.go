package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/cemonal1/Verbfy-sub006/internal/domain"
	"github.com/cemonal1/Verbfy-sub006/internal/platform/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const availabilityCollectionName = "availability"

// A teacher's week is a single document so replacing it is one atomic write.
type weekDocument struct {
	TeacherID string           `bson:"_id"`
	Windows   []windowDocument `bson:"windows"`
	UpdatedAt time.Time        `bson:"updated_at"`
}

type windowDocument struct {
	ID        string    `bson:"id"`
	DayOfWeek int       `bson:"day_of_week"`
	StartTime string    `bson:"start_time"`
	EndTime   string    `bson:"end_time"`
	IsActive  bool      `bson:"is_active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type AvailabilityRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewAvailabilityRepository(db *mongo.Database, log *logger.Logger) (*AvailabilityRepository, error) {
	collection := db.Collection(availabilityCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "windows.day_of_week", Value: 1}}},
	}, log)
	return &AvailabilityRepository{collection: collection, logger: log.Named("AvailabilityRepository")}, nil
}

func (r *AvailabilityRepository) ReplaceForTeacher(ctx context.Context, teacherID string, windows []domain.Availability) ([]domain.Availability, error) {
	now := time.Now().UTC()
	doc := weekDocument{TeacherID: teacherID, Windows: make([]windowDocument, len(windows)), UpdatedAt: now}
	for i, w := range windows {
		id := w.ID
		if id == "" {
			id = primitive.NewObjectID().Hex()
		}
		created := w.CreatedAt
		if created.IsZero() {
			created = now
		}
		doc.Windows[i] = windowDocument{
			ID:        id,
			DayOfWeek: int(w.DayOfWeek),
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			IsActive:  w.IsActive,
			CreatedAt: created,
			UpdatedAt: now,
		}
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": teacherID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to replace availability", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, dbError("replace availability", err)
	}
	return doc.toDomain(), nil
}

func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Availability, error) {
	var doc weekDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": teacherID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.Availability{}, nil
	}
	if err != nil {
		return nil, dbError("find availability", err)
	}
	return doc.toDomain(), nil
}

func (d weekDocument) toDomain() []domain.Availability {
	out := make([]domain.Availability, len(d.Windows))
	for i, w := range d.Windows {
		out[i] = domain.Availability{
			ID:        w.ID,
			TeacherID: d.TeacherID,
			DayOfWeek: time.Weekday(w.DayOfWeek),
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			IsActive:  w.IsActive,
			CreatedAt: w.CreatedAt,
			UpdatedAt: w.UpdatedAt,
		}
	}
	return out
}
