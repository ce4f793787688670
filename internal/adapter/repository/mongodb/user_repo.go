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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const userCollectionName = "users"

type userDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	Email          string             `bson:"email"`
	PasswordHash   string             `bson:"password_hash"`
	Role           string             `bson:"role"`
	IsActive       bool               `bson:"is_active"`
	IsApproved     bool               `bson:"is_approved"`
	EnglishLevel   string             `bson:"english_level,omitempty"`
	Bio            string             `bson:"bio,omitempty"`
	Specialties    []string           `bson:"specialties,omitempty"`
	HourlyRate     int64              `bson:"hourly_rate"`
	OrganizationID string             `bson:"organization_id,omitempty"`
	AvatarURL      string             `bson:"avatar_url,omitempty"`
	LastLoginAt    *time.Time         `bson:"last_login_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at"`
}

func fromDomainUser(u *domain.User) userDocument {
	doc := userDocument{
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		IsActive:       u.IsActive,
		IsApproved:     u.IsApproved,
		EnglishLevel:   string(u.EnglishLevel),
		Bio:            u.Bio,
		Specialties:    u.Specialties,
		HourlyRate:     u.HourlyRate,
		OrganizationID: u.OrganizationID,
		AvatarURL:      u.AvatarURL,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
		doc.ID = oid
	}
	return doc
}

func (d userDocument) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Role:           domain.Role(d.Role),
		IsActive:       d.IsActive,
		IsApproved:     d.IsApproved,
		EnglishLevel:   domain.CEFRLevel(d.EnglishLevel),
		Bio:            d.Bio,
		Specialties:    d.Specialties,
		HourlyRate:     d.HourlyRate,
		OrganizationID: d.OrganizationID,
		AvatarURL:      d.AvatarURL,
		LastLoginAt:    d.LastLoginAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// UserRepository implements domain.UserRepository on MongoDB.
type UserRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewUserRepository(db *mongo.Database, log *logger.Logger) (*UserRepository, error) {
	collection := db.Collection(userCollectionName)
	ensureIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "is_active", Value: 1}, {Key: "is_approved", Value: 1}}},
		{Keys: bson.D{{Key: "specialties", Value: 1}}},
	}, log)

	return &UserRepository{
		collection: collection,
		logger:     log.Named("UserRepository"),
	}, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	doc := fromDomainUser(user)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Warn("Duplicate email on user creation", zap.String("email", user.Email))
		} else {
			r.logger.Error("Failed to insert user", zap.Error(err))
		}
		return dbError("insert user", err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": domain.NormalizeEmail(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, dbError("find user", err)
	}
	return doc.toDomain(), nil
}

// Update writes the mutable profile and account fields.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	oid, err := objectID(user.ID)
	if err != nil {
		return err
	}
	doc := fromDomainUser(user)
	doc.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = doc.UpdatedAt

	update := bson.M{"$set": bson.M{
		"name":            doc.Name,
		"role":            doc.Role,
		"is_active":       doc.IsActive,
		"is_approved":     doc.IsApproved,
		"english_level":   doc.EnglishLevel,
		"bio":             doc.Bio,
		"specialties":     doc.Specialties,
		"hourly_rate":     doc.HourlyRate,
		"organization_id": doc.OrganizationID,
		"avatar_url":      doc.AvatarURL,
		"updated_at":      doc.UpdatedAt,
	}}
	return r.updateOne(ctx, oid, update)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, oid, bson.M{"$set": bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()}})
}

func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return r.updateOne(ctx, oid, bson.M{"$set": bson.M{"last_login_at": at.UTC()}})
}

func (r *UserRepository) updateOne(ctx context.Context, oid primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		r.logger.Error("Failed to update user", zap.String("user_id", oid.Hex()), zap.Error(err))
		return dbError("update user", err)
	}
	if result.MatchedCount == 0 {
		return dbError("update user", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	query := bson.M{}
	if filter.Role != nil {
		query["role"] = string(*filter.Role)
	}
	if filter.IsActive != nil {
		query["is_active"] = *filter.IsActive
	}
	if filter.IsApproved != nil {
		query["is_approved"] = *filter.IsApproved
	}
	if filter.Specialty != "" {
		query["specialties"] = filter.Specialty
	}
	if filter.Level != "" {
		query["english_level"] = string(filter.Level)
	}
	if filter.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}

	docs, total, err := findPage[userDocument](ctx, r.collection, query,
		pageOptions(filter.Page, filter.Limit, bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, 0, err
	}
	users := make([]*domain.User, len(docs))
	for i, d := range docs {
		users[i] = d.toDomain()
	}
	return users, total, nil
}
