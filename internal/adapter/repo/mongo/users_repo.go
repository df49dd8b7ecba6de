package mongo

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// UserRepo persists accounts. Emails are unique through an index created by EnsureIndexes.
type UserRepo struct {
	coll *mongo.Collection
}

// NewUserRepo binds the repository to db.
func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(usersCollection)}
}

var _ domain.UserRepository = (*UserRepo)(nil)

// Create inserts u and returns its id; a duplicate email yields ErrConflict.
func (r *UserRepo) Create(ctx domain.Context, u domain.User) (string, error) {
	tracer := otel.Tracer("repo.mongo.users")
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()

	d := userDoc{
		ID:           primitive.NewObjectID(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("op=user.create: email already registered: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=user.create: %w", err)
	}
	return d.ID.Hex(), nil
}

// GetByEmail looks an account up by email.
func (r *UserRepo) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	tracer := otel.Tracer("repo.mongo.users")
	ctx, span := tracer.Start(ctx, "users.GetByEmail")
	defer span.End()

	var d userDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", err)
	}
	return fromUserDoc(d), nil
}
