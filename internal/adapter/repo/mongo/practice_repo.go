package mongo

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// PracticeRepo persists practice sessions with their transcript embedded.
type PracticeRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewPracticeRepo binds the repository to db.
func NewPracticeRepo(db *mongo.Database) *PracticeRepo {
	return &PracticeRepo{
		coll: db.Collection(practiceCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ domain.PracticeRepository = (*PracticeRepo)(nil)

// Create inserts s and returns its generated id.
func (r *PracticeRepo) Create(ctx domain.Context, s domain.PracticeSession) (string, error) {
	tracer := otel.Tracer("repo.mongo.practice")
	ctx, span := tracer.Start(ctx, "practice.Create")
	defer span.End()

	msgs, err := toMessageDocs(s.Messages)
	if err != nil {
		return "", fmt.Errorf("op=practice.create: %w", err)
	}
	now := r.now()
	d := practiceDoc{
		ID:        primitive.NewObjectID(),
		UserID:    s.UserID,
		Topic:     s.Topic,
		Mode:      string(s.Mode),
		Messages:  msgs,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return "", fmt.Errorf("op=practice.create: %w", err)
	}
	return d.ID.Hex(), nil
}

// Get loads a session by id.
func (r *PracticeRepo) Get(ctx domain.Context, id string) (domain.PracticeSession, error) {
	tracer := otel.Tracer("repo.mongo.practice")
	ctx, span := tracer.Start(ctx, "practice.Get")
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=practice.get: %w", err)
	}
	var d practiceDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.PracticeSession{}, fmt.Errorf("op=practice.get: %w", domain.ErrNotFound)
		}
		return domain.PracticeSession{}, fmt.Errorf("op=practice.get: %w", err)
	}
	s, err := fromPracticeDoc(d)
	if err != nil {
		return domain.PracticeSession{}, fmt.Errorf("op=practice.get: %w", err)
	}
	return s, nil
}

// ListByUser returns the user's sessions, most recently updated first.
func (r *PracticeRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.PracticeSession, error) {
	tracer := otel.Tracer("repo.mongo.practice")
	ctx, span := tracer.Start(ctx, "practice.ListByUser")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("op=practice.list: %w", err)
	}
	var docs []practiceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("op=practice.list: %w", err)
	}
	out := make([]domain.PracticeSession, 0, len(docs))
	for _, d := range docs {
		s, err := fromPracticeDoc(d)
		if err != nil {
			return nil, fmt.Errorf("op=practice.list: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// PushMessages appends msgs to the transcript and bumps updatedAt.
func (r *PracticeRepo) PushMessages(ctx domain.Context, id string, msgs ...domain.Message) error {
	tracer := otel.Tracer("repo.mongo.practice")
	ctx, span := tracer.Start(ctx, "practice.PushMessages")
	defer span.End()

	if len(msgs) == 0 {
		return nil
	}
	oid, err := objectID(id)
	if err != nil {
		return fmt.Errorf("op=practice.push: %w", err)
	}
	docs, err := toMessageDocs(msgs)
	if err != nil {
		return fmt.Errorf("op=practice.push: %w", err)
	}
	update := bson.M{
		"$push": bson.M{"messages": bson.M{"$each": docs}},
		"$set":  bson.M{"updatedAt": r.now()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("op=practice.push: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("op=practice.push: %w", domain.ErrNotFound)
	}
	return nil
}

// SetMessageContent replaces the content of the message carrying messageID.
func (r *PracticeRepo) SetMessageContent(ctx domain.Context, id, messageID, content string) error {
	tracer := otel.Tracer("repo.mongo.practice")
	ctx, span := tracer.Start(ctx, "practice.SetMessageContent")
	defer span.End()

	if messageID == "" {
		return fmt.Errorf("op=practice.set_message: %w", domain.ErrNotFound)
	}
	oid, err := objectID(id)
	if err != nil {
		return fmt.Errorf("op=practice.set_message: %w", err)
	}
	filter := bson.M{"_id": oid, "messages.messageId": messageID}
	update := bson.M{"$set": bson.M{"messages.$.content": content, "updatedAt": r.now()}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("op=practice.set_message: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("op=practice.set_message: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteForUser removes the session only when userID owns it.
func (r *PracticeRepo) DeleteForUser(ctx domain.Context, id, userID string) error {
	tracer := otel.Tracer("repo.mongo.practice")
	ctx, span := tracer.Start(ctx, "practice.DeleteForUser")
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return fmt.Errorf("op=practice.delete: %w", err)
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	if err != nil {
		return fmt.Errorf("op=practice.delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("op=practice.delete: %w", domain.ErrNotFound)
	}
	return nil
}
