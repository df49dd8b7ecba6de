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

// InterviewRepo persists interviews in the interviews collection.
type InterviewRepo struct {
	coll *mongo.Collection
}

// NewInterviewRepo binds the repository to db.
func NewInterviewRepo(db *mongo.Database) *InterviewRepo {
	return &InterviewRepo{coll: db.Collection(interviewsCollection)}
}

var _ domain.InterviewRepository = (*InterviewRepo)(nil)

// roundedAverage is half-up rounding of the mean question score, matching AverageScore.
var roundedAverage = bson.M{"$toInt": bson.M{"$floor": bson.M{"$add": bson.A{
	bson.M{"$ifNull": bson.A{bson.M{"$avg": "$questions.score"}, 0}}, 0.5,
}}}}

func newInterviewDoc(iv domain.Interview) interviewDoc {
	d := interviewDoc{
		UserID:     iv.UserID,
		Role:       iv.Role,
		Difficulty: iv.Difficulty,
		Questions:  make([]questionDoc, 0, len(iv.Questions)),
		TotalScore: iv.TotalScore,
		Status:     string(iv.Status),
		CreatedAt:  iv.CreatedAt,
	}
	for _, q := range iv.Questions {
		d.Questions = append(d.Questions, toQuestionDoc(q))
	}
	if d.Status == "" {
		d.Status = string(domain.InterviewInProgress)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return d
}

// Create inserts iv and returns the generated ObjectID in hex form.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	tracer := otel.Tracer("repo.mongo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()

	d := newInterviewDoc(iv)
	d.ID = primitive.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	return d.ID.Hex(), nil
}

// Get loads an interview by id.
func (r *InterviewRepo) Get(ctx domain.Context, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.mongo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	var d interviewDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return fromInterviewDoc(d), nil
}

// ListByUser returns the user's most recent interviews, newest first.
func (r *InterviewRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.Interview, error) {
	tracer := otel.Tracer("repo.mongo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.ListByUser")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	var docs []interviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	out := make([]domain.Interview, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromInterviewDoc(d))
	}
	return out, nil
}

// AppendAnswer appends qa and recomputes the total score in one pipeline update.
// Completed interviews are rejected with ErrConflict.
func (r *InterviewRepo) AppendAnswer(ctx domain.Context, id string, qa domain.QuestionAnswer) (domain.Interview, error) {
	tracer := otel.Tracer("repo.mongo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.AppendAnswer")
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append: %w", err)
	}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"questions": bson.M{"$concatArrays": bson.A{"$questions", bson.A{bson.M{"$literal": toQuestionDoc(qa)}}}},
		}}},
		{{Key: "$set", Value: bson.M{"totalScore": roundedAverage}}},
	}
	filter := bson.M{"_id": oid, "status": string(domain.InterviewInProgress)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d interviewDoc
	err = r.coll.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return domain.Interview{}, fmt.Errorf("op=interview.append: %w", gerr)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.append: interview completed: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append: %w", err)
	}
	return fromInterviewDoc(d), nil
}

// Complete marks the interview completed. Completing twice is a no-op.
func (r *InterviewRepo) Complete(ctx domain.Context, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.mongo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Complete")
	defer span.End()

	oid, err := objectID(id)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.complete: %w", err)
	}
	update := bson.M{"$set": bson.M{"status": string(domain.InterviewCompleted)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d interviewDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Interview{}, fmt.Errorf("op=interview.complete: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.complete: %w", err)
	}
	return fromInterviewDoc(d), nil
}
