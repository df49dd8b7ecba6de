package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type questionDoc struct {
	Question   string    `bson:"question"`
	UserAnswer string    `bson:"userAnswer"`
	Score      int       `bson:"score"`
	Feedback   string    `bson:"feedback"`
	Timestamp  time.Time `bson:"timestamp"`
}

type interviewDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"userId"`
	Role       string             `bson:"role"`
	Difficulty string             `bson:"difficulty"`
	Questions  []questionDoc      `bson:"questions"`
	TotalScore int                `bson:"totalScore"`
	Status     string             `bson:"status"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type messageDoc struct {
	Type      string    `bson:"type"`
	Content   string    `bson:"content"`
	Score     *int      `bson:"score,omitempty"`
	MessageID string    `bson:"messageId,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
}

type practiceDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Topic     string             `bson:"topic"`
	Mode      string             `bson:"mode"`
	Messages  []messageDoc       `bson:"messages"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

// objectID parses a hex id; malformed ids cannot exist, so they map to ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("malformed id %q: %w", id, domain.ErrNotFound)
	}
	return oid, nil
}

func toQuestionDoc(qa domain.QuestionAnswer) questionDoc {
	return questionDoc(qa)
}

func fromInterviewDoc(d interviewDoc) domain.Interview {
	qs := make([]domain.QuestionAnswer, 0, len(d.Questions))
	for _, q := range d.Questions {
		qs = append(qs, domain.QuestionAnswer(q))
	}
	return domain.Interview{
		ID:         d.ID.Hex(),
		UserID:     d.UserID,
		Role:       d.Role,
		Difficulty: d.Difficulty,
		Questions:  qs,
		TotalScore: d.TotalScore,
		Status:     domain.InterviewStatus(d.Status),
		CreatedAt:  d.CreatedAt,
	}
}

func toMessageDocs(msgs []domain.Message) ([]messageDoc, error) {
	out := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		kind, err := m.Kind.MarshalText()
		if err != nil {
			return nil, err
		}
		out = append(out, messageDoc{
			Type:      string(kind),
			Content:   m.Content,
			Score:     m.Score,
			MessageID: m.MessageID,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}

func fromPracticeDoc(d practiceDoc) (domain.PracticeSession, error) {
	msgs := make([]domain.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		kind, err := domain.ParseMessageKind(m.Type)
		if err != nil {
			return domain.PracticeSession{}, err
		}
		msgs = append(msgs, domain.Message{
			Kind:      kind,
			Content:   m.Content,
			Score:     m.Score,
			MessageID: m.MessageID,
			Timestamp: m.Timestamp,
		})
	}
	return domain.PracticeSession{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		Topic:     d.Topic,
		Mode:      domain.PracticeMode(d.Mode),
		Messages:  msgs,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func fromUserDoc(d userDoc) domain.User {
	return domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}
