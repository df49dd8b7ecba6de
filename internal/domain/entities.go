package domain

import (
	"context"
	"errors"
	"math"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	// ErrCompletionUnavailable covers every failure of the completion endpoint:
	// network errors, timeouts, non-2xx responses and undecodable bodies.
	ErrCompletionUnavailable = errors.New("completion unavailable")
	ErrInternal              = errors.New("internal error")
)

// Context is an alias so ports read the same across packages.
type Context = context.Context

// Evaluation is a (score, feedback) assessment of an answer. Score is always in [0,100].
type Evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// ClampScore bounds s to [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// InterviewStatus enumerates interview lifecycle states.
type InterviewStatus string

const (
	InterviewInProgress InterviewStatus = "in-progress"
	InterviewCompleted  InterviewStatus = "completed"
)

// QuestionAnswer is one answered question inside an interview. Immutable once appended.
type QuestionAnswer struct {
	Question   string    `json:"question" bson:"question"`
	UserAnswer string    `json:"userAnswer" bson:"userAnswer"`
	Score      int       `json:"score" bson:"score"`
	Feedback   string    `json:"feedback" bson:"feedback"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// Interview is a fixed role/difficulty session of sequential Q&A.
type Interview struct {
	ID         string           `json:"_id"`
	UserID     string           `json:"userId"`
	Role       string           `json:"role"`
	Difficulty string           `json:"difficulty"`
	Questions  []QuestionAnswer `json:"questions"`
	TotalScore int              `json:"totalScore"`
	Status     InterviewStatus  `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Completed reports whether the interview is read-only history.
func (i Interview) Completed() bool { return i.Status == InterviewCompleted }

// PreviousQuestions lists the questions already asked, oldest first.
func (i Interview) PreviousQuestions() []string {
	out := make([]string, 0, len(i.Questions))
	for _, q := range i.Questions {
		out = append(out, q.Question)
	}
	return out
}

// AverageScore is the rounded mean of all recorded scores, recomputed from scratch.
// An interview with no answers scores 0.
func AverageScore(qs []QuestionAnswer) int {
	if len(qs) == 0 {
		return 0
	}
	sum := 0
	for _, q := range qs {
		sum += q.Score
	}
	return int(math.Round(float64(sum) / float64(len(qs))))
}

// PracticeMode enumerates how a practice session is driven.
type PracticeMode string

const (
	ModeAIAnswers   PracticeMode = "ai-answers"
	ModeUserAnswers PracticeMode = "user-answers"
)

// Valid reports whether m is a known mode.
func (m PracticeMode) Valid() bool { return m == ModeAIAnswers || m == ModeUserAnswers }

// PracticeSession is an open-ended topic session of mixed messages.
type PracticeSession struct {
	ID        string       `json:"_id"`
	UserID    string       `json:"userId"`
	Topic     string       `json:"topic"`
	Mode      PracticeMode `json:"mode"`
	Messages  []Message    `json:"messages"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// FindMessage returns the message carrying messageID.
func (p PracticeSession) FindMessage(messageID string) (Message, bool) {
	if messageID == "" {
		return Message{}, false
	}
	for _, m := range p.Messages {
		if m.MessageID == messageID {
			return m, true
		}
	}
	return Message{}, false
}

// User is an account able to own sessions.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repositories (ports)

type InterviewRepository interface {
	Create(ctx Context, iv Interview) (string, error)
	Get(ctx Context, id string) (Interview, error)
	// ListByUser returns the newest interviews first.
	ListByUser(ctx Context, userID string, limit int) ([]Interview, error)
	// AppendAnswer pushes qa and recomputes the total score in one document update.
	// Completed interviews are rejected with ErrConflict.
	AppendAnswer(ctx Context, id string, qa QuestionAnswer) (Interview, error)
	Complete(ctx Context, id string) (Interview, error)
}

type PracticeRepository interface {
	Create(ctx Context, s PracticeSession) (string, error)
	Get(ctx Context, id string) (PracticeSession, error)
	// ListByUser returns the most recently updated sessions first.
	ListByUser(ctx Context, userID string, limit int) ([]PracticeSession, error)
	PushMessages(ctx Context, id string, msgs ...Message) error
	SetMessageContent(ctx Context, id, messageID, content string) error
	DeleteForUser(ctx Context, id, userID string) error
}

type UserRepository interface {
	Create(ctx Context, u User) (string, error)
	GetByEmail(ctx Context, email string) (User, error)
}

// Completer (port) is the raw text-completion endpoint.
type Completer interface {
	Complete(ctx Context, prompt string, opts CompletionOptions) (string, error)
}

// CompletionOptions are the sampling knobs sent with a completion request.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// EventPublisher (port) emits session lifecycle events. Implementations are best-effort.
type EventPublisher interface {
	Publish(ctx Context, ev SessionEvent) error
}

// SessionEvent types
const (
	EventInterviewStarted   = "interview.started"
	EventInterviewAnswered  = "interview.answered"
	EventInterviewCompleted = "interview.completed"
	EventPracticeStarted    = "practice.started"
	EventPracticeEvaluated  = "practice.evaluated"
	EventPracticeDeleted    = "practice.deleted"
)

// SessionEvent is the payload published for session lifecycle changes.
type SessionEvent struct {
	Type        string    `json:"type"`
	SessionKind string    `json:"sessionKind"`
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId"`
	Score       *int      `json:"score,omitempty"`
	At          time.Time `json:"at"`
}

// Session kinds carried by SessionEvent.
const (
	SessionKindInterview = "interview"
	SessionKindPractice  = "practice"
)
