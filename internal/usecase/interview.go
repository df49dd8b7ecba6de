package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// InterviewService runs role/difficulty interviews.
type InterviewService struct {
	Repo         domain.InterviewRepository
	AI           AI
	Events       domain.EventPublisher
	HistoryLimit int
	now          func() time.Time
}

// NewInterviewService constructs an InterviewService. A nil publisher disables events.
func NewInterviewService(repo domain.InterviewRepository, ai AI, events domain.EventPublisher, historyLimit int) InterviewService {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return InterviewService{
		Repo:         repo,
		AI:           ai,
		Events:       events,
		HistoryLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s InterviewService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

// Start creates an in-progress interview owned by userID.
func (s InterviewService) Start(ctx domain.Context, userID, role, difficulty string) (string, error) {
	role, difficulty = textx.Label(role, maxLabelRunes), textx.Label(difficulty, maxLabelRunes)
	if role == "" || difficulty == "" {
		return "", fmt.Errorf("%w: role and difficulty are required", domain.ErrInvalidArgument)
	}
	iv := domain.Interview{
		UserID:     userID,
		Role:       role,
		Difficulty: difficulty,
		Questions:  []domain.QuestionAnswer{},
		Status:     domain.InterviewInProgress,
		CreatedAt:  s.clock(),
	}
	id, err := s.Repo.Create(ctx, iv)
	if err != nil {
		return "", err
	}
	observability.SessionStarted(domain.SessionKindInterview)
	publish(ctx, s.Events, domain.SessionEvent{
		Type: domain.EventInterviewStarted, SessionKind: domain.SessionKindInterview,
		SessionID: id, UserID: userID, At: iv.CreatedAt,
	})
	return id, nil
}

// owned loads the interview and enforces that userID owns it.
func (s InterviewService) owned(ctx domain.Context, userID, id string) (domain.Interview, error) {
	iv, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Interview{}, err
	}
	if iv.UserID != userID {
		return domain.Interview{}, fmt.Errorf("%w: interview belongs to another user", domain.ErrForbidden)
	}
	return iv, nil
}

// NextQuestion generates the next question and its 1-based number.
func (s InterviewService) NextQuestion(ctx domain.Context, userID, id string) (string, int, error) {
	iv, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", 0, err
	}
	q := s.AI.GenerateInterviewQuestion(aiContext(ctx), iv.Role, iv.Difficulty, iv.PreviousQuestions())
	return q, len(iv.Questions) + 1, nil
}

// Answer evaluates answer, records it and returns the evaluation.
// Completed interviews reject further answers with ErrConflict.
func (s InterviewService) Answer(ctx domain.Context, userID, id, question, answer string) (domain.Evaluation, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return domain.Evaluation{}, fmt.Errorf("%w: question and answer are required", domain.ErrInvalidArgument)
	}
	iv, err := s.owned(ctx, userID, id)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if iv.Completed() {
		return domain.Evaluation{}, fmt.Errorf("%w: interview already completed", domain.ErrConflict)
	}

	// the evaluation is persisted even if the client goes away mid-completion
	actx := aiContext(ctx)
	ev := s.AI.EvaluateAnswer(actx, question, answer)
	qa := domain.QuestionAnswer{
		Question:   question,
		UserAnswer: answer,
		Score:      ev.Score,
		Feedback:   ev.Feedback,
		Timestamp:  s.clock(),
	}
	if _, err := s.Repo.AppendAnswer(actx, id, qa); err != nil {
		return domain.Evaluation{}, err
	}
	publish(actx, s.Events, domain.SessionEvent{
		Type: domain.EventInterviewAnswered, SessionKind: domain.SessionKindInterview,
		SessionID: id, UserID: userID, Score: intPtr(ev.Score), At: qa.Timestamp,
	})
	return ev, nil
}

// Complete marks the interview completed and returns it.
func (s InterviewService) Complete(ctx domain.Context, userID, id string) (domain.Interview, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return domain.Interview{}, err
	}
	iv, err := s.Repo.Complete(ctx, id)
	if err != nil {
		return domain.Interview{}, err
	}
	publish(ctx, s.Events, domain.SessionEvent{
		Type: domain.EventInterviewCompleted, SessionKind: domain.SessionKindInterview,
		SessionID: id, UserID: userID, Score: intPtr(iv.TotalScore),
	})
	return iv, nil
}

// History lists the user's most recent interviews, newest first.
func (s InterviewService) History(ctx domain.Context, userID string) ([]domain.Interview, error) {
	return s.Repo.ListByUser(ctx, userID, s.HistoryLimit)
}
