package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// PracticeService runs free-form practice sessions. Transcript writes are optional:
// every AI operation works without a session id.
type PracticeService struct {
	Repo         domain.PracticeRepository
	AI           AI
	Events       domain.EventPublisher
	HistoryLimit int
	now          func() time.Time
}

// NewPracticeService constructs a PracticeService. A nil publisher disables events.
func NewPracticeService(repo domain.PracticeRepository, ai AI, events domain.EventPublisher, historyLimit int) PracticeService {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return PracticeService{
		Repo:         repo,
		AI:           ai,
		Events:       events,
		HistoryLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s PracticeService) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

// Start opens a session on topic in the given mode.
func (s PracticeService) Start(ctx domain.Context, userID, topic string, mode domain.PracticeMode) (string, error) {
	topic = textx.Label(topic, maxLabelRunes)
	if topic == "" {
		return "", fmt.Errorf("%w: topic is required", domain.ErrInvalidArgument)
	}
	if !mode.Valid() {
		return "", fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidArgument, mode)
	}
	now := s.clock()
	id, err := s.Repo.Create(ctx, domain.PracticeSession{
		UserID:    userID,
		Topic:     topic,
		Mode:      mode,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return "", err
	}
	observability.SessionStarted(domain.SessionKindPractice)
	publish(ctx, s.Events, domain.SessionEvent{
		Type: domain.EventPracticeStarted, SessionKind: domain.SessionKindPractice,
		SessionID: id, UserID: userID, At: now,
	})
	return id, nil
}

// owned loads the session and enforces that userID owns it.
func (s PracticeService) owned(ctx domain.Context, userID, id string) (domain.PracticeSession, error) {
	ps, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.PracticeSession{}, err
	}
	if ps.UserID != userID {
		return domain.PracticeSession{}, fmt.Errorf("%w: session belongs to another user", domain.ErrForbidden)
	}
	return ps, nil
}

// checkSession verifies ownership when a session id was supplied.
func (s PracticeService) checkSession(ctx domain.Context, userID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, err := s.owned(ctx, userID, sessionID)
	return err
}

// GenerateQuestion produces a new question on topic, recording it when sessionID is set.
func (s PracticeService) GenerateQuestion(ctx domain.Context, userID, sessionID, topic string, previous []string) (string, error) {
	if strings.TrimSpace(topic) == "" {
		return "", fmt.Errorf("%w: topic is required", domain.ErrInvalidArgument)
	}
	if err := s.checkSession(ctx, userID, sessionID); err != nil {
		return "", err
	}
	actx := aiContext(ctx)
	q := s.AI.GenerateTopicQuestion(actx, topic, previous)
	if sessionID != "" {
		if err := s.Repo.PushMessages(actx, sessionID, domain.NewAIQuestion(q, s.clock())); err != nil {
			return "", err
		}
	}
	return q, nil
}

// AnswerQuestion explains question within topic. The returned message id addresses the
// stored answer for later modification.
func (s PracticeService) AnswerQuestion(ctx domain.Context, userID, sessionID, question, topic string) (string, string, error) {
	if strings.TrimSpace(question) == "" {
		return "", "", fmt.Errorf("%w: question is required", domain.ErrInvalidArgument)
	}
	if err := s.checkSession(ctx, userID, sessionID); err != nil {
		return "", "", err
	}
	actx := aiContext(ctx)
	answer := s.AI.AnswerQuestion(actx, question, topic)
	now := s.clock()
	messageID := domain.NewMessageID(now)
	if sessionID != "" {
		if err := s.Repo.PushMessages(actx, sessionID,
			domain.NewUserQuestion(question, now),
			domain.NewAIAnswer(answer, messageID, now),
		); err != nil {
			return "", "", err
		}
	}
	return answer, messageID, nil
}

// EvaluateAnswer scores the user's answer, recording both sides when sessionID is set.
func (s PracticeService) EvaluateAnswer(ctx domain.Context, userID, sessionID, question, answer string) (domain.Evaluation, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return domain.Evaluation{}, fmt.Errorf("%w: question and answer are required", domain.ErrInvalidArgument)
	}
	if err := s.checkSession(ctx, userID, sessionID); err != nil {
		return domain.Evaluation{}, err
	}
	actx := aiContext(ctx)
	ev := s.AI.EvaluateAnswer(actx, question, answer)
	if sessionID != "" {
		now := s.clock()
		if err := s.Repo.PushMessages(actx, sessionID,
			domain.NewUserAnswer(answer, now),
			domain.NewAIFeedback(ev, now),
		); err != nil {
			return domain.Evaluation{}, err
		}
		publish(actx, s.Events, domain.SessionEvent{
			Type: domain.EventPracticeEvaluated, SessionKind: domain.SessionKindPractice,
			SessionID: sessionID, UserID: userID, Score: intPtr(ev.Score), At: now,
		})
	}
	return ev, nil
}

// ModifyAnswer rewrites a stored AI answer according to instruction and saves it in place.
func (s PracticeService) ModifyAnswer(ctx domain.Context, userID, sessionID, messageID, instruction string) (string, error) {
	if sessionID == "" || messageID == "" || strings.TrimSpace(instruction) == "" {
		return "", fmt.Errorf("%w: sessionId, messageId and instruction are required", domain.ErrInvalidArgument)
	}
	ps, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	msg, ok := ps.FindMessage(messageID)
	if !ok {
		return "", fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
	}
	actx := aiContext(ctx)
	modified := s.AI.ModifyAnswer(actx, msg.Content, instruction)
	if err := s.Repo.SetMessageContent(actx, sessionID, messageID, modified); err != nil {
		return "", err
	}
	return modified, nil
}

// History lists the user's sessions, most recently updated first.
func (s PracticeService) History(ctx domain.Context, userID string) ([]domain.PracticeSession, error) {
	return s.Repo.ListByUser(ctx, userID, s.HistoryLimit)
}

// Delete removes one of the user's sessions. Sessions of other users read as not found.
func (s PracticeService) Delete(ctx domain.Context, userID, sessionID string) error {
	if err := s.Repo.DeleteForUser(ctx, sessionID, userID); err != nil {
		return err
	}
	publish(ctx, s.Events, domain.SessionEvent{
		Type: domain.EventPracticeDeleted, SessionKind: domain.SessionKindPractice,
		SessionID: sessionID, UserID: userID,
	})
	return nil
}
