// Package usecase contains the interview, practice and account workflows behind the HTTP API.
package usecase

import (
	"log/slog"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// maxLabelRunes caps stored labels: role, difficulty, topic and account name.
const maxLabelRunes = 200

// AI is the coaching façade. Its operations never fail; they degrade to fallbacks.
type AI interface {
	GenerateTopicQuestion(ctx domain.Context, topic string, previous []string) string
	GenerateInterviewQuestion(ctx domain.Context, role, difficulty string, previous []string) string
	AnswerQuestion(ctx domain.Context, question, topic string) string
	EvaluateAnswer(ctx domain.Context, question, answer string) domain.Evaluation
	ModifyAnswer(ctx domain.Context, original, instruction string) string
}

// aiContext keeps request values but outlives the client connection, so a disconnect does
// not cancel an in-flight completion or the write of its result. The completion client
// bounds the call itself.
func aiContext(ctx domain.Context) domain.Context {
	return observability.Detach(ctx)
}

// publish emits ev and only logs failures.
func publish(ctx domain.Context, p domain.EventPublisher, ev domain.SessionEvent) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.Publish(observability.Detach(ctx), ev); err != nil {
		observability.LoggerFromContext(ctx).Warn("session event not published",
			slog.String("event", ev.Type),
			slog.String("session_id", ev.SessionID),
			slog.Any("error", err))
	}
}

func intPtr(v int) *int { return &v }
