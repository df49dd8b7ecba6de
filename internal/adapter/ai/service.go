package ai

import (
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Service is the AI façade used by the interview and practice use cases.
// None of its operations return errors; on completion failure each degrades to its fallback.
type Service struct {
	completer domain.Completer
	prompts   *PromptBuilder
	tokens    *tokencount.Counter
	model     string
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithTokenCounter records prompt sizes and token usage of successful calls for model using c.
func WithTokenCounter(c *tokencount.Counter, model string) ServiceOption {
	return func(s *Service) { s.tokens, s.model = c, model }
}

// NewService composes prompts and a completer. A nil prompts uses the embedded catalog.
func NewService(c domain.Completer, prompts *PromptBuilder, opts ...ServiceOption) *Service {
	if prompts == nil {
		prompts = DefaultPromptBuilder()
	}
	s := &Service{completer: c, prompts: prompts}
	for _, o := range opts {
		o(s)
	}
	return s
}

// complete runs one completion for task and reports whether usable text came back.
func (s *Service) complete(ctx domain.Context, task Task, prompt string) (string, bool) {
	tracer := otel.Tracer("ai.service")
	ctx, span := tracer.Start(ctx, "ai."+string(task))
	defer span.End()

	lg := observability.LoggerFromContext(ctx).With(slog.String("task", string(task)))
	if prompt == "" || s.completer == nil {
		span.SetStatus(codes.Error, "no prompt or completer")
		return "", false
	}
	if s.tokens != nil {
		n := s.tokens.Estimate(prompt, s.model)
		observability.ObservePromptTokens(string(task), n)
		span.SetAttributes(attribute.Int("ai.prompt_tokens", n))
	}

	out, err := s.completer.Complete(ctx, prompt, s.prompts.Options(task))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		lg.Warn("completion failed, serving fallback", slog.Any("error", err))
		return "", false
	}
	if s.tokens != nil {
		u := s.tokens.Usage(prompt, out, s.model)
		observability.ObserveTokenUsage(string(task), u.PromptTokens, u.CompletionTokens)
		span.SetAttributes(attribute.Int("ai.completion_tokens", u.CompletionTokens))
	}
	return out, true
}

func fallback(ctx domain.Context, task Task) {
	observability.ObserveFallback(string(task))
	observability.LoggerFromContext(ctx).Debug("ai fallback served", slog.String("task", string(task)))
}

// text runs a free-text task, trimming the reply and falling back on failure or an empty reply.
func (s *Service) text(ctx domain.Context, task Task, prompt string, fb func() string) string {
	out, ok := s.complete(ctx, task, prompt)
	if ok {
		if trimmed := strings.TrimSpace(out); trimmed != "" {
			return trimmed
		}
	}
	fallback(ctx, task)
	return fb()
}

// GenerateTopicQuestion asks for a new question on topic, avoiding previous ones.
func (s *Service) GenerateTopicQuestion(ctx domain.Context, topic string, previous []string) string {
	return s.text(ctx, TaskTopicQuestion, s.prompts.TopicQuestion(topic, previous), func() string {
		return FallbackTopicQuestion(topic)
	})
}

// GenerateInterviewQuestion asks for the next question of a role/difficulty interview.
func (s *Service) GenerateInterviewQuestion(ctx domain.Context, role, difficulty string, previous []string) string {
	return s.text(ctx, TaskInterviewQuestion, s.prompts.InterviewQuestion(role, difficulty, previous), func() string {
		return FallbackInterviewQuestion(role, difficulty)
	})
}

// AnswerQuestion produces a structured explanation of question within topic.
func (s *Service) AnswerQuestion(ctx domain.Context, question, topic string) string {
	return s.text(ctx, TaskAnswer, s.prompts.Answer(question, topic), FallbackAnswer)
}

// ModifyAnswer rewrites original according to instruction.
func (s *Service) ModifyAnswer(ctx domain.Context, original, instruction string) string {
	return s.text(ctx, TaskModification, s.prompts.Modification(original, instruction), func() string {
		return FallbackModification(original)
	})
}

// EvaluateAnswer scores answer to question, using the rule-based evaluator when the model is
// unavailable or replies with nothing.
func (s *Service) EvaluateAnswer(ctx domain.Context, question, answer string) domain.Evaluation {
	var ev domain.Evaluation
	if out, ok := s.complete(ctx, TaskEvaluation, s.prompts.Evaluation(question, answer)); ok && strings.TrimSpace(out) != "" {
		ev = ParseEvaluation(out)
	} else {
		fallback(ctx, TaskEvaluation)
		ev = RuleBasedEvaluate(answer)
	}
	observability.ObserveScore(ev.Score)
	return ev
}
