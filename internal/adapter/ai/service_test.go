package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type call struct {
	prompt string
	opts   domain.CompletionOptions
}

type stubCompleter struct {
	mu    sync.Mutex
	out   string
	err   error
	calls []call
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{prompt, opts})
	return s.out, s.err
}

var errDown = fmt.Errorf("%w: connection refused", domain.ErrCompletionUnavailable)

func TestService_SuccessTrimsText(t *testing.T) {
	st := &stubCompleter{out: "  \nWhat is a goroutine leak?\n "}
	svc := NewService(st, nil, WithTokenCounter(tokencount.Default, "phi3:mini"))
	ctx := context.Background()

	assert.Equal(t, "What is a goroutine leak?", svc.GenerateTopicQuestion(ctx, "Go", nil))
	assert.Equal(t, "What is a goroutine leak?", svc.GenerateInterviewQuestion(ctx, "Go dev", "easy", nil))
	assert.Equal(t, "What is a goroutine leak?", svc.AnswerQuestion(ctx, "q", "t"))
	assert.Equal(t, "What is a goroutine leak?", svc.ModifyAnswer(ctx, "orig", "shorter"))

	require.Len(t, st.calls, 4)
	assert.Equal(t, domain.CompletionOptions{Temperature: 0.8, MaxTokens: 200}, st.calls[0].opts)
	assert.Equal(t, domain.CompletionOptions{Temperature: 0.7, MaxTokens: 500}, st.calls[2].opts)
	assert.Contains(t, st.calls[3].prompt, "Original Answer:\norig")
}

func TestService_EvaluateParsesReply(t *testing.T) {
	st := &stubCompleter{out: "Score: 88\nFeedback: Precise and complete."}
	ev := NewService(st, nil).EvaluateAnswer(context.Background(), "q", "a")
	assert.Equal(t, domain.Evaluation{Score: 88, Feedback: "Precise and complete."}, ev)
	require.Len(t, st.calls, 1)
	assert.Equal(t, domain.CompletionOptions{Temperature: 0.3, MaxTokens: 300}, st.calls[0].opts)
}

func TestService_EvaluateUnstructuredReplyUsesParserDefaults(t *testing.T) {
	st := &stubCompleter{out: "I think this is fine."}
	ev := NewService(st, nil).EvaluateAnswer(context.Background(), "q", words(40))
	assert.Equal(t, domain.Evaluation{Score: 50, Feedback: "Good effort! Keep practicing."}, ev)
}

func TestService_FallbacksOnFailure(t *testing.T) {
	st := &stubCompleter{err: errDown}
	svc := NewService(st, nil)
	ctx := context.Background()

	assert.Equal(t, FallbackTopicQuestion("Rust"), svc.GenerateTopicQuestion(ctx, "Rust", []string{"x"}))
	assert.Equal(t, FallbackInterviewQuestion("PM", "medium"), svc.GenerateInterviewQuestion(ctx, "PM", "medium", nil))
	assert.Equal(t, FallbackAnswer(), svc.AnswerQuestion(ctx, "q", "t"))
	assert.Equal(t, "orig\n\n(Modified based on your request)", svc.ModifyAnswer(ctx, "orig", "i"))

	ev := svc.EvaluateAnswer(ctx, "q", "one two three")
	assert.Equal(t, domain.Evaluation{Score: 30, Feedback: feedbackShallow}, ev)
	ev = svc.EvaluateAnswer(ctx, "q", words(31))
	assert.Equal(t, 70, ev.Score)
}

func TestService_EmptyReplyFallsBack(t *testing.T) {
	st := &stubCompleter{out: " \n\t"}
	svc := NewService(st, nil)
	assert.Equal(t, FallbackTopicQuestion("SQL"), svc.GenerateTopicQuestion(context.Background(), "SQL", nil))
}

func TestService_EvaluateEmptyReplyUsesRuleBased(t *testing.T) {
	for _, out := range []string{"", "  \n", "\t"} {
		st := &stubCompleter{out: out}
		ev := NewService(st, nil).EvaluateAnswer(context.Background(), "q", words(40))
		assert.Equal(t, RuleBasedEvaluate(words(40)), ev, "reply %q", out)
		assert.Equal(t, 70, ev.Score)
		assert.Equal(t, feedbackGreat, ev.Feedback)
	}
}

func TestService_NilCompleterFallsBack(t *testing.T) {
	svc := NewService(nil, nil)
	assert.Equal(t, FallbackAnswer(), svc.AnswerQuestion(context.Background(), "q", "t"))
	assert.Equal(t, 50, svc.EvaluateAnswer(context.Background(), "q", words(12)).Score)
}

func TestService_CanceledContextStillReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &stubCompleter{err: errors.Join(domain.ErrCompletionUnavailable, context.Canceled)}
	assert.Equal(t, FallbackAnswer(), NewService(st, nil).AnswerQuestion(ctx, "q", "t"))
}

func TestService_RecordsTokenUsage(t *testing.T) {
	prompt := observability.AITokensTotal.WithLabelValues(string(TaskAnswer), "prompt")
	completion := observability.AITokensTotal.WithLabelValues(string(TaskAnswer), "completion")
	p0, c0 := testutil.ToFloat64(prompt), testutil.ToFloat64(completion)

	st := &stubCompleter{out: "Channels pass values between goroutines."}
	svc := NewService(st, nil, WithTokenCounter(tokencount.Default, "phi3:mini"))
	svc.AnswerQuestion(context.Background(), "What is a channel?", "Go")

	assert.Greater(t, testutil.ToFloat64(prompt), p0)
	assert.Greater(t, testutil.ToFloat64(completion), c0)

	p1, c1 := testutil.ToFloat64(prompt), testutil.ToFloat64(completion)
	NewService(&stubCompleter{err: errDown}, nil, WithTokenCounter(tokencount.Default, "phi3:mini")).
		AnswerQuestion(context.Background(), "What is a channel?", "Go")
	assert.Equal(t, p1, testutil.ToFloat64(prompt))
	assert.Equal(t, c1, testutil.ToFloat64(completion))
}
