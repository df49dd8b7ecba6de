package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// fakeAI records calls and returns canned values.
type fakeAI struct {
	question string
	answer   string
	modified string
	eval     domain.Evaluation

	gotPrevious    []string
	gotRole        string
	gotDifficulty  string
	gotOriginal    string
	gotInstruction string
	ctxErr         error

	// onCall runs inside every AI call, e.g. to cancel the request mid-completion.
	onCall func()
}

func (f *fakeAI) called() {
	if f.onCall != nil {
		f.onCall()
	}
}

func (f *fakeAI) GenerateTopicQuestion(_ domain.Context, _ string, previous []string) string {
	f.called()
	f.gotPrevious = previous
	return f.question
}

func (f *fakeAI) GenerateInterviewQuestion(ctx domain.Context, role, difficulty string, previous []string) string {
	f.called()
	f.gotRole, f.gotDifficulty, f.gotPrevious = role, difficulty, previous
	f.ctxErr = ctx.Err()
	return f.question
}

func (f *fakeAI) AnswerQuestion(domain.Context, string, string) string {
	f.called()
	return f.answer
}

func (f *fakeAI) EvaluateAnswer(ctx domain.Context, _, _ string) domain.Evaluation {
	f.called()
	f.ctxErr = ctx.Err()
	return f.eval
}

func (f *fakeAI) ModifyAnswer(_ domain.Context, original, instruction string) string {
	f.called()
	f.gotOriginal, f.gotInstruction = original, instruction
	return f.modified
}

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// ctxErrOf captures the error of the context passed as the first mock argument.
func ctxErrOf(dst *error) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*dst = args.Get(0).(context.Context).Err()
	}
}
