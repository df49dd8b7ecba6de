// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// MockInterviewRepository mocks domain.InterviewRepository.
type MockInterviewRepository struct{ mock.Mock }

var _ domain.InterviewRepository = (*MockInterviewRepository)(nil)

func (m *MockInterviewRepository) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	args := m.Called(ctx, iv)
	return args.String(0), args.Error(1)
}

func (m *MockInterviewRepository) Get(ctx domain.Context, id string) (domain.Interview, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Interview), args.Error(1)
}

func (m *MockInterviewRepository) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.Interview, error) {
	args := m.Called(ctx, userID, limit)
	out, _ := args.Get(0).([]domain.Interview)
	return out, args.Error(1)
}

func (m *MockInterviewRepository) AppendAnswer(ctx domain.Context, id string, qa domain.QuestionAnswer) (domain.Interview, error) {
	args := m.Called(ctx, id, qa)
	return args.Get(0).(domain.Interview), args.Error(1)
}

func (m *MockInterviewRepository) Complete(ctx domain.Context, id string) (domain.Interview, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Interview), args.Error(1)
}

// MockPracticeRepository mocks domain.PracticeRepository.
type MockPracticeRepository struct{ mock.Mock }

var _ domain.PracticeRepository = (*MockPracticeRepository)(nil)

func (m *MockPracticeRepository) Create(ctx domain.Context, s domain.PracticeSession) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}

func (m *MockPracticeRepository) Get(ctx domain.Context, id string) (domain.PracticeSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.PracticeSession), args.Error(1)
}

func (m *MockPracticeRepository) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.PracticeSession, error) {
	args := m.Called(ctx, userID, limit)
	out, _ := args.Get(0).([]domain.PracticeSession)
	return out, args.Error(1)
}

func (m *MockPracticeRepository) PushMessages(ctx domain.Context, id string, msgs ...domain.Message) error {
	args := m.Called(ctx, id, msgs)
	return args.Error(0)
}

func (m *MockPracticeRepository) SetMessageContent(ctx domain.Context, id, messageID, content string) error {
	args := m.Called(ctx, id, messageID, content)
	return args.Error(0)
}

func (m *MockPracticeRepository) DeleteForUser(ctx domain.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockUserRepository mocks domain.UserRepository.
type MockUserRepository struct{ mock.Mock }

var _ domain.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx domain.Context, u domain.User) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

// MockEventPublisher mocks domain.EventPublisher.
type MockEventPublisher struct{ mock.Mock }

var _ domain.EventPublisher = (*MockEventPublisher)(nil)

func (m *MockEventPublisher) Publish(ctx domain.Context, ev domain.SessionEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockCompleter mocks domain.Completer.
type MockCompleter struct{ mock.Mock }

var _ domain.Completer = (*MockCompleter)(nil)

func (m *MockCompleter) Complete(ctx domain.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}
