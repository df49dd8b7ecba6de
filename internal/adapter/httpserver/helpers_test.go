package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type stubAI struct {
	question string
	answer   string
	modified string
	eval     domain.Evaluation
}

func (s stubAI) GenerateTopicQuestion(domain.Context, string, []string) string { return s.question }

func (s stubAI) GenerateInterviewQuestion(domain.Context, string, string, []string) string {
	return s.question
}

func (s stubAI) AnswerQuestion(domain.Context, string, string) string { return s.answer }

func (s stubAI) ModifyAnswer(domain.Context, string, string) string { return s.modified }

func (s stubAI) EvaluateAnswer(domain.Context, string, string) domain.Evaluation { return s.eval }

type fixture struct {
	srv        *Server
	router     http.Handler
	interviews *mocks.MockInterviewRepository
	practice   *mocks.MockPracticeRepository
	users      *mocks.MockUserRepository
	tokens     *TokenIssuer
}

var testAI = stubAI{
	question: "What is a goroutine?",
	answer:   "A goroutine is a lightweight thread.",
	modified: "Shorter answer.",
	eval:     domain.Evaluation{Score: 80, Feedback: "Solid."},
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		interviews: &mocks.MockInterviewRepository{},
		practice:   &mocks.MockPracticeRepository{},
		users:      &mocks.MockUserRepository{},
		tokens:     NewTokenIssuer("test-secret", time.Hour),
	}
	events := &mocks.MockEventPublisher{}
	events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	auth := usecase.NewAuthService(f.users)
	auth.Params = usecase.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLen: 8, KeyLen: 16}
	f.srv = NewServer(config.Config{},
		usecase.NewInterviewService(f.interviews, testAI, events, 0),
		usecase.NewPracticeService(f.practice, testAI, events, 0),
		auth, f.tokens)

	r := chi.NewRouter()
	r.Use(Recoverer(), RequestID())
	r.Post("/api/auth/register", f.srv.RegisterHandler())
	r.Post("/api/auth/login", f.srv.LoginHandler())
	r.Group(func(r chi.Router) {
		r.Use(f.tokens.RequireAuth)
		r.Post("/api/interview/start", f.srv.StartInterviewHandler())
		r.Get("/api/interview/{interviewId}/question", f.srv.InterviewQuestionHandler())
		r.Post("/api/interview/{interviewId}/answer", f.srv.InterviewAnswerHandler())
		r.Post("/api/interview/{interviewId}/complete", f.srv.CompleteInterviewHandler())
		r.Get("/api/interview/history", f.srv.InterviewHistoryHandler())
		r.Post("/api/practice/start-session", f.srv.StartPracticeHandler())
		r.Post("/api/practice/generate-question", f.srv.GenerateQuestionHandler())
		r.Post("/api/practice/answer-question", f.srv.AnswerQuestionHandler())
		r.Post("/api/practice/evaluate-answer", f.srv.EvaluateAnswerHandler())
		r.Post("/api/practice/modify-answer", f.srv.ModifyAnswerHandler())
		r.Get("/api/practice/history", f.srv.PracticeHistoryHandler())
		r.Delete("/api/practice/session/{sessionId}", f.srv.DeleteSessionHandler())
	})
	f.router = r
	return f
}

// do sends a request as userID; an empty userID sends no Authorization header.
func (f *fixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := f.tokens.Issue(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, rec)
	e, ok := env["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return e["code"].(string)
}
