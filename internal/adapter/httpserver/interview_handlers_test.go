package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestInterviewRoutes_RequireToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/interview/start", "", map[string]string{"role": "r", "difficulty": "d"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	f.interviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStartInterview(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("Create", mock.Anything, mock.MatchedBy(func(iv domain.Interview) bool {
		return iv.UserID == "u1" && iv.Role == "Backend Engineer"
	})).Return("iv1", nil)

	rec := f.do(t, http.MethodPost, "/api/interview/start", "u1",
		map[string]string{"role": "Backend Engineer", "difficulty": "senior"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "iv1", decode(t, rec)["interviewId"])
}

func TestStartInterview_Validation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/interview/start", "u1", map[string]string{"role": "Backend"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	details := env["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "required", details["difficulty"])
}

func TestInterviewQuestion(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("Get", mock.Anything, "iv1").Return(domain.Interview{
		ID: "iv1", UserID: "u1", Role: "r", Difficulty: "d",
		Questions: []domain.QuestionAnswer{{Question: "q1"}},
	}, nil)

	rec := f.do(t, http.MethodGet, "/api/interview/iv1/question", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, testAI.question, body["question"])
	assert.EqualValues(t, 2, body["questionNumber"])
}

func TestInterviewQuestion_Errors(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("Get", mock.Anything, "missing").Return(domain.Interview{}, domain.ErrNotFound)
	f.interviews.On("Get", mock.Anything, "theirs").Return(domain.Interview{ID: "theirs", UserID: "u2"}, nil)

	rec := f.do(t, http.MethodGet, "/api/interview/missing/question", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/interview/theirs/question", "u1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestInterviewAnswer(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("Get", mock.Anything, "iv1").Return(domain.Interview{ID: "iv1", UserID: "u1"}, nil)
	f.interviews.On("AppendAnswer", mock.Anything, "iv1", mock.MatchedBy(func(qa domain.QuestionAnswer) bool {
		return qa.Question == "q" && qa.UserAnswer == "a" && qa.Score == 80
	})).Return(domain.Interview{}, nil)

	rec := f.do(t, http.MethodPost, "/api/interview/iv1/answer", "u1", map[string]string{"question": "q", "answer": "a"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 80, body["score"])
	assert.Equal(t, "Solid.", body["feedback"])
	f.interviews.AssertExpectations(t)
}

func TestInterviewAnswer_Completed(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("Get", mock.Anything, "iv1").Return(domain.Interview{
		ID: "iv1", UserID: "u1", Status: domain.InterviewCompleted,
	}, nil)

	rec := f.do(t, http.MethodPost, "/api/interview/iv1/answer", "u1", map[string]string{"question": "q", "answer": "a"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	f.interviews.AssertNotCalled(t, "AppendAnswer", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteInterview(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("Get", mock.Anything, "iv1").Return(domain.Interview{ID: "iv1", UserID: "u1"}, nil)
	f.interviews.On("Complete", mock.Anything, "iv1").Return(domain.Interview{
		ID: "iv1", UserID: "u1", TotalScore: 75, Status: domain.InterviewCompleted,
		Questions: []domain.QuestionAnswer{{Score: 70}, {Score: 80}},
	}, nil)

	rec := f.do(t, http.MethodPost, "/api/interview/iv1/complete", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 75, body["totalScore"])
	assert.EqualValues(t, 2, body["questionsAnswered"])
	assert.Equal(t, "completed", body["interview"].(map[string]any)["status"])
}

func TestInterviewHistory_EmptyIsArray(t *testing.T) {
	f := newFixture(t)
	f.interviews.On("ListByUser", mock.Anything, "u1", 10).Return(nil, nil)

	rec := f.do(t, http.MethodGet, "/api/interview/history", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
