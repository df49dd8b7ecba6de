package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// StartInterviewHandler opens a new interview for the caller.
func (s *Server) StartInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role       string `json:"role" validate:"required,max=200"`
			Difficulty string `json:"difficulty" validate:"required,max=50"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		id, err := s.Interviews.Start(r.Context(), observability.UserIDFromContext(r.Context()), req.Role, req.Difficulty)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"interviewId": id})
	}
}

// InterviewQuestionHandler generates the next question.
func (s *Server) InterviewQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, n, err := s.Interviews.NextQuestion(r.Context(), observability.UserIDFromContext(r.Context()), chi.URLParam(r, "interviewId"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q, "questionNumber": n})
	}
}

// InterviewAnswerHandler evaluates and records an answer.
func (s *Server) InterviewAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question" validate:"required"`
			Answer   string `json:"answer" validate:"required"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		ev, err := s.Interviews.Answer(r.Context(), observability.UserIDFromContext(r.Context()), chi.URLParam(r, "interviewId"), req.Question, req.Answer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

// CompleteInterviewHandler closes the interview and reports the final score.
func (s *Server) CompleteInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iv, err := s.Interviews.Complete(r.Context(), observability.UserIDFromContext(r.Context()), chi.URLParam(r, "interviewId"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"totalScore":        iv.TotalScore,
			"questionsAnswered": len(iv.Questions),
			"interview":         iv,
		})
	}
}

// InterviewHistoryHandler lists the caller's recent interviews.
func (s *Server) InterviewHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.Interviews.History(r.Context(), observability.UserIDFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if list == nil {
			list = []domain.Interview{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
