package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// StartPracticeHandler opens a practice session.
func (s *Server) StartPracticeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Topic string `json:"topic" validate:"required,max=200"`
			Mode  string `json:"mode" validate:"required,oneof=ai-answers user-answers"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		id, err := s.Practice.Start(r.Context(), observability.UserIDFromContext(r.Context()), req.Topic, domain.PracticeMode(req.Mode))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sessionId": id})
	}
}

// GenerateQuestionHandler produces a practice question.
func (s *Server) GenerateQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID         string   `json:"sessionId"`
			Topic             string   `json:"topic" validate:"required,max=200"`
			PreviousQuestions []string `json:"previousQuestions" validate:"max=50"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		q, err := s.Practice.GenerateQuestion(r.Context(), observability.UserIDFromContext(r.Context()), req.SessionID, req.Topic, req.PreviousQuestions)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"question": q})
	}
}

// AnswerQuestionHandler explains a question.
func (s *Server) AnswerQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"sessionId"`
			Question  string `json:"question" validate:"required"`
			Topic     string `json:"topic"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		answer, messageID, err := s.Practice.AnswerQuestion(r.Context(), observability.UserIDFromContext(r.Context()), req.SessionID, req.Question, req.Topic)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": answer, "messageId": messageID})
	}
}

// EvaluateAnswerHandler scores a user's answer.
func (s *Server) EvaluateAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"sessionId"`
			Question  string `json:"question" validate:"required"`
			Answer    string `json:"answer" validate:"required"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		ev, err := s.Practice.EvaluateAnswer(r.Context(), observability.UserIDFromContext(r.Context()), req.SessionID, req.Question, req.Answer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

// ModifyAnswerHandler rewrites a stored AI answer.
func (s *Server) ModifyAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID   string `json:"sessionId" validate:"required"`
			MessageID   string `json:"messageId" validate:"required"`
			Instruction string `json:"instruction" validate:"required,max=2000"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		out, err := s.Practice.ModifyAnswer(r.Context(), observability.UserIDFromContext(r.Context()), req.SessionID, req.MessageID, req.Instruction)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"modifiedAnswer": out})
	}
}

// PracticeHistoryHandler lists the caller's recent sessions.
func (s *Server) PracticeHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.Practice.History(r.Context(), observability.UserIDFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if list == nil {
			list = []domain.PracticeSession{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DeleteSessionHandler removes one of the caller's sessions.
func (s *Server) DeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Practice.Delete(r.Context(), observability.UserIDFromContext(r.Context()), chi.URLParam(r, "sessionId")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
	}
}
