package api

import (
	"net/http"
	"strconv"

	"github.com/okian/stylist/internal/domain/quiz"
)

type answerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

type quizResponse struct {
	Questions []quiz.Question `json:"questions"`
}

func (s *Server) handleQuiz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, quizResponse{Questions: s.deps.Quiz()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	v, err := s.deps.CreateSession(r.Context())
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	v, err := s.deps.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_session"
	if err := s.deps.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.answer"
	question, err := strconv.Atoi(r.PathValue("question"))
	if err != nil {
		s.fail(w, r, op, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req answerRequest
	if err := s.decodeJSON(w, r, op, &req); err != nil {
		s.fail(w, r, op, err)
		return
	}
	v, err := s.deps.Answer(r.Context(), r.PathValue("id"), question, req.Answer)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleResetQuiz(w http.ResponseWriter, r *http.Request) {
	const op = "api.reset_quiz"
	v, err := s.deps.ResetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.profile"
	p, err := s.deps.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
