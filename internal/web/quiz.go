package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/quiz"
)

type questionResponse struct {
	ID       string   `json:"id"`
	EntryID  string   `json:"entry_id"`
	Position int      `json:"position"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
	Answered bool     `json:"answered"`
	Selected string   `json:"selected,omitempty"`
	Correct  *bool    `json:"correct,omitempty"`
}

func newQuestions(qs []domain.Question, from int) []questionResponse {
	out := make([]questionResponse, 0, len(qs))
	for i := from; i < len(qs); i++ {
		q := qs[i]
		r := questionResponse{
			ID:       q.ID,
			EntryID:  q.EntryID,
			Position: i,
			Prompt:   q.Prompt,
			Options:  q.Options,
			Answered: q.Answered,
		}
		if q.Answered {
			correct := q.Correct
			r.Selected = q.Selected
			r.Correct = &correct
		}
		out = append(out, r)
	}
	return out
}

type startResponse struct {
	SessionID  string             `json:"session_id"`
	Questions  []questionResponse `json:"questions"`
	Superseded []string           `json:"superseded"`
}

type sessionResponse struct {
	ID           string             `json:"id"`
	ClientID     string             `json:"client_id"`
	Status       string             `json:"status"`
	Position     int                `json:"position"`
	Questions    []questionResponse `json:"questions"`
	Answered     int                `json:"answered"`
	Correct      int                `json:"correct"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
	FinishReason string             `json:"finish_reason,omitempty"`
}

func newSessionResponse(s *domain.QuizSession) sessionResponse {
	answered, correct := s.Tally()
	return sessionResponse{
		ID:           s.ID,
		ClientID:     s.ClientID,
		Status:       string(s.Status),
		Position:     s.Position,
		Questions:    newQuestions(s.Questions, 0),
		Answered:     answered,
		Correct:      correct,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
		FinishReason: s.FinishReason,
	}
}

type answerRequest struct {
	SessionID      string `json:"session_id" validate:"required"`
	EntryID        string `json:"entry_id"`
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option" validate:"required"`
}

type answerResponse struct {
	QuestionID      string        `json:"question_id"`
	Correct         bool          `json:"correct"`
	AccuracyPercent float64       `json:"accuracy_percent"`
	CardChange      string        `json:"card_change"`
	Card            *cardResponse `json:"card,omitempty"`
	Done            bool          `json:"done"`
}

type finishRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

func (s *Server) handleStartQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.quiz.Start(r.Context(), clientID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		superseded := res.Superseded
		if superseded == nil {
			superseded = []string{}
		}
		writeJSON(w, http.StatusOK, startResponse{
			SessionID:  res.Session.ID,
			Questions:  newQuestions(res.Session.Questions, 0),
			Superseded: superseded,
		})
	}
}

// handleNextQuestions lists the unanswered questions of the client's most
// recent round. A finished round has none.
func (s *Server) handleNextQuestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.quiz.Next(r.Context(), clientID(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if session.Status != domain.SessionOpen {
			writeJSON(w, http.StatusOK, []questionResponse{})
			return
		}
		writeJSON(w, http.StatusOK, newQuestions(session.Questions, session.Position))
	}
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.quiz.Session(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(session))
	}
}

func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := s.quiz.Answer(r.Context(), quiz.AnswerRequest{
			SessionID:      req.SessionID,
			QuestionID:     req.QuestionID,
			EntryID:        req.EntryID,
			SelectedOption: req.SelectedOption,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		res := answerResponse{
			QuestionID:      out.QuestionID,
			Correct:         out.Correct,
			AccuracyPercent: out.Accuracy,
			CardChange:      string(out.CardChange),
			Done:            out.Done,
		}
		if out.Card != nil {
			res.Card = newCardResponse(*out.Card, "")
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleFinish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req finishRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.quiz.Finish(r.Context(), req.SessionID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}
