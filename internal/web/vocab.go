package web

import (
	"bytes"
	"net/http"

	"github.com/conorfennell/vocabquiz/internal/accuracy"
	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/export"
	"github.com/conorfennell/vocabquiz/internal/vocab"
)

type entryResponse struct {
	ID              string  `json:"id"`
	SourceWord      string  `json:"source_word"`
	Translation     string  `json:"translation"`
	AccuracyPercent float64 `json:"accuracy_percent"`
	TotalAnswers    int     `json:"total_answers"`
	CorrectAnswers  int     `json:"correct_answers"`
	HasRewardCard   bool    `json:"has_reward_card"`
	SourceID        *int64  `json:"source_id,omitempty"`
}

func newEntryResponse(e domain.VocabularyEntry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		SourceWord:      e.SourceWord,
		Translation:     e.Translation,
		AccuracyPercent: accuracy.Of(e.History),
		TotalAnswers:    len(e.History),
		CorrectAnswers:  e.Correct(),
		HasRewardCard:   e.HasRewardCard,
		SourceID:        e.SourceID,
	}
}

type createResponse struct {
	NeedsTranslationChoice bool           `json:"needs_translation_choice"`
	Suggestions            []string       `json:"suggestions"`
	Entry                  *entryResponse `json:"entry,omitempty"`
}

type cardResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ImageRef     string `json:"image_ref"`
	OwnerEntryID string `json:"owner_entry_id"`
	Translation  string `json:"translation,omitempty"`
	Rarity       string `json:"rarity"`
}

func newCardResponse(c domain.RewardCard, translation string) *cardResponse {
	return &cardResponse{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		ImageRef:     c.ImageRef,
		OwnerEntryID: c.EntryID,
		Translation:  translation,
		Rarity:       c.Rarity,
	}
}

type recordAnswerRequest struct {
	Correct *bool `json:"correct" validate:"required"`
}

type recordAnswerResponse struct {
	Correct         bool          `json:"correct"`
	AccuracyPercent float64       `json:"accuracy_percent"`
	CardChange      string        `json:"card_change"`
	Card            *cardResponse `json:"card,omitempty"`
}

func (s *Server) handleListVocab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.vocab.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, newEntryResponse(e))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleGetVocab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := s.vocab.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(*e))
	}
}

func (s *Server) handleCreateVocab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req vocab.CreateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.vocab.Create(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		if !res.NeedsTranslationChoice {
			writeJSON(w, http.StatusCreated, newEntryResponse(*res.Entry))
			return
		}
		out := createResponse{NeedsTranslationChoice: true, Suggestions: res.Suggestions}
		if out.Suggestions == nil {
			out.Suggestions = []string{}
		}
		if res.Entry != nil {
			e := newEntryResponse(*res.Entry)
			out.Entry = &e
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleUpdateVocab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req vocab.UpdateRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		e, err := s.vocab.Update(r.Context(), r.PathValue("id"), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newEntryResponse(*e))
	}
}

func (s *Server) handleDeleteVocab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.vocab.Delete(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleRecordAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordAnswerRequest
		if err := decodeValid(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		out, err := s.vocab.RecordAnswer(r.Context(), r.PathValue("id"), *req.Correct)
		if err != nil {
			writeError(w, r, err)
			return
		}
		res := recordAnswerResponse{
			Correct:         out.Correct,
			AccuracyPercent: out.Accuracy,
			CardChange:      string(out.Change),
		}
		if out.Card != nil {
			res.Card = newCardResponse(*out.Card, "")
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.vocab.Cards(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]*cardResponse, 0, len(cards))
		for _, c := range cards {
			out = append(out, newCardResponse(c.RewardCard, c.Translation))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleExportVocab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.vocab.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		var buf bytes.Buffer
		if err := export.Write(&buf, entries); err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="vocabulary.xlsx"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
