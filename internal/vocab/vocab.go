// Package vocab manages vocabulary entries, their answer history and the
// reward gallery.
package vocab

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/reward"
	"github.com/conorfennell/vocabquiz/internal/storage"
	"github.com/conorfennell/vocabquiz/internal/suggest"
	"github.com/conorfennell/vocabquiz/internal/validation"
	"github.com/google/uuid"
)

type Service struct {
	db        *storage.DB
	policy    *reward.Policy
	suggester suggest.Suggester
}

func NewService(db *storage.DB, policy *reward.Policy, suggester suggest.Suggester) *Service {
	if suggester == nil {
		suggester = suggest.Static{}
	}
	return &Service{db: db, policy: policy, suggester: suggester}
}

type CreateRequest struct {
	SourceWord  string `json:"source_word" validate:"required,max=200"`
	Translation string `json:"translation" validate:"max=200"`
	Defer       bool   `json:"defer"`
}

// CreateResult holds the stored entry, or the suggestions offered when no
// translation was given. With Defer both are set.
type CreateResult struct {
	Entry                  *domain.VocabularyEntry
	NeedsTranslationChoice bool
	Suggestions            []string
}

type UpdateRequest struct {
	SourceWord  *string `json:"source_word" validate:"omitempty,max=200"`
	Translation *string `json:"translation" validate:"omitempty,max=200"`
}

func (s *Service) List(ctx context.Context) ([]domain.VocabularyEntry, error) {
	return s.db.ListEntries(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.VocabularyEntry, error) {
	e, err := s.db.FindEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.NotFound("vocabulary entry %s not found", id)
	}
	return e, nil
}

// Create adds an entry. Without a translation nothing is stored and the
// caller gets suggestions to choose from, unless Defer asks to store the
// word untranslated anyway.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	word := strings.TrimSpace(req.SourceWord)
	translation := strings.TrimSpace(req.Translation)
	if word == "" {
		return nil, domain.Validation("source_word must not be blank")
	}

	if translation != "" {
		e, err := s.insert(ctx, word, translation)
		if err != nil {
			return nil, err
		}
		return &CreateResult{Entry: e}, nil
	}

	suggestions, err := s.suggester.Suggest(ctx, word)
	if err != nil {
		suggestions = nil
	}
	res := &CreateResult{NeedsTranslationChoice: true, Suggestions: suggestions}
	if !req.Defer {
		return res, nil
	}

	e, err := s.insert(ctx, word, "")
	if err != nil {
		return nil, err
	}
	res.Entry = e
	return res, nil
}

func (s *Service) insert(ctx context.Context, word, translation string) (*domain.VocabularyEntry, error) {
	now := time.Now().UTC()
	e := domain.VocabularyEntry{
		ID:          uuid.NewString(),
		SourceWord:  word,
		Translation: translation,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Update(ctx, func(tx *storage.Tx) error {
		return tx.InsertEntry(ctx, e)
	}); err != nil {
		return nil, err
	}
	slog.Info("Vocabulary entry created", "entry_id", e.ID, "translated", translation != "")
	return &e, nil
}

// Update changes the word pair of an entry. History and card are kept, even
// when the translation changes.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*domain.VocabularyEntry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var updated *domain.VocabularyEntry
	err := s.db.Update(ctx, func(tx *storage.Tx) error {
		e, err := tx.Entry(ctx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.NotFound("vocabulary entry %s not found", id)
		}
		if req.SourceWord != nil {
			word := strings.TrimSpace(*req.SourceWord)
			if word == "" {
				return domain.Validation("source_word must not be blank")
			}
			e.SourceWord = word
		}
		if req.Translation != nil {
			e.Translation = strings.TrimSpace(*req.Translation)
		}
		e.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateEntry(ctx, *e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an entry with its history and card.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.db.Update(ctx, func(tx *storage.Tx) error {
		found, err := tx.DeleteEntry(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return domain.NotFound("vocabulary entry %s not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("Vocabulary entry deleted", "entry_id", id)
	return nil
}

// RecordAnswer appends one answer outside a quiz round and applies the
// reward policy in the same transaction.
func (s *Service) RecordAnswer(ctx context.Context, id string, correct bool) (reward.Outcome, error) {
	var out reward.Outcome
	err := s.db.Update(ctx, func(tx *storage.Tx) error {
		var err error
		out, err = s.policy.Apply(ctx, tx, id, "", correct)
		return err
	})
	if err != nil {
		return reward.Outcome{}, err
	}
	if out.Change != domain.NoChange {
		slog.Info("Reward card changed", "entry_id", id, "change", out.Change, "accuracy", out.Accuracy)
	}
	return out, nil
}

// Cards returns the reward gallery.
func (s *Service) Cards(ctx context.Context) ([]domain.GalleryCard, error) {
	return s.db.ListCards(ctx)
}
