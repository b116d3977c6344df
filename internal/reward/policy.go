package reward

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/conorfennell/vocabquiz/internal/accuracy"
	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/google/uuid"
)

// Policy decides when an entry earns or loses its reward card.
type Policy struct {
	Threshold    float64 // accuracy percentage needed for a card
	MinAttempts  int     // answers required before a card can be created
	ImageBaseURL string
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		Threshold:    90,
		MinAttempts:  0,
		ImageBaseURL: "https://example.com/cards",
	}
}

// Evaluate decides the card change for an entry whose accuracy moved from
// previous to current. It relies on entry.HasRewardCard, so a second call
// after the first decision was applied returns NoChange.
func (p *Policy) Evaluate(entry domain.VocabularyEntry, previous, current float64) domain.CardChange {
	switch {
	case current >= p.Threshold && !entry.HasRewardCard && len(entry.History) >= p.MinAttempts && len(entry.History) > 0:
		return domain.CardCreate
	case current < p.Threshold && entry.HasRewardCard:
		return domain.CardRemove
	default:
		return domain.NoChange
	}
}

// NewCard builds the card awarded for entry.
func (p *Policy) NewCard(entry domain.VocabularyEntry, now time.Time) domain.RewardCard {
	return domain.RewardCard{
		ID:          uuid.NewString(),
		EntryID:     entry.ID,
		Title:       entry.SourceWord,
		Description: fmt.Sprintf("Mastered %s", entry.SourceWord),
		ImageRef:    p.imageRef(entry.SourceWord),
		Rarity:      domain.RarityBronze,
		CreatedAt:   now,
	}
}

func (p *Policy) imageRef(word string) string {
	base := strings.TrimRight(p.ImageBaseURL, "/")
	return base + "/" + url.PathEscape(strings.ToLower(word)) + ".png"
}

// Ledger is the transactional view of the vocabulary store that Apply
// works against. Entry returns nil, nil for an unknown id.
type Ledger interface {
	Entry(ctx context.Context, id string) (*domain.VocabularyEntry, error)
	AppendAnswer(ctx context.Context, entryID, sessionID string, correct bool, at time.Time) error
	InsertCard(ctx context.Context, card domain.RewardCard) error
	DeleteCardByEntry(ctx context.Context, entryID string) error
	SetRewardFlag(ctx context.Context, entryID string, has bool) error
}

// Outcome describes the effect of one answer on an entry.
type Outcome struct {
	EntryID          string
	Correct          bool
	PreviousAccuracy float64
	Accuracy         float64
	Change           domain.CardChange
	Card             *domain.RewardCard
}

// Apply records one answer for an entry and brings its reward card in line
// with the new accuracy. The answer is appended before the policy runs.
// Callers pass a ledger bound to a single transaction so the answer and the
// card change commit or roll back together.
func (p *Policy) Apply(ctx context.Context, l Ledger, entryID, sessionID string, correct bool) (Outcome, error) {
	entry, err := l.Entry(ctx, entryID)
	if err != nil {
		return Outcome{}, err
	}
	if entry == nil {
		return Outcome{}, domain.NotFound("vocabulary entry %s not found", entryID)
	}

	now := time.Now().UTC()
	previous, current := accuracy.After(entry.History, correct)
	if err := l.AppendAnswer(ctx, entry.ID, sessionID, correct, now); err != nil {
		return Outcome{}, fmt.Errorf("failed to append answer for entry %s: %w", entry.ID, err)
	}
	entry.History = append(entry.History, correct)

	out := Outcome{
		EntryID:          entry.ID,
		Correct:          correct,
		PreviousAccuracy: previous,
		Accuracy:         current,
		Change:           p.Evaluate(*entry, previous, current),
	}

	switch out.Change {
	case domain.CardCreate:
		card := p.NewCard(*entry, now)
		if err := l.InsertCard(ctx, card); err != nil {
			return Outcome{}, fmt.Errorf("failed to create card for entry %s: %w", entry.ID, err)
		}
		if err := l.SetRewardFlag(ctx, entry.ID, true); err != nil {
			return Outcome{}, err
		}
		out.Card = &card
	case domain.CardRemove:
		if err := l.DeleteCardByEntry(ctx, entry.ID); err != nil {
			return Outcome{}, fmt.Errorf("failed to remove card for entry %s: %w", entry.ID, err)
		}
		if err := l.SetRewardFlag(ctx, entry.ID, false); err != nil {
			return Outcome{}, err
		}
	}
	return out, nil
}
