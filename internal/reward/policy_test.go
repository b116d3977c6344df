package reward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(correct, wrong int) []bool {
	h := make([]bool, 0, correct+wrong)
	for i := 0; i < wrong; i++ {
		h = append(h, false)
	}
	for i := 0; i < correct; i++ {
		h = append(h, true)
	}
	return h
}

func TestEvaluate(t *testing.T) {
	p := DefaultPolicy()

	testCases := []struct {
		name     string
		hasCard  bool
		history  []bool
		current  float64
		expected domain.CardChange
	}{
		{name: "exactly at threshold without card", history: history(9, 1), current: 90, expected: domain.CardCreate},
		{name: "just below threshold with card", hasCard: true, history: history(9, 1), current: 89.999, expected: domain.CardRemove},
		{name: "above threshold with card", hasCard: true, history: history(10, 0), current: 100, expected: domain.NoChange},
		{name: "below threshold without card", history: history(5, 5), current: 50, expected: domain.NoChange},
		{name: "empty history is never eligible", history: nil, current: 0, expected: domain.NoChange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry := domain.VocabularyEntry{ID: "e1", HasRewardCard: tc.hasCard, History: tc.history}
			assert.Equal(t, tc.expected, p.Evaluate(entry, 0, tc.current))
		})
	}
}

func TestEvaluateIsIdempotentOnceApplied(t *testing.T) {
	p := DefaultPolicy()
	entry := domain.VocabularyEntry{ID: "e1", History: history(10, 0)}

	first := p.Evaluate(entry, 90, 100)
	require.Equal(t, domain.CardCreate, first)

	entry.HasRewardCard = true
	assert.Equal(t, domain.NoChange, p.Evaluate(entry, 100, 100))

	entry.History = append(entry.History, false, false)
	require.Equal(t, domain.CardRemove, p.Evaluate(entry, 100, 83.3))
	entry.HasRewardCard = false
	assert.Equal(t, domain.NoChange, p.Evaluate(entry, 83.3, 83.3))
}

func TestEvaluateMinAttempts(t *testing.T) {
	p := DefaultPolicy()
	p.MinAttempts = 3

	assert.Equal(t, domain.NoChange, p.Evaluate(domain.VocabularyEntry{History: history(2, 0)}, 100, 100))
	assert.Equal(t, domain.CardCreate, p.Evaluate(domain.VocabularyEntry{History: history(3, 0)}, 100, 100))
}

func TestNewCard(t *testing.T) {
	p := &Policy{Threshold: 90, ImageBaseURL: "https://cards.example.org/"}
	card := p.NewCard(domain.VocabularyEntry{ID: "e1", SourceWord: "Canis Lupus"}, time.Now())

	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "e1", card.EntryID)
	assert.Equal(t, "Canis Lupus", card.Title)
	assert.Equal(t, domain.RarityBronze, card.Rarity)
	assert.Equal(t, "https://cards.example.org/canis%20lupus.png", card.ImageRef)
}

// stubLedger is an in-memory Ledger for policy tests.
type stubLedger struct {
	entries  map[string]*domain.VocabularyEntry
	cards    map[string]domain.RewardCard
	failCard bool
}

func newStubLedger(entries ...domain.VocabularyEntry) *stubLedger {
	l := &stubLedger{entries: map[string]*domain.VocabularyEntry{}, cards: map[string]domain.RewardCard{}}
	for i := range entries {
		e := entries[i]
		l.entries[e.ID] = &e
	}
	return l
}

func (l *stubLedger) Entry(_ context.Context, id string) (*domain.VocabularyEntry, error) {
	e, ok := l.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	cp.History = append([]bool(nil), e.History...)
	return &cp, nil
}

func (l *stubLedger) AppendAnswer(_ context.Context, entryID, _ string, correct bool, _ time.Time) error {
	l.entries[entryID].History = append(l.entries[entryID].History, correct)
	return nil
}

func (l *stubLedger) InsertCard(_ context.Context, card domain.RewardCard) error {
	if l.failCard {
		return errors.New("disk full")
	}
	l.cards[card.EntryID] = card
	return nil
}

func (l *stubLedger) DeleteCardByEntry(_ context.Context, entryID string) error {
	delete(l.cards, entryID)
	return nil
}

func (l *stubLedger) SetRewardFlag(_ context.Context, entryID string, has bool) error {
	l.entries[entryID].HasRewardCard = has
	return nil
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	p := DefaultPolicy()

	t.Run("correct answer at ninety percent creates a card", func(t *testing.T) {
		l := newStubLedger(domain.VocabularyEntry{ID: "e1", SourceWord: "canis", History: history(8, 1)})

		out, err := p.Apply(ctx, l, "e1", "s1", true)
		require.NoError(t, err)
		assert.Equal(t, domain.CardCreate, out.Change)
		assert.InDelta(t, 90, out.Accuracy, 1e-9)
		require.NotNil(t, out.Card)
		assert.Contains(t, l.cards, "e1")
		assert.True(t, l.entries["e1"].HasRewardCard)
	})

	t.Run("wrong answer below threshold removes the card", func(t *testing.T) {
		l := newStubLedger(domain.VocabularyEntry{ID: "e1", SourceWord: "canis", History: history(9, 1), HasRewardCard: true})
		l.cards["e1"] = domain.RewardCard{ID: "c1", EntryID: "e1"}

		out, err := p.Apply(ctx, l, "e1", "", false)
		require.NoError(t, err)
		assert.Equal(t, domain.CardRemove, out.Change)
		assert.InDelta(t, 100.0*9/11, out.Accuracy, 1e-9)
		assert.NotContains(t, l.cards, "e1")
		assert.False(t, l.entries["e1"].HasRewardCard)
	})

	t.Run("wrong answer staying above threshold keeps the card", func(t *testing.T) {
		l := newStubLedger(domain.VocabularyEntry{ID: "e1", SourceWord: "canis", History: history(10, 0), HasRewardCard: true})
		l.cards["e1"] = domain.RewardCard{ID: "c1", EntryID: "e1"}

		out, err := p.Apply(ctx, l, "e1", "", false)
		require.NoError(t, err)
		assert.Equal(t, domain.NoChange, out.Change)
		assert.InDelta(t, 100.0*10/11, out.Accuracy, 1e-9)
		assert.Contains(t, l.cards, "e1")
		assert.True(t, l.entries["e1"].HasRewardCard)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := p.Apply(ctx, newStubLedger(), "missing", "", true)
		assert.True(t, domain.IsKind(err, domain.KindNotFound))
	})

	t.Run("ledger failure is returned", func(t *testing.T) {
		l := newStubLedger(domain.VocabularyEntry{ID: "e1", SourceWord: "canis"})
		l.failCard = true

		_, err := p.Apply(ctx, l, "e1", "", true)
		require.Error(t, err)
		assert.Empty(t, domain.KindOf(err))
	})
}
