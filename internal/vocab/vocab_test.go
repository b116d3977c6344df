package vocab

import (
	"context"
	"errors"
	"testing"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/reward"
	"github.com/conorfennell/vocabquiz/internal/storage"
	"github.com/conorfennell/vocabquiz/internal/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type offline struct{}

func (offline) Suggest(context.Context, string) ([]string, error) {
	return nil, errors.New("offline")
}

func newTestService(t *testing.T, s suggest.Suggester) *Service {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, reward.DefaultPolicy(), s)
}

func ptr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, suggest.Static{Suggestions: []string{"Hund", "Köter"}})

	t.Run("with translation", func(t *testing.T) {
		res, err := svc.Create(ctx, CreateRequest{SourceWord: "  canis ", Translation: " Hund "})
		require.NoError(t, err)
		require.NotNil(t, res.Entry)
		assert.False(t, res.NeedsTranslationChoice)
		assert.Equal(t, "canis", res.Entry.SourceWord)
		assert.Equal(t, "Hund", res.Entry.Translation)
		assert.Empty(t, res.Entry.History)
		assert.False(t, res.Entry.HasRewardCard)
	})

	t.Run("without translation asks for a choice", func(t *testing.T) {
		res, err := svc.Create(ctx, CreateRequest{SourceWord: "lupus"})
		require.NoError(t, err)
		assert.True(t, res.NeedsTranslationChoice)
		assert.Equal(t, []string{"Hund", "Köter"}, res.Suggestions)
		assert.Nil(t, res.Entry)
	})

	t.Run("deferred translation stores the word", func(t *testing.T) {
		res, err := svc.Create(ctx, CreateRequest{SourceWord: "felis", Defer: true})
		require.NoError(t, err)
		assert.True(t, res.NeedsTranslationChoice)
		require.NotNil(t, res.Entry)
		assert.Empty(t, res.Entry.Translation)
	})

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "felis", entries[0].SourceWord)
	assert.Equal(t, "canis", entries[1].SourceWord)

	t.Run("blank word", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{SourceWord: "   ", Translation: "x"})
		assert.True(t, domain.IsKind(err, domain.KindValidation))

		_, err = svc.Create(ctx, CreateRequest{Translation: "x"})
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	})
}

func TestCreateWithoutSuggestions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, offline{})

	res, err := svc.Create(ctx, CreateRequest{SourceWord: "canis"})
	require.NoError(t, err)
	assert.True(t, res.NeedsTranslationChoice)
	assert.Empty(t, res.Suggestions)
}

func TestUpdateKeepsHistory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	res, err := svc.Create(ctx, CreateRequest{SourceWord: "canis", Translation: "Hund"})
	require.NoError(t, err)
	id := res.Entry.ID

	_, err = svc.RecordAnswer(ctx, id, true)
	require.NoError(t, err)

	e, err := svc.Update(ctx, id, UpdateRequest{Translation: ptr("der Hund")})
	require.NoError(t, err)
	assert.Equal(t, "canis", e.SourceWord)
	assert.Equal(t, "der Hund", e.Translation)
	assert.Equal(t, []bool{true}, e.History)
	assert.True(t, e.HasRewardCard)

	_, err = svc.Update(ctx, id, UpdateRequest{SourceWord: ptr(" ")})
	assert.True(t, domain.IsKind(err, domain.KindValidation))

	_, err = svc.Update(ctx, "missing", UpdateRequest{Translation: ptr("x")})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestRecordAnswer(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	res, err := svc.Create(ctx, CreateRequest{SourceWord: "canis", Translation: "Hund"})
	require.NoError(t, err)
	id := res.Entry.ID

	out, err := svc.RecordAnswer(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.Accuracy)
	assert.Equal(t, domain.CardCreate, out.Change)

	cards, err := svc.Cards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, id, cards[0].EntryID)
	assert.Equal(t, "Hund", cards[0].Translation)
	assert.Equal(t, "canis", cards[0].Title)

	out, err = svc.RecordAnswer(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.Accuracy)
	assert.Equal(t, domain.CardRemove, out.Change)

	cards, err = svc.Cards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = svc.RecordAnswer(ctx, "missing", true)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestDeleteRemovesCard(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	res, err := svc.Create(ctx, CreateRequest{SourceWord: "canis", Translation: "Hund"})
	require.NoError(t, err)
	id := res.Entry.ID
	_, err = svc.RecordAnswer(ctx, id, true)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))

	cards, err := svc.Cards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = svc.Get(ctx, id)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))

	err = svc.Delete(ctx, id)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
