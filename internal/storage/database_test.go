package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertEntry(t *testing.T, db *DB, id, word, translation string, history ...bool) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	err := db.Update(ctx, func(tx *Tx) error {
		if err := tx.InsertEntry(ctx, domain.VocabularyEntry{
			ID: id, SourceWord: word, Translation: translation, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		for _, ok := range history {
			if err := tx.AppendAnswer(ctx, id, "", ok, now); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	insertEntry(t, db, "e1", "canis", "Hund", true, false, true)
	insertEntry(t, db, "e2", "felis", "Katze")

	entries, err := db.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "e2", entries[0].ID, "newest entry first")
	assert.Empty(t, entries[0].History)
	assert.Equal(t, []bool{true, false, true}, entries[1].History)

	e, err := db.FindEntry(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "Hund", e.Translation)
	assert.Equal(t, []bool{true, false, true}, e.History)
	assert.False(t, e.HasRewardCard)

	missing, err := db.FindEntry(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteEntryCascades(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	insertEntry(t, db, "e1", "canis", "Hund", true)

	err := db.Update(ctx, func(tx *Tx) error {
		if err := tx.InsertCard(ctx, domain.RewardCard{
			ID: "c1", EntryID: "e1", Title: "canis", ImageRef: "img", Rarity: domain.RarityBronze, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return tx.SetRewardFlag(ctx, "e1", true)
	})
	require.NoError(t, err)

	cards, err := db.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Hund", cards[0].Translation)

	var found bool
	require.NoError(t, db.Update(ctx, func(tx *Tx) error {
		var err error
		found, err = tx.DeleteEntry(ctx, "e1")
		return err
	}))
	assert.True(t, found)

	cards, err = db.ListCards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestUpdateRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	insertEntry(t, db, "e1", "canis", "Hund")

	boom := errors.New("boom")
	err := db.Update(ctx, func(tx *Tx) error {
		if err := tx.AppendAnswer(ctx, "e1", "", true, time.Now()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	e, err := db.FindEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Empty(t, e.History)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	s := &domain.QuizSession{
		ID:        "s1",
		ClientID:  "local",
		Status:    domain.SessionOpen,
		StartedAt: time.Now().UTC(),
		Questions: []domain.Question{
			{ID: "q1", EntryID: "e1", Prompt: "canis", Options: []string{"Katze", "Hund"}},
			{ID: "q2", EntryID: "e2", Prompt: "felis", Options: []string{"Katze", "Hund"}},
		},
	}
	require.NoError(t, db.Update(ctx, func(tx *Tx) error { return tx.InsertSession(ctx, s) }))

	latest, err := db.LatestSession(ctx, "local")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "s1", latest.ID)
	assert.Equal(t, domain.SessionOpen, latest.Status)
	require.Len(t, latest.Questions, 2)
	assert.Equal(t, []string{"Katze", "Hund"}, latest.Questions[0].Options)

	t.Run("out of sequence position is rejected", func(t *testing.T) {
		err := db.Update(ctx, func(tx *Tx) error { return tx.RecordQuestion(ctx, "s1", 1, "Hund", false) })
		assert.True(t, domain.IsKind(err, domain.KindInvalidQuestion))
	})

	t.Run("current position advances", func(t *testing.T) {
		require.NoError(t, db.Update(ctx, func(tx *Tx) error { return tx.RecordQuestion(ctx, "s1", 0, "Hund", true) }))
		got, err := db.FindSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Position)
		assert.True(t, got.Questions[0].Answered)
		assert.True(t, got.Questions[0].Correct)
		assert.Equal(t, "Hund", got.Questions[0].Selected)
	})

	t.Run("finish is idempotent", func(t *testing.T) {
		require.NoError(t, db.Update(ctx, func(tx *Tx) error {
			return tx.FinishSession(ctx, "s1", domain.FinishReasonFinished, time.Now())
		}))
		require.NoError(t, db.Update(ctx, func(tx *Tx) error {
			return tx.FinishSession(ctx, "s1", domain.FinishReasonSuperseded, time.Now())
		}))
		got, err := db.FindSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, domain.SessionFinished, got.Status)
		assert.Equal(t, domain.FinishReasonFinished, got.FinishReason)
		assert.NotNil(t, got.FinishedAt)
	})

	t.Run("finished session cannot advance", func(t *testing.T) {
		err := db.Update(ctx, func(tx *Tx) error { return tx.RecordQuestion(ctx, "s1", 1, "Katze", true) })
		assert.True(t, domain.IsKind(err, domain.KindInvalidQuestion))
	})
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	id, err := db.InsertSource(ctx, "/tmp/words", domain.SourceLocal)
	require.NoError(t, err)

	src, err := db.FindSourceByPath(ctx, "/tmp/words")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, id, src.ID)
	assert.Equal(t, domain.SourceLocal, src.Type)
	assert.Nil(t, src.LastScanned)

	require.NoError(t, db.UpdateSourceLastScanned(ctx, id))
	sources, err := db.GetAllSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.NotNil(t, sources[0].LastScanned)

	found, err := db.DeleteSource(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = db.DeleteSource(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}
