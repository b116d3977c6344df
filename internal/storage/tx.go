package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/reward"
)

// Tx is a unit of work opened by DB.Update.
type Tx struct {
	tx *sql.Tx
}

var _ reward.Ledger = (*Tx)(nil)

// Entry retrieves an entry with its history, or nil if it does not exist.
func (t *Tx) Entry(ctx context.Context, id string) (*domain.VocabularyEntry, error) {
	return findEntry(ctx, t.tx, id)
}

// Entries returns every entry with its history, oldest first.
func (t *Tx) Entries(ctx context.Context) ([]domain.VocabularyEntry, error) {
	return listEntries(ctx, t.tx, "ORDER BY rowid")
}

// EntriesBySource returns the entries imported from a source, without history.
func (t *Tx) EntriesBySource(ctx context.Context, sourceID int64) ([]domain.VocabularyEntry, error) {
	return queryEntries(ctx, t.tx, "WHERE source_id = ? ORDER BY rowid", sourceID)
}

// InsertEntry inserts a new entry. Its history and card flag start empty.
func (t *Tx) InsertEntry(ctx context.Context, e domain.VocabularyEntry) error {
	var importKey sql.NullString
	if e.ImportKey != "" {
		importKey = sql.NullString{String: e.ImportKey, Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO entries (id, source_word, translation, has_reward_card, source_id, import_key, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?)
	`, e.ID, e.SourceWord, e.Translation, e.SourceID, importKey, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
	}
	return nil
}

// UpdateEntry stores the word pair of an existing entry. The card flag and
// history are not touched.
func (t *Tx) UpdateEntry(ctx context.Context, e domain.VocabularyEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE entries
		SET source_word = ?, translation = ?, updated_at = ?
		WHERE id = ?
	`, e.SourceWord, e.Translation, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entry %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes an entry together with its card and answer history.
// It reports whether the entry existed.
func (t *Tx) DeleteEntry(ctx context.Context, id string) (bool, error) {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cards WHERE entry_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete card of entry %s: %w", id, err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM answers WHERE entry_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete history of entry %s: %w", id, err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendAnswer adds one answer to an entry's history. sessionID may be empty
// for answers recorded outside a quiz round.
func (t *Tx) AppendAnswer(ctx context.Context, entryID, sessionID string, correct bool, at time.Time) error {
	var session sql.NullString
	if sessionID != "" {
		session = sql.NullString{String: sessionID, Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO answers (entry_id, session_id, correct, answered_at)
		VALUES (?, ?, ?, ?)
	`, entryID, session, correct, at)
	if err != nil {
		return fmt.Errorf("failed to insert answer for entry %s: %w", entryID, err)
	}
	return nil
}

// InsertCard stores a reward card.
func (t *Tx) InsertCard(ctx context.Context, c domain.RewardCard) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cards (id, entry_id, title, description, image_ref, rarity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.EntryID, c.Title, c.Description, c.ImageRef, c.Rarity, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
	}
	return nil
}

// DeleteCardByEntry removes the card owned by an entry, if any.
func (t *Tx) DeleteCardByEntry(ctx context.Context, entryID string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cards WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("failed to delete card of entry %s: %w", entryID, err)
	}
	return nil
}

// SetRewardFlag updates the cached card flag of an entry.
func (t *Tx) SetRewardFlag(ctx context.Context, entryID string, has bool) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE entries SET has_reward_card = ? WHERE id = ?`, has, entryID); err != nil {
		return fmt.Errorf("failed to set card flag of entry %s: %w", entryID, err)
	}
	return nil
}

// Session retrieves a quiz session with its questions, or nil if it does not
// exist.
func (t *Tx) Session(ctx context.Context, id string) (*domain.QuizSession, error) {
	return loadSession(ctx, t.tx, "WHERE id = ?", id)
}

// OpenSessionIDs lists the open sessions of a client.
func (t *Tx) OpenSessionIDs(ctx context.Context, clientID string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id FROM quiz_sessions WHERE client_id = ? AND status = ? ORDER BY rowid
	`, clientID, string(domain.SessionOpen))
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions of client %s: %w", clientID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertSession stores a new session together with its question snapshot.
func (t *Tx) InsertSession(ctx context.Context, s *domain.QuizSession) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO quiz_sessions (id, client_id, status, position, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.ClientID, string(s.Status), s.Position, s.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", s.ID, err)
	}

	for i, q := range s.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("failed to encode options of question %s: %w", q.ID, err)
		}
		_, err = t.tx.ExecContext(ctx, `
			INSERT INTO quiz_questions (id, session_id, position, entry_id, prompt, options)
			VALUES (?, ?, ?, ?, ?, ?)
		`, q.ID, s.ID, i, q.EntryID, q.Prompt, string(options))
		if err != nil {
			return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
		}
	}
	return nil
}

// FinishSession closes an open session. Closing a finished session is a
// no-op.
func (t *Tx) FinishSession(ctx context.Context, id, reason string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE quiz_sessions
		SET status = ?, finished_at = ?, finish_reason = ?
		WHERE id = ? AND status = ?
	`, string(domain.SessionFinished), at, reason, id, string(domain.SessionOpen))
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", id, err)
	}
	return nil
}

// RecordQuestion marks the question at position as answered and advances
// the session. It fails with InvalidQuestion if position is no longer the
// current one or the question was answered already.
func (t *Tx) RecordQuestion(ctx context.Context, sessionID string, position int, selected string, correct bool) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE quiz_sessions
		SET position = position + 1
		WHERE id = ? AND position = ? AND status = ?
	`, sessionID, position, string(domain.SessionOpen))
	if err != nil {
		return fmt.Errorf("failed to advance session %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.InvalidQuestion("question %d of session %s is not the current question", position, sessionID)
	}

	res, err = t.tx.ExecContext(ctx, `
		UPDATE quiz_questions
		SET answered = 1, selected = ?, correct = ?
		WHERE session_id = ? AND position = ? AND answered = 0
	`, selected, correct, sessionID, position)
	if err != nil {
		return fmt.Errorf("failed to record answer of session %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return domain.InvalidQuestion("question %d of session %s was already answered", position, sessionID)
	}
	return nil
}
