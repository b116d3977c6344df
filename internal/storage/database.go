package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases
	// alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Update runs fn inside a single transaction. The transaction commits when
// fn returns nil and rolls back otherwise.
func (db *DB) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListEntries returns every entry with its answer history, newest first.
func (db *DB) ListEntries(ctx context.Context) ([]domain.VocabularyEntry, error) {
	return listEntries(ctx, db.conn, "ORDER BY rowid DESC")
}

// FindEntry retrieves an entry with its history. It returns nil if the entry
// does not exist.
func (db *DB) FindEntry(ctx context.Context, id string) (*domain.VocabularyEntry, error) {
	return findEntry(ctx, db.conn, id)
}

// ListCards returns the card gallery, newest first.
func (db *DB) ListCards(ctx context.Context) ([]domain.GalleryCard, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.entry_id, c.title, c.description, c.image_ref, c.rarity, c.created_at, e.translation
		FROM cards c JOIN entries e ON e.id = c.entry_id
		ORDER BY c.rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.GalleryCard
	for rows.Next() {
		var c domain.GalleryCard
		if err := rows.Scan(&c.ID, &c.EntryID, &c.Title, &c.Description, &c.ImageRef, &c.Rarity, &c.CreatedAt, &c.Translation); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// FindSession retrieves a quiz session with its questions. It returns nil if
// the session does not exist.
func (db *DB) FindSession(ctx context.Context, id string) (*domain.QuizSession, error) {
	return loadSession(ctx, db.conn, "WHERE id = ?", id)
}

// LatestSession returns the most recently started session of a client, or
// nil if the client has none.
func (db *DB) LatestSession(ctx context.Context, clientID string) (*domain.QuizSession, error) {
	return loadSession(ctx, db.conn, "WHERE client_id = ? ORDER BY rowid DESC LIMIT 1", clientID)
}

const entryColumns = `id, source_word, translation, has_reward_card, source_id, import_key, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (domain.VocabularyEntry, error) {
	var (
		e         domain.VocabularyEntry
		sourceID  sql.NullInt64
		importKey sql.NullString
	)
	err := s.Scan(&e.ID, &e.SourceWord, &e.Translation, &e.HasRewardCard, &sourceID, &importKey, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	if sourceID.Valid {
		id := sourceID.Int64
		e.SourceID = &id
	}
	e.ImportKey = importKey.String
	return e, nil
}

func findEntry(ctx context.Context, q querier, id string) (*domain.VocabularyEntry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Entry not found
		}
		return nil, fmt.Errorf("failed to find entry %s: %w", id, err)
	}

	rows, err := q.QueryContext(ctx, `SELECT correct FROM answers WHERE entry_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for entry %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ok bool
		if err := rows.Scan(&ok); err != nil {
			return nil, fmt.Errorf("failed to scan answer for entry %s: %w", id, err)
		}
		e.History = append(e.History, ok)
	}
	return &e, rows.Err()
}

func listEntries(ctx context.Context, q querier, clause string, args ...any) ([]domain.VocabularyEntry, error) {
	entries, err := queryEntries(ctx, q, clause, args...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.ID] = i
	}

	rows, err := q.QueryContext(ctx, `SELECT entry_id, correct FROM answers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			entryID string
			ok      bool
		)
		if err := rows.Scan(&entryID, &ok); err != nil {
			return nil, fmt.Errorf("failed to scan answer row: %w", err)
		}
		if i, found := index[entryID]; found {
			entries[i].History = append(entries[i].History, ok)
		}
	}
	return entries, rows.Err()
}

// queryEntries closes its rows before returning, since the pool holds a
// single connection.
func queryEntries(ctx context.Context, q querier, clause string, args ...any) ([]domain.VocabularyEntry, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.VocabularyEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func loadSession(ctx context.Context, q querier, clause string, args ...any) (*domain.QuizSession, error) {
	var (
		s        domain.QuizSession
		status   string
		finished sql.NullTime
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, client_id, status, position, started_at, finished_at, finish_reason
		FROM quiz_sessions `+clause, args...,
	).Scan(&s.ID, &s.ClientID, &status, &s.Position, &s.StartedAt, &finished, &s.FinishReason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Session not found
		}
		return nil, fmt.Errorf("failed to load quiz session: %w", err)
	}
	s.Status = domain.SessionStatus(status)
	if finished.Valid {
		t := finished.Time
		s.FinishedAt = &t
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, entry_id, prompt, options, answered, selected, correct
		FROM quiz_questions WHERE session_id = ? ORDER BY position
	`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for session %s: %w", s.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			qn      domain.Question
			options string
		)
		if err := rows.Scan(&qn.ID, &qn.EntryID, &qn.Prompt, &options, &qn.Answered, &qn.Selected, &qn.Correct); err != nil {
			return nil, fmt.Errorf("failed to scan question row for session %s: %w", s.ID, err)
		}
		if err := json.Unmarshal([]byte(options), &qn.Options); err != nil {
			return nil, fmt.Errorf("failed to decode options of question %s: %w", qn.ID, err)
		}
		s.Questions = append(s.Questions, qn)
	}
	return &s, rows.Err()
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(ctx context.Context, path string, sourceType domain.SourceType) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type)
		VALUES (?, ?)
	`, path, string(sourceType))
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*domain.Source, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func scanSource(s scanner) (domain.Source, error) {
	var (
		src         domain.Source
		sourceType  string
		lastScanned sql.NullTime
	)
	if err := s.Scan(&src.ID, &src.Path, &sourceType, &lastScanned); err != nil {
		return src, err
	}
	src.Type = domain.SourceType(sourceType)
	if lastScanned.Valid {
		t := lastScanned.Time
		src.LastScanned = &t
	}
	return src, nil
}

// DeleteSource removes a source. Entries it imported stay in the vocabulary
// but are no longer tied to it. It reports whether the source existed.
func (db *DB) DeleteSource(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := db.Update(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, `UPDATE entries SET source_id = NULL, import_key = NULL WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("failed to detach entries of source %d: %w", id, err)
		}
		res, err := tx.tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete source %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = n > 0
		return nil
	})
	return found, err
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
