package sync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/gitsource"
	"github.com/conorfennell/vocabquiz/internal/parser"
	"github.com/conorfennell/vocabquiz/internal/storage"
	"github.com/conorfennell/vocabquiz/internal/wordkey"
	"github.com/google/uuid"
)

// Syncer imports word lists from registered sources into the vocabulary.
type Syncer struct {
	db       *storage.DB
	reposDir string
	progress io.Writer
}

// New creates a Syncer that checks git sources out under reposDir.
func New(db *storage.DB, reposDir string) *Syncer {
	return &Syncer{db: db, reposDir: reposDir}
}

// WithProgress sends git clone and pull progress to w.
func (s *Syncer) WithProgress(w io.Writer) *Syncer {
	s.progress = w
	return s
}

// Report summarises the reconciliation of one source.
type Report struct {
	SourceID int64    `json:"source_id"`
	Path     string   `json:"path"`
	Parsed   int      `json:"parsed"`
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Deleted  int      `json:"deleted"`
	Errors   []string `json:"errors,omitempty"`
}

// AddSource registers a local directory or a git URL.
func (s *Syncer) AddSource(ctx context.Context, path string) (*domain.Source, error) {
	if path == "" {
		return nil, domain.Validation("path is required")
	}

	sourceType := domain.SourceGit
	if !gitsource.IsURL(path) {
		sourceType = domain.SourceLocal
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return nil, domain.Validation("%s is not a directory", path)
		}
		path = abs
	}

	existing, err := s.db.FindSourceByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.Validation("source %s is already registered", path)
	}

	id, err := s.db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return nil, err
	}
	slog.Info("Source added", "id", id, "type", sourceType, "path", path)
	return &domain.Source{ID: id, Path: path, Type: sourceType}, nil
}

// Sources lists the registered sources.
func (s *Syncer) Sources(ctx context.Context) ([]domain.Source, error) {
	return s.db.GetAllSources(ctx)
}

// RemoveSource unregisters a source. Entries imported from it stay in the
// vocabulary.
func (s *Syncer) RemoveSource(ctx context.Context, id int64) error {
	found, err := s.db.DeleteSource(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.NotFound("source %d not found", id)
	}
	slog.Info("Source removed", "id", id)
	return nil
}

// RunSync iterates over all sources and reconciles them. A failing source
// is reported and does not stop the others.
func (s *Syncer) RunSync(ctx context.Context) ([]Report, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with: vocabquiz source add <path/or/url.git>")
		return nil, nil
	}

	reports := make([]Report, 0, len(sources))
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.SyncSource(ctx, source)
		if err != nil {
			slog.Error("Error syncing source", "id", source.ID, "path", source.Path, "error", err)
			report.Errors = append(report.Errors, err.Error())
		}
		reports = append(reports, report)
	}
	slog.Info("Sync process complete.", "sources", len(sources))
	return reports, nil
}

// SyncSource fetches one source if it is remote and reconciles its words.
func (s *Syncer) SyncSource(ctx context.Context, source domain.Source) (Report, error) {
	slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)
	report := Report{SourceID: source.ID, Path: source.Path}

	dir := source.Path
	if source.Type == domain.SourceGit {
		localRepoPath, err := gitsource.LocalPath(s.reposDir, source.Path)
		if err != nil {
			return report, err
		}
		if err := gitsource.Sync(ctx, source.Path, localRepoPath, s.progress); err != nil {
			return report, err
		}
		dir = localRepoPath
	}

	if err := s.reconcile(ctx, source, dir, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Syncer) collect(dir string, report *Report) ([]domain.ImportedWord, error) {
	var words []domain.ImportedWord
	seen := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.Supported(d.Name()) {
			return nil
		}

		fileWords, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("parsing %s: %v", path, parseErr))
			return nil
		}
		for _, w := range fileWords {
			w.Key = wordkey.Key(w.SourceWord)
			if seen[w.Key] {
				continue
			}
			seen[w.Key] = true
			words = append(words, w)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", dir, walkErr)
	}
	return words, nil
}

// reconcile brings the entries imported from source in line with the files
// in dir. Changed translations update the entry in place, keeping its
// history; words gone from the files delete their entries.
func (s *Syncer) reconcile(ctx context.Context, source domain.Source, dir string, report *Report) error {
	words, err := s.collect(dir, report)
	if err != nil {
		return err
	}
	report.Parsed = len(words)

	found := make(map[string]bool, len(words))
	err = s.db.Update(ctx, func(tx *storage.Tx) error {
		existing, err := tx.EntriesBySource(ctx, source.ID)
		if err != nil {
			return err
		}
		byKey := make(map[string]domain.VocabularyEntry, len(existing))
		for _, e := range existing {
			byKey[e.ImportKey] = e
		}

		now := time.Now().UTC()
		for _, w := range words {
			found[w.Key] = true
			current, ok := byKey[w.Key]
			if !ok {
				sourceID := source.ID
				if err := tx.InsertEntry(ctx, domain.VocabularyEntry{
					ID:          uuid.NewString(),
					SourceWord:  w.SourceWord,
					Translation: w.Translation,
					SourceID:    &sourceID,
					ImportKey:   w.Key,
					CreatedAt:   now,
					UpdatedAt:   now,
				}); err != nil {
					return err
				}
				report.Inserted++
				continue
			}
			if current.Translation == w.Translation && current.SourceWord == w.SourceWord {
				continue
			}
			slog.Debug("Imported word changed, updating", "entry_id", current.ID, "key", w.Key)
			current.SourceWord = w.SourceWord
			current.Translation = w.Translation
			current.UpdatedAt = now
			if err := tx.UpdateEntry(ctx, current); err != nil {
				return err
			}
			report.Updated++
		}

		for _, e := range existing {
			if found[e.ImportKey] {
				continue
			}
			slog.Info("Orphaned entry, deleting", "entry_id", e.ID, "key", e.ImportKey)
			if _, err := tx.DeleteEntry(ctx, e.ID); err != nil {
				return err
			}
			report.Deleted++
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.db.UpdateSourceLastScanned(ctx, source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", dir,
		"parsed_words", report.Parsed,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"orphaned_deleted", report.Deleted,
		"errors", len(report.Errors),
	)
	return nil
}
