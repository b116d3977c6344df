// Package suggest proposes translations for words entered without one.
package suggest

import (
	"context"
	"log/slog"
	"time"
)

// Suggester returns candidate translations for a source word. An empty
// result is valid.
type Suggester interface {
	Suggest(ctx context.Context, word string) ([]string, error)
}

// Static returns a fixed list for every word. The zero value suggests
// nothing, which is the offline default.
type Static struct {
	Suggestions []string
}

func (s Static) Suggest(ctx context.Context, word string) ([]string, error) {
	if len(s.Suggestions) == 0 {
		return nil, nil
	}
	out := make([]string, len(s.Suggestions))
	copy(out, s.Suggestions)
	return out, nil
}

type logging struct {
	next Suggester
}

// WithLogging wraps a Suggester and logs each lookup.
func WithLogging(next Suggester) Suggester {
	return logging{next: next}
}

func (l logging) Suggest(ctx context.Context, word string) ([]string, error) {
	start := time.Now()
	out, err := l.next.Suggest(ctx, word)
	if err != nil {
		slog.Warn("Translation suggestion failed", "word", word, "duration", time.Since(start), "error", err)
		return nil, err
	}
	slog.Debug("Translation suggestions", "word", word, "count", len(out), "duration", time.Since(start))
	return out, nil
}
