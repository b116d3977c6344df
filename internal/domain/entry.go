package domain

import "time"

// VocabularyEntry is a word pair together with its answer history.
type VocabularyEntry struct {
	ID          string
	SourceWord  string
	Translation string
	// History holds one value per answer ever given, oldest first.
	History       []bool
	HasRewardCard bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Set only on entries created by an import sync.
	SourceID  *int64
	ImportKey string
}

// Correct returns the number of correct answers in the history.
func (e *VocabularyEntry) Correct() int {
	n := 0
	for _, ok := range e.History {
		if ok {
			n++
		}
	}
	return n
}

// Quizzable reports whether the entry can take part in a quiz round.
func (e *VocabularyEntry) Quizzable() bool {
	return e.Translation != ""
}
