package domain

import "time"

// SourceType tells the sync process how to fetch a word list source.
type SourceType string

const (
	SourceLocal SourceType = "local"
	SourceGit   SourceType = "git"
)

// Source is a registered location of word lists, either a local directory
// or a git repository URL.
type Source struct {
	ID          int64
	Path        string
	Type        SourceType
	LastScanned *time.Time
}

// ImportedWord is a single word pair read from a source file.
type ImportedWord struct {
	SourceWord  string
	Translation string
	Key         string
}
