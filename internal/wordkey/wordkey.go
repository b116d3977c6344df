package wordkey

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize lowercases a source word, trims it and collapses inner
// whitespace, including line breaks, to single spaces.
func Normalize(word string) string {
	return strings.Join(strings.Fields(strings.ToLower(word)), " ")
}

// Key returns the SHA-256 of the normalized word as a hex string. Imports
// use it to recognise entries created from the same word earlier, so a
// changed translation updates the entry instead of replacing it.
func Key(word string) string {
	sum := sha256.Sum256([]byte(Normalize(word)))
	return fmt.Sprintf("%x", sum)
}
