package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	pairSeparator  = "="
	blockSeparator = "---"
	headerCell     = "source_word"
)

type state int

const (
	seeking state = iota
	readingFrontMatter
	readingList
	skippingFence
)

// Supported reports whether a file name has an extension the parser reads.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".xlsx":
		return true
	}
	return false
}

// ParseFile reads a word list from the given path. Workbooks are read with
// ParseWorkbook, everything else as text.
func ParseFile(path string) ([]domain.ImportedWord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ParseWorkbook(file)
	}
	return Parse(file)
}

// Parse reads "word = translation" lines. Markdown headings, list bullets,
// front matter and fenced code blocks are skipped, as is any line without
// a separator.
func Parse(r io.Reader) ([]domain.ImportedWord, error) {
	scanner := bufio.NewScanner(r)
	var words wordList
	current := seeking

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch current {
		case seeking:
			if line == "" {
				continue
			}
			if line == blockSeparator {
				current = readingFrontMatter
				continue
			}
			current = readingList
		case readingFrontMatter:
			if line == blockSeparator {
				current = readingList
			}
			continue
		case skippingFence:
			if strings.HasPrefix(line, "```") {
				current = readingList
			}
			continue
		}

		if strings.HasPrefix(line, "```") {
			current = skippingFence
			continue
		}
		if line == "" || line == blockSeparator || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		word, translation, ok := splitPair(line)
		if !ok {
			continue
		}
		words.add(word, translation)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words.list, nil
}

func splitPair(line string) (word, translation string, ok bool) {
	for _, bullet := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, bullet) {
			line = strings.TrimSpace(line[len(bullet):])
			break
		}
	}
	word, translation, ok = strings.Cut(line, pairSeparator)
	if !ok {
		return "", "", false
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return "", "", false
	}
	return word, strings.TrimSpace(translation), true
}

// ParseWorkbook reads every sheet of an .xlsx workbook. Column A holds the
// word and column B the translation; a header row starting with
// "source_word" is skipped.
func ParseWorkbook(r io.Reader) ([]domain.ImportedWord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var words wordList
	for _, sheet := range f.GetSheetList() {
		if err := readSheet(f, sheet, &words); err != nil {
			return nil, err
		}
	}
	return words.list, nil
}

func readSheet(f *excelize.File, sheet string, words *wordList) error {
	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row of sheet %s: %w", sheet, err)
		}
		if len(cols) == 0 {
			continue
		}

		word := strings.TrimSpace(cols[0])
		if word == "" || strings.EqualFold(word, headerCell) {
			continue
		}
		var translation string
		if len(cols) > 1 {
			translation = strings.TrimSpace(cols[1])
		}
		words.add(word, translation)
	}
	return rows.Error()
}

// wordList keeps the first occurrence of each word.
type wordList struct {
	list []domain.ImportedWord
	seen map[string]bool
}

func (w *wordList) add(word, translation string) {
	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[word] {
		return
	}
	w.seen[word] = true
	w.list = append(w.list, domain.ImportedWord{SourceWord: word, Translation: translation})
}
