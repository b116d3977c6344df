// Package export writes the vocabulary to an .xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/conorfennell/vocabquiz/internal/accuracy"
	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single sheet written.
const SheetName = "Vocabulary"

// Header is the first row of the sheet. Its first two columns match what
// the word-list parser reads back.
var Header = []string{"source_word", "translation", "accuracy_percent", "total_answers", "correct_answers", "has_reward_card"}

// Write encodes entries as a workbook to w.
func Write(w io.Writer, entries []domain.VocabularyEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, 1, toAny(Header)); err != nil {
		return err
	}
	for i, e := range entries {
		row := []any{
			e.SourceWord,
			e.Translation,
			accuracy.Of(e.History),
			len(e.History),
			e.Correct(),
			e.HasRewardCard,
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
