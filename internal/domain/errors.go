package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced to callers.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindInvalidState           Kind = "invalid_state"
	KindInvalidQuestion        Kind = "invalid_question"
	KindInsufficientVocabulary Kind = "insufficient_vocabulary"
	KindValidation             Kind = "validation"
)

// Error is a structured failure with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidQuestion(format string, args ...any) error {
	return &Error{Kind: KindInvalidQuestion, Message: fmt.Sprintf(format, args...)}
}

func InsufficientVocabulary(format string, args ...any) error {
	return &Error{Kind: KindInsufficientVocabulary, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error anywhere in err's chain, or ""
// for infrastructure errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
