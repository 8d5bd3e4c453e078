package ocr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNoTextFound      Kind = "no_text_found"
	KindProcessingFailed Kind = "processing_failed"
	KindInvalidImage     Kind = "invalid_image"
)

// Error is the typed failure of an OCR provider.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ocr %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("ocr %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// KindOf extracts the error kind; ok is false for non-OCR errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
