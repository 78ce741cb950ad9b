package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
)

const (
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeContentTooShort = "CONTENT_TOO_SHORT"
	ErrorCodeAcquisition     = "ACQUISITION_ERROR"
	ErrorCodeInternal        = "INTERNAL_ERROR"
)

// ValidationError rejects malformed input. Fatal, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// ContentTooShortError rejects jobs below the minimum word count. This is
// a content-quality precondition, not a transient failure, so no phases
// are scheduled.
type ContentTooShortError struct {
	Words int
	Min   int
}

func (e *ContentTooShortError) Error() string {
	return fmt.Sprintf("content has %d words, minimum is %d", e.Words, e.Min)
}
