package status

import (
	"errors"
	"fmt"
)

// Decode error kinds. Every *DecodeError wraps exactly one of them.
var (
	ErrMalformedInfoBlock    = errors.New("malformed info block")
	ErrMalformedQcStatus     = errors.New("malformed qcstatus")
	ErrMalformedPlayerRecord = errors.New("malformed player record")
	ErrInvalidScore          = errors.New("invalid score")
)

// DecodeError describes why a status response was rejected.
type DecodeError struct {
	Kind   error
	Detail string

	// Line is the zero based segment index of the payload, -1 when not applicable.
	Line int
}

func (e *DecodeError) Error() string {
	if e.Line >= 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Kind, e.Line, e.Detail)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

func newError(kind error, line int, format string, args ...any) *DecodeError {
	return &DecodeError{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Line:   line,
	}
}
