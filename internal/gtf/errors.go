package gtf

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when a line cannot be split into the GTF columns.
	ErrFormat = errors.New("invalid GTF format")
	// ErrInvalidInterval is returned for non-numeric or inverted coordinates.
	ErrInvalidInterval = errors.New("invalid interval")
)

// FormatError reports a malformed GTF line.
type FormatError struct {
	Line   int    // 1-based line number, 0 if unknown
	Fields int    // number of tab-separated fields found
	Msg    string // optional detail
}

func (e *FormatError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = fmt.Sprintf("expected 9 fields, got %d", e.Fields)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, ErrFormat, msg)
	}
	return fmt.Sprintf("%s: %s", ErrFormat, msg)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// IntervalError reports start/end values that do not form a valid
// 1-based inclusive interval.
type IntervalError struct {
	Line  int
	Start string
	End   string
	Err   error // underlying parse error, nil when start > end
}

func (e *IntervalError) Error() string {
	var detail string
	if e.Err != nil {
		detail = e.Err.Error()
	} else {
		detail = fmt.Sprintf("start %s > end %s", e.Start, e.End)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, ErrInvalidInterval, detail)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInterval, detail)
}

func (e *IntervalError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInterval, e.Err}
	}
	return []error{ErrInvalidInterval}
}
