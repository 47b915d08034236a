package diag

import (
	"errors"
	"fmt"
)

// Kind classifies a failure of the conversion core.
type Kind int

const (
	KindParse      Kind = iota + 1 // required statement missing or malformed
	KindValidation                 // dictionary field empty or identity mismatch
	KindNotFound                   // prior configuration missing
	KindDecode                     // malformed structured or tabular input
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindDecode:
		return "decode error"
	default:
		return "error"
	}
}

// Sentinels for errors.Is.
var (
	ErrParse      = &Error{Kind: KindParse}
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrDecode     = &Error{Kind: KindDecode}
)

// Error is the single failure returned by extraction, synthesis and
// comparison. Subject names the offending table or column; Line is the
// 1-based record position for tabular input, zero otherwise.
type Error struct {
	Kind    Kind
	Subject string
	Line    int
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Subject != "" {
		msg += fmt.Sprintf(" (%s)", e.Subject)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any Error of the same kind, so callers can test against the
// package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Parsef builds a parse error for subject.
func Parsef(subject, format string, args ...any) *Error {
	return &Error{Kind: KindParse, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation error for subject at the given record line.
func Validationf(subject string, line int, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Subject: subject, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error for subject.
func NotFoundf(subject, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// Decode wraps a decoding failure.
func Decode(subject string, line int, err error) *Error {
	return &Error{Kind: KindDecode, Subject: subject, Line: line, Err: err}
}

// Decodef builds a decode error without an underlying cause.
func Decodef(subject string, line int, format string, args ...any) *Error {
	return &Error{Kind: KindDecode, Subject: subject, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first diag.Error in err's chain, or zero.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// Warning is a soft condition that degraded a result without failing it.
type Warning struct {
	Code    string `json:"code" yaml:"code"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Warning codes.
const (
	WarnNoTableLabel    = "missing_table_description"
	WarnNoColumnLabels  = "missing_column_descriptions"
	WarnDuplicateColumn = "duplicate_column"
	WarnColumnSkipped   = "column_not_in_dictionary"
	WarnUnknownColumn   = "dictionary_entry_unused"
	WarnIndexColumn     = "index_column_unknown"
)

func (w Warning) String() string {
	if w.Subject == "" {
		return w.Message
	}
	return w.Subject + ": " + w.Message
}
