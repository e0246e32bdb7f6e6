package scanindex

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the reason a file could not be indexed
type Kind int

// Failure kinds
const (
	UnsupportedFormat Kind = iota + 1
	StructuredParseFailure
	FallbackFailure
	IOFailure
)

func (k Kind) String() string {
	switch k {
	case UnsupportedFormat:
		return `UnsupportedFormat`
	case StructuredParseFailure:
		return `StructuredParseFailure`
	case FallbackFailure:
		return `FallbackFailure`
	case IOFailure:
		return `IOFailure`
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var (
	// ErrUnknownFiletype is the cause of an UnsupportedFormat error
	ErrUnknownFiletype = errors.New("unknown filetype")
	// ErrMissingInput means neither an input file nor an input list was
	// given, or the output directory is missing
	ErrMissingInput = errors.New("input spectra and output folder are required")
)

// Error is returned when a file can't be indexed
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

// KindOf returns the Kind of err, or 0 if err isn't an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
