package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind classifies a failure by the stage that produced it and how far it propagates
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: the signer table is missing required columns or values
	KindValidation
	// KindDataSource: the signer table cannot be read or parsed
	KindDataSource
	// KindSignatureResolution: no usable signature image for a record
	KindSignatureResolution
	// KindMerge: a template could not be read, merged or written for one pair
	KindMerge
	// KindEnvironment: the run itself cannot proceed (output directory)
	KindEnvironment
)

// String returns a string representation of the Kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindDataSource:
		return "DATA_SOURCE"
	case KindSignatureResolution:
		return "SIGNATURE_RESOLUTION"
	case KindMerge:
		return "MERGE"
	case KindEnvironment:
		return "ENVIRONMENT"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether a failure of this kind only degrades a single merge pair
func (k Kind) IsRecoverable() bool {
	switch k {
	case KindSignatureResolution, KindMerge:
		return true
	default:
		return false
	}
}

// Error is the typed error carried across package boundaries
type Error struct {
	Kind      Kind      `json:"kind"`
	Op        string    `json:"op,omitempty"`
	Path      string    `json:"path,omitempty"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("[%s] %s %s: %s", e.Kind, e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, msg)
	default:
		return fmt.Sprintf("[%s] %s", e.Kind, msg)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether this error only affects a single merge pair
func (e *Error) Recoverable() bool {
	return e.Kind.IsRecoverable()
}

// New creates an Error without an underlying cause
func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates an Error with a formatted message
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// Wrap wraps err as an Error of the given kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:      kind,
		Op:        op,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithPath adds the file the error refers to
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithMessage sets a human readable message in front of the cause
func (e *Error) WithMessage(message string) *Error {
	e.Message = message
	return e
}

// As extracts the first *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRecoverable reports whether err only degrades a single merge pair
func IsRecoverable(err error) bool {
	return KindOf(err).IsRecoverable()
}
