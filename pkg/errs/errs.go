// Package errs defines the error kinds surfaced verbatim to embedding API
// callers (spec.md §7). Every error gqlcore returns across a package
// boundary is one of these types (or wraps one with fmt.Errorf("...: %w")),
// so callers can type-switch without string matching.
//
// Design follows the teacher's convention of grouping sentinel errors at
// the top of the owning file (see storage/wal.go's ErrWALCorrupted,
// transaction.go's ErrNoTransaction); the kinds that need to carry the
// failing construct (a node id, a query fragment) are structs instead of
// sentinels, but every Error() string stays single-line and never leaks an
// internal storage path or stack trace.
package errs

import "fmt"

// Kind identifies which of the nine error categories an error belongs to.
type Kind string

const (
	KindParse               Kind = "ParseError"
	KindSchemaValidation    Kind = "SchemaValidation"
	KindCatalog             Kind = "CatalogError"
	KindRuntime             Kind = "RuntimeError"
	KindUnsupportedOperator Kind = "UnsupportedOperator"
	KindPersistence         Kind = "PersistenceError"
	KindTypeMismatch        Kind = "TypeMismatch"
	KindIncompatibleTypes   Kind = "IncompatibleTypes"
	KindTimeout             Kind = "Timeout"
)

// Error is the common shape for every gqlcore error: a Kind, a single-line
// message, and the failing construct when one is known (e.g. a node id, a
// clause fragment). It never carries a storage path or stack trace.
type Error struct {
	Kind      Kind
	Message   string
	Construct string // optional: the failing node id / label / clause
}

func (e *Error) Error() string {
	if e.Construct != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Construct)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func NewWithConstruct(kind Kind, message, construct string) *Error {
	return &Error{Kind: kind, Message: message, Construct: construct}
}

func ParseError(format string, args ...any) *Error {
	return New(KindParse, fmt.Sprintf(format, args...))
}

func SchemaValidation(format string, args ...any) *Error {
	return New(KindSchemaValidation, fmt.Sprintf(format, args...))
}

func Catalog(format string, args ...any) *Error {
	return New(KindCatalog, fmt.Sprintf(format, args...))
}

func Runtime(format string, args ...any) *Error {
	return New(KindRuntime, fmt.Sprintf(format, args...))
}

func RuntimeConstruct(construct, format string, args ...any) *Error {
	return NewWithConstruct(KindRuntime, fmt.Sprintf(format, args...), construct)
}

func Unsupported(format string, args ...any) *Error {
	return New(KindUnsupportedOperator, fmt.Sprintf(format, args...))
}

func Persistence(format string, args ...any) *Error {
	return New(KindPersistence, fmt.Sprintf(format, args...))
}

func TypeMismatch(format string, args ...any) *Error {
	return New(KindTypeMismatch, fmt.Sprintf(format, args...))
}

func IncompatibleTypes(format string, args ...any) *Error {
	return New(KindIncompatibleTypes, fmt.Sprintf(format, args...))
}

func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, fmt.Sprintf(format, args...))
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// IsDuplicate reports whether err represents a catalog duplicate-entry
// condition, the signal IF NOT EXISTS callers swallow.
func IsDuplicate(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindCatalog && e.Construct == "duplicate"
}

// Duplicate constructs the distinguished duplicate-entry error that
// IF-NOT-EXISTS callers treat as benign (spec.md §4.6, §8).
func Duplicate(entity, name string) *Error {
	return &Error{Kind: KindCatalog, Message: fmt.Sprintf("%s %q already exists", entity, name), Construct: "duplicate"}
}

// IsFatal reports whether err should transition an explicit transaction to
// Failed (spec.md §7): persistence and WAL failures are fatal, everything
// else leaves the transaction Active so the caller can retry or ROLLBACK.
func IsFatal(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == KindPersistence
}
