// Package apperr defines the error taxonomy shared by the scanner, the
// matching engine and the file operation executor, plus the sanitization
// applied before any error text reaches an end user.
package apperr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind classifies an error for propagation and display decisions
type Kind string

const (
	// KindFilesystem covers read/write/move/scan/create failures
	KindFilesystem Kind = "filesystem"
	// KindDatabase covers query/insert/update/delete/constraint failures
	KindDatabase Kind = "database"
	// KindValidation covers bad input rejected before any I/O
	KindValidation Kind = "validation"
	// KindPathSecurity covers destinations escaping the base directory.
	// Always fatal, never auto-corrected.
	KindPathSecurity Kind = "path_security"
	// KindUnavailable covers a missing collaborator (e.g. no filesystem access)
	KindUnavailable Kind = "unavailable"
)

// Error is a classified application error. Operation is a short label
// ("scan", "move_file", "build_path") rather than a raw OS error string,
// so messages stay safe to surface and uniform across platforms.
type Error struct {
	Kind      Kind
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error without a cause
func New(kind Kind, operation, message string) *Error {
	return &Error{Kind: kind, Operation: operation, Message: message}
}

// Wrap creates a classified error wrapping a cause
func Wrap(kind Kind, operation, message string, err error) *Error {
	return &Error{Kind: kind, Operation: operation, Message: message, Err: err}
}

// Filesystem creates a filesystem error with an operation label
func Filesystem(operation, message string, err error) *Error {
	return Wrap(KindFilesystem, operation, message, err)
}

// Database creates a persistence error with an operation label
func Database(operation string, err error) *Error {
	return Wrap(KindDatabase, operation, "persistence operation failed", err)
}

// Validation creates a validation error. No cause: validation happens
// before any I/O is attempted.
func Validation(operation, message string) *Error {
	return New(KindValidation, operation, message)
}

// PathSecurity creates a path escape error
func PathSecurity(operation, message string) *Error {
	return New(KindPathSecurity, operation, message)
}

// Unavailable reports a missing collaborator
func Unavailable(operation, message string) *Error {
	return New(KindUnavailable, operation, message)
}

// KindOf returns the Kind of err, or "" if err is not a classified error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err is a classified error of the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

var (
	// Absolute unix or windows paths, including quoted forms
	pathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?(?:[\\/][\w.~ -]+){2,}`)
	// OS error code fragments like "errno 13" or "(0x5)"
	errnoPattern = regexp.MustCompile(`(?i)(errno\s*=?\s*\d+|0x[0-9a-f]+|E[A-Z]{2,10})`)
)

var genericMessages = map[Kind]string{
	KindFilesystem:   "A file operation failed.",
	KindDatabase:     "A storage operation failed.",
	KindValidation:   "The request was invalid.",
	KindPathSecurity: "The destination was outside the allowed storage area.",
	KindUnavailable:  "File system access is not available.",
}

// UserMessage produces a display-safe message for err: filesystem paths,
// OS error codes and wrapped cause chains are stripped. When sanitization
// would leave nothing informative, a generic per-kind message is returned.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	kind := KindOf(err)
	var base string
	var appErr *Error
	if errors.As(err, &appErr) {
		base = appErr.Message
	} else {
		base = err.Error()
	}

	sanitized := pathPattern.ReplaceAllString(base, "")
	sanitized = errnoPattern.ReplaceAllString(sanitized, "")
	sanitized = strings.Join(strings.Fields(sanitized), " ")
	sanitized = strings.Trim(sanitized, " :.,")

	if len(sanitized) < 4 {
		if msg, ok := genericMessages[kind]; ok {
			return msg
		}
		return "An unexpected error occurred."
	}

	return sanitized
}
