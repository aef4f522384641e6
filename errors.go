package permtools

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/fernandezvara/dbkit"
)

// Sentinel errors for permtools operations.
var (
	// ErrNotFound is returned when a role alias or permission does not resolve
	// to a row where exactly one is required.
	ErrNotFound = errors.New("permtools: not found")

	// ErrAmbiguousMatch is returned when more than one row matches a key that
	// is expected to be unique, such as a role alias.
	ErrAmbiguousMatch = errors.New("permtools: ambiguous match")

	// ErrConstraintViolation is returned when the store rejects a write.
	ErrConstraintViolation = errors.New("permtools: constraint violation")

	// ErrConnectivity is returned when the store cannot be reached.
	ErrConnectivity = errors.New("permtools: store unreachable")

	// ErrDatabaseError is returned for any other store failure.
	ErrDatabaseError = errors.New("permtools: database error")
)

// Error wraps a sentinel error with the operation and subject involved.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	Op         string // Operation that failed
	Role       string // Role identifier involved (if applicable)
	Permission string // Permission short name involved (if applicable)
	Cause      error  // Store error that triggered this one (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithOp records the operation that failed.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(shortName string) *Error {
	e.Permission = shortName
	return e
}

// WithCause attaches the underlying store error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAmbiguousMatch checks if an error is due to a non-unique match.
func IsAmbiguousMatch(err error) bool {
	return errors.Is(err, ErrAmbiguousMatch)
}

// IsConstraintViolation checks if the store rejected a write.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrConstraintViolation)
}

// IsConnectivity checks if the store was unreachable.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// classifyError maps a store error onto the permtools taxonomy, keeping the
// original error in the chain. Errors already classified pass through.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		if pe.Op == "" {
			pe.Op = op
		}
		return err
	}

	switch {
	case dbkit.IsNotFound(err):
		return NewError(ErrNotFound, "").WithOp(op).WithCause(err)
	case dbkit.IsDuplicate(err):
		return NewError(ErrConstraintViolation, "").WithOp(op).WithCause(err)
	case isConnectivityError(err):
		return NewError(ErrConnectivity, "").WithOp(op).WithCause(err)
	default:
		return NewError(ErrDatabaseError, "").WithOp(op).WithCause(err)
	}
}

var connectivityMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"server closed the connection",
	"bad connection",
}

// isConnectivityError reports whether err means the store could not be reached.
func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range connectivityMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func errNotFoundRole(identifier string) error {
	return NewError(ErrNotFound, fmt.Sprintf("no role matches %q", identifier)).WithRole(identifier)
}

func errAmbiguousRole(identifier string) error {
	return NewError(ErrAmbiguousMatch, fmt.Sprintf("more than one role matches %q", identifier)).WithRole(identifier)
}
