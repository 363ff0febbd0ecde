// internal/fault/fault.go
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a driver failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUnknownVariable
	KindUnsupportedType
	KindTypeCoercion
	KindValueOutOfRange
	KindConnectionFailed
	KindNotConnected
	KindTimeout
	KindWriteFailed
	KindReadFailed
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindUnknownVariable:  "unknown variable",
	KindUnsupportedType:  "unsupported type",
	KindTypeCoercion:     "type coercion",
	KindValueOutOfRange:  "value out of range",
	KindConnectionFailed: "connection failed",
	KindNotConnected:     "not connected",
	KindTimeout:          "timeout",
	KindWriteFailed:      "write failed",
	KindReadFailed:       "read failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Retryable reports whether a caller may reasonably retry after this kind.
// Caller and configuration bugs are not retryable.
func (k Kind) Retryable() bool {
	switch k {
	case KindConnectionFailed, KindNotConnected, KindTimeout, KindWriteFailed, KindReadFailed:
		return true
	}
	return false
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrUnknownVariable  = &Error{Kind: KindUnknownVariable}
	ErrUnsupportedType  = &Error{Kind: KindUnsupportedType}
	ErrTypeCoercion     = &Error{Kind: KindTypeCoercion}
	ErrValueOutOfRange  = &Error{Kind: KindValueOutOfRange}
	ErrConnectionFailed = &Error{Kind: KindConnectionFailed}
	ErrNotConnected     = &Error{Kind: KindNotConnected}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrWriteFailed      = &Error{Kind: KindWriteFailed}
	ErrReadFailed       = &Error{Kind: KindReadFailed}
)

// Error is the single error type returned by the driver.
// Op and Variable carry enough context to decide between retry, reconnect and abort.
type Error struct {
	Kind     Kind
	Op       string // "connect", "read", "write", ...
	Variable string // empty when not variable-specific
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Variable != "" {
		fmt.Fprintf(&b, " (variable %q)", e.Variable)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by kind so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Variable == "" && t.Err == nil
}

// New builds an *Error.
func New(kind Kind, op, variable string, err error) *Error {
	return &Error{Kind: kind, Op: op, Variable: variable, Err: err}
}

// Newf builds an *Error with a formatted cause.
func Newf(kind Kind, op, variable, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Variable: variable, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
