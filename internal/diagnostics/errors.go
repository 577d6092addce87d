package diagnostics

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of checker failure.
// T-codes are ordinary outcomes of checking an ill-typed program,
// I-codes indicate a broken internal invariant.
type ErrorCode string

const (
	ErrT001 ErrorCode = "T001" // type mismatch
	ErrT002 ErrorCode = "T002" // circular instantiation
	ErrT003 ErrorCode = "T003" // unbound variable
	ErrI001 ErrorCode = "I001" // double solve
	ErrI002 ErrorCode = "I002" // invariant violation
)

var errorTemplates = map[ErrorCode]string{
	ErrT001: "type mismatch: %s",
	ErrT002: "circular instantiation: %s",
	ErrT003: "unbound variable: %s",
	ErrI001: "existential solved twice: %s",
	ErrI002: "invariant violation: %s",
}

// Name returns the kind name of a code.
func (c ErrorCode) Name() string {
	switch c {
	case ErrT001:
		return "TypeMismatch"
	case ErrT002:
		return "CircularInstantiation"
	case ErrT003:
		return "UnboundVariable"
	case ErrI001:
		return "DoubleSolve"
	case ErrI002:
		return "InvariantViolation"
	}
	return string(c)
}

// ParseCode maps either a code ("T001") or a kind name ("TypeMismatch") to a code.
func ParseCode(s string) (ErrorCode, bool) {
	for code := range errorTemplates {
		if string(code) == s || code.Name() == s {
			return code, true
		}
	}
	return "", false
}

// DiagnosticError is the error value produced by the checker.
type DiagnosticError struct {
	Code ErrorCode
	// Judgment is the rendered obligation that was being discharged when
	// the failure was detected. Empty for errors raised outside a step.
	Judgment string
	Message  string
}

func NewError(code ErrorCode, format string, args ...interface{}) *DiagnosticError {
	tmpl, ok := errorTemplates[code]
	if !ok {
		tmpl = "%s"
	}
	return &DiagnosticError{Code: code, Message: fmt.Sprintf(tmpl, fmt.Sprintf(format, args...))}
}

// At attaches the offending judgment.
func (e *DiagnosticError) At(judgment string) *DiagnosticError {
	e.Judgment = judgment
	return e
}

func (e *DiagnosticError) Error() string {
	if e.Judgment == "" {
		return fmt.Sprintf("error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("error [%s]: %s\n  while checking: %s", e.Code, e.Message, e.Judgment)
}

// IsFatal reports whether the error signals a bug rather than an ill-typed input.
func (e *DiagnosticError) IsFatal() bool {
	return e.Code == ErrI001 || e.Code == ErrI002
}

// HasCode reports whether err is (or wraps) a DiagnosticError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or "" if it is not a diagnostic.
func CodeOf(err error) ErrorCode {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Invariant builds an I002 error; used as a panic value by the data
// structures underneath the machine.
func Invariant(format string, args ...interface{}) *DiagnosticError {
	return NewError(ErrI002, format, args...)
}
