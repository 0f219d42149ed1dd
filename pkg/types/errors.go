// Package types defines the error values surfaced by the plotting pipeline.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind discriminates the stage a PlotError came from.
type ErrorKind string

// Error kinds.
const (
	KindToken  ErrorKind = "TokenError"
	KindParse  ErrorKind = "ParseError"
	KindRange  ErrorKind = "RangeError"
	KindDomain ErrorKind = "DomainError"
)

// ParseReason narrows a ParseError.
type ParseReason string

// Parse error reasons.
const (
	ReasonUnexpectedToken   ParseReason = "UnexpectedToken"
	ReasonUnbalancedParens  ParseReason = "UnbalancedParens"
	ReasonUnknownIdentifier ParseReason = "UnknownIdentifier"
	ReasonWrongArity        ParseReason = "WrongArity"
	ReasonTrailingInput     ParseReason = "TrailingInput"
	ReasonEmptyExpression   ParseReason = "EmptyExpression"
)

// NoPos marks an error that has no location in the expression.
const NoPos = -1

// PlotError is the single error type returned by the pipeline.
type PlotError struct {
	Kind    ErrorKind
	Reason  ParseReason // set for KindParse only
	Message string
	Pos     int    // character offset into the expression, or NoPos
	Char    string // offending character for KindToken
}

// Error implements the error interface.
func (e *PlotError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Kind, e.Pos, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HasPos reports whether the error points into the expression.
func (e *PlotError) HasPos() bool {
	return e.Pos >= 0
}

// Caret returns expr followed by a line with a caret under the error
// position. It returns expr unchanged when the error has no position.
func (e *PlotError) Caret(expr string) string {
	if !e.HasPos() {
		return expr
	}
	pos := e.Pos
	if n := len([]rune(expr)); pos > n {
		pos = n
	}
	return expr + "\n" + strings.Repeat(" ", pos) + "^"
}

// Is matches another PlotError by kind and, when set on the target, reason.
func (e *PlotError) Is(target error) bool {
	t, ok := target.(*PlotError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Sentinels for errors.Is checks.
var (
	ErrToken  = &PlotError{Kind: KindToken}
	ErrParse  = &PlotError{Kind: KindParse}
	ErrRange  = &PlotError{Kind: KindRange}
	ErrDomain = &PlotError{Kind: KindDomain}
)

// AsPlotError unwraps err into a PlotError.
func AsPlotError(err error) (*PlotError, bool) {
	var pe *PlotError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not a PlotError.
func KindOf(err error) ErrorKind {
	if pe, ok := AsPlotError(err); ok {
		return pe.Kind
	}
	return ""
}

// Common error constructors.

// NewTokenError creates a TokenError for an unrecognized character.
func NewTokenError(pos int, ch string) *PlotError {
	return &PlotError{
		Kind:    KindToken,
		Message: fmt.Sprintf("unexpected character %q", ch),
		Pos:     pos,
		Char:    ch,
	}
}

// NewByteError creates a TokenError for a byte that is not valid UTF-8.
// Char holds the byte in \xNN form.
func NewByteError(pos int, b byte) *PlotError {
	return &PlotError{
		Kind:    KindToken,
		Message: fmt.Sprintf("invalid UTF-8 byte 0x%02x", b),
		Pos:     pos,
		Char:    fmt.Sprintf("\\x%02x", b),
	}
}

// NewLengthError creates a TokenError for an expression over the length
// limit. The whole expression is at fault, so it has no position.
func NewLengthError(limit int) *PlotError {
	return &PlotError{
		Kind:    KindToken,
		Message: fmt.Sprintf("expression exceeds maximum length of %d characters", limit),
		Pos:     NoPos,
	}
}

// NewParseError creates a ParseError.
func NewParseError(reason ParseReason, pos int, msg string) *PlotError {
	return &PlotError{Kind: KindParse, Reason: reason, Message: msg, Pos: pos}
}

// NewRangeError creates a RangeError.
func NewRangeError(msg string) *PlotError {
	return &PlotError{Kind: KindRange, Message: msg, Pos: NoPos}
}

// NewDomainError creates a DomainError.
func NewDomainError(reason string) *PlotError {
	return &PlotError{Kind: KindDomain, Message: reason, Pos: NoPos}
}
