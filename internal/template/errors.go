package template

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every error this package returns, so callers can
// treat any failure as "template invalid" with errors.Is.
var ErrSyntax = errors.New("template syntax error")

// Error is the base interface for all template errors.
type Error interface {
	error
	Position() Position
}

// baseError provides common error functionality.
type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}

func (e *baseError) Is(target error) bool { return target == ErrSyntax }

// ParseError represents a malformed directive layout, such as overlapping directives.
type ParseError struct {
	baseError
}

// NewParseError creates a new parser error.
func NewParseError(pos Position, msg string) *ParseError {
	return &ParseError{baseError: baseError{pos: pos, msg: msg}}
}

// NewParseErrorf creates a new parser error with formatting.
func NewParseErrorf(pos Position, format string, args ...any) *ParseError {
	return &ParseError{baseError: baseError{pos: pos, msg: fmt.Sprintf(format, args...)}}
}

// LiteralError represents a loop list that is not valid structured data.
type LiteralError struct {
	baseError
	Literal string
	Cause   error // Underlying YAML error, if any
}

// NewLiteralError creates a new list literal error.
func NewLiteralError(pos Position, literal, msg string, cause error) *LiteralError {
	return &LiteralError{
		baseError: baseError{pos: pos, msg: msg},
		Literal:   literal,
		Cause:     cause,
	}
}

func (e *LiteralError) Error() string {
	base := fmt.Sprintf("%s %q", e.baseError.Error(), e.Literal)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *LiteralError) Unwrap() error {
	return e.Cause
}

// UnmatchedBlockError indicates a loop directive without its counterpart.
type UnmatchedBlockError struct {
	baseError
	BlockKind DirectiveKind // The kind of directive that was unmatched
}

// NewUnmatchedBlockError creates a new unmatched block error.
func NewUnmatchedBlockError(pos Position, kind DirectiveKind) *UnmatchedBlockError {
	var msg string
	switch kind {
	case DirectiveFor:
		msg = "unclosed 'for' block (missing '-- end --')"
	case DirectiveEnd:
		msg = "'end' without matching 'for'"
	default:
		msg = fmt.Sprintf("unmatched directive: %s", kind)
	}
	return &UnmatchedBlockError{
		baseError: baseError{pos: pos, msg: msg},
		BlockKind: kind,
	}
}
