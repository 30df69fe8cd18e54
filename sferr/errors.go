// Package sferr defines StatForge's tagged error kinds. Every kind carries a
// stable numeric code (spec §6) so a wire protocol or future C ABI can depend
// on the exact values, plus a human message and an optional source span.
//
// The formatter here merges what the teacher keeps as two near-duplicate
// functions (interpreter/errors.go's formatRuntimeError and
// parser/parse_error.go's formatParseError) into one, since StatForge has a
// single source grammar rather than statements and expressions needing
// separate callers.
package sferr

import (
	"fmt"
	"strings"

	"github.com/Drox346/statforge/token"
)

// Kind tags the category of failure. Values are stable across releases.
type Kind int

const (
	OK Kind = 0

	InvalidDsl            Kind = 100
	CellAlreadyExists     Kind = 101
	SelfReference         Kind = 102
	DependencyLoop        Kind = 103
	DependencyDoesntExist Kind = 104
	DependentFormulaCell  Kind = 105
	CellNotFound          Kind = 106
	CellTypeMismatch      Kind = 107

	EvalDivByZero Kind = 200
	EvalOverflow  Kind = 201
	EvalNaN       Kind = 202

	InternalInvalidEngineState Kind = 1000
	InvalidEngineHandle        Kind = 1001
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case InvalidDsl:
		return "InvalidDsl"
	case CellAlreadyExists:
		return "CellAlreadyExists"
	case SelfReference:
		return "SelfReference"
	case DependencyLoop:
		return "DependencyLoop"
	case DependencyDoesntExist:
		return "DependencyDoesntExist"
	case DependentFormulaCell:
		return "DependentFormulaCell"
	case CellNotFound:
		return "CellNotFound"
	case CellTypeMismatch:
		return "CellTypeMismatch"
	case EvalDivByZero:
		return "EvalDivByZero"
	case EvalOverflow:
		return "EvalOverflow"
	case EvalNaN:
		return "EvalNaN"
	case InternalInvalidEngineState:
		return "InternalInvalidEngineState"
	case InvalidEngineHandle:
		return "InvalidEngineHandle"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type returned by every StatForge operation that
// can fail. Span is nil for graph-level errors that aren't tied to a source
// position (spec §7).
type Error struct {
	Kind    Kind
	Message string
	Span    *token.Span
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Code returns the stable numeric error code (spec §6).
func (e *Error) Code() int {
	return int(e.Kind)
}

// New builds a span-less error, used for graph/compiler failures that have
// no associated source position.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewAt builds an error carrying a source span, used for tokenizer/parser
// failures.
func NewAt(kind Kind, span token.Span, format string, args ...any) *Error {
	s := span
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Span: &s}
}

// Is reports whether target is an *Error with the same Kind, so callers can
// use errors.Is(err, sferr.New(sferr.CellNotFound, "")) style checks, or more
// commonly compare against a Kind via HasKind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// HasKind reports whether err is a *sferr.Error of the given kind.
func HasKind(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}

// Format renders a caret diagram under the offending source line, the same
// shape the teacher's two formatters produce: "kind: message", then
// "at <file>:<line>:<col>", then the source line, then a caret line.
func (e *Error) Format(source, filename string) string {
	if e.Span == nil || source == "" {
		return e.Error()
	}
	lines := strings.Split(source, "\n")
	line, col := e.Span.Line, e.Span.Column
	if line < 1 || line > len(lines) {
		return e.Error()
	}
	lineText := strings.TrimRight(lines[line-1], "\r")
	if col < 1 {
		col = 1
	}
	if col > len(lineText)+1 {
		col = len(lineText) + 1
	}
	caret := strings.Repeat(" ", col-1) + "^"
	location := fmt.Sprintf("%d:%d", line, e.Span.Column)
	if filename != "" {
		location = fmt.Sprintf("%s:%s", filename, location)
	}
	return fmt.Sprintf(
		"%s: %s\n  at %s\n  %d | %s\n    | %s",
		e.Kind, e.Message, location, line, lineText, caret,
	)
}
