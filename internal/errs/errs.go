// Package errs defines the error taxonomy shared by every pipeline stage.
//
// All five kinds are fatal to the run. Errors that originate from a token
// carry the source position and render as "path:line:col: error: message";
// errors raised against model entities carry the entity names instead.
package errs

import "fmt"

// Position locates a diagnostic in a definition file. Line is 1-based,
// Column is 0-based, matching what the lexer tracks.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) IsZero() bool {
	return p.File == "" && p.Line == 0
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

func render(pos Position, msg string) string {
	if pos.IsZero() {
		return "error: " + msg
	}
	return fmt.Sprintf("%s: error: %s", pos, msg)
}

// LexicalError reports an unrecognized character or character sequence.
type LexicalError struct {
	Pos Position
	Msg string
}

func (e *LexicalError) Error() string { return render(e.Pos, e.Msg) }

// SyntaxError reports a wrong token type, a malformed delimiter, or an
// unexpected end of file.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string { return render(e.Pos, e.Msg) }

// SemanticError reports a structurally valid declaration with an invalid
// value: out-of-range integers, invalid enum literals, a device node with
// execute permission, a path with a forbidden trailing separator.
type SemanticError struct {
	Pos Position
	Msg string
}

func (e *SemanticError) Error() string { return render(e.Pos, e.Msg) }

// ReferenceError reports a dangling cross-file or cross-entity reference:
// an unresolved interface-definition dependency, a binding to an app or
// interface that does not exist, or a required client interface left
// unbound.
type ReferenceError struct {
	Pos Position
	Msg string
}

func (e *ReferenceError) Error() string { return render(e.Pos, e.Msg) }

// ConflictError reports two bundled objects claiming the same staging
// destination with differing sources or permissions.
type ConflictError struct {
	Pos Position
	Msg string
}

func (e *ConflictError) Error() string { return render(e.Pos, e.Msg) }

// Lexical builds a LexicalError at pos.
func Lexical(pos Position, format string, args ...any) error {
	return &LexicalError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Syntax builds a SyntaxError at pos.
func Syntax(pos Position, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Semantic builds a SemanticError at pos.
func Semantic(pos Position, format string, args ...any) error {
	return &SemanticError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Reference builds a ReferenceError at pos. A zero pos is allowed; binder
// diagnostics name the interface path instead of a source location.
func Reference(pos Position, format string, args ...any) error {
	return &ReferenceError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Conflict builds a ConflictError at pos.
func Conflict(pos Position, format string, args ...any) error {
	return &ConflictError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
