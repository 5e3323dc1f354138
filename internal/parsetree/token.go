package parsetree

import (
	"github.com/vk/mkplan/internal/errs"
)

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	EndOfFile TokenType = iota
	OpenCurly
	CloseCurly
	OpenParenthesis
	CloseParenthesis
	Colon
	Equals
	Dot
	Star
	Arrow
	Whitespace
	Comment
	FilePermissions
	ServerIpcOption
	ClientIpcOption
	Arg
	FilePath
	FileName
	Name
	DottedName
	GroupName
	IpcAgent
	Integer
	SignedInteger
	Boolean
	Float
	String
	Md5Hash
)

var tokenTypeNames = map[TokenType]string{
	EndOfFile:        "end-of-file",
	OpenCurly:        "'{'",
	CloseCurly:       "'}'",
	OpenParenthesis:  "'('",
	CloseParenthesis: "')'",
	Colon:            "':'",
	Equals:           "'='",
	Dot:              "'.'",
	Star:             "'*'",
	Arrow:            "'->'",
	Whitespace:       "whitespace",
	Comment:          "comment",
	FilePermissions:  "file permissions",
	ServerIpcOption:  "server-side IPC option",
	ClientIpcOption:  "client-side IPC option",
	Arg:              "argument",
	FilePath:         "file path",
	FileName:         "file name",
	Name:             "name",
	DottedName:       "dotted name",
	GroupName:        "group name",
	IpcAgent:         "IPC agent name",
	Integer:          "integer",
	SignedInteger:    "signed integer",
	Boolean:          "Boolean value",
	Float:            "floating point number",
	String:           "string",
	Md5Hash:          "MD5 hash",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "unknown token type"
}

// Token is one lexical unit of a definition file. Tokens are immutable
// once produced and are owned by the parse tree that contains them; they
// are retained for the whole run so diagnostics raised during modelling
// and binding can cite the original source position.
type Token struct {
	Type   TokenType
	Text   string
	File   string
	Line   int // 1-based
	Column int // 0-based
}

// Pos returns the token's source position for diagnostics.
func (t *Token) Pos() errs.Position {
	return errs.Position{File: t.File, Line: t.Line, Column: t.Column}
}

// SyntaxErrf raises a SyntaxError at this token's position.
func (t *Token) SyntaxErrf(format string, args ...any) error {
	return errs.Syntax(t.Pos(), format, args...)
}

// SemanticErrf raises a SemanticError at this token's position.
func (t *Token) SemanticErrf(format string, args ...any) error {
	return errs.Semantic(t.Pos(), format, args...)
}

// ReferenceErrf raises a ReferenceError at this token's position.
func (t *Token) ReferenceErrf(format string, args ...any) error {
	return errs.Reference(t.Pos(), format, args...)
}
