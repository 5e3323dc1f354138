// Package lexer converts definition-file text into typed tokens.
//
// The lexer exposes a pull interface: IsMatch peeks whether the upcoming
// text could start a token of a given type without consuming input, and
// Pull consumes exactly one token of the expected type or fails with a
// positioned error. Whitespace and comments are real tokens so the full
// source is reconstructible; parser-level helpers skip them.
//
// Environment-variable references ($NAME, ${NAME}) are lexed verbatim into
// token text. Substitution happens downstream in the modeller.
package lexer

import (
	"fmt"
	"os"
	"strings"

	"github.com/vk/mkplan/internal/errs"
	"github.com/vk/mkplan/internal/parsetree"
)

// Lexer is a single-use scanner over one definition file.
type Lexer struct {
	path string
	src  string
	pos  int
	line int // 1-based
	col  int // 0-based
}

// New returns a lexer over src, reporting positions against path.
func New(path, src string) *Lexer {
	return &Lexer{path: path, src: src, line: 1}
}

// NewFromFile reads path and returns a lexer over its contents.
func NewFromFile(path string) (*Lexer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}
	return New(path, string(data)), nil
}

// Path returns the file path the lexer reports positions against.
func (l *Lexer) Path() string { return l.path }

func (l *Lexer) eof() bool { return l.pos >= len(l.src) }

// peek returns the byte at offset characters ahead, or 0 at end of input.
func (l *Lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

// advance consumes one character, maintaining the line/column counters. A
// newline advances the line and resets the column to zero.
func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) position() errs.Position {
	return errs.Position{File: l.path, Line: l.line, Column: l.col}
}

func isNameStartChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStartChar(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

func isFileNameChar(c byte) bool {
	return isNameChar(c) || c == '.' || c == '-' || c == '+' || c == ':' || c == ';' || c == '?' || c == '@'
}

func isFilePathChar(c byte) bool {
	return isFileNameChar(c) || c == '/'
}

// peekWord returns the run of name characters starting at the read head,
// without consuming anything.
func (l *Lexer) peekWord() string {
	i := 0
	for isNameChar(l.peek(i)) || l.peek(i) == '-' {
		i++
	}
	return l.src[l.pos : l.pos+i]
}

// IsMatch reports whether the upcoming text could lexically start a token
// of the given type. It never consumes input.
func (l *Lexer) IsMatch(t parsetree.TokenType) bool {
	c := l.peek(0)
	switch t {
	case parsetree.EndOfFile:
		return l.eof()
	case parsetree.OpenCurly:
		return c == '{'
	case parsetree.CloseCurly:
		return c == '}'
	case parsetree.OpenParenthesis:
		return c == '('
	case parsetree.CloseParenthesis:
		return c == ')'
	case parsetree.Colon:
		return c == ':'
	case parsetree.Equals:
		return c == '='
	case parsetree.Dot:
		return c == '.'
	case parsetree.Star:
		return c == '*'
	case parsetree.Arrow:
		return c == '-' && l.peek(1) == '>'
	case parsetree.Whitespace:
		return !l.eof() && isSpace(c)
	case parsetree.Comment:
		return c == '/' && (l.peek(1) == '/' || l.peek(1) == '*')
	case parsetree.FilePermissions, parsetree.ServerIpcOption, parsetree.ClientIpcOption:
		return c == '['
	case parsetree.Arg:
		return !l.eof() && !isSpace(c) && c != '{' && c != '}' && c != '(' && c != ')'
	case parsetree.FilePath, parsetree.FileName:
		return c == '"' || c == '$' || isFileNameChar(c)
	case parsetree.Name, parsetree.DottedName, parsetree.GroupName:
		return isNameStartChar(c)
	case parsetree.IpcAgent:
		return c == '<' || isNameStartChar(c)
	case parsetree.Integer, parsetree.Float, parsetree.Md5Hash:
		return isDigit(c) || (t == parsetree.Md5Hash && isHexDigit(c))
	case parsetree.SignedInteger:
		return isDigit(c) || c == '+' || c == '-'
	case parsetree.Boolean:
		switch l.peekWord() {
		case "true", "false", "on", "off":
			return true
		}
		return false
	case parsetree.String:
		return c == '"'
	}
	return false
}

// Pull consumes one token of the expected type or fails with a positioned
// error naming the expected type and the offending input.
func (l *Lexer) Pull(t parsetree.TokenType) (*parsetree.Token, error) {
	startPos := l.position()
	var text string
	var err error

	switch t {
	case parsetree.EndOfFile:
		if !l.eof() {
			return nil, l.unexpectedChar(t)
		}
	case parsetree.OpenCurly:
		text, err = l.pullChar('{', t)
	case parsetree.CloseCurly:
		text, err = l.pullChar('}', t)
	case parsetree.OpenParenthesis:
		text, err = l.pullChar('(', t)
	case parsetree.CloseParenthesis:
		text, err = l.pullChar(')', t)
	case parsetree.Colon:
		text, err = l.pullChar(':', t)
	case parsetree.Equals:
		text, err = l.pullChar('=', t)
	case parsetree.Dot:
		text, err = l.pullChar('.', t)
	case parsetree.Star:
		text, err = l.pullChar('*', t)
	case parsetree.Arrow:
		text, err = l.pullArrow()
	case parsetree.Whitespace:
		text, err = l.pullWhitespace()
	case parsetree.Comment:
		text, err = l.pullComment()
	case parsetree.FilePermissions:
		text, err = l.pullFilePermissions()
	case parsetree.ServerIpcOption:
		text, err = l.pullIpcOption(t, serverIpcOptions)
	case parsetree.ClientIpcOption:
		text, err = l.pullIpcOption(t, clientIpcOptions)
	case parsetree.Arg:
		text, err = l.pullArg()
	case parsetree.FilePath:
		text, err = l.pullPathLike(t, isFilePathChar)
	case parsetree.FileName:
		text, err = l.pullPathLike(t, isFileNameChar)
	case parsetree.Name:
		text, err = l.pullName()
	case parsetree.DottedName:
		text, err = l.pullDottedName()
	case parsetree.GroupName:
		text, err = l.pullGroupName()
	case parsetree.IpcAgent:
		text, err = l.pullIpcAgent()
	case parsetree.Integer:
		text, err = l.pullInteger()
	case parsetree.SignedInteger:
		text, err = l.pullSignedInteger()
	case parsetree.Boolean:
		text, err = l.pullBoolean()
	case parsetree.Float:
		text, err = l.pullFloat()
	case parsetree.String:
		text, err = l.pullQuoted()
	case parsetree.Md5Hash:
		text, err = l.pullMd5()
	default:
		return nil, errs.Lexical(startPos, "Internal error: cannot pull token type %s.", t)
	}
	if err != nil {
		return nil, err
	}

	return &parsetree.Token{
		Type:   t,
		Text:   text,
		File:   startPos.File,
		Line:   startPos.Line,
		Column: startPos.Column,
	}, nil
}

// unexpectedChar builds the standard mismatch diagnostic for Pull.
func (l *Lexer) unexpectedChar(expected parsetree.TokenType) error {
	if l.eof() {
		return errs.Syntax(l.position(), "Unexpected end-of-file. Expected %s.", expected)
	}
	return errs.Syntax(l.position(), "Unexpected character %q. Expected %s.", l.peek(0), expected)
}

func (l *Lexer) pullChar(want byte, t parsetree.TokenType) (string, error) {
	if l.eof() || l.peek(0) != want {
		return "", l.unexpectedChar(t)
	}
	return string(l.advance()), nil
}

func (l *Lexer) pullArrow() (string, error) {
	if l.peek(0) != '-' || l.peek(1) != '>' {
		return "", l.unexpectedChar(parsetree.Arrow)
	}
	l.advance()
	l.advance()
	return "->", nil
}

func (l *Lexer) pullWhitespace() (string, error) {
	if l.eof() || !isSpace(l.peek(0)) {
		return "", l.unexpectedChar(parsetree.Whitespace)
	}
	var b strings.Builder
	for !l.eof() && isSpace(l.peek(0)) {
		b.WriteByte(l.advance())
	}
	return b.String(), nil
}

func (l *Lexer) pullComment() (string, error) {
	start := l.position()
	if l.peek(0) != '/' {
		return "", l.unexpectedChar(parsetree.Comment)
	}
	var b strings.Builder
	b.WriteByte(l.advance())
	switch l.peek(0) {
	case '/':
		for !l.eof() && l.peek(0) != '\n' {
			b.WriteByte(l.advance())
		}
		return b.String(), nil
	case '*':
		b.WriteByte(l.advance())
		for {
			if l.eof() {
				return "", errs.Syntax(start, "Unexpected end-of-file before end of comment.")
			}
			c := l.advance()
			b.WriteByte(c)
			if c == '*' && l.peek(0) == '/' {
				b.WriteByte(l.advance())
				return b.String(), nil
			}
		}
	default:
		return "", l.unexpectedChar(parsetree.Comment)
	}
}

func (l *Lexer) pullFilePermissions() (string, error) {
	start := l.position()
	if l.peek(0) != '[' {
		return "", l.unexpectedChar(parsetree.FilePermissions)
	}
	var b strings.Builder
	b.WriteByte(l.advance())
	for {
		c := l.peek(0)
		if c == 'r' || c == 'w' || c == 'x' {
			b.WriteByte(l.advance())
			continue
		}
		break
	}
	if b.Len() == 1 {
		return "", errs.Lexical(start, "Expected one or more of 'r', 'w', or 'x' inside file permissions.")
	}
	if l.peek(0) != ']' {
		return "", errs.Lexical(l.position(), "Expected ']' at end of file permissions.")
	}
	b.WriteByte(l.advance())
	return b.String(), nil
}

var serverIpcOptions = []string{"manual-start", "async"}

var clientIpcOptions = []string{"manual-start", "types-only", "optional"}

func (l *Lexer) pullIpcOption(t parsetree.TokenType, allowed []string) (string, error) {
	start := l.position()
	if l.peek(0) != '[' {
		return "", l.unexpectedChar(t)
	}
	l.advance()
	var word strings.Builder
	for isNameChar(l.peek(0)) || l.peek(0) == '-' {
		word.WriteByte(l.advance())
	}
	if l.peek(0) != ']' {
		return "", errs.Lexical(l.position(), "Expected ']' at end of %s.", t)
	}
	l.advance()
	for _, opt := range allowed {
		if word.String() == opt {
			return "[" + opt + "]", nil
		}
	}
	return "", errs.Lexical(start, "Unrecognized %s '[%s]'. Must be one of [%s].",
		t, word.String(), strings.Join(allowed, "], ["))
}

// pullEnvVarRef consumes a '$NAME' or '${NAME}' reference verbatim.
func (l *Lexer) pullEnvVarRef() (string, error) {
	start := l.position()
	var b strings.Builder
	b.WriteByte(l.advance()) // the '$'
	if l.peek(0) == '{' {
		b.WriteByte(l.advance())
		for isNameChar(l.peek(0)) {
			b.WriteByte(l.advance())
		}
		if l.peek(0) != '}' {
			return "", errs.Lexical(start, "Unterminated environment variable reference.")
		}
		b.WriteByte(l.advance())
		if b.Len() == 3 {
			return "", errs.Lexical(start, "Empty environment variable reference.")
		}
		return b.String(), nil
	}
	for isNameChar(l.peek(0)) {
		b.WriteByte(l.advance())
	}
	if b.Len() == 1 {
		return "", errs.Lexical(start, "Missing environment variable name after '$'.")
	}
	return b.String(), nil
}

// pullPathLike consumes a file name or file path: a quoted string, or a
// run of path characters possibly containing environment-variable
// references.
func (l *Lexer) pullPathLike(t parsetree.TokenType, valid func(byte) bool) (string, error) {
	if l.peek(0) == '"' {
		return l.pullQuoted()
	}
	var b strings.Builder
	for {
		c := l.peek(0)
		switch {
		case c == '$':
			ref, err := l.pullEnvVarRef()
			if err != nil {
				return "", err
			}
			b.WriteString(ref)
		case valid(c) && !l.eof():
			b.WriteByte(l.advance())
		default:
			if b.Len() == 0 {
				return "", l.unexpectedChar(t)
			}
			return b.String(), nil
		}
	}
}

func (l *Lexer) pullArg() (string, error) {
	if l.peek(0) == '"' {
		return l.pullQuoted()
	}
	var b strings.Builder
	for {
		c := l.peek(0)
		if l.eof() || isSpace(c) || c == '{' || c == '}' || c == '(' || c == ')' {
			break
		}
		if c == '$' {
			ref, err := l.pullEnvVarRef()
			if err != nil {
				return "", err
			}
			b.WriteString(ref)
			continue
		}
		b.WriteByte(l.advance())
	}
	if b.Len() == 0 {
		return "", l.unexpectedChar(parsetree.Arg)
	}
	return b.String(), nil
}

func (l *Lexer) pullName() (string, error) {
	if !isNameStartChar(l.peek(0)) {
		return "", l.unexpectedChar(parsetree.Name)
	}
	var b strings.Builder
	for isNameChar(l.peek(0)) {
		b.WriteByte(l.advance())
	}
	return b.String(), nil
}

func (l *Lexer) pullDottedName() (string, error) {
	start := l.position()
	if !isNameStartChar(l.peek(0)) {
		return "", l.unexpectedChar(parsetree.DottedName)
	}
	var b strings.Builder
	for isNameChar(l.peek(0)) || l.peek(0) == '.' {
		b.WriteByte(l.advance())
	}
	text := b.String()
	if strings.HasSuffix(text, ".") || strings.Contains(text, "..") {
		return "", errs.Lexical(start, "'%s' is not a valid dotted name.", text)
	}
	return text, nil
}

func (l *Lexer) pullGroupName() (string, error) {
	if !isNameStartChar(l.peek(0)) {
		return "", l.unexpectedChar(parsetree.GroupName)
	}
	var b strings.Builder
	for isNameChar(l.peek(0)) || l.peek(0) == '-' {
		b.WriteByte(l.advance())
	}
	return b.String(), nil
}

// pullIpcAgent consumes either '<userName>' or an application name.
func (l *Lexer) pullIpcAgent() (string, error) {
	start := l.position()
	if l.peek(0) == '<' {
		var b strings.Builder
		b.WriteByte(l.advance())
		for isNameChar(l.peek(0)) {
			b.WriteByte(l.advance())
		}
		if b.Len() == 1 {
			return "", errs.Lexical(start, "Missing user name inside '<>'.")
		}
		if l.peek(0) != '>' {
			return "", errs.Lexical(l.position(), "Expected '>' at end of user name.")
		}
		b.WriteByte(l.advance())
		return b.String(), nil
	}
	return l.pullName()
}

func (l *Lexer) pullInteger() (string, error) {
	if !isDigit(l.peek(0)) {
		return "", l.unexpectedChar(parsetree.Integer)
	}
	var b strings.Builder
	for isDigit(l.peek(0)) {
		b.WriteByte(l.advance())
	}
	if l.peek(0) == 'K' {
		b.WriteByte(l.advance())
	}
	return b.String(), nil
}

func (l *Lexer) pullSignedInteger() (string, error) {
	var b strings.Builder
	if c := l.peek(0); c == '+' || c == '-' {
		b.WriteByte(l.advance())
	}
	digits, err := l.pullInteger()
	if err != nil {
		return "", err
	}
	b.WriteString(digits)
	return b.String(), nil
}

func (l *Lexer) pullFloat() (string, error) {
	var b strings.Builder
	if c := l.peek(0); c == '+' || c == '-' {
		b.WriteByte(l.advance())
	}
	if !isDigit(l.peek(0)) {
		return "", l.unexpectedChar(parsetree.Float)
	}
	for isDigit(l.peek(0)) {
		b.WriteByte(l.advance())
	}
	if l.peek(0) == '.' {
		b.WriteByte(l.advance())
		for isDigit(l.peek(0)) {
			b.WriteByte(l.advance())
		}
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		b.WriteByte(l.advance())
		if c := l.peek(0); c == '+' || c == '-' {
			b.WriteByte(l.advance())
		}
		if !isDigit(l.peek(0)) {
			return "", errs.Lexical(l.position(), "Missing exponent digits in floating point number.")
		}
		for isDigit(l.peek(0)) {
			b.WriteByte(l.advance())
		}
	}
	return b.String(), nil
}

func (l *Lexer) pullBoolean() (string, error) {
	start := l.position()
	word, err := l.pullName()
	if err != nil {
		return "", l.unexpectedChar(parsetree.Boolean)
	}
	switch word {
	case "true", "false", "on", "off":
		return word, nil
	}
	return "", errs.Lexical(start, "Invalid Boolean value '%s'. Must be 'true', 'false', 'on', or 'off'.", word)
}

// pullQuoted consumes a double-quoted string. The quotes are kept in the
// token text; they are stripped downstream, after environment-variable
// substitution. A newline before the closing quote is an error.
func (l *Lexer) pullQuoted() (string, error) {
	start := l.position()
	if l.peek(0) != '"' {
		return "", l.unexpectedChar(parsetree.String)
	}
	var b strings.Builder
	b.WriteByte(l.advance())
	for {
		if l.eof() {
			return "", errs.Lexical(start, "Unexpected end-of-file before end of string.")
		}
		if l.peek(0) == '\n' {
			return "", errs.Lexical(start, "Unexpected end-of-line before end of string.")
		}
		c := l.advance()
		b.WriteByte(c)
		if c == '"' {
			return b.String(), nil
		}
	}
}

func (l *Lexer) pullMd5() (string, error) {
	start := l.position()
	var b strings.Builder
	for isHexDigit(l.peek(0)) {
		b.WriteByte(l.advance())
	}
	if b.Len() != 32 {
		return "", errs.Lexical(start, "'%s' is not a valid MD5 hash. Expected exactly 32 lowercase hexadecimal digits.", b.String())
	}
	return b.String(), nil
}
