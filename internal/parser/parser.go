// Package parser builds parse trees from definition-file text.
//
// The grammar has four recurring section forms, each handled by one
// reusable primitive: simple sections (`name: value`), token-list
// sections (`name: { a b c }`), compound items (`name = ( ... )`), and
// complex sections (`name: { item* }`) whose items are produced by a
// caller-supplied item parser. Per-file-kind drivers (cdef.go, adef.go,
// sdef.go) layer section dispatchers on top of these primitives.
//
// The parser validates local syntax only. Values whose space is a small
// closed set known at parse time (fault actions, priorities, watchdog
// settings) are checked here; everything that needs cross-file knowledge
// is left to the modeller.
package parser

import (
	"github.com/vk/mkplan/internal/errs"
	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/parsetree"
)

// sectionParser parses one top-level section whose name token has already
// been pulled by the file driver.
type sectionParser func(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error)

// itemParser parses one item inside a complex section.
type itemParser func(lex *lexer.Lexer) (parsetree.Node, error)

// skipIgnored consumes whitespace and comment tokens. They are real
// tokens at the lexer level but carry no grammar.
func skipIgnored(lex *lexer.Lexer) error {
	for {
		switch {
		case lex.IsMatch(parsetree.Whitespace):
			if _, err := lex.Pull(parsetree.Whitespace); err != nil {
				return err
			}
		case lex.IsMatch(parsetree.Comment):
			if _, err := lex.Pull(parsetree.Comment); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// pull skips ignorable tokens and pulls one token of the wanted type.
func pull(lex *lexer.Lexer, t parsetree.TokenType) (*parsetree.Token, error) {
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	return lex.Pull(t)
}

// prematureEOF builds the diagnostic for an end-of-file inside a section.
func prematureEOF(lex *lexer.Lexer, sectionTok *parsetree.Token) error {
	return errs.Syntax(
		errs.Position{File: sectionTok.File, Line: sectionTok.Line, Column: sectionTok.Column},
		"Unexpected end-of-file before end of '%s' section starting at line %d character %d.",
		sectionTok.Text, sectionTok.Line, sectionTok.Column)
}

// parseSimpleSection parses `name ':' token` where the section name token
// has already been pulled.
func parseSimpleSection(lex *lexer.Lexer, nameTok *parsetree.Token, contentType parsetree.TokenType) (*parsetree.SimpleSection, error) {
	if _, err := pull(lex, parsetree.Colon); err != nil {
		return nil, err
	}
	text, err := pull(lex, contentType)
	if err != nil {
		return nil, err
	}
	return &parsetree.SimpleSection{Name: nameTok, Text: text}, nil
}

// parseTokenListSection parses `name ':' '{' token* '}'` with homogeneous
// content tokens.
func parseTokenListSection(lex *lexer.Lexer, nameTok *parsetree.Token, contentType parsetree.TokenType) (*parsetree.TokenListSection, error) {
	if _, err := pull(lex, parsetree.Colon); err != nil {
		return nil, err
	}
	if _, err := pull(lex, parsetree.OpenCurly); err != nil {
		return nil, err
	}
	section := &parsetree.TokenListSection{Name: nameTok}
	for {
		if err := skipIgnored(lex); err != nil {
			return nil, err
		}
		if lex.IsMatch(parsetree.EndOfFile) {
			return nil, prematureEOF(lex, nameTok)
		}
		if lex.IsMatch(parsetree.CloseCurly) {
			if _, err := lex.Pull(parsetree.CloseCurly); err != nil {
				return nil, err
			}
			return section, nil
		}
		tok, err := lex.Pull(contentType)
		if err != nil {
			return nil, err
		}
		section.Tokens = append(section.Tokens, tok)
	}
}

// parseCompoundContent parses `'(' token* ')'` and returns the content
// tokens. nameTok anchors the premature-EOF diagnostic.
func parseCompoundContent(lex *lexer.Lexer, nameTok *parsetree.Token, contentType parsetree.TokenType) ([]*parsetree.Token, error) {
	if _, err := pull(lex, parsetree.OpenParenthesis); err != nil {
		return nil, err
	}
	var tokens []*parsetree.Token
	for {
		if err := skipIgnored(lex); err != nil {
			return nil, err
		}
		if lex.IsMatch(parsetree.EndOfFile) {
			return nil, prematureEOF(lex, nameTok)
		}
		if lex.IsMatch(parsetree.CloseParenthesis) {
			if _, err := lex.Pull(parsetree.CloseParenthesis); err != nil {
				return nil, err
			}
			return tokens, nil
		}
		tok, err := lex.Pull(contentType)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// parseCompoundItem parses `name '=' '(' token* ')'` where the item name
// token has already been pulled.
func parseCompoundItem(lex *lexer.Lexer, nameTok *parsetree.Token, contentType parsetree.TokenType) (*parsetree.CompoundItem, error) {
	if _, err := pull(lex, parsetree.Equals); err != nil {
		return nil, err
	}
	tokens, err := parseCompoundContent(lex, nameTok, contentType)
	if err != nil {
		return nil, err
	}
	return &parsetree.CompoundItem{Name: nameTok, Tokens: tokens}, nil
}

// parseComplexSection parses `name ':' '{' item* '}'`, delegating each
// item to parseItem.
func parseComplexSection(lex *lexer.Lexer, nameTok *parsetree.Token, parseItem itemParser) (*parsetree.ComplexSection, error) {
	if _, err := pull(lex, parsetree.Colon); err != nil {
		return nil, err
	}
	if _, err := pull(lex, parsetree.OpenCurly); err != nil {
		return nil, err
	}
	section := &parsetree.ComplexSection{Name: nameTok}
	for {
		if err := skipIgnored(lex); err != nil {
			return nil, err
		}
		if lex.IsMatch(parsetree.EndOfFile) {
			return nil, prematureEOF(lex, nameTok)
		}
		if lex.IsMatch(parsetree.CloseCurly) {
			if _, err := lex.Pull(parsetree.CloseCurly); err != nil {
				return nil, err
			}
			return section, nil
		}
		item, err := parseItem(lex)
		if err != nil {
			return nil, err
		}
		section.Items = append(section.Items, item)
	}
}

// parseFile is the file-level driver loop. Whitespace and comments
// between sections are consumed and discarded; a name token starts a new
// section via the per-file-kind dispatcher; anything else is an error.
func parseFile(lex *lexer.Lexer, parseSection sectionParser) ([]parsetree.Node, error) {
	var sections []parsetree.Node
	for {
		if err := skipIgnored(lex); err != nil {
			return nil, err
		}
		if lex.IsMatch(parsetree.EndOfFile) {
			return sections, nil
		}
		nameTok, err := lex.Pull(parsetree.Name)
		if err != nil {
			return nil, err
		}
		section, err := parseSection(lex, nameTok)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
}
