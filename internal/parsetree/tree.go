package parsetree

import "strings"

// Node is implemented by every parse-tree variant. Consumers traverse the
// tree by type-switching on the closed set of concrete node types below;
// Anchor returns the token that positions the node for diagnostics.
type Node interface {
	Anchor() *Token
}

// SimpleSection is the `name ':' token` form.
type SimpleSection struct {
	Name *Token
	Text *Token
}

func (s *SimpleSection) Anchor() *Token { return s.Name }

// TokenListSection is the `name ':' '{' token* '}'` form, holding a
// homogeneous run of content tokens in source order.
type TokenListSection struct {
	Name   *Token
	Tokens []*Token
}

func (s *TokenListSection) Anchor() *Token { return s.Name }

// CompoundItem is the `name '=' '(' token* ')'` form.
type CompoundItem struct {
	Name   *Token
	Tokens []*Token
}

func (s *CompoundItem) Anchor() *Token { return s.Name }

// ComplexSection is the `name ':' '{' item* '}'` form, where each item is
// produced by a caller-supplied item parser and may itself be any variant.
type ComplexSection struct {
	Name  *Token
	Items []Node
}

func (s *ComplexSection) Anchor() *Token { return s.Name }

// TokenList is an anonymous run of tokens forming one item inside a
// complex section, such as a single bundled-file entry or one command
// line of a processes run subsection.
type TokenList struct {
	First  *Token // position anchor; the item's first content token
	Tokens []*Token
}

func (s *TokenList) Anchor() *Token { return s.First }

// JoinText reconstructs the textual content of a token run, separating
// tokens by single spaces. Whitespace and comment tokens are skipped, so
// the result is equivalent to the original content modulo ignorable
// separators.
func JoinText(tokens []*Token) string {
	var parts []string
	for _, tok := range tokens {
		if tok.Type == Whitespace || tok.Type == Comment {
			continue
		}
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}

// DefFile is the root of a parsed definition file: the file path and its
// ordered top-level sections. The root is the sole owner of every token
// reachable from it.
type DefFile struct {
	Path     string
	Sections []Node
}

// CdefFile is a parsed component definition.
type CdefFile struct {
	DefFile
}

// AdefFile is a parsed application definition.
type AdefFile struct {
	DefFile
}

// SdefFile is a parsed system definition.
type SdefFile struct {
	DefFile
}
