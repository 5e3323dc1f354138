package parser

import (
	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/parsetree"
)

// ParseCdef parses a component definition (.cdef) file.
func ParseCdef(lex *lexer.Lexer) (*parsetree.CdefFile, error) {
	sections, err := parseFile(lex, parseCdefSection)
	if err != nil {
		return nil, err
	}
	return &parsetree.CdefFile{DefFile: parsetree.DefFile{Path: lex.Path(), Sections: sections}}, nil
}

func parseCdefSection(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	switch nameTok.Text {
	case "cflags", "cxxflags", "ldflags":
		return parseTokenListSection(lex, nameTok, parsetree.Arg)
	case "sources":
		return parseTokenListSection(lex, nameTok, parsetree.FilePath)
	case "javaPackage":
		return parseTokenListSection(lex, nameTok, parsetree.DottedName)
	case "bundles":
		return parseBundlesSection(lex, nameTok)
	case "provides":
		return parseComplexSection(lex, nameTok, parseProvidesSubsection)
	case "requires":
		return parseComplexSection(lex, nameTok, parseCdefRequiresSubsection)
	default:
		return nil, nameTok.SyntaxErrf("Unrecognized keyword '%s'.", nameTok.Text)
	}
}

func parseProvidesSubsection(lex *lexer.Lexer) (parsetree.Node, error) {
	subTok, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	switch subTok.Text {
	case "api":
		return parseComplexSection(lex, subTok, func(lex *lexer.Lexer) (parsetree.Node, error) {
			return parseApiItem(lex, parsetree.ServerIpcOption)
		})
	default:
		return nil, subTok.SyntaxErrf("Unexpected subsection name '%s' in 'provides' section.", subTok.Text)
	}
}

func parseCdefRequiresSubsection(lex *lexer.Lexer) (parsetree.Node, error) {
	subTok, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	switch subTok.Text {
	case "api":
		return parseComplexSection(lex, subTok, func(lex *lexer.Lexer) (parsetree.Node, error) {
			return parseApiItem(lex, parsetree.ClientIpcOption)
		})
	case "file", "dir":
		return parseComplexSection(lex, subTok, parseRequiredFileOrDir)
	case "device":
		return parseComplexSection(lex, subTok, parseRequiredDevice)
	case "lib":
		return parseTokenListSection(lex, subTok, parsetree.FileName)
	case "component":
		return parseTokenListSection(lex, subTok, parsetree.FilePath)
	default:
		return nil, subTok.SyntaxErrf("Unexpected subsection name '%s' in 'requires' section.", subTok.Text)
	}
}
