package parser

import (
	"strconv"
	"strings"

	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/parsetree"
)

// Domain-specific item and value parsers layered on the section
// primitives. Values drawn from a closed set known at parse time are
// validated here; everything path-shaped is resolved later by the
// modeller.

var faultActions = []string{"ignore", "restart", "restartApp", "stopApp", "reboot"}

var watchdogActions = []string{"ignore", "restart", "restartApp", "stop", "stopApp", "reboot"}

func quoteList(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "'" + w + "'"
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
}

// parseFaultAction parses `faultAction: action` and checks the action
// against the closed set.
func parseFaultAction(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	section, err := parseSimpleSection(lex, nameTok, parsetree.Name)
	if err != nil {
		return nil, err
	}
	for _, action := range faultActions {
		if section.Text.Text == action {
			return section, nil
		}
	}
	return nil, section.Text.SemanticErrf("'%s' is not a valid fault action. Must be %s.",
		section.Text.Text, quoteList(faultActions))
}

// parseWatchdogAction parses `watchdogAction: action`. The valid set is
// the fault-action set plus 'stop'.
func parseWatchdogAction(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	section, err := parseSimpleSection(lex, nameTok, parsetree.Name)
	if err != nil {
		return nil, err
	}
	for _, action := range watchdogActions {
		if section.Text.Text == action {
			return section, nil
		}
	}
	return nil, section.Text.SemanticErrf("'%s' is not a valid watchdog action. Must be %s.",
		section.Text.Text, quoteList(watchdogActions))
}

// parsePriority parses `priority: level` where level is idle, low,
// medium, high, or rtN with N in 1..32.
func parsePriority(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	section, err := parseSimpleSection(lex, nameTok, parsetree.Name)
	if err != nil {
		return nil, err
	}
	text := section.Text.Text
	switch text {
	case "idle", "low", "medium", "high":
		return section, nil
	}
	if strings.HasPrefix(text, "rt") {
		n, convErr := strconv.Atoi(text[2:])
		if convErr == nil && n >= 1 && n <= 32 {
			return section, nil
		}
	}
	return nil, section.Text.SemanticErrf("'%s' is not a valid thread priority. Must be 'idle', 'low', 'medium', 'high', or 'rtN' with N in the range 1 through 32.", text)
}

// parseWatchdogTimeout parses `watchdogTimeout: value` where value is a
// non-negative integer with optional K suffix, or the literal 'never'.
func parseWatchdogTimeout(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	if _, err := pull(lex, parsetree.Colon); err != nil {
		return nil, err
	}
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	if lex.IsMatch(parsetree.Name) {
		tok, err := lex.Pull(parsetree.Name)
		if err != nil {
			return nil, err
		}
		if tok.Text != "never" {
			return nil, tok.SemanticErrf("'%s' is not a valid watchdog timeout. Must be an integer or 'never'.", tok.Text)
		}
		return &parsetree.SimpleSection{Name: nameTok, Text: tok}, nil
	}
	tok, err := lex.Pull(parsetree.Integer)
	if err != nil {
		return nil, err
	}
	return &parsetree.SimpleSection{Name: nameTok, Text: tok}, nil
}

// parseBundledItem parses one entry of a bundles file/dir subsection: an
// optional permissions token, a source path, and a destination path.
func parseBundledItem(lex *lexer.Lexer) (parsetree.Node, error) {
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	var tokens []*parsetree.Token
	if lex.IsMatch(parsetree.FilePermissions) {
		perm, err := lex.Pull(parsetree.FilePermissions)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, perm)
	}
	src, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	dest, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, src, dest)
	return &parsetree.TokenList{First: tokens[0], Tokens: tokens}, nil
}

// parseRequiredFileOrDir parses one entry of a requires file/dir
// subsection: a source path and a destination path.
func parseRequiredFileOrDir(lex *lexer.Lexer) (parsetree.Node, error) {
	src, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	dest, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	return &parsetree.TokenList{First: src, Tokens: []*parsetree.Token{src, dest}}, nil
}

// parseRequiredDevice parses one entry of a requires device subsection:
// an optional permissions token, a device path, and a destination path.
// Execute permission is rejected later, by the modeller, where the
// combined permission bits are known.
func parseRequiredDevice(lex *lexer.Lexer) (parsetree.Node, error) {
	return parseBundledItem(lex)
}

// parseBindingItem parses one binding: a client interface specification,
// an arrow, and a server interface specification. Both sides are kept as
// raw token runs; the modeller classifies them by shape.
func parseBindingItem(lex *lexer.Lexer) (parsetree.Node, error) {
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	var tokens []*parsetree.Token
	appendSide := func() error {
		if lex.IsMatch(parsetree.Star) {
			star, err := lex.Pull(parsetree.Star)
			if err != nil {
				return err
			}
			tokens = append(tokens, star)
		} else {
			agent, err := lex.Pull(parsetree.IpcAgent)
			if err != nil {
				return err
			}
			tokens = append(tokens, agent)
		}
		for lex.IsMatch(parsetree.Dot) {
			dot, err := lex.Pull(parsetree.Dot)
			if err != nil {
				return err
			}
			name, err := lex.Pull(parsetree.Name)
			if err != nil {
				return err
			}
			tokens = append(tokens, dot, name)
		}
		return nil
	}
	if err := appendSide(); err != nil {
		return nil, err
	}
	arrow, err := pull(lex, parsetree.Arrow)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, arrow)
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	if err := appendSide(); err != nil {
		return nil, err
	}
	return &parsetree.TokenList{First: tokens[0], Tokens: tokens}, nil
}

// parseEnvVar parses one `NAME = value` entry of an envVars subsection.
func parseEnvVar(lex *lexer.Lexer) (parsetree.Node, error) {
	name, err := pull(lex, parsetree.Name)
	if err != nil {
		return nil, err
	}
	if _, err := pull(lex, parsetree.Equals); err != nil {
		return nil, err
	}
	value, err := pull(lex, parsetree.Arg)
	if err != nil {
		return nil, err
	}
	return &parsetree.TokenList{First: name, Tokens: []*parsetree.Token{name, value}}, nil
}

// parseRunItem parses one entry of a processes run subsection: either
// `procName = ( command args... )` or an anonymous `( command args... )`.
func parseRunItem(lex *lexer.Lexer) (parsetree.Node, error) {
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	if lex.IsMatch(parsetree.OpenParenthesis) {
		// Anonymous process; the process name defaults to the command.
		anchor, err := lex.Pull(parsetree.OpenParenthesis)
		if err != nil {
			return nil, err
		}
		var tokens []*parsetree.Token
		for {
			if err := skipIgnored(lex); err != nil {
				return nil, err
			}
			if lex.IsMatch(parsetree.EndOfFile) {
				return nil, prematureEOF(lex, anchor)
			}
			if lex.IsMatch(parsetree.CloseParenthesis) {
				if _, err := lex.Pull(parsetree.CloseParenthesis); err != nil {
					return nil, err
				}
				return &parsetree.TokenList{First: anchor, Tokens: tokens}, nil
			}
			tok, err := lex.Pull(parsetree.Arg)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		}
	}
	name, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	return parseCompoundItem(lex, name, parsetree.Arg)
}

// parseExternItem parses one entry of an extern section: an optional
// `alias =` followed by an exe.component.interface specification.
func parseExternItem(lex *lexer.Lexer) (parsetree.Node, error) {
	first, err := pull(lex, parsetree.Name)
	if err != nil {
		return nil, err
	}
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	tokens := []*parsetree.Token{first}
	if lex.IsMatch(parsetree.Equals) {
		eq, err := lex.Pull(parsetree.Equals)
		if err != nil {
			return nil, err
		}
		spec, err := pull(lex, parsetree.Name)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, eq, spec)
	}
	for lex.IsMatch(parsetree.Dot) {
		dot, err := lex.Pull(parsetree.Dot)
		if err != nil {
			return nil, err
		}
		name, err := lex.Pull(parsetree.Name)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, dot, name)
	}
	return &parsetree.TokenList{First: first, Tokens: tokens}, nil
}

// parseApiItem parses one entry of a provides/requires api subsection: an
// optional `alias =`, the api file path, and trailing IPC option tokens
// of the given type.
func parseApiItem(lex *lexer.Lexer, optionType parsetree.TokenType) (parsetree.Node, error) {
	first, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	tokens := []*parsetree.Token{first}
	if lex.IsMatch(parsetree.Equals) {
		eq, err := lex.Pull(parsetree.Equals)
		if err != nil {
			return nil, err
		}
		path, err := pull(lex, parsetree.FilePath)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, eq, path)
	}
	for {
		if err := skipIgnored(lex); err != nil {
			return nil, err
		}
		if !lex.IsMatch(optionType) {
			break
		}
		opt, err := lex.Pull(optionType)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, opt)
	}
	return &parsetree.TokenList{First: first, Tokens: tokens}, nil
}

// parseConfigTreeItem parses one entry of a requires configTree
// subsection: an optional permissions token and the tree name.
func parseConfigTreeItem(lex *lexer.Lexer) (parsetree.Node, error) {
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	var tokens []*parsetree.Token
	if lex.IsMatch(parsetree.FilePermissions) {
		perm, err := lex.Pull(parsetree.FilePermissions)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, perm)
	}
	name, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, name)
	return &parsetree.TokenList{First: tokens[0], Tokens: tokens}, nil
}

// parseBundlesSection parses a bundles section: file and dir subsections
// of permission-tagged path pairs.
func parseBundlesSection(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	return parseComplexSection(lex, nameTok, func(lex *lexer.Lexer) (parsetree.Node, error) {
		subTok, err := lex.Pull(parsetree.Name)
		if err != nil {
			return nil, err
		}
		switch subTok.Text {
		case "file", "dir":
			return parseComplexSection(lex, subTok, parseBundledItem)
		default:
			return nil, subTok.SyntaxErrf("Unexpected subsection name '%s' in 'bundles' section. Must be 'file' or 'dir'.", subTok.Text)
		}
	})
}
