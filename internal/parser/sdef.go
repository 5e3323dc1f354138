package parser

import (
	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/parsetree"
)

// ParseSdef parses a system definition (.sdef) file.
func ParseSdef(lex *lexer.Lexer) (*parsetree.SdefFile, error) {
	sections, err := parseFile(lex, parseSdefSection)
	if err != nil {
		return nil, err
	}
	return &parsetree.SdefFile{DefFile: parsetree.DefFile{Path: lex.Path(), Sections: sections}}, nil
}

func parseSdefSection(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	switch nameTok.Text {
	case "apps":
		return parseComplexSection(lex, nameTok, parseAppItem)
	case "bindings":
		return parseComplexSection(lex, nameTok, parseBindingItem)
	case "commands":
		return parseComplexSection(lex, nameTok, parseCommandItem)
	case "interfaceSearch", "appSearch", "componentSearch":
		return parseTokenListSection(lex, nameTok, parsetree.FilePath)
	default:
		return nil, nameTok.SyntaxErrf("Unrecognized keyword '%s'.", nameTok.Text)
	}
}

// parseAppItem parses one entry of the apps section: the app's .adef path
// optionally followed by a block of per-app overrides.
func parseAppItem(lex *lexer.Lexer) (parsetree.Node, error) {
	pathTok, err := pull(lex, parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	section := &parsetree.ComplexSection{Name: pathTok}
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	if !lex.IsMatch(parsetree.OpenCurly) {
		return section, nil
	}
	if _, err := lex.Pull(parsetree.OpenCurly); err != nil {
		return nil, err
	}
	for {
		if err := skipIgnored(lex); err != nil {
			return nil, err
		}
		if lex.IsMatch(parsetree.EndOfFile) {
			return nil, prematureEOF(lex, pathTok)
		}
		if lex.IsMatch(parsetree.CloseCurly) {
			if _, err := lex.Pull(parsetree.CloseCurly); err != nil {
				return nil, err
			}
			return section, nil
		}
		item, err := parseAppOverride(lex)
		if err != nil {
			return nil, err
		}
		section.Items = append(section.Items, item)
	}
}

// parseAppOverride parses one per-app override subsection inside an apps
// entry. The accepted names are the adef settings a system integrator may
// override without editing the app.
func parseAppOverride(lex *lexer.Lexer) (parsetree.Node, error) {
	subTok, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	switch subTok.Text {
	case "cpuShare", "maxFileSystemBytes", "maxMemoryBytes", "maxMQueueBytes",
		"maxQueuedSignals", "maxThreads", "maxSecureStorageBytes":
		return parseSimpleSection(lex, subTok, parsetree.Integer)
	case "faultAction":
		return parseFaultAction(lex, subTok)
	case "groups":
		return parseTokenListSection(lex, subTok, parsetree.GroupName)
	case "maxPriority":
		return parsePriority(lex, subTok)
	case "sandboxed":
		return parseSimpleSection(lex, subTok, parsetree.Boolean)
	case "start":
		return parseStart(lex, subTok)
	case "watchdogAction":
		return parseWatchdogAction(lex, subTok)
	case "watchdogTimeout":
		return parseWatchdogTimeout(lex, subTok)
	case "preloaded":
		return parsePreloaded(lex, subTok)
	default:
		return nil, subTok.SyntaxErrf("Unexpected app override '%s'.", subTok.Text)
	}
}

// parsePreloaded parses `preloaded: true|false` or `preloaded: <md5>`,
// the hash form pinning a preloaded app to a specific build.
func parsePreloaded(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	if _, err := pull(lex, parsetree.Colon); err != nil {
		return nil, err
	}
	if err := skipIgnored(lex); err != nil {
		return nil, err
	}
	if lex.IsMatch(parsetree.Boolean) {
		tok, err := lex.Pull(parsetree.Boolean)
		if err != nil {
			return nil, err
		}
		return &parsetree.SimpleSection{Name: nameTok, Text: tok}, nil
	}
	tok, err := lex.Pull(parsetree.Md5Hash)
	if err != nil {
		return nil, err
	}
	return &parsetree.SimpleSection{Name: nameTok, Text: tok}, nil
}

// parseCommandItem parses one `commandName = appName:pathToExe` entry.
func parseCommandItem(lex *lexer.Lexer) (parsetree.Node, error) {
	name, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	if _, err := pull(lex, parsetree.Equals); err != nil {
		return nil, err
	}
	appTok, err := pull(lex, parsetree.Name)
	if err != nil {
		return nil, err
	}
	if _, err := lex.Pull(parsetree.Colon); err != nil {
		return nil, err
	}
	pathTok, err := lex.Pull(parsetree.FilePath)
	if err != nil {
		return nil, err
	}
	return &parsetree.TokenList{First: name, Tokens: []*parsetree.Token{name, appTok, pathTok}}, nil
}
