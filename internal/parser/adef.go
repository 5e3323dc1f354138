package parser

import (
	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/parsetree"
)

// ParseAdef parses an application definition (.adef) file.
func ParseAdef(lex *lexer.Lexer) (*parsetree.AdefFile, error) {
	sections, err := parseFile(lex, parseAdefSection)
	if err != nil {
		return nil, err
	}
	return &parsetree.AdefFile{DefFile: parsetree.DefFile{Path: lex.Path(), Sections: sections}}, nil
}

func parseAdefSection(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	switch nameTok.Text {
	case "bindings":
		return parseComplexSection(lex, nameTok, parseBindingItem)
	case "bundles":
		return parseBundlesSection(lex, nameTok)
	case "components":
		return parseTokenListSection(lex, nameTok, parsetree.FilePath)
	case "cpuShare":
		return parseSimpleSection(lex, nameTok, parsetree.Integer)
	case "executables":
		return parseComplexSection(lex, nameTok, parseExecutableItem)
	case "extern":
		return parseComplexSection(lex, nameTok, parseExternItem)
	case "groups":
		return parseTokenListSection(lex, nameTok, parsetree.GroupName)
	case "processes":
		return parseComplexSection(lex, nameTok, parseProcessesSubsection)
	case "requires":
		return parseComplexSection(lex, nameTok, parseAdefRequiresSubsection)
	case "sandboxed":
		return parseSimpleSection(lex, nameTok, parsetree.Boolean)
	case "start":
		return parseStart(lex, nameTok)
	case "maxFileSystemBytes", "maxMemoryBytes", "maxMQueueBytes",
		"maxQueuedSignals", "maxThreads", "maxSecureStorageBytes":
		return parseSimpleSection(lex, nameTok, parsetree.Integer)
	case "version":
		return parseSimpleSection(lex, nameTok, parsetree.FileName)
	case "watchdogAction":
		return parseWatchdogAction(lex, nameTok)
	case "watchdogTimeout":
		return parseWatchdogTimeout(lex, nameTok)
	default:
		return nil, nameTok.SyntaxErrf("Unrecognized keyword '%s'.", nameTok.Text)
	}
}

// parseStart parses `start: auto` or `start: manual`.
func parseStart(lex *lexer.Lexer, nameTok *parsetree.Token) (parsetree.Node, error) {
	section, err := parseSimpleSection(lex, nameTok, parsetree.Name)
	if err != nil {
		return nil, err
	}
	switch section.Text.Text {
	case "auto", "manual":
		return section, nil
	}
	return nil, section.Text.SemanticErrf("'%s' is not a valid start trigger. Must be 'auto' or 'manual'.", section.Text.Text)
}

// parseExecutableItem parses one `exeName = ( componentPath... )` entry.
func parseExecutableItem(lex *lexer.Lexer) (parsetree.Node, error) {
	name, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	return parseCompoundItem(lex, name, parsetree.FilePath)
}

func parseProcessesSubsection(lex *lexer.Lexer) (parsetree.Node, error) {
	subTok, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	switch subTok.Text {
	case "run":
		return parseComplexSection(lex, subTok, parseRunItem)
	case "envVars":
		return parseComplexSection(lex, subTok, parseEnvVar)
	case "faultAction":
		return parseFaultAction(lex, subTok)
	case "priority":
		return parsePriority(lex, subTok)
	case "maxCoreDumpFileBytes", "maxFileBytes", "maxFileDescriptors", "maxLockedMemoryBytes":
		return parseSimpleSection(lex, subTok, parsetree.Integer)
	case "watchdogAction":
		return parseWatchdogAction(lex, subTok)
	case "watchdogTimeout":
		return parseWatchdogTimeout(lex, subTok)
	default:
		return nil, subTok.SyntaxErrf("Unexpected subsection name '%s' in 'processes' section.", subTok.Text)
	}
}

func parseAdefRequiresSubsection(lex *lexer.Lexer) (parsetree.Node, error) {
	subTok, err := lex.Pull(parsetree.Name)
	if err != nil {
		return nil, err
	}
	switch subTok.Text {
	case "configTree":
		return parseComplexSection(lex, subTok, parseConfigTreeItem)
	case "file", "dir":
		return parseComplexSection(lex, subTok, parseRequiredFileOrDir)
	case "device":
		return parseComplexSection(lex, subTok, parseRequiredDevice)
	default:
		return nil, subTok.SyntaxErrf("Unexpected subsection name '%s' in 'requires' section.", subTok.Text)
	}
}
