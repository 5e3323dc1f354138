package modeller

import (
	"context"

	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/parser"
	"github.com/vk/mkplan/internal/parsetree"
	"github.com/vk/mkplan/internal/paths"
)

// GetComponent models the component defined by the .cdef file at
// cdefPath, returning the shared instance when the same file was
// modelled before. The component is registered before its sections are
// processed, so subcomponent cycles resolve to the same instance instead
// of recursing forever.
func (m *Modeller) GetComponent(ctx context.Context, cdefPath string) (*model.Component, error) {
	canonical := paths.MakeAbsolute(cdefPath)
	if comp, ok := m.reg.Component(canonical); ok {
		return comp, nil
	}
	ctxlog.FromContext(ctx).Debug("Modelling component.", "cdef", canonical)

	cdef, ok := m.reg.CdefFile(canonical)
	if !ok {
		lex, err := lexer.NewFromFile(canonical)
		if err != nil {
			return nil, err
		}
		cdef, err = parser.ParseCdef(lex)
		if err != nil {
			return nil, err
		}
		m.reg.AddCdefFile(cdef)
	}

	dir := paths.GetContainingDir(canonical)
	name := paths.GetLastNode(canonical)
	if name == "Component.cdef" {
		name = paths.GetLastNode(dir)
	} else {
		name = paths.RemoveSuffix(name, ".cdef")
	}
	comp := &model.Component{
		Name:    paths.GetIdentifierSafeName(name),
		Dir:     dir,
		DefFile: cdef,
	}
	m.reg.AddComponent(canonical, comp)

	for _, section := range cdef.Sections {
		if err := m.addCdefSection(ctx, comp, section); err != nil {
			return nil, err
		}
	}
	if comp.HasCOrCxxCode() {
		comp.Lib = "component/" + comp.Name + "/libComponent_" + comp.Name + ".so"
	}
	return comp, nil
}

func (m *Modeller) addCdefSection(ctx context.Context, comp *model.Component, section parsetree.Node) error {
	switch sec := section.(type) {
	case *parsetree.TokenListSection:
		switch sec.Name.Text {
		case "cflags":
			return appendArgs(&comp.CFlags, sec.Tokens)
		case "cxxflags":
			return appendArgs(&comp.CxxFlags, sec.Tokens)
		case "ldflags":
			return appendArgs(&comp.LdFlags, sec.Tokens)
		case "sources":
			return m.addSources(comp, sec.Tokens)
		case "javaPackage":
			for _, tok := range sec.Tokens {
				comp.JavaPackages = append(comp.JavaPackages, tok.Text)
			}
		}
	case *parsetree.ComplexSection:
		switch sec.Name.Text {
		case "bundles":
			return m.addBundledItems(sec, comp.Dir, &comp.BundledFiles, &comp.BundledDirs)
		case "provides":
			return m.addProvidesItems(comp, sec)
		case "requires":
			return m.addCdefRequiresItems(ctx, comp, sec)
		}
	}
	return nil
}

// appendArgs collects pass-through flag tokens, with environment
// substitution applied.
func appendArgs(dst *[]string, tokens []*parsetree.Token) error {
	for _, tok := range tokens {
		text, err := substitute(tok)
		if err != nil {
			return err
		}
		*dst = append(*dst, text)
	}
	return nil
}

// addSources resolves and classifies the component's source files.
// Relative paths are searched under the component's directory first,
// then through the source search directories.
func (m *Modeller) addSources(comp *model.Component, tokens []*parsetree.Token) error {
	for _, tok := range tokens {
		text, err := substitute(tok)
		if err != nil {
			return err
		}
		full := text
		if paths.IsAbsolute(full) {
			if !fileExists(full) {
				full = ""
			}
		} else {
			full = searchFile(text, append([]string{comp.Dir}, m.params.SourceDirs...))
		}
		if full == "" {
			return tok.SemanticErrf("Can't find source file '%s'.", text)
		}
		switch {
		case paths.HasSuffix(full, ".c"):
			comp.CSources = append(comp.CSources, full)
		case paths.HasSuffix(full, ".cpp"), paths.HasSuffix(full, ".cc"), paths.HasSuffix(full, ".cxx"):
			comp.CxxSources = append(comp.CxxSources, full)
		default:
			return tok.SemanticErrf("Unrecognized file name extension on source code file '%s'.", text)
		}
	}
	return nil
}

// addBundledItems processes a bundles section into bundled file and dir
// lists. Sources must exist on the build host; they are checked here so
// the diagnostic can cite the declaring line instead of failing later
// inside the build plan.
func (m *Modeller) addBundledItems(sec *parsetree.ComplexSection, baseDir string, files, dirs *[]*model.FileSystemObject) error {
	for _, item := range sec.Items {
		sub, ok := item.(*parsetree.ComplexSection)
		if !ok {
			continue
		}
		for _, entry := range sub.Items {
			fso, err := getBundledItem(entry.(*parsetree.TokenList), baseDir)
			if err != nil {
				return err
			}
			switch sub.Name.Text {
			case "file":
				if !fileExists(fso.SrcPath) {
					return fso.Anchor.SemanticErrf("Can't find file '%s'.", fso.SrcPath)
				}
				*files = append(*files, fso)
			case "dir":
				if !dirExists(fso.SrcPath) {
					return fso.Anchor.SemanticErrf("Can't find directory '%s'.", fso.SrcPath)
				}
				*dirs = append(*dirs, fso)
			}
		}
	}
	return nil
}

func (m *Modeller) addProvidesItems(comp *model.Component, sec *parsetree.ComplexSection) error {
	for _, sub := range sec.Items {
		apiSec, ok := sub.(*parsetree.ComplexSection)
		if !ok || apiSec.Name.Text != "api" {
			continue
		}
		for _, entry := range apiSec.Items {
			if err := m.addServerApi(comp, entry.(*parsetree.TokenList)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Modeller) addCdefRequiresItems(ctx context.Context, comp *model.Component, sec *parsetree.ComplexSection) error {
	for _, sub := range sec.Items {
		switch subSec := sub.(type) {
		case *parsetree.TokenListSection:
			switch subSec.Name.Text {
			case "lib":
				for _, tok := range subSec.Tokens {
					comp.RequiredLibs = append(comp.RequiredLibs, tok.Text)
				}
			case "component":
				for _, tok := range subSec.Tokens {
					subComp, err := m.getSubComponent(ctx, tok, comp.Dir)
					if err != nil {
						return err
					}
					comp.SubComponents = append(comp.SubComponents, subComp)
				}
			}
		case *parsetree.ComplexSection:
			switch subSec.Name.Text {
			case "api":
				for _, entry := range subSec.Items {
					if err := m.addClientApi(comp, entry.(*parsetree.TokenList)); err != nil {
						return err
					}
				}
			case "file":
				for _, entry := range subSec.Items {
					fso, err := getRequiredFileOrDir(entry.(*parsetree.TokenList))
					if err != nil {
						return err
					}
					comp.RequiredFiles = append(comp.RequiredFiles, fso)
				}
			case "dir":
				for _, entry := range subSec.Items {
					fso, err := getRequiredFileOrDir(entry.(*parsetree.TokenList))
					if err != nil {
						return err
					}
					comp.RequiredDirs = append(comp.RequiredDirs, fso)
				}
			case "device":
				for _, entry := range subSec.Items {
					fso, err := getRequiredDevice(entry.(*parsetree.TokenList))
					if err != nil {
						return err
					}
					comp.RequiredDevices = append(comp.RequiredDevices, fso)
				}
			}
		}
	}
	return nil
}

// splitApiItem pulls apart one api entry: an optional `alias =`, the api
// file reference, and the trailing IPC option tokens.
func splitApiItem(item *parsetree.TokenList) (alias, pathTok *parsetree.Token, options []*parsetree.Token) {
	tokens := item.Tokens
	pathTok = tokens[0]
	rest := tokens[1:]
	if len(rest) > 0 && rest[0].Type == parsetree.Equals {
		alias = tokens[0]
		pathTok = rest[1]
		rest = rest[2:]
	}
	return alias, pathTok, rest
}

func (m *Modeller) addServerApi(comp *model.Component, item *parsetree.TokenList) error {
	alias, pathTok, options := splitApiItem(item)
	apiFile, err := m.GetApiFile(pathTok, comp.Dir)
	if err != nil {
		return err
	}
	decl := &model.ApiServerInterface{ApiFile: apiFile, InternalName: apiFile.Name}
	if alias != nil {
		decl.InternalName = alias.Text
	}
	for _, opt := range options {
		switch opt.Text {
		case "[async]":
			decl.Async = true
		case "[manual-start]":
			decl.ManualStart = true
		}
	}
	comp.ServerApis = append(comp.ServerApis, decl)
	return nil
}

func (m *Modeller) addClientApi(comp *model.Component, item *parsetree.TokenList) error {
	alias, pathTok, options := splitApiItem(item)
	apiFile, err := m.GetApiFile(pathTok, comp.Dir)
	if err != nil {
		return err
	}
	decl := &model.ApiClientInterface{ApiFile: apiFile, InternalName: apiFile.Name}
	if alias != nil {
		decl.InternalName = alias.Text
	}
	for _, opt := range options {
		switch opt.Text {
		case "[optional]":
			decl.Optional = true
		case "[types-only]":
			decl.TypesOnly = true
		case "[manual-start]":
			decl.ManualStart = true
		}
	}
	comp.ClientApis = append(comp.ClientApis, decl)
	return nil
}

// getSubComponent resolves a requires component reference. The reference
// may name a directory holding a Component.cdef or the .cdef file
// itself; it is searched relative to the referencing component first,
// then through the component search directories.
func (m *Modeller) getSubComponent(ctx context.Context, tok *parsetree.Token, containingDir string) (*model.Component, error) {
	text, err := substitute(tok)
	if err != nil {
		return nil, err
	}
	cdef := m.findComponentCdef(text, containingDir)
	if cdef == "" {
		return nil, tok.ReferenceErrf("Couldn't find component '%s'.", text)
	}
	return m.GetComponent(ctx, cdef)
}

func (m *Modeller) findComponentCdef(ref, containingDir string) string {
	resolve := func(candidate string) string {
		if dirExists(candidate) {
			cdef := paths.Combine(candidate, "Component.cdef")
			if fileExists(cdef) {
				return cdef
			}
			return ""
		}
		if paths.HasSuffix(candidate, ".cdef") && fileExists(candidate) {
			return candidate
		}
		return ""
	}
	if paths.IsAbsolute(ref) {
		return resolve(ref)
	}
	for _, dir := range append([]string{containingDir}, m.params.ComponentDirs...) {
		if found := resolve(paths.Combine(dir, ref)); found != "" {
			return found
		}
	}
	return ""
}
