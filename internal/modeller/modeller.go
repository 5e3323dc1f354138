// Package modeller turns parse trees into the semantic model. This is
// where path-shaped values get environment substitution and quote
// stripping, where relative references are resolved through the search
// directories, where numeric limits are range-checked, and where
// interface definition files are resolved to their unique ApiFile
// instances through the registry.
package modeller

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vk/mkplan/internal/config"
	"github.com/vk/mkplan/internal/defs"
	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/parser"
	"github.com/vk/mkplan/internal/parsetree"
	"github.com/vk/mkplan/internal/paths"
)

// Modeller builds semantic models from definition files. It owns no
// state of its own; everything cached lives in the registry so shared
// components and interface files are modelled once per run.
type Modeller struct {
	reg    *defs.Registry
	params *config.BuildParams
}

// New returns a modeller over the given registry and build parameters.
func New(reg *defs.Registry, params *config.BuildParams) *Modeller {
	return &Modeller{reg: reg, params: params}
}

// substitute resolves a path-valued token to its final text: quotes are
// stripped and environment variable references are replaced. Failures
// are reported at the token's position.
func substitute(tok *parsetree.Token) (string, error) {
	text, err := paths.DoSubstitution(paths.Unquote(tok.Text))
	if err != nil {
		return "", tok.SemanticErrf("%s", err)
	}
	return text, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func dirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// searchFile looks for a relative file reference under each directory in
// turn, returning the first hit or empty.
func searchFile(ref string, dirs []string) string {
	for _, dir := range dirs {
		candidate := paths.Combine(dir, ref)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// getPermissions decodes a file-permissions token ("[rwx]" and subsets).
func getPermissions(tok *parsetree.Token) model.Permissions {
	var p model.Permissions
	for i := 0; i < len(tok.Text); i++ {
		switch tok.Text[i] {
		case 'r':
			p.Read = true
		case 'w':
			p.Write = true
		case 'x':
			p.Exec = true
		}
	}
	return p
}

func boolValue(tok *parsetree.Token) bool {
	return tok.Text == "true" || tok.Text == "on"
}

// getInt decodes an integer token, applying the K suffix multiplier.
func getInt(tok *parsetree.Token) (int, error) {
	text := tok.Text
	multiplier := int64(1)
	if strings.HasSuffix(text, "K") {
		multiplier = 1024
		text = text[:len(text)-1]
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n > math.MaxInt64/multiplier {
		return 0, tok.SemanticErrf("Integer value '%s' is out of range.", tok.Text)
	}
	return int(n * multiplier), nil
}

func getPositiveInt(tok *parsetree.Token) (int, error) {
	n, err := getInt(tok)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, tok.SemanticErrf("Value must be a positive integer, not '%s'.", tok.Text)
	}
	return n, nil
}

// getWatchdogTimeout decodes a watchdogTimeout setting: a millisecond
// count with optional K suffix, or the literal never.
func getWatchdogTimeout(sec *parsetree.SimpleSection) (*model.WatchdogTimeout, error) {
	if sec.Text.Type == parsetree.Name {
		return &model.WatchdogTimeout{Never: true}, nil
	}
	ms, err := getInt(sec.Text)
	if err != nil {
		return nil, err
	}
	return &model.WatchdogTimeout{Milliseconds: ms}, nil
}

// getBundledItem decodes one bundles file/dir entry. The default
// permission is read-only; a relative source is anchored at the
// definition file's directory; a destination ending in '/' is completed
// with the source's base name.
func getBundledItem(item *parsetree.TokenList, baseDir string) (*model.FileSystemObject, error) {
	tokens := item.Tokens
	perms := model.Permissions{Read: true}
	if tokens[0].Type == parsetree.FilePermissions {
		perms = getPermissions(tokens[0])
		tokens = tokens[1:]
	}
	src, err := substitute(tokens[0])
	if err != nil {
		return nil, err
	}
	dest, err := substitute(tokens[1])
	if err != nil {
		return nil, err
	}
	if !paths.IsAbsolute(src) {
		src = paths.Combine(baseDir, src)
	}
	if paths.EndsWithSeparator(dest) {
		dest += paths.GetLastNode(src)
	}
	return &model.FileSystemObject{
		SrcPath:     src,
		DestPath:    dest,
		Permissions: perms,
		Anchor:      tokens[0],
	}, nil
}

// getRequiredFileOrDir decodes one requires file/dir entry. The source
// is a path on the target system, so it is never resolved against the
// build host's file system.
func getRequiredFileOrDir(item *parsetree.TokenList) (*model.FileSystemObject, error) {
	src, err := substitute(item.Tokens[0])
	if err != nil {
		return nil, err
	}
	if paths.EndsWithSeparator(src) {
		return nil, item.Tokens[0].SemanticErrf(
			"Required object's source path '%s' must not end with a '/'.", src)
	}
	dest, err := substitute(item.Tokens[1])
	if err != nil {
		return nil, err
	}
	if paths.EndsWithSeparator(dest) {
		dest += paths.GetLastNode(src)
	}
	return &model.FileSystemObject{
		SrcPath:     src,
		DestPath:    dest,
		Permissions: model.Permissions{Read: true},
		Anchor:      item.Tokens[0],
	}, nil
}

// getRequiredDevice decodes one requires device entry. Execute
// permission makes no sense on a device node and is rejected here, where
// the combined permission bits are known.
func getRequiredDevice(item *parsetree.TokenList) (*model.FileSystemObject, error) {
	fso, err := getBundledItem(item, "")
	if err != nil {
		return nil, err
	}
	if fso.Permissions.Exec {
		return nil, fso.Anchor.SemanticErrf(
			"Execute permission is not allowed on device '%s'.", fso.SrcPath)
	}
	return fso, nil
}

// GetApiFile resolves an interface file reference to its unique ApiFile,
// creating and registering it on first sight. The reference is searched
// relative to the referencing file's directory first, then through the
// interface search directories. The .api suffix is optional in
// definition files.
func (m *Modeller) GetApiFile(refTok *parsetree.Token, containingDir string) (*model.ApiFile, error) {
	ref, err := substitute(refTok)
	if err != nil {
		return nil, err
	}
	found := m.findApiFile(ref, containingDir)
	if found == "" {
		return nil, refTok.ReferenceErrf("Couldn't find api file '%s'.", ref)
	}
	return m.getApiFileByPath(found, refTok)
}

func (m *Modeller) findApiFile(ref, containingDir string) string {
	if !paths.HasSuffix(ref, ".api") {
		ref += ".api"
	}
	if paths.IsAbsolute(ref) {
		if fileExists(ref) {
			return ref
		}
		return ""
	}
	return searchFile(ref, append([]string{containingDir}, m.params.InterfaceDirs...))
}

// getApiFileByPath memoizes ApiFiles by canonical path and resolves
// USETYPES dependencies recursively. The entry is registered before its
// dependencies are walked, which is what makes mutually referencing
// interface files terminate.
func (m *Modeller) getApiFileByPath(path string, refTok *parsetree.Token) (*model.ApiFile, error) {
	canonical := paths.MakeAbsolute(path)
	if f := m.reg.ApiFile(canonical); f != nil {
		return f, nil
	}
	apiFile := &model.ApiFile{
		Path: canonical,
		Name: paths.RemoveSuffix(paths.GetLastNode(canonical), ".api"),
	}
	m.reg.AddApiFile(apiFile)

	deps, err := parser.ScanApiDependencies(canonical)
	if err != nil {
		return nil, err
	}
	dir := paths.GetContainingDir(canonical)
	for _, dep := range deps {
		found := m.findApiFile(dep, dir)
		if found == "" {
			return nil, refTok.ReferenceErrf(
				"Couldn't find api file '%s', referenced by a USETYPES directive in '%s'.",
				dep, canonical)
		}
		depFile, err := m.getApiFileByPath(found, refTok)
		if err != nil {
			return nil, err
		}
		depFile.IsIncluded = true
		apiFile.Includes = append(apiFile.Includes, depFile)
	}
	return apiFile, nil
}
