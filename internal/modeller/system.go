package modeller

import (
	"context"
	"strings"

	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/parser"
	"github.com/vk/mkplan/internal/parsetree"
	"github.com/vk/mkplan/internal/paths"
)

// GetSystem models the system defined by the .sdef file at sdefPath.
// Search-path sections are applied to the build parameters before any
// app is resolved; bindings and commands are processed after every app
// is in place, regardless of section order in the file.
func (m *Modeller) GetSystem(ctx context.Context, sdefPath string) (*model.System, error) {
	canonical := paths.MakeAbsolute(sdefPath)
	ctxlog.FromContext(ctx).Debug("Modelling system.", "sdef", canonical)

	lex, err := lexer.NewFromFile(canonical)
	if err != nil {
		return nil, err
	}
	sdef, err := parser.ParseSdef(lex)
	if err != nil {
		return nil, err
	}
	sys := model.NewSystem(sdef)

	var appSecs, bindingSecs, commandSecs []*parsetree.ComplexSection
	for _, section := range sdef.Sections {
		switch sec := section.(type) {
		case *parsetree.TokenListSection:
			dirs, err := m.substituteDirs(sec.Tokens, sys.Dir)
			if err != nil {
				return nil, err
			}
			switch sec.Name.Text {
			case "interfaceSearch":
				m.params.InterfaceDirs = append(m.params.InterfaceDirs, dirs...)
			case "appSearch":
				m.params.AppDirs = append(m.params.AppDirs, dirs...)
			case "componentSearch":
				m.params.ComponentDirs = append(m.params.ComponentDirs, dirs...)
			}
		case *parsetree.ComplexSection:
			switch sec.Name.Text {
			case "apps":
				appSecs = append(appSecs, sec)
			case "bindings":
				bindingSecs = append(bindingSecs, sec)
			case "commands":
				commandSecs = append(commandSecs, sec)
			}
		}
	}

	for _, sec := range appSecs {
		for _, item := range sec.Items {
			if err := m.addAppItem(ctx, sys, item.(*parsetree.ComplexSection)); err != nil {
				return nil, err
			}
		}
	}
	for _, sec := range bindingSecs {
		for _, item := range sec.Items {
			if err := addSystemBindingItem(sys, item.(*parsetree.TokenList)); err != nil {
				return nil, err
			}
		}
	}
	for _, sec := range commandSecs {
		for _, item := range sec.Items {
			if err := addCommandItem(sys, item.(*parsetree.TokenList)); err != nil {
				return nil, err
			}
		}
	}
	return sys, nil
}

// substituteDirs resolves a run of search-path tokens, anchoring
// relative entries at the system definition's directory.
func (m *Modeller) substituteDirs(tokens []*parsetree.Token, baseDir string) ([]string, error) {
	var dirs []string
	for _, tok := range tokens {
		text, err := substitute(tok)
		if err != nil {
			return nil, err
		}
		if !paths.IsAbsolute(text) {
			text = paths.Combine(baseDir, text)
		}
		dirs = append(dirs, text)
	}
	return dirs, nil
}

// addAppItem resolves one apps entry to its .adef file, models the app,
// and applies the entry's per-app overrides.
func (m *Modeller) addAppItem(ctx context.Context, sys *model.System, item *parsetree.ComplexSection) error {
	pathTok := item.Name
	text, err := substitute(pathTok)
	if err != nil {
		return err
	}
	adefPath := m.findAdef(text, sys.Dir)
	if adefPath == "" {
		return pathTok.ReferenceErrf("Can't find app definition file '%s'.", text)
	}
	app, err := m.GetApp(ctx, adefPath)
	if err != nil {
		return err
	}
	if _, ok := sys.Apps[app.Name]; ok {
		return pathTok.SemanticErrf("App '%s' added to the system more than once.", app.Name)
	}
	for _, override := range item.Items {
		if err := applyAppOverride(app, override); err != nil {
			return err
		}
	}
	sys.Apps[app.Name] = app
	return nil
}

func (m *Modeller) findAdef(ref, containingDir string) string {
	if !paths.HasSuffix(ref, ".adef") {
		ref += ".adef"
	}
	if paths.IsAbsolute(ref) {
		if fileExists(ref) {
			return ref
		}
		return ""
	}
	return searchFile(ref, append([]string{containingDir}, m.params.AppDirs...))
}

// applyAppOverride applies one per-app override from a system
// definition. Most overrides reuse the adef setting handler; the rest
// exist only at system scope.
func applyAppOverride(app *model.App, node parsetree.Node) error {
	switch sec := node.(type) {
	case *parsetree.SimpleSection:
		switch sec.Name.Text {
		case "faultAction":
			for _, procEnv := range app.ProcEnvs {
				procEnv.FaultAction = sec.Text.Text
			}
		case "maxPriority":
			for _, procEnv := range app.ProcEnvs {
				procEnv.Priority = sec.Text.Text
			}
		case "preloaded":
			if sec.Text.Type == parsetree.Boolean {
				app.IsPreloaded = boolValue(sec.Text)
			} else {
				app.IsPreloaded = true
				app.PreloadedMd5 = sec.Text.Text
			}
		default:
			return addAppSetting(app, sec)
		}
	case *parsetree.TokenListSection:
		if sec.Name.Text == "groups" {
			app.Groups = nil
			for _, tok := range sec.Tokens {
				app.Groups = append(app.Groups, tok.Text)
			}
		}
	}
	return nil
}

// addSystemBindingItem attaches one system-level binding. The client is
// an app's extern client interface or a non-app user; the server is an
// app's extern server interface or a non-app user. Dangling app-server
// targets are left for the binder, which validates the whole system.
func addSystemBindingItem(sys *model.System, item *parsetree.TokenList) error {
	clientToks, serverToks := splitBinding(item.Tokens)
	clientNames := nameTokens(clientToks)
	if len(clientNames) != 2 {
		return item.First.SyntaxErrf("Invalid client-side interface specification in binding.")
	}

	binding := &model.Binding{ClientIfName: clientNames[1].Text}
	if err := fillSystemServerSide(binding, serverToks, item.First); err != nil {
		return err
	}

	agent := clientNames[0].Text
	if strings.HasPrefix(agent, "<") {
		binding.ClientType = model.ExternalUser
		binding.ClientAgent = strings.Trim(agent, "<>")
		sys.UserBindings = append(sys.UserBindings, binding)
		return nil
	}

	app, ok := sys.Apps[agent]
	if !ok {
		return clientNames[0].ReferenceErrf("App '%s' is not in the system.", agent)
	}
	clientIf, err := app.FindExternClientInterface(clientNames[1])
	if err != nil {
		return err
	}
	if clientIf.Bound != nil {
		return item.First.SemanticErrf("Client-side interface '%s.%s' is already bound.",
			app.Name, clientIf.FullName())
	}
	binding.ClientType = model.ExternalApp
	binding.ClientAgent = app.Name
	clientIf.Bound = binding
	return nil
}

func fillSystemServerSide(binding *model.Binding, serverToks []*parsetree.Token, anchor *parsetree.Token) error {
	names := nameTokens(serverToks)
	if len(names) != 2 {
		return anchor.SyntaxErrf("Invalid server-side interface specification in binding.")
	}
	agent := names[0].Text
	if strings.HasPrefix(agent, "<") {
		binding.ServerType = model.ExternalUser
		binding.ServerAgent = strings.Trim(agent, "<>")
	} else {
		binding.ServerType = model.ExternalApp
		binding.ServerAgent = agent
	}
	binding.ServerIfName = names[1].Text
	return nil
}

// addCommandItem records one commands entry after checking that the
// named app is part of the system.
func addCommandItem(sys *model.System, item *parsetree.TokenList) error {
	nameTok, appTok, pathTok := item.Tokens[0], item.Tokens[1], item.Tokens[2]
	if _, ok := sys.Commands[nameTok.Text]; ok {
		return nameTok.SemanticErrf("Command '%s' defined more than once.", nameTok.Text)
	}
	if _, ok := sys.Apps[appTok.Text]; !ok {
		return appTok.ReferenceErrf("Command '%s' references app '%s', which is not in the system.",
			nameTok.Text, appTok.Text)
	}
	exePath, err := substitute(pathTok)
	if err != nil {
		return err
	}
	sys.Commands[nameTok.Text] = &model.Command{
		Name:    nameTok.Text,
		AppName: appTok.Text,
		ExePath: exePath,
	}
	return nil
}
