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

// GetApp models the application defined by the .adef file at adefPath.
// Settings and structure are processed first; extern declarations and
// bindings come last because they refer to the executables built by the
// executables section, regardless of section order in the file.
func (m *Modeller) GetApp(ctx context.Context, adefPath string) (*model.App, error) {
	canonical := paths.MakeAbsolute(adefPath)
	ctxlog.FromContext(ctx).Debug("Modelling app.", "adef", canonical)

	lex, err := lexer.NewFromFile(canonical)
	if err != nil {
		return nil, err
	}
	adef, err := parser.ParseAdef(lex)
	if err != nil {
		return nil, err
	}
	app := model.NewApp(adef)

	var externSecs, bindingSecs []*parsetree.ComplexSection
	for _, section := range adef.Sections {
		if sec, ok := section.(*parsetree.ComplexSection); ok {
			switch sec.Name.Text {
			case "extern":
				externSecs = append(externSecs, sec)
				continue
			case "bindings":
				bindingSecs = append(bindingSecs, sec)
				continue
			}
		}
		if err := m.addAdefSection(ctx, app, section); err != nil {
			return nil, err
		}
	}
	for _, sec := range externSecs {
		for _, item := range sec.Items {
			if err := addExternItem(app, item.(*parsetree.TokenList)); err != nil {
				return nil, err
			}
		}
	}
	for _, sec := range bindingSecs {
		for _, item := range sec.Items {
			if err := addAppBindingItem(app, item.(*parsetree.TokenList)); err != nil {
				return nil, err
			}
		}
	}
	return app, nil
}

func (m *Modeller) addAdefSection(ctx context.Context, app *model.App, section parsetree.Node) error {
	switch sec := section.(type) {
	case *parsetree.SimpleSection:
		return addAppSetting(app, sec)
	case *parsetree.TokenListSection:
		switch sec.Name.Text {
		case "components":
			for _, tok := range sec.Tokens {
				if _, err := m.getAppComponent(ctx, app, tok); err != nil {
					return err
				}
			}
		case "groups":
			for _, tok := range sec.Tokens {
				app.Groups = append(app.Groups, tok.Text)
			}
		}
	case *parsetree.ComplexSection:
		switch sec.Name.Text {
		case "bundles":
			return m.addBundledItems(sec, app.Dir, &app.BundledFiles, &app.BundledDirs)
		case "executables":
			for _, item := range sec.Items {
				if err := m.addExecutable(ctx, app, item.(*parsetree.CompoundItem)); err != nil {
					return err
				}
			}
		case "processes":
			return addProcessesSection(app, sec)
		case "requires":
			return addAdefRequiresItems(app, sec)
		}
	}
	return nil
}

// addAppSetting applies one simple-valued app setting. The same settings
// are accepted as per-app overrides in a system definition, so this is
// shared with the system modeller.
func addAppSetting(app *model.App, sec *parsetree.SimpleSection) error {
	switch sec.Name.Text {
	case "version":
		app.Version = sec.Text.Text
	case "sandboxed":
		app.Sandboxed = boolValue(sec.Text)
	case "start":
		if sec.Text.Text == "manual" {
			app.Start = model.StartManual
		} else {
			app.Start = model.StartAuto
		}
	case "cpuShare":
		n, err := getPositiveInt(sec.Text)
		if err != nil {
			return err
		}
		app.CpuShare = n
	case "maxFileSystemBytes":
		return setIntSetting(&app.MaxFileSystemBytes, sec.Text)
	case "maxMemoryBytes":
		return setIntSetting(&app.MaxMemoryBytes, sec.Text)
	case "maxMQueueBytes":
		return setIntSetting(&app.MaxMQueueBytes, sec.Text)
	case "maxQueuedSignals":
		return setIntSetting(&app.MaxQueuedSignals, sec.Text)
	case "maxThreads":
		n, err := getPositiveInt(sec.Text)
		if err != nil {
			return err
		}
		app.MaxThreads = n
	case "maxSecureStorageBytes":
		return setIntSetting(&app.MaxSecureStorageBytes, sec.Text)
	case "watchdogAction":
		app.WatchdogAction = sec.Text.Text
	case "watchdogTimeout":
		t, err := getWatchdogTimeout(sec)
		if err != nil {
			return err
		}
		app.WatchdogTimeout = t
	}
	return nil
}

func setIntSetting(dst *int, tok *parsetree.Token) error {
	n, err := getInt(tok)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// getAppComponent resolves a component reference from an app definition
// and records the component in the app's component list once.
func (m *Modeller) getAppComponent(ctx context.Context, app *model.App, tok *parsetree.Token) (*model.Component, error) {
	text, err := substitute(tok)
	if err != nil {
		return nil, err
	}
	cdef := m.findComponentCdef(text, app.Dir)
	if cdef == "" {
		return nil, tok.ReferenceErrf("Couldn't find component '%s'.", text)
	}
	comp, err := m.GetComponent(ctx, cdef)
	if err != nil {
		return nil, err
	}
	for _, existing := range app.Components {
		if existing == comp {
			return comp, nil
		}
	}
	app.Components = append(app.Components, comp)
	return comp, nil
}

// addExecutable builds one executable and its component instances. Each
// instance gets its own copies of the component's interface instances,
// since bindings attach per instance, not per component.
func (m *Modeller) addExecutable(ctx context.Context, app *model.App, item *parsetree.CompoundItem) error {
	if _, ok := app.Executables[item.Name.Text]; ok {
		return item.Name.SemanticErrf("Executable '%s' already defined.", item.Name.Text)
	}
	exe := &model.Executable{Name: item.Name.Text, App: app}
	for _, tok := range item.Tokens {
		comp, err := m.getAppComponent(ctx, app, tok)
		if err != nil {
			return err
		}
		ci := &model.ComponentInstance{Component: comp, Exe: exe}
		for _, decl := range comp.ClientApis {
			ci.ClientIfs = append(ci.ClientIfs, &model.ClientInterfaceInstance{
				ComponentInstance: ci,
				Decl:              decl,
				Name:              decl.InternalName,
			})
		}
		for _, decl := range comp.ServerApis {
			ci.ServerIfs = append(ci.ServerIfs, &model.ServerInterfaceInstance{
				ComponentInstance: ci,
				Decl:              decl,
				Name:              decl.InternalName,
			})
		}
		exe.ComponentInstances = append(exe.ComponentInstances, ci)
	}
	app.Executables[exe.Name] = exe
	return nil
}

// addProcessesSection builds one process environment. Every processes
// section declares its own environment, so two sections with different
// limits produce two ProcEnvs.
func addProcessesSection(app *model.App, sec *parsetree.ComplexSection) error {
	procEnv := &model.ProcEnv{EnvVars: map[string]string{}}
	for _, item := range sec.Items {
		switch sub := item.(type) {
		case *parsetree.SimpleSection:
			switch sub.Name.Text {
			case "faultAction":
				procEnv.FaultAction = sub.Text.Text
			case "priority":
				procEnv.Priority = sub.Text.Text
			case "maxCoreDumpFileBytes":
				if err := setIntSetting(&procEnv.MaxCoreDumpFileBytes, sub.Text); err != nil {
					return err
				}
			case "maxFileBytes":
				if err := setIntSetting(&procEnv.MaxFileBytes, sub.Text); err != nil {
					return err
				}
			case "maxFileDescriptors":
				if err := setIntSetting(&procEnv.MaxFileDescriptors, sub.Text); err != nil {
					return err
				}
			case "maxLockedMemoryBytes":
				if err := setIntSetting(&procEnv.MaxLockedMemoryBytes, sub.Text); err != nil {
					return err
				}
			case "watchdogAction":
				procEnv.WatchdogAction = sub.Text.Text
			case "watchdogTimeout":
				t, err := getWatchdogTimeout(sub)
				if err != nil {
					return err
				}
				procEnv.WatchdogTimeout = t
			}
		case *parsetree.ComplexSection:
			switch sub.Name.Text {
			case "run":
				for _, runItem := range sub.Items {
					proc, err := getProcess(runItem)
					if err != nil {
						return err
					}
					procEnv.Processes = append(procEnv.Processes, proc)
				}
			case "envVars":
				for _, entry := range sub.Items {
					pair := entry.(*parsetree.TokenList)
					value, err := substitute(pair.Tokens[1])
					if err != nil {
						return err
					}
					procEnv.EnvVars[pair.Tokens[0].Text] = value
				}
			}
		}
	}
	app.ProcEnvs = append(app.ProcEnvs, procEnv)
	return nil
}

// getProcess decodes one run entry. An anonymous entry takes its process
// name from the command's base name.
func getProcess(node parsetree.Node) (*model.Process, error) {
	var name string
	var tokens []*parsetree.Token
	switch item := node.(type) {
	case *parsetree.CompoundItem:
		name = item.Name.Text
		tokens = item.Tokens
	case *parsetree.TokenList:
		tokens = item.Tokens
	}
	if len(tokens) == 0 {
		return nil, node.Anchor().SyntaxErrf("Empty process specification.")
	}
	args := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		text, err := substitute(tok)
		if err != nil {
			return nil, err
		}
		args = append(args, text)
	}
	if name == "" {
		name = paths.GetLastNode(args[0])
	}
	return &model.Process{Name: name, Exe: args[0], Args: args[1:]}, nil
}

func addAdefRequiresItems(app *model.App, sec *parsetree.ComplexSection) error {
	for _, sub := range sec.Items {
		subSec, ok := sub.(*parsetree.ComplexSection)
		if !ok {
			continue
		}
		switch subSec.Name.Text {
		case "configTree":
			for _, entry := range subSec.Items {
				fso, err := getConfigTreeItem(entry.(*parsetree.TokenList))
				if err != nil {
					return err
				}
				app.ConfigTrees = append(app.ConfigTrees, fso)
			}
		case "file":
			for _, entry := range subSec.Items {
				fso, err := getRequiredFileOrDir(entry.(*parsetree.TokenList))
				if err != nil {
					return err
				}
				app.RequiredFiles = append(app.RequiredFiles, fso)
			}
		case "dir":
			for _, entry := range subSec.Items {
				fso, err := getRequiredFileOrDir(entry.(*parsetree.TokenList))
				if err != nil {
					return err
				}
				app.RequiredDirs = append(app.RequiredDirs, fso)
			}
		case "device":
			for _, entry := range subSec.Items {
				fso, err := getRequiredDevice(entry.(*parsetree.TokenList))
				if err != nil {
					return err
				}
				app.RequiredDevices = append(app.RequiredDevices, fso)
			}
		}
	}
	return nil
}

// getConfigTreeItem decodes one requires configTree entry: an optional
// permissions token and the tree name. Only read and write bits are
// meaningful on a configuration tree.
func getConfigTreeItem(item *parsetree.TokenList) (*model.FileSystemObject, error) {
	tokens := item.Tokens
	perms := model.Permissions{Read: true}
	if tokens[0].Type == parsetree.FilePermissions {
		perms = getPermissions(tokens[0])
		tokens = tokens[1:]
	}
	if perms.Exec {
		return nil, item.Tokens[0].SemanticErrf("Execute permission is not allowed on a configuration tree.")
	}
	name, err := substitute(tokens[0])
	if err != nil {
		return nil, err
	}
	return &model.FileSystemObject{
		DestPath:    name,
		Permissions: perms,
		Anchor:      tokens[0],
	}, nil
}

// addExternItem marks one interface as externally visible, under an
// optional alias. Server interfaces are additionally registered under
// their full dotted name so in-app bindings can still address them.
func addExternItem(app *model.App, item *parsetree.TokenList) error {
	tokens := item.Tokens
	var alias *parsetree.Token
	if len(tokens) >= 2 && tokens[1].Type == parsetree.Equals {
		alias = tokens[0]
		tokens = tokens[2:]
	}
	var names []*parsetree.Token
	for _, tok := range tokens {
		if tok.Type != parsetree.Dot {
			names = append(names, tok)
		}
	}
	if len(names) != 3 {
		return item.First.SyntaxErrf("External interfaces must be specified as 'exe.component.interface'.")
	}
	publicName := names[2].Text
	if alias != nil {
		publicName = alias.Text
	}

	ci, err := app.FindComponentInstance(names[0], names[1])
	if err != nil {
		return err
	}
	if serverIf := ci.FindServerInterface(names[2].Text); serverIf != nil {
		if _, ok := app.ExternServerInterfaces[publicName]; ok {
			return names[2].SemanticErrf("Duplicate external interface name '%s'.", publicName)
		}
		serverIf.ExternMark = true
		serverIf.ExternName = publicName
		app.ExternServerInterfaces[publicName] = serverIf
		app.ExternServerInterfaces[serverIf.FullName()] = serverIf
		return nil
	}
	if clientIf := ci.FindClientInterface(names[2].Text); clientIf != nil {
		if _, ok := app.ExternClientInterfaces[publicName]; ok {
			return names[2].SemanticErrf("Duplicate external interface name '%s'.", publicName)
		}
		clientIf.ExternMark = true
		app.ExternClientInterfaces[publicName] = clientIf
		return nil
	}
	return names[2].ReferenceErrf("Interface '%s' not found in component '%s' in executable '%s'.",
		names[2].Text, names[1].Text, names[0].Text)
}

// splitBinding cuts a binding's token run at the arrow.
func splitBinding(tokens []*parsetree.Token) (client, server []*parsetree.Token) {
	for i, tok := range tokens {
		if tok.Type == parsetree.Arrow {
			return tokens[:i], tokens[i+1:]
		}
	}
	return tokens, nil
}

func nameTokens(tokens []*parsetree.Token) []*parsetree.Token {
	var names []*parsetree.Token
	for _, tok := range tokens {
		if tok.Type != parsetree.Dot && tok.Type != parsetree.Star {
			names = append(names, tok)
		}
	}
	return names
}

// addAppBindingItem attaches one in-app binding to its client interface
// instance. The client side is an internal exe.component.interface path,
// an extern client name, or a `*.name` pre-built interface; the server
// side is an internal path or an external app or user.
func addAppBindingItem(app *model.App, item *parsetree.TokenList) error {
	clientToks, serverToks := splitBinding(item.Tokens)

	var clientIf *model.ClientInterfaceInstance
	clientNames := nameTokens(clientToks)
	switch {
	case len(clientToks) > 0 && clientToks[0].Type == parsetree.Star:
		if len(clientNames) != 1 {
			return item.First.SyntaxErrf("Invalid client-side interface specification in binding.")
		}
		clientIf = app.PreBuiltClientInterfaces[clientNames[0].Text]
		if clientIf == nil {
			return clientNames[0].ReferenceErrf(
				"App '%s' has no pre-built client-side interface named '%s'.",
				app.Name, clientNames[0].Text)
		}
	case len(clientNames) == 1:
		found, err := app.FindExternClientInterface(clientNames[0])
		if err != nil {
			return err
		}
		clientIf = found
	case len(clientNames) == 3:
		found, err := app.FindClientInterface(clientNames[0], clientNames[1], clientNames[2])
		if err != nil {
			return err
		}
		clientIf = found
	default:
		return item.First.SyntaxErrf("Invalid client-side interface specification in binding.")
	}

	if clientIf.Bound != nil {
		return item.First.SemanticErrf("Client-side interface '%s' is already bound.", clientIf.FullName())
	}

	binding := &model.Binding{
		ClientType:   model.Internal,
		ClientAgent:  clientIf.ComponentInstance.Exe.Name,
		ClientIfName: clientIf.Name,
	}
	if err := fillServerSide(app, binding, serverToks, item.First); err != nil {
		return err
	}
	clientIf.Bound = binding
	return nil
}

// fillServerSide classifies the server half of a binding by shape: three
// names address a server inside the same app, two names address another
// app or a non-app user.
func fillServerSide(app *model.App, binding *model.Binding, serverToks []*parsetree.Token, anchor *parsetree.Token) error {
	names := nameTokens(serverToks)
	switch len(names) {
	case 3:
		if _, err := app.FindServerInterface(names[0], names[1], names[2]); err != nil {
			return err
		}
		binding.ServerType = model.Internal
		binding.ServerAgent = names[0].Text
		binding.ServerIfName = names[2].Text
	case 2:
		agent := names[0].Text
		if strings.HasPrefix(agent, "<") {
			binding.ServerType = model.ExternalUser
			binding.ServerAgent = strings.Trim(agent, "<>")
		} else {
			binding.ServerType = model.ExternalApp
			binding.ServerAgent = agent
		}
		binding.ServerIfName = names[1].Text
	default:
		return anchor.SyntaxErrf("Invalid server-side interface specification in binding.")
	}
	return nil
}
