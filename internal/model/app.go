package model

import (
	"sort"

	"github.com/vk/mkplan/internal/parsetree"
	"github.com/vk/mkplan/internal/paths"
)

// StartTrigger selects how an app is started on the target.
type StartTrigger int

const (
	StartAuto StartTrigger = iota
	StartManual
)

// App is the semantic model of one .adef file.
type App struct {
	Name    string
	Dir     string // directory containing the .adef
	DefFile *parsetree.AdefFile

	// WorkingDir is the app's build working directory, relative to the
	// run's working directory.
	WorkingDir string

	Version      string
	Sandboxed    bool
	Start        StartTrigger
	IsPreloaded  bool
	PreloadedMd5 string

	WatchdogAction  string
	WatchdogTimeout *WatchdogTimeout

	CpuShare              int
	MaxFileSystemBytes    int
	MaxMemoryBytes        int
	MaxMQueueBytes        int
	MaxQueuedSignals      int
	MaxThreads            int
	MaxSecureStorageBytes int

	Components  []*Component
	Executables map[string]*Executable
	ProcEnvs    []*ProcEnv
	Groups      []string

	BundledFiles []*FileSystemObject
	BundledDirs  []*FileSystemObject

	RequiredFiles   []*FileSystemObject
	RequiredDirs    []*FileSystemObject
	RequiredDevices []*FileSystemObject
	ConfigTrees     []*FileSystemObject

	// Extern interface tables, keyed by system-wide name.
	ExternClientInterfaces map[string]*ClientInterfaceInstance
	ExternServerInterfaces map[string]*ServerInterfaceInstance

	// PreBuiltClientInterfaces holds the client interfaces of binary-only
	// app content, addressable through the `*.name` binding form.
	PreBuiltClientInterfaces map[string]*ClientInterfaceInstance
}

// NewApp builds an App with the framework's defaults from a parsed .adef
// file. The app name is the identifier-safe form of the file name.
func NewApp(defFile *parsetree.AdefFile) *App {
	name := paths.GetIdentifierSafeName(paths.RemoveSuffix(paths.GetLastNode(defFile.Path), ".adef"))
	return &App{
		Name:       name,
		Dir:        paths.MakeAbsolute(paths.GetContainingDir(defFile.Path)),
		DefFile:    defFile,
		WorkingDir: "app/" + name,
		Sandboxed:  true,
		Start:      StartAuto,

		CpuShare:              1024,
		MaxFileSystemBytes:    128 * 1024,
		MaxMemoryBytes:        40000 * 1024,
		MaxMQueueBytes:        512,
		MaxQueuedSignals:      100,
		MaxThreads:            20,
		MaxSecureStorageBytes: 8192,

		Executables:              map[string]*Executable{},
		ExternClientInterfaces:   map[string]*ClientInterfaceInstance{},
		ExternServerInterfaces:   map[string]*ServerInterfaceInstance{},
		PreBuiltClientInterfaces: map[string]*ClientInterfaceInstance{},
	}
}

// ConfigFilePath returns the path of the app's configuration tree file,
// relative to the run's working directory.
func (a *App) ConfigFilePath() string {
	return a.WorkingDir + "/staging/root.cfg"
}

// FindComponentInstance resolves an exe name and component name to the
// component instance, raising ReferenceErrors against the given tokens
// when either is missing.
func (a *App) FindComponentInstance(exeTok, componentTok *parsetree.Token) (*ComponentInstance, error) {
	exe, ok := a.Executables[exeTok.Text]
	if !ok {
		return nil, exeTok.ReferenceErrf("Executable '%s' not defined in application.", exeTok.Text)
	}
	for _, ci := range exe.ComponentInstances {
		if ci.Component.Name == componentTok.Text {
			return ci, nil
		}
	}
	return nil, componentTok.ReferenceErrf("Component '%s' not found in executable '%s'.",
		componentTok.Text, exeTok.Text)
}

// FindServerInterface resolves an exe.component.interface specification
// to a server interface instance, looking first through the extern table
// so aliased extern names resolve.
func (a *App) FindServerInterface(exeTok, componentTok, interfaceTok *parsetree.Token) (*ServerInterfaceInstance, error) {
	fullName := exeTok.Text + "." + componentTok.Text + "." + interfaceTok.Text
	if ifInst, ok := a.ExternServerInterfaces[fullName]; ok {
		return ifInst, nil
	}
	ci, err := a.FindComponentInstance(exeTok, componentTok)
	if err != nil {
		return nil, err
	}
	ifInst := ci.FindServerInterface(interfaceTok.Text)
	if ifInst == nil {
		return nil, interfaceTok.ReferenceErrf(
			"Server interface '%s' not found in component '%s' in executable '%s'.",
			interfaceTok.Text, componentTok.Text, exeTok.Text)
	}
	return ifInst, nil
}

// FindClientInterface resolves an exe.component.interface specification
// to a client interface instance.
func (a *App) FindClientInterface(exeTok, componentTok, interfaceTok *parsetree.Token) (*ClientInterfaceInstance, error) {
	ci, err := a.FindComponentInstance(exeTok, componentTok)
	if err != nil {
		return nil, err
	}
	ifInst := ci.FindClientInterface(interfaceTok.Text)
	if ifInst == nil {
		return nil, interfaceTok.ReferenceErrf(
			"Client interface '%s' not found in component '%s' in executable '%s'.",
			interfaceTok.Text, componentTok.Text, exeTok.Text)
	}
	return ifInst, nil
}

// FindExternClientInterface resolves a system-wide external client
// interface name of this app.
func (a *App) FindExternClientInterface(interfaceTok *parsetree.Token) (*ClientInterfaceInstance, error) {
	if ifInst, ok := a.ExternClientInterfaces[interfaceTok.Text]; ok {
		return ifInst, nil
	}
	return nil, interfaceTok.ReferenceErrf(
		"App '%s' has no external client-side interface named '%s'.", a.Name, interfaceTok.Text)
}

// AllClientInterfaces visits every client interface instance of the app.
// Executables are visited in sorted name order so diagnostics are stable.
func (a *App) AllClientInterfaces(visit func(*ClientInterfaceInstance) error) error {
	for _, exe := range a.SortedExecutables() {
		if err := exe.AllClientInterfaces(visit); err != nil {
			return err
		}
	}
	return nil
}

// SortedExecutables returns the app's executables ordered by name.
func (a *App) SortedExecutables() []*Executable {
	names := make([]string, 0, len(a.Executables))
	for name := range a.Executables {
		names = append(names, name)
	}
	sort.Strings(names)
	exes := make([]*Executable, len(names))
	for i, name := range names {
		exes[i] = a.Executables[name]
	}
	return exes
}
