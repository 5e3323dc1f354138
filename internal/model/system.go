package model

import (
	"sort"

	"github.com/vk/mkplan/internal/parsetree"
	"github.com/vk/mkplan/internal/paths"
)

// Command is one entry of a system's commands section: a command name
// mapped to an executable path inside an app.
type Command struct {
	Name    string
	AppName string
	ExePath string
}

// System is the semantic model of one .sdef file.
type System struct {
	Name    string
	Dir     string
	DefFile *parsetree.SdefFile

	Apps     map[string]*App
	Commands map[string]*Command

	// UserBindings are system bindings whose client is a non-app user
	// process; they have no interface instance to attach to.
	UserBindings []*Binding
}

// NewSystem builds a System with the identifier-safe name of the .sdef
// file.
func NewSystem(defFile *parsetree.SdefFile) *System {
	return &System{
		Name:     paths.GetIdentifierSafeName(paths.RemoveSuffix(paths.GetLastNode(defFile.Path), ".sdef")),
		Dir:      paths.MakeAbsolute(paths.GetContainingDir(defFile.Path)),
		DefFile:  defFile,
		Apps:     map[string]*App{},
		Commands: map[string]*Command{},
	}
}

// SortedApps returns the system's apps ordered by name.
func (s *System) SortedApps() []*App {
	names := make([]string, 0, len(s.Apps))
	for name := range s.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	apps := make([]*App, len(names))
	for i, name := range names {
		apps[i] = s.Apps[name]
	}
	return apps
}
