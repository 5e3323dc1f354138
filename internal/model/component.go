package model

import "github.com/vk/mkplan/internal/parsetree"

// Component is the semantic model of one .cdef file.
type Component struct {
	Name    string
	Dir     string // directory containing the .cdef
	DefFile *parsetree.CdefFile

	CFlags   []string
	CxxFlags []string
	LdFlags  []string

	CSources   []string
	CxxSources []string

	JavaPackages []string

	BundledFiles []*FileSystemObject
	BundledDirs  []*FileSystemObject

	RequiredFiles   []*FileSystemObject
	RequiredDirs    []*FileSystemObject
	RequiredDevices []*FileSystemObject
	RequiredLibs    []string
	SubComponents   []*Component

	ClientApis []*ApiClientInterface
	ServerApis []*ApiServerInterface

	// Lib is the working-directory-relative path of the component's built
	// library, empty for source-less components.
	Lib string
}

// HasCOrCxxCode reports whether the component has anything to compile.
func (c *Component) HasCOrCxxCode() bool {
	return len(c.CSources) > 0 || len(c.CxxSources) > 0
}

// ComponentInstance is one occurrence of a component inside an
// executable, carrying the per-instance interface instances.
type ComponentInstance struct {
	Component *Component
	Exe       *Executable

	ClientIfs []*ClientInterfaceInstance
	ServerIfs []*ServerInterfaceInstance
}

// FindClientInterface looks up a client interface instance by its
// internal name, returning nil when absent.
func (ci *ComponentInstance) FindClientInterface(name string) *ClientInterfaceInstance {
	for _, ifInst := range ci.ClientIfs {
		if ifInst.Name == name {
			return ifInst
		}
	}
	return nil
}

// FindServerInterface looks up a server interface instance by its
// internal name, returning nil when absent.
func (ci *ComponentInstance) FindServerInterface(name string) *ServerInterfaceInstance {
	for _, ifInst := range ci.ServerIfs {
		if ifInst.Name == name {
			return ifInst
		}
	}
	return nil
}
