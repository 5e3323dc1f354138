package model

// ApiFile is one interface definition (.api) file. Exactly one instance
// exists per canonical path for the whole run; the registry enforces
// this. Includes lists the files pulled in through USETYPES directives,
// resolved recursively.
type ApiFile struct {
	Path       string // canonical absolute path
	Name       string // base name without the .api suffix
	Includes   []*ApiFile
	IsIncluded bool // pulled in only as a type dependency, never compiled directly
}

// AllDependencies returns the transitive USETYPES closure of the file,
// deduplicated, not including the file itself.
func (f *ApiFile) AllDependencies() []*ApiFile {
	seen := map[string]bool{f.Path: true}
	var out []*ApiFile
	var walk func(file *ApiFile)
	walk = func(file *ApiFile) {
		for _, dep := range file.Includes {
			if seen[dep.Path] {
				continue
			}
			seen[dep.Path] = true
			out = append(out, dep)
			walk(dep)
		}
	}
	walk(f)
	return out
}

// ApiClientInterface is a client-side interface declaration in a
// component definition's requires api subsection.
type ApiClientInterface struct {
	ApiFile      *ApiFile
	InternalName string // the name code in the component uses
	Optional     bool
	TypesOnly    bool
	ManualStart  bool
}

// ApiServerInterface is a server-side interface declaration in a
// component definition's provides api subsection.
type ApiServerInterface struct {
	ApiFile      *ApiFile
	InternalName string
	Async        bool
	ManualStart  bool
}
