// Package defs holds the run-scoped definition-file caches: the parsed
// def-file table and the ApiFile registry.
//
// The registry is created empty at run start, threaded explicitly through
// the modeller's calls, and discarded at run end. The pipeline is
// sequential, so plain maps suffice; a parallelized pipeline would need
// the insert-if-absent operations below to become atomic.
package defs

import (
	"sort"

	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/parsetree"
	"github.com/vk/mkplan/internal/paths"
)

// Registry caches parsed definition files and interface-definition
// models by canonical path, so shared files are parsed and modelled at
// most once per run.
type Registry struct {
	cdefFiles  map[string]*parsetree.CdefFile
	components map[string]*model.Component
	apiFiles   map[string]*model.ApiFile
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		cdefFiles:  map[string]*parsetree.CdefFile{},
		components: map[string]*model.Component{},
		apiFiles:   map[string]*model.ApiFile{},
	}
}

// CdefFile returns the cached parse tree for a component definition.
func (r *Registry) CdefFile(path string) (*parsetree.CdefFile, bool) {
	f, ok := r.cdefFiles[paths.MakeAbsolute(path)]
	return f, ok
}

// AddCdefFile caches a parsed component definition.
func (r *Registry) AddCdefFile(f *parsetree.CdefFile) {
	r.cdefFiles[paths.MakeAbsolute(f.Path)] = f
}

// Component returns the cached component model for a .cdef path.
func (r *Registry) Component(path string) (*model.Component, bool) {
	c, ok := r.components[paths.MakeAbsolute(path)]
	return c, ok
}

// AddComponent caches a component model under its .cdef path.
func (r *Registry) AddComponent(path string, c *model.Component) {
	r.components[paths.MakeAbsolute(path)] = c
}

// ApiFile returns the ApiFile for a canonical path, or nil. The returned
// instance may still be under construction when the call happens inside a
// recursive dependency resolution; callers only need the identity, not a
// fully populated include list.
func (r *Registry) ApiFile(path string) *model.ApiFile {
	return r.apiFiles[paths.MakeAbsolute(path)]
}

// AddApiFile registers an ApiFile under its canonical path. The entry is
// inserted before its USETYPES dependencies are resolved, which is what
// makes mutually referencing interface files terminate.
func (r *Registry) AddApiFile(f *model.ApiFile) {
	r.apiFiles[paths.MakeAbsolute(f.Path)] = f
}

// AllApiFiles returns every registered ApiFile in sorted path order.
func (r *Registry) AllApiFiles() []*model.ApiFile {
	pathList := make([]string, 0, len(r.apiFiles))
	for p := range r.apiFiles {
		pathList = append(pathList, p)
	}
	sort.Strings(pathList)
	out := make([]*model.ApiFile, len(pathList))
	for i, p := range pathList {
		out[i] = r.apiFiles[p]
	}
	return out
}
