package ninjagen

import (
	"fmt"
	"os"

	"github.com/vk/mkplan/internal/errs"
	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/paths"
)

// stagingSet tracks, per app, which staging destinations have been
// claimed and by what, both for conflict detection and so the packaging
// statement can depend on every staged file.
type stagingSet struct {
	byDest map[string]model.FileSystemObject
	order  []string // destinations in emission order
}

func newStagingSet() *stagingSet {
	return &stagingSet{byDest: map[string]model.FileSystemObject{}}
}

// permissionsToModeFlags derives the chmod-style symbolic mode string for
// a staged file. Owner always keeps read/write; group keeps read; other
// gets the object's read/write bits; the execute bit applies to all
// three.
func permissionsToModeFlags(p model.Permissions) string {
	execFlag := "-x"
	if p.Exec {
		execFlag = "+x"
	}
	flags := "u+rw" + execFlag + ",g+r" + execFlag + ",o" + execFlag
	if p.Read {
		flags += "+r"
	} else {
		flags += "-r"
	}
	if p.Write {
		flags += "+w"
	} else {
		flags += "-w"
	}
	return flags
}

// stagingDest computes the absolute staging path of a bundled object:
// writeable objects live under staging/writeable, everything else under
// staging/read-only.
func stagingDest(app *model.App, fso *model.FileSystemObject) string {
	area := "read-only"
	if fso.Permissions.Write {
		area = "writeable"
	}
	return "$builddir/" + paths.Combine(app.WorkingDir, paths.Combine("staging/"+area, fso.DestPath))
}

// generateFileBundleStatement emits one BundleFile statement, refusing
// destination conflicts. A second identical mapping is silently bundled
// once; a differing source or differing permissions is a fatal error.
func (g *Generator) generateFileBundleStatement(fso model.FileSystemObject, staged *stagingSet) error {
	prev, seen := staged.byDest[fso.DestPath]
	if seen {
		if prev.SrcPath != fso.SrcPath {
			return conflictErr(&fso,
				"Cannot bundle file '%s' with destination '%s' since it conflicts with existing bundled file '%s'.",
				fso.SrcPath, fso.DestPath, prev.SrcPath)
		}
		if prev.Permissions != fso.Permissions {
			return conflictErr(&fso,
				"Cannot bundle file '%s'.  It is already bundled with different permissions.",
				fso.SrcPath)
		}
		return nil
	}

	fmt.Fprintf(&g.buf, "build %s : BundleFile %s\n  modeFlags = %s\n\n",
		fso.DestPath, fso.SrcPath, permissionsToModeFlags(fso.Permissions))
	staged.byDest[fso.DestPath] = fso
	staged.order = append(staged.order, fso.DestPath)
	return nil
}

// generateDirBundleStatements expands a bundled directory by walking the
// source filesystem at generation time, emitting one statement per
// contained file.
func (g *Generator) generateDirBundleStatements(fso model.FileSystemObject, staged *stagingSet) error {
	entries, err := bundledDirEntries(fso)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := g.generateFileBundleStatement(entry, staged); err != nil {
			return err
		}
	}
	return nil
}

// bundledDirEntries produces the (source, destination, permissions)
// triples for every file under a bundled directory, in sorted traversal
// order.
func bundledDirEntries(fso model.FileSystemObject) ([]model.FileSystemObject, error) {
	info, err := os.Stat(fso.SrcPath)
	if err != nil {
		return nil, semanticErr(&fso, "Cannot access file or directory '%s' (%v).", fso.SrcPath, err)
	}
	if !info.IsDir() {
		return nil, semanticErr(&fso, "Not a directory: '%s'.", fso.SrcPath)
	}

	dirEntries, err := os.ReadDir(fso.SrcPath)
	if err != nil {
		return nil, semanticErr(&fso, "Cannot read directory '%s' (%v).", fso.SrcPath, err)
	}

	var out []model.FileSystemObject
	for _, entry := range dirEntries {
		child := model.FileSystemObject{
			SrcPath:     paths.Combine(fso.SrcPath, entry.Name()),
			DestPath:    paths.Combine(fso.DestPath, entry.Name()),
			Permissions: fso.Permissions,
			Anchor:      fso.Anchor,
		}
		if entry.IsDir() {
			children, err := bundledDirEntries(child)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)
			continue
		}
		out = append(out, child)
	}
	return out, nil
}

// generateStagingBundleBuildStatements emits the bundling statements for
// one app. The app's own bundled items go first so they take precedence
// over component items; component libraries go to staging lib/ and
// executables to staging bin/.
func (g *Generator) generateStagingBundleBuildStatements(app *model.App, staged *stagingSet) error {
	stage := func(fso *model.FileSystemObject) model.FileSystemObject {
		return model.FileSystemObject{
			SrcPath:     fso.SrcPath,
			DestPath:    stagingDest(app, fso),
			Permissions: fso.Permissions,
			Anchor:      fso.Anchor,
		}
	}

	for _, fso := range app.BundledFiles {
		if err := g.generateFileBundleStatement(stage(fso), staged); err != nil {
			return err
		}
	}
	for _, fso := range app.BundledDirs {
		if err := g.generateDirBundleStatements(stage(fso), staged); err != nil {
			return err
		}
	}

	for _, component := range app.Components {
		for _, fso := range component.BundledFiles {
			if err := g.generateFileBundleStatement(stage(fso), staged); err != nil {
				return err
			}
		}
		for _, fso := range component.BundledDirs {
			if err := g.generateDirBundleStatements(stage(fso), staged); err != nil {
				return err
			}
		}

		if component.HasCOrCxxCode() {
			lib := "$builddir/" + component.Lib
			dest := "$builddir/" + paths.Combine(app.WorkingDir,
				"staging/read-only/lib/"+paths.GetLastNode(component.Lib))
			err := g.generateFileBundleStatement(model.FileSystemObject{
				SrcPath:     lib,
				DestPath:    dest,
				Permissions: model.Permissions{Read: true, Exec: true},
			}, staged)
			if err != nil {
				return err
			}
		}
	}

	for _, exe := range app.SortedExecutables() {
		dest := "$builddir/" + paths.Combine(app.WorkingDir, "staging/read-only/bin/"+exe.Name)
		err := g.generateFileBundleStatement(model.FileSystemObject{
			SrcPath:     "$builddir/" + exeObjPath(app, exe),
			DestPath:    dest,
			Permissions: model.Permissions{Read: true, Exec: true},
		}, staged)
		if err != nil {
			return err
		}
	}

	return nil
}

func conflictErr(fso *model.FileSystemObject, format string, args ...any) error {
	if fso.Anchor != nil {
		return errs.Conflict(fso.Anchor.Pos(), format, args...)
	}
	return errs.Conflict(errs.Position{}, format, args...)
}

func semanticErr(fso *model.FileSystemObject, format string, args ...any) error {
	if fso.Anchor != nil {
		return fso.Anchor.SemanticErrf(format, args...)
	}
	return errs.Semantic(errs.Position{}, format, args...)
}
