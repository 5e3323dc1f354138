// Package ninjagen serializes a validated model into a ninja build plan.
//
// The generator is a pure serializer: apart from the bundling conflict
// check it performs no validation, and identical model input always
// produces identical output. Statements are accumulated in a buffer and
// committed to disk only when the whole plan generated cleanly, so a
// fatal error never leaves a partial build.ninja behind.
package ninjagen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/vk/mkplan/internal/config"
	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/defs"
	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/paths"
)

// Generator accumulates the build plan for one run. Per-app bookkeeping
// (the bundled-destination set) is local to each AddApp call; the
// generator itself only owns the output buffer and the regeneration
// dependency set.
type Generator struct {
	buf    bytes.Buffer
	params *config.BuildParams
	reg    *defs.Registry

	// regenDeps collects every definition and interface file the plan
	// depends on, for the build.ninja regeneration statement.
	regenDeps map[string]bool
}

// New starts a build plan: the comment header, the file-level variable
// definitions, and the generic rules.
func New(title string, params *config.BuildParams, reg *defs.Registry) *Generator {
	g := &Generator{
		params:    params,
		reg:       reg,
		regenDeps: map[string]bool{},
	}

	fmt.Fprintf(&g.buf, "# Build script for %s\n\n", title)
	g.buf.WriteString("# == Auto-generated file.  Do not edit. ==\n\n")

	includes := " -I" + params.WorkingDir
	for _, dir := range params.InterfaceDirs {
		includes += " -I" + dir
	}
	fmt.Fprintf(&g.buf, "builddir = %s\n\n", params.WorkingDir)
	fmt.Fprintf(&g.buf, "target = %s\n\n", params.Target)
	fmt.Fprintf(&g.buf, "cFlags = %s%s\n\n", params.CFlags, includes)
	fmt.Fprintf(&g.buf, "cxxFlags = %s%s\n\n", params.CxxFlags, includes)
	fmt.Fprintf(&g.buf, "ldFlags = %s\n\n", params.LdFlags)

	g.generateBuildRules()
	return g
}

// AddApp appends the build statements for one application: component
// compilation, executable linking, staging bundling with conflict
// detection, the info.properties statement, and the packaging
// statements.
func (g *Generator) AddApp(ctx context.Context, app *model.App) error {
	ctxlog.FromContext(ctx).Debug("Generating build statements.", "app", app.Name)

	g.regenDeps[app.DefFile.Path] = true
	for _, component := range app.Components {
		g.addComponentRegenDeps(component)
	}

	if g.params.CodeGenOnly {
		return nil
	}

	built := map[string]bool{}
	for _, component := range app.Components {
		g.generateComponentBuildStatements(component, built)
	}
	g.generateExeBuildStatements(app)
	return g.generateAppBundleBuildStatement(app)
}

func (g *Generator) addComponentRegenDeps(component *model.Component) {
	g.regenDeps[component.DefFile.Path] = true
	for _, ifDecl := range component.ClientApis {
		g.regenDeps[ifDecl.ApiFile.Path] = true
		for _, dep := range ifDecl.ApiFile.AllDependencies() {
			g.regenDeps[dep.Path] = true
		}
	}
	for _, ifDecl := range component.ServerApis {
		g.regenDeps[ifDecl.ApiFile.Path] = true
		for _, dep := range ifDecl.ApiFile.AllDependencies() {
			g.regenDeps[dep.Path] = true
		}
	}
	for _, sub := range component.SubComponents {
		g.addComponentRegenDeps(sub)
	}
}

// Write finishes the plan with the regeneration statement for the script
// itself and commits the buffer to filePath.
func (g *Generator) Write(filePath string) error {
	g.generateNinjaScriptBuildStatement(filePath)

	if err := os.MkdirAll(paths.GetContainingDir(filePath), 0o755); err != nil {
		return fmt.Errorf("creating build plan directory: %w", err)
	}
	if err := os.WriteFile(filePath, g.buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing build plan: %w", err)
	}
	return nil
}

// Plan returns the accumulated plan text. Used by tests and by callers
// that want the plan without committing it.
func (g *Generator) Plan() string {
	return g.buf.String()
}

// generateNinjaScriptBuildStatement emits the statement that reruns the
// tool when any consumed definition or interface file changes.
func (g *Generator) generateNinjaScriptBuildStatement(filePath string) {
	deps := make([]string, 0, len(g.regenDeps))
	for dep := range g.regenDeps {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	fmt.Fprintf(&g.buf, "build %s : RegenNinjaScript |", filePath)
	for _, dep := range deps {
		g.buf.WriteString(" " + dep)
	}
	g.buf.WriteString("\n\n")
}

// GenerateApp builds and commits the plan for a single application run.
func GenerateApp(ctx context.Context, app *model.App, reg *defs.Registry, params *config.BuildParams) error {
	g := New("application '"+app.Name+"'", params, reg)
	if err := g.AddApp(ctx, app); err != nil {
		return err
	}
	return g.Write(paths.Minimize(paths.Combine(params.WorkingDir, "build.ninja")))
}

// GenerateComponent builds and commits the plan for a standalone
// component build: IPC stubs, compilation, and the component library,
// with no app packaging.
func GenerateComponent(ctx context.Context, comp *model.Component, reg *defs.Registry, params *config.BuildParams) error {
	ctxlog.FromContext(ctx).Debug("Generating build statements.", "component", comp.Name)

	g := New("component '"+comp.Name+"'", params, reg)
	g.addComponentRegenDeps(comp)
	if !params.CodeGenOnly {
		g.generateComponentBuildStatements(comp, map[string]bool{})
	}
	return g.Write(paths.Minimize(paths.Combine(params.WorkingDir, "build.ninja")))
}

// GenerateSystem builds and commits the plan for a system run: every
// app's statements in sorted app order, so output is reproducible.
func GenerateSystem(ctx context.Context, sys *model.System, reg *defs.Registry, params *config.BuildParams) error {
	g := New("system '"+sys.Name+"'", params, reg)
	g.regenDeps[sys.DefFile.Path] = true
	for _, app := range sys.SortedApps() {
		if err := g.AddApp(ctx, app); err != nil {
			return err
		}
	}
	return g.Write(paths.Minimize(paths.Combine(params.WorkingDir, "build.ninja")))
}
