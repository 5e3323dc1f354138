package ninjagen

import (
	"fmt"
	"strings"

	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/paths"
)

// componentObjDir returns the working directory holding a component's
// object files.
func componentObjDir(component *model.Component) string {
	return "component/" + component.Name + "/obj"
}

// exeObjPath returns the working-directory-relative path of a linked
// executable.
func exeObjPath(app *model.App, exe *model.Executable) string {
	return paths.Combine(app.WorkingDir, "obj/"+exe.Name)
}

// generateComponentBuildStatements emits the IPC stub generation,
// compilation, and library link statements for a component and its
// subcomponents. built guards against emitting a shared component twice.
func (g *Generator) generateComponentBuildStatements(component *model.Component, built map[string]bool) {
	if built[component.Name] {
		return
	}
	built[component.Name] = true

	for _, sub := range component.SubComponents {
		g.generateComponentBuildStatements(sub, built)
	}

	if !component.HasCOrCxxCode() {
		return
	}

	interfacesDir := "component/" + component.Name + "/api"
	var objPaths []string

	// IPC stubs: one generated client or server source per interface,
	// compiled into the component library alongside its own sources.
	for _, ifDecl := range component.ClientApis {
		if ifDecl.TypesOnly {
			continue
		}
		stub := fmt.Sprintf("%s/%s_client.c", interfacesDir, ifDecl.InternalName)
		fmt.Fprintf(&g.buf, "build $builddir/%s : GenInterfaceCode %s\n"+
			"  outputDir = $builddir/%s\n"+
			"  ifgenFlags = --gen-client\n\n",
			stub, ifDecl.ApiFile.Path, interfacesDir)
		obj := "$builddir/" + componentObjDir(component) + "/" + ifDecl.InternalName + "_client.c.o"
		fmt.Fprintf(&g.buf, "build %s : CompileC $builddir/%s\n\n", obj, stub)
		objPaths = append(objPaths, obj)
	}
	for _, ifDecl := range component.ServerApis {
		stub := fmt.Sprintf("%s/%s_server.c", interfacesDir, ifDecl.InternalName)
		flags := "--gen-server"
		if ifDecl.Async {
			flags += " --async-server"
		}
		fmt.Fprintf(&g.buf, "build $builddir/%s : GenInterfaceCode %s\n"+
			"  outputDir = $builddir/%s\n"+
			"  ifgenFlags = %s\n\n",
			stub, ifDecl.ApiFile.Path, interfacesDir, flags)
		obj := "$builddir/" + componentObjDir(component) + "/" + ifDecl.InternalName + "_server.c.o"
		fmt.Fprintf(&g.buf, "build %s : CompileC $builddir/%s\n\n", obj, stub)
		objPaths = append(objPaths, obj)
	}

	for _, src := range component.CSources {
		obj := "$builddir/" + componentObjDir(component) + "/" + paths.GetLastNode(src) + ".o"
		fmt.Fprintf(&g.buf, "build %s : CompileC %s\n\n", obj, src)
		objPaths = append(objPaths, obj)
	}
	for _, src := range component.CxxSources {
		obj := "$builddir/" + componentObjDir(component) + "/" + paths.GetLastNode(src) + ".o"
		fmt.Fprintf(&g.buf, "build %s : CompileCxx %s\n\n", obj, src)
		objPaths = append(objPaths, obj)
	}

	fmt.Fprintf(&g.buf, "build $builddir/%s : LinkLib", component.Lib)
	for _, obj := range objPaths {
		g.buf.WriteString(" " + obj)
	}
	g.buf.WriteString("\n")
	if len(component.LdFlags) > 0 {
		fmt.Fprintf(&g.buf, "  ldFlags = $ldFlags %s\n", strings.Join(component.LdFlags, " "))
	}
	g.buf.WriteString("\n")
}

// generateExeBuildStatements emits the link statement for each declared
// executable: its inputs are the libraries of its component instances,
// in declaration order.
func (g *Generator) generateExeBuildStatements(app *model.App) {
	for _, exe := range app.SortedExecutables() {
		fmt.Fprintf(&g.buf, "build $builddir/%s : LinkExe", exeObjPath(app, exe))
		for _, ci := range exe.ComponentInstances {
			if ci.Component.HasCOrCxxCode() {
				g.buf.WriteString(" $builddir/" + ci.Component.Lib)
			}
		}
		g.buf.WriteString("\n\n")
	}
}

// generateAppBundleBuildStatement emits the staging bundling statements,
// the info.properties statement that depends on every staged file, and
// the final packaging statements.
func (g *Generator) generateAppBundleBuildStatement(app *model.App) error {
	staged := newStagingSet()
	if err := g.generateStagingBundleBuildStatements(app, staged); err != nil {
		return err
	}

	stagingDir := "$builddir/" + paths.Combine(app.WorkingDir, "staging")
	infoPath := stagingDir + "/info.properties"

	// info.properties is generated last, after every staged file and
	// executable exists; the order-only dependencies enforce that.
	fmt.Fprintf(&g.buf, "build %s : MakeAppInfoProperties |", infoPath)
	for _, dest := range staged.order {
		g.buf.WriteString(" " + dest)
	}
	g.buf.WriteString("\n")
	fmt.Fprintf(&g.buf, "  name = %s\n  version = %s\n  workingDir = $builddir/%s\n\n",
		app.Name, app.Version, app.WorkingDir)

	outputDir := g.params.OutputDir
	if outputDir == "" {
		outputDir = g.params.WorkingDir
	}

	updateFile := paths.Combine(outputDir, app.Name) + ".$target.update"
	fmt.Fprintf(&g.buf, "build %s : PackApp %s\n", updateFile, infoPath)
	fmt.Fprintf(&g.buf, "  name = %s\n  version = %s\n  workingDir = $builddir/%s\n\n",
		app.Name, app.Version, app.WorkingDir)

	if g.params.BinPack {
		g.generateBinPackBuildStatement(app, infoPath, stagingDir, outputDir)
	}
	return nil
}

// generateBinPackBuildStatement emits the binary-redistribution pack: a
// second archive that additionally carries every interface definition
// file the app references, copied in via order-only dependencies.
func (g *Generator) generateBinPackBuildStatement(app *model.App, infoPath, stagingDir, outputDir string) {
	packDir := "$builddir/" + app.Name
	interfacesDir := packDir + "/interfaces"

	apiFiles := g.reg.AllApiFiles()
	for _, apiFile := range apiFiles {
		fmt.Fprintf(&g.buf, "build %s/%s : CopyFile %s\n\n",
			interfacesDir, paths.GetLastNode(apiFile.Path), apiFile.Path)
	}

	outputFile := paths.Combine(outputDir, app.Name) + ".$target.app"
	fmt.Fprintf(&g.buf, "build %s : BinPackApp %s", outputFile, infoPath)
	if len(apiFiles) > 0 {
		g.buf.WriteString(" ||")
		for _, apiFile := range apiFiles {
			fmt.Fprintf(&g.buf, " %s/%s", interfacesDir, paths.GetLastNode(apiFile.Path))
		}
	}
	g.buf.WriteString("\n")
	fmt.Fprintf(&g.buf, "  stagingDir = %s\n  workingDir = %s\n\n", stagingDir, packDir)
}
