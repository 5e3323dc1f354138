package modeller

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mkplan/internal/config"
	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/defs"
	"github.com/vk/mkplan/internal/parsetree"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func newTestModeller() *Modeller {
	return New(defs.New(), config.NewBuildParams())
}

func tok(tokType parsetree.TokenType, text string) *parsetree.Token {
	return &parsetree.Token{Type: tokType, Text: text, File: "test.def", Line: 1}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestGetInt(t *testing.T) {
	testCases := []struct {
		text     string
		expected int
		valid    bool
	}{
		{"500", 500, true},
		{"0", 0, true},
		{"128K", 128 * 1024, true},
		{"1K", 1024, true},
		{"99999999999999999999", 0, false},
		{"9223372036854775807K", 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			n, err := getInt(tok(parsetree.Integer, tc.text))
			if tc.valid {
				require.NoError(t, err)
				assert.Equal(t, tc.expected, n)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "out of range")
			}
		})
	}
}

func TestGetPositiveInt(t *testing.T) {
	n, err := getPositiveInt(tok(parsetree.Integer, "2K"))
	require.NoError(t, err)
	assert.Equal(t, 2048, n)

	_, err = getPositiveInt(tok(parsetree.Integer, "0"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a positive integer")
}

func TestGetPermissions(t *testing.T) {
	p := getPermissions(tok(parsetree.FilePermissions, "[rwx]"))
	assert.True(t, p.Read)
	assert.True(t, p.Write)
	assert.True(t, p.Exec)

	p = getPermissions(tok(parsetree.FilePermissions, "[w]"))
	assert.False(t, p.Read)
	assert.True(t, p.Write)
	assert.False(t, p.Exec)
}

func TestGetBundledItem(t *testing.T) {
	t.Run("defaults to read-only and completes destination", func(t *testing.T) {
		item := &parsetree.TokenList{
			First: tok(parsetree.FilePath, "data/logo.png"),
			Tokens: []*parsetree.Token{
				tok(parsetree.FilePath, "data/logo.png"),
				tok(parsetree.FilePath, "/usr/share/"),
			},
		}
		fso, err := getBundledItem(item, "/proj/comp")
		require.NoError(t, err)
		assert.Equal(t, "/proj/comp/data/logo.png", fso.SrcPath)
		assert.Equal(t, "/usr/share/logo.png", fso.DestPath)
		assert.True(t, fso.Permissions.Read)
		assert.False(t, fso.Permissions.Write)
	})

	t.Run("explicit permissions", func(t *testing.T) {
		item := &parsetree.TokenList{
			First: tok(parsetree.FilePermissions, "[wx]"),
			Tokens: []*parsetree.Token{
				tok(parsetree.FilePermissions, "[wx]"),
				tok(parsetree.FilePath, "/abs/src.sh"),
				tok(parsetree.FilePath, "/bin/src.sh"),
			},
		}
		fso, err := getBundledItem(item, "/proj")
		require.NoError(t, err)
		assert.Equal(t, "/abs/src.sh", fso.SrcPath)
		assert.True(t, fso.Permissions.Write)
		assert.True(t, fso.Permissions.Exec)
	})
}

func TestGetRequiredFileOrDir(t *testing.T) {
	item := &parsetree.TokenList{
		First: tok(parsetree.FilePath, "/dev/shm/"),
		Tokens: []*parsetree.Token{
			tok(parsetree.FilePath, "/dev/shm/"),
			tok(parsetree.FilePath, "/dev/shm"),
		},
	}
	_, err := getRequiredFileOrDir(item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not end with a '/'")

	item = &parsetree.TokenList{
		First: tok(parsetree.FilePath, "/etc/hosts"),
		Tokens: []*parsetree.Token{
			tok(parsetree.FilePath, "/etc/hosts"),
			tok(parsetree.FilePath, "/etc/"),
		},
	}
	fso, err := getRequiredFileOrDir(item)
	require.NoError(t, err)
	assert.Equal(t, "/etc/hosts", fso.DestPath)
}

func TestGetRequiredDevice_RejectsExec(t *testing.T) {
	item := &parsetree.TokenList{
		First: tok(parsetree.FilePermissions, "[rx]"),
		Tokens: []*parsetree.Token{
			tok(parsetree.FilePermissions, "[rx]"),
			tok(parsetree.FilePath, "/dev/ttyS0"),
			tok(parsetree.FilePath, "/dev/ttyS0"),
		},
	}
	_, err := getRequiredDevice(item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Execute permission is not allowed on device '/dev/ttyS0'.")
}

func TestGetApiFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "greet.api"), `
// A greeting interface.
USETYPES types;
FUNCTION Greet(string who[64] IN);
`)
	writeFile(t, filepath.Join(dir, "types.api"), "DEFINE MAX = 4;\n")

	m := newTestModeller()
	apiFile, err := m.GetApiFile(tok(parsetree.FilePath, "greet"), dir)
	require.NoError(t, err)
	assert.Equal(t, "greet", apiFile.Name)
	require.Len(t, apiFile.Includes, 1)
	assert.Equal(t, "types", apiFile.Includes[0].Name)
	assert.True(t, apiFile.Includes[0].IsIncluded)
	assert.False(t, apiFile.IsIncluded)

	// The same path resolves to the same instance.
	again, err := m.GetApiFile(tok(parsetree.FilePath, "greet.api"), dir)
	require.NoError(t, err)
	assert.Same(t, apiFile, again)

	_, err = m.GetApiFile(tok(parsetree.FilePath, "missing"), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Couldn't find api file 'missing'.")
}

func TestGetApiFile_MutualUsetypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.api"), "USETYPES b;\n")
	writeFile(t, filepath.Join(dir, "b.api"), "USETYPES a;\n")

	m := newTestModeller()
	apiFile, err := m.GetApiFile(tok(parsetree.FilePath, "a"), dir)
	require.NoError(t, err)
	require.Len(t, apiFile.Includes, 1)
	assert.Equal(t, "b", apiFile.Includes[0].Name)

	deps := apiFile.AllDependencies()
	require.Len(t, deps, 1)
}

func TestGetComponent(t *testing.T) {
	dir := t.TempDir()
	compDir := filepath.Join(dir, "helloComponent")
	writeFile(t, filepath.Join(compDir, "Component.cdef"), `
sources:
{
    hello.c
    helper.cpp
}

provides:
{
    api:
    {
        greet.api
    }
}
`)
	writeFile(t, filepath.Join(compDir, "hello.c"), "int main(void) { return 0; }\n")
	writeFile(t, filepath.Join(compDir, "helper.cpp"), "void helper() {}\n")
	writeFile(t, filepath.Join(compDir, "greet.api"), "FUNCTION Greet();\n")

	m := newTestModeller()
	comp, err := m.GetComponent(testContext(), filepath.Join(compDir, "Component.cdef"))
	require.NoError(t, err)

	// The name comes from the containing directory for Component.cdef.
	assert.Equal(t, "helloComponent", comp.Name)
	require.Len(t, comp.CSources, 1)
	require.Len(t, comp.CxxSources, 1)
	assert.True(t, comp.HasCOrCxxCode())
	assert.Equal(t, "component/helloComponent/libComponent_helloComponent.so", comp.Lib)
	require.Len(t, comp.ServerApis, 1)
	assert.Equal(t, "greet", comp.ServerApis[0].InternalName)

	// Modelled once per canonical path.
	again, err := m.GetComponent(testContext(), filepath.Join(compDir, "Component.cdef"))
	require.NoError(t, err)
	assert.Same(t, comp, again)
}

func TestGetComponent_MissingSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.cdef"), "sources: { nowhere.c }\n")

	m := newTestModeller()
	_, err := m.GetComponent(testContext(), filepath.Join(dir, "bad.cdef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't find source file 'nowhere.c'.")
}

func TestGetComponent_UnknownExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.cdef"), "sources: { prog.rs }\n")
	writeFile(t, filepath.Join(dir, "prog.rs"), "fn main() {}\n")

	m := newTestModeller()
	_, err := m.GetComponent(testContext(), filepath.Join(dir, "bad.cdef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unrecognized file name extension on source code file 'prog.rs'.")
}

func writeHelloWorkspace(t *testing.T, dir string) {
	t.Helper()
	compDir := filepath.Join(dir, "helloComponent")
	writeFile(t, filepath.Join(compDir, "Component.cdef"), `
sources:
{
    hello.c
}

requires:
{
    api:
    {
        greet.api
    }
}
`)
	writeFile(t, filepath.Join(compDir, "hello.c"), "int main(void) { return 0; }\n")
	writeFile(t, filepath.Join(compDir, "greet.api"), "FUNCTION Greet();\n")
}

func TestGetApp(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "hello.adef"), `
version: 1.2.0
sandboxed: false
maxMemoryBytes: 2K

executables:
{
    hello = ( helloComponent )
}

processes:
{
    run:
    {
        ( hello )
    }
    faultAction: restart
}
`)

	m := newTestModeller()
	app, err := m.GetApp(testContext(), filepath.Join(dir, "hello.adef"))
	require.NoError(t, err)

	assert.Equal(t, "hello", app.Name)
	assert.Equal(t, "1.2.0", app.Version)
	assert.False(t, app.Sandboxed)
	assert.Equal(t, 2048, app.MaxMemoryBytes)
	assert.Equal(t, 1024, app.CpuShare) // default untouched

	require.Len(t, app.Components, 1)
	exe := app.Executables["hello"]
	require.NotNil(t, exe)
	require.Len(t, exe.ComponentInstances, 1)
	ci := exe.ComponentInstances[0]
	require.Len(t, ci.ClientIfs, 1)
	assert.Equal(t, "greet", ci.ClientIfs[0].Name)
	assert.Equal(t, "hello.helloComponent.greet", ci.ClientIfs[0].FullName())

	require.Len(t, app.ProcEnvs, 1)
	require.Len(t, app.ProcEnvs[0].Processes, 1)
	assert.Equal(t, "hello", app.ProcEnvs[0].Processes[0].Name)
	assert.Equal(t, "restart", app.ProcEnvs[0].FaultAction)
}

func TestGetApp_DuplicateExecutable(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "dup.adef"), `
executables:
{
    hello = ( helloComponent )
    hello = ( helloComponent )
}
`)

	m := newTestModeller()
	_, err := m.GetApp(testContext(), filepath.Join(dir, "dup.adef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Executable 'hello' already defined.")
}

func TestGetApp_ExternAndBindings(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "hello.adef"), `
executables:
{
    hello = ( helloComponent )
}

extern:
{
    greeting = hello.helloComponent.greet
}
`)

	m := newTestModeller()
	app, err := m.GetApp(testContext(), filepath.Join(dir, "hello.adef"))
	require.NoError(t, err)

	clientIf, ok := app.ExternClientInterfaces["greeting"]
	require.True(t, ok)
	assert.True(t, clientIf.ExternMark)
	assert.Nil(t, clientIf.Bound)
}

func TestGetApp_BindingToUser(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "hello.adef"), `
executables:
{
    hello = ( helloComponent )
}

bindings:
{
    hello.helloComponent.greet -> <greetd>.greet
}
`)

	m := newTestModeller()
	app, err := m.GetApp(testContext(), filepath.Join(dir, "hello.adef"))
	require.NoError(t, err)

	ci := app.Executables["hello"].ComponentInstances[0]
	binding := ci.ClientIfs[0].Bound
	require.NotNil(t, binding)
	assert.Equal(t, "greetd", binding.ServerAgent)
	assert.Equal(t, "greet", binding.ServerIfName)
}

func TestGetApp_DoubleBinding(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "hello.adef"), `
executables:
{
    hello = ( helloComponent )
}

bindings:
{
    hello.helloComponent.greet -> <a>.greet
    hello.helloComponent.greet -> <b>.greet
}
`)

	m := newTestModeller()
	_, err := m.GetApp(testContext(), filepath.Join(dir, "hello.adef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client-side interface 'hello.helloComponent.greet' is already bound.")
}

func TestGetSystem(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "hello.adef"), `
executables:
{
    hello = ( helloComponent )
}

extern:
{
    hello.helloComponent.greet
}
`)
	writeFile(t, filepath.Join(dir, "sys.sdef"), `
apps:
{
    hello
    {
        maxThreads: 10
        preloaded: true
    }
}

commands:
{
    greet = hello:/bin/hello
}
`)

	m := newTestModeller()
	sys, err := m.GetSystem(testContext(), filepath.Join(dir, "sys.sdef"))
	require.NoError(t, err)

	assert.Equal(t, "sys", sys.Name)
	app := sys.Apps["hello"]
	require.NotNil(t, app)
	assert.Equal(t, 10, app.MaxThreads)
	assert.True(t, app.IsPreloaded)

	cmd := sys.Commands["greet"]
	require.NotNil(t, cmd)
	assert.Equal(t, "hello", cmd.AppName)
	assert.Equal(t, "/bin/hello", cmd.ExePath)
}

func TestGetSystem_CommandForUnknownApp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sys.sdef"), `
commands:
{
    greet = hello:/bin/hello
}
`)

	m := newTestModeller()
	_, err := m.GetSystem(testContext(), filepath.Join(dir, "sys.sdef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Command 'greet' references app 'hello', which is not in the system.")
}

func TestGetSystem_MissingApp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sys.sdef"), "apps: { ghost }\n")

	m := newTestModeller()
	_, err := m.GetSystem(testContext(), filepath.Join(dir, "sys.sdef"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can't find app definition file 'ghost'.")
}

func TestGetSystem_Bindings(t *testing.T) {
	dir := t.TempDir()
	writeHelloWorkspace(t, dir)
	writeFile(t, filepath.Join(dir, "hello.adef"), `
executables:
{
    hello = ( helloComponent )
}

extern:
{
    hello.helloComponent.greet
}
`)
	writeFile(t, filepath.Join(dir, "sys.sdef"), `
apps:
{
    hello
}

bindings:
{
    hello.greet -> <greetd>.greeting
}
`)

	m := newTestModeller()
	sys, err := m.GetSystem(testContext(), filepath.Join(dir, "sys.sdef"))
	require.NoError(t, err)

	app := sys.Apps["hello"]
	binding := app.Executables["hello"].ComponentInstances[0].ClientIfs[0].Bound
	require.NotNil(t, binding)
	assert.Equal(t, "greetd", binding.ServerAgent)
	assert.Equal(t, "greeting", binding.ServerIfName)
}
