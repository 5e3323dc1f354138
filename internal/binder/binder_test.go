package binder

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/model"
	"github.com/vk/mkplan/internal/parsetree"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

// newTestApp builds an app with one executable holding one component
// instance and a client interface per given name.
func newTestApp(name string, clientIfNames ...string) *model.App {
	app := model.NewApp(&parsetree.AdefFile{
		DefFile: parsetree.DefFile{Path: "/proj/" + name + ".adef"},
	})
	exe := &model.Executable{Name: "main", App: app}
	ci := &model.ComponentInstance{
		Component: &model.Component{Name: "comp"},
		Exe:       exe,
	}
	for _, ifName := range clientIfNames {
		ci.ClientIfs = append(ci.ClientIfs, &model.ClientInterfaceInstance{
			ComponentInstance: ci,
			Decl:              &model.ApiClientInterface{InternalName: ifName},
			Name:              ifName,
		})
	}
	exe.ComponentInstances = append(exe.ComponentInstances, ci)
	app.Executables[exe.Name] = exe
	return app
}

func clientIf(app *model.App, name string) *model.ClientInterfaceInstance {
	for _, ci := range app.Executables["main"].ComponentInstances[0].ClientIfs {
		if ci.Name == name {
			return ci
		}
	}
	return nil
}

func newTestSystem(apps ...*model.App) *model.System {
	sys := model.NewSystem(&parsetree.SdefFile{
		DefFile: parsetree.DefFile{Path: "/proj/sys.sdef"},
	})
	for _, app := range apps {
		sys.Apps[app.Name] = app
	}
	return sys
}

func TestEnsureClientInterfacesSatisfied_AutoBindsRootServices(t *testing.T) {
	app := newTestApp("hello", "le_cfg", "le_wdog")

	require.NoError(t, EnsureClientInterfacesSatisfied(testContext(), app))

	for _, name := range []string{"le_cfg", "le_wdog"} {
		binding := clientIf(app, name).Bound
		require.NotNil(t, binding, name)
		assert.Equal(t, model.ExternalUser, binding.ServerType)
		assert.Equal(t, "root", binding.ServerAgent)
		assert.Equal(t, name, binding.ServerIfName)
	}
}

func TestEnsureClientInterfacesSatisfied_AutoBindIsIdempotent(t *testing.T) {
	app := newTestApp("hello", "le_cfg")

	require.NoError(t, EnsureClientInterfacesSatisfied(testContext(), app))
	first := clientIf(app, "le_cfg").Bound
	require.NotNil(t, first)

	// Validating again, as happens when the app is built standalone and
	// then as part of a system, must not rebind.
	sys := newTestSystem(app)
	require.NoError(t, EnsureClientInterfacesBound(testContext(), sys))
	assert.Same(t, first, clientIf(app, "le_cfg").Bound)
}

func TestEnsureClientInterfacesSatisfied_Unbound(t *testing.T) {
	app := newTestApp("hello", "foo")

	err := EnsureClientInterfacesSatisfied(testContext(), app)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client-side interface 'hello.main.comp.foo' is not bound to anything.")
}

func TestEnsureClientInterfacesSatisfied_ExternDefersBinding(t *testing.T) {
	app := newTestApp("hello", "foo")
	clientIf(app, "foo").ExternMark = true

	require.NoError(t, EnsureClientInterfacesSatisfied(testContext(), app))
	assert.Nil(t, clientIf(app, "foo").Bound)
}

func TestEnsureClientInterfacesSatisfied_OptionalAndTypesOnly(t *testing.T) {
	app := newTestApp("hello", "maybe", "defs")
	clientIf(app, "maybe").Decl.Optional = true
	clientIf(app, "defs").Decl.TypesOnly = true

	require.NoError(t, EnsureClientInterfacesSatisfied(testContext(), app))
	assert.Nil(t, clientIf(app, "maybe").Bound)
	assert.Nil(t, clientIf(app, "defs").Bound)
}

func TestEnsureClientInterfacesBound_ExternUnboundIsFatal(t *testing.T) {
	app := newTestApp("hello", "foo")
	clientIf(app, "foo").ExternMark = true
	sys := newTestSystem(app)

	err := EnsureClientInterfacesBound(testContext(), sys)
	require.Error(t, err)
	assert.Contains(t, err.Error(),
		"Client-side interface 'hello.main.comp.foo' is marked as an external interface, but no binding for it exists in the system definition.")
}

func TestEnsureClientInterfacesBound_ValidCrossAppBinding(t *testing.T) {
	client := newTestApp("client", "svc")
	server := newTestApp("server")
	server.ExternServerInterfaces["svc"] = &model.ServerInterfaceInstance{Name: "svc"}
	clientIf(client, "svc").Bound = &model.Binding{
		ClientType:   model.Internal,
		ClientAgent:  "main",
		ClientIfName: "svc",
		ServerType:   model.ExternalApp,
		ServerAgent:  "server",
		ServerIfName: "svc",
	}
	sys := newTestSystem(client, server)

	assert.NoError(t, EnsureClientInterfacesBound(testContext(), sys))
}

func TestEnsureClientInterfacesBound_DanglingAppTarget(t *testing.T) {
	client := newTestApp("client", "svc")
	clientIf(client, "svc").Bound = &model.Binding{
		ClientType:   model.Internal,
		ServerType:   model.ExternalApp,
		ServerAgent:  "ghost",
		ServerIfName: "svc",
	}
	sys := newTestSystem(client)

	err := EnsureClientInterfacesBound(testContext(), sys)
	require.Error(t, err)
	assert.Contains(t, err.Error(),
		"Binding of client-side interface 'client.main.comp.svc' to app 'ghost': app is not in the system.")
}

func TestEnsureClientInterfacesBound_MissingExternServerInterface(t *testing.T) {
	client := newTestApp("client", "svc")
	server := newTestApp("server")
	clientIf(client, "svc").Bound = &model.Binding{
		ClientType:   model.Internal,
		ServerType:   model.ExternalApp,
		ServerAgent:  "server",
		ServerIfName: "svc",
	}
	sys := newTestSystem(client, server)

	err := EnsureClientInterfacesBound(testContext(), sys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app 'server' has no external server-side interface named 'svc'.")
}

func TestEnsureClientInterfacesBound_UserTargetNeedsNoValidation(t *testing.T) {
	client := newTestApp("client", "svc")
	clientIf(client, "svc").Bound = &model.Binding{
		ClientType:   model.Internal,
		ServerType:   model.ExternalUser,
		ServerAgent:  "daemon",
		ServerIfName: "svc",
	}
	sys := newTestSystem(client)

	assert.NoError(t, EnsureClientInterfacesBound(testContext(), sys))
}
