// Package binder is the whole-system validation pass over client-side
// interface instances: every required client interface must end up bound
// to a server or be explicitly deferred to a higher scope.
//
// Two privileged service names, the configuration tree (le_cfg) and the
// watchdog (le_wdog), are auto-bound to the root-provided service of the
// same name when left unbound. Auto-binding is idempotent: an interface
// that already carries a binding is never rebound, so validating an app
// standalone and again inside a system yields the same binding set.
package binder

import (
	"context"

	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/errs"
	"github.com/vk/mkplan/internal/model"
)

// rootServices are the interface names auto-bound to the framework's
// root-provided services when an app leaves them unbound.
var rootServices = map[string]bool{
	"le_cfg":  true,
	"le_wdog": true,
}

// bindToRootService gives an unbound client interface a binding to the
// root-provided service of the same name. A no-op when a binding already
// exists.
func bindToRootService(ifInst *model.ClientInterfaceInstance) {
	if ifInst.Bound != nil {
		return
	}
	ifInst.Bound = &model.Binding{
		ClientType:   model.Internal,
		ClientAgent:  ifInst.ComponentInstance.Exe.Name,
		ClientIfName: ifInst.Name,
		ServerType:   model.ExternalUser,
		ServerAgent:  "root",
		ServerIfName: ifInst.Name,
	}
}

// EnsureClientInterfacesBound walks every client interface instance of
// every app in the system. Already-bound cross-app interfaces have their
// targets validated against the system's app and extern-interface
// tables; unbound non-optional interfaces are auto-bound when privileged
// and fatal otherwise.
func EnsureClientInterfacesBound(ctx context.Context, sys *model.System) error {
	ctxlog.FromContext(ctx).Debug("Resolving bindings.", "system", sys.Name)

	for _, app := range sys.SortedApps() {
		err := app.AllClientInterfaces(func(ifInst *model.ClientInterfaceInstance) error {
			return ensureBoundInSystem(sys, app, ifInst)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureBoundInSystem(sys *model.System, app *model.App, ifInst *model.ClientInterfaceInstance) error {
	if ifInst.Decl != nil && (ifInst.Decl.Optional || ifInst.Decl.TypesOnly) {
		return nil
	}

	if ifInst.Bound != nil {
		return checkBindingTarget(sys, app, ifInst)
	}

	if rootServices[ifInst.Name] {
		bindToRootService(ifInst)
		return nil
	}

	fullPath := app.Name + "." + ifInst.FullName()
	if ifInst.ExternMark {
		return errs.Reference(errs.Position{},
			"Client-side interface '%s' is marked as an external interface, but no binding for it exists in the system definition.",
			fullPath)
	}
	return errs.Reference(errs.Position{},
		"Client-side interface '%s' is not bound to anything.", fullPath)
}

// checkBindingTarget validates the server side of an existing binding.
// Only cross-app targets can dangle; internal and user targets were
// resolved when the binding was modelled.
func checkBindingTarget(sys *model.System, app *model.App, ifInst *model.ClientInterfaceInstance) error {
	binding := ifInst.Bound
	if binding.ServerType != model.ExternalApp {
		return nil
	}

	serverApp, ok := sys.Apps[binding.ServerAgent]
	if !ok {
		return errs.Reference(errs.Position{},
			"Binding of client-side interface '%s.%s' to app '%s': app is not in the system.",
			app.Name, ifInst.FullName(), binding.ServerAgent)
	}
	if _, ok := serverApp.ExternServerInterfaces[binding.ServerIfName]; !ok {
		return errs.Reference(errs.Position{},
			"Binding of client-side interface '%s.%s' to server-side interface '%s.%s': app '%s' has no external server-side interface named '%s'.",
			app.Name, ifInst.FullName(),
			binding.ServerAgent, binding.ServerIfName,
			binding.ServerAgent, binding.ServerIfName)
	}
	return nil
}

// EnsureClientInterfacesSatisfied is the app-level counterpart used when
// validating a single app without system context. Privileged interfaces
// are auto-bound the same way; everything else must already be bound or
// extern-marked, since the system-level binder is not available.
func EnsureClientInterfacesSatisfied(ctx context.Context, app *model.App) error {
	ctxlog.FromContext(ctx).Debug("Checking client interfaces.", "app", app.Name)

	return app.AllClientInterfaces(func(ifInst *model.ClientInterfaceInstance) error {
		if ifInst.Decl != nil && (ifInst.Decl.Optional || ifInst.Decl.TypesOnly) {
			return nil
		}
		if ifInst.Bound != nil {
			return nil
		}
		if rootServices[ifInst.Name] {
			bindToRootService(ifInst)
			return nil
		}
		if ifInst.ExternMark {
			return nil
		}
		return errs.Reference(errs.Position{},
			"Client-side interface '%s.%s' is not bound to anything.",
			app.Name, ifInst.FullName())
	})
}
