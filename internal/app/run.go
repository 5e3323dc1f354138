package app

import (
	"context"
	"fmt"

	"github.com/vk/mkplan/internal/binder"
	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/fsutil"
	"github.com/vk/mkplan/internal/modeller"
	"github.com/vk/mkplan/internal/ninjagen"
	"github.com/vk/mkplan/internal/packer"
	"github.com/vk/mkplan/internal/paths"
)

// Run executes one invocation.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	switch a.inv.Mode {
	case ModePackInfo:
		return packer.WriteInfoProperties(a.inv.Staging, a.inv.Name, a.inv.Version,
			a.inv.Params.FrameworkRoot, a.inv.Output)
	case ModePackUpdate:
		return packer.WriteUpdatePack(a.inv.Staging, a.inv.Name, a.inv.Version, a.inv.Output)
	case ModePackBin:
		interfacesDir := ""
		if a.inv.Working != "" {
			interfacesDir = paths.Combine(a.inv.Working, "interfaces")
		}
		return packer.WriteBinPack(a.inv.Staging, interfacesDir, a.inv.Output)
	}
	return a.build(ctx)
}

// build runs the model-and-generate pipeline for the definition file
// kind: parse, model, bind, then serialize the plan.
func (a *App) build(ctx context.Context) error {
	defPath, err := fsutil.ResolveDefFile(a.inv.DefPath)
	if err != nil {
		return err
	}
	a.logger.Info("Generating build plan.", "def", defPath, "target", a.inv.Params.Target)

	m := modeller.New(a.reg, a.inv.Params)
	switch {
	case paths.HasSuffix(defPath, ".sdef"):
		sys, err := m.GetSystem(ctx, defPath)
		if err != nil {
			return err
		}
		if err := binder.EnsureClientInterfacesBound(ctx, sys); err != nil {
			return err
		}
		return ninjagen.GenerateSystem(ctx, sys, a.reg, a.inv.Params)

	case paths.HasSuffix(defPath, ".adef"):
		app, err := m.GetApp(ctx, defPath)
		if err != nil {
			return err
		}
		if err := binder.EnsureClientInterfacesSatisfied(ctx, app); err != nil {
			return err
		}
		return ninjagen.GenerateApp(ctx, app, a.reg, a.inv.Params)

	case paths.HasSuffix(defPath, ".cdef"):
		comp, err := m.GetComponent(ctx, defPath)
		if err != nil {
			return err
		}
		return ninjagen.GenerateComponent(ctx, comp, a.reg, a.inv.Params)
	}
	return fmt.Errorf("unsupported definition file '%s': must be a .sdef, .adef, or .cdef file", defPath)
}
