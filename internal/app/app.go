package app

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/vk/mkplan/internal/config"
	"github.com/vk/mkplan/internal/ctxlog"
	"github.com/vk/mkplan/internal/defs"
)

// App encapsulates one tool run: its logger, its build parameters, and
// the run-scoped definition registry.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	inv    *Invocation
	reg    *defs.Registry
}

// NewApp is the constructor for the tool. It returns a fully initialized
// App instance with its own isolated logger and registry. The workspace
// file, when present, is merged into the build parameters here so every
// later stage sees the final values.
func NewApp(outW io.Writer, inv *Invocation) (*App, error) {
	params := inv.Params
	logger := newLogger(params.LogLevel, params.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	workspace := inv.Workspace
	if workspace == "" {
		if _, err := os.Stat("mkplan.hcl"); err == nil {
			workspace = "mkplan.hcl"
		}
	}
	if workspace != "" {
		if err := config.LoadWorkspace(ctx, workspace, params); err != nil {
			return nil, err
		}
	}

	return &App{
		outW:   outW,
		logger: logger,
		inv:    inv,
		reg:    defs.New(),
	}, nil
}

// Registry returns the run's definition registry. This is primarily for
// testing.
func (a *App) Registry() *defs.Registry {
	return a.reg
}
