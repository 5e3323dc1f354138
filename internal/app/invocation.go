package app

import (
	"errors"

	"github.com/vk/mkplan/internal/config"
)

// Mode selects what one invocation does: generate a build plan from a
// definition file, or run one of the pack subcommands the generated plan
// shells back into.
type Mode int

const (
	ModeBuild Mode = iota
	ModePackInfo
	ModePackUpdate
	ModePackBin
)

// Invocation holds everything one run needs. The CLI populates it from
// flags; pack fields are only meaningful in the pack modes.
type Invocation struct {
	Mode    Mode
	DefPath string // .sdef, .adef, or .cdef file, or a directory holding one

	// Workspace is the path of an optional HCL workspace file merged into
	// Params before the pipeline runs.
	Workspace string

	Params *config.BuildParams

	// Pack subcommand arguments.
	Staging string
	Name    string
	Version string
	Working string
	Output  string
}

// NewInvocation validates an invocation built by the CLI.
func NewInvocation(inv Invocation) (*Invocation, error) {
	switch inv.Mode {
	case ModeBuild:
		if inv.DefPath == "" {
			return nil, errors.New("a definition file path is required")
		}
	case ModePackInfo, ModePackUpdate, ModePackBin:
		if inv.Staging == "" {
			return nil, errors.New("--staging is required")
		}
		if inv.Output == "" {
			return nil, errors.New("--output is required")
		}
	}
	if inv.Params == nil {
		inv.Params = config.NewBuildParams()
	}
	return &inv, nil
}
