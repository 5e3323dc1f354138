// Package config defines the per-invocation build parameters consumed
// read-only by every pipeline stage, and the optional HCL workspace file
// that supplies their defaults.
package config

import "os"

// BuildParams carries everything an invocation needs: the target, the
// search paths, the output layout, pass-through compiler flags, and the
// toolchain executable paths. The CLI populates it from flags; a
// workspace file fills in whatever the flags left unset.
type BuildParams struct {
	Target  string // e.g. "localhost" or "wp85"
	Verbose bool

	LogFormat string // "text" or "json"
	LogLevel  string

	InterfaceDirs []string // .api search paths
	SourceDirs    []string // component source search paths
	AppDirs       []string // .adef search paths
	ComponentDirs []string // .cdef search paths

	LibOutputDir string
	OutputDir    string
	WorkingDir   string
	DebugDir     string // debug symbol output; empty disables symbol splitting

	CFlags   string
	CxxFlags string
	LdFlags  string

	CodeGenOnly      bool
	IsStandAloneComp bool
	BinPack          bool

	// FrameworkRoot is consulted when stamping the framework version into
	// generated info.properties files.
	FrameworkRoot string

	Toolchain Toolchain

	// Args preserves the command line so the generated plan can embed its
	// own regeneration rule.
	Args []string
}

// Toolchain holds the file system paths of the target's tool
// executables.
type Toolchain struct {
	CCompiler   string
	CxxCompiler string
	Sysroot     string
	Linker      string
	Archiver    string
	Assembler   string
	Strip       string
	Objcopy     string
	Readelf     string
}

// NewBuildParams returns build parameters with the defaults applied:
// localhost target, a _build working directory, and the framework root
// taken from the MKPLAN_ROOT environment variable.
func NewBuildParams() *BuildParams {
	return &BuildParams{
		Target:        "localhost",
		LogFormat:     "text",
		LogLevel:      "info",
		WorkingDir:    "./_build",
		FrameworkRoot: os.Getenv("MKPLAN_ROOT"),
		Toolchain: Toolchain{
			CCompiler:   "cc",
			CxxCompiler: "c++",
			Linker:      "cc",
			Archiver:    "ar",
			Assembler:   "as",
			Strip:       "strip",
			Objcopy:     "objcopy",
			Readelf:     "readelf",
		},
	}
}
