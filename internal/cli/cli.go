package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vk/mkplan/internal/app"
	"github.com/vk/mkplan/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated
// Invocation, a boolean indicating if the program should exit cleanly,
// or an ExitError.
func Parse(args []string, output io.Writer) (*app.Invocation, bool, error) {
	if len(args) > 0 && args[0] == "pack" {
		return parsePack(args[1:], output)
	}

	flagSet := flag.NewFlagSet("mkplan", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
mkplan - Generates ninja build plans for component-based applications.

Usage:
  mkplan [options] DEF_PATH

Arguments:
  DEF_PATH
    Path to a .sdef, .adef, or .cdef file, or a directory containing one.

Options:
`)
		flagSet.PrintDefaults()
	}

	params := config.NewBuildParams()

	targetFlag := flagSet.String("target", params.Target, "Target device to build for.")
	tFlag := flagSet.String("t", "", "Target device to build for (shorthand).")
	workDirFlag := flagSet.String("w", params.WorkingDir, "Working directory for build artifacts.")
	outputDirFlag := flagSet.String("o", "", "Output directory for packaged apps.")
	libOutputDirFlag := flagSet.String("l", "", "Output directory for built libraries.")
	debugDirFlag := flagSet.String("d", "", "Debug symbol output directory. Empty disables symbol splitting.")

	var interfaceDirs, sourceDirs, appDirs, componentDirs multiFlag
	flagSet.Var(&interfaceDirs, "i", "Interface definition (.api) search directory. Repeatable.")
	flagSet.Var(&sourceDirs, "s", "Source file search directory. Repeatable.")
	flagSet.Var(&appDirs, "a", "App definition (.adef) search directory. Repeatable.")
	flagSet.Var(&componentDirs, "c", "Component search directory. Repeatable.")

	cFlagsFlag := flagSet.String("cflags", "", "Extra flags for the C compiler.")
	cxxFlagsFlag := flagSet.String("cxxflags", "", "Extra flags for the C++ compiler.")
	ldFlagsFlag := flagSet.String("ldflags", "", "Extra flags for the linker.")

	codeGenFlag := flagSet.Bool("g", false, "Generate code only; emit no build statements.")
	binPackFlag := flagSet.Bool("bin-pack", false, "Also produce a binary-redistribution pack.")
	standAloneFlag := flagSet.Bool("stand-alone", false, "Build a component stand-alone.")

	workspaceFlag := flagSet.String("workspace", "", "HCL workspace file. Defaults to ./mkplan.hcl when present.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	verboseFlag := flagSet.Bool("v", false, "Verbose output (same as --log-level debug).")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *verboseFlag {
		logLevel = "debug"
	}

	params.Target = *targetFlag
	if *tFlag != "" {
		params.Target = *tFlag
	}
	params.Verbose = *verboseFlag
	params.LogFormat = logFormat
	params.LogLevel = logLevel
	params.InterfaceDirs = interfaceDirs
	params.SourceDirs = sourceDirs
	params.AppDirs = appDirs
	params.ComponentDirs = componentDirs
	params.WorkingDir = *workDirFlag
	params.OutputDir = *outputDirFlag
	params.LibOutputDir = *libOutputDirFlag
	params.DebugDir = *debugDirFlag
	params.CFlags = *cFlagsFlag
	params.CxxFlags = *cxxFlagsFlag
	params.LdFlags = *ldFlagsFlag
	params.CodeGenOnly = *codeGenFlag
	params.BinPack = *binPackFlag
	params.IsStandAloneComp = *standAloneFlag
	params.Args = append([]string{os.Args[0]}, args...)

	inv, err := app.NewInvocation(app.Invocation{
		Mode:      app.ModeBuild,
		DefPath:   path,
		Workspace: *workspaceFlag,
		Params:    params,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return inv, false, nil
}

// parsePack handles the pack subcommands the generated build plan
// invokes: `pack info`, `pack update`, and `pack bin`.
func parsePack(args []string, output io.Writer) (*app.Invocation, bool, error) {
	if len(args) == 0 {
		return nil, false, &ExitError{Code: 2, Message: "pack requires a subcommand: 'info', 'update', or 'bin'"}
	}

	var mode app.Mode
	switch args[0] {
	case "info":
		mode = app.ModePackInfo
	case "update":
		mode = app.ModePackUpdate
	case "bin":
		mode = app.ModePackBin
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown pack subcommand '%s'", args[0])}
	}

	flagSet := flag.NewFlagSet("mkplan pack "+args[0], flag.ContinueOnError)
	flagSet.SetOutput(output)

	stagingFlag := flagSet.String("staging", "", "App staging directory.")
	nameFlag := flagSet.String("name", "", "App name.")
	versionFlag := flagSet.String("version", "", "App version.")
	workingFlag := flagSet.String("working", "", "App working directory.")
	outputFlag := flagSet.String("output", "", "Output file path.")

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	inv, err := app.NewInvocation(app.Invocation{
		Mode:    mode,
		Params:  config.NewBuildParams(),
		Staging: *stagingFlag,
		Name:    *nameFlag,
		Version: *versionFlag,
		Working: *workingFlag,
		Output:  *outputFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return inv, false, nil
}
