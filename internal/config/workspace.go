package config

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/mkplan/internal/ctxlog"
)

// workspaceRoot is the top-level shape of an mkplan.hcl workspace file.
type workspaceRoot struct {
	Target *string `hcl:"target,attr"`

	InterfaceSearch []string `hcl:"interface_search,optional"`
	SourceSearch    []string `hcl:"source_search,optional"`
	AppSearch       []string `hcl:"app_search,optional"`
	ComponentSearch []string `hcl:"component_search,optional"`

	CFlags   *string `hcl:"cflags,attr"`
	CxxFlags *string `hcl:"cxxflags,attr"`
	LdFlags  *string `hcl:"ldflags,attr"`

	FrameworkRoot *string `hcl:"framework_root,attr"`

	Toolchain *toolchainBlock `hcl:"toolchain,block"`
	Defines   *definesBlock   `hcl:"defines,block"`

	Remain hcl.Body `hcl:",remain"`
}

type toolchainBlock struct {
	CCompiler   *string `hcl:"cc,attr"`
	CxxCompiler *string `hcl:"cxx,attr"`
	Sysroot     *string `hcl:"sysroot,attr"`
	Linker      *string `hcl:"ld,attr"`
	Archiver    *string `hcl:"ar,attr"`
	Assembler   *string `hcl:"as,attr"`
	Strip       *string `hcl:"strip,attr"`
	Objcopy     *string `hcl:"objcopy,attr"`
	Readelf     *string `hcl:"readelf,attr"`
}

// definesBlock carries free-form name = value pairs that are exported
// into the process environment before definition files are modelled, so
// they are visible to $NAME substitution.
type definesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// LoadWorkspace reads an HCL workspace file and merges it into params.
// Values already set on params (by command-line flags) win; the
// workspace only fills gaps.
func LoadWorkspace(ctx context.Context, path string, params *BuildParams) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading workspace file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse workspace file %s: %w", path, diags)
	}

	var root workspaceRoot
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode workspace file %s: %w", path, diags)
	}

	setString := func(dst *string, src *string, dflt string) {
		if src != nil && (*dst == "" || *dst == dflt) {
			*dst = *src
		}
	}

	setString(&params.Target, root.Target, "localhost")
	setString(&params.CFlags, root.CFlags, "")
	setString(&params.CxxFlags, root.CxxFlags, "")
	setString(&params.LdFlags, root.LdFlags, "")
	setString(&params.FrameworkRoot, root.FrameworkRoot, "")

	params.InterfaceDirs = append(params.InterfaceDirs, root.InterfaceSearch...)
	params.SourceDirs = append(params.SourceDirs, root.SourceSearch...)
	params.AppDirs = append(params.AppDirs, root.AppSearch...)
	params.ComponentDirs = append(params.ComponentDirs, root.ComponentSearch...)

	if root.Toolchain != nil {
		tc := root.Toolchain
		setString(&params.Toolchain.CCompiler, tc.CCompiler, "cc")
		setString(&params.Toolchain.CxxCompiler, tc.CxxCompiler, "c++")
		setString(&params.Toolchain.Sysroot, tc.Sysroot, "")
		setString(&params.Toolchain.Linker, tc.Linker, "cc")
		setString(&params.Toolchain.Archiver, tc.Archiver, "ar")
		setString(&params.Toolchain.Assembler, tc.Assembler, "as")
		setString(&params.Toolchain.Strip, tc.Strip, "strip")
		setString(&params.Toolchain.Objcopy, tc.Objcopy, "objcopy")
		setString(&params.Toolchain.Readelf, tc.Readelf, "readelf")
	}

	if root.Defines != nil {
		if err := exportDefines(root.Defines.Body); err != nil {
			return fmt.Errorf("invalid defines block in %s: %w", path, err)
		}
	}

	logger.Debug("Workspace file applied.", "target", params.Target)
	return nil
}

// exportDefines evaluates each attribute of a defines block to a string
// and publishes it as an environment variable for $NAME substitution.
// Existing environment variables are not overridden, so the caller's
// environment stays authoritative.
func exportDefines(body hcl.Body) error {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("%w", diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("evaluating '%s': %w", name, diags)
		}
		strVal, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("define '%s' is not convertible to a string: %w", name, err)
		}
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, strVal.AsString()); err != nil {
			return fmt.Errorf("exporting define '%s': %w", name, err)
		}
	}
	return nil
}
