package ninjagen

import (
	"fmt"
	"strings"
)

// generateBuildRules writes the fixed tool rules every plan shares:
// compile/link rules bound to the configured toolchain, IPC stub
// generation, file bundling, and the packaging rules. The packaging
// rules shell back into this tool's pack subcommands, which do the
// staging-tree hashing and archive assembly.
func (g *Generator) generateBuildRules() {
	tc := g.params.Toolchain

	sysroot := ""
	if tc.Sysroot != "" {
		sysroot = " --sysroot=" + tc.Sysroot
	}

	fmt.Fprintf(&g.buf,
		"rule CompileC\n"+
			"  description = Compiling C source\n"+
			"  depfile = $out.d\n"+
			"  command = %s%s -MMD -MF $out.d -c $in -o $out -fPIC $cFlags\n"+
			"\n",
		tc.CCompiler, sysroot)

	fmt.Fprintf(&g.buf,
		"rule CompileCxx\n"+
			"  description = Compiling C++ source\n"+
			"  depfile = $out.d\n"+
			"  command = %s%s -MMD -MF $out.d -c $in -o $out -fPIC $cxxFlags\n"+
			"\n",
		tc.CxxCompiler, sysroot)

	fmt.Fprintf(&g.buf,
		"rule GenInterfaceCode\n"+
			"  description = Generating IPC interface code\n"+
			"  command = ifgen --output-dir $outputDir $ifgenFlags $in\n"+
			"\n")

	fmt.Fprintf(&g.buf,
		"rule LinkLib\n"+
			"  description = Linking component library\n"+
			"  command = %s%s -shared -o $out $in $ldFlags\n"+
			"\n",
		tc.Linker, sysroot)

	fmt.Fprintf(&g.buf,
		"rule LinkExe\n"+
			"  description = Linking executable\n"+
			"  command = %s%s -o $out $in $ldFlags\n"+
			"\n",
		tc.Linker, sysroot)

	g.buf.WriteString(
		"rule BundleFile\n" +
			"  description = Bundling file\n" +
			"  command = install -D -m $modeFlags $in $out\n" +
			"\n")

	g.buf.WriteString(
		"rule CopyFile\n" +
			"  description = Copying file\n" +
			"  command = install -D -m 644 $in $out\n" +
			"\n")

	g.buf.WriteString(
		"rule MakeAppInfoProperties\n" +
			"  description = Creating info.properties\n" +
			"  command = $mkplan pack info --staging $workingDir/staging" +
			" --name $name --version $version --output $out\n" +
			"\n")

	g.buf.WriteString(
		"rule PackApp\n" +
			"  description = Packaging app\n" +
			"  command = $mkplan pack update --staging $workingDir/staging" +
			" --name $name --version $version --output $out\n" +
			"\n")

	g.buf.WriteString(
		"rule BinPackApp\n" +
			"  description = Packaging app for distribution\n" +
			"  command = $mkplan pack bin --staging $stagingDir" +
			" --working $workingDir --output $out\n" +
			"\n")

	fmt.Fprintf(&g.buf,
		"rule RegenNinjaScript\n"+
			"  description = Regenerating build plan\n"+
			"  generator = 1\n"+
			"  command = %s\n"+
			"\n",
		commandLine(g.params.Args))

	fmt.Fprintf(&g.buf, "mkplan = %s\n\n", toolPath(g.params.Args))
}

// commandLine reconstructs the invocation for the regeneration rule.
func commandLine(args []string) string {
	if len(args) == 0 {
		return "mkplan"
	}
	return strings.Join(args, " ")
}

func toolPath(args []string) string {
	if len(args) == 0 {
		return "mkplan"
	}
	return args[0]
}
