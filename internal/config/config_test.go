package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mkplan/internal/ctxlog"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeWorkspace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mkplan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewBuildParams_Defaults(t *testing.T) {
	params := NewBuildParams()
	assert.Equal(t, "localhost", params.Target)
	assert.Equal(t, "./_build", params.WorkingDir)
	assert.Equal(t, "text", params.LogFormat)
	assert.Equal(t, "cc", params.Toolchain.CCompiler)
}

func TestLoadWorkspace(t *testing.T) {
	path := writeWorkspace(t, `
target = "wp85"

interface_search = ["interfaces", "proto"]
cflags           = "-O2"

toolchain {
  cc      = "arm-linux-gcc"
  sysroot = "/opt/sysroot"
}
`)

	params := NewBuildParams()
	require.NoError(t, LoadWorkspace(testContext(), path, params))

	assert.Equal(t, "wp85", params.Target)
	assert.Equal(t, []string{"interfaces", "proto"}, params.InterfaceDirs)
	assert.Equal(t, "-O2", params.CFlags)
	assert.Equal(t, "arm-linux-gcc", params.Toolchain.CCompiler)
	assert.Equal(t, "/opt/sysroot", params.Toolchain.Sysroot)
	// Unset toolchain entries keep their defaults.
	assert.Equal(t, "c++", params.Toolchain.CxxCompiler)
}

func TestLoadWorkspace_FlagsWin(t *testing.T) {
	path := writeWorkspace(t, `
target = "wp85"
cflags = "-O2"
`)

	params := NewBuildParams()
	params.Target = "raspi"
	params.CFlags = "-O0 -g"
	params.InterfaceDirs = []string{"cli-dir"}
	require.NoError(t, LoadWorkspace(testContext(), path, params))

	assert.Equal(t, "raspi", params.Target)
	assert.Equal(t, "-O0 -g", params.CFlags)
	// Search paths accumulate instead of overriding.
	assert.Equal(t, []string{"cli-dir"}, params.InterfaceDirs)
}

func TestLoadWorkspace_Defines(t *testing.T) {
	path := writeWorkspace(t, `
defines {
  MKPLAN_TEST_DEFINE   = "from-workspace"
  MKPLAN_TEST_EXISTING = "loser"
  MKPLAN_TEST_NUMERIC  = 42
}
`)

	t.Setenv("MKPLAN_TEST_EXISTING", "winner")
	t.Setenv("MKPLAN_TEST_DEFINE", "")
	require.NoError(t, os.Unsetenv("MKPLAN_TEST_DEFINE"))
	t.Setenv("MKPLAN_TEST_NUMERIC", "")
	require.NoError(t, os.Unsetenv("MKPLAN_TEST_NUMERIC"))

	require.NoError(t, LoadWorkspace(testContext(), path, NewBuildParams()))

	assert.Equal(t, "from-workspace", os.Getenv("MKPLAN_TEST_DEFINE"))
	assert.Equal(t, "winner", os.Getenv("MKPLAN_TEST_EXISTING"))
	assert.Equal(t, "42", os.Getenv("MKPLAN_TEST_NUMERIC"))
}

func TestLoadWorkspace_BadFile(t *testing.T) {
	path := writeWorkspace(t, "target = \n")
	err := LoadWorkspace(testContext(), path, NewBuildParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse workspace file")
}
