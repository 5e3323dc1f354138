package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mkplan/internal/app"
)

func TestParse_Build(t *testing.T) {
	var out bytes.Buffer
	inv, done, err := Parse([]string{
		"--target", "wp85",
		"-w", "build",
		"-i", "interfaces",
		"-i", "proto",
		"-c", "components",
		"--cflags", "-O2",
		"--bin-pack",
		"sys.sdef",
	}, &out)
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, inv)

	assert.Equal(t, app.ModeBuild, inv.Mode)
	assert.Equal(t, "sys.sdef", inv.DefPath)
	assert.Equal(t, "wp85", inv.Params.Target)
	assert.Equal(t, "build", inv.Params.WorkingDir)
	assert.Equal(t, []string{"interfaces", "proto"}, inv.Params.InterfaceDirs)
	assert.Equal(t, []string{"components"}, inv.Params.ComponentDirs)
	assert.Equal(t, "-O2", inv.Params.CFlags)
	assert.True(t, inv.Params.BinPack)
}

func TestParse_NoPathShowsUsage(t *testing.T) {
	var out bytes.Buffer
	inv, done, err := Parse(nil, &out)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, inv)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_VerboseImpliesDebug(t *testing.T) {
	var out bytes.Buffer
	inv, _, err := Parse([]string{"-v", "hello.adef"}, &out)
	require.NoError(t, err)
	assert.True(t, inv.Params.Verbose)
	assert.Equal(t, "debug", inv.Params.LogLevel)
}

func TestParse_InvalidLogSettings(t *testing.T) {
	var out bytes.Buffer

	_, _, err := Parse([]string{"--log-format", "xml", "hello.adef"}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, "invalid log-format: must be 'text' or 'json'", exitErr.Message)

	_, _, err = Parse([]string{"--log-level", "loud", "hello.adef"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "invalid log-level: must be 'debug', 'info', 'warn', or 'error'", exitErr.Message)
}

func TestParse_UnknownFlag(t *testing.T) {
	var out bytes.Buffer
	_, _, err := Parse([]string{"--no-such-flag"}, &out)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_Pack(t *testing.T) {
	var out bytes.Buffer
	inv, done, err := Parse([]string{
		"pack", "update",
		"--staging", "_build/app/hello/staging",
		"--name", "hello",
		"--version", "1.0",
		"--output", "hello.update",
	}, &out)
	require.NoError(t, err)
	require.False(t, done)

	assert.Equal(t, app.ModePackUpdate, inv.Mode)
	assert.Equal(t, "_build/app/hello/staging", inv.Staging)
	assert.Equal(t, "hello", inv.Name)
	assert.Equal(t, "1.0", inv.Version)
	assert.Equal(t, "hello.update", inv.Output)
}

func TestParse_PackErrors(t *testing.T) {
	var out bytes.Buffer
	var exitErr *ExitError

	_, _, err := Parse([]string{"pack"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "pack requires a subcommand: 'info', 'update', or 'bin'", exitErr.Message)

	_, _, err = Parse([]string{"pack", "zip"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "unknown pack subcommand 'zip'", exitErr.Message)

	_, _, err = Parse([]string{"pack", "info", "--output", "x"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "--staging is required", exitErr.Message)

	_, _, err = Parse([]string{"pack", "info", "--staging", "x"}, &out)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "--output is required", exitErr.Message)
}
