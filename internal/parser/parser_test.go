package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/mkplan/internal/lexer"
	"github.com/vk/mkplan/internal/parsetree"
)

func parseAdefText(t *testing.T, src string) (*parsetree.AdefFile, error) {
	t.Helper()
	return ParseAdef(lexer.New("test.adef", src))
}

func TestParseAdef_SectionForms(t *testing.T) {
	src := `
// A small but structurally complete app definition.
version: 1.0.0
sandboxed: false
start: manual
maxThreads: 40

components:
{
    helloComponent
}

executables:
{
    hello = ( helloComponent )
}

processes:
{
    envVars:
    {
        LE_LOG_LEVEL = DEBUG
    }
    run:
    {
        ( hello --fast )
        watcher = ( hello --slow )
    }
    faultAction: restart
    priority: medium
}
`
	adef, err := parseAdefText(t, src)
	require.NoError(t, err)
	require.Len(t, adef.Sections, 7)

	version, ok := adef.Sections[0].(*parsetree.SimpleSection)
	require.True(t, ok)
	assert.Equal(t, "version", version.Name.Text)
	assert.Equal(t, "1.0.0", version.Text.Text)

	components, ok := adef.Sections[4].(*parsetree.TokenListSection)
	require.True(t, ok)
	require.Len(t, components.Tokens, 1)
	assert.Equal(t, "helloComponent", components.Tokens[0].Text)

	executables, ok := adef.Sections[5].(*parsetree.ComplexSection)
	require.True(t, ok)
	require.Len(t, executables.Items, 1)
	exe, ok := executables.Items[0].(*parsetree.CompoundItem)
	require.True(t, ok)
	assert.Equal(t, "hello", exe.Name.Text)
	assert.Equal(t, "helloComponent", parsetree.JoinText(exe.Tokens))

	processes, ok := adef.Sections[6].(*parsetree.ComplexSection)
	require.True(t, ok)
	require.Len(t, processes.Items, 4)
	run, ok := processes.Items[1].(*parsetree.ComplexSection)
	require.True(t, ok)
	require.Len(t, run.Items, 2)
	anon, ok := run.Items[0].(*parsetree.TokenList)
	require.True(t, ok)
	assert.Equal(t, "hello --fast", parsetree.JoinText(anon.Tokens))
	named, ok := run.Items[1].(*parsetree.CompoundItem)
	require.True(t, ok)
	assert.Equal(t, "watcher", named.Name.Text)
}

func TestParseAdef_UnrecognizedKeyword(t *testing.T) {
	_, err := parseAdefText(t, "nonsense: 42\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unrecognized keyword 'nonsense'.")
}

func TestParseAdef_PrematureEOF(t *testing.T) {
	_, err := parseAdefText(t, "groups:\n{\n    www-data\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected end-of-file before end of 'groups' section starting at line 1 character 0.")
}

func TestParsePriority(t *testing.T) {
	testCases := []struct {
		value string
		valid bool
	}{
		{"idle", true},
		{"low", true},
		{"medium", true},
		{"high", true},
		{"rt1", true},
		{"rt32", true},
		{"rt0", false},
		{"rt33", false},
		{"urgent", false},
	}

	for _, tc := range testCases {
		t.Run(tc.value, func(t *testing.T) {
			_, err := parseAdefText(t, "processes: { priority: "+tc.value+" }\n")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "'"+tc.value+"' is not a valid thread priority")
			}
		})
	}
}

func TestParseWatchdogTimeout(t *testing.T) {
	testCases := []struct {
		name    string
		value   string
		valid   bool
		errText string
	}{
		{"plain integer", "30000", true, ""},
		{"K suffix", "30K", true, ""},
		{"never", "never", true, ""},
		{"other word", "forever", false, "'forever' is not a valid watchdog timeout. Must be an integer or 'never'."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseAdefText(t, "watchdogTimeout: "+tc.value+"\n")
			if tc.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
			}
		})
	}
}

func TestParseFaultAction(t *testing.T) {
	_, err := parseAdefText(t, "processes: { faultAction: explode }\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(),
		"'explode' is not a valid fault action. Must be 'ignore', 'restart', 'restartApp', 'stopApp', or 'reboot'.")

	_, err = parseAdefText(t, "processes: { watchdogAction: stop }\n")
	assert.NoError(t, err)

	_, err = parseAdefText(t, "processes: { faultAction: stop }\n")
	require.Error(t, err)
}

func TestParseBindings(t *testing.T) {
	src := `
bindings:
{
    hello.helloComponent.le_out -> logger.logComponent.le_in
    client -> otherApp.service
    hello.helloComponent.cfg -> <root>.le_cfg
    *.preBuilt -> srv.s.api
}
`
	adef, err := parseAdefText(t, src)
	require.NoError(t, err)
	bindings := adef.Sections[0].(*parsetree.ComplexSection)
	require.Len(t, bindings.Items, 4)

	internal := bindings.Items[0].(*parsetree.TokenList)
	assert.Equal(t, "hello . helloComponent . le_out -> logger . logComponent . le_in",
		parsetree.JoinText(internal.Tokens))

	user := bindings.Items[2].(*parsetree.TokenList)
	assert.Equal(t, "hello . helloComponent . cfg -> <root> . le_cfg",
		parsetree.JoinText(user.Tokens))

	star := bindings.Items[3].(*parsetree.TokenList)
	assert.Equal(t, parsetree.Star, star.Tokens[0].Type)
}

func TestParseCdef(t *testing.T) {
	src := `
sources:
{
    hello.c
    util.cpp
}

cflags:
{
    -DDEBUG=1
}

bundles:
{
    file:
    {
        [rx] scripts/run.sh /bin/run.sh
        data/logo.png /usr/share/logo.png
    }
}

provides:
{
    api:
    {
        greet = interfaces/greet.api [async]
    }
}

requires:
{
    api:
    {
        le_cfg.api [optional]
    }
    lib:
    {
        m
    }
    component:
    {
        subComp
    }
}
`
	cdef, err := ParseCdef(lexer.New("Component.cdef", src))
	require.NoError(t, err)
	require.Len(t, cdef.Sections, 5)

	bundles := cdef.Sections[2].(*parsetree.ComplexSection)
	file := bundles.Items[0].(*parsetree.ComplexSection)
	require.Len(t, file.Items, 2)
	withPerms := file.Items[0].(*parsetree.TokenList)
	assert.Equal(t, parsetree.FilePermissions, withPerms.Tokens[0].Type)
	assert.Equal(t, "[rx]", withPerms.Tokens[0].Text)
	require.Len(t, withPerms.Tokens, 3)

	provides := cdef.Sections[3].(*parsetree.ComplexSection)
	api := provides.Items[0].(*parsetree.ComplexSection)
	item := api.Items[0].(*parsetree.TokenList)
	assert.Equal(t, "greet = interfaces/greet.api [async]", parsetree.JoinText(item.Tokens))
}

func TestParseCdef_BadSubsections(t *testing.T) {
	_, err := ParseCdef(lexer.New("c.cdef", "bundles: { blob: { } }\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Must be 'file' or 'dir'.")

	_, err = ParseCdef(lexer.New("c.cdef", "provides: { file: { } }\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected subsection name 'file' in 'provides' section.")
}

func TestParseSdef(t *testing.T) {
	src := `
interfaceSearch:
{
    interfaces
}

apps:
{
    apps/hello
    apps/tuned
    {
        maxThreads: 10
        preloaded: 0123456789abcdef0123456789abcdef
        groups: { operators }
    }
}

bindings:
{
    hello.greet -> tuned.greeting
}

commands:
{
    greet = hello:/bin/hello
}
`
	sdef, err := ParseSdef(lexer.New("sys.sdef", src))
	require.NoError(t, err)
	require.Len(t, sdef.Sections, 4)

	apps := sdef.Sections[1].(*parsetree.ComplexSection)
	require.Len(t, apps.Items, 2)
	plain := apps.Items[0].(*parsetree.ComplexSection)
	assert.Equal(t, "apps/hello", plain.Name.Text)
	assert.Empty(t, plain.Items)

	tuned := apps.Items[1].(*parsetree.ComplexSection)
	require.Len(t, tuned.Items, 3)
	preloaded := tuned.Items[1].(*parsetree.SimpleSection)
	assert.Equal(t, parsetree.Md5Hash, preloaded.Text.Type)

	commands := sdef.Sections[3].(*parsetree.ComplexSection)
	cmd := commands.Items[0].(*parsetree.TokenList)
	require.Len(t, cmd.Tokens, 3)
	assert.Equal(t, "greet", cmd.Tokens[0].Text)
	assert.Equal(t, "hello", cmd.Tokens[1].Text)
	assert.Equal(t, "/bin/hello", cmd.Tokens[2].Text)
}

func TestParseSdef_BadOverride(t *testing.T) {
	_, err := ParseSdef(lexer.New("s.sdef", "apps: { a { bundles: { } } }\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected app override 'bundles'.")
}

func TestParse_Deterministic(t *testing.T) {
	src := "groups: { web audio }\nversion: 2.0\n"
	first, err := parseAdefText(t, src)
	require.NoError(t, err)
	second, err := parseAdefText(t, src)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
