package bearsslbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sourceTree lays out a minimal BearSSL-shaped tree.
func sourceTree(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inc", "bearssl.h"), "")
	for _, f := range files {
		writeFile(t, filepath.Join(dir, filepath.FromSlash(f)), "int x;\n")
	}
	return dir
}

// archivingRunner succeeds for every command and creates the file named
// after "crs", as ar would.
func archivingRunner() *fakeRunner {
	return &fakeRunner{Handle: func(c Command) (string, error) {
		if len(c.Args) > 1 && c.Args[0] == "crs" {
			return "", os.WriteFile(c.Args[1], []byte("!<arch>\n"), 0o644)
		}
		return "", nil
	}}
}

func TestDirectBuilder_Build(t *testing.T) {
	onPath(t, "cc", "ar")
	src := sourceTree(t, "src/codec/ccopy.c", "src/hash/sha2small.c", "src/settings.c", "src/inner.h")
	out := t.TempDir()
	runner := archivingRunner()
	cfg := &Config{OutDir: out, HostOS: "linux", CFlags: []string{"-DBR_USE_URANDOM=1"}}

	result, err := (&DirectBuilder{Runner: runner}).Build(context.Background(), cfg, src)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{filepath.Join(out, "libbearssl.a")}, result.Artifacts)
	assert.Equal(t, []string{out}, result.Directives.SearchPaths)
	assert.False(t, result.Directives.RelaxedUndefined)

	cmds := runner.Commands()
	require.Len(t, cmds, 4, "three compiles and one archive")

	var compiled []string
	for _, c := range cmds[:3] {
		assert.Equal(t, "cc", c.Name)
		assert.Contains(t, c.Args, "-Os")
		assert.Contains(t, c.Args, "-fPIC")
		assert.Contains(t, c.Args, "-DBR_USE_URANDOM=1")
		assert.Equal(t, filepath.Join(src, "inc"), argAfter(c.Args, "-I"))
		compiled = append(compiled, c.Args[len(c.Args)-1])
	}
	assert.Equal(t, []string{
		filepath.Join(src, "src", "codec", "ccopy.c"),
		filepath.Join(src, "src", "hash", "sha2small.c"),
		filepath.Join(src, "src", "settings.c"),
	}, compiled)

	ar := cmds[3]
	assert.Equal(t, "ar", ar.Name)
	assert.Equal(t, []string{
		"crs",
		filepath.Join(out, "libbearssl.a"),
		filepath.Join(out, "obj", "codec_ccopy.o"),
		filepath.Join(out, "obj", "hash_sha2small.o"),
		filepath.Join(out, "obj", "settings.o"),
	}, ar.Args)
}

func TestDirectBuilder_ToolOverrides(t *testing.T) {
	src := sourceTree(t, "src/a.c")
	runner := archivingRunner()
	cfg := &Config{OutDir: t.TempDir(), HostOS: "darwin", CC: "ccache clang", AR: "llvm-ar"}

	result, err := (&DirectBuilder{Runner: runner}).Build(context.Background(), cfg, src)
	require.NoError(t, err)
	assert.True(t, result.Directives.RelaxedUndefined)

	cmds := runner.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "ccache", cmds[0].Name)
	assert.Equal(t, "clang", cmds[0].Args[0])
	assert.Equal(t, "llvm-ar", cmds[1].Name)
}

func TestDirectBuilder_RunsFoundAlternatives(t *testing.T) {
	onPath(t, "gcc", "llvm-ar")
	src := sourceTree(t, "src/a.c")
	runner := archivingRunner()
	cfg := &Config{OutDir: t.TempDir(), HostOS: "linux"}
	b := &DirectBuilder{Runner: runner}

	require.NoError(t, b.CheckTools(cfg))
	_, err := b.Build(context.Background(), cfg, src)
	require.NoError(t, err)

	cmds := runner.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "gcc", cmds[0].Name)
	assert.Equal(t, "llvm-ar", cmds[1].Name)
}

func TestDirectBuilder_NoSources(t *testing.T) {
	src := sourceTree(t)
	runner := &fakeRunner{}

	result, err := (&DirectBuilder{Runner: runner}).Build(context.Background(), &Config{OutDir: t.TempDir()}, src)

	var patErr *PatternError
	require.ErrorAs(t, err, &patErr)
	assert.ErrorIs(t, err, ErrNoMatches)
	assert.True(t, strings.HasSuffix(patErr.Pattern, "/src/**/*.c"), patErr.Pattern)
	assert.False(t, result.Success)
	assert.Empty(t, runner.Commands(), "nothing is compiled when the glob is empty")
}

func TestDirectBuilder_BadPattern(t *testing.T) {
	src := sourceTree(t, "src/a.c")

	_, err := (&DirectBuilder{Runner: &fakeRunner{}, Pattern: "src/[.c"}).Build(context.Background(), &Config{OutDir: t.TempDir()}, src)

	var patErr *PatternError
	require.ErrorAs(t, err, &patErr)
	assert.ErrorIs(t, err, doublestar.ErrBadPattern)
}

func TestDirectBuilder_CompilerFailure(t *testing.T) {
	src := sourceTree(t, "src/a.c", "src/b.c")
	runner := &fakeRunner{Handle: func(c Command) (string, error) {
		if strings.HasSuffix(c.Args[len(c.Args)-1], "a.c") {
			return "a.c:1:1: error: boom\n", exitWith(c, 3, "a.c:1:1: error: boom\n")
		}
		return "", nil
	}}

	result, err := (&DirectBuilder{Runner: runner}).Build(context.Background(), &Config{OutDir: t.TempDir()}, src)

	var exitErr *ExitStatusError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitStatus())
	assert.Contains(t, err.Error(), "a.c:1:1: error: boom")
	assert.False(t, result.Success)
	assert.Len(t, runner.Commands(), 1, "the build stops at the first failing unit")
}

func TestDirectBuilder_ArchiveMissing(t *testing.T) {
	src := sourceTree(t, "src/a.c")

	_, err := (&DirectBuilder{Runner: &fakeRunner{}}).Build(context.Background(), &Config{OutDir: t.TempDir()}, src)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive not produced")
}

func TestDirectBuilder_Clean(t *testing.T) {
	out := t.TempDir()
	writeFile(t, filepath.Join(out, "libbearssl.a"), "x")
	writeFile(t, filepath.Join(out, "obj", "a.o"), "x")
	b := &DirectBuilder{}

	require.NoError(t, b.Clean(context.Background(), &Config{OutDir: out}, ""))

	_, err := os.Stat(filepath.Join(out, "libbearssl.a"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(filepath.Join(out, "obj"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, b.Clean(context.Background(), &Config{OutDir: out}, ""), "cleaning twice is fine")
}

func TestDirectBuilder_RequiredTools(t *testing.T) {
	b := &DirectBuilder{}

	defaults := b.RequiredTools(&Config{})
	require.Len(t, defaults, 2)
	assert.Equal(t, "cc", defaults[0].Name)
	assert.Equal(t, "ar", defaults[1].Name)

	overridden := b.RequiredTools(&Config{CC: "ccache gcc", AR: "gcc-ar"})
	assert.Equal(t, "ccache", overridden[0].Name)
	assert.Empty(t, overridden[0].Alternatives)
	assert.Equal(t, "gcc-ar", overridden[1].Name)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "hash_sha2small.o", objectName("src/hash/sha2small.c"))
	assert.Equal(t, "settings.o", objectName("src/settings.c"))
}
