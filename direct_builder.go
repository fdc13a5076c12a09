package bearsslbuild

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// sourcePattern selects the translation units of a BearSSL tree, relative
// to its root.
const sourcePattern = "src/**/*.c"

// DirectBuilder compiles a BearSSL tree without its build system.
//
// Every file matching src/**/*.c is compiled with $CC (default cc) at -Os,
// with the tree's inc/ and src/ directories on the include path. The
// objects are archived with $AR (default ar) into <OUT_DIR>/libbearssl.a.
type DirectBuilder struct {
	Runner Runner

	// Pattern overrides sourcePattern; mostly for tests.
	Pattern string
}

// Name returns the builder name
func (b *DirectBuilder) Name() string {
	return "Direct"
}

// Strategy returns StrategyDirect.
func (b *DirectBuilder) Strategy() Strategy {
	return StrategyDirect
}

// RequiredTools returns the compiler and archiver
func (b *DirectBuilder) RequiredTools(config *Config) []ToolRequirement {
	cc := ToolRequirement{Name: "cc", Alternatives: []string{"gcc", "clang"}, Purpose: "C compiler"}
	if config.CC != "" {
		cc = overrideRequirement(strings.Fields(config.CC)[0], "C compiler")
	}
	ar := ToolRequirement{Name: "ar", Alternatives: []string{"llvm-ar", "gcc-ar"}, Purpose: "static archiver"}
	if config.AR != "" {
		ar = overrideRequirement(config.AR, "static archiver")
	}
	return []ToolRequirement{cc, ar}
}

// CheckTools verifies that the compiler and archiver are available
func (b *DirectBuilder) CheckTools(config *Config) error {
	return CheckRequiredTools(b.RequiredTools(config))
}

// Build compiles sourceDir into <OUT_DIR>/libbearssl.a.
func (b *DirectBuilder) Build(ctx context.Context, config *Config, sourceDir string) (*BuildResult, error) {
	var sources []string
	return runBuildSteps(ctx, config, sourceDir, BuildSteps{
		PrepareFunc: func(_ context.Context, _ *Config, dir string, result *BuildResult) error {
			var err error
			sources, err = b.collectSources(dir)
			if err == nil && config.Verbose {
				result.Output = append(result.Output, fmt.Sprintf("Found %d translation units", len(sources)))
			}
			return err
		},
		CompileFunc: func(ctx context.Context, config *Config, dir string, result *BuildResult) error {
			return b.compile(ctx, config, dir, sources, result)
		},
		LocateFunc: b.locateArchive,
	})
}

// Clean removes the archive and the object directory.
func (b *DirectBuilder) Clean(_ context.Context, config *Config, _ string) error {
	if err := os.RemoveAll(b.objectDir(config)); err != nil {
		return err
	}
	if err := os.Remove(b.archivePath(config)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// collectSources returns the sorted slash-separated paths of all sources
// below dir. A malformed pattern or an empty match set is a *PatternError.
func (b *DirectBuilder) collectSources(dir string) ([]string, error) {
	pattern := b.Pattern
	if pattern == "" {
		pattern = sourcePattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &PatternError{Pattern: pattern, Err: doublestar.ErrBadPattern}
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	if len(matches) == 0 {
		return nil, &PatternError{Pattern: path.Join(filepath.ToSlash(dir), pattern), Err: ErrNoMatches}
	}
	sort.Strings(matches)
	return matches, nil
}

func (b *DirectBuilder) compile(ctx context.Context, config *Config, dir string, sources []string, result *BuildResult) error {
	objDir := b.objectDir(config)
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return BuildError(b.Name(), result.Output, err)
	}

	cc, ar := b.programs(config)
	objects := make([]string, 0, len(sources))
	for _, src := range sources {
		obj := filepath.Join(objDir, objectName(src))

		args := append([]string{}, cc[1:]...)
		args = append(args, "-c", "-Os",
			"-I", filepath.Join(dir, "inc"),
			"-I", filepath.Join(dir, "src"))
		if config.HostOS != platformWindows {
			args = append(args, "-fPIC")
		}
		args = append(args, config.CFlags...)
		args = append(args, "-o", obj, filepath.Join(dir, filepath.FromSlash(src)))

		if err := b.run(ctx, config, Command{Name: cc[0], Args: args, Dir: dir, Env: config.Env}, result); err != nil {
			return err
		}
		objects = append(objects, obj)
	}

	archive := b.archivePath(config)
	// ar appends to an existing archive; start from scratch.
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return BuildError(b.Name(), result.Output, err)
	}
	args := append([]string{"crs", archive}, objects...)
	return b.run(ctx, config, Command{Name: ar, Args: args, Dir: dir, Env: config.Env}, result)
}

func (b *DirectBuilder) run(ctx context.Context, config *Config, cmd Command, result *BuildResult) error {
	if config.Verbose {
		result.Output = append(result.Output, "Running: "+cmd.String())
	}
	output, err := b.runner().Run(ctx, cmd)
	result.Output = append(result.Output, outputLines(output)...)
	if err != nil {
		return BuildError(b.Name(), result.Output, err)
	}
	return nil
}

func (b *DirectBuilder) locateArchive(config *Config, _ string) (*Directives, []string, error) {
	archive := b.archivePath(config)
	if _, err := os.Stat(archive); err != nil {
		return nil, nil, fmt.Errorf("archive not produced: %w", err)
	}
	return newDirectives(config, config.OutDir), []string{archive}, nil
}

func (b *DirectBuilder) archivePath(config *Config) string {
	return filepath.Join(config.OutDir, "lib"+libName+".a")
}

func (b *DirectBuilder) objectDir(config *Config) string {
	return filepath.Join(config.OutDir, "obj")
}

func (b *DirectBuilder) runner() Runner {
	if b.Runner == nil {
		return &ExecRunner{}
	}
	return b.Runner
}

// objectName flattens a source path into a unique object file name:
// src/hash/sha2small.c becomes hash_sha2small.o.
func objectName(src string) string {
	rel := strings.TrimPrefix(src, "src/")
	rel = strings.TrimSuffix(rel, ".c")
	return strings.ReplaceAll(rel, "/", "_") + ".o"
}

// programs returns the compiler command line and the archiver to run. $CC
// is split so values like "ccache cc" work; without overrides these are the
// tools CheckTools found.
func (b *DirectBuilder) programs(config *Config) (cc []string, ar string) {
	reqs := b.RequiredTools(config)
	cc = strings.Fields(config.CC)
	if len(cc) == 0 {
		name, _ := reqs[0].Find()
		cc = []string{name}
	}
	ar = config.AR
	if ar == "" {
		ar, _ = reqs[1].Find()
	}
	return cc, ar
}
