package bearsslbuild

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	makeProgram  = "make"
	nmakeProgram = "nmake"
)

// DelegatedBuilder builds a BearSSL tree with the tree's own Makefile.
//
// make runs in the source directory and is expected to leave the archive
// at build/libbearssl.a, which is where BearSSL's Makefile puts it.
type DelegatedBuilder struct {
	Runner Runner
}

// Name returns the builder name
func (b *DelegatedBuilder) Name() string {
	return "Makefile"
}

// Strategy returns StrategyDelegated.
func (b *DelegatedBuilder) Strategy() Strategy {
	return StrategyDelegated
}

// RequiredTools returns the tools needed for Makefile builds
func (b *DelegatedBuilder) RequiredTools(config *Config) []ToolRequirement {
	mk := ToolRequirement{
		Name:         makeProgram,
		Alternatives: []string{"gmake", nmakeProgram},
		Purpose:      "Build automation tool",
	}
	if config.Make != "" {
		mk = overrideRequirement(config.Make, "Build automation tool")
	}
	cc := ToolRequirement{
		Name:         "gcc",
		Alternatives: []string{"clang", "cc", "cl"},
		Purpose:      "C compiler",
	}
	if config.CC != "" {
		cc = overrideRequirement(strings.Fields(config.CC)[0], "C compiler")
	}
	return []ToolRequirement{mk, cc}
}

// CheckTools verifies that make and compiler are available
func (b *DelegatedBuilder) CheckTools(config *Config) error {
	return CheckRequiredTools(b.RequiredTools(config))
}

// Build compiles the tree using make
func (b *DelegatedBuilder) Build(ctx context.Context, config *Config, sourceDir string) (*BuildResult, error) {
	return runBuildSteps(ctx, config, sourceDir, BuildSteps{
		PrepareFunc: b.checkMakefile,
		CompileFunc: b.runMake,
		LocateFunc:  b.locateArchive,
	})
}

// Clean runs make clean. Errors are ignored: the target may not exist.
func (b *DelegatedBuilder) Clean(ctx context.Context, config *Config, sourceDir string) error {
	_, _ = b.runner().Run(ctx, Command{
		Name: b.getMakeProgram(config),
		Args: []string{"clean"},
		Dir:  sourceDir,
		Env:  config.Env,
	})
	return nil
}

// checkMakefile fails early on a tree without a build descriptor.
func (b *DelegatedBuilder) checkMakefile(_ context.Context, config *Config, sourceDir string, result *BuildResult) error {
	if _, err := os.Stat(filepath.Join(sourceDir, buildDescriptor)); err != nil {
		return BuildError(b.Name(), result.Output, fmt.Errorf("no %s in %s: %w", buildDescriptor, sourceDir, err))
	}
	if config.Verbose {
		result.Output = append(result.Output, "Using existing Makefile, no configuration needed")
	}
	return nil
}

// runMake executes make in the source directory
func (b *DelegatedBuilder) runMake(ctx context.Context, config *Config, sourceDir string, result *BuildResult) error {
	makeProgram := b.getMakeProgram(config)

	args := []string{}
	if config.Parallel > 0 {
		args = append(args, fmt.Sprintf("-j%d", config.Parallel))
	}

	env := make(map[string]string, len(config.Env)+3)
	for key, value := range config.Env {
		env[key] = value
	}
	if config.CC != "" {
		env["CC"] = config.CC
	} else if cc, found := b.RequiredTools(config)[1].Find(); found {
		env["CC"] = cc
	}
	if config.AR != "" {
		env["AR"] = config.AR
	}
	if len(config.CFlags) > 0 {
		env["CFLAGS"] = strings.Join(config.CFlags, " ")
	}

	if config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Running: %s %s", makeProgram, strings.Join(args, " ")),
			fmt.Sprintf("Working directory: %s", sourceDir))
	}

	output, err := b.runner().Run(ctx, Command{Name: makeProgram, Args: args, Dir: sourceDir, Env: env})
	result.Output = append(result.Output, outputLines(output)...)
	if err != nil {
		return BuildError("Make", result.Output, err)
	}
	return nil
}

// locateArchive finds build/libbearssl.a
func (b *DelegatedBuilder) locateArchive(config *Config, sourceDir string) (*Directives, []string, error) {
	buildDir := filepath.Join(sourceDir, "build")
	archive := filepath.Join(buildDir, "lib"+libName+".a")
	if _, err := os.Stat(archive); err != nil {
		return nil, nil, fmt.Errorf("make did not produce %s: %w", archive, err)
	}
	return newDirectives(config, buildDir), []string{archive}, nil
}

// getMakeProgram returns the make program for the host: $MAKE, nmake on
// Windows, otherwise the first of make and its alternatives in PATH.
func (b *DelegatedBuilder) getMakeProgram(config *Config) string {
	if config.Make != "" {
		return config.Make
	}
	if config.HostOS == platformWindows {
		return nmakeProgram
	}
	program, _ := b.RequiredTools(config)[0].Find()
	return program
}

func (b *DelegatedBuilder) runner() Runner {
	if b.Runner == nil {
		return &ExecRunner{}
	}
	return b.Runner
}
