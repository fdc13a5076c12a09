package bearsslbuild

import (
	"context"
	"path/filepath"
)

// BuildResult contains the output and status of a source build.
//
// After a build completes, this structure provides:
//   - Success status indicating if the build completed without errors
//   - Output lines captured from the compiler, archiver or make
//   - Artifacts, the static archives the build produced
//   - Directives telling cgo how to link against them
type BuildResult struct {
	Success    bool        // True if build completed successfully
	Output     []string    // Lines of output from the build processes
	Artifacts  []string    // Absolute paths of produced static archives
	Directives *Directives // Link directives for the produced archive
	Error      error       // Error if build failed, nil otherwise
}

// Config is the explicit configuration value every component reads.
//
// It is built once by LoadConfig at process start and passed by pointer;
// nothing in this package consults the environment after that.
//
// Source selection:
//   - PrecompiledPath: directory with built artifacts and headers
//   - SourcePath: directory with a buildable BearSSL tree
//   - IncludePath: header directory override, independent of the tier
//   - GitHash: revision checked out by the network fallback tier
//
// Host build system:
//   - OutDir: output root; the source cache and direct-build archive live here
//   - Target: target triple consumed by the quirk adjuster
//   - HostOS: GOOS value that decides the relaxed-linkage directive
//   - Arch: GOARCH value that selects the ABI for binding layouts
//
// Tools:
//   - CC, AR, Make: program overrides (CC, AR and MAKE variables)
//   - CFlags: extra compiler flags (CFLAGS variable)
//   - Parallel: make -j value for the delegated strategy (0 = make's default)
type Config struct {
	// Source selection
	PrecompiledPath string
	SourcePath      string
	IncludePath     string
	GitHash         string
	UpstreamURL     string

	// Host build system
	OutDir string
	Target string
	HostOS string
	Arch   string

	// Tools
	CC       string
	AR       string
	Make     string
	CFlags   []string
	Env      map[string]string // Extra variables for spawned tools
	Parallel int

	// Build options
	Strategy   Strategy // Source builder used for the Raw tier
	Verbose    bool     // Record command lines in BuildResult.Output
	CleanFirst bool     // Run the builder's Clean step before building
}

// Revision returns the revision the network fallback tier checks out.
func (c *Config) Revision() string {
	if c.GitHash != "" {
		return c.GitHash
	}
	return DefaultRevision
}

// CacheDir is the deterministic directory the upstream tree is cloned into.
func (c *Config) CacheDir() string {
	return filepath.Join(c.OutDir, filepath.FromSlash(depsPath))
}

// BuildSteps defines the three-step pattern both source builders follow.
//
//  1. Prepare: collect inputs (translation units, the makefile)
//  2. Compile: run the compiler/archiver or the external build tool
//  3. Locate: find the produced archive and derive link directives
//
// Example usage in a builder:
//
//	return runBuildSteps(ctx, config, sourceDir, BuildSteps{
//	    PrepareFunc: b.collectSources,
//	    CompileFunc: b.compile,
//	    LocateFunc:  b.locateArchive,
//	})
type BuildSteps struct {
	// PrepareFunc validates and gathers build inputs
	PrepareFunc func(ctx context.Context, config *Config, sourceDir string, result *BuildResult) error

	// CompileFunc produces the static archive
	CompileFunc func(ctx context.Context, config *Config, sourceDir string, result *BuildResult) error

	// LocateFunc finds the archive and returns the link directives for it
	LocateFunc func(config *Config, sourceDir string) (*Directives, []string, error)
}
