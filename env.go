package bearsslbuild

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Environment variables read by LoadConfig.
const (
	// PrecompiledPathVar names a directory with precompiled BearSSL files.
	PrecompiledPathVar = "BEARSSL_PRECOMPILED_PATH"
	// SourcePathVar names a directory with BearSSL sources.
	SourcePathVar = "BEARSSL_SOURCE_PATH"
	// IncludePathVar names the directory searched for BearSSL headers.
	IncludePathVar = "BEARSSL_INCLUDE_PATH"
	// GitHashVar is the revision checked out when neither
	// BEARSSL_PRECOMPILED_PATH nor BEARSSL_SOURCE_PATH resolve.
	GitHashVar = "BEARSSL_GIT_HASH"

	// Provided by the host build.
	OutDirVar = "OUT_DIR"
	TargetVar = "TARGET"
	HostOSVar = "GOOS"
	archVar   = "GOARCH"

	ccVar       = "CC"
	arVar       = "AR"
	cflagsVar   = "CFLAGS"
	makeVar     = "MAKE"
	parallelVar = "BEARSSL_JOBS"
)

// DefaultRevision is the BearSSL commit checked out if BEARSSL_GIT_HASH is
// unset. This is master as of 2023/06/05.
const DefaultRevision = "79c060eea3eea1257797f15ea1608a9a9923aa6f"

// DefaultUpstreamURL is the canonical BearSSL repository.
const DefaultUpstreamURL = "https://www.bearssl.org/git/BearSSL"

// LookupFunc reports the value of a named variable and whether it is set.
// os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// MapLookup returns a LookupFunc backed by a fixed map.
func MapLookup(m map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// Overlay returns a LookupFunc that consults overrides before base. Empty
// override values are ignored so unset CLI flags don't mask the environment.
func Overlay(base LookupFunc, overrides map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		if v, ok := overrides[name]; ok && v != "" {
			return v, true
		}
		return base(name)
	}
}

// LoadConfig reads the fixed set of variables that steer the build and
// returns the Config every later stage consumes.
//
// An absent source-selection variable is not an error: it makes the
// resolver fall through to its next tier. OUT_DIR is the only variable
// without a default.
func LoadConfig(lookup LookupFunc) (*Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		PrecompiledPath: get(PrecompiledPathVar),
		SourcePath:      get(SourcePathVar),
		IncludePath:     get(IncludePathVar),
		GitHash:         get(GitHashVar),
		UpstreamURL:     DefaultUpstreamURL,
		CC:              get(ccVar),
		AR:              get(arVar),
		Make:            get(makeVar),
		CFlags:          strings.Fields(get(cflagsVar)),
		Strategy:        StrategyDirect,
	}

	for name, p := range map[string]string{
		PrecompiledPathVar: cfg.PrecompiledPath,
		SourcePathVar:      cfg.SourcePath,
		IncludePathVar:     cfg.IncludePath,
	} {
		if !utf8.ValidString(p) {
			return nil, &ConfigError{Var: name, Err: errors.New("path is not valid UTF-8")}
		}
	}

	outDir := get(OutDirVar)
	if outDir == "" {
		return nil, &ConfigError{Var: OutDirVar, Err: errors.New("not set")}
	}
	abs, err := filepath.Abs(outDir)
	if err != nil || !utf8.ValidString(abs) {
		return nil, &ConfigError{Var: OutDirVar, Err: fmt.Errorf("unusable path %q: %v", outDir, err)}
	}
	cfg.OutDir = abs

	cfg.HostOS = get(HostOSVar)
	if cfg.HostOS == "" {
		cfg.HostOS = runtime.GOOS
	}
	cfg.Arch = get(archVar)
	if cfg.Arch == "" {
		cfg.Arch = runtime.GOARCH
	}

	cfg.Target = get(TargetVar)
	if cfg.Target == "" {
		cfg.Target = DefaultTarget(cfg.HostOS, cfg.Arch)
	}

	if jobs := get(parallelVar); jobs != "" {
		n, err := strconv.Atoi(jobs)
		if err != nil || n < 0 {
			return nil, &ConfigError{Var: parallelVar, Err: fmt.Errorf("invalid job count %q", jobs)}
		}
		cfg.Parallel = n
	}

	return cfg, nil
}

// targetArch maps GOARCH values to the architecture component of a target
// triple.
var targetArch = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7",
	"riscv64": "riscv64gc",
	"ppc64le": "powerpc64le",
	"s390x":   "s390x",
	"wasm":    "wasm32",
}

// DefaultTarget derives a target triple from GOOS/GOARCH for hosts that do
// not provide TARGET explicitly.
func DefaultTarget(goos, goarch string) string {
	arch, ok := targetArch[goarch]
	if !ok {
		arch = goarch
	}

	switch goos {
	case "darwin":
		return arch + "-apple-darwin"
	case "ios":
		return arch + "-apple-ios"
	case "linux":
		if arch == "armv7" {
			return arch + "-unknown-linux-gnueabihf"
		}
		return arch + "-unknown-linux-gnu"
	case "android":
		return arch + "-linux-android"
	case platformWindows:
		return arch + "-pc-windows-gnu"
	default:
		return arch + "-unknown-" + goos
	}
}
