package bearsslbuild

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DefaultBuildTags guards generated files: they only compile with cgo and
// once the bearssl tag says the library has been built.
const DefaultBuildTags = "cgo && bearssl"

// BindgenOptions steer one binding generation.
type BindgenOptions struct {
	Package     string   // Go package name of the generated module
	BuildTags   string   // //go:build expression; empty for none
	IncludeDir  string   // Directory holding the headers
	Headers     []string // HeaderSet, in order
	Allowlist   *Allowlist
	LayoutTests bool // Emit VerifyLayout
	Comments    bool // Carry C doc comments over

	// GOOS and GOARCH select the ABI used for sizes and offsets. Empty
	// means the running platform.
	GOOS   string
	GOARCH string

	// CompilerArgs are extra flags for the host compiler queried for the
	// predefined macros and system include paths.
	CompilerArgs []string
}

// DefaultBindgenOptions returns the default options for a profile: layout
// checks and comments on, package bearssl.
func DefaultBindgenOptions(profile *Profile, includeDir string) (*BindgenOptions, error) {
	allow, err := profile.Allowlist()
	if err != nil {
		return nil, err
	}
	return &BindgenOptions{
		Package:     "bearssl",
		BuildTags:   DefaultBuildTags,
		IncludeDir:  includeDir,
		Headers:     append([]string{}, profile.Headers...),
		Allowlist:   allow,
		LayoutTests: true,
		Comments:    true,
	}, nil
}

// Module is a generated binding module.
type Module struct {
	Package string
	Source  []byte

	// Names of the emitted declarations, by category, in emission order.
	Constants []string
	Types     []string
	Functions []string
	Vars      []string

	// C functions left out: static inline, variadic, or with parameter
	// types cgo cannot name.
	Skipped []string

	LayoutTests bool
}

// Generator turns a header set into a Module.
type Generator struct {
	Logger *slog.Logger
}

// Generate translates opts.Headers and renders the module. Nothing is
// written to disk.
func (g *Generator) Generate(ctx context.Context, opts *BindgenOptions) (*Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	start := time.Now()
	unit, err := translateHeaders(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("headers translated", "headers", len(opts.Headers), "elapsed", time.Since(start))

	start = time.Now()
	mod, err := render(unit, opts)
	if err != nil {
		return nil, fmt.Errorf("rendering bindings: %w", err)
	}
	logger.Debug("bindings rendered",
		"types", len(mod.Types),
		"functions", len(mod.Functions),
		"constants", len(mod.Constants),
		"vars", len(mod.Vars),
		"layout_tests", mod.LayoutTests,
		"elapsed", time.Since(start))
	return mod, nil
}

// WriteFile writes the module to path, replacing any previous version. The
// file is written to a temporary sibling first and renamed into place.
func (m *Module) WriteFile(path string) error {
	return writeFileAtomic(path, m.Source)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
