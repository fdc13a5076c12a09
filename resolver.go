package bearsslbuild

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// depsPath is the cache directory for the upstream clone, relative to OUT_DIR.
const depsPath = "deps/bearssl"

// buildDescriptor marks a populated clone.
const buildDescriptor = "Makefile"

// SourceLocation is where BearSSL was found. It is either Precompiled or Raw.
type SourceLocation interface {
	// Dir is the root directory of the location.
	Dir() string
	sourceLocation()
}

// Precompiled is a directory holding an already built libbearssl.a and its
// headers. No compilation happens for it.
type Precompiled struct {
	Path string
}

func (p Precompiled) Dir() string   { return p.Path }
func (Precompiled) sourceLocation() {}

func (p Precompiled) String() string { return "precompiled " + p.Path }

// Raw is a BearSSL source tree that must be compiled.
type Raw struct {
	Path string
}

func (r Raw) Dir() string   { return r.Path }
func (Raw) sourceLocation() {}

func (r Raw) String() string { return "source " + r.Path }

// Resolver decides where BearSSL comes from.
//
// Tiers, first match wins:
//  1. BEARSSL_PRECOMPILED_PATH, if the directory exists
//  2. BEARSSL_SOURCE_PATH, if the directory exists
//  3. a pinned clone of the upstream repository in <OUT_DIR>/deps/bearssl
//
// Tiers 1 and 2 only probe the filesystem. Tier 3 always produces a Raw
// location or fails with the git error.
type Resolver struct {
	Runner Runner
	Logger *slog.Logger
	// Git is the git executable; empty means "git".
	Git string
}

// NewResolver returns a Resolver that runs git through an ExecRunner.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{Runner: &ExecRunner{Logger: logger}, Logger: logger}
}

// Resolve returns the SourceLocation for cfg.
func (r *Resolver) Resolve(ctx context.Context, cfg *Config) (SourceLocation, error) {
	if dir, err := r.probe(PrecompiledPathVar, cfg.PrecompiledPath); err == nil {
		return Precompiled{Path: dir}, nil
	}
	if dir, err := r.probe(SourcePathVar, cfg.SourcePath); err == nil {
		return Raw{Path: dir}, nil
	}
	return r.fetchUpstream(ctx, cfg)
}

// probe reports whether a configured directory exists. Unset variables and
// missing paths both return ErrMissingLocation.
func (r *Resolver) probe(name, dir string) (string, error) {
	if dir == "" {
		return "", ErrMissingLocation
	}
	if _, err := os.Stat(dir); err != nil {
		r.logger().Debug("configured location not found, falling back",
			"var", name, "path", dir, "err", ErrMissingLocation)
		return "", ErrMissingLocation
	}
	return dir, nil
}

func (r *Resolver) fetchUpstream(ctx context.Context, cfg *Config) (SourceLocation, error) {
	cache := cfg.CacheDir()
	url := cfg.UpstreamURL
	if url == "" {
		url = DefaultUpstreamURL
	}

	if _, err := os.Stat(filepath.Join(cache, buildDescriptor)); err != nil {
		r.logger().Warn("cloning BearSSL", "url", url, "dir", cache)
		if err := os.MkdirAll(filepath.Dir(cache), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache parent: %w", err)
		}
		if err := r.git(ctx, "", "clone", url, cache); err != nil {
			return nil, err
		}
	} else {
		r.logger().Warn("fetching BearSSL", "dir", cache)
		if err := r.git(ctx, cache, "fetch"); err != nil {
			return nil, err
		}
	}

	rev := cfg.Revision()
	r.logger().Info("checking out BearSSL", "revision", rev)
	if err := r.git(ctx, cache, "checkout", rev); err != nil {
		return nil, err
	}
	return Raw{Path: cache}, nil
}

// git runs a git subcommand, inside dir via -C when dir is set.
func (r *Resolver) git(ctx context.Context, dir string, args ...string) error {
	name := r.Git
	if name == "" {
		name = "git"
	}
	runner := r.Runner
	if runner == nil {
		runner = &ExecRunner{Logger: r.Logger}
	}
	full := args
	if dir != "" {
		full = append([]string{"-C", dir}, args...)
	}
	if _, err := runner.Run(ctx, Command{Name: name, Args: full}); err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}
