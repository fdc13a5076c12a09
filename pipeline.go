package bearsslbuild

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
)

// Default output file names.
const (
	DefaultBindingsFile = "zbindings.go"
	DefaultLinkFile     = "zlink.go"
)

// Pipeline runs the whole build: resolve, compile, generate.
type Pipeline struct {
	Resolver  *Resolver
	Builders  *BuilderFactory
	Generator *Generator
	Logger    *slog.Logger

	// Package is the Go package of the generated files; default "bearssl".
	Package string
	// Profile names the binding profile; default is the build strategy.
	Profile string
	// BindingsPath and LinkPath default to OUT_DIR/zbindings.go and
	// OUT_DIR/zlink.go.
	BindingsPath string
	LinkPath     string
}

// Report describes a successful run.
type Report struct {
	Location     SourceLocation
	Build        *BuildResult
	IncludeDir   string
	Profile      string
	Module       *Module
	BindingsPath string
	LinkPath     string
}

// NewPipeline wires the default resolver, builders and generator, all
// logging to logger and running processes with an ExecRunner.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runner := &ExecRunner{Logger: logger}
	return &Pipeline{
		Resolver:  &Resolver{Runner: runner, Logger: logger},
		Builders:  NewBuilderFactory(runner),
		Generator: &Generator{Logger: logger},
		Logger:    logger,
	}
}

// Run executes every stage for cfg. Errors are *StageError values naming
// the stage that failed; on error nothing has been written.
func (p *Pipeline) Run(ctx context.Context, cfg *Config) (*Report, error) {
	logger := p.logger()

	loc, err := p.Resolver.Resolve(ctx, cfg)
	if err != nil {
		return nil, &StageError{Stage: StageResolution, Err: err}
	}
	logger.Info("resolved BearSSL", "location", loc)

	if raw, ok := loc.(Raw); ok {
		logger.Warn("compiling BearSSL", "dir", raw.Path, "strategy", cfg.Strategy)
	}
	build, err := p.Builders.BuildLocation(ctx, cfg, loc)
	if err != nil {
		return nil, &StageError{Stage: StageCompilation, Err: err}
	}
	for _, a := range build.Artifacts {
		logger.Debug("archive", "path", a)
	}

	report := &Report{
		Location:     loc,
		Build:        build,
		IncludeDir:   cfg.IncludePath,
		Profile:      p.Profile,
		BindingsPath: p.BindingsPath,
		LinkPath:     p.LinkPath,
	}
	if report.IncludeDir == "" {
		report.IncludeDir = filepath.Join(loc.Dir(), "inc")
	}
	if report.Profile == "" {
		report.Profile = string(cfg.Strategy)
	}
	if report.BindingsPath == "" {
		report.BindingsPath = filepath.Join(cfg.OutDir, DefaultBindingsFile)
	}
	if report.LinkPath == "" {
		report.LinkPath = filepath.Join(cfg.OutDir, DefaultLinkFile)
	}

	mod, link, err := p.generate(ctx, cfg, report)
	if err != nil {
		return nil, &StageError{Stage: StageGeneration, Err: err}
	}
	report.Module = mod

	// A failed link write leaves the previous bindings untouched.
	if err := writeFileAtomic(report.LinkPath, link); err != nil {
		return nil, &StageError{Stage: StageGeneration, Err: fmt.Errorf("writing link directives: %w", err)}
	}
	if err := mod.WriteFile(report.BindingsPath); err != nil {
		return nil, &StageError{Stage: StageGeneration, Err: fmt.Errorf("writing bindings: %w", err)}
	}
	logger.Info("bindings written",
		"bindings", report.BindingsPath,
		"link", report.LinkPath,
		"layout_tests", mod.LayoutTests)
	return report, nil
}

// generate produces the binding module and the rendered link directives.
func (p *Pipeline) generate(ctx context.Context, cfg *Config, report *Report) (*Module, []byte, error) {
	profile, err := LoadProfile(report.Profile)
	if err != nil {
		return nil, nil, err
	}
	opts, err := DefaultBindgenOptions(profile, report.IncludeDir)
	if err != nil {
		return nil, nil, err
	}
	if p.Package != "" {
		opts.Package = p.Package
	}
	opts.GOOS, opts.GOARCH = cfg.HostOS, cfg.Arch
	ApplyQuirks(cfg.Target, opts)
	if !opts.LayoutTests {
		p.logger().Info("layout checks disabled", "target", cfg.Target)
	}

	mod, err := p.Generator.Generate(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	if report.Build.Directives == nil {
		return nil, nil, fmt.Errorf("%s produced no link directives", report.Location)
	}
	directives := *report.Build.Directives
	directives.IncludeDirs = []string{report.IncludeDir}
	link, err := directives.Render(opts.Package, opts.BuildTags)
	if err != nil {
		return nil, nil, fmt.Errorf("rendering link directives: %w", err)
	}
	return mod, link, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}
