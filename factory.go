package bearsslbuild

import (
	"context"
	"fmt"
)

// BuilderFactory holds the registered source builders.
//
// # Usage
//
// Create a factory with both standard builders:
//
//	factory := bearsslbuild.NewBuilderFactory(runner)
//
// Or register builders by hand:
//
//	factory := &bearsslbuild.BuilderFactory{}
//	factory.Register(&MyBuilder{})
//
// Then build a location:
//
//	result, err := factory.BuildLocation(ctx, config, loc)
//
// BuilderFactory is not safe for concurrent registration. Register all
// builders before use.
type BuilderFactory struct {
	builders []SourceBuilder
}

// NewBuilderFactory creates a factory with DirectBuilder and
// DelegatedBuilder registered. A nil runner means an ExecRunner.
func NewBuilderFactory(runner Runner) *BuilderFactory {
	if runner == nil {
		runner = &ExecRunner{}
	}
	factory := &BuilderFactory{}
	factory.Register(&DirectBuilder{Runner: runner})
	factory.Register(&DelegatedBuilder{Runner: runner})
	return factory
}

// Register adds a builder. The first builder registered for a strategy wins.
func (f *BuilderFactory) Register(builder SourceBuilder) {
	f.builders = append(f.builders, builder)
}

// BuilderFor returns the builder registered for strategy.
func (f *BuilderFactory) BuilderFor(strategy Strategy) (SourceBuilder, error) {
	for _, builder := range f.builders {
		if builder.Strategy() == strategy {
			return builder, nil
		}
	}
	return nil, fmt.Errorf("no builder registered for strategy %q", strategy)
}

// ListBuilders returns a copy of all registered builders.
func (f *BuilderFactory) ListBuilders() []SourceBuilder {
	return append([]SourceBuilder{}, f.builders...)
}

// BuildLocation produces link directives for a resolved location.
//
// A Precompiled location is not built: its directory and build/
// subdirectory become search paths. A Raw location is compiled by the
// builder registered for config.Strategy, after its tools are checked and,
// if config.CleanFirst is set, after Clean.
func (f *BuilderFactory) BuildLocation(ctx context.Context, config *Config, loc SourceLocation) (*BuildResult, error) {
	switch loc := loc.(type) {
	case Precompiled:
		return &BuildResult{
			Success:    true,
			Directives: PrecompiledDirectives(config, loc.Path),
		}, nil

	case Raw:
		if err := ctx.Err(); err != nil {
			return &BuildResult{Error: err}, err
		}
		builder, err := f.BuilderFor(config.Strategy)
		if err != nil {
			return &BuildResult{Error: err}, err
		}
		if checker, ok := builder.(ToolChecker); ok {
			if err := checker.CheckTools(config); err != nil {
				err = fmt.Errorf("%s build tools missing: %w", builder.Name(), err)
				return &BuildResult{Error: err}, err
			}
		}
		if config.CleanFirst {
			if err := builder.Clean(ctx, config, loc.Path); err != nil {
				return &BuildResult{Error: err}, err
			}
		}
		result, err := builder.Build(ctx, config, loc.Path)
		if result == nil {
			result = &BuildResult{Error: err}
		}
		return result, err

	default:
		err := fmt.Errorf("unsupported source location %T", loc)
		return &BuildResult{Error: err}, err
	}
}
