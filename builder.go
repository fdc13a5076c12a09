package bearsslbuild

import (
	"context"
	"fmt"
)

// Strategy selects how a Raw source tree is turned into libbearssl.a.
type Strategy string

const (
	// StrategyDirect compiles every src/**/*.c file with the C compiler and
	// archives the objects into OUT_DIR.
	StrategyDirect Strategy = "direct"
	// StrategyDelegated runs the tree's own Makefile.
	StrategyDelegated Strategy = "delegated"
)

// ParseStrategy validates a strategy name from a flag or profile.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyDirect, StrategyDelegated:
		return Strategy(s), nil
	case "":
		return StrategyDirect, nil
	default:
		return "", fmt.Errorf("unknown build strategy %q (want %q or %q)", s, StrategyDirect, StrategyDelegated)
	}
}

// SourceBuilder compiles a BearSSL source tree into a static archive.
//
// # Builder Lifecycle
//
//  1. Strategy() - the factory selects a builder by strategy
//  2. Build() - compile the tree found at sourceDir
//  3. Clean() - optional removal of build artifacts
//
// # Example Implementation
//
//	type MyBuilder struct{}
//
//	func (b *MyBuilder) Name() string         { return "Mine" }
//	func (b *MyBuilder) Strategy() Strategy   { return "mine" }
//
//	func (b *MyBuilder) Build(ctx context.Context, config *Config, sourceDir string) (*BuildResult, error) {
//	    return runBuildSteps(ctx, config, sourceDir, BuildSteps{...})
//	}
//
//	func (b *MyBuilder) Clean(ctx context.Context, config *Config, sourceDir string) error {
//	    return nil
//	}
//
// Builders are stateless apart from their Runner; the same value may build
// several trees.
type SourceBuilder interface {
	// Name returns the human-readable name used in errors and logs.
	Name() string

	// Strategy returns the strategy this builder implements.
	Strategy() Strategy

	// Build compiles the tree rooted at sourceDir.
	//
	// Returns:
	//   - BuildResult with Success=true, Artifacts and Directives on success
	//   - BuildResult with Success=false and Error on failure
	Build(ctx context.Context, config *Config, sourceDir string) (*BuildResult, error)

	// Clean removes build artifacts. Returns nil when there is nothing to
	// remove.
	Clean(ctx context.Context, config *Config, sourceDir string) error
}
