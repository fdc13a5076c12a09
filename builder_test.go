package bearsslbuild

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBuilder is a SourceBuilder that records its calls.
type stubBuilder struct {
	strategy Strategy
	built    []string
	cleaned  []string
	err      error
}

func (s *stubBuilder) Name() string       { return "Stub" }
func (s *stubBuilder) Strategy() Strategy { return s.strategy }

func (s *stubBuilder) Build(_ context.Context, config *Config, sourceDir string) (*BuildResult, error) {
	s.built = append(s.built, sourceDir)
	if s.err != nil {
		return &BuildResult{Error: s.err}, s.err
	}
	return &BuildResult{Success: true, Directives: newDirectives(config, sourceDir)}, nil
}

func (s *stubBuilder) Clean(_ context.Context, _ *Config, sourceDir string) error {
	s.cleaned = append(s.cleaned, sourceDir)
	return nil
}

// checkedBuilder adds a failing tool check to stubBuilder.
type checkedBuilder struct {
	stubBuilder
}

func (c *checkedBuilder) RequiredTools(*Config) []ToolRequirement {
	return []ToolRequirement{{Name: "definitely-not-a-real-tool-xyz", Purpose: "nothing"}}
}

func (c *checkedBuilder) CheckTools(config *Config) error {
	return CheckRequiredTools(c.RequiredTools(config))
}

type otherLocation struct{}

func (otherLocation) Dir() string     { return "" }
func (otherLocation) sourceLocation() {}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{in: "", want: StrategyDirect},
		{in: "direct", want: StrategyDirect},
		{in: "delegated", want: StrategyDelegated},
		{in: "cmake", wantErr: true},
		{in: "Direct", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilderFactory(t *testing.T) {
	factory := NewBuilderFactory(&fakeRunner{})

	builders := factory.ListBuilders()
	require.Len(t, builders, 2)

	testCases := []struct {
		strategy     Strategy
		expectedName string
	}{
		{StrategyDirect, "Direct"},
		{StrategyDelegated, "Makefile"},
	}

	for _, tc := range testCases {
		t.Run(string(tc.strategy), func(t *testing.T) {
			builder, err := factory.BuilderFor(tc.strategy)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedName, builder.Name())
			assert.Equal(t, tc.strategy, builder.Strategy())
		})
	}

	_, err := factory.BuilderFor("ninja")
	assert.Error(t, err)
}

func TestBuilderFactory_ListBuildersReturnsCopy(t *testing.T) {
	factory := NewBuilderFactory(nil)

	builders := factory.ListBuilders()
	builders[0] = nil

	assert.NotNil(t, factory.ListBuilders()[0])
}

func TestBuilderFactory_FirstRegisteredWins(t *testing.T) {
	first := &stubBuilder{strategy: StrategyDirect}
	factory := &BuilderFactory{}
	factory.Register(first)
	factory.Register(&stubBuilder{strategy: StrategyDirect})

	builder, err := factory.BuilderFor(StrategyDirect)
	require.NoError(t, err)
	assert.Same(t, first, builder)
}

func TestBuildLocation_Precompiled(t *testing.T) {
	stub := &stubBuilder{strategy: StrategyDirect}
	factory := &BuilderFactory{}
	factory.Register(stub)

	result, err := factory.BuildLocation(context.Background(), &Config{HostOS: "linux"}, Precompiled{Path: "/opt/bearssl"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, stub.built, "precompiled locations are never compiled")
	assert.Equal(t, []string{"/opt/bearssl", "/opt/bearssl/build"}, result.Directives.SearchPaths)
	assert.Equal(t, "bearssl", result.Directives.LinkLib)
}

func TestBuildLocation_Raw(t *testing.T) {
	stub := &stubBuilder{strategy: StrategyDelegated}
	factory := &BuilderFactory{}
	factory.Register(&stubBuilder{strategy: StrategyDirect})
	factory.Register(stub)

	cfg := &Config{Strategy: StrategyDelegated}
	result, err := factory.BuildLocation(context.Background(), cfg, Raw{Path: "/src/bearssl"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"/src/bearssl"}, stub.built)
	assert.Empty(t, stub.cleaned)
}

func TestBuildLocation_CleanFirst(t *testing.T) {
	stub := &stubBuilder{strategy: StrategyDirect}
	factory := &BuilderFactory{}
	factory.Register(stub)

	cfg := &Config{Strategy: StrategyDirect, CleanFirst: true}
	_, err := factory.BuildLocation(context.Background(), cfg, Raw{Path: "/src"})

	require.NoError(t, err)
	assert.Equal(t, []string{"/src"}, stub.cleaned)
	assert.Equal(t, []string{"/src"}, stub.built)
}

func TestBuildLocation_Errors(t *testing.T) {
	t.Run("missing tools", func(t *testing.T) {
		checked := &checkedBuilder{stubBuilder{strategy: StrategyDirect}}
		factory := &BuilderFactory{}
		factory.Register(checked)

		result, err := factory.BuildLocation(context.Background(), &Config{Strategy: StrategyDirect}, Raw{Path: "/src"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "definitely-not-a-real-tool-xyz")
		assert.False(t, result.Success)
		assert.Empty(t, checked.built)
	})

	t.Run("no builder for strategy", func(t *testing.T) {
		factory := &BuilderFactory{}
		_, err := factory.BuildLocation(context.Background(), &Config{Strategy: StrategyDirect}, Raw{Path: "/src"})
		assert.Error(t, err)
	})

	t.Run("build failure propagates", func(t *testing.T) {
		boom := errors.New("boom")
		factory := &BuilderFactory{}
		factory.Register(&stubBuilder{strategy: StrategyDirect, err: boom})

		result, err := factory.BuildLocation(context.Background(), &Config{Strategy: StrategyDirect}, Raw{Path: "/src"})
		assert.ErrorIs(t, err, boom)
		assert.False(t, result.Success)
	})

	t.Run("canceled context", func(t *testing.T) {
		stub := &stubBuilder{strategy: StrategyDirect}
		factory := &BuilderFactory{}
		factory.Register(stub)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := factory.BuildLocation(ctx, &Config{Strategy: StrategyDirect}, Raw{Path: "/src"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, stub.built)
	})

	t.Run("unknown location", func(t *testing.T) {
		factory := NewBuilderFactory(&fakeRunner{})
		_, err := factory.BuildLocation(context.Background(), &Config{}, otherLocation{})
		assert.Error(t, err)
	})
}

func TestBuildError(t *testing.T) {
	cause := &ExitStatusError{Cmd: "cc", Status: 1, Ran: true, Err: errors.New("exit status 1")}

	err := BuildError("Direct", []string{"src/x.c:1: error: nope"}, cause)

	assert.Contains(t, err.Error(), "Direct build failed")
	assert.Contains(t, err.Error(), "Build output:\nsrc/x.c:1: error: nope")
	var exitErr *ExitStatusError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitStatus())

	assert.EqualError(t, BuildError("Make", nil, nil), "Make build failed")
}
