package bearsslbuild

import "context"

// runBuildSteps executes the three-step build shared by both builders.
//
// # Process Flow
//
//  1. Create an empty BuildResult
//  2. Call PrepareFunc to gather inputs
//  3. Call CompileFunc to produce the archive
//  4. Call LocateFunc to find it and derive link directives
//  5. Return BuildResult with Success=true
//
// If any step fails, processing stops and the error is returned with
// Success=false. Step functions append to result.Output as they go.
func runBuildSteps(ctx context.Context, config *Config, sourceDir string, steps BuildSteps) (*BuildResult, error) {
	result := &BuildResult{
		Success: false,
		Output:  []string{},
	}

	if steps.PrepareFunc != nil {
		if err := steps.PrepareFunc(ctx, config, sourceDir, result); err != nil {
			result.Error = err
			return result, err
		}
	}

	if err := steps.CompileFunc(ctx, config, sourceDir, result); err != nil {
		result.Error = err
		return result, err
	}

	directives, artifacts, err := steps.LocateFunc(config, sourceDir)
	if err != nil {
		result.Error = err
		return result, err
	}

	result.Directives = directives
	result.Artifacts = artifacts
	result.Success = true
	return result, nil
}
