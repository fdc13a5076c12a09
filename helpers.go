package bearsslbuild

import (
	"fmt"
	"strings"
)

// BuildError creates a standardized build error with output context.
//
// With error and output:
//
//	Direct build failed: "cc -c ...": process exited unsuccessfully: exit status 1
//
//	Build output:
//	src/foo.c:1:1: error: ...
//
// The underlying error stays reachable through errors.As, so callers can
// still extract an *ExitStatusError.
func BuildError(builder string, output []string, err error) error {
	outputStr := strings.TrimSpace(strings.Join(output, "\n"))

	if err == nil {
		if outputStr != "" {
			return fmt.Errorf("%s build failed\n\nBuild output:\n%s", builder, outputStr)
		}
		return fmt.Errorf("%s build failed", builder)
	}

	if outputStr != "" {
		return fmt.Errorf("%s build failed: %w\n\nBuild output:\n%s", builder, err, outputStr)
	}
	return fmt.Errorf("%s build failed: %w", builder, err)
}
