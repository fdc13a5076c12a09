package bearsslbuild

import (
	"fmt"
	"os/exec"
	"strings"
)

// ToolChecker is an optional interface for builders that require external
// tools. BuilderFactory.BuildLocation calls CheckTools before Build so a
// missing compiler fails fast with a readable message instead of an exec
// error halfway through a compile.
//
// # Platform Support
//
// Tool alternatives handle platform differences:
//   - FreeBSD: gmake instead of make, clang instead of gcc
//   - Windows: nmake instead of make
//   - macOS: clang by default
//
// Consumer usage:
//
//	if checker, ok := builder.(ToolChecker); ok {
//	    if err := checker.CheckTools(config); err != nil {
//	        return fmt.Errorf("build tools missing: %w", err)
//	    }
//	}
type ToolChecker interface {
	// RequiredTools returns the tools this builder needs under config.
	// Overrides such as CC or MAKE replace the defaults.
	RequiredTools(config *Config) []ToolRequirement

	// CheckTools verifies that all required tools are available.
	CheckTools(config *Config) error
}

// ToolRequirement describes a build tool dependency.
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name: "cc",
//	    Alternatives: []string{"gcc", "clang"},
//	    Purpose: "C compiler",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "cc", "make").
	Name string

	// Alternatives can satisfy the requirement when Name is absent. The
	// builder runs whichever program Find returns.
	Alternatives []string

	// Purpose is a human-readable description of why the tool is needed.
	Purpose string
}

// lookPath is swapped out by tests.
var lookPath = exec.LookPath

// Find returns the first of Name and Alternatives found in PATH. When none
// is found it returns Name and false.
func (r ToolRequirement) Find() (string, bool) {
	for _, tool := range append([]string{r.Name}, r.Alternatives...) {
		if CheckToolAvailable(tool) == nil {
			return tool, true
		}
	}
	return r.Name, false
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := lookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// CheckRequiredTools verifies all required tools are available.
//
// The primary name is tried first, then each alternative in order. All
// missing required tools are reported in a single error:
//
//	missing required tools: cc (C compiler), ar (static archiver)
func CheckRequiredTools(requirements []ToolRequirement) error {
	var missingTools []string

	for _, req := range requirements {
		if _, found := req.Find(); !found {
			if req.Purpose != "" {
				missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
			} else {
				missingTools = append(missingTools, req.Name)
			}
		}
	}

	if len(missingTools) == 0 {
		return nil
	}

	if len(missingTools) == 1 {
		return fmt.Errorf("%s not found in PATH", missingTools[0])
	}

	return fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
}

// overrideRequirement pins a requirement to a user-supplied program. The
// program is used exactly, so alternatives no longer apply.
func overrideRequirement(program, purpose string) ToolRequirement {
	return ToolRequirement{Name: program, Purpose: purpose}
}
