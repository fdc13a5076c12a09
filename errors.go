package bearsslbuild

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingLocation reports that a configured path does not exist on disk.
// The resolver treats it as a signal to fall through to the next tier; it
// never escapes Resolve.
var ErrMissingLocation = errors.New("configured location does not exist")

// ErrNoMatches is wrapped by PatternError when a glob that must produce at
// least one file matched nothing.
var ErrNoMatches = errors.New("pattern matched no files")

// Stage names the pipeline step a failure originated in.
type Stage string

const (
	StageConfiguration Stage = "configuration"
	StageResolution    Stage = "resolution"
	StageCompilation   Stage = "compilation"
	StageGeneration    Stage = "generation"
)

// StageError attributes a fatal failure to the pipeline stage that produced
// it. Every error returned by Pipeline.Run is a *StageError.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExitStatusError is returned when an external process (git, the C
// compiler, the archiver or make) exits unsuccessfully.
//
// Status is the process exit status. When the process could not be started
// at all, Ran is false and Status is whatever mage's sh.ExitStatus reports
// for the underlying error.
type ExitStatusError struct {
	Cmd    string
	Args   []string
	Status int
	Ran    bool
	Output string
	Err    error
}

func (e *ExitStatusError) Error() string {
	cmdline := strings.TrimSpace(e.Cmd + " " + strings.Join(e.Args, " "))
	if !e.Ran {
		return fmt.Sprintf("failed to run %q: %v", cmdline, e.Err)
	}
	return fmt.Sprintf("%q: process exited unsuccessfully: exit status %d", cmdline, e.Status)
}

func (e *ExitStatusError) Unwrap() error { return e.Err }

// ExitStatus satisfies the interface mage uses to pick a process exit code,
// so mage targets propagate the child's status unchanged.
func (e *ExitStatusError) ExitStatus() int { return e.Status }

// ConfigError reports a configuration value that is required but absent, or
// present but unusable.
type ConfigError struct {
	Var string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Var, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PatternError reports a malformed glob, or a glob that matched nothing.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// TranslationError reports that the header translator could not resolve the
// include path or parse the header set.
type TranslationError struct {
	IncludePath string
	Headers     []string
	Err         error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translating %s (include path %s): %v",
		strings.Join(e.Headers, ", "), e.IncludePath, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }
