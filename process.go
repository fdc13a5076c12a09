package bearsslbuild

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/sh"
)

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string            // Working directory; empty means the current one
	Env  map[string]string // Added on top of the parent environment
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes external processes. The resolver and both source builders
// go through a Runner so tests can substitute a fake.
type Runner interface {
	// Run executes cmd to completion and returns its combined output. A
	// process that cannot be started or exits nonzero yields an
	// *ExitStatusError.
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Debug("exec", "cmd", c.String(), "dir", c.Dir)

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for key, value := range c.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
		}
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), &ExitStatusError{
			Cmd:    c.Name,
			Args:   c.Args,
			Status: sh.ExitStatus(err),
			Ran:    sh.CmdRan(err),
			Output: string(output),
			Err:    err,
		}
	}
	return string(output), nil
}

// outputLines splits captured process output for BuildResult.Output.
func outputLines(output string) []string {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}
