package bearsslbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeRunner records commands instead of executing them. Handle, when set,
// decides each command's output and error.
type fakeRunner struct {
	mu       sync.Mutex
	commands []Command
	Handle   func(Command) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, c Command) (string, error) {
	f.mu.Lock()
	f.commands = append(f.commands, c)
	f.mu.Unlock()
	if f.Handle == nil {
		return "", nil
	}
	return f.Handle(c)
}

func (f *fakeRunner) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command{}, f.commands...)
}

// exitWith fakes a process that ran and exited with status.
func exitWith(c Command, status int, output string) error {
	return &ExitStatusError{
		Cmd:    c.Name,
		Args:   c.Args,
		Status: status,
		Ran:    true,
		Output: output,
		Err:    errors.New("exit status"),
	}
}

// argAfter returns the argument following flag in args.
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// writeFile creates path, and its parents, with content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// onPath makes CheckToolAvailable see exactly the given tools for the rest
// of the test.
func onPath(t *testing.T, tools ...string) {
	t.Helper()
	available := map[string]bool{}
	for _, tool := range tools {
		available[tool] = true
	}
	saved := lookPath
	lookPath = func(file string) (string, error) {
		if available[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	t.Cleanup(func() { lookPath = saved })
}
