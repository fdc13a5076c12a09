package bearsslbuild

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("cause")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "stage",
			err:  &StageError{Stage: StageCompilation, Err: cause},
			want: "compilation failed: cause",
		},
		{
			name: "config",
			err:  &ConfigError{Var: OutDirVar, Err: cause},
			want: "configuration OUT_DIR: cause",
		},
		{
			name: "pattern",
			err:  &PatternError{Pattern: "/src/**/*.c", Err: ErrNoMatches},
			want: `pattern "/src/**/*.c": pattern matched no files`,
		},
		{
			name: "translation",
			err:  &TranslationError{IncludePath: "/inc", Headers: []string{"a.h", "b.h"}, Err: cause},
			want: "translating a.h, b.h (include path /inc): cause",
		},
		{
			name: "exit status",
			err:  &ExitStatusError{Cmd: "git", Args: []string{"fetch"}, Status: 128, Ran: true, Err: cause},
			want: `"git fetch": process exited unsuccessfully: exit status 128`,
		},
		{
			name: "did not run",
			err:  &ExitStatusError{Cmd: "git", Err: cause},
			want: `failed to run "git": cause`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	inner := &ExitStatusError{Cmd: "make", Status: 2, Ran: true, Err: errors.New("exit status 2")}
	err := &StageError{Stage: StageCompilation, Err: BuildError("Make", nil, inner)}

	var exitErr *ExitStatusError
	assert.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Status)
}
