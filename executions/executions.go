// Package executions runs external programs and captures their output.
//
// A Runner is the only place where the core blocks. Requests are atomic:
// an argument vector goes in, stdout, stderr and the exit code come out.
package executions

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Command describes a program invocation.
type Command struct {
	Argv []string
	// Env holds variables set in addition to the inherited environment.
	Env map[string]string
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Result is the captured outcome of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecutionError is returned when a command exited non-zero, or wrote to
// stderr while the caller did not expect it to.
type ExecutionError struct {
	Argv     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

func (e *ExecutionError) Error() string {
	stderr := strings.TrimSpace(string(e.Stderr))
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s returned error code %d: %s", strings.Join(e.Argv, " "), e.ExitCode, stderr)
	}
	return fmt.Sprintf("%s wrote to stderr: %s", strings.Join(e.Argv, " "), stderr)
}

// Read runs argv and returns its stdout. A non-zero exit code or any output
// on stderr is an *ExecutionError.
func Read(ctx context.Context, r Runner, argv ...string) ([]byte, error) {
	res, err := r.Run(ctx, Command{Argv: argv})
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 || len(bytes.TrimSpace(res.Stderr)) != 0 {
		return nil, &ExecutionError{
			Argv:     argv,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res.Stdout, nil
}

// ReadWithError runs argv and returns whatever it produced, regardless of
// exit code and stderr. Only failures to run the command at all are errors.
func ReadWithError(ctx context.Context, r Runner, argv ...string) (*Result, error) {
	return r.Run(ctx, Command{Argv: argv})
}
