package executions

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Local runs commands on this machine.
type Local struct {
	// Env is applied to every command, below the command's own Env.
	Env map[string]string
}

// NewLocal returns a Local runner. If display is non-empty, commands are
// pointed at that X display.
func NewLocal(display string) *Local {
	env := map[string]string{}
	if display != "" {
		env["DISPLAY"] = display
	}
	return &Local{Env: env}
}

func (l *Local) Run(ctx context.Context, c Command) (*Result, error) {
	if len(c.Argv) == 0 {
		return nil, errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Env = os.Environ()
	for k, v := range l.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	for k, v := range c.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	l2 := log.WithFields(log.Fields{
		"name": c.Argv[0],
		"args": c.Argv[1:],
	})

	res := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			l2.WithError(err).Debug("failed running command")
			return nil, errors.Wrapf(err, "failed to run command `%s`", c.Argv[0])
		}
		res.ExitCode = exitErr.ExitCode()
	}

	l2.WithField("exitCode", res.ExitCode).Debug("ran command")
	return res, nil
}
