package xrandr

import (
	"context"
	"fmt"

	"github.com/flokli/randr-agent/executions"
	log "github.com/sirupsen/logrus"
)

const binary = "xrandr"

// Client talks to the xrandr binary through a Runner.
type Client struct {
	runner executions.Runner
	// ForceVersion accepts server versions outside the tested range.
	ForceVersion bool
}

func NewClient(runner executions.Runner, forceVersion bool) *Client {
	return &Client{runner: runner, ForceVersion: forceVersion}
}

func (c *Client) output(ctx context.Context, args ...string) (string, error) {
	out, err := executions.Read(ctx, c.runner, append([]string{binary}, args...)...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Version queries and checks the xrandr and RandR versions.
func (c *Client) Version(ctx context.Context) (Version, error) {
	// xrandr --help exits non-zero on some versions and prints to stderr on
	// others, so both streams count
	help, err := executions.ReadWithError(ctx, c.runner, binary, "--help")
	if err != nil {
		return Version{}, fmt.Errorf("unable to run xrandr --help: %w", err)
	}

	version, err := c.output(ctx, "--version")
	if err != nil {
		return Version{}, fmt.Errorf("unable to run xrandr --version: %w", err)
	}

	v, err := ParseVersion(string(help.Stdout)+string(help.Stderr), version)
	if err != nil {
		return v, err
	}

	return v, v.Check(c.ForceVersion)
}

// Load returns a fresh snapshot of the server.
func (c *Client) Load(ctx context.Context) (*Server, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}

	verbose, err := c.output(ctx, "--query", "--verbose")
	if err != nil {
		return nil, fmt.Errorf("unable to query xrandr: %w", err)
	}

	s, err := Parse(verbose)
	if err != nil {
		return nil, err
	}
	s.Version = v

	log.WithFields(log.Fields{
		"outputs": len(s.Outputs),
		"modes":   len(s.Modes),
		"primary": s.Primary,
	}).Debug("loaded xrandr state")

	return s, nil
}

// Apply runs xrandr with the given arguments. Any Server loaded before is
// likely stale afterwards.
func (c *Client) Apply(ctx context.Context, args []string) error {
	if len(args) == 0 {
		log.Debug("nothing to apply")
		return nil
	}
	if _, err := c.output(ctx, args...); err != nil {
		return fmt.Errorf("unable to apply xrandr configuration: %w", err)
	}
	return nil
}
