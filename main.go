package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/flokli/randr-agent/config"
	"github.com/flokli/randr-agent/executions"
	"github.com/flokli/randr-agent/outputs/randr"
	"github.com/flokli/randr-agent/render"
	"github.com/flokli/randr-agent/server"
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/transition"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type app struct {
	opts *config.Options
}

func (a *app) runner() executions.Runner {
	return executions.NewLocal(a.opts.Display)
}

func (a *app) client() *xrandr.Client {
	return xrandr.NewClient(a.runner(), a.opts.ForceVersion)
}

// loadServer queries xrandr, or parses the replay file if one is set.
func (a *app) loadServer(ctx context.Context) (*xrandr.Server, error) {
	if a.opts.Replay != "" {
		b, err := ioutil.ReadFile(config.ExpandHomeDir(a.opts.Replay))
		if err != nil {
			return nil, fmt.Errorf("unable to read replay file: %w", err)
		}
		return xrandr.Parse(string(b))
	}
	return a.client().Load(ctx)
}

// loadTransition builds a transition from the command line arguments.
func (a *app) loadTransition(c *cli.Context) (*xrandr.Server, *transition.Transition, error) {
	server, err := a.loadServer(c.Context)
	if err != nil {
		return nil, nil, err
	}
	t, err := transition.Load(server, c.Args().Slice())
	if err != nil {
		return server, nil, err
	}
	if c.Bool("shove") {
		if err := t.ShoveToFit(); err != nil {
			return server, t, err
		}
	}
	return server, t, nil
}

func (a *app) show(c *cli.Context) error {
	server, err := a.loadServer(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		b, err := json.MarshalIndent(server, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	fmt.Println(render.Table(server, nil))
	return nil
}

func (a *app) apply(c *cli.Context) error {
	server, t, err := a.loadTransition(c)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	fmt.Println(render.Table(server, t.Predict()))

	args, err := t.Serialize()
	if err != nil {
		return err
	}
	command := strings.Join(append([]string{"xrandr"}, args...), " ")
	fmt.Println(command)

	if c.Bool("copy") {
		if err := clipboard.WriteAll(command); err != nil {
			return fmt.Errorf("unable to copy to clipboard: %w", err)
		}
	}

	if c.Bool("dry-run") {
		return nil
	}
	if a.opts.Replay != "" {
		return fmt.Errorf("refusing to apply a transition against a replayed server, use --dry-run")
	}
	return t.Apply(c.Context, a.client())
}

func (a *app) preview(c *cli.Context) error {
	_, t, err := a.loadTransition(c)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	path := c.String("out")
	if err := render.SavePNG(path, t.Predict(), render.Options{Scale: a.opts.PreviewScale}); err != nil {
		return err
	}
	log.WithField("path", path).Info("wrote preview")
	return nil
}

func (a *app) agent(c *cli.Context) error {
	if a.opts.Replay != "" {
		return fmt.Errorf("the agent needs a live X server, not a replay")
	}
	refresh, err := a.opts.Refresh()
	if err != nil {
		return err
	}

	// get machine id
	machineID := a.opts.MachineID
	if machineID == "" {
		machineID, err = GetMachineID(c.Context, executions.NewLocal(""), machineIDFile)
		if err != nil {
			return fmt.Errorf("unable to get machine id: %w", err)
		}
	}

	watcher := randr.New(a.client())
	watcher.SnapTolerance = a.opts.SnapTolerance

	s := server.New(machineID, a.opts.TopicPrefix, watcher)
	if err := s.Run(c.Context, a.opts.Broker, refresh); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{opts: &config.Options{}}
	if err := config.ApplyDefaultValues(a.opts); err != nil {
		log.WithError(err).Fatal("invalid default options")
	}

	cliFlags, flagMappings, err := config.GenerateFlags(a.opts)
	if err != nil {
		log.WithError(err).Fatal("unable to generate flags")
	}
	cliFlags = append(cliFlags, &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   config.DefaultConfigFile,
		Usage:   "Config file path",
		EnvVars: []string{"RANDR_AGENT_CONFIG"},
	})

	transitionFlags := []cli.Flag{
		&cli.BoolFlag{Name: "shove", Usage: "Move outputs back into the virtual screen"},
	}

	cliApp := &cli.App{
		Name:      "randr-agent",
		Usage:     "Inspect and change the screen layout through xrandr",
		ArgsUsage: " ",
		Flags:     cliFlags,
		Before: func(c *cli.Context) error {
			configFile := c.String("config")
			if err := config.ApplyConfigFile(configFile, a.opts); err != nil {
				// the default file is optional
				if !os.IsNotExist(err) || c.IsSet("config") {
					return err
				}
			}
			config.ApplyFlags(flagMappings, c, a.opts)
			if err := a.opts.Validate(); err != nil {
				return err
			}
			return a.opts.SetupLogging()
		},
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the current layout",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print the full snapshot as JSON"}},
				Action: a.show,
			},
			{
				Name:      "apply",
				Usage:     "Apply xrandr arguments, validated against the current layout",
				ArgsUsage: "-- [xrandr arguments]",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Only print the predicted layout"},
					&cli.BoolFlag{Name: "copy", Usage: "Copy the resulting xrandr command line to the clipboard"},
				}, transitionFlags...),
				Action: a.apply,
			},
			{
				Name:      "preview",
				Usage:     "Draw the layout xrandr arguments would result in",
				ArgsUsage: "-- [xrandr arguments]",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "layout.png", Usage: "PNG file to write"},
				}, transitionFlags...),
				Action: a.preview,
			},
			{
				Name:   "agent",
				Usage:  "Publish the outputs to MQTT and accept changes from there",
				Action: a.agent,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Error("randr-agent failed")
		os.Exit(1)
	}
}
