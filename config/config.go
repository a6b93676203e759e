// Package config holds the options of randr-agent. Options are filled from
// struct tag defaults, then an optional HCL file, then the command line.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/fatih/structs"
	log "github.com/sirupsen/logrus"
	"github.com/yudai/hcl"
)

// DefaultConfigFile is read if present and no other file is given.
const DefaultConfigFile = "~/.randr-agent"

type Options struct {
	Broker          string  `hcl:"broker" flagName:"broker" flagSName:"b" flagDescribe:"MQTT broker URL" default:"tcp://localhost:1883"`
	TopicPrefix     string  `hcl:"topic_prefix" flagName:"topic-prefix" flagDescribe:"Prefix of all published MQTT topics" default:"randr-agent"`
	MachineID       string  `hcl:"machine_id" flagName:"machine-id" flagDescribe:"Machine ID used in topics (defaults to the systemd machine id)" default:""`
	RefreshInterval string  `hcl:"refresh_interval" flagName:"refresh-interval" flagDescribe:"How often xrandr is queried for changes" default:"1s"`
	Display         string  `hcl:"display" flagName:"display" flagSName:"d" flagDescribe:"X display to talk to (defaults to $DISPLAY)" default:""`
	ForceVersion    bool    `hcl:"force_version" flagName:"force-version" flagDescribe:"Accept xrandr and RandR versions known not to work" default:"false"`
	LogLevel        string  `hcl:"log_level" flagName:"log-level" flagSName:"l" flagDescribe:"Log level (trace, debug, info, warn, error)" default:"info"`
	SnapTolerance   int     `hcl:"snap_tolerance" flagName:"snap-tolerance" flagDescribe:"Snap positions set over MQTT to edges closer than this many pixels (0 disables)" default:"0"`
	PreviewScale    float64 `hcl:"preview_scale" flagName:"preview-scale" flagDescribe:"Pixels of the preview image per pixel of the virtual screen" default:"0.1"`
	Replay          string  `hcl:"replay" flagName:"replay" flagDescribe:"Read the output of xrandr --query --verbose from a file instead of running xrandr" default:""`
}

// ApplyDefaultValues sets every field with a default tag to that default.
func ApplyDefaultValues(struct_ interface{}) (err error) {
	o := structs.New(struct_)

	for _, field := range o.Fields() {
		defaultValue := field.Tag("default")
		if defaultValue == "" {
			continue
		}
		var val interface{}
		switch field.Kind() {
		case reflect.String:
			val = defaultValue
		case reflect.Bool:
			if defaultValue == "true" {
				val = true
			} else if defaultValue == "false" {
				val = false
			} else {
				return fmt.Errorf("invalid bool expression: %v, use true/false", defaultValue)
			}
		case reflect.Int:
			val, err = strconv.Atoi(defaultValue)
			if err != nil {
				return err
			}
		case reflect.Float64:
			val, err = strconv.ParseFloat(defaultValue, 64)
			if err != nil {
				return err
			}
		default:
			val = field.Value()
		}
		if err := field.Set(val); err != nil {
			return err
		}
	}
	return nil
}

// ApplyConfigFile decodes the HCL file at filePath into all options. A
// missing file is reported with an error satisfying os.IsNotExist.
func ApplyConfigFile(filePath string, options ...interface{}) error {
	filePath = ExpandHomeDir(filePath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return err
	}

	fileString, err := ioutil.ReadFile(filePath)
	if err != nil {
		return err
	}

	for _, object := range options {
		if err := hcl.Decode(object, string(fileString)); err != nil {
			return fmt.Errorf("unable to parse %s: %w", filePath, err)
		}
	}

	return nil
}

func ExpandHomeDir(path string) string {
	if len(path) >= 2 && path[0:2] == "~/" {
		return os.Getenv("HOME") + path[1:]
	}
	return path
}

// Validate checks the fields the flag and file parsers can not.
func (o *Options) Validate() error {
	if _, err := o.Refresh(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	if o.SnapTolerance < 0 {
		return fmt.Errorf("snap tolerance must not be negative: %d", o.SnapTolerance)
	}
	if o.PreviewScale <= 0 {
		return fmt.Errorf("preview scale must be positive: %v", o.PreviewScale)
	}
	return nil
}

// Refresh returns the parsed refresh interval.
func (o *Options) Refresh() (time.Duration, error) {
	d, err := time.ParseDuration(o.RefreshInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid refresh interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("refresh interval must be positive: %s", d)
	}
	return d, nil
}

// SetupLogging sets the logrus level.
func (o *Options) SetupLogging() error {
	level, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}
