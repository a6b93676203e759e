package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/flokli/randr-agent/executions"
	log "github.com/sirupsen/logrus"
)

const machineIDFile = "/etc/machine-id"

// GetMachineID asks systemd-id128 for the machine id, and falls back to
// reading machineIDPath on systems without it.
func GetMachineID(ctx context.Context, r executions.Runner, machineIDPath string) (string, error) {
	out, err := executions.Read(ctx, r, "systemd-id128", "machine-id", "-u")
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}
	log.WithError(err).Debug("systemd-id128 failed, reading " + machineIDPath)

	b, fileErr := ioutil.ReadFile(machineIDPath)
	if fileErr != nil {
		return "", fmt.Errorf("Failed to retrieve machine-id: %v: %w", err, fileErr)
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", fmt.Errorf("Failed to retrieve machine-id: %s is empty", machineIDPath)
	}
	return id, nil
}
