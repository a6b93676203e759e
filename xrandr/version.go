package xrandr

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	serverVersionPrefix  = "Server reports RandR version"
	programVersionPrefix = "xrandr program version"
)

// Supported range of the RandR protocol version reported by the server.
var (
	MinServerVersion = [2]int{1, 2}
	MaxServerVersion = [2]int{1, 6}
)

// Version holds the versions reported by xrandr --version.
type Version struct {
	// Server is the RandR protocol version the server implements, e.g. "1.6".
	Server string `json:"server"`
	// Program is the version of the xrandr binary. Versions before 1.3.1
	// don't print it; then it is inferred from the help text and is one of
	// "1.3.0", "1.2.x" or "< 1.2".
	Program string `json:"program"`
}

// ParseVersion interprets the outputs of xrandr --help and xrandr --version.
func ParseVersion(help, version string) (Version, error) {
	var v Version
	var leftover []string

	for _, l := range strings.Split(version, "\n") {
		if l == "" {
			continue
		}
		switch {
		case strings.HasPrefix(l, serverVersionPrefix):
			v.Server = strings.TrimSpace(l[len(serverVersionPrefix):])
		case strings.HasPrefix(l, programVersionPrefix):
			v.Program = strings.TrimSpace(l[len(programVersionPrefix):])
		default:
			leftover = append(leftover, l)
		}
	}

	if len(leftover) != 0 {
		log.WithField("lines", leftover).Warn("xrandr version interpretation has leftover lines")
	}

	if v.Server == "" {
		return v, &ParseError{Msg: "xrandr did not report a server version", Line: strings.TrimSpace(version)}
	}

	if v.Program == "" {
		v.Program = inferProgramVersion(help)
		log.WithField("program", v.Program).Debug("inferred xrandr program version from help text")
	}

	return v, nil
}

// inferProgramVersion guesses the version of xrandr binaries too old to
// report it, by looking for flags that were added over time.
func inferProgramVersion(help string) string {
	if !strings.Contains(help, "--output") {
		return "< 1.2"
	}
	if strings.Contains(help, "--primary") {
		// or 1.2.99.x
		return "1.3.0"
	}
	return "1.2.x"
}

func parseMajorMinor(s string) (int, int, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid version %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return major, minor, nil
}

// ServerMajorMinor returns the parsed server protocol version.
func (v Version) ServerMajorMinor() (int, int, error) {
	return parseMajorMinor(v.Server)
}

// AtLeastProgram tells whether the xrandr binary is at least major.minor.
// Inferred versions count as older than anything they could be.
func (v Version) AtLeastProgram(major, minor int) bool {
	if strings.ContainsAny(v.Program, "<x") {
		return false
	}
	pmaj, pmin, err := parseMajorMinor(v.Program)
	if err != nil {
		return false
	}
	return pmaj > major || (pmaj == major && pmin >= minor)
}

// Check returns a *VersionError if the server version is outside the
// supported range, unless force is set.
func (v Version) Check(force bool) error {
	major, minor, err := v.ServerMajorMinor()
	if err != nil {
		if force {
			return nil
		}
		return &VersionError{Version: v, Msg: "unable to interpret server version"}
	}

	below := major < MinServerVersion[0] || (major == MinServerVersion[0] && minor < MinServerVersion[1])
	above := major > MaxServerVersion[0] || (major == MaxServerVersion[0] && minor > MaxServerVersion[1])
	if !below && !above {
		return nil
	}

	if force {
		log.WithFields(log.Fields{
			"server":  v.Server,
			"program": v.Program,
		}).Warn("proceeding with unsupported RandR version")
		return nil
	}

	return &VersionError{
		Version: v,
		Msg: fmt.Sprintf("RandR %d.%d to %d.%d required",
			MinServerVersion[0], MinServerVersion[1], MaxServerVersion[0], MaxServerVersion[1]),
	}
}
