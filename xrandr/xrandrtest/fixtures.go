// Package xrandrtest holds xrandr transcripts and helpers for tests.
package xrandrtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/flokli/randr-agent/executions"
	"github.com/flokli/randr-agent/xrandr"
)

const screenLine = "Screen 0: minimum 320 x 200, current 1366 x 768, maximum 8192 x 8192\n"

// Verbose is `xrandr --query --verbose` of a laptop with its panel (LVDS1)
// active and primary, an attached but switched off monitor (HDMI1), an empty
// VGA port and a port of unknown state.
const Verbose = screenLine +
	"LVDS1 connected primary 1366x768+0+0 (0x48) normal (normal left inverted right x axis y axis) 309mm x 174mm\n" +
	"\tIdentifier: 0x45\n" +
	"\tTimestamp:  18405\n" +
	"\tSubpixel:   unknown\n" +
	"\tGamma:      1.0:1.0:1.0\n" +
	"\tBrightness: 1.0\n" +
	"\tClones:    \n" +
	"\tCRTC:       0\n" +
	"\tCRTCs:      0 1\n" +
	"\tTransform:  1.000000 0.000000 0.000000\n" +
	"\t            0.000000 1.000000 0.000000\n" +
	"\t            0.000000 0.000000 1.000000\n" +
	"\t           filter: \n" +
	"\tEDID: \n" +
	"\t\t00ffffffffffff0030e4d8020000\n" +
	"\t\t0000001501\n" +
	"\tBACKLIGHT: 937 \n" +
	"\t\trange: (0, 937)\n" +
	"\tscaling mode: Full aspect \n" +
	"\t\tsupported: None, Full, Center, Full aspect\n" +
	"\tBroadcast RGB:\tAutomatic\n" +
	"\t\tsupported: Automatic    Full         Limited     \n" +
	"\tweird:\tone\ttwo\n" +
	"  1366x768 (0x48) 76.000MHz -HSync -VSync *current +preferred\n" +
	"        h: width  1366 start 1402 end 1450 total 1610 skew    0 clock  47.20KHz\n" +
	"        v: height  768 start  771 end  776 total  786           clock  60.05Hz\n" +
	"  1024x768 (0x49) 65.000MHz -HSync -VSync\n" +
	"        h: width  1024 start 1048 end 1184 total 1344 skew    0 clock  48.36KHz\n" +
	"        v: height  768 start  771 end  777 total  806           clock  60.00Hz\n" +
	"VGA1 disconnected (normal left inverted right x axis y axis)\n" +
	"\tIdentifier: 0x46\n" +
	"\tTimestamp:  18405\n" +
	"\tSubpixel:   unknown\n" +
	"\tClones:    \n" +
	"\tCRTCs:      0 1\n" +
	"HDMI1 connected (normal left inverted right x axis y axis)\n" +
	"\tIdentifier: 0x47\n" +
	"\tTimestamp:  18405\n" +
	"\tSubpixel:   horizontal rgb\n" +
	"\tClones:    \n" +
	"\tCRTCs:      0 1\n" +
	"  1920x1080 (0x4a) 148.500MHz +HSync +VSync +preferred\n" +
	"        h: width  1920 start 2008 end 2052 total 2200 skew    0 clock  67.50KHz\n" +
	"        v: height 1080 start 1084 end 1089 total 1125           clock  60.00Hz\n" +
	"  1920x1080 (0x4b) 74.250MHz +HSync +VSync\n" +
	"        h: width  1920 start 2448 end 2492 total 2640 skew    0 clock  28.12KHz\n" +
	"        v: height 1080 start 1084 end 1089 total 1125           clock  25.00Hz\n" +
	"  1280x1024 (0x4c) 108.000MHz +HSync +VSync\n" +
	"        h: width  1280 start 1328 end 1440 total 1688 skew    0 clock  63.98KHz\n" +
	"        v: height 1024 start 1025 end 1028 total 1066           clock  60.02Hz\n" +
	"  1024x768 (0x49) 65.000MHz -HSync -VSync\n" +
	"        h: width  1024 start 1048 end 1184 total 1344 skew    0 clock  48.36KHz\n" +
	"        v: height  768 start  771 end  777 total  806           clock  60.00Hz\n" +
	"DP1 unknown connection (normal left inverted right x axis y axis)\n" +
	"\tIdentifier: 0x48\n" +
	"\tTimestamp:  18405\n" +
	"\tSubpixel:   unknown\n" +
	"\tClones:    \n" +
	"\tCRTCs:      0 1\n"

// OldVerbose is the output of an xrandr older than 1.2.2, which does not
// print the id of the current mode.
const OldVerbose = "Screen 0: minimum 320 x 200, current 1920 x 1080, maximum 8192 x 8192\n" +
	"VGA1 connected primary 1920x1080+0+0 normal (normal left inverted right x axis y axis) 510mm x 287mm\n" +
	"\tIdentifier: 0x42\n" +
	"  1280x1024 (0x4c) 108.000MHz +HSync +VSync\n" +
	"        h: width  1280 start 1328 end 1440 total 1688 skew    0 clock  63.98KHz\n" +
	"        v: height 1024 start 1025 end 1028 total 1066           clock  60.02Hz\n" +
	"  1920x1080 (0x4a) 148.500MHz +HSync +VSync +preferred\n" +
	"        h: width  1920 start 2008 end 2052 total 2200 skew    0 clock  67.50KHz\n" +
	"        v: height 1080 start 1084 end 1089 total 1125           clock  60.00Hz\n" +
	"  1920x1080 (0x4b) 74.250MHz +HSync +VSync\n" +
	"        h: width  1920 start 2448 end 2492 total 2640 skew    0 clock  28.12KHz\n" +
	"        v: height 1080 start 1084 end 1089 total 1125           clock  25.00Hz\n"

const (
	Help = "usage: xrandr [options]\n" +
		"  where options are:\n" +
		"  --display <display> or -d <display>\n" +
		"  --output <output>\n" +
		"      --primary\n"
	Version = "xrandr program version       1.5.0\n" +
		"Server reports RandR version 1.5\n"
)

// WithMaximum returns Verbose with a different maximum virtual screen size.
func WithMaximum(width, height int) string {
	return strings.Replace(Verbose, "maximum 8192 x 8192", fmt.Sprintf("maximum %d x %d", width, height), 1)
}

// MustParse parses verbose or fails the test.
func MustParse(t testing.TB, verbose string) *xrandr.Server {
	t.Helper()
	s, err := xrandr.Parse(verbose)
	if err != nil {
		t.Fatalf("unable to parse fixture: %v", err)
	}
	return s
}

// Runner returns a static runner that answers the queries xrandr.Client
// makes with the given verbose output.
func Runner(verbose string) *executions.Static {
	return executions.NewStatic().
		SetOutput(Help, "xrandr", "--help").
		SetOutput(Version, "xrandr", "--version").
		SetOutput(verbose, "xrandr", "--query", "--verbose")
}
