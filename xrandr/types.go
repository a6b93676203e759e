package xrandr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/flokli/randr-agent/geometry"
)

// Size is a width and height in pixels (or millimeters, for physical sizes).
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Swapped returns the size with width and height exchanged.
func (s Size) Swapped() Size {
	return Size{Width: s.Height, Height: s.Width}
}

func parsePair(kind string, s string) (int, int, error) {
	items := strings.SplitN(s, "x", 2)
	if len(items) != 2 {
		return 0, 0, fmt.Errorf("%s uses AxB format: %q", kind, s)
	}
	a, err := strconv.Atoi(items[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse %s %q: %w", kind, s, err)
	}
	b, err := strconv.Atoi(items[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse %s %q: %w", kind, s, err)
	}
	return a, b, nil
}

// ParseSize parses "<width>x<height>".
func ParseSize(s string) (Size, error) {
	w, h, err := parsePair("size", s)
	return Size{Width: w, Height: h}, err
}

// Position is the top left corner of an output on the virtual screen.
type Position struct {
	Left int `json:"left"`
	Top  int `json:"top"`
}

func (p Position) String() string {
	return fmt.Sprintf("%dx%d", p.Left, p.Top)
}

// ParsePosition parses "<left>x<top>".
func ParsePosition(s string) (Position, error) {
	l, t, err := parsePair("position", s)
	return Position{Left: l, Top: t}, err
}

// Geometry is a position and a size.
type Geometry struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

var geometryRegex = regexp.MustCompile(`^([0-9]+)x([0-9]+)\+(-?[0-9]+)\+(-?[0-9]+)$`)

// ParseGeometry parses the X11 style "<w>x<h>+<l>+<t>".
func ParseGeometry(s string) (Geometry, error) {
	m := geometryRegex.FindStringSubmatch(s)
	if m == nil {
		return Geometry{}, fmt.Errorf("invalid geometry: %q", s)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Geometry{}, fmt.Errorf("invalid geometry %q: %w", s, err)
		}
		v[i] = n
	}
	return Geometry{Width: v[0], Height: v[1], Left: v[2], Top: v[3]}, nil
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", g.Width, g.Height, g.Left, g.Top)
}

func (g Geometry) Position() Position {
	return Position{Left: g.Left, Top: g.Top}
}

func (g Geometry) Size() Size {
	return Size{Width: g.Width, Height: g.Height}
}

func (g Geometry) Rect() geometry.Rect {
	return geometry.Rect{Left: g.Left, Top: g.Top, Width: g.Width, Height: g.Height}
}

// Polygon returns the outline of the geometry for hit testing.
func (g Geometry) Polygon() geometry.ConvexPolygon {
	return geometry.RectPolygon(g.Rect())
}

// Rotation of an output. The zero value is RotationNormal.
type Rotation int

const (
	RotationNormal Rotation = iota
	RotationLeft
	RotationInverted
	RotationRight
)

var rotationNames = map[Rotation]string{
	RotationNormal:   "normal",
	RotationLeft:     "left",
	RotationInverted: "inverted",
	RotationRight:    "right",
}

var rotationAliases = invert(rotationNames)

func (r Rotation) String() string {
	if s, ok := rotationNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Rotation(%d)", int(r))
}

// IsOdd is true for rotations that exchange width and height.
func (r Rotation) IsOdd() bool {
	return r == RotationLeft || r == RotationRight
}

func ParseRotation(s string) (Rotation, error) {
	if r, ok := rotationAliases[s]; ok {
		return r, nil
	}
	return 0, &FlagError{Kind: "rotation", Value: s}
}

// Reflection of an output. The zero value is ReflectionNone.
type Reflection int

const (
	ReflectionNone Reflection = iota
	ReflectionX
	ReflectionY
	ReflectionXY
)

var reflectionNames = map[Reflection]string{
	ReflectionNone: "noaxis",
	ReflectionX:    "xaxis",
	ReflectionY:    "yaxis",
	ReflectionXY:   "xyaxis",
}

// words for --reflect
var reflectionArgs = map[Reflection]string{
	ReflectionNone: "normal",
	ReflectionX:    "x",
	ReflectionY:    "y",
	ReflectionXY:   "xy",
}

var reflectionAliases = func() map[string]Reflection {
	m := invert(reflectionNames)
	for k, v := range invert(reflectionArgs) {
		m[k] = v
	}
	// as printed in the headline of xrandr --verbose
	m["X axis"] = ReflectionX
	m["Y axis"] = ReflectionY
	m["X and Y axis"] = ReflectionXY
	m["none"] = ReflectionNone
	m[""] = ReflectionNone
	return m
}()

func (r Reflection) String() string {
	if s, ok := reflectionNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reflection(%d)", int(r))
}

// Arg returns the word xrandr --reflect accepts for r.
func (r Reflection) Arg() string {
	return reflectionArgs[r]
}

func (r Reflection) X() bool {
	return r == ReflectionX || r == ReflectionXY
}

func (r Reflection) Y() bool {
	return r == ReflectionY || r == ReflectionXY
}

func ParseReflection(s string) (Reflection, error) {
	if r, ok := reflectionAliases[s]; ok {
		return r, nil
	}
	return 0, &FlagError{Kind: "reflection", Value: s}
}

// ModeFlag is one of the sync and scan flags of a mode line.
type ModeFlag string

const (
	ModeFlagPHSync     ModeFlag = "+HSync"
	ModeFlagNHSync     ModeFlag = "-HSync"
	ModeFlagPVSync     ModeFlag = "+VSync"
	ModeFlagNVSync     ModeFlag = "-VSync"
	ModeFlagInterlace  ModeFlag = "Interlace"
	ModeFlagDoubleScan ModeFlag = "DoubleScan"
	ModeFlagPCSync     ModeFlag = "+CSync"
	ModeFlagNCSync     ModeFlag = "-CSync"
	ModeFlagCSync      ModeFlag = "CSync"
)

var modeFlags = map[string]ModeFlag{}

func init() {
	for _, f := range []ModeFlag{
		ModeFlagPHSync, ModeFlagNHSync, ModeFlagPVSync, ModeFlagNVSync,
		ModeFlagInterlace, ModeFlagDoubleScan, ModeFlagPCSync, ModeFlagNCSync, ModeFlagCSync,
	} {
		modeFlags[string(f)] = f
	}
}

func ParseModeFlag(s string) (ModeFlag, error) {
	if f, ok := modeFlags[s]; ok {
		return f, nil
	}
	return "", &FlagError{Kind: "mode flag", Value: s}
}

// SubpixelOrder as reported in the Subpixel detail.
type SubpixelOrder string

const (
	SubpixelUnknown       SubpixelOrder = "unknown"
	SubpixelHorizontalRGB SubpixelOrder = "horizontal rgb"
	SubpixelHorizontalBGR SubpixelOrder = "horizontal bgr"
	SubpixelVerticalRGB   SubpixelOrder = "vertical rgb"
	SubpixelVerticalBGR   SubpixelOrder = "vertical bgr"
	SubpixelNone          SubpixelOrder = "no subpixels"
)

func ParseSubpixelOrder(s string) (SubpixelOrder, error) {
	switch o := SubpixelOrder(s); o {
	case SubpixelUnknown, SubpixelHorizontalRGB, SubpixelHorizontalBGR,
		SubpixelVerticalRGB, SubpixelVerticalBGR, SubpixelNone:
		return o, nil
	}
	return "", &FlagError{Kind: "subpixel order", Value: s}
}

// ConnectionStatus of an output.
type ConnectionStatus string

const (
	Connected         ConnectionStatus = "connected"
	Disconnected      ConnectionStatus = "disconnected"
	UnknownConnection ConnectionStatus = "unknown connection"
)

func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	switch c := ConnectionStatus(s); c {
	case Connected, Disconnected, UnknownConnection:
		return c, nil
	}
	return "", &FlagError{Kind: "connection status", Value: s}
}

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
