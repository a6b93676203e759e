package xrandr

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	headlineRegex = regexp.MustCompile(`^(?P<name>\S+) (?P<connection>connected|disconnected|unknown connection) ` +
		`(?P<primary>primary )?` +
		`((?P<geometry>[0-9x+-]+)( \(0x(?P<mode>[0-9a-fA-F]+)\))? (?P<rotation>normal|left|inverted|right) ((?P<reflection>none|X axis|Y axis|X and Y axis) )?)?` +
		`\(` +
		`(?P<rotations>((normal|left|inverted|right) ?)*)` +
		`(?P<reflections>((x axis|y axis) ?)*)` +
		`\)` +
		`( (?P<physical_x>[0-9]+)mm x (?P<physical_y>[0-9]+)mm)?$`)

	modeSummaryRegex = regexp.MustCompile(`^(?P<name>.+?) +\(0x(?P<id>[0-9a-fA-F]+)\) +(?P<pixelclock>[0-9]+\.[0-9]+)MHz` +
		`(?P<flags>( ([+-][HVC]Sync|Interlace|DoubleScan|CSync))*)` +
		`(?P<serverflags>( (\*current|\+preferred))*)` +
		`(?P<garbage>.*)$`)
	modeHorizontalRegex = regexp.MustCompile(`^ +h: +width +(?P<width>[0-9]+) +start +(?P<start>[0-9]+) +end +(?P<end>[0-9]+)` +
		` +total +(?P<total>[0-9]+) +skew +(?P<skew>[0-9]+) +clock +(?P<clock>[0-9]+\.[0-9]+)KHz$`)
	modeVerticalRegex = regexp.MustCompile(`^ +v: +height +(?P<height>[0-9]+) +start +(?P<start>[0-9]+) +end +(?P<end>[0-9]+)` +
		` +total +(?P<total>[0-9]+) +clock +(?P<clock>[0-9]+\.[0-9]+)Hz$`)

	integerPropertyRegex = regexp.MustCompile(`^\s*(?P<decimal>-?[0-9]+)( +\(0x[0-9a-fA-F]+\))?` +
		`(\trange: *\((?P<min>-?[0-9]+), *(?P<max>-?[0-9]+)\))?\s*$`)
	rangeLineRegex = regexp.MustCompile(`^\s*range: *\((?P<min>-?[0-9]+), *(?P<max>-?[0-9]+)\)\s*$`)
)

const (
	supportedPrefix = "\tsupported:"
	// width of the columns xrandr lays supported values out in
	supportedColumnWidth = 13
)

func submatches(re *regexp.Regexp, s string) map[string]string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = m[i]
		}
	}
	return out
}

type parser struct {
	server *Server
}

// Parse interprets the output of `xrandr --query --verbose`. It does not
// run anything.
func Parse(verbose string) (*Server, error) {
	p := &parser{
		server: &Server{
			Outputs: map[string]*Output{},
			Modes:   map[ModeID]*Mode{},
		},
	}

	if err := p.parse(verbose); err != nil {
		return nil, err
	}

	p.inferCurrentModes()

	return p.server, nil
}

func (p *parser) warn(msg string, fields log.Fields) {
	log.WithFields(fields).Warn(msg)
	if name, ok := fields["output"]; ok {
		msg = fmt.Sprintf("%s: %s", name, msg)
	}
	p.server.Warnings = append(p.server.Warnings, msg)
}

func (p *parser) parse(verbose string) error {
	lines := strings.Split(strings.TrimSuffix(verbose, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return &ParseError{Msg: "empty output"}
	}

	virtual, err := parseScreenLine(lines[0])
	if err != nil {
		return err
	}
	p.server.Virtual = virtual
	lines = lines[1:]

	for len(lines) > 0 {
		headline := lines[0]
		lines = lines[1:]
		if strings.HasPrefix(headline, " ") || strings.HasPrefix(headline, "\t") {
			return parseErrorf(headline, "expected new output section, got whitespace")
		}

		var details, modes []string
		for len(lines) > 0 && strings.HasPrefix(lines[0], "\t") {
			details = append(details, lines[0][1:])
			lines = lines[1:]
		}
		for len(lines) > 0 && strings.HasPrefix(lines[0], " ") {
			modes = append(modes, strings.TrimPrefix(lines[0], "  "))
			lines = lines[1:]
		}

		output, err := p.parseHeadline(headline)
		if err != nil {
			return err
		}
		if _, dup := p.server.Outputs[output.Name]; dup {
			return parseErrorf(headline, "output %s listed twice", output.Name)
		}
		if output.Primary {
			if p.server.Primary != "" {
				return parseErrorf(headline, "more than one primary output")
			}
			p.server.Primary = output.Name
		}

		if err := p.parseDetails(output, details); err != nil {
			return err
		}
		if err := p.parseModes(output, modes); err != nil {
			return err
		}

		p.server.Outputs[output.Name] = output
		p.server.order = append(p.server.order, output.Name)
	}

	return nil
}

// parseScreenLine interprets
// "Screen 0: minimum 320 x 200, current 1920 x 1080, maximum 8192 x 8192".
func parseScreenLine(line string) (Virtual, error) {
	tokens := strings.Split(line, " ")
	skeleton := []string{"Screen", "", "minimum", "", "x", "", "current", "", "x", "", "maximum", "", "x", ""}

	if len(tokens) != len(skeleton) {
		return Virtual{}, parseErrorf(line, "unexpected screen line")
	}
	for i, expected := range skeleton {
		if expected != "" && tokens[i] != expected {
			return Virtual{}, parseErrorf(line, "unexpected screen line")
		}
	}

	// the screen number in tokens[1] is discarded
	var v [6]int
	for i, idx := range []int{3, 5, 7, 9, 11, 13} {
		n, err := strconv.Atoi(strings.TrimSuffix(tokens[idx], ","))
		if err != nil {
			return Virtual{}, parseErrorf(line, "unexpected screen line")
		}
		v[i] = n
	}

	return Virtual{
		Min:     Size{Width: v[0], Height: v[1]},
		Current: Size{Width: v[2], Height: v[3]},
		Max:     Size{Width: v[4], Height: v[5]},
	}, nil
}

func (p *parser) parseHeadline(headline string) (*Output, error) {
	m := submatches(headlineRegex, headline)
	if m == nil {
		return nil, parseErrorf(headline, "unmatched headline")
	}

	// the regexp only lets valid values through, so the Parse* calls below
	// can not fail
	connection, _ := ParseConnectionStatus(m["connection"])

	o := &Output{
		Name:       m["name"],
		Connection: connection,
		Primary:    m["primary"] != "",
		Properties: map[string]Property{},
	}

	if m["geometry"] != "" {
		g, err := ParseGeometry(m["geometry"])
		if err != nil {
			return nil, parseErrorf(headline, "can not parse geometry %q", m["geometry"])
		}
		rotation, _ := ParseRotation(m["rotation"])
		reflection, _ := ParseReflection(m["reflection"])

		o.Active = true
		o.Geometry = &g
		o.Rotation = &rotation
		o.Reflection = &reflection

		if m["mode"] != "" {
			id, err := strconv.ParseUint(m["mode"], 16, 32)
			if err != nil {
				return nil, parseErrorf(headline, "can not parse mode id %q", m["mode"])
			}
			modeID := ModeID(id)
			o.ModeID = &modeID
		} else {
			o.modeIDMissing = true
		}
	}

	for _, r := range strings.Fields(m["rotations"]) {
		rotation, _ := ParseRotation(r)
		o.SupportedRotations = append(o.SupportedRotations, rotation)
	}

	o.SupportedReflections = []Reflection{ReflectionNone}
	x := strings.Contains(m["reflections"], "x axis")
	y := strings.Contains(m["reflections"], "y axis")
	if x {
		o.SupportedReflections = append(o.SupportedReflections, ReflectionX)
	}
	if y {
		o.SupportedReflections = append(o.SupportedReflections, ReflectionY)
	}
	if x && y {
		o.SupportedReflections = append(o.SupportedReflections, ReflectionXY)
	}

	if m["physical_x"] != "" {
		// digits only, guaranteed by the regexp
		px, _ := strconv.Atoi(m["physical_x"])
		py, _ := strconv.Atoi(m["physical_y"])
		o.PhysicalSize = &Size{Width: px, Height: py}
	}

	return o, nil
}

func (p *parser) parseModes(o *Output, lines []string) error {
	if len(lines)%3 != 0 {
		return parseErrorf(strings.Join(lines, "\n"), "unknown mode line format (not a multiple of 3)")
	}

	for i := 0; i < len(lines); i += 3 {
		assigned, err := p.parseMode(o.Name, lines[i], lines[i+1], lines[i+2])
		if err != nil {
			return err
		}

		if known, ok := p.server.Modes[assigned.ID]; ok {
			if !known.Equal(assigned.Mode) {
				return parseErrorf(lines[i], "mode %s shows up twice with different data", assigned.ID)
			}
			assigned.Mode = known
		} else {
			p.server.Modes[assigned.ID] = assigned.Mode
		}

		o.AssignedModes = append(o.AssignedModes, assigned)
	}

	return nil
}

func (p *parser) parseMode(output, summary, horizontal, vertical string) (AssignedMode, error) {
	s := submatches(modeSummaryRegex, summary)
	if s == nil {
		return AssignedMode{}, parseErrorf(summary, "can not parse mode line")
	}
	h := submatches(modeHorizontalRegex, horizontal)
	if h == nil {
		return AssignedMode{}, parseErrorf(horizontal, "can not parse mode line")
	}
	v := submatches(modeVerticalRegex, vertical)
	if v == nil {
		return AssignedMode{}, parseErrorf(vertical, "can not parse mode line")
	}

	id, err := strconv.ParseUint(s["id"], 16, 32)
	if err != nil {
		return AssignedMode{}, parseErrorf(summary, "can not parse mode id")
	}
	pclk, err := strconv.ParseFloat(s["pixelclock"], 64)
	if err != nil {
		return AssignedMode{}, parseErrorf(summary, "can not parse pixel clock")
	}

	// all remaining fields are digits only, guaranteed by the regexps
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	mode := &Mode{
		ID:         ModeID(id),
		Name:       s["name"],
		PixelClock: pclk,
		HDisplay:   atoi(h["width"]),
		HSyncStart: atoi(h["start"]),
		HSyncEnd:   atoi(h["end"]),
		HTotal:     atoi(h["total"]),
		HSkew:      atoi(h["skew"]),
		VDisplay:   atoi(v["height"]),
		VSyncStart: atoi(v["start"]),
		VSyncEnd:   atoi(v["end"]),
		VTotal:     atoi(v["total"]),
	}
	for _, f := range strings.Fields(s["flags"]) {
		flag, _ := ParseModeFlag(f)
		mode.Flags = append(mode.Flags, flag)
	}

	if garbage := strings.TrimSpace(s["garbage"]); garbage != "" {
		p.warn("unparsed part of mode line", log.Fields{"output": output, "garbage": garbage})
	}

	return AssignedMode{
		Mode:      mode,
		Preferred: strings.Contains(s["serverflags"], "+preferred"),
		Current:   strings.Contains(s["serverflags"], "*current"),
	}, nil
}

func (p *parser) parseDetails(o *Output, lines []string) error {
	for len(lines) > 0 {
		detail := []string{lines[0]}
		lines = lines[1:]
		for len(lines) > 0 && (strings.HasPrefix(lines[0], " ") || strings.HasPrefix(lines[0], "\t")) {
			detail = append(detail, lines[0])
			lines = lines[1:]
		}
		if err := p.parseDetail(o, detail); err != nil {
			return err
		}
	}
	return nil
}

// simpleDetails handles the well known details that are one line long.
var simpleDetails = map[string]func(o *Output, data string) error{
	"identifier": func(o *Output, data string) error {
		if !strings.HasPrefix(data, "0x") {
			return fmt.Errorf("not a hex number")
		}
		id, err := strconv.ParseUint(data[2:], 16, 32)
		o.Identifier = uint32(id)
		return err
	},
	"timestamp": func(o *Output, data string) error {
		ts, err := strconv.ParseInt(data, 10, 64)
		o.Timestamp = ts
		return err
	},
	"subpixel": func(o *Output, data string) error {
		s, err := ParseSubpixelOrder(data)
		o.Subpixel = s
		return err
	},
	"gamma": func(o *Output, data string) error {
		parts := strings.Split(data, ":")
		if len(parts) != 3 {
			return fmt.Errorf("expected three components")
		}
		gamma := make([]float64, 3)
		for i, part := range parts {
			g, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return err
			}
			gamma[i] = g
		}
		o.Gamma = gamma
		return nil
	},
	"brightness": func(o *Output, data string) error {
		b, err := strconv.ParseFloat(data, 64)
		o.Brightness = b
		return err
	},
	"clones": func(o *Output, data string) error {
		o.Clones = data
		return nil
	},
	"crtc": func(o *Output, data string) error {
		crtc, err := strconv.Atoi(data)
		if err != nil {
			return err
		}
		o.CRTC = &crtc
		return nil
	},
	"crtcs": func(o *Output, data string) error {
		o.CRTCs = []int{}
		for _, f := range strings.Fields(data) {
			crtc, err := strconv.Atoi(f)
			if err != nil {
				return err
			}
			o.CRTCs = append(o.CRTCs, crtc)
		}
		return nil
	},
}

func (p *parser) parseDetail(o *Output, detail []string) error {
	idx := strings.Index(detail[0], ":")
	if idx < 0 {
		return parseErrorf(detail[0], "detail doesn't contain a recognizable label")
	}
	label := detail[0][:idx]
	detail[0] = detail[0][idx+1:]

	if fn, ok := simpleDetails[strings.ToLower(label)]; ok {
		if len(detail) != 1 {
			return parseErrorf(strings.Join(detail, "\n"), "can not evaluate detail %s", label)
		}
		if err := fn(o, strings.TrimSpace(detail[0])); err != nil {
			return parseErrorf(detail[0], "can not evaluate detail %s: %v", label, err)
		}
		return nil
	}

	switch label {
	case "Transform":
		t, err := parseTransform(detail)
		if err != nil {
			return parseErrorf(strings.Join(detail, "\n"), "can not evaluate detail %s: %v", label, err)
		}
		o.Transform = &t
		return nil
	case "Panning":
		o.Panning = strings.TrimSpace(detail[0])
		return nil
	case "Tracking":
		o.Tracking = strings.TrimSpace(detail[0])
		return nil
	case "Border":
		o.Border = strings.TrimSpace(detail[0])
		return nil
	}

	prop, ok := p.parseProperty(o.Name, label, detail)
	if ok {
		o.Properties[label] = prop
	}
	return nil
}

func parseTransform(detail []string) (Transformation, error) {
	var values []float64
	for _, line := range detail {
		if strings.Contains(line, "filter:") {
			continue
		}
		for _, f := range strings.Fields(line) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Transformation{}, err
			}
			values = append(values, v)
		}
	}
	var t Transformation
	if len(values) != len(t) {
		return t, fmt.Errorf("expected %d values, got %d", len(t), len(values))
	}
	copy(t[:], values)
	return t, nil
}

// parseProperty interprets the generic property shapes: hex blobs, integers
// with an optional range, and strings with an optional list of supported
// values. Properties that fit none of these are dropped with a warning.
func (p *parser) parseProperty(output, label string, detail []string) (Property, bool) {
	fields := log.Fields{"output": output, "property": label}
	first, rest := detail[0], detail[1:]

	// blob
	if strings.TrimSpace(first) == "" && len(rest) > 0 {
		var b strings.Builder
		for _, line := range rest {
			b.WriteString(strings.TrimSpace(line))
		}
		data, err := hex.DecodeString(b.String())
		if err != nil {
			p.warn("can not decode binary property", fields)
			return Property{}, false
		}
		return Property{Kind: PropertyBlob, Blob: data}, true
	}

	if prop, ok := parseIntegerProperty(first, rest); ok {
		return prop, true
	}

	if strings.Count(first, "\t") > 1 {
		// multi-valued atoms, not interpreted
		p.warn("can not interpret property", fields)
		return Property{}, false
	}

	prop := Property{Kind: PropertyString, Text: strings.TrimSpace(first)}
	if len(rest) == 0 {
		return prop, true
	}

	if !strings.HasPrefix(rest[0], supportedPrefix) {
		p.warn("unhandled data in property", fields)
		return Property{}, false
	}

	supported, ok := parseSupported(rest)
	if !ok {
		p.warn("can not read supported values of property", fields)
	}
	prop.Supported = supported
	return prop, true
}

func parseIntegerProperty(first string, rest []string) (Property, bool) {
	m := submatches(integerPropertyRegex, first)
	if m == nil || len(rest) > 1 {
		return Property{}, false
	}

	min, max := m["min"], m["max"]
	if len(rest) == 1 {
		r := submatches(rangeLineRegex, rest[0])
		if r == nil {
			return Property{}, false
		}
		min, max = r["min"], r["max"]
	}

	prop := Property{Kind: PropertyInteger}
	prop.Integer, _ = strconv.Atoi(m["decimal"])
	if min != "" && max != "" {
		lo, _ := strconv.Atoi(min)
		hi, _ := strconv.Atoi(max)
		prop.Range = &[2]int{lo, hi}
	}
	return prop, true
}

// parseSupported reads the supported values following a string property.
// xrandr lists them either comma separated, or in fixed width columns.
func parseSupported(lines []string) ([]string, bool) {
	chunks := make([]string, len(lines))
	chunks[0] = strings.TrimPrefix(lines[0], supportedPrefix)
	for i, line := range lines[1:] {
		chunks[i+1] = strings.TrimLeft(line, "\t")
	}
	all := strings.Join(chunks, "")

	if strings.Contains(all, ",") {
		var values []string
		for _, v := range strings.Split(all, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		return values, true
	}

	for _, c := range chunks {
		if len(c)%supportedColumnWidth != 0 {
			return nil, false
		}
	}
	var values []string
	for i := 0; i+supportedColumnWidth <= len(all); i += supportedColumnWidth {
		column := all[i : i+supportedColumnWidth]
		// every column starts with a separating space
		if column[0] != ' ' {
			return nil, false
		}
		values = append(values, strings.TrimSpace(column))
	}
	return values, true
}

// inferCurrentModes fills in the current mode of active outputs when xrandr
// was too old to report it (before 1.2.2): the first assigned mode with the
// output's dimensions is taken.
func (p *parser) inferCurrentModes() {
	for _, name := range p.server.order {
		o := p.server.Outputs[name]
		if !o.Active || !o.modeIDMissing {
			continue
		}

		size := o.Geometry.Size()
		if o.Rotation != nil && o.Rotation.IsOdd() {
			size = size.Swapped()
		}

		for i, m := range o.AssignedModes {
			if m.Size() == size {
				id := m.ID
				o.ModeID = &id
				o.AssignedModes[i].Current = true
				break
			}
		}

		fields := log.Fields{"output": name}
		if o.ModeID == nil {
			p.warn("old xrandr version (< 1.2.2), current mode unknown", fields)
		} else {
			p.warn("old xrandr version (< 1.2.2), guessing current mode", fields)
		}
	}
}
