package xrandr

import (
	"fmt"
)

// Virtual describes the bounds of the virtual screen.
type Virtual struct {
	Min     Size `json:"min"`
	Current Size `json:"current"`
	Max     Size `json:"max"`
}

// PropertyKind tells which of the fields of a Property are set.
type PropertyKind int

const (
	// PropertyBlob is binary data, like an EDID.
	PropertyBlob PropertyKind = iota
	// PropertyInteger is a single integer, possibly with a range.
	PropertyInteger
	// PropertyString is a textual value, possibly with supported values.
	PropertyString
)

// Property is a vendor or driver property of an output.
type Property struct {
	Kind PropertyKind `json:"kind"`

	Blob    []byte `json:"blob,omitempty"`
	Integer int    `json:"integer,omitempty"`
	Text    string `json:"text,omitempty"`

	// Range is the inclusive [min, max] for changeable integers.
	Range *[2]int `json:"range,omitempty"`
	// Supported lists the values a string property can be set to.
	Supported []string `json:"supported,omitempty"`
}

func (p Property) String() string {
	switch p.Kind {
	case PropertyBlob:
		return fmt.Sprintf("%d bytes", len(p.Blob))
	case PropertyInteger:
		return fmt.Sprintf("%d", p.Integer)
	default:
		return p.Text
	}
}

// Transformation is the 3x3 matrix of the Transform detail, row major.
type Transformation [9]float64

// IdentityTransformation is what xrandr reports for untransformed outputs.
var IdentityTransformation = Transformation{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Output is an output as observed on the server. Outputs are not modified
// after parsing; a new Server is loaded instead.
type Output struct {
	Name       string           `json:"name"`
	Connection ConnectionStatus `json:"connection"`
	Primary    bool             `json:"primary"`

	// Active outputs have Geometry, Rotation and Reflection set. For
	// inactive outputs all three are nil.
	Active     bool        `json:"active"`
	Geometry   *Geometry   `json:"geometry,omitempty"`
	Rotation   *Rotation   `json:"rotation,omitempty"`
	Reflection *Reflection `json:"reflection,omitempty"`
	// ModeID of the current mode. It is nil if the output is inactive, or if
	// xrandr did not report it and it could not be inferred.
	ModeID *ModeID `json:"mode_id,omitempty"`

	AssignedModes        []AssignedMode `json:"assigned_modes"`
	SupportedRotations   []Rotation     `json:"supported_rotations"`
	SupportedReflections []Reflection   `json:"supported_reflections"`

	// PhysicalSize in millimeters, if known.
	PhysicalSize *Size `json:"physical_size,omitempty"`

	Identifier uint32          `json:"identifier"`
	Timestamp  int64           `json:"timestamp"`
	Subpixel   SubpixelOrder   `json:"subpixel"`
	Gamma      []float64       `json:"gamma,omitempty"`
	Brightness float64         `json:"brightness"`
	Clones     string          `json:"clones"`
	CRTC       *int            `json:"crtc,omitempty"`
	CRTCs      []int           `json:"crtcs,omitempty"`
	Transform  *Transformation `json:"transform,omitempty"`
	Panning    string          `json:"panning,omitempty"`
	Tracking   string          `json:"tracking,omitempty"`
	Border     string          `json:"border,omitempty"`

	Properties map[string]Property `json:"properties"`

	// headline mode id was missing, see inferCurrentModes
	modeIDMissing bool
}

// Mode returns the current mode of the output, or nil.
func (o *Output) Mode() *Mode {
	if o.ModeID == nil {
		return nil
	}
	for _, m := range o.AssignedModes {
		if m.ID == *o.ModeID {
			return m.Mode
		}
	}
	return nil
}

// PreferredMode returns the first preferred assigned mode, or nil.
func (o *Output) PreferredMode() *Mode {
	for _, m := range o.AssignedModes {
		if m.Preferred {
			return m.Mode
		}
	}
	return nil
}

// AssignedMode returns the assignment of the mode with the given id.
func (o *Output) AssignedMode(id ModeID) (AssignedMode, bool) {
	for _, m := range o.AssignedModes {
		if m.ID == id {
			return m, true
		}
	}
	return AssignedMode{}, false
}

// ModesNamed returns all assigned modes carrying name, in listing order.
func (o *Output) ModesNamed(name string) []AssignedMode {
	var modes []AssignedMode
	for _, m := range o.AssignedModes {
		if m.Name == name {
			modes = append(modes, m)
		}
	}
	return modes
}

func (o *Output) SupportsRotation(r Rotation) bool {
	for _, s := range o.SupportedRotations {
		if s == r {
			return true
		}
	}
	return false
}

func (o *Output) SupportsReflection(r Reflection) bool {
	for _, s := range o.SupportedReflections {
		if s == r {
			return true
		}
	}
	return false
}

// Server is a snapshot of the X server's RandR state.
type Server struct {
	Version Version `json:"version"`
	Virtual Virtual `json:"virtual"`

	Outputs map[string]*Output `json:"outputs"`
	Modes   map[ModeID]*Mode   `json:"modes"`

	// Primary is the name of the primary output, or empty.
	Primary string `json:"primary"`

	// Warnings collects non-fatal findings of the parser.
	Warnings []string `json:"warnings,omitempty"`

	order []string
}

// OutputNames returns the output names in the order xrandr listed them.
func (s *Server) OutputNames() []string {
	return append([]string(nil), s.order...)
}

// Output looks up an output by name.
func (s *Server) Output(name string) (*Output, bool) {
	o, ok := s.Outputs[name]
	return o, ok
}
