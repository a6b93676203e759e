package outputs

import "context"

// Position is the top left corner of an output on the virtual screen.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// State describes the current state of an output.
// it can be also used to set (some) options, in a /set request.
type State struct {
	Enabled    *bool     `json:"enabled"`
	Mode       *Mode     `json:"mode"`
	Position   *Position `json:"position"`
	Rotation   *string   `json:"rotation"`
	Reflection *string   `json:"reflection"`
	Primary    *bool     `json:"primary"`
}

// Info describes some (fairly static) info about an output, such as its
// connection and the available modes.
type Info struct {
	Name        *string   `json:"name"`
	Connection  *string   `json:"connection"`
	Modes       *[]*Mode  `json:"modes"`
	WidthMM     *int      `json:"width_mm,omitempty"`
	HeightMM    *int      `json:"height_mm,omitempty"`
	Rotations   *[]string `json:"rotations"`
	Reflections *[]string `json:"reflections"`
}

type Output interface {
	// Getters
	GetInfo() *Info
	GetState() *State

	// Accepts a (partially populated) state object, and updates the underlying output.
	SetState(ctx context.Context, state *State) (*State, error)
}
