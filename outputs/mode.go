package outputs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Mode struct {
	Width   int64   `json:"width"`
	Height  int64   `json:"height"`
	Refresh float64 `json:"refresh"`
	// Name and ID as known to the X server, only set in published data.
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`
	// Preferred is set for the modes the monitor prefers.
	Preferred bool `json:"preferred,omitempty"`
}

func (m *Mode) String() string {
	if m.Refresh != 0 {
		return fmt.Sprintf("%vx%v@%v", m.Width, m.Height, m.Refresh)
	} else {
		return fmt.Sprintf("%vx%v", m.Width, m.Height)
	}
}

// Matches tells whether o describes the same resolution, and the same
// refresh rate if both carry one. Rates are compared to two decimals.
func (m *Mode) Matches(o *Mode) bool {
	if m.Width != o.Width || m.Height != o.Height {
		return false
	}
	if m.Refresh == 0 || o.Refresh == 0 {
		return true
	}
	return fmt.Sprintf("%.2f", m.Refresh) == fmt.Sprintf("%.2f", o.Refresh)
}

// UnmarshalJSON accepts the object form as well as "1920x1080@60".
func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := NewMode(s)
		if err != nil {
			return err
		}
		*m = *parsed
		return nil
	}

	// without the methods, to not recurse
	type plain Mode
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = Mode(p)
	return nil
}

func NewMode(s string) (*Mode, error) {

	// split an optional freqency
	items := strings.SplitN(s, "@", 2)
	xyStr := items[0]
	refreshStr := ""
	if len(items) == 2 {
		refreshStr = items[1]
	}

	var refresh float64 = 0
	if refreshStr != "" {
		v, err := strconv.ParseFloat(refreshStr, 64)
		if err != nil {
			return nil, fmt.Errorf("unable to parse float: %w", err)
		}
		refresh = v
	}

	// parse x and y
	xyItems := strings.SplitN(xyStr, "x", 2)
	if len(xyItems) != 2 {
		return nil, fmt.Errorf("invalid XxY mode: %v", s)
	}

	x, err := strconv.ParseInt(xyItems[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unable to parse x as int: %w", err)
	}
	y, err := strconv.ParseInt(xyItems[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unable to parse y as int: %w", err)
	}

	return &Mode{
		Width:   x,
		Height:  y,
		Refresh: refresh,
	}, nil
}
