// Package render draws servers and predicted layouts for humans: as a
// table for the terminal, or as a PNG.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/transition"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	changedStyle = lipgloss.NewStyle().PaddingRight(2).Foreground(lipgloss.Color("3"))
	frameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).PaddingLeft(1)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Describe summarizes a single predicted output in one line, like
// "1920x1080+1366+0 1920x1080@60.00 left primary".
func Describe(o *transition.PredictedOutput) string {
	g, ok := o.Geometry()
	if !ok {
		return "off"
	}
	parts := []string{g.String()}
	if o.Mode != nil {
		parts = append(parts, fmt.Sprintf("%s@%.2f", o.Mode.Name, o.Mode.RefreshRate()))
	}
	if o.Rotation != xrandr.RotationNormal {
		parts = append(parts, o.Rotation.String())
	}
	if o.Reflection != xrandr.ReflectionNone {
		parts = append(parts, o.Reflection.String())
	}
	if o.Primary {
		parts = append(parts, "primary")
	}
	return strings.Join(parts, " ")
}

// Table renders all outputs of server. If predicted is not nil, a column
// with the state after the transition is added, with changes highlighted.
func Table(server *xrandr.Server, predicted *transition.PredictedServer) string {
	current := transition.New(server).Predict()

	header := []string{"OUTPUT", "CONNECTION", "CURRENT"}
	if predicted != nil {
		header = append(header, "PREDICTED")
	}
	columns := make([][]string, len(header))
	for i, h := range header {
		columns[i] = []string{headerStyle.Render(h)}
	}

	for _, name := range server.OutputNames() {
		now := Describe(current.Outputs[name])
		columns[0] = append(columns[0], cellStyle.Render(name))
		columns[1] = append(columns[1], cellStyle.Render(string(server.Outputs[name].Connection)))
		columns[2] = append(columns[2], cellStyle.Render(now))
		if predicted != nil {
			after := "?"
			if p, ok := predicted.Outputs[name]; ok {
				after = Describe(p)
			}
			style := cellStyle
			if after != now {
				style = changedStyle
			}
			columns[3] = append(columns[3], style.Render(after))
		}
	}

	rendered := make([]string, len(columns))
	for i, c := range columns {
		rendered[i] = lipgloss.JoinVertical(lipgloss.Left, c...)
	}

	screen := fmt.Sprintf("screen: minimum %s, current %s, maximum %s",
		server.Virtual.Min, server.Virtual.Current, server.Virtual.Max)
	blocks := []string{screen, lipgloss.JoinHorizontal(lipgloss.Top, rendered...)}
	for _, w := range server.Warnings {
		blocks = append(blocks, warningStyle.Render("warning: "+w))
	}
	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, blocks...))
}
