package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/flokli/randr-agent/xrandr"
	"github.com/flokli/randr-agent/xrandr/transition"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const padding = 10

var (
	backgroundColor = color.White
	outputColor     = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	primaryColor    = color.RGBA{R: 0xa8, G: 0xc8, B: 0xf0, A: 0xff}
	lineColor       = color.Black
)

// Options control the PNG rendering.
type Options struct {
	// Scale is the number of image pixels per screen pixel.
	Scale float64
	// FontSize in points, at 72 DPI.
	FontSize float64
}

// Size returns the dimensions of the image PNG would draw.
func Size(predicted *transition.PredictedServer, opts Options) (int, int, error) {
	bbox, ok := predicted.BoundingBox()
	if !ok {
		return 0, 0, fmt.Errorf("nothing to render: no active outputs")
	}
	if opts.Scale <= 0 {
		return 0, 0, fmt.Errorf("invalid scale %v", opts.Scale)
	}
	right := max(bbox.Left+bbox.Width, 1)
	bottom := max(bbox.Top+bbox.Height, 1)
	width := int(math.Ceil(float64(right)*opts.Scale)) + 2*padding
	height := int(math.Ceil(float64(bottom)*opts.Scale)) + 2*padding
	return width, height, nil
}

func newContext(predicted *transition.PredictedServer, opts Options) (*gg.Context, error) {
	width, height, err := Size(predicted, opts)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(backgroundColor)
	dc.Clear()

	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 12
	}
	dc.SetFontFace(truetype.NewFace(ttfFont, &truetype.Options{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	for _, o := range predicted.Active() {
		drawOutput(dc, o, opts.Scale, dc.FontHeight())
	}
	return dc, nil
}

func drawOutput(dc *gg.Context, o *transition.PredictedOutput, scale, lineHeight float64) {
	g, _ := o.Geometry()
	x := padding + float64(g.Left)*scale
	y := padding + float64(g.Top)*scale
	w := float64(g.Width) * scale
	h := float64(g.Height) * scale

	if o.Primary {
		dc.SetColor(primaryColor)
	} else {
		dc.SetColor(outputColor)
	}
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetLineWidth(1.0)
	dc.SetColor(lineColor)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	lines := []string{o.Name, o.ModeSize.String()}
	if o.Rotation != xrandr.RotationNormal {
		lines = append(lines, o.Rotation.String())
	}
	top := y + h/2 - float64(len(lines)-1)*lineHeight/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, x+w/2, top+float64(i)*lineHeight, 0.5, 0.5)
	}
}

// PNG draws the active outputs of predicted and writes the image to w.
func PNG(w io.Writer, predicted *transition.PredictedServer, opts Options) error {
	dc, err := newContext(predicted, opts)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

// SavePNG is PNG, written to the file at path.
func SavePNG(path string, predicted *transition.PredictedServer, opts Options) error {
	dc, err := newContext(predicted, opts)
	if err != nil {
		return err
	}
	return dc.SavePNG(path)
}
