package ui

import (
	"image/color"

	"github.com/pkg/errors"
)

// Style is a base map palette. Shapes keep the same fill and outline in
// every style; only the map and marker label colours change.
type Style struct {
	Name       string
	Background color.NRGBA
	Label      color.NRGBA
}

// Styles is the order the View action cycles through.
var Styles = []Style{
	{Name: "streets", Background: color.NRGBA{R: 242, G: 239, B: 233, A: 255}, Label: color.NRGBA{R: 40, G: 40, B: 40, A: 255}},
	{Name: "dark", Background: color.NRGBA{R: 52, G: 51, B: 50, A: 255}, Label: color.NRGBA{R: 235, G: 235, B: 235, A: 255}},
	{Name: "light", Background: color.NRGBA{R: 250, G: 250, B: 248, A: 255}, Label: color.NRGBA{R: 90, G: 90, B: 90, A: 255}},
}

var (
	fillColor    = color.NRGBA{R: 59, G: 178, B: 208, A: 128}
	outlineColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	previewColor = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	pinColor     = color.NRGBA{R: 220, G: 60, B: 50, A: 255}
	circleColor  = color.NRGBA{R: 0, G: 200, B: 0, A: 255}
)

// ErrUnknownStyle is returned for a style name not in Styles.
var ErrUnknownStyle = errors.New("unknown map style")

// StyleIndex returns the position of name in Styles.
func StyleIndex(name string) (int, error) {
	for i, s := range Styles {
		if s.Name == name {
			return i, nil
		}
	}
	return 0, errors.Wrap(ErrUnknownStyle, name)
}

func blend(bg, fg color.NRGBA) color.NRGBA {
	a := uint32(fg.A)
	mix := func(b, f uint8) uint8 { return uint8((uint32(f)*a + uint32(b)*(255-a)) / 255) }
	return color.NRGBA{R: mix(bg.R, fg.R), G: mix(bg.G, fg.G), B: mix(bg.B, fg.B), A: 255}
}
