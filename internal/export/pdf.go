package export

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"

	"MapSketch/internal/state"
)

const (
	pageWidth  = 210.0 // A4, mm
	pageHeight = 297.0
	pageMargin = 15.0
)

// PDF draws shapes onto a single A4 page, scaled in web-mercator space to
// fit inside the margins. Shapes are filled the same way the map draws them.
func PDF(w io.Writer, shapes []state.Shape) error {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetTitle("MapSketch export", true)
	p.AddPage()
	p.SetFont("Helvetica", "", 9)
	p.Text(pageMargin, pageMargin-5, titleLine(shapes))

	toPage := fit(shapes)
	p.SetLineWidth(0.3)
	p.SetDrawColor(255, 255, 255)
	p.SetFillColor(59, 178, 208)
	p.SetAlpha(0.5, "Normal")
	for _, sh := range shapes {
		for _, ring := range sh.Polygon {
			pts := make([]gofpdf.PointType, 0, len(ring))
			for _, g := range ring {
				pts = append(pts, toPage(g))
			}
			if len(pts) >= 3 {
				p.Polygon(pts, "DF")
			}
		}
	}
	p.SetAlpha(1, "Normal")

	if err := p.Output(w); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

// PDFFile writes PDF output to path.
func PDFFile(path string, shapes []state.Shape) error {
	return writeFile(path, func(w io.Writer) error { return PDF(w, shapes) })
}

func titleLine(shapes []state.Shape) string {
	if len(shapes) == 1 {
		return "MapSketch: 1 shape"
	}
	return fmt.Sprintf("MapSketch: %d shapes", len(shapes))
}

// fit returns a projection from lon/lat onto the page that keeps aspect
// ratio and centers the shapes' mercator bound in the printable area.
func fit(shapes []state.Shape) func(orb.Point) gofpdf.PointType {
	var bound orb.Bound
	first := true
	for _, sh := range shapes {
		b := project.Polygon(sh.Polygon.Clone(), project.WGS84.ToMercator).Bound()
		if first {
			bound, first = b, false
			continue
		}
		bound = bound.Union(b)
	}

	areaW := pageWidth - 2*pageMargin
	areaH := pageHeight - 2*pageMargin
	scale := 1.0
	if w, h := bound.Right()-bound.Left(), bound.Top()-bound.Bottom(); w > 0 || h > 0 {
		scale = math.Min(areaW/math.Max(w, 1e-9), areaH/math.Max(h, 1e-9))
	}
	center := bound.Center()

	return func(g orb.Point) gofpdf.PointType {
		m := project.WGS84.ToMercator(g)
		return gofpdf.PointType{
			X: pageWidth/2 + (m[0]-center[0])*scale,
			Y: pageHeight/2 - (m[1]-center[1])*scale,
		}
	}
}
