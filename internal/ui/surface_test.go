package ui

import (
	"io"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MapSketch/internal/geo"
	"MapSketch/internal/sketch"
	"MapSketch/internal/state"
)

func newTestSurface(t *testing.T, stable bool) *Surface {
	t.Helper()
	test.NewTempApp(t)

	log := logrus.New()
	log.SetOutput(io.Discard)
	v, err := geo.NewViewport(40.578679, -111.892347, 12, 400, 400)
	require.NoError(t, err)
	s, err := sketch.NewSimplifier(sketch.DefaultThreshold)
	require.NoError(t, err)
	return NewSurface(v, s, stable, log)
}

func press(s *Surface, x, y float32) {
	s.MouseDown(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)},
		Button:     desktop.MouseButtonPrimary,
	})
}

func drag(s *Surface, x, y float32) {
	s.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}})
}

func release(s *Surface) {
	s.MouseUp(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})
}

var squareStroke = []sketch.Point{
	{X: 10, Y: 10}, {X: 60, Y: 10}, {X: 110, Y: 10}, {X: 110, Y: 60},
	{X: 110, Y: 110}, {X: 60, Y: 110}, {X: 10, Y: 110}, {X: 10, Y: 60},
}

func recordedRing(points []sketch.Point) sketch.Ring {
	ring := append(sketch.Ring(nil), points...)
	return append(ring, points[0])
}

func TestSurfaceStrokeProducesSimplifiedRing(t *testing.T) {
	s := newTestSurface(t, false)
	var got []sketch.Ring
	s.OnPolygon = func(r sketch.Ring) { got = append(got, r) }

	s.ToggleDrawMode()
	require.True(t, s.DrawMode())

	press(s, float32(squareStroke[0].X), float32(squareStroke[0].Y))
	for _, p := range squareStroke[1:] {
		drag(s, float32(p.X), float32(p.Y))
	}
	release(s)

	require.Len(t, got, 1)
	want := s.simplifier.Simplify(recordedRing(squareStroke))
	assert.Equal(t, want, got[0])
	assert.Equal(t, squareStroke[0], got[0][0])
}

func TestSurfaceStableMode(t *testing.T) {
	s := newTestSurface(t, true)
	var got sketch.Ring
	s.OnPolygon = func(r sketch.Ring) { got = r }

	s.ToggleDrawMode()
	press(s, float32(squareStroke[0].X), float32(squareStroke[0].Y))
	for _, p := range squareStroke[1:] {
		drag(s, float32(p.X), float32(p.Y))
	}
	release(s)

	assert.Equal(t, s.simplifier.SimplifyStable(recordedRing(squareStroke)), got)
}

func TestSurfaceIgnoresPressOutsideDrawMode(t *testing.T) {
	s := newTestSurface(t, false)
	called := false
	s.OnPolygon = func(sketch.Ring) { called = true }

	press(s, 10, 10)
	assert.False(t, s.recorder.Recording())
	release(s)
	s.DragEnd()
	assert.False(t, called)
}

func TestSurfaceSecondPressRestartsStroke(t *testing.T) {
	s := newTestSurface(t, false)
	var got sketch.Ring
	s.OnPolygon = func(r sketch.Ring) { got = r }
	s.ToggleDrawMode()

	press(s, 1, 1)
	drag(s, 5, 5)
	press(s, 20, 20)
	assert.Equal(t, 1, s.recorder.Len())

	drag(s, 30, 20)
	s.DragEnd()
	require.NotNil(t, got)
	assert.Equal(t, sketch.Pt(20, 20), got[0])
	assert.False(t, s.recorder.Recording())
}

func TestSurfaceToggleOffAbandonsStroke(t *testing.T) {
	s := newTestSurface(t, false)
	called := false
	s.OnPolygon = func(sketch.Ring) { called = true }
	s.ToggleDrawMode()

	press(s, 1, 1)
	drag(s, 5, 5)
	s.ToggleDrawMode()
	assert.False(t, s.recorder.Recording())
	release(s)
	assert.False(t, called)
}

func TestSurfaceDragPansOutsideDrawMode(t *testing.T) {
	s := newTestSurface(t, false)
	before := s.Viewport().Center

	s.Dragged(&fyne.DragEvent{Dragged: fyne.Delta{DX: 100}})

	after := s.Viewport().Center
	assert.Less(t, after.Lon(), before.Lon())
	assert.InDelta(t, before.Lat(), after.Lat(), 1e-9)
}

func testTriangle(t *testing.T, s *Surface) orb.Polygon {
	t.Helper()
	poly, ok := s.Viewport().Polygon(sketch.Ring{{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 200, Y: 200}})
	require.True(t, ok)
	return poly
}

func TestSurfaceFrameProjectsShapes(t *testing.T) {
	s := newTestSurface(t, false)
	s.SetShapes([]state.Shape{{ID: "a", Polygon: testTriangle(t, s)}, {ID: "empty", Polygon: orb.Polygon{}}})

	f := s.frame()
	require.Len(t, f.rings, 1)
	assert.InDelta(t, 100, f.rings[0][0].X, 1e-6)
	assert.InDelta(t, 100, f.rings[0][0].Y, 1e-6)
}

func TestRendererFillsShapes(t *testing.T) {
	s := newTestSurface(t, false)
	s.SetShapes([]state.Shape{{ID: "a", Polygon: testTriangle(t, s)}})
	r := test.WidgetRenderer(s).(*surfaceRenderer)
	r.Layout(fyne.NewSize(400, 400))
	r.Refresh()

	bg := Styles[0].Background
	assert.Equal(t, blend(bg, fillColor), r.pixel(180, 120, 400, 400))
	assert.Equal(t, bg, r.pixel(120, 180, 400, 400))
	assert.Equal(t, bg, r.pixel(10, 10, 400, 400))
	// half-resolution raster maps back to the same screen points
	assert.Equal(t, blend(bg, fillColor), r.pixel(90, 60, 200, 200))
}

func TestRendererPixelDoesNotAllocate(t *testing.T) {
	s := newTestSurface(t, false)
	s.SetShapes([]state.Shape{{ID: "a", Polygon: testTriangle(t, s)}})
	r := test.WidgetRenderer(s).(*surfaceRenderer)
	r.Layout(fyne.NewSize(400, 400))
	r.Refresh()

	allocs := testing.AllocsPerRun(100, func() {
		r.pixel(180, 120, 400, 400)
		r.pixel(10, 10, 400, 400)
	})
	assert.Zero(t, allocs)
}

func TestRendererSkipsRasterForStrokePreview(t *testing.T) {
	s := newTestSurface(t, false)
	s.SetShapes([]state.Shape{{ID: "a", Polygon: testTriangle(t, s)}})
	r := test.WidgetRenderer(s).(*surfaceRenderer)
	r.Layout(fyne.NewSize(400, 400))
	r.Refresh()
	before := r.rebuilds

	s.ToggleDrawMode()
	press(s, 10, 10)
	for i := 1; i <= 20; i++ {
		drag(s, float32(10+i), float32(10+i*2))
	}
	assert.Equal(t, before, r.rebuilds)

	s.SetShapes(nil)
	r.Refresh()
	assert.Equal(t, before+1, r.rebuilds)
}

func TestSurfaceCycleStyle(t *testing.T) {
	s := newTestSurface(t, false)
	assert.Equal(t, "streets", s.Style().Name)

	var names []string
	for range Styles {
		names = append(names, s.CycleStyle().Name)
	}
	assert.Equal(t, []string{"dark", "light", "streets"}, names)

	require.NoError(t, s.SetStyle("light"))
	assert.Equal(t, "light", s.Style().Name)
	assert.ErrorIs(t, s.SetStyle("satellite"), ErrUnknownStyle)
	assert.Equal(t, "light", s.Style().Name)
}

func TestRendererUsesStyleBackground(t *testing.T) {
	s := newTestSurface(t, false)
	r := test.WidgetRenderer(s).(*surfaceRenderer)
	r.Layout(fyne.NewSize(400, 400))

	s.CycleStyle()
	assert.Equal(t, Styles[1].Background, r.pixel(10, 10, 400, 400))
}

func TestSurfaceTapSelectsMarker(t *testing.T) {
	s := newTestSurface(t, false)
	v := s.Viewport()
	s.SetMarkers([]geo.Marker{
		{At: v.Center, Title: "Default", Subtitle: "This is a default marker!"},
		{At: v.ToGeo(sketch.Pt(300, 300)), Title: "Circle marker", Circle: true},
	})

	_, ok := s.Selected()
	assert.False(t, ok)

	s.Tapped(&fyne.PointEvent{Position: fyne.NewPos(205, 195)})
	m, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Default", m.Title)

	s.Tapped(&fyne.PointEvent{Position: fyne.NewPos(300, 300)})
	m, ok = s.Selected()
	require.True(t, ok)
	assert.Equal(t, "Circle marker", m.Title)

	f := s.frame()
	require.Len(t, f.markers, 2)
	assert.False(t, f.markers[0].selected)
	assert.True(t, f.markers[1].selected)
	assert.Len(t, markerObjects(f.markers[1], Styles[0].Label), 4)
	assert.Len(t, markerObjects(f.markers[0], Styles[0].Label), 1)

	s.Tapped(&fyne.PointEvent{Position: fyne.NewPos(20, 380)})
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestBlend(t *testing.T) {
	bg := Styles[0].Background
	c := blend(bg, fillColor)
	assert.Equal(t, uint8(255), c.A)
	assert.NotEqual(t, bg, c)
	assert.Less(t, c.R, bg.R)
	assert.Greater(t, c.R, fillColor.R)
}
