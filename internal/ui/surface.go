package ui

import (
	"image/color"
	"io"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"MapSketch/internal/geo"
	"MapSketch/internal/sketch"
	"MapSketch/internal/state"
)

const (
	markerSize = 30
	// markerHit is how far from a marker's centre a tap still selects it.
	markerHit = 15
)

// Surface is the drawing layer over the map. In draw mode a primary-button
// drag is recorded as a stroke, simplified, and handed to OnPolygon when
// released. Outside draw mode drags pan the map.
type Surface struct {
	widget.BaseWidget

	// OnPolygon receives each simplified stroke, in screen coordinates.
	OnPolygon func(ring sketch.Ring)
	// OnClear is called by the toolbar's clear action.
	OnClear func()
	// OnSave writes the shapes in the format named by ext (".pdf" or ".geojson").
	OnSave func(w io.Writer, ext string) error
	// OnLoad reads shapes from a GeoJSON file.
	OnLoad func(r io.Reader) error

	log        logrus.FieldLogger
	recorder   *sketch.Recorder
	simplifier *sketch.Simplifier
	stable     bool

	mu       sync.RWMutex
	viewport geo.Viewport
	shapes   []state.Shape
	markers  []geo.Marker
	selected int
	style    int
	drawMode bool
	// rev changes whenever anything under the strokes does: shapes, view,
	// style or markers. The renderer only re-rasterises on a new rev.
	rev uint64

	statusBar *widget.Label
}

var _ fyne.Widget = (*Surface)(nil)
var _ fyne.Draggable = (*Surface)(nil)
var _ fyne.Tappable = (*Surface)(nil)
var _ desktop.Mouseable = (*Surface)(nil)

// NewSurface builds a surface showing v. When stable is set strokes are
// simplified with SimplifyStable.
func NewSurface(v geo.Viewport, s *sketch.Simplifier, stable bool, log logrus.FieldLogger) *Surface {
	b := &Surface{
		log:        log,
		recorder:   sketch.NewRecorder(),
		simplifier: s,
		stable:     stable,
		viewport:   v,
		selected:   -1,
		statusBar:  widget.NewLabel("Ready"),
	}
	b.ExtendBaseWidget(b)
	return b
}

// Viewport returns the current map view.
func (b *Surface) Viewport() geo.Viewport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.viewport
}

// SetShapes replaces the committed shapes. Safe to call from any goroutine.
func (b *Surface) SetShapes(shapes []state.Shape) {
	b.mu.Lock()
	b.shapes = shapes
	b.rev++
	b.mu.Unlock()
	fyne.Do(b.Refresh)
}

// SetMarkers replaces the map markers and clears any open callout. It does
// not redraw; call Refresh if the surface is already shown.
func (b *Surface) SetMarkers(markers []geo.Marker) {
	b.mu.Lock()
	b.markers = append([]geo.Marker(nil), markers...)
	b.selected = -1
	b.rev++
	b.mu.Unlock()
}

// SetStatus updates the status line. Safe to call from any goroutine.
func (b *Surface) SetStatus(text string) {
	fyne.Do(func() { b.statusBar.SetText(text) })
}

// Style returns the current base map style.
func (b *Surface) Style() Style {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Styles[b.style]
}

// SetStyle switches to the named style. Like SetMarkers it does not redraw.
func (b *Surface) SetStyle(name string) error {
	i, err := StyleIndex(name)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.style = i
	b.rev++
	b.mu.Unlock()
	return nil
}

// CycleStyle moves to the next style: streets, dark, light, then back.
func (b *Surface) CycleStyle() Style {
	b.mu.Lock()
	b.style = (b.style + 1) % len(Styles)
	st := Styles[b.style]
	b.rev++
	b.mu.Unlock()

	b.statusBar.SetText("View: " + st.Name)
	b.Refresh()
	return st
}

// DrawMode reports whether drags are recorded as strokes.
func (b *Surface) DrawMode() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.drawMode
}

// ToggleDrawMode switches between drawing and panning. Turning draw mode
// off abandons any open stroke.
func (b *Surface) ToggleDrawMode() {
	b.mu.Lock()
	b.drawMode = !b.drawMode
	on := b.drawMode
	b.mu.Unlock()

	if !on {
		b.recorder.Reset()
	}
	if on {
		b.statusBar.SetText("Draw mode: drag to outline an area")
	} else {
		b.statusBar.SetText("View mode: drag to pan")
	}
	b.Refresh()
}

func toPoint(p fyne.Position) sketch.Point {
	return sketch.Pt(float64(p.X), float64(p.Y))
}

func (b *Surface) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary || !b.DrawMode() {
		return
	}
	p := toPoint(e.Position)
	if err := b.recorder.Begin(p); err != nil {
		b.log.WithError(err).Warn("stroke already open, restarting")
		b.recorder.Reset()
		if err := b.recorder.Begin(p); err != nil {
			b.log.WithError(err).Error("could not restart stroke")
			return
		}
	}
	b.Refresh()
}

func (b *Surface) Dragged(e *fyne.DragEvent) {
	if b.recorder.Recording() {
		if err := b.recorder.Extend(toPoint(e.Position)); err != nil {
			b.log.WithError(err).Warn("dropping stroke point")
		}
		b.Refresh()
		return
	}
	if b.DrawMode() {
		return
	}
	b.mu.Lock()
	b.viewport = b.viewport.Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
	b.rev++
	b.mu.Unlock()
	b.Refresh()
}

func (b *Surface) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.finishStroke()
	}
}

func (b *Surface) DragEnd() {
	b.finishStroke()
}

func (b *Surface) finishStroke() {
	if !b.recorder.Recording() {
		return
	}
	ring, err := b.recorder.End()
	switch {
	case errors.Is(err, sketch.ErrEmptyStroke):
		b.log.Debug("empty stroke ignored")
		return
	case err != nil:
		b.log.WithError(err).Warn("stroke failed")
		b.recorder.Reset()
		return
	}

	simplified := b.simplify(ring)
	b.log.WithFields(logrus.Fields{"points": len(ring), "kept": len(simplified)}).Debug("stroke simplified")
	b.Refresh()
	if b.OnPolygon != nil {
		b.OnPolygon(simplified)
	}
}

func (b *Surface) simplify(ring sketch.Ring) sketch.Ring {
	if b.stable {
		return b.simplifier.SimplifyStable(ring)
	}
	return b.simplifier.Simplify(ring)
}

// Tapped opens the callout of the marker under the pointer, or closes the
// open one when the tap misses every marker.
func (b *Surface) Tapped(e *fyne.PointEvent) {
	p := toPoint(e.Position)
	b.mu.Lock()
	b.selected = -1
	for i, m := range b.markers {
		if b.viewport.ToScreen(m.At).Sub(p).Length() <= markerHit {
			b.selected = i
			break
		}
	}
	sel := b.selected
	var title string
	if sel >= 0 {
		title = b.markers[sel].Title
	}
	b.rev++
	b.mu.Unlock()

	if sel >= 0 {
		b.log.WithField("marker", title).Info("marker selected")
	}
	b.Refresh()
}

// Selected returns the marker whose callout is open.
func (b *Surface) Selected() (geo.Marker, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.selected < 0 {
		return geo.Marker{}, false
	}
	return b.markers[b.selected], true
}

func (b *Surface) MouseIn(*desktop.MouseEvent)    {}
func (b *Surface) MouseOut()                      {}
func (b *Surface) MouseMoved(*desktop.MouseEvent) {}

func (b *Surface) Scrolled(e *fyne.ScrollEvent) {
	b.mu.Lock()
	z := b.viewport.Zoom + float64(e.Scrolled.DY)/100
	if z >= 0 && z <= geo.MaxZoom {
		b.viewport.Zoom = z
		b.rev++
	}
	b.mu.Unlock()
	b.Refresh()
}

func (b *Surface) setScreenSize(size fyne.Size) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, h := float64(size.Width), float64(size.Height)
	if w > 0 && h > 0 && (w != b.viewport.Width || h != b.viewport.Height) {
		b.viewport.Width = w
		b.viewport.Height = h
		b.rev++
	}
}

type placedMarker struct {
	geo.Marker
	at       sketch.Point
	selected bool
}

// frame is what the renderer draws below the live stroke.
type frame struct {
	rev     uint64
	rings   []sketch.Ring
	style   Style
	markers []placedMarker
}

// frame projects the committed shapes and markers onto the current view.
func (b *Surface) frame() frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f := frame{
		rev:     b.rev,
		rings:   make([]sketch.Ring, 0, len(b.shapes)),
		style:   Styles[b.style],
		markers: make([]placedMarker, len(b.markers)),
	}
	for _, sh := range b.shapes {
		if len(sh.Polygon) > 0 {
			f.rings = append(f.rings, b.viewport.ScreenRing(sh.Polygon[0]))
		}
	}
	for i, m := range b.markers {
		f.markers[i] = placedMarker{Marker: m, at: b.viewport.ToScreen(m.At), selected: i == b.selected}
	}
	return f
}

func (b *Surface) revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rev
}

func (b *Surface) CreateRenderer() fyne.WidgetRenderer {
	r := &surfaceRenderer{surface: b}
	r.fill = canvas.NewRasterWithPixels(r.pixel)
	r.rebuild()
	return r
}

type surfaceRenderer struct {
	surface *Surface
	fill    *canvas.Raster
	size    fyne.Size

	frame    frame
	rebuilds int
	// per-shape planar rings and bounds, built once per frame for pixel
	fills  []orb.Ring
	bounds []orb.Bound
	bg     color.Color
	shaded color.Color
}

// rebuild takes a new frame from the surface and caches what pixel needs.
func (r *surfaceRenderer) rebuild() {
	r.frame = r.surface.frame()
	r.fills = r.fills[:0]
	r.bounds = r.bounds[:0]
	for _, ring := range r.frame.rings {
		pr := geo.PlanarRing(ring)
		if pr == nil {
			continue
		}
		r.fills = append(r.fills, pr)
		r.bounds = append(r.bounds, pr.Bound())
	}
	r.bg = r.frame.style.Background
	r.shaded = blend(r.frame.style.Background, fillColor)
	r.rebuilds++
}

func (r *surfaceRenderer) pixel(x, y, w, h int) color.Color {
	if w == 0 || h == 0 {
		return r.bg
	}
	p := orb.Point{
		float64(x) * float64(r.size.Width) / float64(w),
		float64(y) * float64(r.size.Height) / float64(h),
	}
	for i, ring := range r.fills {
		if r.bounds[i].Contains(p) && planar.RingContains(ring, p) {
			return r.shaded
		}
	}
	return r.bg
}

func polyline(ring sketch.Ring, c color.Color, width float32, closed bool) []fyne.CanvasObject {
	var out []fyne.CanvasObject
	n := len(ring)
	if n < 2 {
		return nil
	}
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		a, b := ring[i], ring[(i+1)%n]
		line := canvas.NewLine(c)
		line.StrokeWidth = width
		line.Position1 = fyne.NewPos(float32(a.X), float32(a.Y))
		line.Position2 = fyne.NewPos(float32(b.X), float32(b.Y))
		out = append(out, line)
	}
	return out
}

func markerObjects(m placedMarker, label color.Color) []fyne.CanvasObject {
	x, y := float32(m.at.X), float32(m.at.Y)
	var dot *canvas.Circle
	if m.Circle {
		dot = canvas.NewCircle(circleColor)
		dot.Resize(fyne.NewSize(markerSize, markerSize))
		dot.Move(fyne.NewPos(x-markerSize/2, y-markerSize/2))
	} else {
		dot = canvas.NewCircle(pinColor)
		dot.StrokeColor = outlineColor
		dot.StrokeWidth = 2
		dot.Resize(fyne.NewSize(markerSize/2, markerSize/2))
		dot.Move(fyne.NewPos(x-markerSize/4, y-markerSize/2))
	}
	objects := []fyne.CanvasObject{dot}
	if !m.selected {
		return objects
	}

	title := canvas.NewText(m.Title, label)
	title.TextStyle = fyne.TextStyle{Bold: true}
	sub := canvas.NewText(m.Subtitle, label)
	sub.TextSize = title.TextSize * 0.85
	width := fyne.Max(title.MinSize().Width, sub.MinSize().Width) + 12
	height := title.MinSize().Height + sub.MinSize().Height + 8

	box := canvas.NewRectangle(color.NRGBA{R: 128, G: 128, B: 128, A: 90})
	box.CornerRadius = 4
	box.Resize(fyne.NewSize(width, height))
	top := y - markerSize/2 - height - 4
	box.Move(fyne.NewPos(x-width/2, top))
	title.Move(fyne.NewPos(x-width/2+6, top+4))
	sub.Move(fyne.NewPos(x-width/2+6, top+4+title.MinSize().Height))
	return append(objects, box, title, sub)
}

func (r *surfaceRenderer) Objects() []fyne.CanvasObject {
	objects := []fyne.CanvasObject{r.fill}
	for _, ring := range r.frame.rings {
		objects = append(objects, polyline(ring, outlineColor, 2, true)...)
	}
	for _, m := range r.frame.markers {
		objects = append(objects, markerObjects(m, r.frame.style.Label)...)
	}
	objects = append(objects, polyline(r.surface.recorder.Points(), previewColor, 1, false)...)
	return objects
}

// Refresh redraws the live stroke. The fill is only re-rasterised when
// shapes, view or style changed since the last frame.
func (r *surfaceRenderer) Refresh() {
	if r.surface.revision() != r.frame.rev {
		r.rebuild()
		r.fill.Refresh()
	}
	canvas.Refresh(r.surface)
}

func (r *surfaceRenderer) Layout(size fyne.Size) {
	r.size = size
	r.surface.setScreenSize(size)
	r.fill.Resize(size)
	if r.surface.revision() != r.frame.rev {
		r.rebuild()
	}
}

func (r *surfaceRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (r *surfaceRenderer) Destroy() {}
