// Package geo maps screen-space sketch rings onto geographic coordinates.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"

	"MapSketch/internal/sketch"
)

// TileSize is the pixel width of a web map tile at zoom 0.
const TileSize = 256

// MaxZoom is the deepest zoom level a Viewport accepts.
const MaxZoom = 22

// Viewport is a web-mercator view of the map: a geographic center shown at
// the middle of a Width x Height screen at a zoom level.
type Viewport struct {
	Center orb.Point // lon, lat
	Zoom   float64
	Width  float64
	Height float64
}

// NewViewport returns a viewport centered on lon/lat.
func NewViewport(lat, lon, zoom, width, height float64) (Viewport, error) {
	v := Viewport{
		Center: orb.Point{lon, lat},
		Zoom:   zoom,
		Width:  width,
		Height: height,
	}
	return v, v.Validate()
}

// Validate checks the viewport can project points.
func (v Viewport) Validate() error {
	switch {
	case v.Center.Lat() < -85.0511 || v.Center.Lat() > 85.0511:
		return errors.Errorf("center latitude %v out of mercator range", v.Center.Lat())
	case v.Center.Lon() < -180 || v.Center.Lon() > 180:
		return errors.Errorf("center longitude %v out of range", v.Center.Lon())
	case v.Zoom < 0 || v.Zoom > MaxZoom:
		return errors.Errorf("zoom %v out of range [0, %d]", v.Zoom, MaxZoom)
	case v.Width <= 0 || v.Height <= 0:
		return errors.Errorf("screen size %vx%v must be positive", v.Width, v.Height)
	}
	return nil
}

// metersPerPixel is the mercator ground resolution at this zoom.
func (v Viewport) metersPerPixel() float64 {
	return 2 * math.Pi * orb.EarthRadius / (TileSize * math.Exp2(v.Zoom))
}

// ToGeo converts a screen point to lon/lat. Screen y grows downward.
func (v Viewport) ToGeo(p sketch.Point) orb.Point {
	c := project.WGS84.ToMercator(v.Center)
	mpp := v.metersPerPixel()
	m := orb.Point{
		c[0] + (p.X-v.Width/2)*mpp,
		c[1] - (p.Y-v.Height/2)*mpp,
	}
	return project.Mercator.ToWGS84(m)
}

// ToScreen converts lon/lat to a screen point.
func (v Viewport) ToScreen(g orb.Point) sketch.Point {
	c := project.WGS84.ToMercator(v.Center)
	m := project.WGS84.ToMercator(g)
	mpp := v.metersPerPixel()
	return sketch.Point{
		X: v.Width/2 + (m[0]-c[0])/mpp,
		Y: v.Height/2 - (m[1]-c[1])/mpp,
	}
}

// Pan moves the center by a screen delta, as when dragging the map.
func (v Viewport) Pan(dx, dy float64) Viewport {
	v.Center = v.ToGeo(sketch.Point{X: v.Width/2 - dx, Y: v.Height/2 - dy})
	return v
}

// Polygon projects a simplified ring into a closed geographic polygon.
// ok is false when the ring has fewer than three distinct vertices, in
// which case no polygon should be created.
func (v Viewport) Polygon(ring sketch.Ring) (orb.Polygon, bool) {
	if ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < sketch.MinVertices {
		return nil, false
	}

	out := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		out = append(out, v.ToGeo(p))
	}
	out = append(out, out[0])
	return orb.Polygon{out}, true
}

// ScreenRing projects a geographic ring back to the screen.
func (v Viewport) ScreenRing(r orb.Ring) sketch.Ring {
	out := make(sketch.Ring, 0, len(r))
	for _, g := range r {
		out = append(out, v.ToScreen(g))
	}
	return out
}
