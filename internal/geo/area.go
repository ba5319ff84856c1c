package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"MapSketch/internal/sketch"
)

// Area returns the approximate surface area of a lon/lat polygon in square meters.
func Area(p orb.Polygon) float64 {
	return orbgeo.Area(p)
}

// PlanarRing converts a screen ring to a closed orb ring for planar tests
// such as planar.RingContains. Rings too small to enclose an area yield nil.
func PlanarRing(r sketch.Ring) orb.Ring {
	if len(r) < sketch.MinVertices {
		return nil
	}
	ring := make(orb.Ring, 0, len(r)+1)
	for _, q := range r {
		ring = append(ring, orb.Point{q.X, q.Y})
	}
	if !r.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Marker is a labelled point of interest on the map.
type Marker struct {
	At       orb.Point
	Title    string
	Subtitle string
	// Circle draws the marker as a filled circle instead of a pin.
	Circle bool
}
