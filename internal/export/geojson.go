// Package export writes the session's shapes to files.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"MapSketch/internal/geo"
	"MapSketch/internal/state"
)

// FeatureCollection converts shapes to GeoJSON features with id, owner and
// area_m2 properties.
func FeatureCollection(shapes []state.Shape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, sh := range shapes {
		f := geojson.NewFeature(sh.Polygon.Clone())
		f.ID = sh.ID
		f.Properties["owner"] = sh.OwnerID
		f.Properties["area_m2"] = geo.Area(sh.Polygon)
		f.Properties["created_at"] = sh.CreatedAt
		fc.Append(f)
	}
	return fc
}

// GeoJSON writes shapes as an indented FeatureCollection.
func GeoJSON(w io.Writer, shapes []state.Shape) error {
	data, err := json.MarshalIndent(FeatureCollection(shapes), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write geojson")
	}
	return nil
}

// GeoJSONFile writes GeoJSON output to path.
func GeoJSONFile(path string, shapes []state.Shape) error {
	return writeFile(path, func(w io.Writer) error { return GeoJSON(w, shapes) })
}

// ReadGeoJSON loads polygon features back into shapes. Features that are
// not polygons, or whose outer ring is too small to draw, are skipped.
func ReadGeoJSON(r io.Reader) ([]state.Shape, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read geojson")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse geojson")
	}

	var shapes []state.Shape
	for _, f := range fc.Features {
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok || !state.Drawable(poly) {
			continue
		}
		id, _ := f.ID.(string)
		shapes = append(shapes, state.Shape{
			ID:      id,
			OwnerID: f.Properties.MustString("owner", ""),
			Polygon: poly,
		})
	}
	return shapes, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close export file")
		}
	}()
	return write(f)
}
