// Package config holds the MapSketch settings file format.
package config

import (
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"MapSketch/internal/geo"
	"MapSketch/internal/sketch"
)

// Config is the top-level settings file.
type Config struct {
	LogLevel string `toml:"log_level"`
	Sketch   Sketch `toml:"sketch"`
	Map      Map    `toml:"map"`
	Net      Net    `toml:"net"`
	// Markers are labelled points shown on the map.
	Markers []Marker `toml:"markers"`
}

// Sketch controls stroke simplification.
type Sketch struct {
	// Threshold is the corner significance angle in degrees.
	Threshold float64 `toml:"threshold"`
	// Stable repeats simplification until no kept point is insignificant.
	Stable bool `toml:"stable"`
}

// Map is the initial map view.
type Map struct {
	CenterLat float64 `toml:"center_lat"`
	CenterLon float64 `toml:"center_lon"`
	Zoom      float64 `toml:"zoom"`
	Width     float64 `toml:"width"`
	Height    float64 `toml:"height"`
	// Style is the starting base map style: streets, dark or light.
	Style string `toml:"style"`
}

// Marker is one [[markers]] entry.
type Marker struct {
	Lat      float64 `toml:"lat"`
	Lon      float64 `toml:"lon"`
	Title    string  `toml:"title"`
	Subtitle string  `toml:"subtitle"`
	Circle   bool    `toml:"circle"`
}

// Net controls session sharing.
type Net struct {
	Port      int    `toml:"port"`
	Scheme    string `toml:"scheme"`
	Advertise bool   `toml:"advertise"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Sketch: Sketch{
			Threshold: sketch.DefaultThreshold,
		},
		Map: Map{
			CenterLat: 40.578679,
			CenterLon: -111.892347,
			Zoom:      12,
			Width:     1024,
			Height:    768,
			Style:     "streets",
		},
		Net: Net{
			Port:      8888,
			Scheme:    "mapsketch://",
			Advertise: true,
		},
		Markers: []Marker{
			{Lat: 40.578679, Lon: -111.892347, Title: "Default", Subtitle: "This is a default marker!"},
			{Lat: 40.574679, Lon: -111.898347, Title: "Circle marker", Subtitle: "This is not the default marker but a custom marker!", Circle: true},
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// Decode reads TOML from r over the defaults and validates the result.
func Decode(r io.Reader) (*Config, error) {
	c := Default()
	md, err := toml.NewDecoder(r).Decode(c)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if _, err := sketch.NewSimplifier(c.Sketch.Threshold); err != nil {
		return errors.Wrap(err, "sketch.threshold")
	}
	if _, err := c.Viewport(); err != nil {
		return errors.Wrap(err, "map")
	}
	if c.Net.Port <= 0 || c.Net.Port > 65535 {
		return errors.Errorf("net.port %d out of range", c.Net.Port)
	}
	if !strings.HasSuffix(c.Net.Scheme, "://") {
		return errors.Errorf("net.scheme %q must end in ://", c.Net.Scheme)
	}
	if c.Map.Style == "" {
		return errors.New("map.style is empty")
	}
	for i, m := range c.Markers {
		if m.Lat < -90 || m.Lat > 90 || m.Lon < -180 || m.Lon > 180 {
			return errors.Errorf("markers[%d] position %v,%v out of range", i, m.Lat, m.Lon)
		}
		if m.Title == "" {
			return errors.Errorf("markers[%d] has no title", i)
		}
	}
	return nil
}

// MarkerList converts the configured markers for the map.
func (c *Config) MarkerList() []geo.Marker {
	out := make([]geo.Marker, len(c.Markers))
	for i, m := range c.Markers {
		out[i] = geo.Marker{
			At:       orb.Point{m.Lon, m.Lat},
			Title:    m.Title,
			Subtitle: m.Subtitle,
			Circle:   m.Circle,
		}
	}
	return out
}

// Viewport builds the initial map view.
func (c *Config) Viewport() (geo.Viewport, error) {
	return geo.NewViewport(c.Map.CenterLat, c.Map.CenterLon, c.Map.Zoom, c.Map.Width, c.Map.Height)
}

// Simplifier builds the configured stroke simplifier.
func (c *Config) Simplifier() (*sketch.Simplifier, error) {
	return sketch.NewSimplifier(c.Sketch.Threshold)
}

// Logger builds a logrus logger at the configured level.
func (c *Config) Logger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
	return l
}
