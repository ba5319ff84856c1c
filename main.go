package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"MapSketch/internal/config"
	"MapSketch/internal/export"
	sketchnet "MapSketch/internal/net"
	"MapSketch/internal/sketch"
	"MapSketch/internal/state"
	"MapSketch/internal/ui"
)

const (
	hostOwner       = "host"
	dialTimeout     = 5 * time.Second
	discoverTimeout = 3 * time.Second
)

var (
	configFile string
	threshold  float64
	port       int
	discover   bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapsketch [link]",
		Short: "Sketch polygons on a shared map.",
		Long: `mapsketch opens a map you can outline areas on. Without a link it hosts
a session and prints a share link; with a link (or --discover) it joins one.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := cfg.Logger(os.Stderr)

			switch {
			case len(args) == 1:
				url, err := sketchnet.ParseLink(cfg.Net.Scheme, args[0])
				if err != nil {
					return err
				}
				return runClient(cfg, log, url)
			case discover:
				addr, err := sketchnet.Discover(discoverTimeout)
				if err != nil {
					return err
				}
				log.WithField("addr", addr).Info("found session")
				url, err := sketchnet.ParseLink(cfg.Net.Scheme, cfg.Net.Scheme+addr)
				if err != nil {
					return err
				}
				return runClient(cfg, log, url)
			default:
				return runHost(cfg, log)
			}
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a TOML settings file")
	cmd.Flags().Float64Var(&threshold, "threshold", sketch.DefaultThreshold, "corner significance angle in degrees")
	cmd.Flags().IntVar(&port, "port", 0, "port to host on (overrides net.port)")
	cmd.Flags().BoolVar(&discover, "discover", false, "join the first session found on the LAN")
	cmd.AddCommand(exportCmd())
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <in.geojson> <out.pdf|out.geojson>",
		Short: "Convert saved shapes to PDF or GeoJSON without opening a window.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(args[0], args[1])
		},
	}
}

// runExport reads shapes from a GeoJSON file and writes them to out, as
// PDF when out ends in .pdf and as GeoJSON otherwise.
func runExport(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return errors.Wrap(err, "open shapes")
	}
	defer f.Close()

	shapes, err := export.ReadGeoJSON(f)
	if err != nil {
		return errors.Wrapf(err, "read %s", in)
	}
	if strings.EqualFold(filepath.Ext(out), ".pdf") {
		return export.PDFFile(out, shapes)
	}
	return export.GeoJSONFile(out, shapes)
}

// loadConfig reads the settings file and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Sketch.Threshold = threshold
	}
	if cmd.Flags().Changed("port") {
		cfg.Net.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session ties the drawing surface to the shape store. send delivers a
// local op to the rest of the session.
type session struct {
	log     logrus.FieldLogger
	store   *state.Store
	surface *ui.Surface
	owner   string
	send    func(state.Op)
}

func newSession(cfg *config.Config, log logrus.FieldLogger, owner string) (*session, error) {
	v, err := cfg.Viewport()
	if err != nil {
		return nil, err
	}
	simplifier, err := cfg.Simplifier()
	if err != nil {
		return nil, err
	}
	s := &session{
		log:   log,
		store: state.NewStore(log),
		owner: owner,
		send:  func(state.Op) {},
	}
	s.surface = ui.NewSurface(v, simplifier, cfg.Sketch.Stable, log)
	if err := s.surface.SetStyle(cfg.Map.Style); err != nil {
		return nil, errors.Wrap(err, "map.style")
	}
	s.surface.SetMarkers(cfg.MarkerList())
	s.surface.OnPolygon = s.addPolygon
	s.surface.OnClear = s.clear
	s.surface.OnSave = s.save
	s.surface.OnLoad = s.load
	return s, nil
}

func (s *session) refresh() {
	s.surface.SetShapes(s.store.Shapes())
}

func (s *session) addPolygon(ring sketch.Ring) {
	poly, ok := s.surface.Viewport().Polygon(ring)
	if !ok {
		s.log.WithField("points", len(ring)).Debug("stroke too small for a polygon")
		return
	}
	sh := s.store.AddLocal(s.owner, poly)
	s.refresh()
	s.send(state.Op{Type: state.OpInsertShape, Shape: &sh})
}

func (s *session) clear() {
	n := s.store.ClearOwner(s.owner)
	s.log.WithFields(logrus.Fields{"owner": s.owner, "removed": n}).Info("cleared own shapes")
	s.refresh()
	s.send(state.Op{Type: state.OpClearOwner, OwnerID: s.owner})
}

func (s *session) save(w io.Writer, ext string) error {
	if ext == ".pdf" {
		return export.PDF(w, s.store.Shapes())
	}
	return export.GeoJSON(w, s.store.Shapes())
}

func (s *session) load(r io.Reader) error {
	shapes, err := export.ReadGeoJSON(r)
	if err != nil {
		return err
	}
	for _, in := range shapes {
		sh := s.store.AddLocal(s.owner, in.Polygon)
		s.send(state.Op{Type: state.OpInsertShape, Shape: &sh})
	}
	s.refresh()
	return nil
}

func (s *session) apply(op state.Op) {
	if s.store.Apply(op) {
		s.refresh()
	}
}

func runHost(cfg *config.Config, log *logrus.Logger) error {
	log.Info("starting as host")
	s, err := newSession(cfg, log, hostOwner)
	if err != nil {
		return err
	}

	hub := sketchnet.NewHub(log)
	hub.OnOp = func(op state.Op, _ *sketchnet.Peer) { s.apply(op) }
	hub.Snapshot = func() []state.Op {
		shapes := s.store.Shapes()
		ops := make([]state.Op, len(shapes))
		for i := range shapes {
			ops[i] = state.Op{Type: state.OpInsertShape, Shape: &shapes[i]}
		}
		return ops
	}
	s.send = func(op state.Op) { hub.Broadcast(op, nil) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Net.Advertise {
		server, err := sketchnet.Advertise(cfg.Net.Port)
		if err != nil {
			log.WithError(err).Warn("LAN discovery disabled")
		} else {
			defer server.Shutdown()
		}
	}

	shareLink := sketchnet.ShareLink(cfg.Net.Scheme, sketchnet.GetOutgoingIP(), cfg.Net.Port)
	log.WithField("link", shareLink).Info("share this link to invite others")

	ui.RunApp("MapSketch (host)", shareLink, s.surface, func() {
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Net.Port); err != nil {
				log.WithError(err).Error("host server stopped")
				s.surface.SetStatus("Hosting failed: " + err.Error())
			}
		}()
	})
	return nil
}

func runClient(cfg *config.Config, log *logrus.Logger, url string) error {
	log.WithField("url", url).Info("starting as client")

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	peer, err := sketchnet.Dial(ctx, url)
	cancel()
	if err != nil {
		return errors.Wrap(err, "connection failed")
	}
	defer peer.Close()

	// A client is identified by its address as the host sees it.
	owner := peer.LocalAddr()
	s, err := newSession(cfg, log, owner)
	if err != nil {
		return err
	}
	s.send = func(op state.Op) {
		if err := peer.Send(op); err != nil {
			log.WithError(err).WithField("type", op.Type).Error("failed to send op")
		}
	}

	ui.RunApp("MapSketch", "", s.surface, func() {
		s.surface.SetStatus("Connected to host as " + owner)
		go func() {
			err := peer.Listen(s.apply)
			log.WithError(err).Warn("disconnected from host")
			s.surface.SetStatus("Disconnected from host")
		}()
	})
	return nil
}
