package state

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Store is the grow-mostly set of shapes in a session. Shapes are keyed by
// id, so inserting the same shape twice is a no-op and peers converge
// regardless of delivery order.
type Store struct {
	siteID string
	clock  Clock
	log    logrus.FieldLogger

	mu     sync.RWMutex
	shapes map[string]Shape
}

// NewStore creates an empty store with a fresh site id.
func NewStore(log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	siteID := uuid.NewString()
	return &Store{
		siteID: siteID,
		log:    log.WithField("site", siteID),
		shapes: make(map[string]Shape),
	}
}

// SiteID returns this store's site id.
func (s *Store) SiteID() string {
	return s.siteID
}

// AddLocal records a polygon drawn on this site and returns the shape to broadcast.
func (s *Store) AddLocal(owner string, poly orb.Polygon) Shape {
	shape := Shape{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Site:      s.siteID,
		Lamport:   s.clock.Tick(),
		Polygon:   poly.Clone(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.shapes[shape.ID] = shape
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"shape": shape.ID, "owner": owner}).Debug("local shape added")
	return shape
}

// AddRemote merges a shape received from a peer. It returns false if the
// shape was already known or is malformed.
func (s *Store) AddRemote(shape Shape) bool {
	if shape.ID == "" || !Drawable(shape.Polygon) {
		s.log.WithField("shape", shape.ID).Warn("dropping malformed remote shape")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.shapes[shape.ID]; exists {
		return false
	}
	s.clock.Observe(shape.Lamport)
	shape.Polygon = shape.Polygon.Clone()
	s.shapes[shape.ID] = shape

	s.log.WithFields(logrus.Fields{"shape": shape.ID, "from": shape.Site}).Debug("remote shape added")
	return true
}

// Apply applies a peer operation and reports whether the store changed.
func (s *Store) Apply(op Op) bool {
	switch op.Type {
	case OpInsertShape:
		if op.Shape == nil {
			return false
		}
		return s.AddRemote(*op.Shape)
	case OpClearOwner:
		return s.ClearOwner(op.OwnerID) > 0
	}
	s.log.WithField("type", op.Type).Warn("unknown op")
	return false
}

// ClearOwner removes every shape drawn by owner and returns how many were removed.
func (s *Store) ClearOwner(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, shape := range s.shapes {
		if shape.OwnerID == owner {
			delete(s.shapes, id)
			n++
		}
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"owner": owner, "removed": n}).Info("shapes cleared")
	}
	return n
}

// Shapes returns all shapes in causal order: Lamport time, then site, then id.
func (s *Store) Shapes() []Shape {
	s.mu.RLock()
	out := make([]Shape, 0, len(s.shapes))
	for _, shape := range s.shapes {
		out = append(out, shape)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Lamport != b.Lamport {
			return a.Lamport < b.Lamport
		}
		if a.Site != b.Site {
			return a.Site < b.Site
		}
		return a.ID < b.ID
	})
	return out
}

// Len returns the number of shapes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shapes)
}
