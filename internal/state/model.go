package state

import (
	"time"

	"github.com/paulmach/orb"

	"MapSketch/internal/sketch"
)

// Shape is a finished sketch polygon in lon/lat.
type Shape struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Site      string      `json:"site"`
	Lamport   uint64      `json:"lamport"`
	Polygon   orb.Polygon `json:"polygon"`
	CreatedAt time.Time   `json:"created_at"`
}

// Drawable reports whether poly's outer ring has enough distinct vertices
// to be shown as a shape.
func Drawable(poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	r := poly[0]
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	return n >= sketch.MinVertices
}

// OpType names a change to the shape set.
type OpType string

const (
	OpInsertShape OpType = "shape"
	OpClearOwner  OpType = "clear"
)

// Op is a change to the shape set as exchanged between peers.
type Op struct {
	Type    OpType `json:"type"`
	Shape   *Shape `json:"shape,omitempty"`
	OwnerID string `json:"owner_id,omitempty"`
}

// Owner returns the owner the op acts for: the shape's owner for an
// insert, the cleared owner for a clear.
func (op Op) Owner() string {
	if op.Type == OpInsertShape {
		if op.Shape == nil {
			return ""
		}
		return op.Shape.OwnerID
	}
	return op.OwnerID
}
