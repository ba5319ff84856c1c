package sketch

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultThreshold is the corner significance threshold, in degrees, used
// when none is configured.
const DefaultThreshold = 15.0

// Simplifier reduces a closed Ring to the points where the stroke turns by
// more than Threshold degrees.
type Simplifier struct {
	threshold float64
}

// NewSimplifier returns a Simplifier that keeps turns sharper than
// thresholdDegrees. The threshold must be in [0, 180).
func NewSimplifier(thresholdDegrees float64) (*Simplifier, error) {
	if math.IsNaN(thresholdDegrees) || thresholdDegrees < 0 || thresholdDegrees >= 180 {
		return nil, errors.Wrapf(ErrInvalidThreshold, "%v degrees", thresholdDegrees)
	}
	return &Simplifier{threshold: thresholdDegrees}, nil
}

// Threshold returns the configured threshold in degrees.
func (s *Simplifier) Threshold() float64 {
	return s.threshold
}

// Simplify runs a single forward pass over ring, which should be closed as
// returned by Recorder.End.
//
// The first point is always kept. Points 2 through len-2 are visited; each
// is kept when the turn from the last kept point, through it, to its raw
// successor exceeds the threshold. Point 1 and the closing duplicate are
// never emitted. The result is not re-closed. Rings shorter than three
// points are returned unchanged.
func (s *Simplifier) Simplify(ring Ring) Ring {
	if len(ring) < 3 {
		return ring.Clone()
	}

	out := Ring{ring[0]}
	for i := 2; i <= len(ring)-2; i++ {
		if s.significant(out[len(out)-1], ring[i], ring[i+1]) {
			out = append(out, ring[i])
		}
	}
	return out
}

// SimplifyStable runs Simplify and then keeps removing kept points whose
// turn, measured against their kept neighbours around the closed ring, is
// not above the threshold. The result is a fixed point of Refine.
func (s *Simplifier) SimplifyStable(ring Ring) Ring {
	out := s.Simplify(ring)
	if len(ring) < 3 {
		return out
	}
	for {
		next := s.Refine(out)
		if len(next) == len(out) {
			return next
		}
		out = next
	}
}

// Refine makes one sweep over an already simplified ring, treating it as
// closed, and drops every point after the first whose turn between the
// previously kept point and its successor is not significant.
func (s *Simplifier) Refine(ring Ring) Ring {
	if len(ring) < 3 {
		return ring.Clone()
	}

	out := Ring{ring[0]}
	for i := 1; i < len(ring); i++ {
		next := ring[0]
		if i+1 < len(ring) {
			next = ring[i+1]
		}
		if s.significant(out[len(out)-1], ring[i], next) {
			out = append(out, ring[i])
		}
	}
	return out
}

func (s *Simplifier) significant(prev, cur, next Point) bool {
	angle, ok := TurnAngle(prev, cur, next)
	return ok && angle > s.threshold
}

// TurnAngle returns the angle in degrees between the chords prev->cur and
// cur->next. ok is false when either chord has zero length.
func TurnAngle(prev, cur, next Point) (angle float64, ok bool) {
	v1 := cur.Sub(prev)
	v2 := next.Sub(cur)
	d := v1.Length() * v2.Length()
	if d == 0 {
		return 0, false
	}
	c := v1.Dot(v2) / d
	// rounding can push c just outside [-1, 1]
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi, true
}
