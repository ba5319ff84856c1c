package sketch

import "github.com/pkg/errors"

type gestureState int

const (
	gestureIdle gestureState = iota
	gestureRecording
)

func (s gestureState) String() string {
	switch s {
	case gestureIdle:
		return "idle"
	case gestureRecording:
		return "recording"
	}
	return "unknown"
}

// Recorder accumulates the points of one press-move-release gesture and
// closes them into a Ring. The zero value is an idle recorder.
//
// A Recorder is owned by a single input surface and is not safe for
// concurrent use.
type Recorder struct {
	state  gestureState
	points Ring
}

// NewRecorder returns an idle recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Begin starts a gesture at p.
func (r *Recorder) Begin(p Point) error {
	if r.state != gestureIdle {
		return errors.Wrapf(ErrInvalidState, "begin while %s", r.state)
	}
	r.points = Ring{p}
	r.state = gestureRecording
	return nil
}

// Extend appends p to the open gesture. No deduplication is applied.
func (r *Recorder) Extend(p Point) error {
	if r.state != gestureRecording {
		return errors.Wrapf(ErrInvalidState, "extend while %s", r.state)
	}
	r.points = append(r.points, p)
	return nil
}

// End closes the gesture by appending its first point and returns the ring.
// The recorder is idle afterwards, whether or not End succeeded.
func (r *Recorder) End() (Ring, error) {
	if r.state != gestureRecording {
		return nil, errors.Wrapf(ErrInvalidState, "end while %s", r.state)
	}
	ring := r.points
	r.Reset()
	if len(ring) == 0 {
		return nil, errors.Wrap(ErrEmptyStroke, "end")
	}
	return append(ring, ring[0]), nil
}

// Reset discards any open gesture.
func (r *Recorder) Reset() {
	r.state = gestureIdle
	r.points = nil
}

// Recording reports whether a gesture is open.
func (r *Recorder) Recording() bool {
	return r.state == gestureRecording
}

// Len returns the number of points recorded in the open gesture.
func (r *Recorder) Len() int {
	return len(r.points)
}

// Points returns a copy of the open gesture's points, for previews.
func (r *Recorder) Points() Ring {
	return r.points.Clone()
}
