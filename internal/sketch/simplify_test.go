package sketch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimplifier(t *testing.T, threshold float64) *Simplifier {
	t.Helper()
	s, err := NewSimplifier(threshold)
	require.NoError(t, err)
	return s
}

func closedRing(pts ...Point) Ring {
	r := NewRecorder()
	if err := r.Begin(pts[0]); err != nil {
		panic(err)
	}
	for _, p := range pts[1:] {
		if err := r.Extend(p); err != nil {
			panic(err)
		}
	}
	ring, err := r.End()
	if err != nil {
		panic(err)
	}
	return ring
}

func TestNewSimplifierThreshold(t *testing.T) {
	for _, v := range []float64{0, 15, 90, 179.9} {
		s, err := NewSimplifier(v)
		require.NoError(t, err, "threshold %v", v)
		assert.Equal(t, v, s.Threshold())
	}
	for _, v := range []float64{-1, 180, 360, math.NaN()} {
		_, err := NewSimplifier(v)
		assert.ErrorIs(t, err, ErrInvalidThreshold, "threshold %v", v)
	}
}

func TestTurnAngle(t *testing.T) {
	tests := []struct {
		name            string
		prev, cur, next Point
		want            float64
		ok              bool
	}{
		{"colinear", Pt(0, 0), Pt(5, 0), Pt(10, 0), 0, true},
		{"right angle", Pt(0, 0), Pt(5, 0), Pt(5, 5), 90, true},
		{"reversal", Pt(0, 0), Pt(5, 0), Pt(0, 0), 180, true},
		{"left and right agree", Pt(0, 0), Pt(5, 0), Pt(5, -5), 90, true},
		{"duplicate current", Pt(1, 1), Pt(1, 1), Pt(4, 5), 0, false},
		{"duplicate next", Pt(0, 0), Pt(4, 5), Pt(4, 5), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TurnAngle(tt.prev, tt.cur, tt.next)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTurnAngleChordOrderSymmetric(t *testing.T) {
	a, b, c := Pt(0, 0), Pt(4, 1), Pt(6, 7)
	fwd, _ := TurnAngle(a, b, c)
	rev, _ := TurnAngle(c, b, a)
	assert.InDelta(t, fwd, rev, 1e-9)
}

func TestSimplifyShortRingUnchanged(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	for _, ring := range []Ring{nil, {}, {Pt(1, 2)}, {Pt(1, 2), Pt(1, 2)}, {Pt(0, 0), Pt(3, 3)}} {
		assert.Equal(t, ring, s.Simplify(ring))
	}
}

func TestSimplifyColinearDropped(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	ring := closedRing(Pt(0, 0), Pt(2, 0), Pt(5, 0), Pt(10, 0))

	assert.Equal(t, Ring{Pt(0, 0), Pt(10, 0)}, s.Simplify(ring))
}

func TestSimplifyRightAngleKept(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	ring := closedRing(Pt(0, 0), Pt(2, 0), Pt(5, 0), Pt(5, 5))

	assert.Equal(t, Ring{Pt(0, 0), Pt(5, 0), Pt(5, 5)}, s.Simplify(ring))
}

func TestSimplifyRejectsNoise(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	h := 10 * math.Tan(math.Pi/180)
	pts := []Point{Pt(0, 0)}
	for i := 1; i <= 51; i++ {
		y := 0.0
		if i%2 == 1 {
			y = h
		}
		pts = append(pts, Pt(float64(10*i), y))
	}
	ring := closedRing(pts...)

	assert.Equal(t, Ring{Pt(0, 0), pts[51]}, s.Simplify(ring))
}

func TestSimplifyDuplicatePointsDropped(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	ring := closedRing(Pt(0, 0), Pt(1, 0), Pt(5, 0), Pt(5, 0), Pt(5, 0), Pt(5, 5))

	got := s.Simplify(ring)
	assert.Equal(t, Ring{Pt(0, 0), Pt(5, 0), Pt(5, 5)}, got)
}

func TestSimplifyDoesNotAliasInput(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	ring := closedRing(Pt(0, 0), Pt(2, 0), Pt(5, 0), Pt(5, 5))
	orig := ring.Clone()

	got := s.Simplify(ring)
	got[0] = Pt(-1, -1)
	assert.Equal(t, orig, ring)
}

func squareRing() Ring {
	var pts []Point
	for x := 0; x <= 100; x += 10 {
		pts = append(pts, Pt(float64(x), 0))
	}
	for y := 10; y <= 100; y += 10 {
		pts = append(pts, Pt(100, float64(y)))
	}
	for x := 90; x >= 0; x -= 10 {
		pts = append(pts, Pt(float64(x), 100))
	}
	for y := 90; y >= 10; y -= 10 {
		pts = append(pts, Pt(0, float64(y)))
	}
	return closedRing(pts...)
}

func TestSimplifyConvexIsFixedPoint(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	want := Ring{Pt(0, 0), Pt(100, 0), Pt(100, 100), Pt(0, 100)}

	got := s.Simplify(squareRing())
	assert.Equal(t, want, got)
	assert.Equal(t, got, s.Refine(got))
	assert.Equal(t, got, s.SimplifyStable(squareRing()))
}

func TestSimplifyStableConverges(t *testing.T) {
	s := newTestSimplifier(t, DefaultThreshold)
	deg := math.Pi / 180
	a := Pt(0, 0)
	p := Pt(10, 0)
	q := Pt(p.X+10*math.Cos(16*deg), p.Y+10*math.Sin(16*deg))
	r := Pt(q.X+10*math.Cos(6*deg), q.Y+10*math.Sin(6*deg))
	top := Pt(r.X, 50)
	ring := closedRing(a, Pt(5, 0), p, q, r, top)

	single := s.Simplify(ring)
	assert.Equal(t, Ring{a, p, r, top}, single)

	stable := s.SimplifyStable(ring)
	assert.Equal(t, Ring{a, r, top}, stable)
	assert.Equal(t, stable, s.Refine(stable))
}

func TestSimplifyProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for _, threshold := range []float64{0, 5, 15, 45, 120} {
		s := newTestSimplifier(t, threshold)
		for n := 1; n < 60; n++ {
			pts := make([]Point, n)
			for i := range pts {
				pts[i] = Pt(rnd.Float64()*100, rnd.Float64()*100)
			}
			ring := closedRing(pts...)

			for _, got := range []Ring{s.Simplify(ring), s.SimplifyStable(ring)} {
				require.NotEmpty(t, got)
				assert.Equal(t, ring[0], got[0])
				assert.LessOrEqual(t, len(got), len(ring))
				assert.True(t, isSubsequence(got, ring), "threshold %v n %d", threshold, n)
			}
		}
	}
}

func isSubsequence(sub, ring Ring) bool {
	j := 0
	for _, p := range ring {
		if j < len(sub) && sub[j] == p {
			j++
		}
	}
	return j == len(sub)
}
