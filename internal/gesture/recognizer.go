// Package gesture implements the hand-gesture side of the tabletop hub:
// a $1-style trajectory recognizer, the hand-position time-adjustment
// controller, and the pipeline tying them to the camera/ML collaborator.
package gesture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Swipe labels produced by the reference templates.
const (
	SwipeLeft  = "left"
	SwipeRight = "right"
)

// minStrokePoints is the smallest stroke the recognizer will score.
const minStrokePoints = 5

// Template is one reference trajectory, resampled once at construction.
type Template struct {
	Label  string
	Points []r2.Vec
}

// RecognizerConfig holds the classifier tuning.
type RecognizerConfig struct {
	// ResamplePoints is the fixed point count K every stroke and template
	// is resampled to.
	ResamplePoints int

	// Acceptance is the mean pointwise distance below which the best
	// template is accepted.
	Acceptance float64
}

// Recognizer classifies captured strokes against its templates by mean
// pointwise Euclidean distance after equal-arc-length resampling. It is a
// pure matcher: stroke-buffer ownership stays with the caller.
type Recognizer struct {
	numPoints  int
	acceptance float64
	templates  []Template
}

// NewRecognizer builds a recognizer with the reference left/right swipe
// templates: fixed-length horizontal lines, resampled like any input.
func NewRecognizer(cfg RecognizerConfig) *Recognizer {
	r := &Recognizer{
		numPoints:  cfg.ResamplePoints,
		acceptance: cfg.Acceptance,
	}

	left := make([]r2.Vec, 11)
	right := make([]r2.Vec, 11)
	for i := 0; i < 11; i++ {
		left[i] = r2.Vec{X: 1.0 - float64(i)/10.0, Y: 0.5}
		right[i] = r2.Vec{X: float64(i) / 10.0, Y: 0.5}
	}

	r.templates = []Template{
		{Label: SwipeLeft, Points: Resample(left, r.numPoints)},
		{Label: SwipeRight, Points: Resample(right, r.numPoints)},
	}
	return r
}

// Templates returns the reference templates.
func (r *Recognizer) Templates() []Template {
	return r.templates
}

// Recognize scores the stroke against every template and returns the best
// label when its mean distance is below the acceptance threshold. The
// returned score is the best mean distance; ok is false for strokes shorter
// than five points or when no template is close enough.
func (r *Recognizer) Recognize(stroke []r2.Vec) (label string, score float64, ok bool) {
	if len(stroke) < minStrokePoints {
		return "", math.Inf(1), false
	}

	resampled := Resample(stroke, r.numPoints)

	best := math.Inf(1)
	bestLabel := ""
	for _, tpl := range r.templates {
		d := pathDistance(resampled, tpl.Points)
		if d < best {
			best = d
			bestLabel = tpl.Label
		}
	}

	if best < r.acceptance {
		return bestLabel, best, true
	}
	return "", best, false
}

// Resample walks the stroke's polyline and returns exactly n points spaced
// at equal arc-length intervals, linearly interpolating between the
// original vertices. The terminal vertex is appended when the walk ends one
// point short of n.
func Resample(points []r2.Vec, n int) []r2.Vec {
	if len(points) < 2 {
		out := make([]r2.Vec, len(points))
		copy(out, points)
		return out
	}

	// Work on a copy: interpolated points are inserted so they become the
	// start of the next segment, exactly as the walk requires.
	pts := make([]r2.Vec, len(points))
	copy(pts, points)

	interval := pathLength(pts) / float64(n-1)
	resampled := []r2.Vec{pts[0]}

	var walked float64
	for i := 1; i < len(pts) && len(resampled) < n; i++ {
		seg := r2.Norm(r2.Sub(pts[i], pts[i-1]))
		if walked+seg >= interval && seg > 0 {
			t := (interval - walked) / seg
			q := r2.Vec{
				X: pts[i-1].X + t*(pts[i].X-pts[i-1].X),
				Y: pts[i-1].Y + t*(pts[i].Y-pts[i-1].Y),
			}
			resampled = append(resampled, q)
			pts = append(pts[:i], append([]r2.Vec{q}, pts[i:]...)...)
			walked = 0
		} else {
			walked += seg
		}
	}

	if len(resampled) == n-1 {
		resampled = append(resampled, pts[len(pts)-1])
	}
	return resampled
}

// pathLength is the total arc length of the polyline.
func pathLength(points []r2.Vec) float64 {
	var length float64
	for i := 1; i < len(points); i++ {
		length += r2.Norm(r2.Sub(points[i], points[i-1]))
	}
	return length
}

// pathDistance is the mean pointwise Euclidean distance between two equal
// length point sequences. Mismatched lengths are an unrecoverable
// classification failure, scored as infinite distance.
func pathDistance(a, b []r2.Vec) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var d float64
	for i := range a {
		d += r2.Norm(r2.Sub(a[i], b[i]))
	}
	return d / float64(len(a))
}
