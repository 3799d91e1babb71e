// Package derive turns a herd and its reference observations into the
// series consumed by the charts.
//
// Every function in this package is pure: it reads its arguments, never
// mutates them and keeps no state, so callers may use it concurrently.
package derive

import (
	"encoding/json"
	"math"

	"cattlevalue/internal/core"
)

// Point is one derived chart point: a calendar date and a dollar value.
type Point struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON emits a null y for non-finite values so the chart skips the
// point instead of the whole payload failing to encode.
func (p Point) MarshalJSON() ([]byte, error) {
	type wire struct {
		X string   `json:"x"`
		Y *float64 `json:"y"`
	}
	w := wire{X: p.X}
	if !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) {
		y := p.Y
		w.Y = &y
	}
	return json.Marshal(w)
}

// LabeledSeries is the value-over-time series of a single animal.
type LabeledSeries struct {
	ID     string  `json:"id,omitempty"`
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// IndividualSeries derives one series per animal, in herd order. Points keep
// the order of the animal's observations.
func IndividualSeries(h core.Herd) []LabeledSeries {
	out := make([]LabeledSeries, 0, len(h))
	for _, c := range h {
		points := make([]Point, 0, len(c.Values))
		for _, o := range c.Values {
			points = append(points, Point{X: o.Date, Y: c.DollarValue(o)})
		}
		out = append(out, LabeledSeries{ID: c.ID, Label: c.Label(), Points: points})
	}
	return out
}

// HerdTotalSeries sums every animal's dollar value per date. Dates are
// emitted in the order they are first seen while scanning the herd.
func HerdTotalSeries(h core.Herd) []Point {
	totals := newBuckets[float64]()
	for _, c := range h {
		for _, o := range c.Values {
			*totals.at(o.Date) += c.DollarValue(o)
		}
	}
	out := make([]Point, 0, totals.len())
	totals.each(func(date string, total *float64) {
		out = append(out, Point{X: date, Y: *total})
	})
	return out
}

// Latest returns the point with the greatest parseable date. Points whose
// date does not parse are ignored; ok is false when none qualifies.
func Latest(points []Point) (latest Point, ok bool) {
	var best int64
	for _, p := range points {
		t, err := core.ParseDate(p.X)
		if err != nil {
			continue
		}
		if !ok || t.Unix() > best {
			best, latest, ok = t.Unix(), p, true
		}
	}
	return latest, ok
}
