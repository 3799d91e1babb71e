package derive

import (
	"time"

	"cattlevalue/internal/core"
)

// DateRange is an inclusive calendar-date interval. A range whose bounds did
// not parse matches nothing.
type DateRange struct {
	start, end time.Time
	valid      bool
}

// NewDateRange parses both bounds. Empty or malformed bounds produce a range
// that matches no observation.
func NewDateRange(start, end string) DateRange {
	s, err := core.ParseDate(start)
	if err != nil {
		return DateRange{}
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return DateRange{}
	}
	return DateRange{start: s, end: e, valid: true}
}

// Contains reports whether date lies within the range. Unparsable dates are
// never contained.
func (r DateRange) Contains(date string) bool {
	if !r.valid {
		return false
	}
	t, err := core.ParseDate(date)
	if err != nil {
		return false
	}
	return !t.Before(r.start) && !t.After(r.end)
}

type meanAcc struct {
	total float64
	count int
}

func (m meanAcc) mean() float64 { return m.total / float64(m.count) }

// RangeAverageSeries averages, per date, the dollar values of every animal
// with an observation on that date inside [start, end].
func RangeAverageSeries(h core.Herd, start, end string) []Point {
	rng := NewDateRange(start, end)
	acc := newBuckets[meanAcc]()
	for _, c := range h {
		for _, o := range c.Values {
			if !rng.Contains(o.Date) {
				continue
			}
			b := acc.at(o.Date)
			b.total += c.DollarValue(o)
			b.count++
		}
	}
	out := make([]Point, 0, acc.len())
	acc.each(func(date string, m *meanAcc) {
		out = append(out, Point{X: date, Y: m.mean()})
	})
	return out
}

// Comparison holds the average value per cattle type, labels and values
// index-aligned.
type Comparison struct {
	Types  []string  `json:"types"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// TypeAverageComparison averages, per cattle type, the mean in-range dollar
// value of each animal of that type, so an animal with more observations
// weighs no more than any other. Types are listed in the order they first
// appear in the herd; types without in-range observations are left out.
func TypeAverageComparison(h core.Herd, start, end string) Comparison {
	rng := NewDateRange(start, end)
	acc := newBuckets[meanAcc]()
	for _, c := range h {
		var own meanAcc
		for _, o := range c.Values {
			if rng.Contains(o.Date) {
				own.total += c.DollarValue(o)
				own.count++
			}
		}
		if own.count == 0 {
			continue
		}
		b := acc.at(c.Type)
		b.total += own.mean()
		b.count++
	}
	out := Comparison{
		Types:  make([]string, 0, acc.len()),
		Labels: make([]string, 0, acc.len()),
		Values: make([]float64, 0, acc.len()),
	}
	acc.each(func(cattleType string, m *meanAcc) {
		out.Types = append(out.Types, cattleType)
		out.Labels = append(out.Labels, core.TypeLabel(cattleType))
		out.Values = append(out.Values, m.mean())
	})
	return out
}
