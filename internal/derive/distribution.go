package derive

import (
	"fmt"
	"math"

	"cattlevalue/internal/core"
)

// DefaultBins is used when a non-positive bin count is requested.
const DefaultBins = 10

// Histogram is an equal-width frequency distribution of dollar values.
type Histogram struct {
	Label  string   `json:"label"`
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
}

// Distribution bins the animal's dollar values into bins equal-width ranges
// spanning [min, max]. When every value is identical all observations land
// in the first bin. The maximum is folded into the last bin, so counts always
// add up to the number of finite observations.
func Distribution(c core.TrackedCattle, bins int) Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	values := make([]float64, 0, len(c.Values))
	for _, o := range c.Values {
		v := c.DollarValue(o)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}

	h := Histogram{
		Label:  c.Label(),
		Labels: make([]string, bins),
		Counts: make([]int, bins),
	}
	if len(values) == 0 {
		for i := range h.Labels {
			h.Labels[i] = rangeLabel(0, 0)
		}
		return h
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	h.Min, h.Max = lo, hi

	width := (hi - lo) / float64(bins)
	for i := range h.Labels {
		h.Labels[i] = rangeLabel(lo+float64(i)*width, lo+float64(i+1)*width)
	}
	if width == 0 {
		h.Counts[0] = len(values)
		return h
	}
	for _, v := range values {
		idx := int(math.Floor((v - lo) / width))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		h.Counts[idx]++
	}
	return h
}

func rangeLabel(lo, hi float64) string {
	return fmt.Sprintf("%.2f - %.2f", lo, hi)
}
