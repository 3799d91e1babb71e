package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by the reference dataset.
const DateLayout = "2006-01-02"

type (
	// ReferenceObservation is one dated unit value, in cents per kilogram.
	ReferenceObservation struct {
		Date  string `json:"date"`
		Value int64  `json:"value"`
	}

	// ReferenceEntry holds the chronological observations for a cattle type.
	ReferenceEntry struct {
		Type   string                 `json:"type"`
		Values []ReferenceObservation `json:"values"`
	}

	// TrackedCattle is an animal the user added to the herd. Values is a
	// snapshot of the reference series taken when the animal was added or
	// last edited.
	TrackedCattle struct {
		ID     string                 `json:"id,omitempty"`
		Type   string                 `json:"type"`
		Weight float64                `json:"weight"`
		Values []ReferenceObservation `json:"values"`
	}

	// Herd is the ordered list of tracked cattle. Order is display order.
	Herd []TrackedCattle
)

var (
	ErrEmptyType     = errors.New("empty cattle type")
	ErrInvalidWeight = errors.New("invalid weight")
	ErrInvalidDate   = errors.New("invalid date")
)

// NewTrackedCattle builds an animal with a fresh identifier. The observation
// slice is copied so the caller's dataset is never aliased.
func NewTrackedCattle(cattleType string, weight float64, values []ReferenceObservation) TrackedCattle {
	return TrackedCattle{
		ID:     uuid.NewString(),
		Type:   cattleType,
		Weight: weight,
		Values: CopyObservations(values),
	}
}

// CopyObservations returns a copy of obs that is never nil.
func CopyObservations(obs []ReferenceObservation) []ReferenceObservation {
	out := make([]ReferenceObservation, len(obs))
	copy(out, obs)
	return out
}

func (c TrackedCattle) Validate() error {
	if strings.TrimSpace(c.Type) == "" {
		return ErrEmptyType
	}
	if !validWeight(c.Weight) {
		return ErrInvalidWeight
	}
	return nil
}

var centsPerDollar = decimal.NewFromInt(100)

// DollarValue converts an observation to the animal's value in dollars.
// The product is taken in decimal so weights like 0.1 kg stay exact before
// the final conversion.
func (c TrackedCattle) DollarValue(o ReferenceObservation) float64 {
	return decimal.NewFromInt(o.Value).
		Mul(decimal.NewFromFloat(c.Weight)).
		Div(centsPerDollar).
		InexactFloat64()
}

// Label is the display name of the animal, e.g. "BLACK BALDY - Weight: 420.5 kg".
func (c TrackedCattle) Label() string {
	return TypeLabel(c.Type) + " - Weight: " + strconv.FormatFloat(c.Weight, 'f', -1, 64) + " kg"
}

// TypeLabel upper-cases a type identifier and turns underscores into spaces.
func TypeLabel(cattleType string) string {
	return strings.ToUpper(strings.ReplaceAll(cattleType, "_", " "))
}

// Clone deep-copies the herd, observations included.
func (h Herd) Clone() Herd {
	if h == nil {
		return Herd{}
	}
	out := make(Herd, len(h))
	for i, c := range h {
		c.Values = CopyObservations(c.Values)
		out[i] = c
	}
	return out
}

// Index returns the position of the animal with the given id, or -1.
func (h Herd) Index(id string) int {
	for i, c := range h {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// TotalWeight sums the weight of every animal in kilograms.
func (h Herd) TotalWeight() float64 {
	var total float64
	for _, c := range h {
		total += c.Weight
	}
	return total
}

// EnsureIDs assigns identifiers to animals restored from blobs written
// without them.
func (h Herd) EnsureIDs() {
	for i := range h {
		if h[i].ID == "" {
			h[i].ID = uuid.NewString()
		}
	}
}

// ParseDate parses a calendar date, accepting RFC 3339 timestamps as well.
// Only the calendar day is kept.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
