// Package core provides weight parsing and dollar formatting utilities.
//
// This file contains the boundary parsers used by the form handlers and the
// CLI to produce typed values out of user input.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// MaxWeightKg bounds accepted weights to something a single animal can weigh.
const MaxWeightKg = 5000

// ParseWeight converts a form value into a weight in kilograms.
//
// It accepts both dot (412.5) and comma (412,5) decimal separators. Signs,
// exponents, zero, non-finite numbers and values above MaxWeightKg are
// rejected with ErrInvalidWeight.
//
// Examples:
//
//	ParseWeight("412.5") -> 412.5, nil
//	ParseWeight("412,5") -> 412.5, nil
//	ParseWeight("-3")    -> 0, ErrInvalidWeight
func ParseWeight(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidWeight
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eEx") {
		return 0, ErrInvalidWeight
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || !validWeight(w) || w > MaxWeightKg {
		return 0, ErrInvalidWeight
	}
	return w, nil
}

// ParseCattleType normalizes a type identifier taken from a form.
func ParseCattleType(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyType
	}
	return s, nil
}

// FormatDollars renders a dollar amount with two decimals, e.g. "$1,040.00".
// Non-finite values render as "n/a". Amounts that round to zero carry no sign.
func FormatDollars(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	out := "$" + humanize.FormatFloat("#,###.##", math.Abs(v))
	if v <= -0.005 {
		return "-" + out
	}
	return out
}
