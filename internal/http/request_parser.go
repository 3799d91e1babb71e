package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cattlevalue/internal/core"
	"cattlevalue/internal/derive"
)

const maxFormBytes = 64 << 10

// ErrMalformedForm is returned when the request body is not a readable form.
var ErrMalformedForm = errors.New("malformed form")

// FieldError is a form value that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// CattleForm is the validated add/edit form.
type CattleForm struct {
	Type   string
	Weight float64
}

// ParseCattleForm reads the "type" and "weight" fields of an urlencoded or
// multipart form.
func ParseCattleForm(r *http.Request) (CattleForm, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return CattleForm{}, fmt.Errorf("%w: %w", ErrMalformedForm, err)
	}
	return parseCattleValues(r.Form)
}

func parseCattleValues(form url.Values) (CattleForm, error) {
	t, err := core.ParseCattleType(sanitizeInput(form.Get("type")))
	if err != nil {
		return CattleForm{}, &FieldError{Field: "type", Err: err}
	}
	w, err := core.ParseWeight(form.Get("weight"))
	if err != nil {
		return CattleForm{}, &FieldError{Field: "weight", Err: err}
	}
	return CattleForm{Type: t, Weight: w}, nil
}

// RangeParams is the inclusive date window of the range charts. The raw
// strings are kept; malformed bounds produce an empty chart, not an error.
type RangeParams struct {
	Start string
	End   string
}

func ParseRangeParams(q url.Values) RangeParams {
	return RangeParams{
		Start: strings.TrimSpace(q.Get("start")),
		End:   strings.TrimSpace(q.Get("end")),
	}
}

var ErrInvalidBins = errors.New("bins must be a whole number between 1 and 100")

// ParseBins reads the "bins" query value, falling back to def when absent.
func ParseBins(q url.Values, def int) (int, error) {
	if def <= 0 {
		def = derive.DefaultBins
	}
	v := strings.TrimSpace(q.Get("bins"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 100 {
		return 0, &FieldError{Field: "bins", Err: ErrInvalidBins}
	}
	return n, nil
}

// validationMessage turns a parse error into text for the form.
func validationMessage(err error) string {
	var fe *FieldError
	if !errors.As(err, &fe) {
		return "Invalid request"
	}
	switch {
	case errors.Is(fe.Err, core.ErrEmptyType):
		return "Please choose a cattle type."
	case errors.Is(fe.Err, core.ErrInvalidWeight):
		return fmt.Sprintf("Please enter a weight between 0 and %d kg.", core.MaxWeightKg)
	}
	return fe.Error()
}
