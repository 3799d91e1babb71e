package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cattlevalue/internal/core"
	"cattlevalue/internal/derive"
	"cattlevalue/internal/log"
)

var templateFuncs = template.FuncMap{
	"dollars": core.FormatDollars,
	"kg": func(w float64) string {
		return strconv.FormatFloat(w, 'f', -1, 64)
	},
}

// cattleView is one row of the herd list.
type cattleView struct {
	ID           string
	Type         string
	TypeLabel    string
	Weight       float64
	Label        string
	Observations int
	LatestDate   string
	LatestValue  float64
	HasValue     bool
}

// herdView is the data behind the herd list partial.
type herdView struct {
	Cattle      []cattleView
	Types       []core.TypeOption
	HerdSize    int
	TotalWeight float64
	LatestDate  string
	LatestTotal float64
	HasTotal    bool
	Version     uint64
	Error       string
}

func buildHerdView(h core.Herd, version uint64, types []core.TypeOption) herdView {
	v := herdView{
		Cattle:      make([]cattleView, 0, len(h)),
		Types:       types,
		HerdSize:    len(h),
		TotalWeight: h.TotalWeight(),
		Version:     version,
	}
	// One series per animal, in herd order.
	for i, s := range derive.IndividualSeries(h) {
		c := h[i]
		row := cattleView{
			ID:           c.ID,
			Type:         c.Type,
			TypeLabel:    core.TypeLabel(c.Type),
			Weight:       c.Weight,
			Label:        s.Label,
			Observations: len(s.Points),
		}
		if p, ok := derive.Latest(s.Points); ok {
			row.LatestDate, row.LatestValue, row.HasValue = p.X, p.Y, true
		}
		v.Cattle = append(v.Cattle, row)
	}
	if p, ok := derive.Latest(derive.HerdTotalSeries(h)); ok {
		v.LatestDate, v.LatestTotal, v.HasTotal = p.X, p.Y, true
	}
	return v
}

// writeJSON encodes v with the given status. Encoding happens before the
// header is written so failures still produce a 500.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "JSON encoding failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, status, body)
}

func writeJSONBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// sanitizeInput trims and removes control characters other than tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}
