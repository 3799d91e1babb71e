package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cattlevalue/internal/core"
	"cattlevalue/internal/derive"
	"cattlevalue/internal/log"
)

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 500
)

func (s *Server) handleDatasetTypes(w http.ResponseWriter, r *http.Request) {
	types := s.herd.Dataset().Types()
	if types == nil {
		types = []core.TypeOption{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"types": types})
}

func (s *Server) handleIndividualChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, chartKey{kind: "individual"}, func(h core.Herd) any {
		return map[string]any{"series": derive.IndividualSeries(h)}
	})
}

func (s *Server) handleTotalChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, chartKey{kind: "total"}, func(h core.Herd) any {
		return map[string]any{"points": derive.HerdTotalSeries(h)}
	})
}

func (s *Server) handleAverageChart(w http.ResponseWriter, r *http.Request) {
	p := ParseRangeParams(r.URL.Query())
	s.serveChart(w, r, chartKey{kind: "average", a: p.Start, b: p.End}, func(h core.Herd) any {
		return map[string]any{
			"start":  p.Start,
			"end":    p.End,
			"points": derive.RangeAverageSeries(h, p.Start, p.End),
		}
	})
}

func (s *Server) handleComparisonChart(w http.ResponseWriter, r *http.Request) {
	p := ParseRangeParams(r.URL.Query())
	s.serveChart(w, r, chartKey{kind: "comparison", a: p.Start, b: p.End}, func(h core.Herd) any {
		return derive.TypeAverageComparison(h, p.Start, p.End)
	})
}

func (s *Server) handleDistributionChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := sanitizeInput(q.Get("id"))
	if id == "" {
		writeJSONError(w, r, http.StatusUnprocessableEntity, "id is required")
		return
	}
	bins, err := ParseBins(q, s.defaultBins)
	if err != nil {
		writeJSONError(w, r, http.StatusUnprocessableEntity, ErrInvalidBins.Error())
		return
	}

	h, version := s.herd.Snapshot()
	i := h.Index(id)
	if i < 0 {
		writeJSONError(w, r, http.StatusNotFound, "cattle not found")
		return
	}
	key := chartKey{kind: "distribution", version: version, a: id, b: strconv.Itoa(bins)}
	body, err := s.charts.GetOrCompute(key, func() ([]byte, error) {
		return json.Marshal(derive.Distribution(h[i], bins))
	})
	if err != nil {
		s.chartFailed(w, r, key, err)
		return
	}
	writeJSONBytes(w, http.StatusOK, body)
}

// serveChart encodes build(herd) once per herd version and parameter set.
// A mutation bumps the version, so stale payloads are never served.
func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, key chartKey, build func(core.Herd) any) {
	h, version := s.herd.Snapshot()
	key.version = version
	body, err := s.charts.GetOrCompute(key, func() ([]byte, error) {
		return json.Marshal(build(h))
	})
	if err != nil {
		s.chartFailed(w, r, key, err)
		return
	}
	writeJSONBytes(w, http.StatusOK, body)
}

func (s *Server) chartFailed(w http.ResponseWriter, r *http.Request, key chartKey, err error) {
	fields := log.NewFields().WithErrorType(log.ErrorTypeInternal)
	fields[log.FieldChart] = key.kind
	s.events.LogError(r.Context(), "Chart encoding failed", err, log.ComponentCharts, log.OpRender, fields)
	writeJSONError(w, r, http.StatusInternalServerError, "chart unavailable")
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeJSONError(w, r, http.StatusNotFound, "snapshots require the sqlite herd backend")
		return
	}
	limit := defaultSnapshotLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxSnapshotLimit {
			writeJSONError(w, r, http.StatusUnprocessableEntity, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	snaps, err := s.snapshots.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.events.LogError(r.Context(), "Failed to list snapshots", err, log.ComponentStorage, log.OpSnapshot,
			log.NewFields().WithErrorType(log.ErrorTypeDatabase))
		writeJSONError(w, r, http.StatusInternalServerError, "snapshots unavailable")
		return
	}
	if snaps == nil {
		snaps = []core.ValuationSnapshot{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"snapshots": snaps})
}
