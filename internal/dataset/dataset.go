// Package dataset loads the reference cattle price series.
//
// The document shape is {"cattle": [{"type": "...", "values": [{"date": "...", "value": 500}]}]}.
// Loading is best effort: callers degrade to an empty Dataset on any error.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cattlevalue/internal/core"
)

var ErrMalformed = errors.New("malformed dataset")

// Dataset is the immutable set of reference entries, keyed by type.
type Dataset struct {
	entries []core.ReferenceEntry
	index   map[string]int
}

// Loader fetches a dataset from some source.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Empty returns a dataset with no entries.
func Empty() *Dataset {
	return New(nil)
}

// New builds a dataset. When a type appears more than once the first entry
// wins.
func New(entries []core.ReferenceEntry) *Dataset {
	d := &Dataset{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		if _, dup := d.index[e.Type]; dup || e.Type == "" {
			continue
		}
		e.Values = core.CopyObservations(e.Values)
		d.index[e.Type] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d
}

// Decode parses a dataset document. A missing or non-array "cattle" member
// is reported as ErrMalformed.
func Decode(data []byte) (*Dataset, error) {
	var doc struct {
		Cattle json.RawMessage `json:"cattle"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	raw := bytes.TrimSpace(doc.Cattle)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: \"cattle\" must be an array", ErrMalformed)
	}
	var entries []core.ReferenceEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return New(entries), nil
}

// Lookup returns a copy of the observations for a type. ok is false for
// unknown types, in which case the returned slice is empty.
func (d *Dataset) Lookup(cattleType string) ([]core.ReferenceObservation, bool) {
	if d == nil {
		return []core.ReferenceObservation{}, false
	}
	i, ok := d.index[cattleType]
	if !ok {
		return []core.ReferenceObservation{}, false
	}
	return core.CopyObservations(d.entries[i].Values), true
}

// Types lists the selectable types in dataset order.
func (d *Dataset) Types() []core.TypeOption {
	if d == nil {
		return nil
	}
	out := make([]core.TypeOption, 0, len(d.entries))
	for _, e := range d.entries {
		out = append(out, core.TypeOption{Type: e.Type, Label: core.TypeLabel(e.Type)})
	}
	return out
}

// Len returns the number of types.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// LoadOrEmpty runs the loader and falls back to an empty dataset on failure.
func LoadOrEmpty(ctx context.Context, l Loader, logger *slog.Logger) *Dataset {
	if logger == nil {
		logger = slog.Default()
	}
	if l == nil {
		logger.WarnContext(ctx, "No dataset loader configured, using empty dataset")
		return Empty()
	}
	d, err := l.Load(ctx)
	if err != nil || d == nil {
		logger.ErrorContext(ctx, "Failed to load reference dataset, using empty dataset", "error", err)
		return Empty()
	}
	logger.InfoContext(ctx, "Reference dataset loaded", "types", d.Len())
	return d
}
