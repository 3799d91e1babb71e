package herd

import (
	"encoding/json"
	"fmt"

	"cattlevalue/internal/core"
)

// Encode serializes the herd into its persisted blob form, a JSON array.
func Encode(h core.Herd) ([]byte, error) {
	if h == nil {
		h = core.Herd{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode herd: %w", err)
	}
	return b, nil
}

// Decode parses a persisted blob. Entries saved without an id get one, and
// missing values become empty snapshots.
func Decode(data []byte) (core.Herd, error) {
	var h core.Herd
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode herd: %w", err)
	}
	if h == nil {
		h = core.Herd{}
	}
	for i := range h {
		if h[i].Values == nil {
			h[i].Values = []core.ReferenceObservation{}
		}
	}
	h.EnsureIDs()
	return h, nil
}
