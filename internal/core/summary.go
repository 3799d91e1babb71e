package core

import "time"

// TypeOption is a selectable cattle type with its display label.
type TypeOption struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// ValuationSnapshot is a point-in-time record of the herd's total value.
type ValuationSnapshot struct {
	ID          int64     `json:"id"`
	RecordedAt  time.Time `json:"recorded_at"`
	Reason      string    `json:"reason"`
	HerdSize    int       `json:"herd_size"`
	TotalWeight float64   `json:"total_weight_kg"`
	LatestDate  string    `json:"latest_date"`
	LatestValue float64   `json:"latest_value"`
}
