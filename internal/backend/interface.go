package backend

import (
	"cattlevalue/internal/herd"
	"cattlevalue/internal/storage"
)

// Type names a herd storage backend.
type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known
func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{Memory, SQLite}
}

// Result holds the opened herd store. SQLite is set only for the sqlite
// backend, which also stores valuation snapshots.
type Result struct {
	Type   Type
	Herd   herd.Repository
	SQLite *storage.SQLiteRepository
}

// Snapshots returns the snapshot lister, or nil without SQLite.
func (r *Result) Snapshots() herd.SnapshotLister {
	if r == nil || r.SQLite == nil {
		return nil
	}
	return r.SQLite
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.SQLite == nil {
		return nil
	}
	return r.SQLite.Close()
}

// Factory opens herd backends from configuration
type Factory interface {
	Create(config Config) (*Result, error)
}
