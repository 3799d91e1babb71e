package herd

import (
	"context"
	"errors"

	"cattlevalue/internal/core"
)

// StorageKey is the single key the herd blob is stored under.
const StorageKey = "cattleList"

var ErrNotFound = errors.New("cattle not found")

// Ports for outbound adapters.
type (
	// Repository persists the whole herd as one blob.
	Repository interface {
		// Load returns the saved herd, or an empty herd when nothing is saved.
		Load(ctx context.Context) (core.Herd, error)
		// Save replaces the saved herd.
		Save(ctx context.Context, h core.Herd) error
		// Clear removes the saved herd entirely.
		Clear(ctx context.Context) error
	}

	// ChangePublisher announces herd mutations to interested workers.
	ChangePublisher interface {
		PublishHerdChanged(ctx context.Context, change Change) error
	}

	// SnapshotLister returns recorded valuation snapshots, newest first.
	SnapshotLister interface {
		ListSnapshots(ctx context.Context, limit int) ([]core.ValuationSnapshot, error)
	}
)

// Operations carried by a Change.
const (
	OpAdd    = "add"
	OpEdit   = "edit"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Change describes a single herd mutation.
type Change struct {
	Operation string
	CattleID  string
	Version   uint64
	HerdSize  int
}
