package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cattlevalue/internal/amqp"
	"cattlevalue/internal/core"
	"cattlevalue/internal/derive"
	"cattlevalue/internal/herd"
)

// Snapshot reasons that are not herd operations.
const (
	ReasonScheduled = "scheduled"
	ReasonStartup   = "startup"
)

// SnapshotRecorder stores valuation snapshots.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, s core.ValuationSnapshot) (int64, error)
}

// SnapshotWorker records the herd's latest total value whenever the herd
// changes and on a schedule.
type SnapshotWorker struct {
	herd     herd.Repository
	recorder SnapshotRecorder
	now      func() time.Time
}

func NewSnapshotWorker(repo herd.Repository, recorder SnapshotRecorder) *SnapshotWorker {
	return &SnapshotWorker{
		herd:     repo,
		recorder: recorder,
		now:      time.Now,
	}
}

// Snapshot values the saved herd at the most recent date of its total
// series and stores the result.
func (w *SnapshotWorker) Snapshot(ctx context.Context, reason string) (core.ValuationSnapshot, error) {
	h, err := w.herd.Load(ctx)
	if err != nil {
		return core.ValuationSnapshot{}, fmt.Errorf("load herd: %w", err)
	}

	snap := core.ValuationSnapshot{
		RecordedAt:  w.now(),
		Reason:      reason,
		HerdSize:    len(h),
		TotalWeight: h.TotalWeight(),
	}
	if latest, ok := derive.Latest(derive.HerdTotalSeries(h)); ok {
		snap.LatestDate = latest.X
		snap.LatestValue = latest.Y
	}

	id, err := w.recorder.RecordSnapshot(ctx, snap)
	if err != nil {
		return core.ValuationSnapshot{}, fmt.Errorf("record snapshot: %w", err)
	}
	snap.ID = id
	return snap, nil
}

// HandleHerdChanged records a snapshot for one herd change message.
func (w *SnapshotWorker) HandleHerdChanged(ctx context.Context, msg *amqp.HerdChangedMessage) error {
	change := msg.Change()
	slog.InfoContext(ctx, "Processing herd change",
		"operation", change.Operation,
		"cattle_id", change.CattleID,
		"version", change.Version,
		"herd_size", change.HerdSize)

	if _, err := w.Snapshot(ctx, change.Operation); err != nil {
		return err
	}
	return nil
}

// ScheduledSnapshot is the cron entry point; errors are logged.
func (w *SnapshotWorker) ScheduledSnapshot(ctx context.Context) {
	if _, err := w.Snapshot(ctx, ReasonScheduled); err != nil {
		slog.ErrorContext(ctx, "Scheduled snapshot failed", "error", err)
	}
}
