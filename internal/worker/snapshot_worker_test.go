package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"cattlevalue/internal/amqp"
	"cattlevalue/internal/core"
	"cattlevalue/internal/herd"
	"cattlevalue/internal/herd/memory"
)

type recorder struct {
	snaps []core.ValuationSnapshot
	err   error
}

func (r *recorder) RecordSnapshot(_ context.Context, s core.ValuationSnapshot) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.snaps = append(r.snaps, s)
	return int64(len(r.snaps)), nil
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	h := core.Herd{
		{ID: "a", Type: "angus", Weight: 200, Values: []core.ReferenceObservation{{Date: "2024-01-01", Value: 500}, {Date: "2024-01-02", Value: 520}}},
		{ID: "b", Type: "angus", Weight: 100, Values: []core.ReferenceObservation{{Date: "2024-01-02", Value: 520}}},
	}
	if err := store.Save(context.Background(), h); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestSnapshotUsesLatestTotal(t *testing.T) {
	rec := &recorder{}
	w := NewSnapshotWorker(seededStore(t), rec)
	fixed := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	got, err := w.Snapshot(context.Background(), ReasonScheduled)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	want := core.ValuationSnapshot{
		ID:          1,
		RecordedAt:  fixed,
		Reason:      ReasonScheduled,
		HerdSize:    2,
		TotalWeight: 300,
		LatestDate:  "2024-01-02",
		LatestValue: 1560, // 520*200/100 + 520*100/100
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotEmptyHerd(t *testing.T) {
	rec := &recorder{}
	w := NewSnapshotWorker(memory.New(), rec)
	got, err := w.Snapshot(context.Background(), ReasonStartup)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if got.HerdSize != 0 || got.LatestDate != "" || got.LatestValue != 0 {
		t.Fatalf("empty herd should produce a zero snapshot: %+v", got)
	}
}

func TestHandleHerdChanged(t *testing.T) {
	rec := &recorder{}
	w := NewSnapshotWorker(seededStore(t), rec)
	msg := amqp.NewHerdChangedMessage(herd.Change{Operation: herd.OpRemove, Version: 4, HerdSize: 2})
	if err := w.HandleHerdChanged(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rec.snaps) != 1 || rec.snaps[0].Reason != herd.OpRemove {
		t.Fatalf("unexpected snapshots: %+v", rec.snaps)
	}

	rec.err = errors.New("db locked")
	if err := w.HandleHerdChanged(context.Background(), msg); err == nil {
		t.Fatal("recorder errors should be returned so the message is requeued")
	}
}
