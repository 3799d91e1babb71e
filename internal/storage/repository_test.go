package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cattlevalue/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "cattle.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryHerdRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if repo.SchemaVersion() != 1 {
		t.Fatalf("expected schema version 1, got %d", repo.SchemaVersion())
	}

	h, err := repo.Load(ctx)
	if err != nil || len(h) != 0 {
		t.Fatalf("empty database should load an empty herd: %v %v", h, err)
	}

	herd := core.Herd{
		{ID: "a", Type: "angus", Weight: 200, Values: []core.ReferenceObservation{{Date: "2024-01-01", Value: 500}}},
		{ID: "b", Type: "zebu", Weight: 90, Values: []core.ReferenceObservation{}},
	}
	if err := repo.Save(ctx, herd); err != nil {
		t.Fatalf("save: %v", err)
	}
	herd[1].Weight = 95
	if err := repo.Save(ctx, herd); err != nil {
		t.Fatalf("second save should upsert: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].Weight != 95 {
		t.Fatalf("unexpected herd: %+v", got)
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = repo.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("cleared herd should be empty: %v %v", got, err)
	}
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cattle.db")

	first, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(ctx, core.Herd{{ID: "a", Type: "angus", Weight: 200, Values: []core.ReferenceObservation{}}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	first.Close()

	second, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()
	h, err := second.Load(ctx)
	if err != nil || len(h) != 1 || h[0].ID != "a" {
		t.Fatalf("herd should survive reopen: %+v %v", h, err)
	}
}

func TestRepositorySnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	for i, reason := range []string{"scheduled", "add", "remove"} {
		_, err := repo.RecordSnapshot(ctx, core.ValuationSnapshot{
			RecordedAt:  base.Add(time.Duration(i) * time.Hour),
			Reason:      reason,
			HerdSize:    i + 1,
			TotalWeight: float64(100 * (i + 1)),
			LatestDate:  "2024-02-29",
			LatestValue: 12.5 * float64(i+1),
		})
		if err != nil {
			t.Fatalf("record %s: %v", reason, err)
		}
	}

	got, err := repo.ListSnapshots(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied: %d", len(got))
	}
	if got[0].Reason != "remove" || got[1].Reason != "add" {
		t.Fatalf("snapshots should be newest first: %+v", got)
	}
	if got[0].HerdSize != 3 || got[0].LatestValue != 37.5 {
		t.Fatalf("unexpected snapshot fields: %+v", got[0])
	}
	if !got[0].RecordedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("recorded_at mismatch: %v", got[0].RecordedAt)
	}

	all, err := repo.ListSnapshots(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("default limit should return all: %d %v", len(all), err)
	}
}
