package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"cattlevalue/internal/core"
	"cattlevalue/internal/dataset"
	"cattlevalue/internal/herd"
	"cattlevalue/internal/herd/memory"
	"cattlevalue/internal/log"
)

type fakePublisher struct {
	mu      sync.Mutex
	changes []herd.Change
	err     error
}

func (f *fakePublisher) PublishHerdChanged(_ context.Context, c herd.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, c)
	return f.err
}

type failingRepo struct{ memory.Store }

func (f *failingRepo) Save(context.Context, core.Herd) error { return errors.New("disk full") }

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelDebug, Output: &bytes.Buffer{}})
}

func testDataset() *dataset.Dataset {
	return dataset.New([]core.ReferenceEntry{
		{Type: "angus", Values: []core.ReferenceObservation{{Date: "2024-01-01", Value: 500}, {Date: "2024-01-02", Value: 520}}},
		{Type: "black_baldy", Values: []core.ReferenceObservation{{Date: "2024-01-01", Value: 450}}},
	})
}

func newTestService(t *testing.T, pub herd.ChangePublisher) (*HerdService, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := NewHerdService(context.Background(), store, pub, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.SetDataset(testDataset())
	return svc, store
}

func TestHerdServiceAddSnapshotsValues(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, store := newTestService(t, pub)

	c, err := svc.Add(ctx, "angus", 200)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if c.ID == "" || len(c.Values) != 2 {
		t.Fatalf("unexpected cattle: %+v", c)
	}

	saved, _ := store.Load(ctx)
	if len(saved) != 1 || saved[0].ID != c.ID {
		t.Fatalf("herd not persisted: %+v", saved)
	}
	if svc.Version() != 1 {
		t.Fatalf("version should be 1, got %d", svc.Version())
	}
	if len(pub.changes) != 1 || pub.changes[0].Operation != herd.OpAdd || pub.changes[0].CattleID != c.ID {
		t.Fatalf("unexpected published changes: %+v", pub.changes)
	}

	// Swapping the dataset does not touch animals already tracked.
	svc.SetDataset(dataset.Empty())
	got, err := svc.Get(c.ID)
	if err != nil || len(got.Values) != 2 {
		t.Fatalf("values should be a snapshot: %+v %v", got, err)
	}
}

func TestHerdServiceAddUnknownTypeSucceedsWithEmptyValues(t *testing.T) {
	svc, _ := newTestService(t, nil)
	c, err := svc.Add(context.Background(), "wagyu", 300)
	if err != nil {
		t.Fatalf("unknown type should still be added: %v", err)
	}
	if c.Values == nil || len(c.Values) != 0 {
		t.Fatalf("expected empty values, got %#v", c.Values)
	}
}

func TestHerdServiceValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "", 200); !errors.Is(err, core.ErrEmptyType) {
		t.Fatalf("expected ErrEmptyType, got %v", err)
	}
	if _, err := svc.Add(ctx, "angus", 0); !errors.Is(err, core.ErrInvalidWeight) {
		t.Fatalf("expected ErrInvalidWeight, got %v", err)
	}
	if svc.Version() != 0 || len(svc.Herd()) != 0 {
		t.Fatalf("rejected adds must not change the herd")
	}
}

func TestHerdServiceEditRemoveClear(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, store := newTestService(t, pub)

	a, _ := svc.Add(ctx, "angus", 200)
	b, _ := svc.Add(ctx, "angus", 180)

	edited, err := svc.Edit(ctx, a.ID, "black_baldy", 210)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.ID != a.ID || edited.Type != "black_baldy" || len(edited.Values) != 1 {
		t.Fatalf("unexpected edit result: %+v", edited)
	}
	if h := svc.Herd(); h[0].ID != a.ID || h[1].ID != b.ID {
		t.Fatalf("edit must keep position: %+v", h)
	}

	if _, err := svc.Edit(ctx, "missing", "angus", 1); !errors.Is(err, herd.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Remove(ctx, "missing"); !errors.Is(err, herd.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := svc.Remove(ctx, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !store.Saved() {
		t.Fatalf("blob should remain while animals are left")
	}
	if err := svc.Remove(ctx, b.ID); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	if store.Saved() {
		t.Fatalf("removing the last animal should delete the blob")
	}

	_, _ = svc.Add(ctx, "angus", 100)
	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.Saved() || len(svc.Herd()) != 0 {
		t.Fatalf("clear should empty herd and blob")
	}

	ops := make([]string, 0, len(pub.changes))
	for _, c := range pub.changes {
		ops = append(ops, c.Operation)
	}
	want := []string{herd.OpAdd, herd.OpAdd, herd.OpEdit, herd.OpRemove, herd.OpRemove, herd.OpAdd, herd.OpClear}
	if len(ops) != len(want) {
		t.Fatalf("published ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("published ops = %v, want %v", ops, want)
		}
	}
	if last := pub.changes[len(pub.changes)-1]; last.Version != svc.Version() || last.HerdSize != 0 {
		t.Fatalf("unexpected final change: %+v", last)
	}
}

func TestHerdServicePublishFailureKeepsMutation(t *testing.T) {
	svc, store := newTestService(t, &fakePublisher{err: errors.New("broker down")})
	if _, err := svc.Add(context.Background(), "angus", 200); err != nil {
		t.Fatalf("publish failures must not fail the add: %v", err)
	}
	if !store.Saved() {
		t.Fatalf("herd should be saved")
	}
}

func TestHerdServiceSaveFailureLeavesHerdUnchanged(t *testing.T) {
	svc, err := NewHerdService(context.Background(), &failingRepo{}, nil, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.Add(context.Background(), "angus", 200); err == nil {
		t.Fatalf("expected save error")
	}
	if len(svc.Herd()) != 0 || svc.Version() != 0 {
		t.Fatalf("failed save must not change state")
	}
}

func TestHerdServiceLoadsSavedHerdAndPersistsIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	// Legacy blob without ids.
	if err := store.Save(ctx, core.Herd{{Type: "angus", Weight: 200, Values: []core.ReferenceObservation{}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc, err := NewHerdService(ctx, store, nil, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h := svc.Herd()
	if len(h) != 1 || h[0].ID == "" {
		t.Fatalf("expected generated id: %+v", h)
	}
	again, _ := store.Load(ctx)
	if again[0].ID != h[0].ID {
		t.Fatalf("generated id should be persisted: %q vs %q", again[0].ID, h[0].ID)
	}
	if svc.Ready() {
		t.Fatalf("service should not be ready before a dataset is installed")
	}
	svc.SetDataset(nil)
	if !svc.Ready() || svc.Dataset() == nil {
		t.Fatalf("SetDataset(nil) should install an empty dataset")
	}
}

func TestHerdServiceHerdReturnsCopy(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, _ = svc.Add(context.Background(), "angus", 200)
	h := svc.Herd()
	h[0].Weight = 1
	h[0].Values[0].Value = 0
	fresh := svc.Herd()
	if fresh[0].Weight != 200 || fresh[0].Values[0].Value != 500 {
		t.Fatalf("Herd must return a deep copy: %+v", fresh[0])
	}
}
