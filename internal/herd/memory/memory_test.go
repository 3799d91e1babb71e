package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cattlevalue/internal/core"
)

func TestStoreSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	s := New()
	h, err := s.Load(ctx)
	if err != nil || len(h) != 0 {
		t.Fatalf("fresh store should be empty: %v %v", h, err)
	}

	herd := core.Herd{{ID: "a", Type: "angus", Weight: 200, Values: []core.ReferenceObservation{}}}
	if err := s.Save(ctx, herd); err != nil {
		t.Fatalf("save: %v", err)
	}
	herd[0].Weight = 1 // the store keeps its own copy
	got, err := s.Load(ctx)
	if err != nil || len(got) != 1 || got[0].Weight != 200 {
		t.Fatalf("unexpected load: %+v err=%v", got, err)
	}

	if err := s.Clear(ctx); err != nil || s.Saved() {
		t.Fatalf("clear should remove the blob: err=%v", err)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	if s := NewFromFile(filepath.Join(dir, "missing.json")); s.Saved() {
		t.Fatalf("missing seed should leave store empty")
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte("{nope"), 0o644)
	if s := NewFromFile(bad); s.Saved() {
		t.Fatalf("invalid seed should leave store empty")
	}

	good := filepath.Join(dir, "herd.json")
	_ = os.WriteFile(good, []byte(`[{"type":"angus","weight":200,"values":[]}]`), 0o644)
	s := NewFromFile(good)
	h, err := s.Load(context.Background())
	if err != nil || len(h) != 1 || h[0].Type != "angus" {
		t.Fatalf("unexpected seeded herd: %+v err=%v", h, err)
	}
}
