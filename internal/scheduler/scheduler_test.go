package scheduler

import (
	"bytes"
	"context"
	"testing"
	"time"

	"cattlevalue/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	s := New(quietLogger(), time.Second)
	if err := s.Add("snapshot", "not a cron", func(context.Context) {}); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestNextActivation(t *testing.T) {
	s := New(quietLogger(), time.Second)
	if err := s.Add("snapshot", "0 6 * * *", func(context.Context) {}); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	next, ok := s.Next("snapshot")
	if !ok {
		t.Fatal("job should be registered")
	}
	if next.Hour() != 6 || next.Minute() != 0 || !next.After(time.Now()) {
		t.Fatalf("unexpected next activation: %v", next)
	}
	if _, ok := s.Next("missing"); ok {
		t.Fatal("unknown job should not report a next activation")
	}
}

func TestRunPassesBoundedContext(t *testing.T) {
	s := New(quietLogger(), 50*time.Millisecond)
	var deadline bool
	s.run("probe", func(ctx context.Context) {
		_, deadline = ctx.Deadline()
	})
	if !deadline {
		t.Fatal("job context should carry the job timeout")
	}
}
