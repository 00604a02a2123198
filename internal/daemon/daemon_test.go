package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"flockwatch/internal/config"
)

func newManager(t *testing.T, data string) *config.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	m := config.NewManager(path, zerolog.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("load config: %v", err)
	}
	return m
}

func TestStartCronRejectsBadSpecs(t *testing.T) {
	m := newManager(t, "schedules:\n  track: \"not a cron spec\"\n")
	s := New(m, Passes{Track: func(ctx context.Context) error { return nil }}, zerolog.Nop())
	if _, err := s.startCron(context.Background(), m.Get()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestStartCronRejectsBadTimezone(t *testing.T) {
	m := newManager(t, "schedules:\n  timezone: Mars/Olympus\n")
	s := New(m, Passes{}, zerolog.Nop())
	if _, err := s.startCron(context.Background(), m.Get()); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestStartCronRunsScheduledPass(t *testing.T) {
	m := newManager(t, "schedules:\n  track: \"* * * * * *\"\n")

	var runs atomic.Int32
	s := New(m, Passes{Track: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}}, zerolog.Nop())

	c, err := s.startCron(context.Background(), m.Get())
	if err != nil {
		t.Fatalf("start cron: %v", err)
	}
	defer c.Stop()

	deadline := time.After(5 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduled pass never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestStartCronSchedulesDiscoverPass(t *testing.T) {
	m := newManager(t, "schedules:\n  discover: \"* * * * * *\"\n")

	var runs atomic.Int32
	s := New(m, Passes{Discover: func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}}, zerolog.Nop())

	c, err := s.startCron(context.Background(), m.Get())
	if err != nil {
		t.Fatalf("start cron: %v", err)
	}
	defer c.Stop()

	if len(c.Entries()) != 1 {
		t.Fatalf("discover pass not scheduled: %d entries", len(c.Entries()))
	}
	deadline := time.After(5 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("discover pass never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestStartCronEmptySpecsDisablePasses(t *testing.T) {
	m := newManager(t, "registry:\n  path: ./c.json\n")
	s := New(m, Passes{Track: func(ctx context.Context) error { return nil }}, zerolog.Nop())
	c, err := s.startCron(context.Background(), m.Get())
	if err != nil {
		t.Fatalf("start cron: %v", err)
	}
	c.Stop()
	if len(c.Entries()) != 0 {
		t.Fatalf("expected no cron entries, got %d", len(c.Entries()))
	}
}
