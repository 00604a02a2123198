package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"flockwatch/internal/followers"
	"flockwatch/internal/storage"
)

func newTestKV(t *testing.T) storage.KV {
	t.Helper()
	kv, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestStoreSaveStampsAndOverwrites(t *testing.T) {
	kv := newTestKV(t)
	s := NewStore(kv)
	ctx := context.Background()

	first, err := s.Save(ctx, "acme", followers.Change{Added: []string{"4"}, Removed: []string{"1"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID == "" || first.GeneratedAt.IsZero() {
		t.Fatalf("report not stamped: %+v", first)
	}
	if first.Subject != "acme" {
		t.Fatalf("unexpected subject: %q", first.Subject)
	}

	second, err := s.Save(ctx, "acme", followers.Change{Added: []string{"7"}, Removed: []string{}})
	if err != nil {
		t.Fatalf("save again: %v", err)
	}

	loaded, err := s.Load(ctx, "acme")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != second.ID {
		t.Fatalf("expected latest report, got %+v", loaded)
	}
	if len(loaded.Added) != 1 || loaded.Added[0] != "7" {
		t.Fatalf("unexpected change: %+v", loaded)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	s := NewStore(newTestKV(t))
	if _, err := s.Load(context.Background(), "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGateScenario(t *testing.T) {
	g := NewGate(newTestKV(t))
	ctx := context.Background()
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// No entry: always due.
	due, err := g.ShouldSend(ctx, "acme", at)
	if err != nil || !due {
		t.Fatalf("expected due with no gate entry, got %v (%v)", due, err)
	}

	if err := g.RecordSent(ctx, "acme", at); err != nil {
		t.Fatalf("record sent: %v", err)
	}

	// Same generation time: suppressed (strictly-earlier comparison).
	due, err = g.ShouldSend(ctx, "acme", at)
	if err != nil || due {
		t.Fatalf("expected suppressed at same timestamp, got %v (%v)", due, err)
	}

	// Newer report: due again.
	due, err = g.ShouldSend(ctx, "acme", at.Add(time.Second))
	if err != nil || !due {
		t.Fatalf("expected due for newer report, got %v (%v)", due, err)
	}
}
