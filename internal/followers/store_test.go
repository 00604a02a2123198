package followers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"flockwatch/internal/storage"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	kv, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return NewSnapshotStore(kv)
}

func TestSnapshotMissingIsEmptySet(t *testing.T) {
	s := newTestStore(t)
	set, err := s.Load(context.Background(), "acme")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty set for new subject, got %v", set)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := FromIDs([]string{"3", "1", "2"})
	if err := s.Save(ctx, "acme", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := s.Load(ctx, "acme")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 3 || !out.Contains("1") || !out.Contains("2") || !out.Contains("3") {
		t.Fatalf("unexpected set: %v", out)
	}

	// Full replacement on the next cycle.
	if err := s.Save(ctx, "acme", FromIDs([]string{"9"})); err != nil {
		t.Fatalf("save replace: %v", err)
	}
	out, _ = s.Load(ctx, "acme")
	if len(out) != 1 || !out.Contains("9") {
		t.Fatalf("snapshot not replaced: %v", out)
	}
}
