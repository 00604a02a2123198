package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestFileKVRoundTrip(t *testing.T) {
	kv, err := Open(Config{Driver: "file", Path: t.TempDir()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()
	ctx := context.Background()

	if _, err := kv.Get(ctx, BucketReports, "acme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := kv.Put(ctx, BucketReports, "acme", []byte(`{"n":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	b, err := kv.Get(ctx, BucketReports, "acme")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(b) != `{"n":1}` {
		t.Fatalf("unexpected value: %s", b)
	}

	// Overwrite wins.
	if err := kv.Put(ctx, BucketReports, "acme", []byte(`{"n":2}`)); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	b, _ = kv.Get(ctx, BucketReports, "acme")
	if string(b) != `{"n":2}` {
		t.Fatalf("overwrite not applied: %s", b)
	}
}

func TestFileKVKeys(t *testing.T) {
	dir := t.TempDir()
	kv, err := Open(Config{Driver: "file", Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	keys, err := kv.Keys(ctx, BucketFollowers)
	if err != nil || keys != nil {
		t.Fatalf("expected no keys for missing bucket, got %v (%v)", keys, err)
	}

	for _, k := range []string{"beta", "alpha"} {
		if err := kv.Put(ctx, BucketFollowers, k, []byte(`[]`)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	// Stray temp files must not surface as keys.
	if err := os.WriteFile(filepath.Join(dir, BucketFollowers, "gamma.json.tmp"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	keys, err = kv.Keys(ctx, BucketFollowers)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestFileKVRejectsPathEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	kv, err := Open(Config{Driver: "file", Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "a/b", `a\b`, "../escape"} {
		if err := kv.Put(ctx, BucketReports, key, []byte("{}")); !errors.Is(err, ErrBadKey) {
			t.Fatalf("put %q: expected ErrBadKey, got %v", key, err)
		}
		if _, err := kv.Get(ctx, BucketReports, key); !errors.Is(err, ErrBadKey) {
			t.Fatalf("get %q: expected ErrBadKey, got %v", key, err)
		}
	}

	// Nothing leaked outside the bucket directory.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != BucketReports {
			t.Fatalf("unexpected entry outside bucket: %s", e.Name())
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "etcd"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
