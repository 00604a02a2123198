package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// fileKV is the dependency-free persistence backend.
//
// Layout: <root>/<bucket>/<key>.json, one document per key. Writes go through
// a temp file and rename so a concurrent reader never observes a truncated
// document.
type fileKV struct {
	root string
	log  zerolog.Logger

	mu sync.Mutex
}

func openFile(cfg Config, log zerolog.Logger) (KV, error) {
	root := strings.TrimSpace(cfg.Path)
	if root == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &fileKV{root: root, log: log}, nil
}

func (s *fileKV) Close() error { return nil }

// path maps bucket/key to a file inside the bucket directory. Keys come from
// operator-editable feeds, so anything that could traverse out of the bucket
// is rejected rather than joined.
func (s *fileKV) path(bucket, key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return filepath.Join(s.root, bucket, key+".json"), nil
}

func (s *fileKV) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	_ = ctx
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *fileKV) Put(ctx context.Context, bucket, key string, value []byte) error {
	_ = ctx
	final, err := s.path(bucket, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *fileKV) Keys(ctx context.Context, bucket string) ([]string, error) {
	_ = ctx
	entries, err := os.ReadDir(filepath.Join(s.root, bucket))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}
