package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource reads observations from a feed directory instead of a live
// platform API: <dir>/<subject>.json holds a flat id list, and
// <dir>/accounts.json holds the discovery feed. Useful for local runs and
// for platforms synced by an out-of-band fetcher.
type FileSource struct {
	dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

func (s *FileSource) FollowerIDs(ctx context.Context, subject string) ([]string, error) {
	_ = ctx
	b, err := os.ReadFile(filepath.Join(s.dir, subject+".json"))
	if err != nil {
		return nil, fmt.Errorf("read follower feed for %s: %w", subject, err)
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode follower feed for %s: %w", subject, err)
	}
	return ids, nil
}

func (s *FileSource) Followers(ctx context.Context) ([]Account, error) {
	_ = ctx
	b, err := os.ReadFile(filepath.Join(s.dir, "accounts.json"))
	if err != nil {
		return nil, fmt.Errorf("read discovery feed: %w", err)
	}
	var accounts []Account
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("decode discovery feed: %w", err)
	}
	return accounts, nil
}
