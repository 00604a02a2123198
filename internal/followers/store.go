package followers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"flockwatch/internal/storage"
)

// SnapshotStore persists the last-observed follower set per subject. Each
// refresh cycle fully replaces the snapshot; there is no incremental patching.
type SnapshotStore struct {
	kv storage.KV
}

func NewSnapshotStore(kv storage.KV) *SnapshotStore {
	return &SnapshotStore{kv: kv}
}

// Load returns the previous snapshot for a subject. A missing snapshot is the
// expected state for a newly tracked subject and yields an empty set with no
// error. Any other failure is a real error: the caller must not mistake it
// for "everyone is new".
func (s *SnapshotStore) Load(ctx context.Context, subject string) (Set, error) {
	b, err := s.kv.Get(ctx, storage.BucketFollowers, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("load snapshot for %s: %w", subject, err)
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", subject, err)
	}
	return FromIDs(ids), nil
}

// Save replaces the snapshot for a subject with the current observation.
func (s *SnapshotStore) Save(ctx context.Context, subject string, set Set) error {
	b, err := json.Marshal(set.Sorted())
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", subject, err)
	}
	if err := s.kv.Put(ctx, storage.BucketFollowers, subject, b); err != nil {
		return fmt.Errorf("save snapshot for %s: %w", subject, err)
	}
	return nil
}
