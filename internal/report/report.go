// Package report persists the per-subject change record produced by a
// tracking pass, and the notification gate that keeps an already-delivered
// report from being sent twice.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"flockwatch/internal/followers"
	"flockwatch/internal/storage"
)

// Report is the change record for one subject in one cycle. It is immutable
// once written; the next cycle overwrites it wholesale.
type Report struct {
	ID          string    `json:"id"`
	Subject     string    `json:"subject"`
	Added       []string  `json:"added"`
	Removed     []string  `json:"removed"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (r Report) Empty() bool { return len(r.Added) == 0 && len(r.Removed) == 0 }

// Store persists one report per subject.
type Store struct {
	kv  storage.KV
	now func() time.Time
}

func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Save stamps the change with an id and generation time and persists it,
// replacing any previous report for the subject.
func (s *Store) Save(ctx context.Context, subject string, change followers.Change) (Report, error) {
	rep := Report{
		ID:          uuid.NewString(),
		Subject:     subject,
		Added:       change.Added,
		Removed:     change.Removed,
		GeneratedAt: s.now().UTC(),
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return Report{}, fmt.Errorf("encode report for %s: %w", subject, err)
	}
	if err := s.kv.Put(ctx, storage.BucketReports, subject, b); err != nil {
		return Report{}, fmt.Errorf("save report for %s: %w", subject, err)
	}
	return rep, nil
}

// Load returns the stored report for a subject, or storage.ErrNotFound when
// no tracking pass has produced one yet.
func (s *Store) Load(ctx context.Context, subject string) (Report, error) {
	b, err := s.kv.Get(ctx, storage.BucketReports, subject)
	if err != nil {
		return Report{}, err
	}
	var rep Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return Report{}, fmt.Errorf("decode report for %s: %w", subject, err)
	}
	return rep, nil
}
