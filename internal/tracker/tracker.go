// Package tracker runs the detection pass: for every active subscriber it
// fetches the current follower set, diffs it against the stored snapshot,
// and persists the fresh snapshot plus a change report for the notifier.
//
// The pass assumes the caller already holds the registry lock; cross-process
// ordering is entirely the lock's job.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"flockwatch/internal/followers"
	"flockwatch/internal/registry"
	"flockwatch/internal/report"
	"flockwatch/internal/source"
)

type Service struct {
	src       source.FollowerSource
	registry  *registry.Store
	snapshots *followers.SnapshotStore
	reports   *report.Store
	log       zerolog.Logger
	now       func() time.Time
}

func New(src source.FollowerSource, reg *registry.Store, snapshots *followers.SnapshotStore, reports *report.Store, log zerolog.Logger) *Service {
	return &Service{
		src:       src,
		registry:  reg,
		snapshots: snapshots,
		reports:   reports,
		log:       log,
		now:       time.Now,
	}
}

// Summary counts the outcome of one pass.
type Summary struct {
	Subjects int
	Changed  int
	Failed   int
}

// Run executes one detection cycle. Per-subscriber failures are logged and
// skipped; one bad subject must not starve the rest of the batch.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	records, err := s.registry.Load()
	if errors.Is(err, registry.ErrCorrupt) {
		s.log.Error().Err(err).Msg("registry corrupt, processing empty batch")
	} else if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, subject := range registry.ActiveIDs(records, s.now()) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Subjects++
		changed, err := s.trackOne(ctx, subject)
		if err != nil {
			sum.Failed++
			s.log.Error().Str("subject", subject).Err(err).Msg("tracking failed")
			continue
		}
		if changed {
			sum.Changed++
		}
	}
	s.log.Info().Int("subjects", sum.Subjects).Int("changed", sum.Changed).Int("failed", sum.Failed).Msg("tracking pass complete")
	return sum, nil
}

// trackOne processes a single subject in strict order: fetch, load previous
// snapshot, diff, save snapshot, save report. The report depends on the
// previous snapshot, so the steps must not be reordered.
func (s *Service) trackOne(ctx context.Context, subject string) (changed bool, err error) {
	ids, err := s.src.FollowerIDs(ctx, subject)
	if err != nil {
		return false, err
	}
	current := followers.FromIDs(ids)

	previous, err := s.snapshots.Load(ctx, subject)
	if err != nil {
		// A real load failure (not first-run absence): skip the report rather
		// than publish a false everyone-is-new record.
		return false, err
	}

	change := followers.Diff(current, previous)

	if err := s.snapshots.Save(ctx, subject, current); err != nil {
		return false, err
	}
	if _, err := s.reports.Save(ctx, subject, change); err != nil {
		return false, err
	}

	if !change.Empty() {
		s.log.Debug().Str("subject", subject).
			Int("added", len(change.Added)).Int("removed", len(change.Removed)).
			Msg("follower change detected")
	}
	return !change.Empty(), nil
}
