// Package discovery refreshes the subscriber registry from the set of
// accounts currently following the tracked handle. Following the handle is
// the subscription signal; unfollowing it ends the subscription on the next
// discovery pass.
package discovery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"flockwatch/internal/registry"
	"flockwatch/internal/source"
)

type Service struct {
	src source.DiscoverySource
	reg *registry.Store
	log zerolog.Logger
	now func() time.Time
}

func New(src source.DiscoverySource, reg *registry.Store, log zerolog.Logger) *Service {
	return &Service{src: src, reg: reg, log: log, now: time.Now}
}

// Run executes one discovery pass under the registry lock: list current
// followers of the handle, build default records for newcomers, merge, save.
func (s *Service) Run(ctx context.Context) error {
	accounts, err := s.src.Followers(ctx)
	if err != nil {
		return err
	}

	discovered := make(map[string]registry.Record, len(accounts))
	for _, acct := range accounts {
		discovered[acct.ID] = registry.Record{
			ID:      acct.ID,
			Name:    acct.Name,
			Active:  true,
			Channel: "dm",
			Expires: s.now().AddDate(1, 0, 0).Format("2006-01-02"),
			Locale:  acct.Locale,
		}
	}

	current, err := s.reg.Load()
	if errors.Is(err, registry.ErrCorrupt) {
		s.log.Error().Err(err).Msg("registry corrupt, rebuilding from discovery")
	} else if err != nil {
		return err
	}

	merged := registry.Merge(current, discovered)
	if err := s.reg.Save(merged); err != nil {
		return err
	}
	s.log.Info().Int("discovered", len(discovered)).Int("merged", len(merged)).Msg("discovery pass complete")
	return nil
}
