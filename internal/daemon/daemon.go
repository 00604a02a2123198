// Package daemon runs the tracking, notification, discovery, and publishing
// passes on cron schedules inside a single long-lived process. Each pass
// still takes the cross-process lock it needs, so ad-hoc CLI invocations
// remain safe while the daemon is up.
package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"flockwatch/internal/config"
)

// Passes are the schedulable units. A nil pass or an empty cron spec leaves
// that unit disabled.
type Passes struct {
	Track    func(ctx context.Context) error
	Notify   func(ctx context.Context) error
	Discover func(ctx context.Context) error
	Publish  func(ctx context.Context) error
}

type Service struct {
	mgr    *config.Manager
	passes Passes
	log    zerolog.Logger

	parser cron.Parser
}

func New(mgr *config.Manager, passes Passes, log zerolog.Logger) *Service {
	return &Service{
		mgr:    mgr,
		passes: passes,
		log:    log,
		// SecondOptional allows both 5-field and 6-field (with seconds) specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Run blocks until ctx is cancelled. Config edits restart the cron with the
// new schedules; a broken schedule in the new config is logged and skipped
// rather than taking the daemon down.
func (s *Service) Run(ctx context.Context) error {
	c, err := s.startCron(ctx, s.mgr.Get())
	if err != nil {
		return err
	}

	reloaded := make(chan *config.Config, 1)
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- s.mgr.Watch(ctx, func(cfg *config.Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	s.notifyReady()
	watchdog := s.startWatchdog(ctx)

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			if watchdog != nil {
				watchdog.Stop()
			}
			<-watchDone
			return ctx.Err()
		case cfg := <-reloaded:
			c.Stop()
			next, err := s.startCron(ctx, cfg)
			if err != nil {
				s.log.Error().Err(err).Msg("schedule reload failed, daemon idle until next valid config")
				continue
			}
			c = next
		}
	}
}

func (s *Service) startCron(ctx context.Context, cfg *config.Config) (*cron.Cron, error) {
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Schedules.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("schedules.timezone: %w", err)
		}
		loc = l
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	add := func(name, spec string, pass func(ctx context.Context) error) error {
		if pass == nil || strings.TrimSpace(spec) == "" {
			return nil
		}
		_, err := c.AddFunc(spec, func() {
			start := time.Now()
			if err := pass(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Str("pass", name).Err(err).Msg("scheduled pass failed")
				return
			}
			s.log.Debug().Str("pass", name).Dur("took", time.Since(start)).Msg("scheduled pass done")
		})
		if err != nil {
			return fmt.Errorf("schedules.%s: %w", name, err)
		}
		return nil
	}

	if err := add("track", cfg.Schedules.Track, s.passes.Track); err != nil {
		return nil, err
	}
	if err := add("notify", cfg.Schedules.Notify, s.passes.Notify); err != nil {
		return nil, err
	}
	if err := add("discover", cfg.Schedules.Discover, s.passes.Discover); err != nil {
		return nil, err
	}
	if err := add("publish", cfg.Schedules.Publish, s.passes.Publish); err != nil {
		return nil, err
	}

	c.Start()
	s.log.Info().Str("track", cfg.Schedules.Track).Str("notify", cfg.Schedules.Notify).
		Str("discover", cfg.Schedules.Discover).Str("publish", cfg.Schedules.Publish).
		Msg("schedules active")
	return c, nil
}

func (s *Service) notifyReady() {
	if ok, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		s.log.Debug().Err(err).Msg("sd_notify unavailable")
	} else if ok {
		s.log.Debug().Msg("sd_notify READY sent")
	}
}

// startWatchdog keeps the systemd watchdog fed when one is configured.
func (s *Service) startWatchdog(ctx context.Context) *time.Ticker {
	interval, err := sd.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}
	ticker := time.NewTicker(interval / 2)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = sd.SdNotify(false, sd.SdNotifyWatchdog)
			}
		}
	}()
	return ticker
}
