package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"flockwatch/internal/config"
	"flockwatch/internal/daemon"
	"flockwatch/internal/discovery"
	"flockwatch/internal/followers"
	"flockwatch/internal/lock"
	"flockwatch/internal/logging"
	"flockwatch/internal/notifier"
	"flockwatch/internal/phrase"
	"flockwatch/internal/publisher"
	"flockwatch/internal/registry"
	"flockwatch/internal/report"
	"flockwatch/internal/source"
	"flockwatch/internal/storage"
	"flockwatch/internal/tracker"
	"flockwatch/internal/transport"
	"flockwatch/internal/transport/telegram"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &cli.App{
		Name:  "flockwatch",
		Usage: "track subscriber follower changes and deliver change reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (yaml or json)",
				Value:   "./config.yaml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "track",
				Usage: "run one follower change detection pass",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-wait", Usage: "fail immediately if another process holds the lock"},
				},
				Action: runTrack,
			},
			{
				Name:  "notify",
				Usage: "deliver pending change reports",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "render and log reports without sending"},
				},
				Action: runNotify,
			},
			{
				Name:  "discover",
				Usage: "refresh the subscriber registry from the discovery feed",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-wait", Usage: "fail immediately if another process holds the lock"},
				},
				Action: runDiscover,
			},
			{
				Name:  "publish",
				Usage: "post the next queued status",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "log the would-be post without publishing"},
				},
				Action: runPublish,
			},
			{
				Name:   "daemon",
				Usage:  "run all passes on their configured schedules",
				Action: runDaemon,
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		var locked *lock.LockedError
		if errors.As(err, &locked) {
			fmt.Fprintln(os.Stderr, locked.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// env is everything a pass needs, assembled once per invocation.
type env struct {
	cfg *config.Config
	mgr *config.Manager
	log zerolog.Logger

	logClose io.Closer
	kv       storage.KV

	reg       *registry.Store
	snapshots *followers.SnapshotStore
	reports   *report.Store
	gate      *report.Gate
	src       *source.FileSource

	sink     notifier.Sink
	timeline publisher.Timeline
}

func buildEnv(c *cli.Context) (*env, error) {
	boot := logging.Console("info")
	mgr := config.NewManager(c.String("config"), boot)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, logClose, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	busy, err := config.ParseDuration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &env{
		cfg:       cfg,
		mgr:       mgr,
		log:       log,
		logClose:  logClose,
		kv:        kv,
		reg:       registry.NewStore(cfg.Registry.Path, log),
		snapshots: followers.NewSnapshotStore(kv),
		reports:   report.NewStore(kv),
		gate:      report.NewGate(kv),
		src:       source.NewFileSource(cfg.Source.Path),
	}, nil
}

func (e *env) close() {
	if e.kv != nil {
		_ = e.kv.Close()
	}
	if e.logClose != nil {
		_ = e.logClose.Close()
	}
}

// acquireLock takes the registry lock for passes that mutate the registry or
// snapshots. The lock is released on process exit even if release is missed.
func (e *env) acquireLock(ctx context.Context, holder string, wait bool) (*lock.Lock, error) {
	retry, err := e.cfg.LockRetryInterval(lock.DefaultRetryInterval)
	if err != nil {
		return nil, err
	}
	return lock.Acquire(ctx, lock.Options{
		Addr:          e.cfg.Lock.Addr,
		Holder:        holder,
		Wait:          wait,
		RetryInterval: retry,
	}, e.log)
}

func (e *env) newTracker() *tracker.Service {
	return tracker.New(e.src, e.reg, e.snapshots, e.reports, e.log)
}

func (e *env) newNotifier(dryRun bool) (*notifier.Service, error) {
	vocab, err := phrase.LoadVocabulary(e.cfg.Notifier.Vocabulary)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	composer, err := phrase.NewComposer(vocab, e.cfg.Notifier.MaxSubstitutions, rng)
	if err != nil {
		return nil, err
	}

	templates := notifier.Templates{
		Added: e.cfg.Notifier.AddedTemplate,
		Lost:  e.cfg.Notifier.LostTemplate,
	}
	sink, _, err := e.newTransport()
	if err != nil {
		return nil, err
	}

	svc := notifier.New(e.reg, e.reports, e.gate, composer, sink, templates, e.cfg.Notifier.SendsPerSec, e.log)
	svc.DryRun = dryRun
	return svc, nil
}

func (e *env) newPublisher(dryRun bool) (*publisher.Service, error) {
	if e.cfg.Publisher.QueuePath == "" {
		return nil, errors.New("publisher.queue_path is not configured")
	}
	queue, err := publisher.LoadQueue(e.cfg.Publisher.QueuePath)
	if err != nil {
		return nil, err
	}
	_, timeline, err := e.newTransport()
	if err != nil {
		return nil, err
	}
	svc := publisher.New(queue, timeline, e.cfg.Publisher.Prefix, e.log)
	svc.DryRun = dryRun
	return svc, nil
}

// newTransport picks the delivery adapter: telegram when a token is
// configured, otherwise the log-only stand-in. The adapter is built once and
// reused across daemon ticks.
func (e *env) newTransport() (notifier.Sink, publisher.Timeline, error) {
	if e.sink != nil {
		return e.sink, e.timeline, nil
	}
	if e.cfg.Telegram.Token == "" {
		lo := &transport.LogOnly{Log: e.log}
		e.sink, e.timeline = lo, lo
		return lo, lo, nil
	}
	poll, err := config.ParseDuration("telegram.poll_timeout", e.cfg.Telegram.PollTimeout, 0)
	if err != nil {
		return nil, nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:           e.cfg.Telegram.Token,
		BroadcastChatID: e.cfg.Telegram.BroadcastChatID,
		PollTimeout:     poll,
	}, e.kv, e.log)
	if err != nil {
		return nil, nil, err
	}
	e.sink, e.timeline = adapter, adapter
	return adapter, adapter, nil
}

func runTrack(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	l, err := e.acquireLock(c.Context, "flockwatch track", !c.Bool("no-wait"))
	if err != nil {
		return err
	}
	defer l.Release()

	_, err = e.newTracker().Run(c.Context)
	return err
}

func runNotify(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	svc, err := e.newNotifier(c.Bool("dry-run"))
	if err != nil {
		return err
	}
	_, err = svc.Run(c.Context)
	return err
}

func runDiscover(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	l, err := e.acquireLock(c.Context, "flockwatch discover", !c.Bool("no-wait"))
	if err != nil {
		return err
	}
	defer l.Release()

	return discovery.New(e.src, e.reg, e.log).Run(c.Context)
}

func runPublish(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	svc, err := e.newPublisher(c.Bool("dry-run"))
	if err != nil {
		return err
	}
	return svc.Run(c.Context)
}

func runDaemon(c *cli.Context) error {
	e, err := buildEnv(c)
	if err != nil {
		return err
	}
	defer e.close()

	passes := daemon.Passes{
		Track: func(ctx context.Context) error {
			l, err := e.acquireLock(ctx, "flockwatch daemon track", true)
			if err != nil {
				return err
			}
			defer l.Release()
			_, err = e.newTracker().Run(ctx)
			return err
		},
		Notify: func(ctx context.Context) error {
			svc, err := e.newNotifier(false)
			if err != nil {
				return err
			}
			_, err = svc.Run(ctx)
			return err
		},
		Discover: func(ctx context.Context) error {
			l, err := e.acquireLock(ctx, "flockwatch daemon discover", true)
			if err != nil {
				return err
			}
			defer l.Release()
			return discovery.New(e.src, e.reg, e.log).Run(ctx)
		},
	}
	if e.cfg.Publisher.QueuePath != "" {
		passes.Publish = func(ctx context.Context) error {
			svc, err := e.newPublisher(false)
			if err != nil {
				return err
			}
			return svc.Run(ctx)
		}
	}

	err = daemon.New(e.mgr, passes, e.log).Run(c.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
