// Package notifier runs the delivery pass: it reads each subscriber's change
// report, words it through the phrase composer, and sends it through the
// configured sink unless the gate says this report already went out.
//
// The pass deliberately takes no registry lock; it only reads reports and
// touches the gate, both of which are single-producer single-consumer per
// subject.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"flockwatch/internal/phrase"
	"flockwatch/internal/registry"
	"flockwatch/internal/report"
	"flockwatch/internal/storage"
)

// Recipient addresses one delivery.
type Recipient struct {
	Subject string
	Channel string // registry delivery channel, e.g. "telegram:123456"
}

// Sink is the external delivery transport.
type Sink interface {
	SendDirectMessage(ctx context.Context, to Recipient, text string) error
}

// Templates carries the message skeletons; %d receives the change count.
type Templates struct {
	Added string
	Lost  string
}

func DefaultTemplates() Templates {
	return Templates{
		Added: "{{POSITIVE}} You {{ADDED}} %d {{ADDITIONAL}} {{FOLLOWERS}}.",
		Lost:  "{{NEGATIVE}} Your account {{LOST}} %d {{FOLLOWERS}}.",
	}
}

type Service struct {
	registry  *registry.Store
	reports   *report.Store
	gate      *report.Gate
	composer  *phrase.Composer
	sink      Sink
	templates Templates
	limiter   *rate.Limiter
	log       zerolog.Logger

	// DryRun renders and logs but never touches the sink or the gate.
	DryRun bool

	now func() time.Time
}

func New(reg *registry.Store, reports *report.Store, gate *report.Gate, composer *phrase.Composer, sink Sink, templates Templates, sendsPerSec int, log zerolog.Logger) *Service {
	if templates.Added == "" && templates.Lost == "" {
		templates = DefaultTemplates()
	}
	if sendsPerSec <= 0 {
		sendsPerSec = 1
	}
	return &Service{
		registry:  reg,
		reports:   reports,
		gate:      gate,
		composer:  composer,
		sink:      sink,
		templates: templates,
		limiter:   rate.NewLimiter(rate.Limit(sendsPerSec), sendsPerSec),
		log:       log,
		now:       time.Now,
	}
}

// Summary counts the outcome of one notification pass.
type Summary struct {
	Subjects   int
	Sent       int
	Suppressed int
	Failed     int
}

// Run executes one notification cycle over all active subscribers.
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
		outcome, err := s.notifyOne(ctx, records[subject])
		if err != nil {
			sum.Failed++
			s.log.Error().Str("subject", subject).Err(err).Msg("notification failed")
			continue
		}
		switch outcome {
		case outcomeSent:
			sum.Sent++
		case outcomeSuppressed:
			sum.Suppressed++
		}
	}
	s.log.Info().Int("subjects", sum.Subjects).Int("sent", sum.Sent).
		Int("suppressed", sum.Suppressed).Int("failed", sum.Failed).
		Msg("notification pass complete")
	return sum, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeSuppressed
)

func (s *Service) notifyOne(ctx context.Context, rec registry.Record) (outcome, error) {
	rep, err := s.reports.Load(ctx, rec.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// No tracking pass has run for this subject yet.
		return outcomeSkipped, nil
	}
	if err != nil {
		return outcomeSkipped, err
	}
	if rep.Empty() {
		return outcomeSkipped, nil
	}

	text, err := s.Compose(rep)
	if err != nil {
		// A missing vocabulary keyword aborts this subject only.
		return outcomeSkipped, err
	}

	due, err := s.gate.ShouldSend(ctx, rec.ID, rep.GeneratedAt)
	if err != nil {
		return outcomeSkipped, err
	}
	if !due {
		s.log.Debug().Str("subject", rec.ID).Msg("suppressing previously sent report")
		return outcomeSuppressed, nil
	}

	if s.DryRun {
		s.log.Info().Str("subject", rec.ID).Str("text", text).Msg("dry run, would send")
		return outcomeSent, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return outcomeSkipped, err
	}
	to := Recipient{Subject: rec.ID, Channel: rec.Channel}
	if err := s.sink.SendDirectMessage(ctx, to, text); err != nil {
		// Gate stays untouched so the next pass retries this report.
		return outcomeSkipped, fmt.Errorf("deliver to %s: %w", rec.ID, err)
	}
	if err := s.gate.RecordSent(ctx, rec.ID, s.now().UTC()); err != nil {
		return outcomeSent, err
	}
	return outcomeSent, nil
}

// Compose words one report. Added and removed counts each get their own
// sentence; both may appear in a single message.
func (s *Service) Compose(rep report.Report) (string, error) {
	var parts []string
	if n := len(rep.Added); n > 0 {
		rendered, err := s.composer.Render(s.templates.Added, n)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf(rendered, n))
	}
	if n := len(rep.Removed); n > 0 {
		rendered, err := s.composer.Render(s.templates.Lost, n)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf(rendered, n))
	}
	return strings.Join(parts, " "), nil
}
