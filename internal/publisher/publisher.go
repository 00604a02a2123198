package publisher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Timeline is the external posting surface: enough of the platform to read
// back recent statuses and publish a new one.
type Timeline interface {
	RecentStatuses(ctx context.Context) ([]string, error)
	PostStatus(ctx context.Context, text string) error
}

const DefaultPrefix = "RULE"

type Service struct {
	queue    *Queue
	timeline Timeline
	log      zerolog.Logger

	prefix     string
	keyPattern *regexp.Regexp

	// DryRun logs the would-be post instead of publishing it.
	DryRun bool
}

// New builds a publisher. Posted statuses look like "<prefix> <key>: <text>";
// the prefix is also how lastPostedKey recognizes our own posts on the
// timeline.
func New(queue *Queue, timeline Timeline, prefix string, log zerolog.Logger) *Service {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Service{
		queue:      queue,
		timeline:   timeline,
		log:        log,
		prefix:     prefix,
		keyPattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + ` (\S+):`),
	}
}

// lastPostedKey scans the recent timeline for the newest status we posted
// from the queue.
func (s *Service) lastPostedKey(ctx context.Context) (string, error) {
	statuses, err := s.timeline.RecentStatuses(ctx)
	if err != nil {
		return "", fmt.Errorf("read timeline: %w", err)
	}
	for _, status := range statuses {
		if m := s.keyPattern.FindStringSubmatch(status); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}

// Run posts the next queued status. Reaching the end of the queue is not an
// error; it just means there is nothing left to say.
func (s *Service) Run(ctx context.Context) error {
	last, err := s.lastPostedKey(ctx)
	if err != nil {
		return err
	}

	next, ok := s.queue.NextAfter(last)
	if !ok {
		s.log.Info().Str("last", last).Msg("status queue exhausted")
		return nil
	}

	text := fmt.Sprintf("%s %s: %s", s.prefix, next.Key, strings.TrimSpace(next.Text))
	if s.DryRun {
		s.log.Info().Str("text", text).Msg("dry run, would post")
		return nil
	}
	if err := s.timeline.PostStatus(ctx, text); err != nil {
		return fmt.Errorf("post status %s: %w", next.Key, err)
	}
	s.log.Info().Str("key", next.Key).Msg("status posted")
	return nil
}
