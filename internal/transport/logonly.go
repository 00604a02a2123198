// Package transport holds delivery adapters. The log-only adapter here is
// the default when no real transport is configured: every send becomes a log
// line, which keeps local runs and fixtures honest without a bot token.
package transport

import (
	"context"

	"github.com/rs/zerolog"

	"flockwatch/internal/notifier"
)

// LogOnly satisfies both the notifier sink and the publisher timeline.
type LogOnly struct {
	Log zerolog.Logger

	lastStatus string
}

func (l *LogOnly) SendDirectMessage(ctx context.Context, to notifier.Recipient, text string) error {
	_ = ctx
	l.Log.Info().Str("subject", to.Subject).Str("text", text).Msg("log-only delivery")
	return nil
}

func (l *LogOnly) RecentStatuses(ctx context.Context) ([]string, error) {
	_ = ctx
	if l.lastStatus == "" {
		return nil, nil
	}
	return []string{l.lastStatus}, nil
}

func (l *LogOnly) PostStatus(ctx context.Context, text string) error {
	_ = ctx
	l.lastStatus = text
	l.Log.Info().Str("text", text).Msg("log-only status post")
	return nil
}
