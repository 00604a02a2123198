// Package telegram adapts the notifier sink and the publisher timeline to
// Telegram via Bot API. Subscribers opt in by carrying a
// "telegram:<chatid>" delivery channel in their registry record.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"

	"flockwatch/internal/notifier"
	"flockwatch/internal/storage"
)

const channelPrefix = "telegram:"

type Config struct {
	Token string
	// BroadcastChatID receives queued status posts.
	BroadcastChatID int64
	PollTimeout     time.Duration
}

type Adapter struct {
	cfg Config
	bot *tele.Bot
	kv  storage.KV
	log zerolog.Logger
}

// New connects the bot. The KV store backs the timeline readback, since the
// Bot API cannot page through a chat's history.
func New(cfg Config, kv storage.KV, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, bot: bot, kv: kv, log: log}, nil
}

// SendDirectMessage implements notifier.Sink.
func (a *Adapter) SendDirectMessage(ctx context.Context, to notifier.Recipient, text string) error {
	_ = ctx
	chatID, err := chatIDFromChannel(to.Channel)
	if err != nil {
		return fmt.Errorf("subscriber %s: %w", to.Subject, err)
	}
	if _, err := a.bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("telegram send to %s: %w", to.Subject, err)
	}
	return nil
}

// RecentStatuses implements publisher.Timeline. The adapter remembers its
// own last broadcast because Telegram offers no history read for bots.
func (a *Adapter) RecentStatuses(ctx context.Context) ([]string, error) {
	b, err := a.kv.Get(ctx, storage.BucketTimeline, "last")
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{string(b)}, nil
}

// PostStatus implements publisher.Timeline.
func (a *Adapter) PostStatus(ctx context.Context, text string) error {
	if a.cfg.BroadcastChatID == 0 {
		return errors.New("telegram broadcast chat is not configured")
	}
	if _, err := a.bot.Send(tele.ChatID(a.cfg.BroadcastChatID), text); err != nil {
		return fmt.Errorf("telegram broadcast: %w", err)
	}
	return a.kv.Put(ctx, storage.BucketTimeline, "last", []byte(text))
}

func chatIDFromChannel(channel string) (int64, error) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return 0, fmt.Errorf("channel %q is not a telegram channel", channel)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(channel, channelPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id in channel %q", channel)
	}
	return id, nil
}
