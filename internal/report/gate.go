package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"flockwatch/internal/storage"
)

// Gate records, per subject, when a notification was last actually sent.
// A report is eligible for delivery only if it was generated after that
// moment, which makes the notification pass idempotent: re-running it against
// an unchanged report produces no duplicate sends.
type Gate struct {
	kv storage.KV
}

func NewGate(kv storage.KV) *Gate {
	return &Gate{kv: kv}
}

type gateEntry struct {
	LastSent time.Time `json:"last_sent"`
}

// ShouldSend reports whether a notification for the given report generation
// time is due. True when the subject has never been notified, or when the
// report is strictly newer than the last send.
func (g *Gate) ShouldSend(ctx context.Context, subject string, generatedAt time.Time) (bool, error) {
	b, err := g.kv.Get(ctx, storage.BucketGate, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("load gate for %s: %w", subject, err)
	}
	var entry gateEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return false, fmt.Errorf("decode gate for %s: %w", subject, err)
	}
	return entry.LastSent.Before(generatedAt), nil
}

// RecordSent stores the send time for a subject. Call it only after the sink
// confirmed delivery; a failed delivery must leave the gate untouched so the
// next pass retries.
func (g *Gate) RecordSent(ctx context.Context, subject string, at time.Time) error {
	b, err := json.Marshal(gateEntry{LastSent: at.UTC()})
	if err != nil {
		return fmt.Errorf("encode gate for %s: %w", subject, err)
	}
	if err := g.kv.Put(ctx, storage.BucketGate, subject, b); err != nil {
		return fmt.Errorf("save gate for %s: %w", subject, err)
	}
	return nil
}
