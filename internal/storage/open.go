package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// KV is the minimal durable key-value API used by the stores.
//
// Values are opaque byte payloads; the stores layer their own JSON encoding
// on top. Get returns ErrNotFound when no value exists for the key.
type KV interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, value []byte) error
	Keys(ctx context.Context, bucket string) ([]string, error)
	Close() error
}

// Open initializes the configured backend.
func Open(cfg Config, log zerolog.Logger) (KV, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
