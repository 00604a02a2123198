package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound marks expected-absent state (e.g. first run for a subject).
	// Callers treat it as a normal condition, not a failure.
	ErrNotFound = errors.New("storage: key not found")

	ErrDisabled = errors.New("storage disabled")

	// ErrBadKey marks a key that cannot be stored safely (empty, or
	// containing path separators that would escape its bucket).
	ErrBadKey = errors.New("storage: invalid key")
)

// Config configures the persistence backend.
//
// Driver values:
//   - "file": one JSON document per bucket/key under Path
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty, "file" is assumed.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Well-known buckets used by the pipeline.
const (
	BucketFollowers = "followers"
	BucketReports   = "reports"
	BucketGate      = "gate"
	BucketTimeline  = "timeline"
)
