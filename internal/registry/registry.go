// Package registry maintains the durable collection of subscription records:
// who is being tracked, through which delivery channel, and until when.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// ErrCorrupt marks a registry file that exists but cannot be parsed. Callers
// log it and continue with an empty registry rather than aborting the batch.
var ErrCorrupt = errors.New("registry: corrupt store")

// Record describes one tracked subscriber.
type Record struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Active  bool   `json:"active"`
	Channel string `json:"channel,omitempty"` // e.g. "dm", "telegram:<chatid>"
	Expires string `json:"expires,omitempty"` // YYYY-MM-DD
	Locale  string `json:"locale,omitempty"`
}

// Expired reports whether the subscription end date has passed. An
// unparseable or empty date counts as not expired: a bad record should not
// silently cut off an otherwise active subscriber.
func (r Record) Expired(now time.Time) bool {
	if r.Expires == "" {
		return false
	}
	end, err := time.Parse(dateLayout, r.Expires)
	if err != nil {
		return false
	}
	return end.Before(now.Truncate(24 * time.Hour))
}

// Store persists the registry as a single indented JSON file, replaced
// atomically on every save so readers never see a partial write.
type Store struct {
	path string
	log  zerolog.Logger
}

func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load reads the full registry. A missing file is the expected first-run
// state and yields an empty map. A present but unparseable file yields an
// empty map plus ErrCorrupt.
func (s *Store) Load() (map[string]Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Record{}, nil
		}
		return map[string]Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var records map[string]Record
	if err := json.Unmarshal(b, &records); err != nil {
		s.log.Error().Str("path", s.path).Err(err).Msg("registry unreadable, degrading to empty")
		return map[string]Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if records == nil {
		records = map[string]Record{}
	}
	return records, nil
}

// Save overwrites the whole registry file.
func (s *Store) Save(records map[string]Record) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create registry dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

// Merge combines the known registry with a freshly discovered set.
//
// Discovery is authoritative for membership: a subscriber known in current
// survives only if rediscovered, keeping its existing attributes; a newly
// discovered subscriber enters with the record supplied by discovery.
// Subscribers absent from discovered are dropped even when their old record
// still reads active.
func Merge(current, discovered map[string]Record) map[string]Record {
	merged := make(map[string]Record, len(discovered))
	for id, rec := range discovered {
		if known, ok := current[id]; ok {
			merged[id] = known
			continue
		}
		merged[id] = rec
	}
	return merged
}

// ActiveIDs filters to subscribers that are flagged active and not expired,
// returned in stable sorted order.
func ActiveIDs(records map[string]Record, now time.Time) []string {
	var ids []string
	for id, rec := range records {
		if rec.Active && !rec.Expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
