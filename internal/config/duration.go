package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration reads a Go duration string from a config field. An empty
// value yields def, so every caller states its fallback at the use site; a
// present value must parse and be non-negative.
func ParseDuration(field, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", field)
	}
	return d, nil
}
