// Package publisher posts queued statuses to the tracked account's timeline,
// one per scheduled slot, resuming after the last status found on the
// timeline.
package publisher

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Status is one queued post: a stable key and the body text.
type Status struct {
	Key  string
	Text string
}

// Queue is an ordered status backlog loaded from a CSV file with a
// "key,text" header row.
type Queue struct {
	statuses []Status
}

func LoadQueue(path string) (*Queue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open status queue: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse status queue %s: %w", path, err)
	}
	if len(rows) == 0 {
		return &Queue{}, nil
	}

	q := &Queue{statuses: make([]Status, 0, len(rows)-1)}
	for _, row := range rows[1:] { // skip header
		q.statuses = append(q.statuses, Status{Key: row[0], Text: Clean(row[1])})
	}
	return q, nil
}

func (q *Queue) Len() int { return len(q.statuses) }

// NextAfter returns the status following lastKey in queue order. An empty or
// unknown lastKey starts from the beginning; the end of the queue yields
// ok=false.
func (q *Queue) NextAfter(lastKey string) (Status, bool) {
	if lastKey == "" {
		if len(q.statuses) == 0 {
			return Status{}, false
		}
		return q.statuses[0], true
	}
	for i, st := range q.statuses {
		if st.Key == lastKey {
			if i+1 < len(q.statuses) {
				return q.statuses[i+1], true
			}
			return Status{}, false
		}
	}
	if len(q.statuses) == 0 {
		return Status{}, false
	}
	return q.statuses[0], true
}

var cleanReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"‛", "'",
	"“", `"`,
	"”", `"`,
	"′", "'",
	"″", `"`,
	"�", "",
)

// Clean replaces typographic quotes and strips replacement characters that
// tend to mangle when posted.
func Clean(s string) string {
	return cleanReplacer.Replace(s)
}
