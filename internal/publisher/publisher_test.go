package publisher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type fakeTimeline struct {
	recent []string
	posted []string
}

func (f *fakeTimeline) RecentStatuses(ctx context.Context) ([]string, error) {
	return f.recent, nil
}

func (f *fakeTimeline) PostStatus(ctx context.Context, text string) error {
	f.posted = append(f.posted, text)
	return nil
}

func writeQueue(t *testing.T, rows string) *Queue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statuses.csv")
	if err := os.WriteFile(path, []byte(rows), 0o644); err != nil {
		t.Fatalf("write queue: %v", err)
	}
	q, err := LoadQueue(path)
	if err != nil {
		t.Fatalf("load queue: %v", err)
	}
	return q
}

const sampleQueue = "key,text\n1,first rule\n2,second rule\n3,third rule\n"

func TestNextAfter(t *testing.T) {
	q := writeQueue(t, sampleQueue)
	if q.Len() != 3 {
		t.Fatalf("unexpected queue length: %d", q.Len())
	}

	st, ok := q.NextAfter("")
	if !ok || st.Key != "1" {
		t.Fatalf("empty last key must start at the top: %+v %v", st, ok)
	}

	st, ok = q.NextAfter("2")
	if !ok || st.Key != "3" {
		t.Fatalf("expected key 3 after 2: %+v %v", st, ok)
	}

	if _, ok := q.NextAfter("3"); ok {
		t.Fatal("queue end must report exhaustion")
	}

	st, ok = q.NextAfter("unknown")
	if !ok || st.Key != "1" {
		t.Fatalf("unknown last key must restart from the top: %+v %v", st, ok)
	}
}

func TestClean(t *testing.T) {
	in := "It’s “quoted” text�"
	if got := Clean(in); got != `It's "quoted" text` {
		t.Fatalf("unexpected clean result: %q", got)
	}
}

func TestRunPostsNextStatus(t *testing.T) {
	q := writeQueue(t, sampleQueue)
	tl := &fakeTimeline{recent: []string{"unrelated chatter", "RULE 1: first rule"}}
	svc := New(q, tl, "", zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(tl.posted) != 1 || tl.posted[0] != "RULE 2: second rule" {
		t.Fatalf("unexpected post: %v", tl.posted)
	}
}

func TestRunQueueExhausted(t *testing.T) {
	q := writeQueue(t, sampleQueue)
	tl := &fakeTimeline{recent: []string{"RULE 3: third rule"}}
	svc := New(q, tl, "", zerolog.Nop())

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(tl.posted) != 0 {
		t.Fatalf("exhausted queue must not post: %v", tl.posted)
	}
}

func TestRunDryRun(t *testing.T) {
	q := writeQueue(t, sampleQueue)
	tl := &fakeTimeline{}
	svc := New(q, tl, "", zerolog.Nop())
	svc.DryRun = true

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(tl.posted) != 0 {
		t.Fatalf("dry run must not post: %v", tl.posted)
	}
}
