package visits

import (
	"context"
	"testing"
	"time"
)

func TestMemoryTracker(t *testing.T) {
	tr := NewMemoryTracker(time.Hour)
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }
	ctx := context.Background()

	steps := []struct {
		name    string
		advance time.Duration
		survey  string
		visitor string
		want    bool
	}{
		{"first visit", 0, "s1", "10.0.0.1", true},
		{"repeat visit", time.Minute, "s1", "10.0.0.1", false},
		{"other visitor", 0, "s1", "10.0.0.2", true},
		{"other survey", 0, "s2", "10.0.0.1", true},
		{"window expired", time.Hour, "s1", "10.0.0.1", true},
	}
	for _, st := range steps {
		clock = clock.Add(st.advance)
		got, err := tr.Visit(ctx, st.survey, st.visitor)
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if got != st.want {
			t.Fatalf("%s: Visit = %v, want %v", st.name, got, st.want)
		}
	}
}

func TestMemoryTrackerSweeps(t *testing.T) {
	tr := NewMemoryTracker(time.Minute)
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return clock }

	tr.Visit(context.Background(), "s1", "a")
	clock = clock.Add(2 * time.Minute)
	tr.Visit(context.Background(), "s1", "b")

	if len(tr.seen) != 1 {
		t.Fatalf("expected expired entries swept, have %d", len(tr.seen))
	}
}

func TestKey(t *testing.T) {
	if got := key("s1", "10.0.0.1"); got != "visit:s1:10.0.0.1" {
		t.Fatalf("key = %q", got)
	}
}
