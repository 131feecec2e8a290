package schedule

import (
	"testing"
	"time"
)

func mustParse(t *testing.T, raw string) Rule {
	t.Helper()
	r, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return r
}

func TestNextIntervalFirstFire(t *testing.T) {
	t.Parallel()
	r := mustParse(t, "every 2 minutes")
	ref := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	next := r.Next(ref, time.Time{}, time.UTC)
	if want := ref.Add(2 * time.Minute); !next.Equal(want) {
		t.Fatalf("Next = %v, want exactly %v (never immediate)", next, want)
	}
}

func TestNextIntervalFromLastFired(t *testing.T) {
	t.Parallel()
	r := mustParse(t, "every 10 minutes")
	last := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	// last + d still in the future: keep the cadence anchored on last.
	ref := last.Add(3 * time.Minute)
	if next := r.Next(ref, last, time.UTC); !next.Equal(last.Add(10 * time.Minute)) {
		t.Fatalf("Next = %v, want %v", next, last.Add(10*time.Minute))
	}

	// long stall: one catch-up fire an interval after ref, no burst.
	ref = last.Add(5 * time.Hour)
	if next := r.Next(ref, last, time.UTC); !next.Equal(ref.Add(10 * time.Minute)) {
		t.Fatalf("Next after stall = %v, want %v", next, ref.Add(10*time.Minute))
	}
}

func TestNextWeeklyFullPeriod(t *testing.T) {
	t.Parallel()
	r := mustParse(t, "every Tuesday at 09:00")

	// 2026-08-25 is a Tuesday. Reference after 09:00 the same day must land
	// exactly 7 days later at 09:00, not later today.
	ref := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	next := r.Next(ref, time.Time{}, time.UTC)
	if want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("Next = %v, want %v", next, want)
	}

	// Reference exactly on the scheduled instant advances a full period.
	ref = time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	next = r.Next(ref, time.Time{}, time.UTC)
	if want := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("Next on exact match = %v, want %v", next, want)
	}
}

func TestNextDaily(t *testing.T) {
	t.Parallel()
	r := mustParse(t, "every day at 21:30")

	ref := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if next := r.Next(ref, time.Time{}, time.UTC); !next.Equal(time.Date(2026, 8, 25, 21, 30, 0, 0, time.UTC)) {
		t.Fatalf("Next = %v, want same day 21:30", next)
	}

	ref = time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	if next := r.Next(ref, time.Time{}, time.UTC); !next.Equal(time.Date(2026, 8, 26, 21, 30, 0, 0, time.UTC)) {
		t.Fatalf("Next = %v, want next day 21:30", next)
	}
}

func TestNextMonthly(t *testing.T) {
	t.Parallel()
	r := mustParse(t, "first day of every month at 8 AM")
	ref := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if next := r.Next(ref, time.Time{}, time.UTC); !next.Equal(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("Next = %v, want Sep 1 08:00", next)
	}
}

func TestNextNeverAtOrBeforeReference(t *testing.T) {
	t.Parallel()
	rules := []string{"every 5 seconds", "every day", "every sunday at midnight", "first day of every month at noon"}
	refs := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
	}
	for _, raw := range rules {
		r := mustParse(t, raw)
		for _, ref := range refs {
			if next := r.Next(ref, time.Time{}, time.UTC); !next.After(ref) {
				t.Fatalf("rule %q: Next(%v) = %v, not strictly after", raw, ref, next)
			}
		}
	}
}
