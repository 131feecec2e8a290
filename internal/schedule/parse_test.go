package schedule

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     Kind
		every    time.Duration
		hour     int
		minute   int
		weekdays []time.Weekday
	}{
		{name: "interval seconds", raw: "every 30 seconds", kind: KindInterval, every: 30 * time.Second},
		{name: "interval minutes", raw: "every 2 minutes", kind: KindInterval, every: 2 * time.Minute},
		{name: "interval single unit", raw: "every 1 hour", kind: KindInterval, every: time.Hour},
		{name: "bare hour", raw: "every hour", kind: KindInterval, every: time.Hour},
		{name: "bare day", raw: "every day", kind: KindDaily},
		{name: "daily 24h clock", raw: "every day at 09:30", kind: KindDaily, hour: 9, minute: 30},
		{name: "daily pm", raw: "every day at 9:30 PM", kind: KindDaily, hour: 21, minute: 30},
		{name: "daily noon", raw: "every day at noon", kind: KindDaily, hour: 12},
		{name: "daily midnight", raw: "every day at midnight", kind: KindDaily},
		{name: "weekly", raw: "every Tuesday at 09:00", kind: KindWeekly, hour: 9, weekdays: []time.Weekday{time.Tuesday}},
		{name: "weekly am", raw: "every friday at 9 AM", kind: KindWeekly, hour: 9, weekdays: []time.Weekday{time.Friday}},
		{name: "weekly multi", raw: "every Monday and Friday at 8 AM", kind: KindWeekly, hour: 8, weekdays: []time.Weekday{time.Monday, time.Friday}},
		{name: "weekly comma list", raw: "every monday, wednesday and friday at 17:15", kind: KindWeekly, hour: 17, minute: 15, weekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday}},
		{name: "monthly", raw: "first day of every month at 8 AM", kind: KindMonthly, hour: 8},
		{name: "monthly on the", raw: "On the first day of month at 00:15", kind: KindMonthly, minute: 15},
		{name: "sloppy whitespace", raw: "  EVERY   10   MINUTES ", kind: KindInterval, every: 10 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if tt.kind == KindInterval && got.Every != tt.every {
				t.Fatalf("Every = %v, want %v", got.Every, tt.every)
			}
			if got.Hour != tt.hour || got.Minute != tt.minute {
				t.Fatalf("time of day = %02d:%02d, want %02d:%02d", got.Hour, got.Minute, tt.hour, tt.minute)
			}
			if tt.weekdays != nil && !reflect.DeepEqual(got.Weekdays, tt.weekdays) {
				t.Fatalf("Weekdays = %v, want %v", got.Weekdays, tt.weekdays)
			}
		})
	}
}

func TestParseRejected(t *testing.T) {
	t.Parallel()
	bad := []string{
		"",
		"whenever you feel like it",
		"every 0 minutes",
		"every -5 minutes",
		"every day at 25:00",
		"every day at 9:61",
		"every blursday at 09:00",
		"every 5 fortnights",
		"at 09:00",
	}
	for _, raw := range bad {
		if _, err := Parse(raw); !errors.Is(err, ErrBadSchedule) {
			t.Fatalf("Parse(%q): expected ErrBadSchedule, got %v", raw, err)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()
	inputs := []string{"every 2 minutes", "every day at noon", "every Monday and Friday at 8 AM"}
	for _, raw := range inputs {
		a, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		b, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if a.Kind != b.Kind || a.Every != b.Every || a.Hour != b.Hour || a.Minute != b.Minute || !reflect.DeepEqual(a.Weekdays, b.Weekdays) {
			t.Fatalf("Parse(%q) not deterministic: %+v vs %+v", raw, a, b)
		}
	}
}

func TestCronSpec(t *testing.T) {
	t.Parallel()
	r, err := Parse("every Monday and Friday at 8:05 AM")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.CronSpec(), "5 8 * * 1,5"; got != want {
		t.Fatalf("CronSpec = %q, want %q", got, want)
	}

	r, err = Parse("first day of every month at noon")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.CronSpec(), "0 12 1 * *"; got != want {
		t.Fatalf("CronSpec = %q, want %q", got, want)
	}
}
