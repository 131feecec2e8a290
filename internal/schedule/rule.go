package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind describes the normalized kind of a recurrence rule.
type Kind int

const (
	KindInterval Kind = iota
	KindDaily
	KindWeekly
	KindMonthly
)

func (k Kind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Rule is a parsed recurrence rule. It is immutable once parsed: the same
// schedule text always yields an identical rule.
//
// Interval rules carry Every; the timed kinds carry Hour/Minute and, for
// weekly rules, the sorted set of weekdays.
type Rule struct {
	Kind  Kind
	Raw   string
	Every time.Duration

	Hour     int
	Minute   int
	Weekdays []time.Weekday

	// compiled cron schedule for the timed kinds; nil for intervals
	sched cron.Schedule
}

// cronParser matches the field set the generated specs use.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronSpec renders the timed rule as a 5-field cron expression.
// It returns "" for interval rules.
func (r Rule) CronSpec() string {
	switch r.Kind {
	case KindDaily:
		return fmt.Sprintf("%d %d * * *", r.Minute, r.Hour)
	case KindWeekly:
		days := make([]string, 0, len(r.Weekdays))
		for _, d := range r.Weekdays {
			days = append(days, fmt.Sprintf("%d", int(d)))
		}
		return fmt.Sprintf("%d %d * * %s", r.Minute, r.Hour, strings.Join(days, ","))
	case KindMonthly:
		return fmt.Sprintf("%d %d 1 * *", r.Minute, r.Hour)
	default:
		return ""
	}
}

func (r Rule) String() string {
	switch r.Kind {
	case KindInterval:
		return "every " + r.Every.String()
	default:
		return fmt.Sprintf("%s %02d:%02d", r.Kind, r.Hour, r.Minute)
	}
}

// compile builds the cached cron schedule for timed kinds.
func (r *Rule) compile() error {
	if r.Kind == KindInterval {
		return nil
	}
	sort.Slice(r.Weekdays, func(i, j int) bool { return r.Weekdays[i] < r.Weekdays[j] })
	sched, err := cronParser.Parse(r.CronSpec())
	if err != nil {
		return fmt.Errorf("compile %q: %w", r.CronSpec(), err)
	}
	r.sched = sched
	return nil
}
