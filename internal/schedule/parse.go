package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadSchedule is returned when the text matches none of the recognized
// grammars. Callers reject the definition; they never guess.
var ErrBadSchedule = errors.New("unrecognized schedule")

var (
	reSpaces    = regexp.MustCompile(`\s+`)
	reEveryN    = regexp.MustCompile(`^every (\d+) (seconds?|minutes?|hours?)$`)
	reDailyAt   = regexp.MustCompile(`^every day at (.+)$`)
	reWeeklyAt  = regexp.MustCompile(`^every ([a-z]+(?:[, ]+[a-z]+)*) at (.+)$`)
	reMonthlyAt = regexp.MustCompile(`^(?:on the )?first day of (?:every |the )?month at (.+)$`)
	reClock     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))? ?(am|pm)?$`)
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parse converts natural-language recurrence text into a Rule.
//
// Parsing is pure and deterministic: identical input always yields an
// identical rule, with no locale-dependent behavior.
func Parse(raw string) (Rule, error) {
	text := normalize(raw)
	if text == "" {
		return Rule{}, fmt.Errorf("%w: empty text", ErrBadSchedule)
	}

	// "every N seconds|minutes|hours"
	if m := reEveryN.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Rule{}, fmt.Errorf("%w: bad count in %q", ErrBadSchedule, raw)
		}
		var unit time.Duration
		switch strings.TrimSuffix(m[2], "s") {
		case "second":
			unit = time.Second
		case "minute":
			unit = time.Minute
		case "hour":
			unit = time.Hour
		}
		return Rule{Kind: KindInterval, Raw: raw, Every: time.Duration(n) * unit}, nil
	}

	// zero-argument defaults
	if text == "every hour" {
		return Rule{Kind: KindInterval, Raw: raw, Every: time.Hour}, nil
	}
	if text == "every day" {
		return finish(Rule{Kind: KindDaily, Raw: raw})
	}

	// "every day at <time>"
	if m := reDailyAt.FindStringSubmatch(text); m != nil {
		h, min, err := parseClock(m[1])
		if err != nil {
			return Rule{}, err
		}
		return finish(Rule{Kind: KindDaily, Raw: raw, Hour: h, Minute: min})
	}

	// "first day of every month at <time>"
	if m := reMonthlyAt.FindStringSubmatch(text); m != nil {
		h, min, err := parseClock(m[1])
		if err != nil {
			return Rule{}, err
		}
		return finish(Rule{Kind: KindMonthly, Raw: raw, Hour: h, Minute: min})
	}

	// "every <weekday>[ and <weekday>...] at <time>"
	if m := reWeeklyAt.FindStringSubmatch(text); m != nil {
		days, ok := parseWeekdays(m[1])
		if ok {
			h, min, err := parseClock(m[2])
			if err != nil {
				return Rule{}, err
			}
			return finish(Rule{Kind: KindWeekly, Raw: raw, Hour: h, Minute: min, Weekdays: days})
		}
	}

	return Rule{}, fmt.Errorf("%w: %q", ErrBadSchedule, raw)
}

func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = reSpaces.ReplaceAllString(s, " ")
	// time-of-day synonyms
	s = strings.ReplaceAll(s, "midnight", "12 am")
	s = strings.ReplaceAll(s, "noon", "12 pm")
	return s
}

// parseClock accepts "HH:MM", "H", "H:MM am/pm" and returns 24h clock parts.
func parseClock(s string) (hour, minute int, err error) {
	m := reClock.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: bad time of day %q", ErrBadSchedule, s)
	}
	h, _ := strconv.Atoi(m[1])
	min := 0
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if h < 1 || h > 12 {
			return 0, 0, fmt.Errorf("%w: bad time of day %q", ErrBadSchedule, s)
		}
		if h != 12 {
			h += 12
		}
	case "am":
		if h < 1 || h > 12 {
			return 0, 0, fmt.Errorf("%w: bad time of day %q", ErrBadSchedule, s)
		}
		if h == 12 {
			h = 0
		}
	}
	if h < 0 || h > 23 || min < 0 || min > 59 {
		return 0, 0, fmt.Errorf("%w: bad time of day %q", ErrBadSchedule, s)
	}
	return h, min, nil
}

// parseWeekdays parses "monday", "monday and friday", "monday, wednesday and friday".
func parseWeekdays(s string) ([]time.Weekday, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' })
	var names []string
	for _, p := range parts {
		for _, w := range strings.Fields(p) {
			if w == "and" {
				continue
			}
			names = append(names, w)
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	seen := map[time.Weekday]bool{}
	days := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		d, ok := weekdayNames[n]
		if !ok {
			return nil, false
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, true
}

func finish(r Rule) (Rule, error) {
	if err := r.compile(); err != nil {
		return Rule{}, err
	}
	return r, nil
}
