package schedule

import "time"

// Next computes the next fire time for the rule.
//
// ref is the evaluation reference (usually "now"), lastFired the previous
// scheduled fire (zero if none), loc the timezone used for the timed kinds.
// The result is always strictly after ref.
//
// Interval rules: lastFired + Every when that is still in the future,
// otherwise ref + Every. A freshly activated interval rule therefore fires
// one full interval after activation, never immediately, and a long stall
// produces a single catch-up fire instead of a burst.
func (r Rule) Next(ref time.Time, lastFired time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if r.Kind == KindInterval {
		if !lastFired.IsZero() {
			if next := lastFired.Add(r.Every); next.After(ref) {
				return next
			}
		}
		return ref.Add(r.Every)
	}
	if r.sched == nil {
		// Rule built without Parse (field literals in tests); compile lazily.
		cp := r
		if err := cp.compile(); err != nil {
			return time.Time{}
		}
		return cp.sched.Next(ref.In(loc))
	}
	// robfig Next is strictly-after, which gives the advance-on-exact-match
	// behavior for free.
	return r.sched.Next(ref.In(loc))
}
