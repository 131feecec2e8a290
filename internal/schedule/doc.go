// Package schedule turns human-readable recurrence text into deterministic
// rules and computes fire times from them.
//
// # Grammar
//
// Recognized forms (case-insensitive, whitespace-tolerant):
//
//   - "every N seconds|minutes|hours"            -> fixed interval
//   - "every hour"                               -> 1h interval
//   - "every day"                                -> daily at 00:00
//   - "every day at 9:30 PM"                     -> daily at a time of day
//   - "every tuesday at 09:00"                   -> weekly
//   - "every monday and friday at 9 AM"          -> weekly, several weekdays
//   - "first day of every month at 8 AM"         -> monthly
//
// "noon" and "midnight" are accepted as time synonyms. Anything else is
// rejected with ErrBadSchedule rather than guessed.
//
// # Next-fire policy
//
// Interval rules never fire immediately: with no prior fire the next fire is
// one full interval after the reference time. This deliberately avoids a
// burst of overdue fires after long downtime. Timed rules (daily/weekly/
// monthly) pick the smallest matching instant strictly after the reference
// time, so a reference that lands exactly on the scheduled instant advances
// a full period.
package schedule
