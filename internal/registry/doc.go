// Package registry is the single authority over event definitions and their
// runtime state.
//
// All mutations (commands, reloads, dispatch completions) serialize on one
// mutex; readers get consistent copies, never pointers into registry-owned
// records. The scheduler loop observes events only through DueSnapshot, which
// atomically marks the returned events in flight, so a tick can never hand
// the same event to two concurrent dispatches.
//
// Runtime state is in-memory only: a process restart loses lastFiredAt and
// nextFireAt. That is a documented limitation, not a bug.
package registry
