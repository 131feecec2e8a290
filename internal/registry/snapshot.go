package registry

import (
	"fmt"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/event"
)

// Snapshot is a point-in-time copy of one event's definition and runtime
// state. Safe to hold across ticks; it never aliases registry internals
// except the immutable parsed definition.
type Snapshot struct {
	Def event.Definition

	State       event.State
	LastFiredAt time.Time
	NextFireAt  time.Time
	InFlight    bool
}

func (rec *record) snapshot() Snapshot {
	return Snapshot{
		Def:         rec.def,
		State:       rec.state,
		LastFiredAt: rec.lastFiredAt,
		NextFireAt:  rec.nextFireAt,
		InFlight:    rec.inFlight,
	}
}

// Get returns a snapshot of one event.
func (r *Registry) Get(name string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[name]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return rec.snapshot(), nil
}

// List returns snapshots of all events in stable (lexical) name order.
func (r *Registry) List() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, 0, len(r.events))
	for _, name := range r.sortedNamesLocked() {
		out = append(out, r.events[name].snapshot())
	}
	return out
}

// DueSnapshot returns the events that must fire at now: ACTIVE, with a next
// fire time at or before now, and not already executing. Each returned event
// is atomically marked in flight, so a due event whose previous dispatch has
// not completed is skipped this tick and reconsidered on the next one.
func (r *Registry) DueSnapshot(now time.Time) []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []Snapshot
	for _, name := range r.sortedNamesLocked() {
		rec := r.events[name]
		if rec.state != event.StateActive || rec.nextFireAt.IsZero() {
			continue
		}
		if rec.nextFireAt.After(now) {
			continue
		}
		if rec.inFlight {
			continue
		}
		rec.inFlight = true
		due = append(due, rec.snapshot())
	}
	return due
}
