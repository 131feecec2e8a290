package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrEventExists = errors.New("event already exists")
	ErrInFlight    = errors.New("dispatch already in flight")
)

// record is a registry-owned runtime record. Never leaves the package.
type record struct {
	def event.Definition

	state       event.State
	lastFiredAt time.Time
	nextFireAt  time.Time
	inFlight    bool

	// deferredDelete marks a record whose definition source disappeared
	// during a reload while the event was still active.
	deferredDelete bool
}

type Registry struct {
	mu     sync.Mutex
	events map[string]*record

	root  string
	loc   *time.Location
	clock event.Clock
	log   logx.Logger
}

func New(root string, loc *time.Location, clock event.Clock, log logx.Logger) *Registry {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{
		events: map[string]*record{},
		root:   root,
		loc:    loc,
		clock:  clock,
		log:    log,
	}
}

// Load scans the events root and populates the registry. Definitions whose
// frontmatter sets active:true are activated immediately. Malformed
// definitions are skipped with a warning, never aborting the load.
func (r *Registry) Load() error {
	defs, probs, err := event.Scan(r.root)
	if err != nil {
		return err
	}
	for _, p := range probs {
		r.log.Warn("skipping event definition", logx.String("dir", p.Dir), logx.Err(p.Err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()
	for _, def := range defs {
		rec := &record{def: def, state: event.StateInactive}
		if def.Active {
			rec.state = event.StateActive
			rec.nextFireAt = def.Rule.Next(now, time.Time{}, r.loc)
		}
		r.events[def.Name] = rec
		r.log.Info("event loaded",
			logx.String("event", def.Name),
			logx.String("schedule", def.ScheduleText),
			logx.String("tool", def.Action.Tool),
			logx.Bool("active", def.Active))
	}
	return nil
}

// Activate sets the event ACTIVE and computes its next fire time from now
// with no prior fire.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec.state = event.StateActive
	rec.nextFireAt = rec.def.Rule.Next(r.clock(), time.Time{}, r.loc)
	r.log.Info("event activated", logx.String("event", name), logx.Time("next_fire", rec.nextFireAt))
	return nil
}

// Deactivate sets the event INACTIVE and clears its next fire time.
// Idempotent; an in-flight dispatch is not aborted, but future ticks will
// not re-fire the event.
func (r *Registry) Deactivate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	rec.state = event.StateInactive
	rec.nextFireAt = time.Time{}
	if rec.deferredDelete && !rec.inFlight {
		delete(r.events, name)
		r.log.Warn("deferred delete applied on deactivation", logx.String("event", name))
		return nil
	}
	r.log.Info("event deactivated", logx.String("event", name))
	return nil
}

// Create validates and inserts a definition. The registry is left unchanged
// on any failure. Events are created INACTIVE unless the definition marks
// them active.
func (r *Registry) Create(def event.Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: name is required", event.ErrInvalidDefinition)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[def.Name]; ok {
		return fmt.Errorf("%w: %s", ErrEventExists, def.Name)
	}
	rec := &record{def: def, state: event.StateInactive}
	if def.Active {
		rec.state = event.StateActive
		rec.nextFireAt = def.Rule.Next(r.clock(), time.Time{}, r.loc)
	}
	r.events[def.Name] = rec
	r.log.Info("event created", logx.String("event", def.Name), logx.String("schedule", def.ScheduleText))
	return nil
}

// Delete removes the definition and its on-disk directory. An in-flight
// dispatch completes, but its completion callback becomes a no-op against
// the now-absent record.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	rec, ok := r.events[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	dir := rec.def.Dir
	delete(r.events, name)
	r.mu.Unlock()

	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			r.log.Warn("event removed from registry but directory cleanup failed",
				logx.String("event", name), logx.String("dir", dir), logx.Err(err))
		}
	}
	r.log.Info("event deleted", logx.String("event", name))
	return nil
}

// CompleteFire applies the atomic post-dispatch update for a scheduled fire:
// lastFiredAt, recomputed nextFireAt, and the cleared in-flight marker.
// A record deleted while the dispatch ran makes this a no-op.
func (r *Registry) CompleteFire(name string, firedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[name]
	if !ok {
		return
	}
	rec.inFlight = false
	rec.lastFiredAt = firedAt
	if rec.state == event.StateActive {
		rec.nextFireAt = rec.def.Rule.Next(r.clock(), firedAt, r.loc)
	}
}

// BeginManualFire marks the event in flight for a fire-once request,
// regardless of activation state. It fails with ErrInFlight when a dispatch
// for this event is already running.
func (r *Registry) BeginManualFire(name string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[name]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if rec.inFlight {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrInFlight, name)
	}
	rec.inFlight = true
	return rec.snapshot(), nil
}

// CompleteManualFire clears the in-flight marker after a fire-once dispatch.
// It records lastFiredAt but leaves activation state and nextFireAt alone:
// a manual fire never alters the recurring schedule.
func (r *Registry) CompleteManualFire(name string, firedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.events[name]
	if !ok {
		return
	}
	rec.inFlight = false
	rec.lastFiredAt = firedAt
}

// sortedNamesLocked returns event names in stable (lexical) order.
// Call with r.mu held.
func (r *Registry) sortedNamesLocked() []string {
	names := make([]string, 0, len(r.events))
	for n := range r.events {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
