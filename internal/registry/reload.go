package registry

import (
	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

// Reload re-scans the events root and merges the result into the registry.
//
// Merge rules:
//   - Unchanged definitions keep their runtime state (activation,
//     lastFiredAt, nextFireAt).
//   - A changed schedule recomputes nextFireAt for an active event.
//   - New definitions are inserted INACTIVE regardless of their frontmatter
//     flag; an operator activates them explicitly.
//   - Records whose source directory disappeared are deleted, unless the
//     event is ACTIVE or mid-dispatch, in which case deletion is deferred
//     and surfaced as a warning instead of abruptly cancelling a running
//     schedule. The deferred delete applies on deactivation.
//
// Malformed definitions are skipped with a warning and do not affect other
// events.
func (r *Registry) Reload() error {
	defs, probs, err := event.Scan(r.root)
	if err != nil {
		return err
	}
	for _, p := range probs {
		r.log.Warn("skipping event definition on reload", logx.String("dir", p.Dir), logx.Err(p.Err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock()

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		seen[def.Name] = true
		rec, ok := r.events[def.Name]
		if !ok {
			r.events[def.Name] = &record{def: def, state: event.StateInactive}
			r.log.Info("event added", logx.String("event", def.Name), logx.String("schedule", def.ScheduleText))
			continue
		}

		scheduleChanged := rec.def.ScheduleText != def.ScheduleText
		rec.def = def
		rec.deferredDelete = false
		if scheduleChanged && rec.state == event.StateActive {
			rec.nextFireAt = def.Rule.Next(now, rec.lastFiredAt, r.loc)
			r.log.Info("event schedule changed",
				logx.String("event", def.Name),
				logx.String("schedule", def.ScheduleText),
				logx.Time("next_fire", rec.nextFireAt))
		}
	}

	for _, name := range r.sortedNamesLocked() {
		rec := r.events[name]
		if seen[name] {
			continue
		}
		if rec.state == event.StateActive || rec.inFlight {
			if !rec.deferredDelete {
				rec.deferredDelete = true
				r.log.Warn("definition source removed while event is active; delete deferred",
					logx.String("event", name))
			}
			continue
		}
		delete(r.events, name)
		r.log.Info("event removed", logx.String("event", name))
	}
	return nil
}
