// Package engine drives the scheduler: a fixed tick scans the registry for
// due events and hands each one to the dispatcher on its own goroutine.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/dispatch"
	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/internal/firelog"
	"github.com/HadjievK/event-driven-agent/internal/registry"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

const DefaultTick = time.Second

type Loop struct {
	reg  *registry.Registry
	disp *dispatch.Dispatcher
	log  logx.Logger

	clock event.Clock
	tick  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	// inflight tracks dispatch goroutines so Stop can drain them.
	inflight sync.WaitGroup
}

func New(reg *registry.Registry, disp *dispatch.Dispatcher, tick time.Duration, clock event.Clock, log logx.Logger) *Loop {
	if tick <= 0 {
		tick = DefaultTick
	}
	if clock == nil {
		clock = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{reg: reg, disp: disp, tick: tick, clock: clock, log: log}
}

// Start launches the tick loop. Idempotent while running.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		ticker := time.NewTicker(l.tick)
		defer ticker.Stop()
		l.log.Info("scheduler started", logx.Duration("tick", l.tick))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.runTick(ctx)
			}
		}
	}()
}

// Stop halts the tick loop and waits for in-flight dispatches to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
	l.inflight.Wait()
	l.log.Info("scheduler stopped")
}

// runTick fires everything due at the current instant. Each due event runs
// on its own goroutine; the registry has already marked it in flight, so a
// slow dispatch blocks only itself.
func (l *Loop) runTick(ctx context.Context) {
	now := l.clock()
	for _, snap := range l.reg.DueSnapshot(now) {
		snap := snap
		l.inflight.Add(1)
		go func() {
			defer l.inflight.Done()
			entry := l.disp.Dispatch(ctx, snap.Def, false)
			l.reg.CompleteFire(snap.Def.Name, entry.At)
		}()
	}
}

// FireOnce dispatches the event immediately, regardless of activation
// state. It respects the per-event exclusion and records lastFiredAt, but
// never touches the recurring schedule.
func (l *Loop) FireOnce(ctx context.Context, name string) (firelog.Entry, error) {
	snap, err := l.reg.BeginManualFire(name)
	if err != nil {
		return firelog.Entry{}, err
	}
	entry := l.disp.Dispatch(ctx, snap.Def, true)
	l.reg.CompleteManualFire(name, entry.At)
	return entry, nil
}
