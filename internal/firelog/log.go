// Package firelog records every dispatch attempt of the engine.
//
// The log always keeps a bounded in-memory ring for fast queries and live
// subscribers; a persistent backend (file or sqlite) is layered underneath
// when configured. Persistence failures degrade to a warning, they never
// block a dispatch.
package firelog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

// backend is the persistence API behind the in-memory ring.
type backend interface {
	append(ctx context.Context, e Entry) error
	recent(ctx context.Context, n int) ([]Entry, error)
	close() error
}

type Log struct {
	log logx.Logger

	mu     sync.Mutex
	ring   []Entry // oldest first, bounded by size
	size   int
	subs   map[chan Entry]struct{}
	store  backend // nil when driver is none
	closed bool
}

// Open initializes the firing log for the configured driver and seeds the
// in-memory ring from persisted history when there is any.
func Open(cfg Config, log logx.Logger) (*Log, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	size := cfg.HistorySize
	if size <= 0 {
		size = defaultHistorySize
	}

	var store backend
	var err error
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "none":
	case "file":
		store, err = openFile(cfg)
	case "sqlite", "sqlite3":
		store, err = openSQLite(cfg)
	default:
		return nil, errors.New("unknown firelog driver: " + driver)
	}
	if err != nil {
		return nil, err
	}

	l := &Log{
		log:   log,
		size:  size,
		subs:  map[chan Entry]struct{}{},
		store: store,
	}
	if store != nil {
		seed, err := store.recent(context.Background(), size)
		if err != nil {
			log.Warn("firing log history unavailable", logx.Err(err))
		} else {
			l.ring = seed
		}
	}
	return l, nil
}

// Append records one dispatch attempt. Missing ID and timestamp are filled
// in; the completed entry is returned. Append never fails the caller: a
// persistence error only logs a warning.
func (l *Log) Append(ctx context.Context, e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return e
	}
	l.ring = append(l.ring, e)
	if len(l.ring) > l.size {
		l.ring = l.ring[len(l.ring)-l.size:]
	}
	store := l.store
	for ch := range l.subs {
		select {
		case ch <- e:
		default:
			// slow subscriber drops entries rather than stalling dispatch
		}
	}
	l.mu.Unlock()

	if store != nil {
		if err := store.append(ctx, e); err != nil {
			l.log.Warn("firing log persistence failed",
				logx.String("event", e.Event), logx.Err(err))
		}
	}
	return e
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.ring) {
		n = len(l.ring)
	}
	out := make([]Entry, 0, n)
	for i := len(l.ring) - 1; i >= len(l.ring)-n; i-- {
		out = append(out, l.ring[i])
	}
	return out
}

// Subscribe registers a live feed of appended entries. The returned cancel
// func closes the channel; calling it more than once is harmless.
func (l *Log) Subscribe(buffer int) (<-chan Entry, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Entry, buffer)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		_, ok := l.subs[ch]
		delete(l.subs, ch)
		l.mu.Unlock()
		if ok { // Close may have detached us already
			close(ch)
		}
	}
	return ch, cancel
}

// Close releases the persistent backend and detaches subscribers.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	store := l.store
	l.store = nil
	for ch := range l.subs {
		delete(l.subs, ch)
		close(ch)
	}
	l.mu.Unlock()

	if store != nil {
		return store.close()
	}
	return nil
}
