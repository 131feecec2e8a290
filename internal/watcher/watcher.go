// Package watcher keeps the registry in sync with the events directory.
// Every edit under the events root schedules a debounced reload, so a
// half-written EVENT.md save settles before it is parsed.
package watcher

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

const debounceDelay = 250 * time.Millisecond

// Reloader is the part of the registry the watcher needs.
type Reloader interface {
	Reload() error
}

type Watcher struct {
	root string
	reg  Reloader
	log  logx.Logger
}

func New(root string, reg Reloader, log logx.Logger) *Watcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{root: root, reg: reg, log: log}
}

// Watch blocks until ctx is done. When fsnotify gets into a bad state the
// watcher is recreated with a small jittered exponential backoff.
func (w *Watcher) Watch(ctx context.Context) error {
	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func(fw *fsnotify.Watcher) {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		w.log.Debug("events change detected; scheduling reload", logx.String("root", w.root))
		timer = time.AfterFunc(debounceDelay, func() {
			if err := w.reg.Reload(); err != nil {
				w.log.Warn("reload failed", logx.Err(err))
				return
			}
			// New event directories need their own watch entries.
			w.addEventDirs(fw)
		})
	}

	sleep := func(d time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}
	nextBackoff := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.log.Warn("events watch init failed", logx.Err(err))
			if !sleep(nextBackoff()) {
				return nil
			}
			continue
		}
		if err := fw.Add(w.root); err != nil {
			_ = fw.Close()
			w.log.Warn("events watch add failed", logx.Err(err), logx.String("root", w.root))
			if !sleep(nextBackoff()) {
				return nil
			}
			continue
		}
		w.addEventDirs(fw)

		backoff = restartBackoffBase
		w.log.Debug("events watcher started", logx.String("root", w.root))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					debounce(fw)
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				// Overflow means we may have missed events; reload once and
				// keep going.
				if strings.Contains(strings.ToLower(err.Error()), "overflow") {
					w.log.Warn("events watch overflow; forcing reload", logx.Err(err))
					debounce(fw)
					continue
				}
				w.log.Warn("events watch error", logx.Err(err))
				if strings.Contains(strings.ToLower(err.Error()), "closed") {
					broken = true
					break
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		wait := nextBackoff()
		w.log.Warn("events watcher stopped; restarting", logx.Duration("backoff", wait))
		if !sleep(wait) {
			return nil
		}
	}
}

// addEventDirs registers every event subdirectory. fsnotify does not watch
// recursively, and an EVENT.md edit only raises events on its own directory.
func (w *Watcher) addEventDirs(fw *fsnotify.Watcher) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.log.Warn("events root unreadable", logx.Err(err))
		return
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		// Add is idempotent for already-watched paths.
		if err := fw.Add(filepath.Join(w.root, e.Name())); err != nil {
			w.log.Debug("watch add failed", logx.String("dir", e.Name()), logx.Err(err))
		}
	}
}
