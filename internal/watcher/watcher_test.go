package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

type countingReloader struct {
	calls atomic.Int64
}

func (c *countingReloader) Reload() error {
	c.calls.Add(1)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWatchTriggersReload(t *testing.T) {
	root := t.TempDir()
	rel := &countingReloader{}
	w := New(root, rel, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()

	// Give the watcher a moment to install its watches.
	time.Sleep(200 * time.Millisecond)

	dir := filepath.Join(root, "new-event")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "EVENT.md"), []byte("---\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return rel.calls.Load() >= 1 })

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRapidEditsDebounceToFewReloads(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "evt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	rel := &countingReloader{}
	w := New(root, rel, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx) }()
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(dir, "EVENT.md")
	for i := 0; i < 10; i++ {
		if err := os.WriteFile(path, []byte("---\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, func() bool { return rel.calls.Load() >= 1 })
	// Let any stragglers land, then check the burst collapsed.
	time.Sleep(2 * debounceDelay)
	if n := rel.calls.Load(); n > 3 {
		t.Fatalf("debounce ineffective: %d reloads for one burst", n)
	}
}
