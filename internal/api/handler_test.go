package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/internal/firelog"
	"github.com/HadjievK/event-driven-agent/internal/registry"
	"github.com/HadjievK/event-driven-agent/internal/schedule"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

var apiNow = time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

type fakeEngine struct {
	fired []string
	err   error
}

func (f *fakeEngine) FireOnce(ctx context.Context, name string) (firelog.Entry, error) {
	if f.err != nil {
		return firelog.Entry{}, f.err
	}
	f.fired = append(f.fired, name)
	return firelog.Entry{ID: "f1", Event: name, Status: firelog.StatusSent, Manual: true}, nil
}

type fakeFirelog struct {
	entries []firelog.Entry
}

func (f *fakeFirelog) Recent(n int) []firelog.Entry {
	if n > 0 && n < len(f.entries) {
		return f.entries[:n]
	}
	return f.entries
}

func newTestHandler(t *testing.T) (*Handler, *registry.Registry, *fakeEngine, *fakeFirelog) {
	t.Helper()
	reg := registry.New(t.TempDir(), time.UTC, func() time.Time { return apiNow }, logx.Nop())
	eng := &fakeEngine{}
	flog := &fakeFirelog{}
	return NewHandler(reg, eng, flog, logx.Nop()), reg, eng, flog
}

func addEvent(t *testing.T, reg *registry.Registry, name string) {
	t.Helper()
	rule, err := schedule.Parse("every 5 minutes")
	if err != nil {
		t.Fatal(err)
	}
	def := event.Definition{
		Name:         name,
		ScheduleText: "every 5 minutes",
		Rule:         rule,
		Action:       event.Action{Tool: "log_message"},
	}
	if err := reg.Create(def); err != nil {
		t.Fatal(err)
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCommandActivateDeactivate(t *testing.T) {
	t.Parallel()
	h, reg, _, _ := newTestHandler(t)
	addEvent(t, reg, "demo")

	rec := doJSON(t, h, http.MethodPost, "/v1/commands", `{"action":"activate","name":"demo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	snap, _ := reg.Get("demo")
	if snap.State != event.StateActive {
		t.Fatalf("state = %v", snap.State)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/commands", `{"action":"deactivate","name":"demo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	snap, _ = reg.Get("demo")
	if snap.State != event.StateInactive {
		t.Fatalf("state = %v", snap.State)
	}
}

func TestCommandFire(t *testing.T) {
	t.Parallel()
	h, reg, eng, _ := newTestHandler(t)
	addEvent(t, reg, "demo")

	rec := doJSON(t, h, http.MethodPost, "/v1/commands", `{"action":"fire","name":"demo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	var resp CommandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Firing == nil || resp.Firing.Event != "demo" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(eng.fired) != 1 || eng.fired[0] != "demo" {
		t.Fatalf("fired = %v", eng.fired)
	}
}

func TestCommandErrorsMapToStatus(t *testing.T) {
	t.Parallel()
	h, reg, eng, _ := newTestHandler(t)
	addEvent(t, reg, "demo")

	cases := []struct {
		name string
		body string
		code int
	}{
		{"unknown event", `{"action":"activate","name":"ghost"}`, http.StatusNotFound},
		{"unknown action", `{"action":"explode","name":"demo"}`, http.StatusBadRequest},
		{"missing name", `{"action":"activate"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"bad create schedule", `{"action":"create","name":"x","schedule":"whenever","tool":"log_message"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/v1/commands", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("code = %d, want %d, body = %s", rec.Code, tc.code, rec.Body)
			}
		})
	}

	eng.err = registry.ErrInFlight
	rec := doJSON(t, h, http.MethodPost, "/v1/commands", `{"action":"fire","name":"demo"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-flight fire code = %d", rec.Code)
	}
}

func TestCommandCreateAndDelete(t *testing.T) {
	t.Parallel()
	h, reg, _, _ := newTestHandler(t)

	body := `{"action":"create","name":"pinger","schedule":"every 10 minutes","tool":"log_message","params":{"message":"ping"}}`
	rec := doJSON(t, h, http.MethodPost, "/v1/commands", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	if _, err := reg.Get("pinger"); err != nil {
		t.Fatal(err)
	}

	// duplicate create conflicts
	rec = doJSON(t, h, http.MethodPost, "/v1/commands", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create code = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/commands", `{"action":"delete","name":"pinger"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete code = %d", rec.Code)
	}
}

func TestListEvents(t *testing.T) {
	t.Parallel()
	h, reg, _, _ := newTestHandler(t)
	addEvent(t, reg, "b-event")
	addEvent(t, reg, "a-event")
	if err := reg.Activate("a-event"); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/events", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var views []EventView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].Name != "a-event" || views[1].Name != "b-event" {
		t.Fatalf("views = %+v", views)
	}
	if views[0].State != "active" || views[0].NextFireAt == nil {
		t.Fatalf("active view = %+v", views[0])
	}
	if views[1].NextFireAt != nil {
		t.Fatalf("inactive view has next fire: %+v", views[1])
	}
}

func TestListFirelog(t *testing.T) {
	t.Parallel()
	h, _, _, flog := newTestHandler(t)
	flog.entries = []firelog.Entry{
		{ID: "2", Event: "b", Status: firelog.StatusError},
		{ID: "1", Event: "a", Status: firelog.StatusSent},
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/firelog?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var entries []firelog.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "2" {
		t.Fatalf("entries = %+v", entries)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/firelog?limit=x", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit code = %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	h, _, _, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}
