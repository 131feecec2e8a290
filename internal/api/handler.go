// Package api is the local HTTP control surface of the daemon: a command
// endpoint plus read-only views of the registry and the firing log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/internal/firelog"
	"github.com/HadjievK/event-driven-agent/internal/registry"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

const DefaultFirelogLimit = 50

// Engine is the part of the scheduler loop the API needs.
type Engine interface {
	FireOnce(ctx context.Context, name string) (firelog.Entry, error)
}

// Firelog is the read side of the firing log.
type Firelog interface {
	Recent(n int) []firelog.Entry
}

type Handler struct {
	reg    *registry.Registry
	engine Engine
	flog   Firelog
	log    logx.Logger
}

func NewHandler(reg *registry.Registry, engine Engine, flog Firelog, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{reg: reg, engine: engine, flog: flog, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case r.URL.Path == "/v1/commands" && r.Method == http.MethodPost:
		h.command(w, r)

	case r.URL.Path == "/v1/events" && r.Method == http.MethodGet:
		h.listEvents(w, r)

	case r.URL.Path == "/v1/firelog" && r.Method == http.MethodGet:
		h.listFirelog(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// CommandRequest is the body of POST /v1/commands.
type CommandRequest struct {
	Action string `json:"action"` // activate|deactivate|fire|create|delete
	Name   string `json:"name"`

	// Create-only fields.
	Description string            `json:"description,omitempty"`
	Schedule    string            `json:"schedule,omitempty"`
	Tool        string            `json:"tool,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	Active      bool              `json:"active,omitempty"`
}

type CommandResponse struct {
	OK     bool           `json:"ok"`
	Error  string         `json:"error,omitempty"`
	Firing *firelog.Entry `json:"firing,omitempty"`
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var (
		err    error
		firing *firelog.Entry
	)
	switch req.Action {
	case "activate":
		err = h.reg.Activate(req.Name)
	case "deactivate":
		err = h.reg.Deactivate(req.Name)
	case "fire":
		var entry firelog.Entry
		entry, err = h.engine.FireOnce(r.Context(), req.Name)
		if err == nil {
			firing = &entry
		}
	case "create":
		_, err = h.reg.CreateOnDisk(registry.CreateRequest{
			Name:        req.Name,
			Description: req.Description,
			Schedule:    req.Schedule,
			Tool:        req.Tool,
			Params:      req.Params,
			Active:      req.Active,
		})
	case "delete":
		err = h.reg.Delete(req.Name)
	default:
		writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		return
	}

	if err != nil {
		writeJSON(w, commandStatus(err), CommandResponse{Error: err.Error()})
		return
	}
	h.log.Info("command applied", logx.String("action", req.Action), logx.String("event", req.Name))
	writeJSON(w, http.StatusOK, CommandResponse{OK: true, Firing: firing})
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrInFlight), errors.Is(err, registry.ErrEventExists):
		return http.StatusConflict
	case errors.Is(err, event.ErrInvalidDefinition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// EventView is the wire form of one registry snapshot.
type EventView struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Schedule    string     `json:"schedule"`
	Tool        string     `json:"tool"`
	State       string     `json:"state"`
	InFlight    bool       `json:"in_flight,omitempty"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
	NextFireAt  *time.Time `json:"next_fire_at,omitempty"`
}

func (h *Handler) listEvents(w http.ResponseWriter, _ *http.Request) {
	snaps := h.reg.List()
	out := make([]EventView, 0, len(snaps))
	for _, s := range snaps {
		v := EventView{
			Name:        s.Def.Name,
			Description: s.Def.Description,
			Schedule:    s.Def.ScheduleText,
			Tool:        s.Def.Action.Tool,
			State:       string(s.State),
			InFlight:    s.InFlight,
		}
		if !s.LastFiredAt.IsZero() {
			t := s.LastFiredAt
			v.LastFiredAt = &t
		}
		if !s.NextFireAt.IsZero() {
			t := s.NextFireAt
			v.NextFireAt = &t
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listFirelog(w http.ResponseWriter, r *http.Request) {
	limit := DefaultFirelogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries := h.flog.Recent(limit)
	if entries == nil {
		entries = []firelog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
