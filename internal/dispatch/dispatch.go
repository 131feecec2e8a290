// Package dispatch turns a due event into a tool invocation and exactly one
// firing log entry. Failures of any kind (missing reference file, unknown
// tool, tool error, tool panic) become ERROR entries; they never escape to
// the scheduler loop.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/event"
	"github.com/HadjievK/event-driven-agent/internal/firelog"
	"github.com/HadjievK/event-driven-agent/internal/tools"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

type Dispatcher struct {
	tools *tools.Registry
	flog  *firelog.Log
	log   logx.Logger
	clock event.Clock

	// Timeout bounds a single tool invocation; 0 means no deadline.
	Timeout time.Duration
}

func New(reg *tools.Registry, flog *firelog.Log, log logx.Logger, clock event.Clock) *Dispatcher {
	if clock == nil {
		clock = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{tools: reg, flog: flog, log: log, clock: clock}
}

// Dispatch resolves the event's action parameters, invokes the tool, and
// appends exactly one entry to the firing log. The returned entry mirrors
// what was logged.
func (d *Dispatcher) Dispatch(ctx context.Context, def event.Definition, manual bool) firelog.Entry {
	entry := firelog.Entry{
		Event:  def.Name,
		At:     d.clock(),
		Tool:   def.Action.Tool,
		Manual: manual,
	}

	params, err := resolveParams(def)
	if err != nil {
		return d.fail(ctx, entry, err)
	}

	tool, err := d.tools.Get(def.Action.Tool)
	if err != nil {
		return d.fail(ctx, entry, err)
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	res, err := execute(ctx, tool, params)
	if err != nil {
		return d.fail(ctx, entry, err)
	}

	entry.Status = firelog.StatusSent
	entry.MessageID = res.MessageID
	entry.Recipients = res.Recipients
	entry.Detail = res.Detail
	entry = d.flog.Append(ctx, entry)
	d.log.Info("event fired",
		logx.String("event", def.Name),
		logx.String("tool", def.Action.Tool),
		logx.Bool("manual", manual))
	return entry
}

func (d *Dispatcher) fail(ctx context.Context, entry firelog.Entry, err error) firelog.Entry {
	entry.Status = firelog.StatusError
	entry.Detail = err.Error()
	entry = d.flog.Append(ctx, entry)
	d.log.Error("dispatch failed",
		logx.String("event", entry.Event),
		logx.String("tool", entry.Tool),
		logx.Err(err))
	return entry
}

// execute invokes the tool with a panic guard. A misbehaving tool costs an
// ERROR entry, not the process.
func execute(ctx context.Context, tool tools.Tool, params map[string]string) (res tools.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, params)
}

// resolveParams materializes the action parameters: literals pass through,
// file references are read from inside the event directory. Recipient lists
// (.txt) are filtered of blanks and comment lines before handing them to
// the tool.
func resolveParams(def event.Definition) (map[string]string, error) {
	out := make(map[string]string, len(def.Action.Params))
	for key, p := range def.Action.Params {
		switch p.Kind {
		case event.ParamFileRef:
			path := filepath.Join(def.Dir, p.Value)
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("param %s: reference %s: %w", key, p.Value, err)
			}
			text := string(b)
			if strings.EqualFold(filepath.Ext(p.Value), ".txt") {
				text = strings.Join(event.ParseRecipients(text), "\n")
			}
			out[key] = text
		default:
			out[key] = p.Value
		}
	}
	return out, nil
}
