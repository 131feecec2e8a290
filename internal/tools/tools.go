// Package tools holds the action tools an event can invoke. The set of
// tools is fixed at startup; the dispatcher looks them up by name.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownTool = errors.New("unknown tool")

// Result is what a tool reports back on success. Fields a tool has no
// value for stay zero.
type Result struct {
	MessageID  string
	Recipients int
	Detail     string
}

// Tool executes one action kind. Implementations must be safe for
// concurrent use; the engine may run dispatches for different events in
// parallel.
type Tool interface {
	Name() string
	Execute(ctx context.Context, params map[string]string) (Result, error)
}

// Registry is an immutable name-to-tool table built once at startup.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if t == nil || t.Name() == "" {
			return nil, errors.New("tool with empty name")
		}
		if _, dup := m[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool: %s", t.Name())
		}
		m[t.Name()] = t
	}
	return &Registry{tools: m}, nil
}

func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for n := range r.tools {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
