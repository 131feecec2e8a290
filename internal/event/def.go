// Package event defines scheduled event definitions and their on-disk
// EVENT.md format.
//
// An event lives in its own directory under the events root:
//
//	events/
//	  send-team-mail/
//	    EVENT.md            frontmatter + free-form description
//	    references/         recipient lists, message templates
//
// The EVENT.md frontmatter carries name, description, type, schedule text,
// the initial activation flag, and the action descriptor (tool name plus a
// parameter map whose values are literals or file references).
package event

import (
	"errors"
	"time"

	"github.com/HadjievK/event-driven-agent/internal/schedule"
)

// ErrInvalidDefinition marks a definition rejected at load/create time.
var ErrInvalidDefinition = errors.New("invalid event definition")

// ParamKind distinguishes literal parameter values from file references.
type ParamKind int

const (
	ParamLiteral ParamKind = iota
	ParamFileRef
)

// Param is a single action parameter value.
//
// For ParamLiteral, Value is the text itself. For ParamFileRef, Value is a
// path relative to the event directory; the dispatcher reads it at fire time
// so edits between fires are picked up.
type Param struct {
	Kind  ParamKind
	Value string
}

// Action names the tool to invoke and its parameters.
type Action struct {
	Tool   string
	Params map[string]Param
}

// Definition is a parsed event definition.
//
// Runtime state (activation, lastFiredAt, nextFireAt) lives in the registry,
// not here; Active only records the frontmatter's initial flag.
type Definition struct {
	Name         string
	Description  string
	ScheduleText string
	Rule         schedule.Rule
	Active       bool
	Action       Action

	// Dir is the event's own directory; file references resolve inside it.
	Dir string
}

// State is an event's activation state in the registry.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive"
)

// Clock is the injectable time source used across the engine.
type Clock func() time.Time
