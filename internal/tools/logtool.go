package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

// LogMessage writes a message to the service log. Params:
//
//	message — text to log (required)
//	level   — debug|info|warn|error, default info
type LogMessage struct {
	log logx.Logger
}

func NewLogMessage(log logx.Logger) *LogMessage {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogMessage{log: log}
}

func (t *LogMessage) Name() string { return "log_message" }

func (t *LogMessage) Execute(ctx context.Context, params map[string]string) (Result, error) {
	_ = ctx
	msg := strings.TrimSpace(params["message"])
	if msg == "" {
		return Result{}, errors.New("log_message: message is required")
	}
	switch strings.ToLower(strings.TrimSpace(params["level"])) {
	case "debug":
		t.log.Debug(msg)
	case "warn", "warning":
		t.log.Warn(msg)
	case "error":
		t.log.Error(msg)
	default:
		t.log.Info(msg)
	}
	return Result{Detail: msg}, nil
}
