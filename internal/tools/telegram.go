package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

// TelegramConfig configures the telegram_send tool.
type TelegramConfig struct {
	Token  string
	ChatID int64 // default chat; a "chat_id" param overrides it
}

// Telegram delivers a text message to a Telegram chat. Params:
//
//	message — text to send (required)
//	chat_id — numeric chat override (optional)
type Telegram struct {
	bot *tele.Bot
	cfg TelegramConfig
	log logx.Logger
}

func NewTelegram(cfg TelegramConfig, log logx.Logger) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	// Send-only: no poller, updates are never consumed.
	b, err := tele.NewBot(tele.Settings{
		Token:       cfg.Token,
		Synchronous: true,
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, cfg: cfg, log: log}, nil
}

func (t *Telegram) Name() string { return "telegram_send" }

func (t *Telegram) Execute(ctx context.Context, params map[string]string) (Result, error) {
	text := strings.TrimSpace(params["message"])
	if text == "" {
		text = strings.TrimSpace(params["body"])
	}
	if text == "" {
		return Result{}, errors.New("telegram_send: message is required")
	}

	chatID := t.cfg.ChatID
	if raw := strings.TrimSpace(params["chat_id"]); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Result{}, fmt.Errorf("telegram_send: bad chat_id %q: %w", raw, err)
		}
		chatID = id
	}
	if chatID == 0 {
		return Result{}, errors.New("telegram_send: no chat configured")
	}

	msg, err := t.bot.Send(tele.ChatID(chatID), text)
	if err != nil {
		return Result{}, fmt.Errorf("telegram_send: %w", err)
	}
	t.log.Debug("telegram message sent",
		logx.Int64("chat_id", chatID), logx.Int("message_id", msg.ID))
	return Result{
		MessageID:  strconv.Itoa(msg.ID),
		Recipients: 1,
		Detail:     fmt.Sprintf("sent to chat %d", chatID),
	}, nil
}
