package config

// Config is the top-level daemon configuration (aepd.yaml).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	// EventsDir is the root directory holding one subdirectory per event.
	EventsDir string `json:"events_dir"`

	// Timezone for evaluating timed schedules, e.g. "Europe/Berlin".
	// Empty means the host local time.
	Timezone string `json:"timezone,omitempty"`

	// Tick is the scheduler evaluation period. Default "1s".
	Tick string `json:"tick,omitempty"`

	Logging LoggingConfig `json:"logging"`
	Firelog FirelogConfig `json:"firelog,omitempty"`

	Mail     *MailConfig     `json:"mail,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`

	API *APIConfig `json:"api,omitempty"`
}

type LoggingConfig struct {
	Level   string `json:"level,omitempty"` // debug|info|warn|error, default info
	Console bool   `json:"console,omitempty"`
	File    string `json:"file,omitempty"`
}

// FirelogConfig controls the firing log persistence.
//
// Example:
//
//	"firelog": { "driver": "sqlite", "path": "./aepd.db" }
type FirelogConfig struct {
	Driver      string `json:"driver,omitempty"` // none|file|sqlite
	Path        string `json:"path,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// MailConfig enables the mail_send tool.
type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"` // do not log
	From     string `json:"from"`
	UseSSL   bool   `json:"use_ssl,omitempty"`
	Timeout  string `json:"timeout,omitempty"`

	// RatePerMinute caps outgoing mail; 0 disables the limiter.
	RatePerMinute int `json:"rate_per_minute,omitempty"`
}

// TelegramConfig enables the telegram_send tool.
type TelegramConfig struct {
	Token  string `json:"token"` // do not log
	ChatID int64  `json:"chat_id,omitempty"`
}

// APIConfig controls the local HTTP control surface.
//
// Prefer binding to localhost; the API carries no authentication.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8527"
}
