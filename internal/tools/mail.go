package tools

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

// MailConfig configures the mail_send tool.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseSSL   bool          // implicit TLS (port 465 style)
	Timeout  time.Duration // dial timeout; 0 means 15s

	// RatePerMinute caps outgoing mail; 0 disables the limiter.
	RatePerMinute int
}

func (c MailConfig) validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("mail host is required")
	}
	if c.Port <= 0 {
		return errors.New("mail port is required")
	}
	if strings.TrimSpace(c.From) == "" {
		return errors.New("mail from address is required")
	}
	return nil
}

// Mail sends plain-text email over SMTP. Params:
//
//	to      — recipient addresses, one per line (required)
//	subject — message subject (required)
//	body    — message body
type Mail struct {
	cfg     MailConfig
	limiter *rate.Limiter
	log     logx.Logger
}

func NewMail(cfg MailConfig, log logx.Logger) (*Mail, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), cfg.RatePerMinute)
	}
	return &Mail{cfg: cfg, limiter: limiter, log: log}, nil
}

func (m *Mail) Name() string { return "mail_send" }

func (m *Mail) Execute(ctx context.Context, params map[string]string) (Result, error) {
	recipients := splitRecipients(params["to"])
	if len(recipients) == 0 {
		return Result{}, errors.New("mail_send: no recipients")
	}
	subject := strings.TrimSpace(params["subject"])
	if subject == "" {
		return Result{}, errors.New("mail_send: subject is required")
	}
	body := params["body"]

	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("mail_send: rate limit: %w", err)
		}
	}

	messageID := fmt.Sprintf("<%s@aepd>", uuid.NewString())
	msg := buildMessage(m.cfg.From, recipients, subject, body, messageID)

	if err := m.send(ctx, recipients, msg); err != nil {
		return Result{}, err
	}
	m.log.Info("mail sent",
		logx.String("message_id", messageID),
		logx.Int("recipients", len(recipients)))
	return Result{
		MessageID:  messageID,
		Recipients: len(recipients),
		Detail:     fmt.Sprintf("sent to %d recipient(s)", len(recipients)),
	}, nil
}

func (m *Mail) send(ctx context.Context, recipients []string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}

	var conn net.Conn
	var err error
	if m.cfg.UseSSL {
		tlsCfg := &tls.Config{ServerName: m.cfg.Host}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp client failed: %w", err)
	}
	defer func() { _ = c.Quit() }()

	if !m.cfg.UseSSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls failed: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s failed: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close failed: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body, messageID string) []byte {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	if strings.TrimSpace(body) == "" {
		body = "(empty)"
	}

	headers := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: 8bit",
		"Date: " + time.Now().Format(time.RFC1123Z),
	}
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n")
}

// splitRecipients splits a newline-separated address list, ignoring blanks
// and comment lines.
func splitRecipients(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
