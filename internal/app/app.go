// Package app wires the daemon together: config, logging, firing log,
// tools, registry, scheduler loop, directory watcher, and the control API.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/HadjievK/event-driven-agent/internal/api"
	"github.com/HadjievK/event-driven-agent/internal/config"
	"github.com/HadjievK/event-driven-agent/internal/dispatch"
	"github.com/HadjievK/event-driven-agent/internal/engine"
	"github.com/HadjievK/event-driven-agent/internal/firelog"
	"github.com/HadjievK/event-driven-agent/internal/registry"
	"github.com/HadjievK/event-driven-agent/internal/tools"
	"github.com/HadjievK/event-driven-agent/internal/watcher"
	"github.com/HadjievK/event-driven-agent/pkg/logx"
)

const defaultAPIAddr = "127.0.0.1:8527"

type App struct {
	cfg *config.Config
	log logx.Logger
	svc *logx.Service

	flog  *firelog.Log
	reg   *registry.Registry
	loop  *engine.Loop
	watch *watcher.Watcher
	srv   *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	svc, root := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File != "",
			Path:    cfg.Logging.File,
		},
	})
	named := func(name string) logx.Logger {
		return root.With(logx.String("svc", name))
	}
	log := named("aepd")

	flog, err := firelog.Open(firelog.Config{
		Driver:      cfg.Firelog.Driver,
		Path:        cfg.Firelog.Path,
		HistorySize: cfg.Firelog.HistorySize,
		BusyTimeout: mustDuration(cfg.Firelog.BusyTimeout),
	}, named("firelog"))
	if err != nil {
		return nil, err
	}

	toolReg, err := buildTools(cfg, named)
	if err != nil {
		_ = flog.Close()
		return nil, err
	}

	reg := registry.New(cfg.EventsDir, cfg.Location(), time.Now, named("registry"))
	disp := dispatch.New(toolReg, flog, named("dispatch"), time.Now)
	loop := engine.New(reg, disp, cfg.TickDuration(), time.Now, named("engine"))
	watch := watcher.New(cfg.EventsDir, reg, named("watcher"))

	a := &App{
		cfg:   cfg,
		log:   log,
		svc:   svc,
		flog:  flog,
		reg:   reg,
		loop:  loop,
		watch: watch,
	}

	if cfg.API != nil && cfg.API.Enabled {
		addr := cfg.API.Addr
		if addr == "" {
			addr = defaultAPIAddr
		}
		a.srv = &http.Server{
			Addr:         addr,
			Handler:      api.NewHandler(reg, loop, flog, named("api")),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}
	return a, nil
}

func buildTools(cfg *config.Config, named func(string) logx.Logger) (*tools.Registry, error) {
	list := []tools.Tool{tools.NewLogMessage(named("tool.log"))}

	if cfg.Mail != nil {
		mail, err := tools.NewMail(tools.MailConfig{
			Host:          cfg.Mail.Host,
			Port:          cfg.Mail.Port,
			Username:      cfg.Mail.Username,
			Password:      cfg.Mail.Password,
			From:          cfg.Mail.From,
			UseSSL:        cfg.Mail.UseSSL,
			Timeout:       mustDuration(cfg.Mail.Timeout),
			RatePerMinute: cfg.Mail.RatePerMinute,
		}, named("tool.mail"))
		if err != nil {
			return nil, err
		}
		list = append(list, mail)
	}
	if cfg.Telegram != nil {
		tg, err := tools.NewTelegram(tools.TelegramConfig{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, named("tool.telegram"))
		if err != nil {
			return nil, err
		}
		list = append(list, tg)
	}
	return tools.NewRegistry(list...)
}

// Start loads the registry and launches the scheduler, the events watcher,
// and the API server.
func (a *App) Start(ctx context.Context) error {
	if err := a.reg.Load(); err != nil {
		return err
	}

	ctx, a.cancel = context.WithCancel(ctx)

	a.loop.Start(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.watch.Watch(ctx)
	}()

	if a.srv != nil {
		ln, err := net.Listen("tcp", a.srv.Addr)
		if err != nil {
			a.cancel()
			a.loop.Stop()
			return err
		}
		a.log.Info("api listening", logx.String("addr", ln.Addr().String()))
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("api server failed", logx.Err(err))
			}
		}()
	}

	a.log.Info("started",
		logx.String("events_dir", a.cfg.EventsDir),
		logx.Duration("tick", a.cfg.TickDuration()),
		logx.Int("events", len(a.reg.List())))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	return nil
}

// Stop shuts the daemon down: scheduler first so no new dispatches start,
// then the API server and watcher, finally the firing log.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.loop.Stop()
	if a.cancel != nil {
		a.cancel()
	}
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(sctx)
	}
	a.wg.Wait()

	err := a.flog.Close()
	a.log.Info("stopped")
	_ = a.svc.Close()
	return err
}

// mustDuration parses a duration the config layer has already validated.
func mustDuration(raw string) time.Duration {
	d, err := config.ParseDurationField("", raw)
	if err != nil {
		return 0
	}
	return d
}
