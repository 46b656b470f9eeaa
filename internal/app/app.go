// Package app assembles the daemon: config, logging, the platform driver, the
// coordinator and its collaborators, and the inbound HTTP receiver.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"pushgate/internal/broadcast"
	"pushgate/internal/config"
	"pushgate/internal/coordinator"
	"pushgate/internal/journal"
	"pushgate/internal/lifecycle"
	"pushgate/internal/platform"
	"pushgate/internal/presenter"
	"pushgate/internal/runtime/supervisor"
	"pushgate/internal/session"
	transporthttp "pushgate/internal/transport/http"
	"pushgate/internal/transport/telegram"
	"pushgate/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	registry platform.Registry
	janitor  *platform.Janitor
	hub      *session.Hub
	pres     *presenter.Service
	coord    *coordinator.Service
	jrnl     journal.Journal
	httpSrv  *transporthttp.Server
}

func New(cfgPath, envFile string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	creds, err := config.LoadCredentials(envFile)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	registry, err := buildRegistry(cfg.Platform, log)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	var jrnl journal.Journal
	if cfg.Journal != nil {
		busy, derr := config.ParseDurationOrDefault("journal.busy_timeout", cfg.Journal.BusyTimeout, 0)
		if derr != nil {
			logSvc.Close()
			return nil, derr
		}
		jrnl, err = journal.Open(journal.Config{
			Driver:      cfg.Journal.Driver,
			Path:        cfg.Journal.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "journal")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
	}

	bus := broadcast.New()
	hub := session.NewHub(log.With(logx.String("comp", "sessions")))
	pres := presenter.New(presenter.Config{
		RatePerSec:  cfg.Presenter.RatePerSec,
		HistorySize: cfg.Presenter.HistorySize,
	}, registry, bus, log.With(logx.String("comp", "presenter")))
	closer := lifecycle.NewCloser(registry, log.With(logx.String("comp", "closer")))
	router := session.NewRouter(hub, log.With(logx.String("comp", "router")))

	coord := coordinator.New(coordinator.Config{
		ShownGraceMs: cfg.Coordinator.ShownGrace(),
	}, creds, pres, closer, router, jrnl, log)

	httpCfg, err := httpConfig(cfg.HTTP)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	httpSrv := transporthttp.NewServer(httpCfg, coord, registry, pres, log.With(logx.String("comp", "http")))

	var jan *platform.Janitor
	if p, ok := registry.(platform.Prunable); ok {
		jan = platform.NewJanitor(p, cfg.Platform.JanitorSpec, log.With(logx.String("comp", "janitor")))
	}

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		registry: registry,
		janitor:  jan,
		hub:      hub,
		pres:     pres,
		coord:    coord,
		jrnl:     jrnl,
		httpSrv:  httpSrv,
	}, nil
}

func buildRegistry(cfg config.PlatformConfig, log logx.Logger) (platform.Registry, error) {
	switch cfg.Driver {
	case "", "memory":
		return platform.NewMemoryRegistry(), nil
	case "telegram":
		if cfg.Telegram == nil {
			return nil, fmt.Errorf("platform.telegram config is required for the telegram driver")
		}
		return telegram.New(telegram.Config{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, log.With(logx.String("comp", "telegram")))
	default:
		return nil, fmt.Errorf("unknown platform driver: %q", cfg.Driver)
	}
}

func httpConfig(cfg config.HTTPConfig) (transporthttp.Config, error) {
	read, err := config.ParseDurationOrDefault("http.read_timeout", cfg.ReadTimeout, 10*time.Second)
	if err != nil {
		return transporthttp.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("http.write_timeout", cfg.WriteTimeout, 10*time.Second)
	if err != nil {
		return transporthttp.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("http.idle_timeout", cfg.IdleTimeout, time.Minute)
	if err != nil {
		return transporthttp.Config{}, err
	}
	return transporthttp.Config{
		Addr:         cfg.Addr,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}, nil
}

// Hub exposes the session hub so hosts can connect foreground sessions.
func (a *App) Hub() *session.Hub { return a.hub }

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	// Transactional hot reload: a config revision that fails validation is
	// never committed or published.
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		if _, err := httpConfig(cfg.HTTP); err != nil {
			return err
		}
		if cfg.Presenter.RatePerSec < 0 {
			return fmt.Errorf("presenter.rate_per_sec must be >= 0")
		}
		switch cfg.Platform.Driver {
		case "", "memory", "telegram":
		default:
			return fmt.Errorf("unknown platform driver: %q", cfg.Platform.Driver)
		}
		return nil
	})

	if err := a.coord.Start(a.sup.Context()); err != nil {
		return err
	}
	if a.janitor != nil {
		if err := a.janitor.Start(a.sup.Context()); err != nil {
			return err
		}
	}
	if err := a.httpSrv.Start(a.sup.Context()); err != nil {
		return err
	}

	// Hot reload: logging and presenter settings apply live; the platform
	// driver and the listen address need a restart.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.pres.Apply(presenter.Config{
					RatePerSec:  cfg.Presenter.RatePerSec,
					HistorySize: cfg.Presenter.HistorySize,
				})
				a.log.Info("config reloaded")
			}
		}
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	// Under systemd Type=notify this flips the unit to active; elsewhere it
	// is a silent no-op.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify failed", logx.Err(err))
	}

	a.log.Info("started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.log.Info("stopping")

	// Receiver first so no new events arrive while handlers drain.
	step(ctx, 2*time.Second, func(c context.Context) { a.httpSrv.Stop(c) })
	step(ctx, 3*time.Second, func(c context.Context) { a.coord.Stop(c) })
	if a.janitor != nil {
		step(ctx, time.Second, func(c context.Context) { a.janitor.Stop(c) })
	}

	a.sup.Cancel()
	step(ctx, 2*time.Second, func(c context.Context) { _ = a.sup.Wait(c) })

	if a.jrnl != nil {
		if err := a.jrnl.Close(); err != nil {
			a.log.Warn("journal close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

// step bounds one shutdown stage so a stuck component cannot stall the rest.
func step(ctx context.Context, max time.Duration, fn func(context.Context)) {
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < max {
			max = rem
		}
	}
	c, cancel := context.WithTimeout(ctx, max)
	defer cancel()
	fn(c)
}
