package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notifnuke/internal/activity"
	"notifnuke/internal/autoclear"
	"notifnuke/internal/config"
	"notifnuke/internal/eventbus"
	"notifnuke/internal/gate"
	"notifnuke/internal/loginitem"
	"notifnuke/internal/mainloop"
	"notifnuke/internal/monitor"
	"notifnuke/internal/runtime/supervisor"
	"notifnuke/internal/source"
	"notifnuke/internal/storage"
	"notifnuke/internal/surface/statusfile"
	"notifnuke/internal/surface/telegram"
	logx "notifnuke/pkg/logx"
)

const (
	loopQueueSize      = 64
	reconcileTimeout   = 10 * time.Second
	telegramCmdTimeout = 15 * time.Second
)

// App owns every long-lived component of the daemon.
type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	base logx.Logger // no comp field; components add their own
	log  logx.Logger
	logs *logx.Service

	bus   eventbus.Bus
	store storage.Store

	loop   *mainloop.Loop
	mon    *monitor.Monitor
	gate   *gate.Gate
	login  *loginitem.Manager
	status *statusfile.Writer
	auto   *autoclear.Scheduler

	bot  *telegram.Bot
	push *telegram.Pusher
}

// Option overrides a component NewApp would otherwise build from config.
type Option func(*options)

type options struct {
	src monitor.Source
	reg loginitem.Registrar
}

// WithSource replaces the configured notification source.
func WithSource(src monitor.Source) Option { return func(o *options) { o.src = src } }

// WithRegistrar replaces the systemd login item registrar.
func WithRegistrar(reg loginitem.Registrar) Option { return func(o *options) { o.reg = reg } }

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	logSvc, base := logx.New(mapLogConfig(cfg))
	log := base.With(logx.String("comp", "app"))

	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, base.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage ready", logx.String("driver", sc.Driver))

	a := &App{cfgm: cfgm, base: base, log: log, logs: logSvc, bus: bus, store: store}
	if err := a.build(cfg, o); err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, o options) error {
	src := o.src
	if src == nil {
		var err error
		src, err = source.Open(mapSourceConfig(cfg), a.base.With(logx.String("comp", "source")))
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
	}

	a.loop = mainloop.New(loopQueueSize, a.base.With(logx.String("comp", "mainloop")))
	a.mon = monitor.New(mapMonitorConfig(cfg), src, a.loop, a.base.With(logx.String("comp", "monitor")), a.bus)
	a.gate = gate.New(a.mon, a.base.With(logx.String("comp", "gate")), a.bus)

	reg := o.reg
	if reg == nil {
		r, err := loginitem.NewSystemd(mapUnitSpec(cfg), a.base)
		if err != nil {
			a.log.Warn("login item unavailable", logx.Err(err))
			r = loginitem.Unsupported{}
		}
		reg = r
	}
	a.login = loginitem.NewManager(reg, a.store, a.base, a.bus)

	a.status = statusfile.New(mapStatusFileConfig(cfg), a.base)
	a.auto = autoclear.New(a.mon, a.base)

	if cfg.Telegram.Enabled {
		router := telegram.NewCommands(telegram.Deps{
			Monitor:   a.mon,
			Gate:      a.gate,
			LoginItem: a.login,
			Owners:    cfg.Telegram.OwnerUserIDs,
			Timeout:   telegramCmdTimeout,
			Log:       a.base.With(logx.String("comp", "telegram.router")),
		})
		bot, err := telegram.NewBot(telegram.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeoutDuration(),
		}, router, a.base)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		a.bot = bot
		if cfg.Telegram.NotifyChatID != 0 {
			a.push = telegram.NewPusher(bot, cfg.Telegram.NotifyChatID, cfg.Telegram.PushRatePerSec, a.base)
		}
	}
	return nil
}

func (a *App) Monitor() *monitor.Monitor { return a.mon }

func (a *App) Gate() *gate.Gate { return a.gate }

func (a *App) LoginItem() *loginitem.Manager { return a.login }

func (a *App) Store() storage.Store { return a.store }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.cfgm.SetLogger(a.base.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error { return validate(cfg) })

	a.sup.Go("mainloop", a.loop.Run)

	// Subscribe before anything publishes so the audit trail sees the first transitions.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.audit", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				drainEvents(c, events, a.store, a.log)
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				recordEvent(c, a.store, a.log, e)
			}
		}
	})

	a.status.Attach(a.sup.Context(), a.mon, a.bus)
	if err := a.auto.Apply(mapAutoClearConfig(a.cfgm.Get())); err != nil {
		a.log.Warn("auto clear disabled", logx.Err(err))
	}

	a.startWatchers(a.cfgm.Get())

	if a.bot != nil {
		a.sup.GoRestart("telegram.bot", a.bot.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))
	}
	if a.push != nil {
		a.mon.Subscribe(a.push.OnCount)
		// Run only returns on shutdown; any other exit is restarted.
		a.sup.GoRestart("telegram.push", a.push.Run, supervisor.WithStopOnCleanExit(false))
	}

	a.startConfigReload()
	a.sup.Go("config.watch", a.cfgm.Watch)

	rctx, cancel := context.WithTimeout(a.sup.Context(), reconcileTimeout)
	if err := a.login.Reconcile(rctx); err != nil {
		a.log.Warn("login item reconcile failed", logx.Err(err))
	}
	cancel()

	if a.cfgm.Get().Monitor.AutostartEnabled() {
		if err := a.gate.UserStart(a.sup.Context()); err != nil {
			return fmt.Errorf("start monitoring: %w", err)
		}
	}

	a.log.Info("app started", logx.String("config", a.cfgm.Path()), logx.String("mode", a.gate.Mode().String()))
	return nil
}

// startWatchers runs one supervised goroutine per enabled activity watcher.
// A watcher the host cannot provide exits cleanly and is not restarted.
func (a *App) startWatchers(cfg *config.Config) {
	for _, name := range config.KnownWatchers {
		if !cfg.Activity.Enabled(name) {
			continue
		}
		w, err := activity.New(name, a.base.With(logx.String("comp", "activity")))
		if err != nil {
			a.log.Warn("activity watcher skipped", logx.String("name", name), logx.Err(err))
			continue
		}
		a.sup.GoRestart("activity."+w.Name(), func(c context.Context) error {
			err := w.Run(c, activity.Forward(c, a.gate, a.log))
			if errors.Is(err, activity.ErrUnsupported) {
				a.log.Info("activity watcher unavailable", logx.String("name", w.Name()))
				return nil
			}
			return err
		}, supervisor.WithRestartBackoff(time.Second, 30*time.Second), supervisor.WithStopOnCleanExit(true))
	}
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// The monitor needs the loop, so it stops before the supervisor is canceled.
	a.step(ctx, "monitor", 2*time.Second, func(c context.Context) error { return a.mon.Stop(c) })
	a.step(ctx, "autoclear", time.Second, func(context.Context) error { a.auto.Stop(); return nil })
	a.step(ctx, "statusfile", time.Second, func(context.Context) error { a.status.Close(); return nil })

	a.sup.Cancel()
	a.step(ctx, "supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.store.Close() })

	c := a.sup.Counters()
	a.log.Info("stopped", logx.Uint64("goroutines", c.Started), logx.Uint64("restarts", c.Restarts))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so a stuck component
// cannot stall the whole stop. fn must honour its context.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < limit {
			limit = rem
		}
	}
	if limit <= 0 {
		a.log.Warn("stop step skipped, deadline reached", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
	}
}
