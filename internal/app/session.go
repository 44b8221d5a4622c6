package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notifnuke/internal/config"
	"notifnuke/internal/eventbus"
	"notifnuke/internal/loginitem"
	"notifnuke/internal/monitor"
	"notifnuke/internal/source"
	"notifnuke/internal/storage"
	logx "notifnuke/pkg/logx"
)

// Session wires the components a one-shot CLI command needs, without the
// UI loop or any background goroutine. Actions still reach the audit trail.
type Session struct {
	cfg   *config.Config
	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store
	src   monitor.Source
	login *loginitem.Manager

	events <-chan eventbus.Event
	unsub  func()
}

func OpenSession(cfgPath string, log logx.Logger, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return nil, err
	}
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	src := o.src
	if src == nil {
		src, err = source.Open(mapSourceConfig(cfg), log.With(logx.String("comp", "source")))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open source: %w", err)
		}
	}

	reg := o.reg
	if reg == nil {
		if reg, err = loginitem.NewSystemd(mapUnitSpec(cfg), log); err != nil {
			log.Warn("login item unavailable", logx.Err(err))
			reg = loginitem.Unsupported{}
		}
	}

	bus := eventbus.New()
	events, unsub := bus.Subscribe(32)
	return &Session{
		cfg:    cfg,
		log:    log,
		bus:    bus,
		store:  store,
		src:    src,
		login:  loginitem.NewManager(reg, store, log, bus),
		events: events,
		unsub:  unsub,
	}, nil
}

func (s *Session) Config() *config.Config { return s.cfg }

func (s *Session) LoginItem() *loginitem.Manager { return s.login }

// Count reads the delivered count once.
func (s *Session) Count(ctx context.Context) (int, error) {
	_, _, readTimeout := s.cfg.Monitor.Timing()
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	n, err := s.src.DeliveredCount(rctx)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", monitor.ErrNegativeCount, n)
	}
	return n, nil
}

// Clear removes every delivered notification, waits for the settle delay and
// reads the count again. On removal failure the count is left to the caller.
func (s *Session) Clear(ctx context.Context, origin string) (remaining int, err error) {
	_, settle, readTimeout := s.cfg.Monitor.Timing()
	eventbus.Publish(s.bus, eventbus.ClearRequested, eventbus.ClearRequest{Origin: origin})
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	err = s.src.RemoveAllDelivered(rctx)
	cancel()
	if err != nil {
		eventbus.Publish(s.bus, eventbus.ClearFailed, err.Error())
		return 0, fmt.Errorf("clear: %w", err)
	}

	t := time.NewTimer(settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-t.C:
	}
	return s.Count(ctx)
}

// RecentAudit returns the newest audit entries, including this session's.
func (s *Session) RecentAudit(ctx context.Context, limit int) ([]storage.AuditEntry, error) {
	drainEvents(ctx, s.events, s.store, s.log)
	return s.store.RecentAudit(ctx, limit)
}

// Close records pending audit entries and closes storage.
func (s *Session) Close() error {
	drainEvents(context.Background(), s.events, s.store, s.log)
	s.unsub()
	err := s.store.Close()
	if errors.Is(err, storage.ErrClosed) {
		return nil
	}
	return err
}
