package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/mainloop"
	logx "notifnuke/pkg/logx"
)

const readKey = "delivered"

type Monitor struct {
	src  Source
	loop *mainloop.Loop
	log  logx.Logger
	bus  eventbus.Bus

	cfg     atomic.Pointer[Config]
	limiter atomic.Pointer[rate.Limiter]
	snap    atomic.Pointer[Snapshot]

	// Overlapping reads share one source call.
	reads singleflight.Group

	// Loop-confined.
	state     State
	gen       uint64
	readSeq   uint64 // refreshes issued
	seenSeq   uint64 // newest refresh applied
	count     int
	updatedAt time.Time
	tickStop  chan struct{}

	subMu sync.Mutex
	subs  []*Subscription
}

func New(cfg Config, src Source, loop *mainloop.Loop, log logx.Logger, bus eventbus.Bus) *Monitor {
	if log.IsZero() {
		log = logx.Nop()
	}
	m := &Monitor{src: src, loop: loop, log: log, bus: bus}
	m.setConfig(cfg)
	m.snap.Store(&Snapshot{State: StateStopped})
	return m
}

func (m *Monitor) config() Config { return *m.cfg.Load() }

func (m *Monitor) setConfig(cfg Config) Config {
	cfg = cfg.withDefaults()
	prev := m.cfg.Swap(&cfg)
	// A reload that leaves the limits alone keeps the current bucket.
	if prev != nil && prev.ClearRatePerSec == cfg.ClearRatePerSec && prev.ClearBurst == cfg.ClearBurst {
		return cfg
	}
	limit := rate.Inf
	if cfg.ClearRatePerSec > 0 {
		limit = rate.Limit(cfg.ClearRatePerSec)
	}
	m.limiter.Store(rate.NewLimiter(limit, cfg.ClearBurst))
	return cfg
}

// Snapshot returns the last published state without touching the loop.
func (m *Monitor) Snapshot() Snapshot { return *m.snap.Load() }

// Start moves the monitor to Running, performs one immediate refresh and arms
// the poll timer. It returns once the immediate refresh has been applied (or
// discarded by a racing Stop). Read failures are logged, not returned.
func (m *Monitor) Start(ctx context.Context) error {
	applied := make(chan struct{})
	err := m.loop.Do(ctx, func() {
		if m.state == StateRunning {
			close(applied)
			return
		}
		m.state = StateRunning
		m.gen++
		m.publishSnapshot()
		m.refresh(m.gen, reasonStart, applied)
		m.armTimer()
		m.log.Info("monitoring started", logx.Duration("interval", m.config().Interval))
		eventbus.Publish(m.bus, eventbus.MonitorState, StateRunning.String())
	})
	if err != nil {
		return err
	}
	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.loop.Done():
		return mainloop.ErrClosed
	}
}

// Stop cancels the poll timer. Calling it on a stopped monitor is a no-op.
// Reads issued by the stopped run are dropped when they complete.
func (m *Monitor) Stop(ctx context.Context) error {
	return m.loop.Do(ctx, func() {
		if m.state == StateStopped {
			return
		}
		m.state = StateStopped
		m.gen++
		m.disarmTimer()
		m.publishSnapshot()
		m.log.Info("monitoring stopped")
		eventbus.Publish(m.bus, eventbus.MonitorState, StateStopped.String())
	})
}

// Reconfigure swaps timing settings. A running timer is re-armed when the interval changes.
func (m *Monitor) Reconfigure(ctx context.Context, cfg Config) error {
	return m.loop.Do(ctx, func() {
		old := m.config()
		cfg = m.setConfig(cfg)
		if m.state == StateRunning && old.Interval != cfg.Interval {
			m.disarmTimer()
			m.armTimer()
			m.log.Info("poll interval changed", logx.Duration("from", old.Interval), logx.Duration("to", cfg.Interval))
		}
	})
}

// ClearAll asks the source to remove every delivered notification and, after
// the settle delay, re-reads the count. The returned channel is closed once
// that recheck has been applied. Removal failures are only logged: the next
// poll reconciles the real count.
//
// origin labels the trigger for the audit trail (cli, telegram, schedule, ...).
func (m *Monitor) ClearAll(origin string) (<-chan struct{}, error) {
	if lim := m.limiter.Load(); lim != nil && !lim.Allow() {
		m.log.Warn("clear-all rate limited", logx.String("origin", origin))
		return nil, ErrRateLimited
	}
	eventbus.Publish(m.bus, eventbus.ClearRequested, eventbus.ClearRequest{Origin: origin})

	done := make(chan struct{})
	cfg := m.config()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ReadTimeout)
		err := m.src.RemoveAllDelivered(ctx)
		cancel()
		if err != nil {
			m.log.Warn("clear-all failed", logx.String("origin", origin), logx.Err(err))
			eventbus.Publish(m.bus, eventbus.ClearFailed, err.Error())
		} else {
			m.log.Info("clear-all requested", logx.String("origin", origin))
		}

		m.loop.After(cfg.SettleDelay,
			func() { m.refresh(m.gen, reasonSettle, done) },
			func() { close(done) })
	}()
	return done, nil
}

// refresh runs on the loop. The source is read off-loop; the result is applied back on it.
func (m *Monitor) refresh(gen uint64, why reason, applied chan struct{}) {
	if why != reasonTick {
		// Start and settle need a read that begins now: one already in flight
		// predates the start or the removal.
		m.reads.Forget(readKey)
	}
	m.readSeq++
	seq := m.readSeq
	go func() {
		n, err := m.read()
		posted := m.loop.Post(func() {
			m.apply(gen, seq, why, n, err)
			if applied != nil {
				close(applied)
			}
		})
		if !posted && applied != nil {
			close(applied)
		}
	}()
}

func (m *Monitor) read() (int, error) {
	timeout := m.config().ReadTimeout
	v, err, _ := m.reads.Do(readKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := m.src.DeliveredCount(ctx)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, fmt.Errorf("%w: %d", ErrNegativeCount, n)
		}
		return n, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// apply runs on the loop. Results of refreshes issued before the newest
// applied one are dropped, so the latest issued read wins.
func (m *Monitor) apply(gen, seq uint64, why reason, n int, err error) {
	// The settle recheck is fire-and-forget and may land after Stop; it only re-reads.
	if why != reasonSettle && (gen != m.gen || m.state != StateRunning) {
		m.log.Debug("discarding stale read", logx.String("reason", string(why)))
		return
	}
	if seq < m.seenSeq {
		m.log.Debug("discarding superseded read", logx.String("reason", string(why)))
		return
	}
	if err != nil {
		m.log.Warn("notification count read failed", logx.String("reason", string(why)), logx.Err(err))
		return
	}
	m.seenSeq = seq
	m.updatedAt = time.Now()
	if n == m.count {
		m.publishSnapshot()
		return
	}
	prev := m.count
	m.count = n
	m.publishSnapshot()
	m.log.Debug("notification count changed", logx.Int("from", prev), logx.Int("to", n), logx.String("reason", string(why)))
	eventbus.Publish(m.bus, eventbus.CountChanged, eventbus.CountChange{From: prev, To: n})
	m.notify(n)
}

// armTimer runs on the loop.
func (m *Monitor) armTimer() {
	stop := make(chan struct{})
	m.tickStop = stop
	gen := m.gen
	interval := m.config().Interval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-m.loop.Done():
				return
			case <-t.C:
				// Ticks are not queued behind a busy loop.
				m.loop.TryPost(func() { m.tick(gen) })
			}
		}
	}()
}

func (m *Monitor) disarmTimer() {
	if m.tickStop != nil {
		close(m.tickStop)
		m.tickStop = nil
	}
}

func (m *Monitor) tick(gen uint64) {
	if gen != m.gen || m.state != StateRunning {
		return
	}
	m.refresh(gen, reasonTick, nil)
}

func (m *Monitor) publishSnapshot() {
	m.snap.Store(&Snapshot{State: m.state, Count: m.count, UpdatedAt: m.updatedAt})
}
