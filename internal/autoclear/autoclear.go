// Package autoclear runs clear-all on a cron schedule.
package autoclear

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"notifnuke/internal/monitor"
	logx "notifnuke/pkg/logx"
)

const Origin = "schedule"

// Clearer is satisfied by *monitor.Monitor.
type Clearer interface {
	ClearAll(origin string) (<-chan struct{}, error)
}

type Config struct {
	Enabled  bool
	Schedule string // 5 or 6 field cron, or a descriptor such as "@hourly" / "@every 30m"
	Timezone string // IANA name; empty means local time
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate parses the schedule and timezone without starting anything.
func Validate(cfg Config) error {
	if !cfg.Enabled {
		return nil
	}
	_, _, err := parse(cfg)
	return err
}

func parse(cfg Config) (cron.Schedule, *time.Location, error) {
	spec := strings.TrimSpace(cfg.Schedule)
	if spec == "" {
		return nil, nil, errors.New("auto_clear.schedule is empty")
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, nil, fmt.Errorf("auto_clear.timezone: %w", err)
		}
		loc = l
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("auto_clear.schedule %q: %w", spec, err)
	}
	return sched, loc, nil
}

type Scheduler struct {
	target Clearer
	log    logx.Logger

	mu   sync.Mutex
	cfg  Config
	cron *cron.Cron
}

func New(target Clearer, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Scheduler{target: target, log: log.With(logx.String("comp", "autoclear"))}
}

// Apply replaces the running schedule. Applying the current config is a no-op.
func (s *Scheduler) Apply(cfg Config) error {
	var (
		sched cron.Schedule
		loc   *time.Location
		err   error
	)
	if cfg.Enabled {
		if sched, loc, err = parse(cfg); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg == s.cfg && (s.cron != nil) == cfg.Enabled {
		return nil
	}
	s.stopLocked()
	s.cfg = cfg
	if !cfg.Enabled {
		s.log.Debug("auto clear disabled")
		return nil
	}

	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(sched, cron.FuncJob(s.fire))
	c.Start()
	s.cron = c
	s.log.Info("auto clear scheduled",
		logx.String("schedule", cfg.Schedule),
		logx.String("tz", loc.String()),
		logx.Time("next", sched.Next(time.Now().In(loc))),
	)
	return nil
}

// Next reports the next planned run, or zero when disabled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.cfg = Config{}
}

func (s *Scheduler) stopLocked() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

func (s *Scheduler) fire() {
	done, err := s.target.ClearAll(Origin)
	if errors.Is(err, monitor.ErrRateLimited) {
		s.log.Warn("scheduled clear skipped: rate limited")
		return
	}
	if err != nil {
		s.log.Warn("scheduled clear failed", logx.Err(err))
		return
	}
	<-done
	s.log.Debug("scheduled clear done")
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
