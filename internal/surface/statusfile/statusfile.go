// Package statusfile mirrors the notification count into a small JSON file
// that status bars (waybar "custom" modules, polybar scripts) can read.
package statusfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/monitor"
	"notifnuke/internal/surface"
	logx "notifnuke/pkg/logx"
)

type Config struct {
	Path  string
	Flash time.Duration
}

// Status is one waybar-compatible JSON line.
type Status struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
	Alt     string `json:"alt"`
	Count   int    `json:"count"`
}

const (
	ClassEmpty   = "empty"
	ClassPending = "pending"
	ClassPaused  = "paused"
	ClassCleared = "cleared"
)

// Render builds the status for a count. Zero shows no text so bars collapse the module.
func Render(count int, active, flashing bool) Status {
	st := Status{Count: count}
	switch {
	case flashing:
		st.Text, st.Class = surface.Cleared, ClassCleared
		st.Tooltip = surface.Cleared
	case !active:
		st.Class = ClassPaused
		st.Tooltip = surface.Paused
		if count > 0 {
			st.Text = strconv.Itoa(count)
			st.Tooltip = surface.Paused + " (" + surface.Notifications(count) + ")"
		}
	case count == 0:
		st.Class = ClassEmpty
		st.Tooltip = "No notifications"
	default:
		st.Text = strconv.Itoa(count)
		st.Class = ClassPending
		st.Tooltip = surface.Notifications(count)
	}
	st.Alt = st.Class
	return st
}

type Writer struct {
	log logx.Logger

	mu         sync.Mutex
	cfg        Config
	count      int
	active     bool
	flashing   bool
	flashTimer *time.Timer
	last       []byte
}

func New(cfg Config, log logx.Logger) *Writer {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Flash <= 0 {
		cfg.Flash = time.Second
	}
	return &Writer{cfg: cfg, log: log.With(logx.String("comp", "statusfile"))}
}

// Attach subscribes to count changes and follows run state and clear requests
// from the bus until ctx is done.
func (w *Writer) Attach(ctx context.Context, mon *monitor.Monitor, bus eventbus.Bus) {
	snap := mon.Snapshot()
	w.mu.Lock()
	w.count, w.active = snap.Count, snap.Active()
	w.writeLocked()
	w.mu.Unlock()

	sub := mon.Subscribe(w.OnCount)
	var events <-chan eventbus.Event
	unsub := func() {}
	if bus != nil {
		events, unsub = bus.Subscribe(16)
	}
	go func() {
		defer sub.Unsubscribe()
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				switch e.Type {
				case eventbus.MonitorState:
					s, _ := e.Data.(string)
					w.OnState(s == monitor.StateRunning.String())
				case eventbus.ClearRequested:
					w.Flash()
				}
			}
		}
	}()
}

// OnCount is the monitor subscription. It runs on the UI loop.
func (w *Writer) OnCount(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = n
	if !w.flashing {
		w.writeLocked()
	}
}

func (w *Writer) OnState(active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = active
	w.writeLocked()
}

// Flash shows "Cleared!" for the configured duration, then the live count.
func (w *Writer) Flash() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flashing = true
	if w.flashTimer != nil {
		w.flashTimer.Stop()
	}
	w.flashTimer = time.AfterFunc(w.cfg.Flash, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.flashing = false
		w.writeLocked()
	})
	w.writeLocked()
}

// Reconfigure switches path or flash duration and rewrites the file.
func (w *Writer) Reconfigure(cfg Config) {
	if cfg.Flash <= 0 {
		cfg.Flash = time.Second
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if cfg == w.cfg {
		return
	}
	w.cfg = cfg
	w.last = nil
	w.writeLocked()
}

// Close stops a pending flash.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flashTimer != nil {
		w.flashTimer.Stop()
	}
}

func (w *Writer) writeLocked() {
	if w.cfg.Path == "" {
		return
	}
	b, err := json.Marshal(Render(w.count, w.active, w.flashing))
	if err != nil {
		return
	}
	b = append(b, '\n')
	if bytes.Equal(b, w.last) {
		return
	}
	if err := writeAtomic(w.cfg.Path, b); err != nil {
		w.log.Warn("status file write failed", logx.String("path", w.cfg.Path), logx.Err(err))
		return
	}
	w.last = b
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
