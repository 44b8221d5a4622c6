package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notifnuke/internal/gate"
	"notifnuke/internal/loginitem"
	"notifnuke/internal/monitor"
	"notifnuke/internal/surface"
	logx "notifnuke/pkg/logx"
)

const origin = "telegram"

type Monitor interface {
	Snapshot() monitor.Snapshot
	ClearAll(origin string) (<-chan struct{}, error)
}

type Gate interface {
	UserStart(ctx context.Context) error
	UserStop(ctx context.Context) error
	Mode() gate.Mode
}

type LoginItem interface {
	SetEnabled(ctx context.Context, origin string, enabled bool) error
	Status(ctx context.Context) (loginitem.Status, error)
}

type Deps struct {
	Monitor   Monitor
	Gate      Gate
	LoginItem LoginItem // optional
	Owners    []int64
	Timeout   time.Duration
	Log       logx.Logger
}

// NewCommands builds the router serving every bot command.
func NewCommands(d Deps) *Router {
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := NewRouter(
		MWRequestLog(log),
		MWPanicRecover(log),
		MWOwnerOnly(d.Owners),
		MWTimeout(timeout),
	)
	c := &commands{d: d}
	r.Handle("start", "", c.help(r))
	r.Handle("help", "List commands", c.help(r))
	r.Handle("count", "Show the delivered notification count", c.count)
	r.Handle("clear", "Remove all delivered notifications", c.clear)
	r.Handle("pause", "Stop monitoring", c.pause)
	r.Handle("resume", "Start monitoring", c.resume)
	r.Handle("status", "Monitor, gate and login item state", c.status)
	r.Handle("loginitem", "Launch at login: on | off | status", c.loginItem)
	return r
}

type commands struct{ d Deps }

func (c *commands) help(r *Router) HandlerFunc {
	return func(_ context.Context, req *Request) error {
		var b strings.Builder
		b.WriteString("Commands:\n")
		for _, cmd := range r.Commands() {
			fmt.Fprintf(&b, "/%s - %s\n", cmd[0], cmd[1])
		}
		return req.Reply(strings.TrimRight(b.String(), "\n"))
	}
}

func (c *commands) count(_ context.Context, req *Request) error {
	snap := c.d.Monitor.Snapshot()
	line := surface.CountLine(snap.Count)
	if !snap.Active() {
		line += " (" + strings.ToLower(surface.Paused) + ")"
	}
	return req.Reply(line)
}

func (c *commands) clear(ctx context.Context, req *Request) error {
	before := c.d.Monitor.Snapshot().Count
	done, err := c.d.Monitor.ClearAll(origin)
	if errors.Is(err, monitor.ErrRateLimited) {
		return req.Reply("Clear-all is rate limited, try again shortly.")
	}
	if err != nil {
		return err
	}
	if err := req.Reply(surface.ClearWarning(before)); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return req.Reply(surface.ClearDone(c.d.Monitor.Snapshot().Count))
}

func (c *commands) pause(ctx context.Context, req *Request) error {
	if err := c.d.Gate.UserStop(ctx); err != nil {
		return err
	}
	return req.Reply(surface.Paused + ".")
}

func (c *commands) resume(ctx context.Context, req *Request) error {
	if err := c.d.Gate.UserStart(ctx); err != nil {
		return err
	}
	if c.d.Gate.Mode() == gate.ModePausedInBackground {
		return req.Reply("Monitoring will resume when the session is active again.")
	}
	return req.Reply("Monitoring resumed. " + surface.CountLine(c.d.Monitor.Snapshot().Count))
}

func (c *commands) status(ctx context.Context, req *Request) error {
	snap := c.d.Monitor.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "Monitor: %s\n", snap.State)
	fmt.Fprintf(&b, "Mode: %s\n", c.d.Gate.Mode())
	fmt.Fprintf(&b, "%s\n", surface.CountLine(snap.Count))
	if !snap.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Last read: %s ago\n", time.Since(snap.UpdatedAt).Truncate(time.Second))
	}
	if c.d.LoginItem != nil {
		if st, err := c.d.LoginItem.Status(ctx); err == nil {
			fmt.Fprintf(&b, "Launch at login: %s\n", onOff(st.Effective()))
		}
	}
	return req.Reply(strings.TrimRight(b.String(), "\n"))
}

func (c *commands) loginItem(ctx context.Context, req *Request) error {
	if c.d.LoginItem == nil {
		return req.Reply("Launch at login is not available.")
	}
	arg := "status"
	if len(req.Args) > 0 {
		arg = strings.ToLower(req.Args[0])
	}
	switch arg {
	case "on", "off":
		err := c.d.LoginItem.SetEnabled(ctx, origin, arg == "on")
		if err != nil {
			return req.Reply(fmt.Sprintf("Saved, but the system refused: %v", err))
		}
		return req.Reply("Launch at login: " + arg)
	case "status":
		st, err := c.d.LoginItem.Status(ctx)
		if err != nil {
			return err
		}
		line := "Launch at login: " + onOff(st.Effective())
		if st.SystemErr != nil {
			line += " (system state unavailable)"
		}
		return req.Reply(line)
	default:
		return req.Reply("Usage: /loginitem on|off|status")
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
