package app

import (
	"context"
	"strconv"
	"time"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/gate"
	"notifnuke/internal/storage"
	logx "notifnuke/pkg/logx"
)

const auditWriteTimeout = 2 * time.Second

// auditEntry maps a bus event to the audit record it implies. Count changes
// and monitor state flips are not user actions and are skipped.
func auditEntry(e eventbus.Event) (storage.AuditEntry, bool) {
	entry := storage.AuditEntry{At: e.Time}
	switch e.Type {
	case eventbus.ClearRequested:
		req, _ := e.Data.(eventbus.ClearRequest)
		entry.Origin, entry.Action, entry.OK = req.Origin, "clear_all", true
	case eventbus.ClearFailed:
		msg, _ := e.Data.(string)
		entry.Origin, entry.Action, entry.Error = "source", "clear_all", msg
	case eventbus.GateMode:
		ch, _ := e.Data.(eventbus.GateChange)
		entry.Origin, entry.Action, entry.OK = ch.Cause, gateAction(ch), true
		entry.Detail = ch.From + "->" + ch.To
	case eventbus.LoginItemChanged:
		ch, _ := e.Data.(eventbus.LoginItemChange)
		entry.Origin, entry.Action = ch.Origin, "login_item"
		entry.Detail = "enabled=" + strconv.FormatBool(ch.Enabled)
		entry.OK, entry.Error = ch.Confirmed, ch.Error
	default:
		return storage.AuditEntry{}, false
	}
	return entry, true
}

// gateAction names a gate transition. A user start while the session is in
// the background only records the intent, so it is not a pause.
func gateAction(ch eventbus.GateChange) string {
	switch {
	case ch.To == gate.ModeUserStopped.String():
		return "stop"
	case ch.To == gate.ModeRunningActive.String() && ch.Cause == gate.CauseActivity:
		return "resume"
	case ch.To == gate.ModeRunningActive.String():
		return "start"
	case ch.Cause == gate.CauseUser:
		return "start_deferred"
	default:
		return "pause"
	}
}

// recordEvent logs e and appends its audit entry, if any.
func recordEvent(ctx context.Context, store storage.Store, log logx.Logger, e eventbus.Event) {
	if log.Enabled(logx.LevelDebug) {
		log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time), logx.Any("data", e.Data))
	}
	if store == nil {
		return
	}
	entry, ok := auditEntry(e)
	if !ok {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := store.AppendAudit(wctx, entry); err != nil {
		log.Warn("audit write failed", logx.String("action", entry.Action), logx.Err(err))
	}
}

// drainEvents records whatever is already buffered on events without blocking.
func drainEvents(ctx context.Context, events <-chan eventbus.Event, store storage.Store, log logx.Logger) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			recordEvent(ctx, store, log, e)
		default:
			return
		}
	}
}
