// Package loginitem registers notifnuke to launch at login and remembers
// what the user asked for, separately from what the OS reports.
package loginitem

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/storage"
	logx "notifnuke/pkg/logx"
)

var ErrUnsupported = errors.New("loginitem: launch at login is not supported on this platform")

// Registrar is the OS side of launch at login.
type Registrar interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	Enabled(ctx context.Context) (bool, error)
}

// IntentStore persists the user's choice. storage.Store satisfies it.
type IntentStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Status is the combined view shown to users.
type Status struct {
	System    bool  // what the OS reports
	SystemErr error // non-nil when the OS could not be asked
	Intent    bool  // what the user last asked for
	IntentSet bool  // false until the user (or Reconcile) recorded a choice
}

// Effective is what IsEnabled reports.
func (s Status) Effective() bool {
	if s.SystemErr == nil && s.System {
		return true
	}
	return s.IntentSet && s.Intent
}

type Manager struct {
	reg   Registrar
	store IntentStore
	log   logx.Logger
	bus   eventbus.Bus
}

func NewManager(reg Registrar, store IntentStore, log logx.Logger, bus eventbus.Bus) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	if reg == nil {
		reg = Unsupported{}
	}
	return &Manager{reg: reg, store: store, log: log.With(logx.String("comp", "loginitem")), bus: bus}
}

// SetEnabled registers or unregisters with the OS. The intent is stored even
// when the OS refuses, and the OS error is returned.
func (m *Manager) SetEnabled(ctx context.Context, origin string, enabled bool) error {
	var osErr error
	if enabled {
		osErr = m.reg.Register(ctx)
	} else {
		osErr = m.reg.Unregister(ctx)
	}
	if osErr != nil {
		m.log.Warn("login item registration failed", logx.Bool("enabled", enabled), logx.Err(osErr))
		osErr = fmt.Errorf("login item: %w", osErr)
	} else {
		m.log.Info("login item updated", logx.Bool("enabled", enabled), logx.String("origin", origin))
	}

	storeErr := m.putIntent(ctx, enabled)

	change := eventbus.LoginItemChange{Origin: origin, Enabled: enabled, Confirmed: osErr == nil}
	if osErr != nil {
		change.Error = osErr.Error()
	}
	eventbus.Publish(m.bus, eventbus.LoginItemChanged, change)

	return errors.Join(osErr, storeErr)
}

// IsEnabled reports true when the OS says so, and otherwise falls back to the stored intent.
func (m *Manager) IsEnabled(ctx context.Context) (bool, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.Effective(), nil
}

// Status asks the OS and the store. Only a store failure is returned as an error.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	var st Status
	st.System, st.SystemErr = m.reg.Enabled(ctx)
	if st.SystemErr != nil {
		m.log.Debug("login item status unavailable", logx.Err(st.SystemErr))
	}
	intent, ok, err := m.getIntent(ctx)
	if err != nil {
		return st, err
	}
	st.Intent, st.IntentSet = intent, ok
	return st, nil
}

// Reconcile runs once at startup. A stored intent that the OS does not reflect
// is applied again; without a stored intent the OS state is adopted.
func (m *Manager) Reconcile(ctx context.Context) error {
	sys, sysErr := m.reg.Enabled(ctx)
	if errors.Is(sysErr, ErrUnsupported) {
		return nil
	}
	intent, ok, err := m.getIntent(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if sysErr != nil {
			return nil
		}
		m.log.Debug("adopting login item state", logx.Bool("enabled", sys))
		return m.putIntent(ctx, sys)
	}
	if sysErr == nil && sys == intent {
		return nil
	}
	m.log.Info("login item out of sync; reapplying", logx.Bool("intent", intent), logx.Bool("system", sys))
	return m.SetEnabled(ctx, "reconcile", intent)
}

func (m *Manager) getIntent(ctx context.Context) (bool, bool, error) {
	if m.store == nil {
		return false, false, nil
	}
	v, ok, err := m.store.GetSetting(ctx, storage.KeyLoginItemIntent)
	if err != nil || !ok {
		return false, false, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		m.log.Warn("ignoring malformed login item intent", logx.String("value", v))
		return false, false, nil
	}
	return b, true, nil
}

func (m *Manager) putIntent(ctx context.Context, enabled bool) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.PutSetting(ctx, storage.KeyLoginItemIntent, strconv.FormatBool(enabled)); err != nil {
		m.log.Warn("storing login item intent failed", logx.Err(err))
		return fmt.Errorf("store login item intent: %w", err)
	}
	return nil
}

// Unsupported is the registrar for platforms without launch at login.
type Unsupported struct{}

func (Unsupported) Register(context.Context) error { return ErrUnsupported }

func (Unsupported) Unregister(context.Context) error { return ErrUnsupported }

func (Unsupported) Enabled(context.Context) (bool, error) { return false, ErrUnsupported }
