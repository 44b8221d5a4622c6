package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/gate"
	"notifnuke/internal/source"
	"notifnuke/internal/storage"
	logx "notifnuke/pkg/logx"
)

const baseConfig = `
logging:
  level: error
monitor:
  interval: 20ms
  settle_delay: 10ms
source:
  driver: memory
activity:
  watchers: []
storage:
  driver: memory
`

type fakeRegistrar struct {
	mu      sync.Mutex
	enabled bool
}

func (f *fakeRegistrar) Register(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = true
	return nil
}

func (f *fakeRegistrar) Unregister(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = false
	return nil
}

func (f *fakeRegistrar) Enabled(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, nil
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func startApp(t *testing.T, body string, src *source.Memory) *App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, body)

	a, err := NewApp(path, WithSource(src), WithRegistrar(&fakeRegistrar{}))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx, StopAppStop)
	})
	return a
}

func hasAudit(t *testing.T, st storage.Store, action, origin string) bool {
	t.Helper()
	entries, err := st.RecentAudit(context.Background(), -1)
	require.NoError(t, err)
	for _, e := range entries {
		if e.Action == action && e.Origin == origin {
			return true
		}
	}
	return false
}

func TestAppAutostartsAndFollowsSource(t *testing.T) {
	src := source.NewMemory(3)
	a := startApp(t, baseConfig, src)

	assert.Equal(t, gate.ModeRunningActive, a.Gate().Mode())
	assert.Equal(t, 3, a.Monitor().Snapshot().Count)

	src.Deliver(2)
	require.Eventually(t, func() bool { return a.Monitor().Snapshot().Count == 5 }, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return hasAudit(t, a.Store(), "start", "user") }, 2*time.Second, 10*time.Millisecond)
}

func TestAppClearAllIsAudited(t *testing.T) {
	src := source.NewMemory(4)
	a := startApp(t, baseConfig, src)

	done, err := a.Monitor().ClearAll("test")
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("clear-all recheck never applied")
	}
	assert.Equal(t, 0, a.Monitor().Snapshot().Count)
	require.Eventually(t, func() bool { return hasAudit(t, a.Store(), "clear_all", "test") }, 2*time.Second, 10*time.Millisecond)
}

func TestAppAutostartDisabled(t *testing.T) {
	body := `
logging:
  level: error
monitor:
  autostart: false
source:
  driver: memory
activity:
  watchers: []
storage:
  driver: memory
`
	b := startApp(t, body, source.NewMemory(1))
	assert.Equal(t, gate.ModeUserStopped, b.Gate().Mode())
	assert.False(t, b.Monitor().Snapshot().Active())

	require.NoError(t, b.Gate().UserStart(context.Background()))
	assert.Equal(t, 1, b.Monitor().Snapshot().Count)
}

func TestAppReloadEnablesStatusFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, baseConfig)

	a, err := NewApp(path, WithSource(source.NewMemory(2)), WithRegistrar(&fakeRegistrar{}))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	defer func() { _ = a.Stop(context.Background(), StopAppStop) }()

	statusPath := filepath.Join(dir, "status.json")
	writeConfig(t, path, baseConfig+`
status_file:
  enabled: true
  path: `+statusPath+`
`)
	require.Eventually(t, func() bool {
		_, err := os.Stat(statusPath)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAppRejectsBadSchedule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, baseConfig+`
auto_clear:
  enabled: true
  schedule: "not a schedule"
`)
	_, err := NewApp(path, WithSource(source.NewMemory(0)))
	require.Error(t, err)
}

func gateEvent(from, to, cause string) eventbus.Event {
	return eventbus.Event{Type: eventbus.GateMode, Data: eventbus.GateChange{From: from, To: to, Cause: cause}}
}

func TestAuditEntry(t *testing.T) {
	cases := []struct {
		name   string
		event  eventbus.Event
		ok     bool
		action string
		origin string
	}{
		{"clear", eventbus.Event{Type: eventbus.ClearRequested, Data: eventbus.ClearRequest{Origin: "telegram"}}, true, "clear_all", "telegram"},
		{"clear failed", eventbus.Event{Type: eventbus.ClearFailed, Data: "denied"}, true, "clear_all", "source"},
		{"started", gateEvent("stopped", "running", gate.CauseUser), true, "start", "user"},
		{"deferred start", gateEvent("stopped", "paused", gate.CauseUser), true, "start_deferred", "user"},
		{"paused", gateEvent("running", "paused", gate.CauseActivity), true, "pause", "activity"},
		{"resumed", gateEvent("paused", "running", gate.CauseActivity), true, "resume", "activity"},
		{"stopped", gateEvent("running", "stopped", gate.CauseUser), true, "stop", "user"},
		{"login item", eventbus.Event{Type: eventbus.LoginItemChanged, Data: eventbus.LoginItemChange{Origin: "cli", Enabled: true, Confirmed: true}}, true, "login_item", "cli"},
		{"count", eventbus.Event{Type: eventbus.CountChanged, Data: eventbus.CountChange{From: 1, To: 2}}, false, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry, ok := auditEntry(tc.event)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.action, entry.Action)
			assert.Equal(t, tc.origin, entry.Origin)
		})
	}

	failed, _ := auditEntry(eventbus.Event{Type: eventbus.ClearFailed, Data: "denied"})
	assert.False(t, failed.OK)
	assert.Equal(t, "denied", failed.Error)
}

func openSession(t *testing.T, src *source.Memory, reg *fakeRegistrar) *Session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, baseConfig)
	s, err := OpenSession(path, logx.Nop(), WithSource(src), WithRegistrar(reg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionCountAndClear(t *testing.T) {
	src := source.NewMemory(3)
	s := openSession(t, src, &fakeRegistrar{})

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	remaining, err := s.Clear(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	entries, err := s.RecentAudit(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "clear_all", entries[0].Action)
	assert.Equal(t, "cli", entries[0].Origin)
	assert.True(t, entries[0].OK)
}

func TestSessionClearFailure(t *testing.T) {
	src := source.NewMemory(2)
	src.FailRemovals(errors.New("daemon gone"))
	s := openSession(t, src, &fakeRegistrar{})

	_, err := s.Clear(context.Background(), "cli")
	require.Error(t, err)
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := s.RecentAudit(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].OK)
}

func TestSessionLoginItem(t *testing.T) {
	reg := &fakeRegistrar{}
	s := openSession(t, source.NewMemory(0), reg)

	require.NoError(t, s.LoginItem().SetEnabled(context.Background(), "cli", true))
	on, err := reg.Enabled(context.Background())
	require.NoError(t, err)
	assert.True(t, on)

	st, err := s.LoginItem().Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IntentSet)
	assert.True(t, st.Intent)
}
