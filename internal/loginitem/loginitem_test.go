package loginitem

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/storage"
	logx "notifnuke/pkg/logx"
)

type fakeRegistrar struct {
	mu         sync.Mutex
	enabled    bool
	failWrite  error
	failRead   error
	registers  int
	unregister int
}

func (f *fakeRegistrar) Register(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	if f.failWrite != nil {
		return f.failWrite
	}
	f.enabled = true
	return nil
}

func (f *fakeRegistrar) Unregister(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregister++
	if f.failWrite != nil {
		return f.failWrite
	}
	f.enabled = false
	return nil
}

func (f *fakeRegistrar) Enabled(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, f.failRead
}

func newManager(reg Registrar) (*Manager, storage.Store) {
	st := storage.NewMemory()
	return NewManager(reg, st, logx.Nop(), nil), st
}

func TestSetEnabledPersistsIntent(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistrar{}
	m, st := newManager(reg)

	require.NoError(t, m.SetEnabled(ctx, "cli", true))
	on, err := m.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	v, _, _ := st.GetSetting(ctx, storage.KeyLoginItemIntent)
	assert.Equal(t, "true", v)

	require.NoError(t, m.SetEnabled(ctx, "cli", false))
	on, err = m.IsEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestSetEnabledKeepsIntentWhenOSRefuses(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistrar{failWrite: errors.New("access denied")}
	m, st := newManager(reg)

	err := m.SetEnabled(ctx, "cli", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	v, ok, _ := st.GetSetting(ctx, storage.KeyLoginItemIntent)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	on, err := m.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on, "falls back to the stored intent")

	stat, err := m.Status(ctx)
	require.NoError(t, err)
	assert.False(t, stat.System)
	assert.True(t, stat.Intent)
}

func TestIsEnabledPrefersSystem(t *testing.T) {
	ctx := context.Background()
	reg := &fakeRegistrar{enabled: true}
	m, st := newManager(reg)
	require.NoError(t, st.PutSetting(ctx, storage.KeyLoginItemIntent, "false"))

	on, err := m.IsEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}

func TestIsEnabledSystemUnavailable(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(&fakeRegistrar{enabled: true, failRead: errors.New("no bus")})
	on, err := m.IsEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, on, "no intent recorded and no answer from the OS")
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("adopts system state without intent", func(t *testing.T) {
		reg := &fakeRegistrar{enabled: true}
		m, st := newManager(reg)
		require.NoError(t, m.Reconcile(ctx))
		v, ok, _ := st.GetSetting(ctx, storage.KeyLoginItemIntent)
		assert.True(t, ok)
		assert.Equal(t, "true", v)
		assert.Zero(t, reg.registers)
	})

	t.Run("reapplies a diverged intent", func(t *testing.T) {
		reg := &fakeRegistrar{enabled: false}
		m, st := newManager(reg)
		require.NoError(t, st.PutSetting(ctx, storage.KeyLoginItemIntent, "true"))
		require.NoError(t, m.Reconcile(ctx))
		assert.Equal(t, 1, reg.registers)
		assert.True(t, reg.enabled)
	})

	t.Run("in sync is a no-op", func(t *testing.T) {
		reg := &fakeRegistrar{enabled: true}
		m, st := newManager(reg)
		require.NoError(t, st.PutSetting(ctx, storage.KeyLoginItemIntent, "true"))
		require.NoError(t, m.Reconcile(ctx))
		assert.Zero(t, reg.registers)
	})

	t.Run("unsupported platform", func(t *testing.T) {
		m, st := newManager(nil)
		require.NoError(t, m.Reconcile(ctx))
		_, ok, _ := st.GetSetting(ctx, storage.KeyLoginItemIntent)
		assert.False(t, ok)
	})
}

func TestSetEnabledPublishesChange(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	m := NewManager(&fakeRegistrar{failWrite: errors.New("nope")}, storage.NewMemory(), logx.Nop(), bus)
	_ = m.SetEnabled(context.Background(), "telegram", true)

	select {
	case e := <-events:
		require.Equal(t, eventbus.LoginItemChanged, e.Type)
		ch := e.Data.(eventbus.LoginItemChange)
		assert.Equal(t, "telegram", ch.Origin)
		assert.True(t, ch.Enabled)
		assert.False(t, ch.Confirmed)
		assert.NotEmpty(t, ch.Error)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}

func TestRender(t *testing.T) {
	b, err := Render(UnitSpec{
		Name:        "notifnuke.service",
		Description: "Delivered notification counter",
		Exec:        "/home/me/My Apps/notifnuke",
		Args:        []string{"run", "--config", "/etc/n n.yaml"},
	})
	require.NoError(t, err)
	out := string(b)
	assert.True(t, strings.HasPrefix(out, "[Unit]\n"))
	assert.Contains(t, out, "Description=Delivered notification counter\n")
	assert.Contains(t, out, `ExecStart="/home/me/My Apps/notifnuke" run --config "/etc/n n.yaml"`)
	assert.Contains(t, out, "[Install]\nWantedBy=graphical-session.target\n")

	_, err = Render(UnitSpec{Name: "x.service"})
	assert.Error(t, err)
}

func TestQuoteExecArg(t *testing.T) {
	assert.Equal(t, "run", quoteExecArg("run"))
	assert.Equal(t, `""`, quoteExecArg(""))
	assert.Equal(t, `"100%% $$HOME"`, quoteExecArg("100% $HOME"))
}
