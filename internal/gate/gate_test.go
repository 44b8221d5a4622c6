package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/mainloop"
	"notifnuke/internal/monitor"
	logx "notifnuke/pkg/logx"
)

type fakeController struct {
	calls    []string
	startErr error
}

func (f *fakeController) Start(context.Context) error {
	f.calls = append(f.calls, "start")
	return f.startErr
}

func (f *fakeController) Stop(context.Context) error {
	f.calls = append(f.calls, "stop")
	return nil
}

func TestNeverStartedIsNotResumed(t *testing.T) {
	ctl := &fakeController{}
	g := New(ctl, logx.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.BecameActive(ctx))

	assert.Empty(t, ctl.calls)
	assert.Equal(t, ModeUserStopped, g.Mode())
}

func TestPauseAndResume(t *testing.T) {
	ctl := &fakeController{}
	g := New(ctl, logx.Nop(), eventbus.New())
	ctx := context.Background()

	require.NoError(t, g.UserStart(ctx))
	require.NoError(t, g.ResignedActive(ctx))
	assert.Equal(t, ModePausedInBackground, g.Mode())

	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.BecameActive(ctx))
	assert.Equal(t, ModeRunningActive, g.Mode())
	assert.Equal(t, []string{"start", "stop", "start"}, ctl.calls)
}

func TestUserStopSurvivesForeground(t *testing.T) {
	ctl := &fakeController{}
	g := New(ctl, logx.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.UserStart(ctx))
	require.NoError(t, g.UserStop(ctx))
	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.BecameActive(ctx))

	assert.Equal(t, ModeUserStopped, g.Mode())
	assert.Equal(t, []string{"start", "stop"}, ctl.calls)
}

func TestUserStopWhilePaused(t *testing.T) {
	ctl := &fakeController{}
	g := New(ctl, logx.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.UserStart(ctx))
	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.UserStop(ctx))
	require.NoError(t, g.BecameActive(ctx))

	assert.Equal(t, ModeUserStopped, g.Mode())
	assert.Equal(t, []string{"start", "stop"}, ctl.calls, "already stopped by the pause")
}

func TestUserStartInBackgroundDefers(t *testing.T) {
	ctl := &fakeController{}
	g := New(ctl, logx.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.UserStart(ctx))
	assert.Empty(t, ctl.calls)
	assert.Equal(t, ModePausedInBackground, g.Mode())

	require.NoError(t, g.BecameActive(ctx))
	assert.Equal(t, []string{"start"}, ctl.calls)
}

func TestModeChangesCarryCause(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()
	g := New(&fakeController{}, logx.Nop(), bus)
	ctx := context.Background()

	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.UserStart(ctx))
	require.NoError(t, g.BecameActive(ctx))
	require.NoError(t, g.ResignedActive(ctx))
	require.NoError(t, g.UserStop(ctx))

	want := []eventbus.GateChange{
		{From: "stopped", To: "paused", Cause: CauseUser},
		{From: "paused", To: "running", Cause: CauseActivity},
		{From: "running", To: "paused", Cause: CauseActivity},
		{From: "paused", To: "stopped", Cause: CauseUser},
	}
	var got []eventbus.GateChange
	for len(got) < len(want) {
		select {
		case e := <-events:
			require.Equal(t, eventbus.GateMode, e.Type)
			got = append(got, e.Data.(eventbus.GateChange))
		case <-time.After(time.Second):
			t.Fatalf("missing gate events, got %v", got)
		}
	}
	assert.Equal(t, want, got)
}

func TestStartFailureKeepsMode(t *testing.T) {
	ctl := &fakeController{startErr: errors.New("loop closed")}
	g := New(ctl, logx.Nop(), nil)
	assert.Error(t, g.UserStart(context.Background()))
	assert.Equal(t, ModeUserStopped, g.Mode())
}

type scenarioSource struct {
	mu    sync.Mutex
	count int
	reads int
}

func (s *scenarioSource) DeliveredCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.count, nil
}

func (s *scenarioSource) RemoveAllDelivered(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = 0
	return nil
}

func (s *scenarioSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Start with 3 delivered, clear, background, foreground.
func TestMonitorLifecycleScenario(t *testing.T) {
	const interval = 10 * time.Millisecond
	loop := mainloop.New(16, logx.Nop())
	lctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(lctx) }()

	src := &scenarioSource{count: 3}
	mon := monitor.New(monitor.Config{Interval: interval, SettleDelay: interval / 2}, src, loop, logx.Nop(), nil)

	var mu sync.Mutex
	var got []int
	mon.Subscribe(func(n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	values := func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), got...)
	}

	g := New(mon, logx.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, g.UserStart(ctx))
	assert.Equal(t, []int{3}, values())

	done, err := mon.ClearAll("test")
	require.NoError(t, err)
	<-done
	assert.Equal(t, []int{3, 0}, values())

	require.NoError(t, g.ResignedActive(ctx))
	time.Sleep(interval) // let a read issued just before the pause drain
	before := src.readCount()
	time.Sleep(5 * interval)
	assert.Equal(t, before, src.readCount(), "no polling in the background")
	assert.Equal(t, []int{3, 0}, values())

	src.mu.Lock()
	src.count = 1
	src.mu.Unlock()

	require.NoError(t, g.BecameActive(ctx))
	assert.Equal(t, []int{3, 0, 1}, values(), "one immediate refresh on resume")
	assert.Equal(t, monitor.StateRunning, mon.Snapshot().State)
}
