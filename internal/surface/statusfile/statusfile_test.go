package statusfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifnuke/internal/eventbus"
	"notifnuke/internal/mainloop"
	"notifnuke/internal/monitor"
	"notifnuke/internal/source"
	logx "notifnuke/pkg/logx"
)

func readStatus(t *testing.T, path string) Status {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(b, &st))
	return st
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		active   bool
		flashing bool
		want     Status
	}{
		{name: "empty", count: 0, active: true, want: Status{Class: ClassEmpty, Alt: ClassEmpty, Tooltip: "No notifications"}},
		{name: "pending", count: 3, active: true, want: Status{Text: "3", Class: ClassPending, Alt: ClassPending, Tooltip: "3 notifications", Count: 3}},
		{name: "paused", count: 1, active: false, want: Status{Text: "1", Class: ClassPaused, Alt: ClassPaused, Tooltip: "Monitoring paused (1 notification)", Count: 1}},
		{name: "paused empty", count: 0, active: false, want: Status{Class: ClassPaused, Alt: ClassPaused, Tooltip: "Monitoring paused"}},
		{name: "flash", count: 2, active: true, flashing: true, want: Status{Text: "Cleared!", Class: ClassCleared, Alt: ClassCleared, Tooltip: "Cleared!", Count: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.count, tt.active, tt.flashing))
		})
	}
}

func TestWriterFlashRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	w := New(Config{Path: path, Flash: 50 * time.Millisecond}, logx.Nop())
	defer w.Close()

	w.OnState(true)
	w.OnCount(4)
	assert.Equal(t, "4", readStatus(t, path).Text)

	w.Flash()
	assert.Equal(t, "Cleared!", readStatus(t, path).Text)
	w.OnCount(0)
	assert.Equal(t, "Cleared!", readStatus(t, path).Text, "count changes wait for the flash")

	require.Eventually(t, func() bool {
		st := readStatus(t, path)
		return st.Class == ClassEmpty && st.Text == ""
	}, time.Second, 10*time.Millisecond)
}

func TestWriterReconfigureMovesFile(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Path: filepath.Join(dir, "a.json")}, logx.Nop())
	w.OnState(true)
	w.OnCount(1)

	w.Reconfigure(Config{Path: filepath.Join(dir, "nested", "b.json")})
	assert.Equal(t, "1", readStatus(t, filepath.Join(dir, "nested", "b.json")).Text)
}

func TestAttachFollowsMonitor(t *testing.T) {
	loop := mainloop.New(16, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	bus := eventbus.New()
	src := source.NewMemory(2)
	mon := monitor.New(monitor.Config{Interval: 20 * time.Millisecond, SettleDelay: 10 * time.Millisecond}, src, loop, logx.Nop(), bus)

	path := filepath.Join(t.TempDir(), "status.json")
	w := New(Config{Path: path, Flash: 30 * time.Millisecond}, logx.Nop())
	defer w.Close()
	w.Attach(ctx, mon, bus)
	assert.Equal(t, ClassPaused, readStatus(t, path).Class)

	require.NoError(t, mon.Start(ctx))
	require.Eventually(t, func() bool { return readStatus(t, path).Text == "2" }, time.Second, 10*time.Millisecond)

	done, err := mon.ClearAll("test")
	require.NoError(t, err)
	<-done
	require.Eventually(t, func() bool { return readStatus(t, path).Class == ClassEmpty }, time.Second, 10*time.Millisecond)

	require.NoError(t, mon.Stop(ctx))
	require.Eventually(t, func() bool { return readStatus(t, path).Class == ClassPaused }, time.Second, 10*time.Millisecond)
}
