package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestMissingFileMeansDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "dunst", cfg.Source.Driver)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, DefaultUnit, cfg.LoginItem.Unit)
	assert.Equal(t, []string{"run"}, cfg.LoginItem.Args)
	assert.True(t, cfg.Monitor.AutostartEnabled())
	assert.True(t, cfg.Source.History())

	interval, settle, timeout := cfg.Monitor.Timing()
	assert.Equal(t, DefaultInterval, interval)
	assert.Equal(t, DefaultSettleDelay, settle)
	assert.Equal(t, DefaultReadTimeout, timeout)
	assert.Same(t, cfg, m.Get())
}

func TestDecodeYAML(t *testing.T) {
	cfg, err := Decode("c.yaml", []byte(`
monitor:
  autostart: false
  interval: 2s
  clear_rate_per_sec: 0.5
source:
  driver: swaync
  include_history: false
activity:
  watchers: [signals]
status_file:
  enabled: true
  path: /tmp/nn.json
`))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.False(t, cfg.Monitor.AutostartEnabled())
	interval, _, _ := cfg.Monitor.Timing()
	assert.Equal(t, 2*time.Second, interval)
	assert.Equal(t, 0.5, cfg.Monitor.ClearRatePerSec)
	assert.Equal(t, 1, cfg.Monitor.ClearBurst)
	assert.False(t, cfg.Source.History())
	assert.True(t, cfg.Activity.Enabled("signals"))
	assert.False(t, cfg.Activity.Enabled("login1"))
	assert.Equal(t, "/tmp/nn.json", cfg.StatusFile.Path)
	assert.Equal(t, DefaultFlash, cfg.StatusFile.FlashDuration())
}

func TestDecodeRejectsUnknownAndTrailing(t *testing.T) {
	_, err := Decode("c.json", []byte(`{"monitor":{"intervall":"1s"}}`))
	require.Error(t, err)

	_, err = Decode("c.json", []byte(`{} {}`))
	require.Error(t, err)

	_, err = Decode("c.yml", []byte("monitor: [unterminated"))
	require.Error(t, err)
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := Decode("c.yaml", []byte("# nothing yet\n"))
	require.NoError(t, err)
	assert.Equal(t, "dunst", cfg.Source.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{name: "bad level", edit: func(c *Config) { c.Logging.Level = "loud" }},
		{name: "bad interval", edit: func(c *Config) { c.Monitor.Interval = "soon" }},
		{name: "negative settle", edit: func(c *Config) { c.Monitor.SettleDelay = "-1s" }},
		{name: "unknown source", edit: func(c *Config) { c.Source.Driver = "growl" }},
		{name: "unknown watcher", edit: func(c *Config) { c.Activity.Watchers = []string{"lid"} }},
		{name: "unit path", edit: func(c *Config) { c.LoginItem.Unit = "../x.service" }},
		{name: "unknown storage", edit: func(c *Config) { c.Storage.Driver = "redis" }},
		{name: "telegram without token", edit: func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.OwnerUserIDs = []int64{1}
		}},
		{name: "telegram without owners", edit: func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.Token = "t"
		}},
		{name: "autoclear without schedule", edit: func(c *Config) { c.AutoClear.Enabled = true }},
	}
	require.NoError(t, Validate(Default()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateAcceptsEverySourceDriver(t *testing.T) {
	for _, driver := range []string{"", "dunst", " SwayNC ", "memory"} {
		cfg := Default()
		cfg.Source.Driver = driver
		assert.NoError(t, Validate(cfg), driver)
	}
}

func TestSummarizeChangeHidesToken(t *testing.T) {
	a := Default()
	b := Default()
	b.Telegram.Token = "secret"
	b.Monitor.Interval = "1s"

	changed, attrs := SummarizeChange(a, b)
	assert.Equal(t, []string{"monitor", "telegram"}, changed)
	assert.NotEmpty(t, attrs)
	assert.Equal(t, []string{"telegram"}, RestartRequired(changed))
}

func TestWatchPublishesValidChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "monitor:\n  interval: 5s\n")

	m := NewManager(path)
	_, err := m.Load()
	require.NoError(t, err)
	updates := m.Subscribe(4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, path, "monitor:\n  interval: [\n")
	writeFile(t, path, "monitor:\n  interval: 1s\n")

	select {
	case cfg := <-updates:
		interval, _, _ := cfg.Monitor.Timing()
		assert.Equal(t, time.Second, interval)
	case <-time.After(3 * time.Second):
		t.Fatal("no config published")
	}

	writeFile(t, path, "logging:\n  level: shouting\n")
	select {
	case cfg := <-updates:
		t.Fatalf("invalid config published: %+v", cfg.Logging)
	case <-time.After(600 * time.Millisecond):
	}
	interval, _, _ := m.Get().Monitor.Timing()
	assert.Equal(t, time.Second, interval)
}

func TestWatchValidatorRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{}`)

	m := NewManager(path)
	_, err := m.Load()
	require.NoError(t, err)
	m.SetValidator(func(context.Context, *Config) error { return assert.AnError })
	assert.False(t, m.reload(context.Background()), "unchanged content is not republished")

	writeFile(t, path, `{"source":{"driver":"memory"}}`)
	assert.False(t, m.reload(context.Background()))
	assert.Equal(t, "dunst", m.Get().Source.Driver)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := NewManager("x.json")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
	m.Unsubscribe(ch)
}

func TestPublishKeepsNewest(t *testing.T) {
	m := NewManager("x.json")
	ch := m.Subscribe(1)
	first, second := Default(), Default()
	second.Source.Driver = "memory"
	m.publish(first)
	m.publish(second)
	assert.Same(t, second, <-ch)
}
