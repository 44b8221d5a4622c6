package autoclear

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "notifnuke/pkg/logx"
)

type fakeClearer struct {
	mu      sync.Mutex
	origins []string
}

func (f *fakeClearer) ClearAll(origin string) (<-chan struct{}, error) {
	f.mu.Lock()
	f.origins = append(f.origins, origin)
	f.mu.Unlock()
	done := make(chan struct{})
	close(done)
	return done, nil
}

func (f *fakeClearer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.origins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled ignores garbage", cfg: Config{Schedule: "nope"}},
		{name: "five fields", cfg: Config{Enabled: true, Schedule: "0 9 * * 1-5"}},
		{name: "six fields", cfg: Config{Enabled: true, Schedule: "30 0 9 * * *"}},
		{name: "descriptor", cfg: Config{Enabled: true, Schedule: "@every 30m"}},
		{name: "timezone", cfg: Config{Enabled: true, Schedule: "@daily", Timezone: "UTC"}},
		{name: "empty", cfg: Config{Enabled: true}, wantErr: true},
		{name: "bad spec", cfg: Config{Enabled: true, Schedule: "every morning"}, wantErr: true},
		{name: "bad timezone", cfg: Config{Enabled: true, Schedule: "@daily", Timezone: "Mars/Olympus"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedulerFires(t *testing.T) {
	target := &fakeClearer{}
	s := New(target, logx.Nop())
	defer s.Stop()

	require.NoError(t, s.Apply(Config{Enabled: true, Schedule: "@every 1s"}))
	assert.False(t, s.Next().IsZero())
	require.Eventually(t, func() bool { return target.calls() >= 1 }, 3*time.Second, 50*time.Millisecond)
	target.mu.Lock()
	assert.Equal(t, Origin, target.origins[0])
	target.mu.Unlock()
}

func TestApplyDisableAndReplace(t *testing.T) {
	s := New(&fakeClearer{}, logx.Nop())
	defer s.Stop()

	require.NoError(t, s.Apply(Config{Enabled: true, Schedule: "@daily", Timezone: "UTC"}))
	next := s.Next()
	assert.Equal(t, time.UTC, next.Location())
	assert.Zero(t, next.Hour())

	require.NoError(t, s.Apply(Config{Enabled: true, Schedule: "@daily", Timezone: "UTC"}))
	assert.Equal(t, next, s.Next())

	assert.Error(t, s.Apply(Config{Enabled: true, Schedule: "bogus"}))
	assert.Equal(t, next, s.Next(), "a rejected config keeps the running schedule")

	require.NoError(t, s.Apply(Config{}))
	assert.True(t, s.Next().IsZero())
}
