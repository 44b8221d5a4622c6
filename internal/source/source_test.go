package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "notifnuke/pkg/logx"
)

func TestOpenMemory(t *testing.T) {
	src, err := Open(Config{Driver: "Memory", Initial: 4}, logx.Nop())
	require.NoError(t, err)

	n, err := src.DeliveredCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "growl"}, logx.Nop())
	require.Error(t, err)
	assert.False(t, ValidDriver("growl"))
	assert.True(t, ValidDriver(" swaync "))
	assert.True(t, ValidDriver(""))
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(-3)
	m.Deliver(2)

	n, err := m.DeliveredCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	m.FailRemovals(errors.New("denied"))
	require.Error(t, m.RemoveAllDelivered(ctx))
	m.FailRemovals(nil)
	require.NoError(t, m.RemoveAllDelivered(ctx))

	m.FailReads(errors.New("gone"))
	_, err = m.DeliveredCount(ctx)
	require.Error(t, err)
	m.FailReads(nil)
	n, err = m.DeliveredCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory(1).DeliveredCount(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToCount(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int
		wantErr bool
	}{
		{name: "uint32", in: uint32(7), want: 7},
		{name: "int32", in: int32(3), want: 3},
		{name: "negative int32", in: int32(-1), wantErr: true},
		{name: "uint64", in: uint64(12), want: 12},
		{name: "int64", in: int64(0), want: 0},
		{name: "byte", in: byte(2), want: 2},
		{name: "string", in: "3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toCount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
