package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	b := New()
	a, unsubA := b.Subscribe(1)
	c, unsubC := b.Subscribe(1)
	defer unsubA()
	defer unsubC()

	Publish(b, CountChanged, CountChange{From: 0, To: 3})

	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		assert.Equal(t, CountChanged, e.Type)
		assert.Equal(t, CountChange{From: 0, To: 3}, e.Data)
		assert.False(t, e.Time.IsZero())
	}
}

func TestSlowSubscriberDrops(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: "a"})
	b.Publish(Event{Type: "b"})

	e := <-ch
	assert.Equal(t, "a", e.Type)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %q", extra.Type)
	default:
	}
}

func TestUnsubscribeClosesAndIsIdempotent(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(0)
	unsub()
	unsub()

	_, ok := <-ch
	require.False(t, ok)
	b.Publish(Event{Type: "after"})
	Publish(nil, "ignored", nil)
}
