package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by notifnuke components.
const (
	CountChanged     = "count.changed"     // Data: CountChange
	MonitorState     = "monitor.state"     // Data: string ("running" | "stopped")
	GateMode         = "gate.mode"         // Data: GateChange
	ClearRequested   = "clear.requested"   // Data: ClearRequest
	ClearFailed      = "clear.failed"      // Data: error string
	LoginItemChanged = "loginitem.changed" // Data: LoginItemChange
)

// CountChange is the payload of CountChanged.
type CountChange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// ClearRequest is the payload of ClearRequested.
type ClearRequest struct {
	Origin string `json:"origin"` // cli | telegram | schedule | api
}

// GateChange is the payload of GateMode. Modes use the gate.Mode names;
// Cause is "user" for explicit start/stop and "activity" for foreground changes.
type GateChange struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Cause string `json:"cause"`
}

// LoginItemChange is the payload of LoginItemChanged.
type LoginItemChange struct {
	Origin    string `json:"origin"`
	Enabled   bool   `json:"enabled"`
	Confirmed bool   `json:"confirmed"`
	Error     string `json:"error,omitempty"`
}

// Event is a lightweight, in-memory signal used to decouple components.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Subscribers MUST use buffered channels.
//   - Slow subscribers may drop events (bounded backpressure).
type Event struct {
	Type string
	Time time.Time
	Data any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns a simple in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

// Publish is a nil-safe helper for optional buses.
func Publish(b Bus, typ string, data any) {
	if b == nil {
		return
	}
	b.Publish(Event{Type: typ, Data: data})
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Delivery happens under the read lock so unsubscribe (write lock) never closes a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}
