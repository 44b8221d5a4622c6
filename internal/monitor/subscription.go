package monitor

import (
	"fmt"
	"sync"

	logx "notifnuke/pkg/logx"
)

// Subscription is a handle to a registered count listener.
type Subscription struct {
	m    *Monitor
	fn   func(count int)
	once sync.Once
}

// Subscribe registers fn to be called on the UI loop with the new count
// whenever it changes. fn must not call blocking Monitor methods.
func (m *Monitor) Subscribe(fn func(count int)) *Subscription {
	s := &Subscription{m: m, fn: fn}
	if fn == nil {
		return s
	}
	m.subMu.Lock()
	m.subs = append(m.subs, s)
	m.subMu.Unlock()
	return s
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.m == nil {
		return
	}
	s.once.Do(func() {
		m := s.m
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, cur := range m.subs {
			if cur == s {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	})
}

func (m *Monitor) subscribers() []*Subscription {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	return append([]*Subscription(nil), m.subs...)
}

// notify runs on the loop. One listener panicking does not starve the others.
func (m *Monitor) notify(count int) {
	for _, s := range m.subscribers() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.Error("subscriber panicked", logx.String("panic", fmt.Sprint(r)))
				}
			}()
			s.fn(count)
		}()
	}
}
