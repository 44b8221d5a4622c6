package source

import (
	"context"
	"sync"
)

// Memory is an in-process notification center.
type Memory struct {
	mu        sync.Mutex
	count     int
	readErr   error
	removeErr error
}

func NewMemory(initial int) *Memory {
	if initial < 0 {
		initial = 0
	}
	return &Memory{count: initial}
}

// Deliver adds n notifications.
func (m *Memory) Deliver(n int) {
	m.mu.Lock()
	m.count += n
	if m.count < 0 {
		m.count = 0
	}
	m.mu.Unlock()
}

// FailReads makes DeliveredCount return err until called again with nil.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// FailRemovals makes RemoveAllDelivered return err until called again with nil.
func (m *Memory) FailRemovals(err error) {
	m.mu.Lock()
	m.removeErr = err
	m.mu.Unlock()
}

func (m *Memory) DeliveredCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.count, nil
}

func (m *Memory) RemoveAllDelivered(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	m.count = 0
	return nil
}
