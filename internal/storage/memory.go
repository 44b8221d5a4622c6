package storage

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu       sync.Mutex
	closed   bool
	settings map[string]string
	audit    []AuditEntry
}

// NewMemory returns a store that lives as long as the process.
func NewMemory() Store {
	return &memoryStore{settings: map[string]string{}}
}

func (s *memoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	key, err := validKey(key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *memoryStore) PutSetting(_ context.Context, key, value string) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.settings[key] = value
	return nil
}

func (s *memoryStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.audit = append(s.audit, prepareAudit(e))
	return nil
}

func (s *memoryStore) RecentAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return newestFirst(s.audit, limit), nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func newestFirst(in []AuditEntry, limit int) []AuditEntry {
	if limit <= 0 || limit > len(in) {
		limit = len(in)
	}
	out := make([]AuditEntry, 0, limit)
	for i := len(in) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, in[i])
	}
	return out
}
