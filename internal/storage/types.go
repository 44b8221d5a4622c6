package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API used by the app.
type Store interface {
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	PutSetting(ctx context.Context, key, value string) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	// RecentAudit returns up to limit entries, newest first.
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	Close() error
}

// AuditEntry records a user action. Keep it compact and schema-stable.
type AuditEntry struct {
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin"` // cli, telegram, schedule, activity, ...
	Action string    `json:"action"` // clear_all, pause, resume, login_item, ...
	Detail string    `json:"detail,omitempty"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
}

// Setting keys.
const (
	KeyLoginItemIntent = "login_item.intent"
)

func prepareAudit(e AuditEntry) AuditEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()
	return e
}

func validKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("setting key is required")
	}
	return key, nil
}
