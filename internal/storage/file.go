package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "notifnuke/pkg/logx"
)

// fileStore keeps everything in plain files next to each other.
//
// Files:
//   - <prefix>.audit.jsonl            (append-only JSON Lines)
//   - <prefix>.settings.snapshot.json (compacted settings)
//   - <prefix>.settings.journal.jsonl (append-only journal)
//
// The journal is compacted into the snapshot every compactEvery writes and on Close.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	auditPath string
	auditFile *os.File

	snapshotPath string
	journalFile  *os.File
	settings     map[string]string
	writes       int
}

const compactEvery = 64

type settingRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	auditPath := prefix + ".audit.jsonl"
	snapPath := prefix + ".settings.snapshot.json"
	journalPath := prefix + ".settings.journal.jsonl"

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	settings := map[string]string{}
	if err := loadSnapshot(snapPath, settings); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("settings snapshot unreadable; starting from journal", logx.String("path", snapPath), logx.Err(err))
	}
	if err := replayJournal(journalPath, settings); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("settings journal unreadable", logx.String("path", journalPath), logx.Err(err))
	}

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = af.Close()
		return nil, err
	}

	return &fileStore{
		log:          log,
		auditPath:    auditPath,
		auditFile:    af,
		snapshotPath: snapPath,
		journalFile:  jf,
		settings:     settings,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.journalFile != nil {
		if s.writes > 0 {
			errs = append(errs, s.compactLocked())
		}
		errs = append(errs, s.journalFile.Close())
		s.journalFile = nil
	}
	if s.auditFile != nil {
		errs = append(errs, s.auditFile.Close())
		s.auditFile = nil
	}
	return errors.Join(errs...)
}

func (s *fileStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	key, err := validKey(key)
	if err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return "", false, ErrClosed
	}
	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *fileStore) PutSetting(_ context.Context, key, value string) error {
	key, err := validKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return ErrClosed
	}
	if err := json.NewEncoder(s.journalFile).Encode(settingRecord{Key: key, Value: value}); err != nil {
		return err
	}
	s.settings[key] = value
	s.writes++
	if s.writes%compactEvery == 0 {
		if err := s.compactLocked(); err != nil {
			s.log.Debug("settings compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) AppendAudit(_ context.Context, e AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	return json.NewEncoder(s.auditFile).Encode(prepareAudit(e))
}

func (s *fileStore) RecentAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil, ErrClosed
	}
	f, err := os.Open(s.auditPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		all = append(all, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return newestFirst(all, limit), nil
}

// compactLocked writes the settings map to the snapshot and truncates the journal.
func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.settings); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, io.SeekEnd)
	return err
}

func loadSnapshot(path string, out map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]string
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r settingRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil || r.Key == "" {
			// a torn final line after a crash
			continue
		}
		out[r.Key] = r.Value
	}
	return sc.Err()
}
