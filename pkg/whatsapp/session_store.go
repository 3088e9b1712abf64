package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	_ "modernc.org/sqlite"

	"github.com/onurcolak/wa-pairing-service/pkg/logger"
)

const sessionDBFile = "whatsmeow.db"

// SessionStore owns the whatsmeow device store kept under a single
// directory. Wipe removes the directory wholesale and opens a fresh store.
type SessionStore struct {
	dir string

	mu        sync.Mutex
	db        *sql.DB
	container *sqlstore.Container
	device    *store.Device
}

func OpenSessionStore(ctx context.Context, dir string) (*SessionStore, error) {
	s := &SessionStore{dir: dir}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) open(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(s.dir, sessionDBFile),
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite", newLogger("store"))
	if err := container.Upgrade(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to upgrade session database: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load device: %w", err)
	}

	s.db = db
	s.container = container
	s.device = device

	if device.ID != nil {
		logger.Infof("Loaded WhatsApp session for %s", device.ID.String())
	} else {
		logger.Infof("No WhatsApp session found in %s, starting unpaired", s.dir)
	}

	return nil
}

// Device returns the current device. It changes after Wipe.
func (s *SessionStore) Device() *store.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *SessionStore) HasCredentials() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device != nil && s.device.ID != nil
}

// Save flushes the device credentials. An unpaired device has nothing to save.
func (s *SessionStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil || s.device.ID == nil {
		return nil
	}
	if err := s.device.Save(ctx); err != nil {
		return fmt.Errorf("failed to save session credentials: %w", err)
	}
	return nil
}

func (s *SessionStore) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Warnf("Failed to close session database before wipe: %v", err)
		}
		s.db = nil
	}

	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove session dir: %w", err)
	}

	logger.Warnf("Session credentials wiped from %s", s.dir)

	return s.open(ctx)
}

func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// WipeDir removes a session directory without opening it. Used by the CLI
// while the server is not running.
func WipeDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove session dir: %w", err)
	}
	return nil
}
