// Package settings persists user preferences in a bbolt file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var bucket = []byte("settings")

const (
	keyLanguage   = "language"
	keyLastBackup = "last_backup"
)

// Settings is the full set of user preferences
type Settings struct {
	Language   language.Tag `json:"language"`
	LastBackup *time.Time   `json:"last_backup,omitempty"`
}

// Store reads and writes settings. Values are kept as text under fixed
// keys of a single bucket.
type Store struct {
	db              *bbolt.DB
	defaultLanguage language.Tag
	logger          *zap.Logger
}

// Open opens or creates the settings file at path
func Open(path string, defaultLanguage language.Tag, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}
	return &Store{db: db, defaultLanguage: defaultLanguage, logger: logger.Named("settings")}, nil
}

// Close closes the settings file
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || value == nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (s *Store) put(key, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), []byte(value))
	})
}

// Language returns the selected language, or the default when none was
// saved or the saved one no longer parses
func (s *Store) Language() (language.Tag, error) {
	v, ok, err := s.get(keyLanguage)
	if err != nil || !ok {
		return s.defaultLanguage, err
	}
	tag, err := language.Parse(v)
	if err != nil {
		s.logger.Warn("stored language is invalid", zap.String("value", v), zap.Error(err))
		return s.defaultLanguage, nil
	}
	return tag, nil
}

// SetLanguage saves the selected language
func (s *Store) SetLanguage(tag language.Tag) error {
	if tag == language.Und {
		return errors.New("language cannot be undetermined")
	}
	return s.put(keyLanguage, tag.String())
}

// LastBackup returns when the database was last backed up
func (s *Store) LastBackup() (time.Time, bool, error) {
	v, ok, err := s.get(keyLastBackup)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stored backup time %q: %w", v, err)
	}
	return t, true, nil
}

// SetLastBackup records a finished backup
func (s *Store) SetLastBackup(t time.Time) error {
	return s.put(keyLastBackup, t.UTC().Format(time.RFC3339Nano))
}

// Load returns every setting
func (s *Store) Load() (Settings, error) {
	tag, err := s.Language()
	if err != nil {
		return Settings{}, err
	}
	out := Settings{Language: tag}
	if t, ok, err := s.LastBackup(); err != nil {
		return Settings{}, err
	} else if ok {
		out.LastBackup = &t
	}
	return out, nil
}
