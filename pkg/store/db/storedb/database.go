package storedb

import (
	"errors"
	"fmt"

	"parley/pkg/state/logger"

	"github.com/cockroachdb/pebble"
)

// Store wraps the pebble instance holding all chat state.
type Store struct {
	Client *pebble.DB
	path   string
	noSync bool
}

// Options tunes the pebble instance.
type Options struct {
	// NoSync commits without fsync. Tests only.
	NoSync bool
}

func Open(path string, o Options) (*Store, error) {
	opts := &pebble.Options{
		DisableWAL: false,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, err
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{Client: db, path: path, noSync: o.NoSync}, nil
}

func (s *Store) Close() error {
	if s == nil || s.Client == nil {
		return nil
	}
	if err := s.Client.Close(); err != nil {
		return err
	}
	s.Client = nil
	return nil
}

func (s *Store) Ready() bool {
	return s != nil && s.Client != nil
}

func (s *Store) Path() string {
	return s.path
}

func IsNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}

func (s *Store) WriteOpt() *pebble.WriteOptions {
	if s.noSync {
		return pebble.NoSync
	}
	return pebble.Sync
}

func (s *Store) check() error {
	if s == nil || s.Client == nil {
		return fmt.Errorf("pebble not opened; call storedb.Open first")
	}
	return nil
}

// GetKey returns a copy of the value at key, or pebble.ErrNotFound.
func (s *Store) GetKey(key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	v, closer, err := s.Client.Get([]byte(key))
	if err != nil {
		if IsNotFound(err) {
			logger.Debug("get_key_missing", "key", key)
		} else {
			logger.Error("get_key_failed", "key", key, "error", err)
		}
		return nil, err
	}
	defer closer.Close()
	out := make([]byte, len(v))
	copy(out, v)
	logger.Debug("get_key_ok", "key", key, "len", len(out))
	return out, nil
}

func (s *Store) Has(key string) (bool, error) {
	_, err := s.GetKey(key)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) SaveKey(key string, value []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.Client.Set([]byte(key), value, s.WriteOpt()); err != nil {
		logger.Error("save_key_failed", "key", key, "error", err)
		return err
	}
	logger.Debug("save_key_ok", "key", key, "len", len(value))
	return nil
}

func (s *Store) DeleteKey(key string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.Client.Delete([]byte(key), s.WriteOpt()); err != nil {
		logger.Error("delete_key_failed", "key", key, "error", err)
		return err
	}
	logger.Debug("delete_key_ok", "key", key)
	return nil
}
