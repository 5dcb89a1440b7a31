// Package kv is a key-value store with per-key expiry backed by badger.
// It doubles as fiber.Storage so middleware state shares the same store.
package kv

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

var _ fiber.Storage = (*Store)(nil)

// Store wraps a badger database.
type Store struct {
	db *badger.DB
}

// Open opens a store in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kv: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value for key, or nil without error when the key is
// missing or expired.
func (s *Store) Get(key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return val, err
}

// Set stores val under key. A ttl of zero never expires.
func (s *Store) Set(key string, val []byte, ttl time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry(key, val, ttl))
	})
}

// SetNX stores val only if key is absent and reports whether it did.
// Losing a race to another writer reports false without an error.
func (s *Store) SetNX(key string, val []byte, ttl time.Duration) (bool, error) {
	stored := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		stored = true
		return txn.SetEntry(entry(key, val, ttl))
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent writer touched key first.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored, nil
}

// Exists reports whether key holds a live value.
func (s *Store) Exists(key string) (bool, error) {
	v, err := s.Get(key)
	return v != nil, err
}

// TTL returns the remaining lifetime of key, zero for keys without expiry.
func (s *Store) TTL(key string) (time.Duration, error) {
	var ttl time.Duration
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if exp := item.ExpiresAt(); exp > 0 {
			ttl = time.Until(time.Unix(int64(exp), 0))
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	return ttl, err
}

// Scan returns every live key with the given prefix.
func (s *Store) Scan(prefix string) (map[string][]byte, error) {
	out := map[string][]byte{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.KeyCopy(nil))] = v
		}
		return nil
	})
	return out, err
}

func (s *Store) Delete(key string) error {
	if key == "" {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// DeletePrefix removes every key with the given prefix.
func (s *Store) DeletePrefix(prefix string) error {
	if strings.TrimSpace(prefix) == "" {
		return errors.New("kv: empty prefix")
	}
	return s.db.DropPrefix([]byte(prefix))
}

// Reset drops every key.
func (s *Store) Reset() error {
	return s.db.DropAll()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetJSON encodes v and stores it under key.
func (s *Store) SetJSON(key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(key, raw, ttl)
}

// GetJSON decodes the value under key into v and reports whether it existed.
func (s *Store) GetJSON(key string, v any) (bool, error) {
	raw, err := s.Get(key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

func entry(key string, val []byte, ttl time.Duration) *badger.Entry {
	e := badger.NewEntry([]byte(key), val)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return e
}
