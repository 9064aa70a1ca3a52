// Feedline - Feed Ranking Delivery Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedline

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/feedline/internal/logging"
	"github.com/tomtom215/feedline/internal/metrics"
)

// maxIncrRetries bounds optimistic retries when concurrent Incr calls
// conflict on the same key.
const maxIncrRetries = 16

// BadgerStore is a Store backed by an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore opens (or creates) a BadgerDB at path. An empty path runs
// badger entirely in memory.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}

	logger := logging.WithComponent("cache").With().Str("cache_type", string(TypeBadger)).Logger()
	logger.Info().Str("path", path).Bool("in_memory", path == "").Msg("Badger cache opened")

	return &BadgerStore{db: db, logger: logger}, nil
}

// Get returns a copy of the value at key.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, bool) {
	if !s.IsAvailable() {
		metrics.RecordCacheLookup(string(TypeBadger), false)
		return nil, false
	}

	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.fail("get", err)
		}
		metrics.RecordCacheLookup(string(TypeBadger), false)
		return nil, false
	}

	metrics.RecordCacheLookup(string(TypeBadger), true)
	return val, true
}

// Set writes value with a native badger TTL.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if !s.IsAvailable() {
		return
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl = clampTTL(ttl); ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		s.fail("set", err)
	}
}

// Delete removes key.
func (s *BadgerStore) Delete(_ context.Context, key string) {
	if !s.IsAvailable() {
		return
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		s.fail("delete", err)
	}
}

// Incr increments the decimal integer at key inside a read-write
// transaction, retrying on conflict. The entry's TTL is preserved.
func (s *BadgerStore) Incr(_ context.Context, key string) int64 {
	if !s.IsAvailable() {
		return 0
	}

	var n int64
	var err error
	for attempt := 0; attempt < maxIncrRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			n = 0
			var expiresAt uint64
			item, getErr := txn.Get([]byte(key))
			switch {
			case getErr == nil:
				expiresAt = item.ExpiresAt()
				if valErr := item.Value(func(v []byte) error {
					if parsed, parseErr := strconv.ParseInt(string(v), 10, 64); parseErr == nil {
						n = parsed
					}
					return nil
				}); valErr != nil {
					return valErr
				}
			case !errors.Is(getErr, badger.ErrKeyNotFound):
				return getErr
			}

			n++
			e := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(n, 10)))
			if expiresAt > 0 {
				if remaining := time.Until(time.Unix(int64(expiresAt), 0)); remaining > 0 {
					e = e.WithTTL(remaining)
				}
			}
			return txn.SetEntry(e)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		s.fail("incr", err)
		return 0
	}
	return n
}

// IsAvailable reports whether the database is open.
func (s *BadgerStore) IsAvailable() bool {
	return s.db != nil && !s.db.IsClosed()
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) fail(op string, err error) {
	metrics.CacheErrors.WithLabelValues(string(TypeBadger), op).Inc()
	s.logger.Debug().Err(err).Str("operation", op).Msg("Cache operation failed, treating as miss")
}
