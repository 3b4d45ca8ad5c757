// Package localdb is the durable local mirror of client state.
//
// It wraps a Badger database with typed get/set helpers that follow the
// local-first contract: reads that fail for any reason return the caller's
// default, writes that fail are logged and dropped. The mirror is never the
// source of truth; in-memory state wins and is rewritten on every change,
// so a lost write costs at most the last delta, never a crash.
package localdb

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys for the mirrored state slices, shared with the browser-era
// data this replaces.
const (
	KeyItems        = "promptnote_items"
	KeyCollections  = "promptnote_collections"
	KeyTags         = "promptnote_tags"
	KeyViewMode     = "promptnote_view_mode"
	KeyAuthToken    = "promptnote_auth_token"
	KeyRefreshToken = "promptnote_refresh_token"
	KeyTokenExpiry  = "promptnote_token_expiry"
	KeyUser         = "promptnote_user"
)

// Internal key prefixes for structured records.
const (
	previewCachePrefix  = "preview_cache:"  // preview_cache:{url} → CachedPreview
	pendingDeletePrefix = "pending_delete:" // pending_delete:{itemID}:{enqueued-nanos} → PendingDelete
)

// DB wraps a Badger database instance.
type DB struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the local database at path.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Local durability is the whole point of this mirror
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open local db: %w", err)
	}

	logger.Info("local database opened", "path", path)

	return &DB{db: bdb, logger: logger}, nil
}

// Close gracefully closes the database.
func (d *DB) Close() error {
	d.logger.Info("closing local database")
	return d.db.Close()
}

// Get reads and unmarshals the value under key. Missing keys, unparseable
// values and storage errors all log and yield def. The caller never sees an
// error.
func Get[T any](d *DB, key string, def T) T {
	var out T
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			d.logger.Warn("local read failed, using default", "key", key, "error", err)
		}
		return def
	}
	return out
}

// Set marshals and writes the value under key. Failures are logged and
// swallowed.
func Set[T any](d *DB, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		d.logger.Error("local write failed to marshal", "key", key, "error", err)
		return
	}
	err = d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		d.logger.Error("local write failed", "key", key, "error", err)
	}
}

// Remove deletes the value under key, best effort. Absent keys are a no-op.
func (d *DB) Remove(key string) {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		d.logger.Warn("local delete failed", "key", key, "error", err)
	}
}

// listPrefix collects every value under prefix into out via fn.
func (d *DB) listPrefix(prefix string, fn func(key string, val []byte)) {
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			err := it.Item().Value(func(val []byte) error {
				fn(key, val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		d.logger.Warn("local scan failed", "prefix", prefix, "error", err)
	}
}
