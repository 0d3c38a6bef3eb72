package store

import (
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Store wraps a bbolt database and owns schema creation/upgrade. All
// access beyond Open/Close goes through a Txn obtained via View/Update:
// a thin manager guarding a lower-level handle with read/write entry
// points.
type Store struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// Options configures Open.
type Options struct {
	ReadOnly bool
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Open opens (creating if absent) the bbolt file at path, ensures every
// table bucket exists, and runs any pending schema upgrade.
func Open(path string, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: opts.ReadOnly,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{db: db, logger: opts.Logger.Named("store")}

	if !opts.ReadOnly {
		if err := s.db.Update(func(tx *bbolt.Tx) error {
			for _, name := range allBuckets {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return fmt.Errorf("create bucket %s: %w", name, err)
				}
			}
			return nil
		}); err != nil {
			db.Close()
			return nil, err
		}

		if err := upgrade(s); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close releases the underlying file handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the bbolt file path, mainly for diagnostics/snapshot commands.
func (s *Store) Path() string { return s.db.Path() }

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(*Txn) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return fn(newTxn(tx))
	})
}

// Update runs fn inside a read-write transaction. All writes within fn
// commit atomically, or none do (§6.1 ACID write transactions).
func (s *Store) Update(fn func(*Txn) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(newTxn(tx))
	})
}

// Backup writes a consistent snapshot of the database to destPath, used
// by the `snapshot` CLI subcommand. upgrade does not call it, so no file
// backup is taken before a schema upgrade runs.
func (s *Store) Backup(destPath string) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(destPath, 0600)
	})
}

// Vacuum compacts the database into a temporary file and renames it
// over the original, reclaiming space left by deleted/overwritten
// pages (the `vacuum` CLI subcommand, §6.3). The caller must hold no
// other open Txn against this Store while it runs; bbolt.Compact reads
// the live db sequentially under its own read transaction.
func (s *Store) Vacuum() error {
	path := s.db.Path()
	tmpPath := path + ".compact"

	dst, err := bbolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("store: vacuum: open tmp: %w", err)
	}
	if err := bbolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: vacuum: compact: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: vacuum: close tmp: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: vacuum: close original: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("store: vacuum: rename: %w", err)
	}

	reopened, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("store: vacuum: reopen: %w", err)
	}
	s.db = reopened
	return nil
}
