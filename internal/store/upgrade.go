package store

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

// upgradeStep mutates the database from one schema version to the next.
// Steps do not get a write transaction of their own: upgrade runs the
// whole chain, version stamps included, inside one write transaction, so
// a crash mid-upgrade leaves the database at its original version, never
// half-migrated.
type upgradeStep func(tx *bbolt.Tx) error

// upgradeChain maps "from version" to the step that produces "from+1".
// It holds no steps so far (schemaVersion is 1); a future bump adds an
// entry here rather than rewriting the ones before it.
var upgradeChain = map[uint64]upgradeStep{}

func readVersion(tx *bbolt.Tx) uint64 {
	raw := tx.Bucket(bucketMeta).Get(metaVersionKey)
	if raw == nil {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func writeVersion(tx *bbolt.Tx, v uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return tx.Bucket(bucketMeta).Put(metaVersionKey, buf)
}

// upgrade walks the database from its on-disk version up to
// schemaVersion, applying one upgradeStep per version and persisting the
// new version number in the same transaction as the step itself. A
// database newer than this build understands is refused outright rather
// than silently reinterpreted.
func upgrade(s *Store) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		current := readVersion(tx)
		if current == 0 {
			// Fresh database: stamp it at the current version, no steps to run.
			return writeVersion(tx, schemaVersion)
		}
		if current > schemaVersion {
			return fmt.Errorf("%w: on-disk version %d, build supports %d", ErrDowngradeRefused, current, schemaVersion)
		}
		for current < schemaVersion {
			step, ok := upgradeChain[current]
			if !ok {
				return fmt.Errorf("%w: no upgrade step from version %d", ErrUnsupportedVersion, current)
			}
			if err := step(tx); err != nil {
				return fmt.Errorf("store: upgrade step from version %d: %w", current, err)
			}
			current++
			if err := writeVersion(tx, current); err != nil {
				return err
			}
		}
		return nil
	})
}
