// Package unchecked buffers blocks whose dependency (previous or source)
// hasn't arrived yet, releasing them for re-processing once that
// dependency shows up: a guarded-map buffer, dependency-keyed and
// TTL-evicted, with an LRU-capped dedup index (§3.3, §4.3). It has no
// Start/Stop lifecycle of its own; callers run Evict themselves.
package unchecked

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// entry is one buffered block plus when it arrived, for TTL eviction.
type entry struct {
	block    ledgertypes.StoredBlock
	queuedAt time.Time
}

// Buffer holds blocks keyed by the hash of the dependency they're
// waiting on. A single dependency may gate several blocks (a gap_source
// block and an unrelated gap_previous block can both name the same
// missing hash), so each dependency maps to a small ordered slice rather
// than a single entry.
type Buffer struct {
	mu      sync.Mutex
	waiting map[ledgertypes.Hash][]entry
	seen    *lru.Cache // dedups (dependency, block hash) pairs already buffered
	ttl     time.Duration
	maxSize int
}

// Options configures a Buffer.
type Options struct {
	TTL     time.Duration
	MaxSize int
}

// DefaultOptions mirrors the node's default unchecked-buffer sizing.
func DefaultOptions() Options {
	return Options{TTL: 48 * time.Hour, MaxSize: 65536}
}

// New builds a Buffer. MaxSize bounds the LRU dedup index, not the
// waiting map itself — eviction happens via TTL sweep (Evict), the LRU
// only prevents the same block from being queued twice under memory
// pressure while arriving gossip floods a missing dependency.
func New(opts Options) (*Buffer, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultOptions().MaxSize
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	cache, err := lru.New(opts.MaxSize)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		waiting: make(map[ledgertypes.Hash][]entry),
		seen:    cache,
		ttl:     opts.TTL,
		maxSize: opts.MaxSize,
	}, nil
}

func dedupKey(dependency, blockHash ledgertypes.Hash) [64]byte {
	var k [64]byte
	copy(k[:32], dependency[:])
	copy(k[32:], blockHash[:])
	return k
}

// Put buffers blk against dependency. Returns false if this exact
// (dependency, block) pair is already buffered.
func (b *Buffer) Put(dependency ledgertypes.Hash, blk ledgertypes.StoredBlock) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := dedupKey(dependency, blk.Block.Hash())
	if _, ok := b.seen.Get(key); ok {
		return false
	}
	b.seen.Add(key, struct{}{})
	b.waiting[dependency] = append(b.waiting[dependency], entry{block: blk, queuedAt: time.Now()})
	return true
}

// Release removes and returns every block buffered against dependency,
// called once that dependency is admitted to the ledger.
func (b *Buffer) Release(dependency ledgertypes.Hash) []ledgertypes.StoredBlock {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, ok := b.waiting[dependency]
	if !ok {
		return nil
	}
	delete(b.waiting, dependency)

	out := make([]ledgertypes.StoredBlock, len(entries))
	for i, e := range entries {
		out[i] = e.block
		b.seen.Remove(dedupKey(dependency, e.block.Block.Hash()))
	}
	return out
}

// Count returns the number of dependency keys currently buffered.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiting)
}

// Evict drops every entry older than the buffer's TTL, returning how many
// were dropped. Intended to run on a periodic ticker from the node's
// lifecycle loop.
func (b *Buffer) Evict(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := 0
	for dep, entries := range b.waiting {
		kept := entries[:0]
		for _, e := range entries {
			if now.Sub(e.queuedAt) > b.ttl {
				b.seen.Remove(dedupKey(dep, e.block.Block.Hash()))
				dropped++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(b.waiting, dep)
		} else {
			b.waiting[dep] = kept
		}
	}
	return dropped
}
