// Package work defines the proof-of-work predicate boundary: a node
// accepts a block only once its Work value clears a difficulty threshold
// measured against the block's work root. Computing work is a black box
// the node depends on but never does itself inline on the hot admission
// path (§5.3) — the real search happens out of process or on dedicated
// hardware; this package only verifies.
package work

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// Verifier checks whether a work value clears the difficulty threshold
// for a given root.
type Verifier interface {
	Valid(root ledgertypes.Hash, work uint64) bool
}

// Threshold is a difficulty predicate: work is valid when the blake2b-8
// digest of (work || root), read as a little-endian uint64, is at least
// as large as the threshold — the same construction nano's node uses,
// just re-expressed with blake2b's generic output-size parameter instead
// of a bespoke digest routine.
type Threshold struct {
	Min uint64
}

// NewThreshold builds a Verifier with the given minimum digest value.
func NewThreshold(min uint64) Threshold { return Threshold{Min: min} }

func (t Threshold) Valid(root ledgertypes.Hash, nonce uint64) bool {
	return digest(root, nonce) >= t.Min
}

func digest(root ledgertypes.Hash, nonce uint64) uint64 {
	h, _ := blake2b.New(8, nil)
	var nonceBuf [8]byte
	binary.LittleEndian.PutUint64(nonceBuf[:], nonce)
	h.Write(nonceBuf[:])
	h.Write(root[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// AlwaysValid is a Verifier used in tests and local genesis construction
// where proof-of-work is not the thing under test.
type AlwaysValid struct{}

func (AlwaysValid) Valid(ledgertypes.Hash, uint64) bool { return true }
