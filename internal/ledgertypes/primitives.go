// Package ledgertypes defines the primitive identifiers, block variants and
// derived metadata shared by every ledger subsystem.
package ledgertypes

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"math/big"
)

// HashSize is the width in bytes of a block hash, account or public key.
const HashSize = 32

// SignatureSize is the width in bytes of an Ed25519 signature.
const SignatureSize = 64

// AmountSize is the width in bytes of a 128-bit balance as stored on disk.
const AmountSize = 16

// Hash identifies a block by its content digest.
type Hash [HashSize]byte

// ZeroHash is the canonical empty/unset hash.
var ZeroHash Hash

// IsZero reports whether h is the unset hash.
func (h Hash) IsZero() bool { return h == ZeroHash }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// Bytes returns a copy of the hash bytes.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// Compare orders two hashes lexicographically, matching on-disk key order.
func (h Hash) Compare(o Hash) int { return bytes.Compare(h[:], o[:]) }

// HashFromBytes copies b (which must be HashSize long) into a Hash.
func HashFromBytes(b []byte) (h Hash) {
	copy(h[:], b)
	return h
}

// Account is an Ed25519 public key that owns an independent block chain.
type Account [HashSize]byte

// ZeroAccount is the distinguished burn account: all-zero key.
var ZeroAccount Account

// IsZero reports whether a is the burn account.
func (a Account) IsZero() bool { return a == ZeroAccount }

func (a Account) String() string { return hex.EncodeToString(a[:]) }

// Bytes returns a copy of the account's public-key bytes.
func (a Account) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, a[:])
	return b
}

// AccountFromBytes copies b into an Account.
func AccountFromBytes(b []byte) (a Account) {
	copy(a[:], b)
	return a
}

// PublicKey is an alias of Account used where a key is addressed in a
// signing role rather than an account-identity role (epoch signer, for
// instance, signs blocks for accounts it does not own).
type PublicKey = Account

// Signature is a raw Ed25519 signature.
type Signature [SignatureSize]byte

// Bytes returns a copy of the signature bytes.
func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s[:])
	return b
}

// SignatureFromBytes copies b into a Signature.
func SignatureFromBytes(b []byte) (s Signature) {
	copy(s[:], b)
	return s
}

// Height is a 1-based block index on an account chain; block_count equals
// the height of head.
type Height uint64

// Epoch is a monotone per-account upgrade generation. Epoch-upgrade blocks
// never move value.
type Epoch uint8

const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2
)

// Amount is an unsigned 128-bit quantity, stored on disk as 16 big-endian
// bytes (table schema, §6.1) and manipulated in memory via math/big so that
// arithmetic never silently wraps.
type Amount struct {
	v big.Int
}

// ZeroAmount is the additive identity.
func ZeroAmount() Amount { return Amount{} }

// NewAmount builds an Amount from a uint64 (convenience for tests/genesis).
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// AmountFromBytes parses a 16-byte big-endian unsigned value.
func AmountFromBytes(b []byte) Amount {
	var a Amount
	a.v.SetBytes(b)
	return a
}

// AmountFromBigInt wraps an existing big.Int. The big.Int must be
// non-negative and fit in 128 bits; callers within this module guarantee
// that invariant by construction.
func AmountFromBigInt(v *big.Int) Amount {
	var a Amount
	a.v.Set(v)
	return a
}

// Bytes renders the amount as 16 big-endian bytes, matching the `accounts`,
// `pending` and `representation` table value layouts.
func (a Amount) Bytes() []byte {
	out := make([]byte, AmountSize)
	b := a.v.Bytes()
	copy(out[AmountSize-len(b):], b)
	return out
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.v.Add(&a.v, &b.v)
	return out
}

// Sub returns a-b. Callers must not rely on the result when b > a; use Cmp
// first (negative-spend detection, §4.1.3, depends on this ordering check
// happening before subtraction).
func (a Amount) Sub(b Amount) Amount {
	var out Amount
	out.v.Sub(&a.v, &b.v)
	return out
}

// Cmp returns -1, 0 or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// IsZero reports whether the amount is 0.
func (a Amount) IsZero() bool { return a.v.Sign() == 0 }

func (a Amount) String() string { return a.v.String() }

// BigInt returns a copy of the underlying big.Int.
func (a Amount) BigInt() *big.Int { return new(big.Int).Set(&a.v) }

func putUint64(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }
func getUint64(b []byte) uint64    { return binary.BigEndian.Uint64(b) }
