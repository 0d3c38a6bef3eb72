package ledgertypes

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// BlockType tags the five on-disk block variants (§3.2).
type BlockType uint8

const (
	BlockTypeInvalid BlockType = iota
	BlockTypeOpen
	BlockTypeSend
	BlockTypeReceive
	BlockTypeChange
	BlockTypeState
)

func (t BlockType) String() string {
	switch t {
	case BlockTypeOpen:
		return "open"
	case BlockTypeSend:
		return "send"
	case BlockTypeReceive:
		return "receive"
	case BlockTypeChange:
		return "change"
	case BlockTypeState:
		return "state"
	default:
		return "invalid"
	}
}

// EpochLink is the sentinel Link value that, on a State block whose balance
// is unchanged from its predecessor, marks the block as an epoch-upgrade
// rather than a no-op change (§4.1.1). Node configs may override it as a
// network parameter; the package-level value is a fixed well-known
// constant derived from the ASCII string below so genesis configs need
// not thread it through every call site.
var EpochLink = blake2b.Sum256([]byte("epoch v1 block link"))

// EpochSigner is the distinguished account whose key must sign epoch
// sub-kind State blocks. Supplied via nodectx.Context in production; the
// package-level value is a convenience default for tests and genesis
// construction.
var EpochSigner Account

// Block is implemented by all five on-chain variants. It exposes the
// capability traits a consumer needs without a type switch: hash, root,
// previous, signature, work and work root. The account whose key must
// sign a block is not part of the interface.
type Block interface {
	Type() BlockType
	Hash() Hash
	Root() Hash
	Previous() Hash
	Signature() Signature
	SetSignature(Signature)
	Work() uint64
	SetWork(uint64)
	WorkRoot() Hash
}

// hashFields runs blake2b-256 over the concatenation of fields, tagged with
// the block type so that no two variants can collide on the same byte
// string.
func hashFields(t BlockType, fields ...[]byte) Hash {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{byte(t)})
	for _, f := range fields {
		h.Write(f)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func u64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// OpenBlock is the first block of an account; it receives a send.
type OpenBlock struct {
	SourceHash     Hash
	Representative Account
	AccountID      Account
	Sig            Signature
	WorkNonce      uint64
}

func (b *OpenBlock) Type() BlockType { return BlockTypeOpen }

func (b *OpenBlock) Hash() Hash {
	return hashFields(BlockTypeOpen, b.SourceHash[:], b.Representative[:], b.AccountID[:])
}

func (b *OpenBlock) Root() Hash             { return Hash(b.AccountID) }
func (b *OpenBlock) Previous() Hash         { return ZeroHash }
func (b *OpenBlock) Signature() Signature   { return b.Sig }
func (b *OpenBlock) SetSignature(s Signature) { b.Sig = s }
func (b *OpenBlock) Work() uint64           { return b.WorkNonce }
func (b *OpenBlock) SetWork(w uint64)       { b.WorkNonce = w }
func (b *OpenBlock) WorkRoot() Hash         { return b.Root() }

// SendBlock debits an account and creates a pending entry for destination.
type SendBlock struct {
	PreviousHash Hash
	Destination  Account
	Balance      Amount
	Sig          Signature
	WorkNonce    uint64
}

func (b *SendBlock) Type() BlockType { return BlockTypeSend }

func (b *SendBlock) Hash() Hash {
	return hashFields(BlockTypeSend, b.PreviousHash[:], b.Destination[:], b.Balance.Bytes())
}

func (b *SendBlock) Root() Hash             { return b.PreviousHash }
func (b *SendBlock) Previous() Hash         { return b.PreviousHash }
func (b *SendBlock) Signature() Signature   { return b.Sig }
func (b *SendBlock) SetSignature(s Signature) { b.Sig = s }
func (b *SendBlock) Work() uint64           { return b.WorkNonce }
func (b *SendBlock) SetWork(w uint64)       { b.WorkNonce = w }
func (b *SendBlock) WorkRoot() Hash         { return b.PreviousHash }

// ReceiveBlock credits an account from a referenced send.
type ReceiveBlock struct {
	PreviousHash Hash
	SourceHash   Hash
	Sig          Signature
	WorkNonce    uint64
}

func (b *ReceiveBlock) Type() BlockType { return BlockTypeReceive }

func (b *ReceiveBlock) Hash() Hash {
	return hashFields(BlockTypeReceive, b.PreviousHash[:], b.SourceHash[:])
}

func (b *ReceiveBlock) Root() Hash             { return b.PreviousHash }
func (b *ReceiveBlock) Previous() Hash         { return b.PreviousHash }
func (b *ReceiveBlock) Signature() Signature   { return b.Sig }
func (b *ReceiveBlock) SetSignature(s Signature) { b.Sig = s }
func (b *ReceiveBlock) Work() uint64           { return b.WorkNonce }
func (b *ReceiveBlock) SetWork(w uint64)       { b.WorkNonce = w }
func (b *ReceiveBlock) WorkRoot() Hash         { return b.PreviousHash }

// ChangeBlock changes an account's voting delegate.
type ChangeBlock struct {
	PreviousHash   Hash
	Representative Account
	Sig            Signature
	WorkNonce      uint64
}

func (b *ChangeBlock) Type() BlockType { return BlockTypeChange }

func (b *ChangeBlock) Hash() Hash {
	return hashFields(BlockTypeChange, b.PreviousHash[:], b.Representative[:])
}

func (b *ChangeBlock) Root() Hash             { return b.PreviousHash }
func (b *ChangeBlock) Previous() Hash         { return b.PreviousHash }
func (b *ChangeBlock) Signature() Signature   { return b.Sig }
func (b *ChangeBlock) SetSignature(s Signature) { b.Sig = s }
func (b *ChangeBlock) Work() uint64           { return b.WorkNonce }
func (b *ChangeBlock) SetWork(w uint64)       { b.WorkNonce = w }
func (b *ChangeBlock) WorkRoot() Hash         { return b.PreviousHash }

// StateBlock is the unified block form. The sign of (Balance - prev.Balance)
// together with Link determines the sub-kind (§4.1.1): send, receive,
// change or epoch.
type StateBlock struct {
	AccountID      Account
	PreviousHash   Hash
	Representative Account
	Balance        Amount
	Link           Hash
	Sig            Signature
	WorkNonce      uint64
}

func (b *StateBlock) Type() BlockType { return BlockTypeState }

func (b *StateBlock) Hash() Hash {
	return hashFields(BlockTypeState,
		b.AccountID[:], b.PreviousHash[:], b.Representative[:], b.Balance.Bytes(), b.Link[:])
}

func (b *StateBlock) Root() Hash {
	if !b.PreviousHash.IsZero() {
		return b.PreviousHash
	}
	return Hash(b.AccountID)
}

func (b *StateBlock) Previous() Hash           { return b.PreviousHash }
func (b *StateBlock) Signature() Signature     { return b.Sig }
func (b *StateBlock) SetSignature(s Signature) { b.Sig = s }
func (b *StateBlock) Work() uint64             { return b.WorkNonce }
func (b *StateBlock) SetWork(w uint64)         { b.WorkNonce = w }
func (b *StateBlock) WorkRoot() Hash           { return b.Root() }

// IsEpochLink reports whether link is the reserved epoch-upgrade marker.
func IsEpochLink(link Hash) bool { return link == Hash(EpochLink) }

// SidebandDetails records the derived classification of a block, stored so
// that subsystems never need to re-walk the chain to learn what a block
// did (§3.2).
type SidebandDetails struct {
	Epoch     Epoch
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}

// Sideband is per-block metadata the ledger derives on admission and
// persists alongside the block (§3.2).
type Sideband struct {
	Account     Account
	Successor   Hash
	Balance     Amount
	Height      Height
	Timestamp   int64
	Details     SidebandDetails
	SourceEpoch Epoch
}

// StoredBlock pairs an admitted block with its derived sideband, the unit
// the `blocks` table persists (§6.1).
type StoredBlock struct {
	Block    Block
	Sideband Sideband
}
