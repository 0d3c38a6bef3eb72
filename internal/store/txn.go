package store

import (
	"go.etcd.io/bbolt"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// Txn is a single bbolt transaction exposing typed table accessors. A Txn
// from Store.View is read-only; write methods called on one return
// bbolt's own "tx not writable" error.
type Txn struct {
	tx *bbolt.Tx
}

func newTxn(tx *bbolt.Tx) *Txn { return &Txn{tx: tx} }

func (t *Txn) bucket(name []byte) *bbolt.Bucket { return t.tx.Bucket(name) }

// Empty reports whether the blocks table has no entries yet (used to
// decide whether genesis still needs to be written).
func (t *Txn) Empty() bool {
	c := t.bucket(bucketBlocks).Cursor()
	k, _ := c.First()
	return k == nil
}

// --- blocks ---

func (t *Txn) HasBlock(hash ledgertypes.Hash) bool {
	return t.bucket(bucketBlocks).Get(hash[:]) != nil
}

func (t *Txn) GetBlock(hash ledgertypes.Hash) (ledgertypes.StoredBlock, error) {
	raw := t.bucket(bucketBlocks).Get(hash[:])
	if raw == nil {
		return ledgertypes.StoredBlock{}, ErrBlockNotFound
	}
	return DecodeStoredBlock(raw)
}

func (t *Txn) PutBlock(hash ledgertypes.Hash, sb ledgertypes.StoredBlock) error {
	raw, err := EncodeStoredBlock(sb)
	if err != nil {
		return err
	}
	return t.bucket(bucketBlocks).Put(hash[:], raw)
}

func (t *Txn) DeleteBlock(hash ledgertypes.Hash) error {
	return t.bucket(bucketBlocks).Delete(hash[:])
}

// --- accounts ---

func (t *Txn) GetAccount(acct ledgertypes.Account) (ledgertypes.AccountInfo, error) {
	raw := t.bucket(bucketAccounts).Get(acct[:])
	if raw == nil {
		return ledgertypes.AccountInfo{}, ErrAccountNotFound
	}
	return ledgertypes.DecodeAccountInfo(raw), nil
}

func (t *Txn) PutAccount(acct ledgertypes.Account, info ledgertypes.AccountInfo) error {
	return t.bucket(bucketAccounts).Put(acct[:], info.Encode())
}

func (t *Txn) DeleteAccount(acct ledgertypes.Account) error {
	return t.bucket(bucketAccounts).Delete(acct[:])
}

// --- pending ---

func pendingKeyBytes(k ledgertypes.PendingKey) []byte {
	out := make([]byte, ledgertypes.HashSize*2)
	copy(out[:ledgertypes.HashSize], k.Destination[:])
	copy(out[ledgertypes.HashSize:], k.SendHash[:])
	return out
}

func (t *Txn) GetPending(k ledgertypes.PendingKey) (ledgertypes.PendingInfo, error) {
	raw := t.bucket(bucketPending).Get(pendingKeyBytes(k))
	if raw == nil {
		return ledgertypes.PendingInfo{}, ErrPendingNotFound
	}
	return ledgertypes.DecodePendingInfo(raw), nil
}

func (t *Txn) PutPending(k ledgertypes.PendingKey, info ledgertypes.PendingInfo) error {
	return t.bucket(bucketPending).Put(pendingKeyBytes(k), info.Encode())
}

func (t *Txn) DeletePending(k ledgertypes.PendingKey) error {
	return t.bucket(bucketPending).Delete(pendingKeyBytes(k))
}

// --- representation (voting weight, keyed by representative account) ---

func (t *Txn) GetRepresentation(rep ledgertypes.Account) ledgertypes.Amount {
	raw := t.bucket(bucketRepresentation).Get(rep[:])
	if raw == nil {
		return ledgertypes.ZeroAmount()
	}
	return ledgertypes.AmountFromBytes(raw)
}

func (t *Txn) putRepresentation(rep ledgertypes.Account, amount ledgertypes.Amount) error {
	return t.bucket(bucketRepresentation).Put(rep[:], amount.Bytes())
}

// AddRepresentation increases rep's tallied weight by amount.
func (t *Txn) AddRepresentation(rep ledgertypes.Account, amount ledgertypes.Amount) error {
	return t.putRepresentation(rep, t.GetRepresentation(rep).Add(amount))
}

// SubRepresentation decreases rep's tallied weight by amount. Callers
// guarantee amount <= current weight; representative bookkeeping in
// internal/ledger only ever reverses a prior AddRepresentation.
func (t *Txn) SubRepresentation(rep ledgertypes.Account, amount ledgertypes.Amount) error {
	return t.putRepresentation(rep, t.GetRepresentation(rep).Sub(amount))
}

// SumRepresentation totals every representative's tallied weight, the
// online-weight sampler's per-interval input (§4.4 online weight).
func (t *Txn) SumRepresentation() ledgertypes.Amount {
	total := ledgertypes.ZeroAmount()
	_ = t.bucket(bucketRepresentation).ForEach(func(_, v []byte) error {
		total = total.Add(ledgertypes.AmountFromBytes(v))
		return nil
	})
	return total
}

// --- frontiers (legacy chains only; unused for state-headed accounts) ---

func (t *Txn) GetFrontier(hash ledgertypes.Hash) (ledgertypes.Account, error) {
	raw := t.bucket(bucketFrontiers).Get(hash[:])
	if raw == nil {
		return ledgertypes.Account{}, ErrFrontierNotFound
	}
	return ledgertypes.AccountFromBytes(raw), nil
}

func (t *Txn) AddFrontier(hash ledgertypes.Hash, acct ledgertypes.Account) error {
	return t.bucket(bucketFrontiers).Put(hash[:], acct[:])
}

func (t *Txn) DeleteFrontier(hash ledgertypes.Hash) error {
	return t.bucket(bucketFrontiers).Delete(hash[:])
}

// CountFrontiers reports how many rows the frontiers table holds (one
// per account whose head is a legacy, non-state block), for the
// diagnostics subcommand (§6.3). Confirmation height is not consulted.
func (t *Txn) CountFrontiers() int {
	return t.bucket(bucketFrontiers).Stats().KeyN
}

// CountBlocks reports the total number of blocks held, for the
// diagnostics subcommand (§6.3).
func (t *Txn) CountBlocks() int {
	return t.bucket(bucketBlocks).Stats().KeyN
}

// --- confirmation height ---

func (t *Txn) GetConfirmationHeight(acct ledgertypes.Account) (ledgertypes.Height, ledgertypes.Hash, error) {
	raw := t.bucket(bucketConfirmationHeight).Get(acct[:])
	if raw == nil {
		return 0, ledgertypes.ZeroHash, ErrConfirmationMissing
	}
	h, frontier := decodeConfirmationHeight(raw)
	return h, frontier, nil
}

func (t *Txn) PutConfirmationHeight(acct ledgertypes.Account, height ledgertypes.Height, frontier ledgertypes.Hash) error {
	return t.bucket(bucketConfirmationHeight).Put(acct[:], encodeConfirmationHeight(height, frontier))
}

// --- pruned ---

func (t *Txn) IsPruned(hash ledgertypes.Hash) bool {
	return t.bucket(bucketPruned).Get(hash[:]) != nil
}

func (t *Txn) PutPruned(hash ledgertypes.Hash) error {
	return t.bucket(bucketPruned).Put(hash[:], []byte{1})
}

// --- unchecked (persisted gap-block overflow; the in-memory buffer in
// internal/unchecked is authoritative for hot lookups, this bucket is the
// durable backstop across restarts) ---

func uncheckedKeyBytes(dependency, blockHash ledgertypes.Hash) []byte {
	out := make([]byte, ledgertypes.HashSize*2)
	copy(out[:ledgertypes.HashSize], dependency[:])
	copy(out[ledgertypes.HashSize:], blockHash[:])
	return out
}

func (t *Txn) PutUnchecked(dependency ledgertypes.Hash, blk ledgertypes.StoredBlock) error {
	raw, err := EncodeStoredBlock(blk)
	if err != nil {
		return err
	}
	return t.bucket(bucketUnchecked).Put(uncheckedKeyBytes(dependency, blk.Block.Hash()), raw)
}

// GetUnchecked returns every block buffered against dependency.
func (t *Txn) GetUnchecked(dependency ledgertypes.Hash) ([]ledgertypes.StoredBlock, error) {
	c := t.bucket(bucketUnchecked).Cursor()
	var out []ledgertypes.StoredBlock
	prefix := dependency[:]
	for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
		sb, err := DecodeStoredBlock(v)
		if err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, nil
}

func (t *Txn) DeleteUnchecked(dependency, blockHash ledgertypes.Hash) error {
	return t.bucket(bucketUnchecked).Delete(uncheckedKeyBytes(dependency, blockHash))
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

// --- online weight samples, keyed by sample unix-nano timestamp ---

func (t *Txn) PutOnlineWeightSample(timestamp int64, amount ledgertypes.Amount) error {
	key := make([]byte, 8)
	putUint64Key(key, uint64(timestamp))
	return t.bucket(bucketOnlineWeight).Put(key, amount.Bytes())
}

// OnlineWeightSamples returns every persisted sample in ascending
// timestamp order.
func (t *Txn) OnlineWeightSamples() ([]ledgertypes.Amount, error) {
	c := t.bucket(bucketOnlineWeight).Cursor()
	var out []ledgertypes.Amount
	for k, v := c.First(); k != nil; k, v = c.Next() {
		out = append(out, ledgertypes.AmountFromBytes(v))
	}
	return out, nil
}

func putUint64Key(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[7-i] = byte(v >> (8 * i))
	}
}
