package ledger

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/store"
)

type keyedAccount struct {
	pub  ledgertypes.Account
	priv ed25519.PrivateKey
}

func newKeyedAccount(t *testing.T) keyedAccount {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var acct ledgertypes.Account
	copy(acct[:], pub)
	return keyedAccount{pub: acct, priv: priv}
}

func (k keyedAccount) sign(h ledgertypes.Hash) ledgertypes.Signature {
	return ledgertypes.SignatureFromBytes(ed25519.Sign(k.priv, h[:]))
}

func openTestStoreForLedger(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

// seedGenesis writes a funded genesis account directly (bypassing Process,
// the way a real node seeds its initial ledger state once at startup)
// so tests can exercise send/receive/open/change against a known balance.
func seedGenesis(t *testing.T, tx *store.Txn, genesis keyedAccount, balance ledgertypes.Amount) ledgertypes.Hash {
	t.Helper()
	blk := &ledgertypes.OpenBlock{
		SourceHash:     ledgertypes.ZeroHash,
		Representative: genesis.pub,
		AccountID:      genesis.pub,
	}
	hash := blk.Hash()
	blk.Sig = genesis.sign(hash)

	require.NoError(t, tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: blk,
		Sideband: ledgertypes.Sideband{
			Account: genesis.pub,
			Balance: balance,
			Height:  1,
		},
	}))
	require.NoError(t, tx.PutAccount(genesis.pub, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: hash,
		OpenBlock:           hash,
		Balance:             balance,
		BlockCount:          1,
	}))
	require.NoError(t, tx.AddRepresentation(genesis.pub, balance))
	require.NoError(t, tx.AddFrontier(hash, genesis.pub))
	return hash
}

func TestSendThenOpenReceivesFullLifecycle(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var genesisHead ledgertypes.Hash
	err := s.Update(func(tx *store.Txn) error {
		genesisHead = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	})
	require.NoError(t, err)

	send := &ledgertypes.SendBlock{
		PreviousHash: genesisHead,
		Destination:  dest.pub,
		Balance:      ledgertypes.NewAmount(600),
	}
	sendHash := send.Hash()
	send.Sig = genesis.sign(sendHash)

	err = s.Update(func(tx *store.Txn) error {
		res := p.Process(tx, send)
		require.Equal(t, Progress, res.Code)
		require.Equal(t, "400", res.Amount.String())
		return nil
	})
	require.NoError(t, err)

	open := &ledgertypes.OpenBlock{
		SourceHash:     sendHash,
		Representative: dest.pub,
		AccountID:      dest.pub,
	}
	openHash := open.Hash()
	open.Sig = dest.sign(openHash)

	err = s.Update(func(tx *store.Txn) error {
		res := p.Process(tx, open)
		require.Equal(t, Progress, res.Code)
		require.Equal(t, "400", res.Amount.String())
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(tx *store.Txn) error {
		info, err := tx.GetAccount(dest.pub)
		require.NoError(t, err)
		require.Equal(t, "400", info.Balance.String())
		require.Equal(t, "400", tx.GetRepresentation(dest.pub).String())
		return nil
	})
	require.NoError(t, err)
}

func TestDuplicateBlockIsOld(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))

	dest := newKeyedAccount(t)
	send := &ledgertypes.SendBlock{PreviousHash: head, Destination: dest.pub, Balance: ledgertypes.NewAmount(900)}
	send.Sig = genesis.sign(send.Hash())

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, Progress, p.Process(tx, send).Code)
		require.Equal(t, Old, p.Process(tx, send).Code)
		return nil
	}))
}

func TestNegativeSpendRejected(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(100))
		return nil
	}))

	dest := newKeyedAccount(t)
	send := &ledgertypes.SendBlock{PreviousHash: head, Destination: dest.pub, Balance: ledgertypes.NewAmount(150)}
	send.Sig = genesis.sign(send.Hash())

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, NegativeSpend, p.Process(tx, send).Code)
		return nil
	}))
}

func TestBadSignatureRejected(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	impostor := newKeyedAccount(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(100))
		return nil
	}))

	dest := newKeyedAccount(t)
	send := &ledgertypes.SendBlock{PreviousHash: head, Destination: dest.pub, Balance: ledgertypes.NewAmount(50)}
	send.Sig = impostor.sign(send.Hash())

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, BadSignature, p.Process(tx, send).Code)
		return nil
	}))
}

func TestGapPreviousOnUnknownPredecessor(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var missing ledgertypes.Hash
	missing[0] = 0xFF
	send := &ledgertypes.SendBlock{PreviousHash: missing, Destination: dest.pub, Balance: ledgertypes.NewAmount(1)}
	send.Sig = genesis.sign(send.Hash())

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, GapPrevious, p.Process(tx, send).Code)
		return nil
	}))
}

func TestSendRollbackRestoresBalanceAndPending(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))

	send := &ledgertypes.SendBlock{PreviousHash: head, Destination: dest.pub, Balance: ledgertypes.NewAmount(700)}
	sendHash := send.Hash()
	send.Sig = genesis.sign(sendHash)

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, Progress, p.Process(tx, send).Code)
		return nil
	}))

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.NoError(t, p.Rollback(tx, sendHash))
		info, err := tx.GetAccount(genesis.pub)
		require.NoError(t, err)
		require.Equal(t, "1000", info.Balance.String())
		require.Equal(t, head, info.Head)
		require.False(t, tx.HasBlock(sendHash))

		_, err = tx.GetPending(ledgertypes.PendingKey{Destination: dest.pub, SendHash: sendHash})
		require.ErrorIs(t, err, store.ErrPendingNotFound)
		return nil
	}))
}

func TestStateBlockEpochUpgradeRequiresEpochSigner(t *testing.T) {
	s := openTestStoreForLedger(t)
	epochSigner := newKeyedAccount(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), epochSigner.pub)

	genesis := newKeyedAccount(t)
	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(500))
		return nil
	}))

	epochBlk := &ledgertypes.StateBlock{
		AccountID:      genesis.pub,
		PreviousHash:   head,
		Representative: genesis.pub,
		Balance:        ledgertypes.NewAmount(500),
		Link:           ledgertypes.Hash(ledgertypes.EpochLink),
	}
	epochBlk.Sig = genesis.sign(epochBlk.Hash())
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, BadSignature, p.Process(tx, epochBlk).Code)
		return nil
	}))

	epochBlk.Sig = epochSigner.sign(epochBlk.Hash())

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		res := p.Process(tx, epochBlk)
		require.Equal(t, Progress, res.Code)
		return nil
	}))

	require.NoError(t, s.View(func(tx *store.Txn) error {
		info, err := tx.GetAccount(genesis.pub)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.Epoch1, info.Epoch)
		return nil
	}))
}

func TestSuccessorLinkMaintainedAcrossApplyAndRollback(t *testing.T) {
	s := openTestStoreForLedger(t)
	p := NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))

	send := &ledgertypes.SendBlock{PreviousHash: head, Destination: dest.pub, Balance: ledgertypes.NewAmount(600)}
	sendHash := send.Hash()
	send.Sig = genesis.sign(sendHash)

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, Progress, p.Process(tx, send).Code)
		return nil
	}))

	require.NoError(t, s.View(func(tx *store.Txn) error {
		stored, err := tx.GetBlock(head)
		require.NoError(t, err)
		require.Equal(t, sendHash, stored.Sideband.Successor)
		return nil
	}))

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.NoError(t, p.Rollback(tx, sendHash))
		stored, err := tx.GetBlock(head)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.ZeroHash, stored.Sideband.Successor)
		return nil
	}))
}
