package confirmheight

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/ledger/internal/ledger"
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

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func seedGenesis(t *testing.T, tx *store.Txn, genesis keyedAccount, balance ledgertypes.Amount) ledgertypes.Hash {
	t.Helper()
	blk := &ledgertypes.OpenBlock{Representative: genesis.pub, AccountID: genesis.pub}
	hash := blk.Hash()
	blk.Sig = genesis.sign(hash)

	require.NoError(t, tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block:    blk,
		Sideband: ledgertypes.Sideband{Account: genesis.pub, Balance: balance, Height: 1},
	}))
	require.NoError(t, tx.PutAccount(genesis.pub, ledgertypes.AccountInfo{
		Head: hash, RepresentativeBlock: hash, OpenBlock: hash, Balance: balance, BlockCount: 1,
	}))
	require.NoError(t, tx.AddRepresentation(genesis.pub, balance))
	require.NoError(t, tx.AddFrontier(hash, genesis.pub))
	return hash
}

func TestCementAdvancesSingleAccountInOrder(t *testing.T) {
	s := openTestStore(t)
	p := ledger.NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var genesisHead ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		genesisHead = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))

	send1 := &ledgertypes.SendBlock{PreviousHash: genesisHead, Destination: dest.pub, Balance: ledgertypes.NewAmount(900)}
	send1.Sig = genesis.sign(send1.Hash())
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, ledger.Progress, p.Process(tx, send1).Code)
		return nil
	}))

	send2 := &ledgertypes.SendBlock{PreviousHash: send1.Hash(), Destination: dest.pub, Balance: ledgertypes.NewAmount(800)}
	send2.Sig = genesis.sign(send2.Hash())
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, ledger.Progress, p.Process(tx, send2).Code)
		return nil
	}))

	var observed []ledgertypes.Height
	cp := New(s, Options{Observer: func(acct ledgertypes.Account, height ledgertypes.Height, hash ledgertypes.Hash) {
		observed = append(observed, height)
	}})

	require.NoError(t, cp.Cement(send2.Hash()))
	require.Equal(t, []ledgertypes.Height{1, 2, 3}, observed)

	require.NoError(t, s.View(func(tx *store.Txn) error {
		height, frontier, err := tx.GetConfirmationHeight(genesis.pub)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.Height(3), height)
		require.Equal(t, send2.Hash(), frontier)
		return nil
	}))
}

func TestCementIsMonotoneAndIdempotent(t *testing.T) {
	s := openTestStore(t)
	p := ledger.NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var genesisHead ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		genesisHead = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))
	send := &ledgertypes.SendBlock{PreviousHash: genesisHead, Destination: dest.pub, Balance: ledgertypes.NewAmount(900)}
	send.Sig = genesis.sign(send.Hash())
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, ledger.Progress, p.Process(tx, send).Code)
		return nil
	}))

	cp := New(s, Options{})
	require.NoError(t, cp.Cement(send.Hash()))
	require.NoError(t, cp.Cement(genesisHead)) // cementing an older ancestor must not regress height

	require.NoError(t, s.View(func(tx *store.Txn) error {
		height, _, err := tx.GetConfirmationHeight(genesis.pub)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.Height(2), height)
		return nil
	}))
}

func TestCementCascadesIntoSourceAccount(t *testing.T) {
	s := openTestStore(t)
	p := ledger.NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var genesisHead ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		genesisHead = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))

	send := &ledgertypes.SendBlock{PreviousHash: genesisHead, Destination: dest.pub, Balance: ledgertypes.NewAmount(600)}
	send.Sig = genesis.sign(send.Hash())
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, ledger.Progress, p.Process(tx, send).Code)
		return nil
	}))

	open := &ledgertypes.OpenBlock{SourceHash: send.Hash(), Representative: dest.pub, AccountID: dest.pub}
	open.Sig = dest.sign(open.Hash())
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		require.Equal(t, ledger.Progress, p.Process(tx, open).Code)
		return nil
	}))

	cp := New(s, Options{})
	require.NoError(t, cp.Cement(open.Hash()))

	require.NoError(t, s.View(func(tx *store.Txn) error {
		height, _, err := tx.GetConfirmationHeight(dest.pub)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.Height(1), height)

		height, _, err = tx.GetConfirmationHeight(genesis.pub)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.Height(2), height) // the send it received from is cemented too
		return nil
	}))
}

func TestBoundedWalkDefersRemainderToTick(t *testing.T) {
	s := openTestStore(t)
	p := ledger.NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedAccount(t)
	dest := newKeyedAccount(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedGenesis(t, tx, genesis, ledgertypes.NewAmount(1000))
		return nil
	}))

	var last ledgertypes.Hash
	for i := 0; i < 5; i++ {
		send := &ledgertypes.SendBlock{PreviousHash: head, Destination: dest.pub, Balance: ledgertypes.NewAmount(uint64(900 - i))}
		send.Sig = genesis.sign(send.Hash())
		require.NoError(t, s.Update(func(tx *store.Txn) error {
			require.Equal(t, ledger.Progress, p.Process(tx, send).Code)
			return nil
		}))
		head = send.Hash()
		last = send.Hash()
	}

	cp := New(s, Options{MaxWalk: 2})
	require.NoError(t, cp.Cement(last))
	require.Greater(t, cp.Pending(), 0)

	for cp.Pending() > 0 {
		require.NoError(t, cp.Tick())
	}

	require.NoError(t, s.View(func(tx *store.Txn) error {
		height, frontier, err := tx.GetConfirmationHeight(genesis.pub)
		require.NoError(t, err)
		require.Equal(t, ledgertypes.Height(6), height)
		require.Equal(t, last, frontier)
		return nil
	}))
}
