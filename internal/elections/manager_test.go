package elections

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/ledger/internal/ledger"
	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/store"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

type fakeWeights struct {
	weights map[ledgertypes.Account]ledgertypes.Amount
	online  ledgertypes.Amount
}

func (f fakeWeights) RepresentativeWeight(acct ledgertypes.Account) ledgertypes.Amount {
	return f.weights[acct]
}
func (f fakeWeights) OnlineWeight() ledgertypes.Amount { return f.online }

type keyedRep struct {
	pub  ledgertypes.Account
	priv ed25519.PrivateKey
}

func newKeyedRep(t *testing.T) keyedRep {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	var acct ledgertypes.Account
	copy(acct[:], pub)
	return keyedRep{pub: acct, priv: priv}
}

func (k keyedRep) vote(seq uint64, hashes ...ledgertypes.Hash) Vote {
	v := Vote{Account: k.pub, Sequence: seq, Hashes: hashes}
	v.Signature = ledgertypes.SignatureFromBytes(ed25519.Sign(k.priv, v.signingPayload()))
	return v
}

func TestProcessVoteIngestsAndTallies(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rep := newKeyedRep(t)
	weights := fakeWeights{weights: map[ledgertypes.Account]ledgertypes.Amount{rep.pub: ledgertypes.NewAmount(500_000)}, online: ledgertypes.NewAmount(1_000_000)}

	m := NewManager(Options{Weights: weights, Clock: clock, OnlineMinimum: ledgertypes.NewAmount(1)})

	winner := &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{1}}
	root := hashWith(1)
	e := m.Start(root, winner)
	require.Equal(t, winner.Hash(), e.Winner)

	changed := m.ProcessVote(rep.vote(1, winner.Hash()))
	require.Equal(t, []ledgertypes.Hash{root}, changed)
	require.Equal(t, "500000", e.Tally[winner.Hash()].String())
}

func TestProcessVoteRejectsStaleSequence(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rep := newKeyedRep(t)
	weights := fakeWeights{weights: map[ledgertypes.Account]ledgertypes.Amount{rep.pub: ledgertypes.NewAmount(900_000)}, online: ledgertypes.NewAmount(1_000_000)}
	m := NewManager(Options{Weights: weights, Clock: clock, OnlineMinimum: ledgertypes.NewAmount(1)})

	winner := &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{1}}
	altBlock := &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{1}, SourceHash: hashWith(9)}
	root := hashWith(1)
	m.Start(root, winner)
	m.AddAlternate(root, altBlock)

	m.ProcessVote(rep.vote(5, winner.Hash()))
	clock.advance(2 * time.Second)
	changed := m.ProcessVote(rep.vote(3, altBlock.Hash())) // stale sequence, ignored
	require.Empty(t, changed)

	e, _ := m.Get(root)
	require.Equal(t, "900000", e.Tally[winner.Hash()].String())
}

func TestProcessVoteHonorsCooldownBeforeReplacing(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rep := newKeyedRep(t)
	// 3% of online weight -> 5s cooldown band.
	weights := fakeWeights{weights: map[ledgertypes.Account]ledgertypes.Amount{rep.pub: ledgertypes.NewAmount(30_000)}, online: ledgertypes.NewAmount(1_000_000)}
	m := NewManager(Options{Weights: weights, Clock: clock, OnlineMinimum: ledgertypes.NewAmount(1)})

	winner := &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{1}}
	altBlock := &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{1}, SourceHash: hashWith(9)}
	root := hashWith(1)
	m.Start(root, winner)
	m.AddAlternate(root, altBlock)

	m.ProcessVote(rep.vote(1, winner.Hash()))
	clock.advance(1 * time.Second) // still inside the 5s cooldown
	changed := m.ProcessVote(rep.vote(2, altBlock.Hash()))
	require.Empty(t, changed)

	clock.advance(5 * time.Second) // now past cooldown
	changed = m.ProcessVote(rep.vote(3, altBlock.Hash()))
	require.Equal(t, []ledgertypes.Hash{root}, changed)

	e, _ := m.Get(root)
	require.Equal(t, "30000", e.Tally[altBlock.Hash()].String())
	require.Equal(t, "0", e.Tally[winner.Hash()].String())
}

func openLedgerStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func seedFundedGenesis(t *testing.T, tx *store.Txn, genesis keyedRep, balance ledgertypes.Amount) ledgertypes.Hash {
	t.Helper()
	blk := &ledgertypes.OpenBlock{Representative: genesis.pub, AccountID: genesis.pub}
	hash := blk.Hash()
	blk.Sig = ledgertypes.SignatureFromBytes(ed25519.Sign(genesis.priv, hash[:]))

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

// TestCheckQuorumSwitchesWinnerAndConfirms builds two competing sends from
// the same previous, applies the weaker one first as the provisional
// winner, then proves a vote-weighted quorum on the stronger fork rolls
// the weak one back and re-applies the winner before confirming.
func TestCheckQuorumSwitchesWinnerAndConfirms(t *testing.T) {
	s := openLedgerStore(t)
	proc := ledger.NewProcessor(ledgertypes.Hash(ledgertypes.EpochLink), ledgertypes.EpochSigner)
	genesis := newKeyedRep(t)
	destA := newKeyedRep(t)
	destB := newKeyedRep(t)

	var head ledgertypes.Hash
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		head = seedFundedGenesis(t, tx, genesis, ledgertypes.NewAmount(1_000_000))
		return nil
	}))

	sendA := &ledgertypes.SendBlock{PreviousHash: head, Destination: destA.pub, Balance: ledgertypes.NewAmount(900_000)}
	sendA.Sig = ledgertypes.SignatureFromBytes(ed25519.Sign(genesis.priv, sendA.Hash()[:]))
	sendB := &ledgertypes.SendBlock{PreviousHash: head, Destination: destB.pub, Balance: ledgertypes.NewAmount(800_000)}
	sendB.Sig = ledgertypes.SignatureFromBytes(ed25519.Sign(genesis.priv, sendB.Hash()[:]))

	require.NoError(t, s.Update(func(tx *store.Txn) error {
		res := proc.Process(tx, sendA)
		require.Equal(t, ledger.Progress, res.Code)
		return nil
	}))

	rep1 := newKeyedRep(t)
	rep2 := newKeyedRep(t)
	weights := fakeWeights{
		weights: map[ledgertypes.Account]ledgertypes.Amount{
			rep1.pub: ledgertypes.NewAmount(500_000),
			rep2.pub: ledgertypes.NewAmount(500_000),
		},
		online: ledgertypes.NewAmount(1_000_000),
	}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var confirmed ledgertypes.Hash
	m := NewManager(Options{
		Processor:     proc,
		Weights:       weights,
		Clock:         clock,
		OnlineMinimum: ledgertypes.NewAmount(1),
		Observer:      func(h ledgertypes.Hash) { confirmed = h },
	})

	root := head
	m.Start(root, sendA)
	m.AddAlternate(root, sendB)

	m.ProcessVote(rep1.vote(1, sendB.Hash()))
	m.ProcessVote(rep2.vote(1, sendB.Hash()))

	var confirmedNow bool
	require.NoError(t, s.Update(func(tx *store.Txn) error {
		var err error
		confirmedNow, err = m.CheckQuorum(tx, root)
		return err
	}))
	require.True(t, confirmedNow)
	require.Equal(t, sendB.Hash(), confirmed)

	require.NoError(t, s.View(func(tx *store.Txn) error {
		require.True(t, tx.HasBlock(sendB.Hash()))
		require.False(t, tx.HasBlock(sendA.Hash()))
		return nil
	}))

	e, _ := m.Get(root)
	require.Equal(t, sendB.Hash(), e.Winner)
	require.True(t, e.Confirmed)
}

func TestTickReapsConfirmedElectionsPastCutoff(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rep := newKeyedRep(t)
	weights := fakeWeights{weights: map[ledgertypes.Account]ledgertypes.Amount{rep.pub: ledgertypes.NewAmount(1)}, online: ledgertypes.NewAmount(1)}
	m := NewManager(Options{Weights: weights, Clock: clock, AnnouncementCutoff: 2, OnlineMinimum: ledgertypes.NewAmount(1)})

	winner := &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{1}}
	root := hashWith(1)
	e := m.Start(root, winner)
	e.Confirmed = true

	toAnnounce, reaped := m.Tick()
	require.Empty(t, toAnnounce)
	require.Empty(t, reaped)

	toAnnounce, reaped = m.Tick()
	require.Empty(t, toAnnounce)
	require.Equal(t, []ledgertypes.Hash{root}, reaped)
}
