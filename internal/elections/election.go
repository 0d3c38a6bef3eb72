// Package elections implements the active-elections engine (§4.4): vote
// ingestion with per-weight cooldowns, tally computation, quorum-based
// confirmation, winner switching via rollback/re-apply, and confirmation
// cascade over an election's dependency edges.
package elections

import (
	"time"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// VoteRecord is the most recent vote a Manager has accepted from a given
// representative within an election.
type VoteRecord struct {
	Time     time.Time
	Sequence uint64
	Hash     ledgertypes.Hash
}

// Election tracks the contest over a single chain root, mirroring
// rai/node/active_transactions's election_info fields (§4.4).
type Election struct {
	Root      ledgertypes.Hash
	Winner    ledgertypes.Hash
	Blocks    map[ledgertypes.Hash]ledgertypes.Block
	LastVotes map[ledgertypes.Account]VoteRecord
	Tally     map[ledgertypes.Hash]ledgertypes.Amount

	Announcements           uint32
	confirmedAtAnnouncement uint32
	Confirmed               bool
	Stopped                 bool
	StartTime               time.Time
}

func newElection(root ledgertypes.Hash, winner ledgertypes.Block, now time.Time) *Election {
	e := &Election{
		Root:      root,
		Winner:    winner.Hash(),
		Blocks:    make(map[ledgertypes.Hash]ledgertypes.Block),
		LastVotes: make(map[ledgertypes.Account]VoteRecord),
		Tally:     make(map[ledgertypes.Hash]ledgertypes.Amount),
		StartTime: now,
	}
	e.Blocks[winner.Hash()] = winner
	return e
}

// AddBlock registers an alternate (forked) block as a candidate this
// election may switch its winner to.
func (e *Election) AddBlock(blk ledgertypes.Block) {
	e.Blocks[blk.Hash()] = blk
}

// TallyTotal sums every candidate's tally.
func (e *Election) TallyTotal() ledgertypes.Amount {
	total := ledgertypes.ZeroAmount()
	for _, w := range e.Tally {
		total = total.Add(w)
	}
	return total
}

// BestHash returns the candidate with the highest tally and its weight,
// breaking ties by the lexicographically smaller hash (matching the
// deterministic tie-break vote ingestion uses).
func (e *Election) BestHash() (ledgertypes.Hash, ledgertypes.Amount) {
	var best ledgertypes.Hash
	bestWeight := ledgertypes.ZeroAmount()
	first := true
	for h, w := range e.Tally {
		switch {
		case first:
			best, bestWeight, first = h, w, false
		case w.Cmp(bestWeight) > 0:
			best, bestWeight = h, w
		case w.Cmp(bestWeight) == 0 && h.Compare(best) < 0:
			best = h
		}
	}
	return best, bestWeight
}
