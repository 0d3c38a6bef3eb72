// Package confirmheight implements the bounded confirmation-height
// processor (§4.5): given a block an election just confirmed, it walks
// backward to each affected account's current cemented frontier,
// follows receive/open/state-receive edges into source accounts, and
// advances confirmation_height for every account touched, publishing
// block_cemented observations in strictly increasing height order per
// account.
//
// Only the bounded variant is implemented (§9 Design Notes, Open
// Question): each Cement call caps the number of blocks it walks and
// defers whatever remains onto an internal queue a later Tick drains,
// rather than walking an unbounded chain to completion inside one call.
package confirmheight

import (
	"go.uber.org/zap"

	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/store"
)

// defaultMaxWalk bounds how many blocks a single Cement/Tick call walks
// before deferring the remainder, keeping each write transaction short
// per §5's soft time cap on held transactions.
const defaultMaxWalk = 4096

// Observer is invoked once per cemented block, in increasing height
// order per account (§4.5 invariant).
type Observer func(account ledgertypes.Account, height ledgertypes.Height, hash ledgertypes.Hash)

// target is one account's pending confirmation-height advance: walk
// from the account's current cemented frontier up to height/tip. cursor
// tracks how far the walk has gotten back from tip so a budget-exceeded
// walk can resume without losing the true tip hash/height it's heading
// towards.
type target struct {
	account ledgertypes.Account
	height  ledgertypes.Height
	tip     ledgertypes.Hash
	cursor  ledgertypes.Hash
}

// Processor drives confirmation-height advancement. It is not
// goroutine-safe on its own; callers serialize Cement/Tick calls the
// same way they serialize ledger writes (§5).
type Processor struct {
	st       *store.Store
	observer Observer
	logger   *zap.Logger
	maxWalk  int

	pending []target
}

// Options configures a Processor.
type Options struct {
	Observer Observer
	Logger   *zap.Logger
	MaxWalk  int
}

// New builds a Processor bound to st.
func New(st *store.Store, opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	maxWalk := opts.MaxWalk
	if maxWalk == 0 {
		maxWalk = defaultMaxWalk
	}
	return &Processor{st: st, observer: opts.Observer, logger: opts.Logger.Named("confirmheight"), maxWalk: maxWalk}
}

// Cement processes a newly confirmed block: determines its account and
// height from the block's sideband, walks backward to that account's
// cemented frontier collecting every account transitively reachable via
// receive/open/state-receive edges, then flushes the resulting
// confirmation-height advances under one write transaction (§4.5).
func (p *Processor) Cement(confirmed ledgertypes.Hash) error {
	return p.st.Update(func(tx *store.Txn) error {
		stored, err := tx.GetBlock(confirmed)
		if err != nil {
			return err
		}
		p.enqueue(tx, stored.Sideband.Account, stored.Sideband.Height, confirmed)
		return p.drain(tx)
	})
}

// enqueue records a (account, height, hash) advance if it's not already
// covered by a pending entry for the same account at an equal or higher
// height (§4.5's "deduplicate work per account").
func (p *Processor) enqueue(tx *store.Txn, account ledgertypes.Account, height ledgertypes.Height, hash ledgertypes.Hash) {
	for i, t := range p.pending {
		if t.account == account {
			if height > t.height {
				p.pending[i].height = height
				p.pending[i].tip = hash
				p.pending[i].cursor = hash
			}
			return
		}
	}
	p.pending = append(p.pending, target{account: account, height: height, tip: hash, cursor: hash})
}

// Tick drains whatever work a prior bounded Cement call deferred. It is
// a no-op when nothing is pending.
func (p *Processor) Tick() error {
	if len(p.pending) == 0 {
		return nil
	}
	return p.st.Update(func(tx *store.Txn) error { return p.drain(tx) })
}

// Pending reports how many accounts still have queued confirmation work.
func (p *Processor) Pending() int { return len(p.pending) }

// drain walks every pending target back to its account's cemented
// frontier (discovering further source-account targets along the way),
// stops once maxWalk blocks have been visited this call, then flushes
// every fully-walked target's new confirmation height and emits
// block_cemented observations forward from the old frontier in height
// order. Caller must hold tx (a write transaction).
func (p *Processor) drain(tx *store.Txn) error {
	walked := 0
	var stillPending []target

	for len(p.pending) > 0 {
		t := p.pending[0]
		p.pending = p.pending[1:]

		curHeight, curFrontier, err := tx.GetConfirmationHeight(t.account)
		if err != nil {
			if err != store.ErrConfirmationMissing {
				return err
			}
			curHeight, curFrontier = 0, ledgertypes.ZeroHash
		}
		if t.height <= curHeight {
			continue
		}

		hash := t.cursor
		done := true
		for hash != curFrontier && !hash.IsZero() {
			if walked >= p.maxWalk {
				// Out of budget: requeue this target to resume the walk from
				// `hash` (still above curFrontier) on the next Tick, keeping
				// the true tip it's heading towards.
				stillPending = append(stillPending, target{account: t.account, height: t.height, tip: t.tip, cursor: hash})
				done = false
				break
			}
			walked++

			stored, err := tx.GetBlock(hash)
			if err != nil {
				return err
			}
			if stored.Sideband.Details.IsReceive || stored.Block.Type() == ledgertypes.BlockTypeOpen {
				if src, ok := sourceOf(stored.Block); ok {
					if srcStored, err := tx.GetBlock(src); err == nil {
						p.enqueue(tx, srcStored.Sideband.Account, srcStored.Sideband.Height, src)
					}
				}
			}
			hash = stored.Block.Previous()
		}
		if !done {
			continue
		}

		if err := p.advance(tx, t.account, curHeight, curFrontier, t.height, t.tip); err != nil {
			return err
		}
	}

	p.pending = append(p.pending, stillPending...)
	return nil
}

// sourceOf returns the cross-account block a receive-shaped block
// depends on: a Receive/Open block's SourceHash, or a state-receive
// block's Link.
func sourceOf(blk ledgertypes.Block) (ledgertypes.Hash, bool) {
	switch b := blk.(type) {
	case *ledgertypes.ReceiveBlock:
		return b.SourceHash, true
	case *ledgertypes.OpenBlock:
		return b.SourceHash, true
	case *ledgertypes.StateBlock:
		if !b.Link.IsZero() && !ledgertypes.IsEpochLink(b.Link) {
			return b.Link, true
		}
	}
	return ledgertypes.ZeroHash, false
}

// advance writes account's new confirmation height and walks forward
// from its old cemented frontier via each block's Successor link,
// firing the observer once per block in increasing height order.
func (p *Processor) advance(tx *store.Txn, account ledgertypes.Account, curHeight ledgertypes.Height, curFrontier ledgertypes.Hash, newHeight ledgertypes.Height, newFrontier ledgertypes.Hash) error {
	if err := tx.PutConfirmationHeight(account, newHeight, newFrontier); err != nil {
		return err
	}

	hash := curFrontier
	for h := curHeight + 1; h <= newHeight; h++ {
		var next ledgertypes.Hash
		if hash.IsZero() {
			info, err := tx.GetAccount(account)
			if err != nil {
				return err
			}
			next = info.OpenBlock
		} else {
			stored, err := tx.GetBlock(hash)
			if err != nil {
				return err
			}
			next = stored.Sideband.Successor
		}
		if next.IsZero() {
			break
		}
		if p.observer != nil {
			p.observer(account, h, next)
		}
		hash = next
	}
	return nil
}
