package ledger

import (
	"fmt"

	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/store"
)

// Rollback undoes the block at hash and everything that causally depends
// on it, grounded on ledger.cpp's rollback_visitor. Undoing a send whose
// pending entry was already claimed first rolls back the claimer's own
// chain (and recursively whatever claimed that), since the pending row
// can't be resurrected while something downstream still references it.
func (p *Processor) Rollback(tx *store.Txn, hash ledgertypes.Hash) error {
	stored, err := tx.GetBlock(hash)
	if err != nil {
		return err
	}

	// Later blocks on the same account chain are rolled back first, newest
	// first, until hash is the account's head.
	for {
		info, err := tx.GetAccount(stored.Sideband.Account)
		if err != nil {
			return err
		}
		if info.Head == hash {
			break
		}
		if err := p.Rollback(tx, info.Head); err != nil {
			return err
		}
	}

	switch b := stored.Block.(type) {
	case *ledgertypes.OpenBlock:
		return p.rollbackOpen(tx, b, stored.Sideband)
	case *ledgertypes.SendBlock:
		return p.rollbackSend(tx, b, stored.Sideband)
	case *ledgertypes.ReceiveBlock:
		return p.rollbackReceive(tx, b, stored.Sideband)
	case *ledgertypes.ChangeBlock:
		return p.rollbackChange(tx, b, stored.Sideband)
	case *ledgertypes.StateBlock:
		return p.rollbackState(tx, b, stored.Sideband)
	default:
		return fmt.Errorf("ledger: rollback: unknown block variant %T", stored.Block)
	}
}

func balanceAt(tx *store.Txn, hash ledgertypes.Hash) (ledgertypes.Amount, error) {
	if hash.IsZero() {
		return ledgertypes.ZeroAmount(), nil
	}
	stored, err := tx.GetBlock(hash)
	if err != nil {
		return ledgertypes.Amount{}, err
	}
	return stored.Sideband.Balance, nil
}

func (p *Processor) rollbackSend(tx *store.Txn, b *ledgertypes.SendBlock, sb ledgertypes.Sideband) error {
	hash := b.Hash()
	key := ledgertypes.PendingKey{Destination: b.Destination, SendHash: hash}

	var pending ledgertypes.PendingInfo
	for {
		got, err := tx.GetPending(key)
		if err == nil {
			pending = got
			break
		}
		destInfo, derr := tx.GetAccount(b.Destination)
		if derr != nil {
			return derr
		}
		if err := p.Rollback(tx, destInfo.Head); err != nil {
			return err
		}
	}

	info, err := tx.GetAccount(pending.Source)
	if err != nil {
		return err
	}
	rep, err := representativeAsOf(tx, hash)
	if err != nil {
		return err
	}
	prevBalance, err := balanceAt(tx, b.PreviousHash)
	if err != nil {
		return err
	}

	must(tx.DeletePending(key))
	must(tx.AddRepresentation(rep, pending.Amount))
	must(tx.PutAccount(pending.Source, ledgertypes.AccountInfo{
		Head:                b.PreviousHash,
		RepresentativeBlock: info.RepresentativeBlock,
		OpenBlock:           info.OpenBlock,
		Balance:             prevBalance,
		BlockCount:          info.BlockCount - 1,
		Epoch:               info.Epoch,
	}))
	must(tx.DeleteBlock(hash))
	must(tx.DeleteFrontier(hash))
	must(tx.AddFrontier(b.PreviousHash, pending.Source))
	must(clearSuccessor(tx, b.PreviousHash))

	return nil
}

func (p *Processor) rollbackReceive(tx *store.Txn, b *ledgertypes.ReceiveBlock, sb ledgertypes.Sideband) error {
	hash := b.Hash()
	info, err := tx.GetAccount(sb.Account)
	if err != nil {
		return err
	}
	rep, err := representativeAsOf(tx, b.PreviousHash)
	if err != nil {
		return err
	}
	prevBalance, err := balanceAt(tx, b.PreviousHash)
	if err != nil {
		return err
	}
	amount := info.Balance.Sub(prevBalance)

	sourceStored, err := tx.GetBlock(b.SourceHash)
	if err != nil {
		return err
	}

	must(tx.SubRepresentation(rep, amount))
	must(tx.PutPending(
		ledgertypes.PendingKey{Destination: sb.Account, SendHash: b.SourceHash},
		ledgertypes.PendingInfo{Source: sourceStored.Sideband.Account, Amount: amount, Epoch: ledgertypes.Epoch0},
	))
	must(tx.PutAccount(sb.Account, ledgertypes.AccountInfo{
		Head:                b.PreviousHash,
		RepresentativeBlock: info.RepresentativeBlock,
		OpenBlock:           info.OpenBlock,
		Balance:             prevBalance,
		BlockCount:          info.BlockCount - 1,
		Epoch:               info.Epoch,
	}))
	must(tx.DeleteBlock(hash))
	must(tx.DeleteFrontier(hash))
	must(tx.AddFrontier(b.PreviousHash, sb.Account))
	must(clearSuccessor(tx, b.PreviousHash))

	return nil
}

func (p *Processor) rollbackOpen(tx *store.Txn, b *ledgertypes.OpenBlock, sb ledgertypes.Sideband) error {
	hash := b.Hash()
	sourceStored, err := tx.GetBlock(b.SourceHash)
	if err != nil {
		return err
	}

	must(tx.SubRepresentation(b.Representative, sb.Balance))
	must(tx.PutPending(
		ledgertypes.PendingKey{Destination: b.AccountID, SendHash: b.SourceHash},
		ledgertypes.PendingInfo{Source: sourceStored.Sideband.Account, Amount: sb.Balance, Epoch: ledgertypes.Epoch0},
	))
	must(tx.DeleteAccount(b.AccountID))
	must(tx.DeleteBlock(hash))
	must(tx.DeleteFrontier(hash))

	return nil
}

func (p *Processor) rollbackChange(tx *store.Txn, b *ledgertypes.ChangeBlock, sb ledgertypes.Sideband) error {
	hash := b.Hash()
	info, err := tx.GetAccount(sb.Account)
	if err != nil {
		return err
	}
	priorRep, err := representativeAsOf(tx, b.PreviousHash)
	if err != nil {
		return err
	}
	balance, err := balanceAt(tx, b.PreviousHash)
	if err != nil {
		return err
	}

	priorRepBlock, err := representativeBlockAsOf(tx, b.PreviousHash)
	if err != nil {
		return err
	}

	must(tx.AddRepresentation(priorRep, balance))
	must(tx.SubRepresentation(b.Representative, balance))
	must(tx.DeleteBlock(hash))
	must(tx.PutAccount(sb.Account, ledgertypes.AccountInfo{
		Head:                b.PreviousHash,
		RepresentativeBlock: priorRepBlock,
		OpenBlock:           info.OpenBlock,
		Balance:             info.Balance,
		BlockCount:          info.BlockCount - 1,
		Epoch:               info.Epoch,
	}))
	must(tx.DeleteFrontier(hash))
	must(tx.AddFrontier(b.PreviousHash, sb.Account))
	must(clearSuccessor(tx, b.PreviousHash))

	return nil
}

// rollbackState mirrors rollback_visitor::state_block: it must cascade
// through a claimed pending entry exactly like rollbackSend when undoing
// a state-send, since link-addressed sends are claimed the same way.
func (p *Processor) rollbackState(tx *store.Txn, b *ledgertypes.StateBlock, sb ledgertypes.Sideband) error {
	hash := b.Hash()
	rep, err := representativeAsOf(tx, b.PreviousHash)
	if err != nil {
		return err
	}
	balance, err := balanceAt(tx, b.PreviousHash)
	if err != nil {
		return err
	}

	must(tx.SubRepresentation(b.Representative, b.Balance))
	if !rep.IsZero() {
		must(tx.AddRepresentation(rep, balance))
	}

	info, err := tx.GetAccount(b.AccountID)
	if err != nil {
		return err
	}

	isSend := sb.Details.IsSend
	if isSend {
		key := ledgertypes.PendingKey{Destination: b.Link, SendHash: hash}
		for {
			if _, err := tx.GetPending(key); err == nil {
				break
			}
			destInfo, derr := tx.GetAccount(b.Link)
			if derr != nil {
				return derr
			}
			if err := p.Rollback(tx, destInfo.Head); err != nil {
				return err
			}
		}
		must(tx.DeletePending(key))
	} else if !b.Link.IsZero() && b.Link != p.epochLink {
		linkStored, err := tx.GetBlock(b.Link)
		if err != nil {
			return err
		}
		must(tx.PutPending(
			ledgertypes.PendingKey{Destination: b.AccountID, SendHash: b.Link},
			ledgertypes.PendingInfo{
				Source: linkStored.Sideband.Account,
				Amount: b.Balance.Sub(balance),
				Epoch:  linkStored.Sideband.Details.Epoch,
			},
		))
	}

	if b.PreviousHash.IsZero() {
		// This state block opened the account; undoing it removes the
		// account entirely rather than leaving a zero-height stub row.
		must(tx.DeleteAccount(b.AccountID))
		must(tx.DeleteBlock(hash))
		must(clearSuccessor(tx, b.PreviousHash))
		return nil
	}

	priorRepBlock, err := representativeBlockAsOf(tx, b.PreviousHash)
	if err != nil {
		return err
	}
	must(tx.PutAccount(b.AccountID, ledgertypes.AccountInfo{
		Head:                b.PreviousHash,
		RepresentativeBlock: priorRepBlock,
		OpenBlock:           info.OpenBlock,
		Balance:             balance,
		BlockCount:          info.BlockCount - 1,
		Epoch:               info.Epoch,
	}))
	must(tx.DeleteBlock(hash))
	must(clearSuccessor(tx, b.PreviousHash))

	return nil
}
