package ledger

import (
	"crypto/ed25519"

	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/store"
)

// Processor validates and applies blocks to the store, one write
// transaction per block (§4.1). It carries no mutable state of its own;
// every method takes the transaction it operates within, the same shape
// as gonano's Ledger.addBlock family of methods.
type Processor struct {
	epochLink   ledgertypes.Hash
	epochSigner ledgertypes.Account
}

// NewProcessor builds a Processor. epochLink is the reserved Link value
// that marks a State block as an epoch upgrade; epochSigner is the key
// that must sign such blocks.
func NewProcessor(epochLink ledgertypes.Hash, epochSigner ledgertypes.Account) *Processor {
	return &Processor{epochLink: epochLink, epochSigner: epochSigner}
}

func verify(account ledgertypes.Account, hash ledgertypes.Hash, sig ledgertypes.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(account[:]), hash[:], sig[:])
}

// representativeAsOf walks backward from hash through Send/Receive links
// (which never change a delegate) until it reaches the nearest Open,
// Change or State block, whose declared Representative is the weight
// delegate in effect at hash. A zero hash means an unopened chain, which
// delegates to no one. This mirrors ledger.cpp's ledger::representative,
// expressed as an explicit walk instead of a denormalized cache, since
// Open/Change/State already overwrite AccountInfo.RepresentativeBlock to
// point at themselves the instant they run, which destroys the "previous
// representative" rollback needs before it can read it back out.
func representativeAsOf(tx *store.Txn, hash ledgertypes.Hash) (ledgertypes.Account, error) {
	declaring, err := representativeBlockAsOf(tx, hash)
	if err != nil {
		return ledgertypes.Account{}, err
	}
	if declaring.IsZero() {
		return ledgertypes.ZeroAccount, nil
	}
	stored, err := tx.GetBlock(declaring)
	if err != nil {
		return ledgertypes.Account{}, err
	}
	switch b := stored.Block.(type) {
	case *ledgertypes.OpenBlock:
		return b.Representative, nil
	case *ledgertypes.ChangeBlock:
		return b.Representative, nil
	case *ledgertypes.StateBlock:
		return b.Representative, nil
	default:
		return ledgertypes.Account{}, ErrNotARepresentativeBlock
	}
}

// representativeBlockAsOf walks backward from hash through Send/Receive
// links (which never redeclare a delegate) until it reaches the nearest
// Open, Change or State block, returning that block's hash. A zero hash
// means an unopened chain.
func representativeBlockAsOf(tx *store.Txn, hash ledgertypes.Hash) (ledgertypes.Hash, error) {
	for {
		if hash.IsZero() {
			return ledgertypes.ZeroHash, nil
		}
		stored, err := tx.GetBlock(hash)
		if err != nil {
			return ledgertypes.Hash{}, err
		}
		switch stored.Block.Type() {
		case ledgertypes.BlockTypeOpen, ledgertypes.BlockTypeChange, ledgertypes.BlockTypeState:
			return hash, nil
		default:
			hash = stored.Block.Previous()
		}
	}
}

// Process dispatches to the variant-specific rule set and, on Progress,
// leaves the transaction holding every table mutation the block implies.
// Callers commit (or roll the whole transaction back) themselves.
func (p *Processor) Process(tx *store.Txn, blk ledgertypes.Block) Result {
	switch b := blk.(type) {
	case *ledgertypes.OpenBlock:
		return p.processOpen(tx, b)
	case *ledgertypes.SendBlock:
		return p.processSend(tx, b)
	case *ledgertypes.ReceiveBlock:
		return p.processReceive(tx, b)
	case *ledgertypes.ChangeBlock:
		return p.processChange(tx, b)
	case *ledgertypes.StateBlock:
		return p.processState(tx, b)
	default:
		return Result{Code: BlockPosition}
	}
}

func (p *Processor) processOpen(tx *store.Txn, b *ledgertypes.OpenBlock) Result {
	hash := b.Hash()
	if tx.HasBlock(hash) {
		return Result{Code: Old}
	}
	if b.AccountID.IsZero() {
		return Result{Code: OpenedBurnAccount}
	}
	if !(blockExistsAsSendOrState(tx, b.SourceHash)) {
		return Result{Code: GapSource}
	}
	if !verify(b.AccountID, hash, b.Sig) {
		return Result{Code: BadSignature}
	}
	if _, err := tx.GetAccount(b.AccountID); err == nil {
		return Result{Code: Fork}
	}
	key := ledgertypes.PendingKey{Destination: b.AccountID, SendHash: b.SourceHash}
	pending, err := tx.GetPending(key)
	if err != nil {
		return Result{Code: Unreceivable}
	}
	if pending.Epoch != ledgertypes.Epoch0 {
		return Result{Code: Unreceivable}
	}

	must(tx.DeletePending(key))
	must(tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: b,
		Sideband: ledgertypes.Sideband{
			Account: b.AccountID,
			Balance: pending.Amount,
			Height:  1,
		},
	}))
	must(tx.PutAccount(b.AccountID, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: hash,
		OpenBlock:           hash,
		Balance:             pending.Amount,
		BlockCount:          1,
	}))
	must(tx.AddRepresentation(b.Representative, pending.Amount))
	must(tx.AddFrontier(hash, b.AccountID))

	return Result{Code: Progress, Account: b.AccountID, Amount: pending.Amount, PendingAccount: b.AccountID}
}

func (p *Processor) processChange(tx *store.Txn, b *ledgertypes.ChangeBlock) Result {
	hash := b.Hash()
	if tx.HasBlock(hash) {
		return Result{Code: Old}
	}
	if !tx.HasBlock(b.PreviousHash) {
		return Result{Code: GapPrevious}
	}
	account, err := tx.GetFrontier(b.PreviousHash)
	if err != nil {
		return Result{Code: Fork}
	}
	info, err := tx.GetAccount(account)
	if err != nil || info.Head != b.PreviousHash {
		return Result{Code: Fork}
	}
	if !verify(account, hash, b.Sig) {
		return Result{Code: BadSignature}
	}

	oldRep, err := representativeAsOf(tx, info.Head)
	if err != nil {
		return Result{Code: Fork}
	}

	must(tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: b,
		Sideband: ledgertypes.Sideband{
			Account: account,
			Balance: info.Balance,
			Height:  ledgertypes.Height(uint64(info.BlockCount) + 1),
		},
	}))
	must(tx.AddRepresentation(b.Representative, info.Balance))
	must(tx.SubRepresentation(oldRep, info.Balance))
	must(tx.PutAccount(account, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: hash,
		OpenBlock:           info.OpenBlock,
		Balance:             info.Balance,
		BlockCount:          info.BlockCount + 1,
		Epoch:               info.Epoch,
	}))
	must(tx.DeleteFrontier(b.PreviousHash))
	must(tx.AddFrontier(hash, account))
	must(setSuccessor(tx, b.PreviousHash, hash))

	return Result{Code: Progress, Account: account}
}

func (p *Processor) processSend(tx *store.Txn, b *ledgertypes.SendBlock) Result {
	hash := b.Hash()
	if tx.HasBlock(hash) {
		return Result{Code: Old}
	}
	if !tx.HasBlock(b.PreviousHash) {
		return Result{Code: GapPrevious}
	}
	account, err := tx.GetFrontier(b.PreviousHash)
	if err != nil {
		return Result{Code: Fork}
	}
	if !verify(account, hash, b.Sig) {
		return Result{Code: BadSignature}
	}
	info, err := tx.GetAccount(account)
	if err != nil || info.Head != b.PreviousHash {
		return Result{Code: Fork}
	}
	if info.Balance.Cmp(b.Balance) < 0 {
		return Result{Code: NegativeSpend}
	}

	amount := info.Balance.Sub(b.Balance)
	oldRep, err := representativeAsOf(tx, info.Head)
	if err != nil {
		return Result{Code: Fork}
	}

	must(tx.SubRepresentation(oldRep, amount))
	must(tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: b,
		Sideband: ledgertypes.Sideband{
			Account: account,
			Balance: b.Balance,
			Height:  ledgertypes.Height(uint64(info.BlockCount) + 1),
			Details: ledgertypes.SidebandDetails{IsSend: true},
		},
	}))
	must(tx.PutAccount(account, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: info.RepresentativeBlock,
		OpenBlock:           info.OpenBlock,
		Balance:             b.Balance,
		BlockCount:          info.BlockCount + 1,
		Epoch:               info.Epoch,
	}))
	must(tx.PutPending(
		ledgertypes.PendingKey{Destination: b.Destination, SendHash: hash},
		ledgertypes.PendingInfo{Source: account, Amount: amount, Epoch: ledgertypes.Epoch0},
	))
	must(tx.DeleteFrontier(b.PreviousHash))
	must(tx.AddFrontier(hash, account))
	must(setSuccessor(tx, b.PreviousHash, hash))

	return Result{Code: Progress, Account: account, Amount: amount, PendingAccount: b.Destination}
}

func (p *Processor) processReceive(tx *store.Txn, b *ledgertypes.ReceiveBlock) Result {
	hash := b.Hash()
	if tx.HasBlock(hash) {
		return Result{Code: Old}
	}
	if !tx.HasBlock(b.PreviousHash) {
		return Result{Code: GapPrevious}
	}
	if !blockExistsAsSendOrState(tx, b.SourceHash) {
		return Result{Code: GapSource}
	}
	account, err := tx.GetFrontier(b.PreviousHash)
	if err != nil {
		if tx.HasBlock(b.PreviousHash) {
			return Result{Code: Fork}
		}
		return Result{Code: GapPrevious}
	}
	if !verify(account, hash, b.Sig) {
		return Result{Code: BadSignature}
	}
	info, err := tx.GetAccount(account)
	if err != nil || info.Head != b.PreviousHash {
		return Result{Code: GapPrevious}
	}
	key := ledgertypes.PendingKey{Destination: account, SendHash: b.SourceHash}
	pending, err := tx.GetPending(key)
	if err != nil {
		return Result{Code: Unreceivable}
	}
	if pending.Epoch != ledgertypes.Epoch0 {
		return Result{Code: Unreceivable}
	}

	newBalance := info.Balance.Add(pending.Amount)
	oldRep, err := representativeAsOf(tx, info.Head)
	if err != nil {
		return Result{Code: Fork}
	}

	must(tx.DeletePending(key))
	must(tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: b,
		Sideband: ledgertypes.Sideband{
			Account: account,
			Balance: newBalance,
			Height:  ledgertypes.Height(uint64(info.BlockCount) + 1),
			Details: ledgertypes.SidebandDetails{IsReceive: true},
		},
	}))
	must(tx.PutAccount(account, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: info.RepresentativeBlock,
		OpenBlock:           info.OpenBlock,
		Balance:             newBalance,
		BlockCount:          info.BlockCount + 1,
		Epoch:               info.Epoch,
	}))
	must(tx.AddRepresentation(oldRep, pending.Amount))
	must(tx.DeleteFrontier(b.PreviousHash))
	must(tx.AddFrontier(hash, account))
	must(setSuccessor(tx, b.PreviousHash, hash))

	return Result{Code: Progress, Account: account, Amount: pending.Amount}
}

// processState implements the unified block form: sub-kind (send/receive/
// change/epoch) is derived from the balance delta and Link rather than
// carried explicitly, per §4.1.1 and ledger.cpp's state_block_impl.
func (p *Processor) processState(tx *store.Txn, b *ledgertypes.StateBlock) Result {
	hash := b.Hash()
	if tx.HasBlock(hash) {
		return Result{Code: Old}
	}

	info, accountExists := tx.GetAccount(b.AccountID)
	hasInfo := accountExists == nil

	// Epoch sub-kind: link is the reserved marker, the account already
	// exists, and balance is unchanged from the account's current balance.
	// An epoch-linked block for an unopened account is not treated as an
	// epoch upgrade.
	prevBalance := ledgertypes.ZeroAmount()
	if hasInfo {
		prevBalance = info.Balance
	}
	if b.Link == p.epochLink && b.Balance.Cmp(prevBalance) == 0 && hasInfo {
		return p.processEpoch(tx, b, info)
	}

	if !verify(b.AccountID, hash, b.Sig) {
		return Result{Code: BadSignature}
	}
	if b.AccountID.IsZero() {
		return Result{Code: OpenedBurnAccount}
	}

	epoch := ledgertypes.Epoch0
	isSend := false
	amount := b.Balance

	if hasInfo {
		epoch = info.Epoch
		if b.PreviousHash.IsZero() {
			return Result{Code: Fork}
		}
		if !tx.HasBlock(b.PreviousHash) {
			return Result{Code: GapPrevious}
		}
		isSend = b.Balance.Cmp(info.Balance) < 0
		if isSend {
			amount = info.Balance.Sub(b.Balance)
		} else {
			amount = b.Balance.Sub(info.Balance)
		}
		if b.PreviousHash != info.Head {
			return Result{Code: Fork}
		}
	} else {
		if !b.PreviousHash.IsZero() {
			return Result{Code: GapPrevious}
		}
		if b.Link.IsZero() {
			return Result{Code: GapSource}
		}
	}

	var pendingAccount ledgertypes.Account
	var sourceEpoch ledgertypes.Epoch
	if !isSend {
		if !b.Link.IsZero() {
			if !blockExistsAsSendOrState(tx, b.Link) {
				return Result{Code: GapSource}
			}
			key := ledgertypes.PendingKey{Destination: b.AccountID, SendHash: b.Link}
			pending, err := tx.GetPending(key)
			if err != nil {
				return Result{Code: Unreceivable}
			}
			if amount.Cmp(pending.Amount) != 0 {
				return Result{Code: BalanceMismatch}
			}
			if pending.Epoch > epoch {
				epoch = pending.Epoch
			}
			sourceEpoch = pending.Epoch
			must(tx.DeletePending(key))
		} else if !amount.IsZero() {
			return Result{Code: BalanceMismatch}
		}
	} else {
		pendingAccount = b.Link
	}

	if hasInfo && !info.RepresentativeBlock.IsZero() {
		oldRep, err := representativeAsOf(tx, info.Head)
		if err == nil {
			must(tx.SubRepresentation(oldRep, info.Balance))
		}
	}
	must(tx.AddRepresentation(b.Representative, b.Balance))

	if isSend {
		must(tx.PutPending(
			ledgertypes.PendingKey{Destination: b.Link, SendHash: hash},
			ledgertypes.PendingInfo{Source: b.AccountID, Amount: amount, Epoch: epoch},
		))
	}

	blockCount := ledgertypes.Height(1)
	openBlock := hash
	if hasInfo {
		blockCount = info.BlockCount + 1
		openBlock = info.OpenBlock
	}

	must(tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: b,
		Sideband: ledgertypes.Sideband{
			Account:     b.AccountID,
			Balance:     b.Balance,
			Height:      blockCount,
			SourceEpoch: sourceEpoch,
			Details: ledgertypes.SidebandDetails{
				Epoch:     epoch,
				IsSend:    isSend,
				IsReceive: !isSend && !b.Link.IsZero(),
			},
		},
	}))
	must(tx.PutAccount(b.AccountID, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: hash,
		OpenBlock:           openBlock,
		Balance:             b.Balance,
		BlockCount:          blockCount,
		Epoch:               epoch,
	}))
	if hasInfo {
		// State blocks never touch the frontier table (§4.1.1 supplement);
		// but a legacy-headed chain that just converted to state form still
		// has a stale frontier row pointing at its old head, so drop it.
		_ = tx.DeleteFrontier(info.Head)
		must(setSuccessor(tx, b.PreviousHash, hash))
	}

	return Result{Code: Progress, Account: b.AccountID, Amount: amount, PendingAccount: pendingAccount, PreviousBalance: prevBalance}
}

func (p *Processor) processEpoch(tx *store.Txn, b *ledgertypes.StateBlock, info ledgertypes.AccountInfo) Result {
	hash := b.Hash()
	if !verify(p.epochSigner, hash, b.Sig) {
		return Result{Code: BadSignature}
	}
	if b.PreviousHash != info.Head {
		return Result{Code: Fork}
	}
	oldRep, err := representativeAsOf(tx, info.Head)
	if err != nil {
		return Result{Code: Fork}
	}
	if b.Representative != oldRep {
		return Result{Code: RepresentativeMismatch}
	}
	if info.Epoch != ledgertypes.Epoch0 {
		return Result{Code: BlockPosition}
	}

	must(tx.PutBlock(hash, ledgertypes.StoredBlock{
		Block: b,
		Sideband: ledgertypes.Sideband{
			Account: b.AccountID,
			Balance: info.Balance,
			Height:  info.BlockCount + 1,
			Details: ledgertypes.SidebandDetails{IsEpoch: true, Epoch: ledgertypes.Epoch1},
		},
	}))
	must(tx.PutAccount(b.AccountID, ledgertypes.AccountInfo{
		Head:                hash,
		RepresentativeBlock: hash,
		OpenBlock:           info.OpenBlock,
		Balance:             info.Balance,
		BlockCount:          info.BlockCount + 1,
		Epoch:               ledgertypes.Epoch1,
	}))
	_ = tx.DeleteFrontier(info.Head)
	must(setSuccessor(tx, b.PreviousHash, hash))

	return Result{Code: Progress, Account: b.AccountID}
}

// setSuccessor records hash as the next block appended after prevHash on
// its own account chain, the sideband edge internal/confirmheight walks
// forward over to deliver block_cemented observations in height order.
// prevHash is zero for a chain's first block, which has no predecessor
// to update.
func setSuccessor(tx *store.Txn, prevHash, hash ledgertypes.Hash) error {
	if prevHash.IsZero() {
		return nil
	}
	stored, err := tx.GetBlock(prevHash)
	if err != nil {
		return err
	}
	stored.Sideband.Successor = hash
	return tx.PutBlock(prevHash, stored)
}

// clearSuccessor undoes setSuccessor during rollback, so a deleted
// block's predecessor doesn't keep pointing at a hash that no longer
// exists.
func clearSuccessor(tx *store.Txn, prevHash ledgertypes.Hash) error {
	if prevHash.IsZero() {
		return nil
	}
	stored, err := tx.GetBlock(prevHash)
	if err != nil {
		return err
	}
	stored.Sideband.Successor = ledgertypes.ZeroHash
	return tx.PutBlock(prevHash, stored)
}

func blockExistsAsSendOrState(tx *store.Txn, hash ledgertypes.Hash) bool {
	stored, err := tx.GetBlock(hash)
	if err != nil {
		return false
	}
	switch stored.Block.Type() {
	case ledgertypes.BlockTypeSend, ledgertypes.BlockTypeState:
		return true
	default:
		return false
	}
}

// must panics on a store error raised after a block has already been
// admitted by every precondition check above; at that point a failure can
// only mean the underlying database is broken, not that the block is
// invalid, so there is nothing sensible left to return to the caller.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
