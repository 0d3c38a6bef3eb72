// Package ledger implements block admission: validating a block against
// the account chain it extends and applying its effect to the accounts,
// pending and representation tables in one write transaction (§4.1).
package ledger

import "github.com/latticenet/ledger/internal/ledgertypes"

// Code classifies the outcome of processing a single block, mirroring
// the original ledger_processor's process_result enum (ledger.cpp).
type Code int

const (
	Progress Code = iota
	Old
	GapPrevious
	GapSource
	BadSignature
	NegativeSpend
	Unreceivable
	BlockPosition
	Fork
	BalanceMismatch
	OpenedBurnAccount
	RepresentativeMismatch
)

func (c Code) String() string {
	switch c {
	case Progress:
		return "progress"
	case Old:
		return "old"
	case GapPrevious:
		return "gap_previous"
	case GapSource:
		return "gap_source"
	case BadSignature:
		return "bad_signature"
	case NegativeSpend:
		return "negative_spend"
	case Unreceivable:
		return "unreceivable"
	case BlockPosition:
		return "block_position"
	case Fork:
		return "fork"
	case BalanceMismatch:
		return "balance_mismatch"
	case OpenedBurnAccount:
		return "opened_burn_account"
	case RepresentativeMismatch:
		return "representative_mismatch"
	default:
		return "unknown"
	}
}

// Result is the outcome of Process: the classification plus the derived
// facts a caller (unchecked release, election confirmation, metrics)
// needs without re-reading the block.
type Result struct {
	Code            Code
	Account         ledgertypes.Account
	Amount          ledgertypes.Amount
	PendingAccount  ledgertypes.Account
	PreviousBalance ledgertypes.Amount
}
