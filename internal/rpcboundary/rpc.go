// Package rpcboundary specifies the request/response shapes and Go
// interfaces an external collaborator (a wallet, an explorer, the
// node's own CLI) calls against to reach account_create, account_get,
// wallet_add, wallet_destroy, vacuum, snapshot, and diagnostics (§6.3).
// HTTP/JSON-RPC framing and the wire shape of those requests are
// explicitly out of scope (§1 Non-goals): this package stops at the Go
// interface the node-wiring layer implements and cmd/latticed calls
// directly.
package rpcboundary

import (
	"github.com/latticenet/ledger/internal/ledgertypes"
)

// AccountView is the read-only projection account_get returns: enough
// to answer "what does this account look like right now" without
// exposing store-internal types across the boundary.
type AccountView struct {
	Account             ledgertypes.Account
	Head                ledgertypes.Hash
	OpenBlock           ledgertypes.Hash
	RepresentativeBlock ledgertypes.Hash
	Balance             ledgertypes.Amount
	BlockCount          uint64
	ConfirmationHeight  ledgertypes.Height
	Confirmed           bool
}

// AccountReader answers account_get.
type AccountReader interface {
	Account(acct ledgertypes.Account) (AccountView, error)
}

// WalletAdmin backs wallet_add/wallet_destroy/account_create: key
// lifecycle only, no transaction construction (that stays client-side,
// per §1's wallet-UX Non-goal).
type WalletAdmin interface {
	CreateAccount() (ledgertypes.Account, error)
	ImportAccount(priv []byte) (ledgertypes.Account, error)
	DestroyAccount(acct ledgertypes.Account) error
	ListAccounts() []ledgertypes.Account
}

// DiagnosticsReport is what the diagnostics subcommand prints: a
// snapshot of node health a human can read directly, not a metrics
// scrape (internal/metricsx already exposes those to Prometheus).
type DiagnosticsReport struct {
	LedgerBlockCount    uint64
	ActiveElections     int
	UncheckedBuffered   int
	OnlineWeight        ledgertypes.Amount
	UnconfirmedFrontier int
}

// Diagnostics answers the diagnostics subcommand.
type Diagnostics interface {
	Report() (DiagnosticsReport, error)
}

// Maintenance backs vacuum (compact + rename the store file in place)
// and snapshot (point-in-time copy to a destination path), both of
// which operate on internal/store directly rather than through the
// ledger's write path.
type Maintenance interface {
	Vacuum() error
	Snapshot(destPath string) error
}
