package rpcboundary

import (
	"golang.org/x/sync/singleflight"

	"github.com/latticenet/ledger/internal/elections"
	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/onlineweight"
	"github.com/latticenet/ledger/internal/store"
	"github.com/latticenet/ledger/internal/unchecked"
	"github.com/latticenet/ledger/internal/walletkeys"
)

// NodeAdapter implements AccountReader, WalletAdmin, Diagnostics, and
// Maintenance directly over a running node's store and keystore,
// letting cmd/latticed hand its subcommand handlers one concrete type
// instead of reimplementing this wiring in the CLI package itself.
type NodeAdapter struct {
	Store      *store.Store
	Keys       *walletkeys.Keystore
	Elections  *elections.Manager
	Unchecked  *unchecked.Buffer
	OnlineRate *onlineweight.Sampler

	// reads collapses concurrent Account() calls for the same account
	// into one store read, for a CLI/RPC surface that may field bursts
	// of repeated lookups (an explorer polling the same hot account).
	reads singleflight.Group
}

var _ AccountReader = (*NodeAdapter)(nil)
var _ WalletAdmin = (*NodeAdapter)(nil)
var _ Diagnostics = (*NodeAdapter)(nil)
var _ Maintenance = (*NodeAdapter)(nil)

func (a *NodeAdapter) Account(acct ledgertypes.Account) (AccountView, error) {
	result, err, _ := a.reads.Do(acct.String(), func() (any, error) {
		var view AccountView
		err := a.Store.View(func(tx *store.Txn) error {
			info, err := tx.GetAccount(acct)
			if err != nil {
				return err
			}
			height, frontier, err := tx.GetConfirmationHeight(acct)
			if err != nil && err != store.ErrConfirmationMissing {
				return err
			}
			view = AccountView{
				Account:             acct,
				Head:                info.Head,
				OpenBlock:           info.OpenBlock,
				RepresentativeBlock: info.RepresentativeBlock,
				Balance:             info.Balance,
				BlockCount:          info.BlockCount,
				ConfirmationHeight:  height,
				Confirmed:           frontier == info.Head,
			}
			return nil
		})
		return view, err
	})
	if err != nil {
		return AccountView{}, err
	}
	return result.(AccountView), nil
}

func (a *NodeAdapter) CreateAccount() (ledgertypes.Account, error) {
	return a.Keys.Generate()
}

func (a *NodeAdapter) ImportAccount(priv []byte) (ledgertypes.Account, error) {
	return a.Keys.Import(priv)
}

func (a *NodeAdapter) DestroyAccount(acct ledgertypes.Account) error {
	return a.Keys.Destroy(acct)
}

func (a *NodeAdapter) ListAccounts() []ledgertypes.Account {
	return a.Keys.Accounts()
}

func (a *NodeAdapter) Report() (DiagnosticsReport, error) {
	var report DiagnosticsReport
	err := a.Store.View(func(tx *store.Txn) error {
		report.LedgerBlockCount = uint64(tx.CountBlocks())
		report.UnconfirmedFrontier = tx.CountFrontiers()
		return nil
	})
	if err != nil {
		return DiagnosticsReport{}, err
	}
	if a.Elections != nil {
		report.ActiveElections = a.Elections.Active()
	}
	if a.Unchecked != nil {
		report.UncheckedBuffered = a.Unchecked.Count()
	}
	if a.OnlineRate != nil {
		report.OnlineWeight = a.OnlineRate.Median()
	}
	return report, nil
}

func (a *NodeAdapter) Vacuum() error {
	return a.Store.Vacuum()
}

func (a *NodeAdapter) Snapshot(destPath string) error {
	return a.Store.Backup(destPath)
}
