// Command latticed runs a lattice ledger node and exposes the §6.3
// CLI surface (account_create, account_get, wallet_add, wallet_destroy,
// vacuum, snapshot, diagnostics) as cobra subcommands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// usageError marks a failure the CLI surface itself rejected (bad
// flags, malformed hex, unknown account) as distinct from an
// operational failure (store I/O, signature verification plumbing),
// so main can map each to its §6.3 exit code.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func newUsageError(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, "error:", usageErr.Error())
			return 1
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string
	var walletPath string

	cmd := &cobra.Command{
		Use:           "latticed",
		Short:         "lattice ledger node and wallet CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to node YAML config (defaults baked in if omitted)")
	cmd.PersistentFlags().StringVar(&walletPath, "wallet-file", "wallet.json", "path to the local keystore file")

	cmd.AddCommand(
		newRunCmd(&configPath),
		newAccountCreateCmd(&configPath, &walletPath),
		newAccountGetCmd(&configPath),
		newWalletAddCmd(&walletPath),
		newWalletDestroyCmd(&walletPath),
		newVacuumCmd(&configPath),
		newSnapshotCmd(&configPath),
		newDiagnosticsCmd(&configPath),
	)
	return cmd
}
