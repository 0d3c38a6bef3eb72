package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/latticenet/ledger/internal/rpcboundary"
)

func newAccountCreateCmd(configPath, walletPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "account_create",
		Short: "generate a new account keypair and store it in the wallet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := loadWalletFile(*walletPath)
			if err != nil {
				return err
			}
			acct, err := ks.Generate()
			if err != nil {
				return fmt.Errorf("generate account: %w", err)
			}
			if err := saveWalletFile(*walletPath, ks); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), acct.String())
			return nil
		},
	}
}

func newAccountGetCmd(configPath *string) *cobra.Command {
	var accountHex string
	cmd := &cobra.Command{
		Use:   "account_get",
		Short: "print an account's head block, balance, and confirmation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := decodeHexAccount("--account", accountHex)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			n, err := buildNode(cfg)
			if err != nil {
				return err
			}
			defer n.ctx.Store.Close()

			view, err := n.adapter.Account(acct)
			if err != nil {
				return newUsageError("account_get: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account: %s\nhead: %s\nbalance: %s\nblock_count: %d\nconfirmation_height: %d\nconfirmed: %v\n",
				view.Account, view.Head, view.Balance.String(), view.BlockCount, view.ConfirmationHeight, view.Confirmed)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountHex, "account", "", "hex-encoded account public key")
	return cmd
}

func newWalletAddCmd(walletPath *string) *cobra.Command {
	var privHex string
	cmd := &cobra.Command{
		Use:   "wallet_add",
		Short: "import an existing ed25519 private key into the wallet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := hex.DecodeString(privHex)
			if err != nil {
				return newUsageError("wallet_add: malformed hex private key")
			}
			ks, err := loadWalletFile(*walletPath)
			if err != nil {
				return err
			}
			acct, err := ks.Import(priv)
			if err != nil {
				return newUsageError("wallet_add: %w", err)
			}
			if err := saveWalletFile(*walletPath, ks); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), acct.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&privHex, "key", "", "hex-encoded ed25519 private key")
	return cmd
}

func newWalletDestroyCmd(walletPath *string) *cobra.Command {
	var accountHex string
	cmd := &cobra.Command{
		Use:   "wallet_destroy",
		Short: "remove an account's key material from the wallet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct, err := decodeHexAccount("--account", accountHex)
			if err != nil {
				return err
			}
			ks, err := loadWalletFile(*walletPath)
			if err != nil {
				return err
			}
			if err := ks.Destroy(acct); err != nil {
				return newUsageError("wallet_destroy: %w", err)
			}
			return saveWalletFile(*walletPath, ks)
		},
	}
	cmd.Flags().StringVar(&accountHex, "account", "", "hex-encoded account public key")
	return cmd
}

func newVacuumCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "compact the ledger store in place",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			n, err := buildNode(cfg)
			if err != nil {
				return err
			}
			defer n.ctx.Store.Close()
			return n.adapter.Vacuum()
		},
	}
}

func newSnapshotCmd(configPath *string) *cobra.Command {
	var destPath string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "write a point-in-time copy of the ledger store to a destination path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if destPath == "" {
				return newUsageError("snapshot: --dest is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			n, err := buildNode(cfg)
			if err != nil {
				return err
			}
			defer n.ctx.Store.Close()
			return n.adapter.Snapshot(destPath)
		},
	}
	cmd.Flags().StringVar(&destPath, "dest", "", "destination file path for the snapshot")
	return cmd
}

func newDiagnosticsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "print a human-readable node health snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			n, err := buildNode(cfg)
			if err != nil {
				return err
			}
			defer n.ctx.Store.Close()

			var report rpcboundary.DiagnosticsReport
			report, err = n.adapter.Report()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ledger_block_count: %d\nactive_elections: %d\nunchecked_buffered: %d\nonline_weight: %s\nunconfirmed_frontier: %d\n",
				report.LedgerBlockCount, report.ActiveElections, report.UncheckedBuffered, report.OnlineWeight.String(), report.UnconfirmedFrontier)
			return nil
		},
	}
}
