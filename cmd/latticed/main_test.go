package main

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunMapsUsageErrorsToExitCodeOne(t *testing.T) {
	code := run([]string{"account_get", "--account", "not-hex"})
	require.Equal(t, 1, code)
}

func TestRunMapsUnknownAccountToExitCodeOne(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	cfgPath := writeTestConfig(t, dbPath)

	var missing [32]byte
	code := run([]string{"account_get", "--config", cfgPath, "--account", hex.EncodeToString(missing[:])})
	require.Equal(t, 1, code)
}

func TestRunSucceedsForAccountCreate(t *testing.T) {
	walletPath := filepath.Join(t.TempDir(), "wallet.json")
	code := run([]string{"account_create", "--wallet-file", walletPath})
	require.Equal(t, 0, code)
}

func TestRunSucceedsForDiagnostics(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	cfgPath := writeTestConfig(t, dbPath)

	code := run([]string{"diagnostics", "--config", cfgPath})
	require.Equal(t, 0, code)
}

func writeTestConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "store:\n  path: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}
