package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/latticenet/ledger/internal/walletkeys"
)

// walletFile is the on-disk shape wallet_add/wallet_destroy/
// account_create persist between CLI invocations: hex-encoded ed25519
// private keys. walletkeys.Keystore deliberately stays in-memory only
// (its own doc comment defers this to the CLI), so this file is that
// deferred piece — a minimal plaintext format, not an encrypted wallet;
// production key-at-rest protection is wallet UX, out of scope per §1.
type walletFile struct {
	Keys []string `json:"keys"`
}

func loadWalletFile(path string) (*walletkeys.Keystore, error) {
	ks := walletkeys.New()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ks, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet file %s: %w", path, err)
	}
	var wf walletFile
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, newUsageError("parse wallet file %s: %w", path, err)
	}
	for _, k := range wf.Keys {
		priv, err := hex.DecodeString(k)
		if err != nil || len(priv) != ed25519.PrivateKeySize {
			return nil, newUsageError("wallet file %s: malformed key entry", path)
		}
		if _, err := ks.Import(priv); err != nil {
			return nil, fmt.Errorf("import wallet key: %w", err)
		}
	}
	return ks, nil
}

func saveWalletFile(path string, ks *walletkeys.Keystore) error {
	accounts := ks.Accounts()
	wf := walletFile{Keys: make([]string, 0, len(accounts))}
	for _, acct := range accounts {
		priv, ok := ks.Export(acct)
		if !ok {
			continue
		}
		wf.Keys = append(wf.Keys, hex.EncodeToString(priv))
	}
	raw, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet file: %w", err)
	}
	return os.WriteFile(path, raw, 0600)
}
