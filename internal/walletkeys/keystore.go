// Package walletkeys holds the ed25519 keys used to sign blocks in tests
// and the CLI's account/wallet subcommands (§6.3's account_create/
// wallet_add surface).
package walletkeys

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

var (
	ErrAccountNotFound = errors.New("walletkeys: account not found")
	ErrAccountExists   = errors.New("walletkeys: account already in keystore")
)

// Keystore holds ed25519 keypairs in memory, keyed by account (public
// key). It does not persist to disk; the CLI is responsible for
// serializing/deserializing a keystore across invocations via its own
// wallet file (cmd/latticed writes plaintext hex keys), out of this
// package's scope.
type Keystore struct {
	mu   sync.RWMutex
	keys map[ledgertypes.Account]ed25519.PrivateKey
}

// New builds an empty Keystore.
func New() *Keystore {
	return &Keystore{keys: make(map[ledgertypes.Account]ed25519.PrivateKey)}
}

// Generate creates a new ed25519 keypair, stores it, and returns the
// account (public key) a caller addresses it by.
func (k *Keystore) Generate() (ledgertypes.Account, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ledgertypes.Account{}, err
	}
	var acct ledgertypes.Account
	copy(acct[:], pub)

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[acct]; ok {
		return ledgertypes.Account{}, ErrAccountExists
	}
	k.keys[acct] = priv
	return acct, nil
}

// Import adds an existing private key under its derived account.
func (k *Keystore) Import(priv ed25519.PrivateKey) (ledgertypes.Account, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return ledgertypes.Account{}, errors.New("walletkeys: malformed private key")
	}
	var acct ledgertypes.Account
	copy(acct[:], priv.Public().(ed25519.PublicKey))

	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[acct]; ok {
		return ledgertypes.Account{}, ErrAccountExists
	}
	k.keys[acct] = priv
	return acct, nil
}

// Sign signs hash with acct's private key.
func (k *Keystore) Sign(acct ledgertypes.Account, hash ledgertypes.Hash) (ledgertypes.Signature, error) {
	k.mu.RLock()
	priv, ok := k.keys[acct]
	k.mu.RUnlock()
	if !ok {
		return ledgertypes.Signature{}, ErrAccountNotFound
	}
	return ledgertypes.SignatureFromBytes(ed25519.Sign(priv, hash[:])), nil
}

// Has reports whether acct's private key is held by this keystore.
func (k *Keystore) Has(acct ledgertypes.Account) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[acct]
	return ok
}

// Destroy removes an account's key material from the keystore.
func (k *Keystore) Destroy(acct ledgertypes.Account) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[acct]; !ok {
		return ErrAccountNotFound
	}
	delete(k.keys, acct)
	return nil
}

// Accounts lists every account currently held.
func (k *Keystore) Accounts() []ledgertypes.Account {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]ledgertypes.Account, 0, len(k.keys))
	for acct := range k.keys {
		out = append(out, acct)
	}
	return out
}

// Export returns acct's private key material, for a caller that persists
// it across process restarts (the CLI's own wallet file, out of this
// package's scope per its package doc).
func (k *Keystore) Export(acct ledgertypes.Account) (ed25519.PrivateKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	priv, ok := k.keys[acct]
	if !ok {
		return nil, false
	}
	out := make(ed25519.PrivateKey, len(priv))
	copy(out, priv)
	return out, true
}
