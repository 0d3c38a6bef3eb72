package elections

import (
	"crypto/ed25519"
	"math/big"
	"time"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// Vote is a signed statement from a representative naming the hashes it
// currently favors, one per root it has an opinion on (§4.4).
type Vote struct {
	Account   ledgertypes.Account
	Sequence  uint64
	Hashes    []ledgertypes.Hash
	Signature ledgertypes.Signature
}

// signingPayload is what a vote's signature covers: the sequence number
// followed by every named hash, in order.
func (v Vote) signingPayload() []byte {
	out := make([]byte, 0, 8+len(v.Hashes)*ledgertypes.HashSize)
	var seq [8]byte
	for i := uint(0); i < 8; i++ {
		seq[i] = byte(v.Sequence >> (8 * i))
	}
	out = append(out, seq[:]...)
	for _, h := range v.Hashes {
		out = append(out, h.Bytes()...)
	}
	return out
}

// Verify checks the vote's signature against its claimed account.
func (v Vote) Verify() bool {
	return ed25519.Verify(ed25519.PublicKey(v.Account[:]), v.signingPayload(), v.Signature[:])
}

// weightLevelThresholds are the fractions of online weight that separate
// dropped / 15s / 5s / 1s cooldown bands (§4.4).
var (
	dropThreshold = big.NewFloat(0.001)
	midThreshold  = big.NewFloat(0.01)
	highThreshold = big.NewFloat(0.05)
)

// cooldownFor returns the minimum spacing required between accepted
// votes from a representative carrying weight out of onlineWeight, and
// whether the vote is admitted at all (votes below the drop threshold
// never replace a standing vote).
func cooldownFor(weight, onlineWeight ledgertypes.Amount) (time.Duration, bool) {
	if onlineWeight.IsZero() {
		return 0, true
	}
	ratio := new(big.Float).Quo(new(big.Float).SetInt(weight.BigInt()), new(big.Float).SetInt(onlineWeight.BigInt()))
	switch {
	case ratio.Cmp(dropThreshold) < 0:
		return 0, false
	case ratio.Cmp(midThreshold) < 0:
		return 15 * time.Second, true
	case ratio.Cmp(highThreshold) < 0:
		return 5 * time.Second, true
	default:
		return time.Second, true
	}
}

// Level partitions a representative's weight into the request-selection
// bands of §4.4.1: 0 (below 0.1%, excluded from requests under load), 1
// (>=0.1%), 2 (>=1%), 3 (>=5%).
func Level(weight, onlineWeight ledgertypes.Amount) int {
	if onlineWeight.IsZero() {
		return 0
	}
	ratio := new(big.Float).Quo(new(big.Float).SetInt(weight.BigInt()), new(big.Float).SetInt(onlineWeight.BigInt()))
	switch {
	case ratio.Cmp(dropThreshold) < 0:
		return 0
	case ratio.Cmp(midThreshold) < 0:
		return 1
	case ratio.Cmp(highThreshold) < 0:
		return 2
	default:
		return 3
	}
}
