package elections

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

func hashWith(b byte) ledgertypes.Hash {
	var h ledgertypes.Hash
	h[0] = b
	return h
}

func TestBestHashPicksHighestTally(t *testing.T) {
	e := newElection(hashWith(1), &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{9}}, time.Unix(0, 0))
	e.Tally = map[ledgertypes.Hash]ledgertypes.Amount{
		hashWith(2): ledgertypes.NewAmount(10),
		hashWith(3): ledgertypes.NewAmount(50),
	}
	best, weight := e.BestHash()
	require.Equal(t, hashWith(3), best)
	require.Equal(t, "50", weight.String())
}

func TestBestHashTieBreaksOnLowerHash(t *testing.T) {
	e := newElection(hashWith(1), &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{9}}, time.Unix(0, 0))
	e.Tally = map[ledgertypes.Hash]ledgertypes.Amount{
		hashWith(5): ledgertypes.NewAmount(10),
		hashWith(2): ledgertypes.NewAmount(10),
	}
	best, _ := e.BestHash()
	require.Equal(t, hashWith(2), best)
}

func TestTallyTotalSumsAllCandidates(t *testing.T) {
	e := newElection(hashWith(1), &ledgertypes.OpenBlock{AccountID: ledgertypes.Account{9}}, time.Unix(0, 0))
	e.Tally = map[ledgertypes.Hash]ledgertypes.Amount{
		hashWith(2): ledgertypes.NewAmount(10),
		hashWith(3): ledgertypes.NewAmount(50),
	}
	require.Equal(t, "60", e.TallyTotal().String())
}

func TestCooldownBandsMatchWeightFraction(t *testing.T) {
	online := ledgertypes.NewAmount(1_000_000)

	_, admitted := cooldownFor(ledgertypes.NewAmount(500), online) // 0.05%
	require.False(t, admitted)

	d, admitted := cooldownFor(ledgertypes.NewAmount(5_000), online) // 0.5%
	require.True(t, admitted)
	require.Equal(t, 15*time.Second, d)

	d, admitted = cooldownFor(ledgertypes.NewAmount(30_000), online) // 3%
	require.True(t, admitted)
	require.Equal(t, 5*time.Second, d)

	d, admitted = cooldownFor(ledgertypes.NewAmount(100_000), online) // 10%
	require.True(t, admitted)
	require.Equal(t, time.Second, d)
}

func TestLevelPartitionsMatchCooldownBands(t *testing.T) {
	online := ledgertypes.NewAmount(1_000_000)
	require.Equal(t, 0, Level(ledgertypes.NewAmount(500), online))
	require.Equal(t, 1, Level(ledgertypes.NewAmount(5_000), online))
	require.Equal(t, 2, Level(ledgertypes.NewAmount(30_000), online))
	require.Equal(t, 3, Level(ledgertypes.NewAmount(100_000), online))
}
