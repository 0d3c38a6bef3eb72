package onlineweight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

func TestMedianOddCount(t *testing.T) {
	s := New(10)
	now := time.Unix(0, 0)
	s.Record(now, ledgertypes.NewAmount(10))
	s.Record(now, ledgertypes.NewAmount(30))
	s.Record(now, ledgertypes.NewAmount(20))

	require.Equal(t, "20", s.Median().String())
}

func TestMedianEvenCountAverages(t *testing.T) {
	s := New(10)
	now := time.Unix(0, 0)
	s.Record(now, ledgertypes.NewAmount(10))
	s.Record(now, ledgertypes.NewAmount(20))

	require.Equal(t, "15", s.Median().String())
}

func TestWindowEvictsOldestSample(t *testing.T) {
	s := New(2)
	now := time.Unix(0, 0)
	s.Record(now, ledgertypes.NewAmount(10))
	s.Record(now, ledgertypes.NewAmount(20))
	s.Record(now, ledgertypes.NewAmount(999))

	require.Equal(t, 2, s.Count())
	require.Equal(t, "509", s.Median().String())
}

func TestEmptySamplerMedianIsZero(t *testing.T) {
	s := New(10)
	require.True(t, s.Median().IsZero())
}

func TestSeedPreloadsAndTrimsToWindow(t *testing.T) {
	s := New(2)
	s.Seed([]Sample{
		{Timestamp: 1, Weight: ledgertypes.NewAmount(1)},
		{Timestamp: 2, Weight: ledgertypes.NewAmount(2)},
		{Timestamp: 3, Weight: ledgertypes.NewAmount(3)},
	})
	require.Equal(t, 2, s.Count())
}
