// Package onlineweight tracks a rolling median of the total voting weight
// seen actively participating in consensus, used to scale quorum
// thresholds against currently-online representatives rather than the
// full (mostly offline) weight distribution (§4.4).
package onlineweight

import (
	"sort"
	"sync"
	"time"

	"github.com/latticenet/ledger/internal/ledgertypes"
)

// Sample is one persisted weight observation.
type Sample struct {
	Timestamp int64
	Weight    ledgertypes.Amount
}

// Sampler keeps a bounded window of samples in memory and computes the
// rolling median on demand. The store's online_weight table is the
// durable backing; Sampler itself is the in-memory working set a node
// consults on every quorum check without touching disk.
type Sampler struct {
	mu         sync.Mutex
	samples    []Sample
	windowSize int

	hasMinimum bool
	minimum    ledgertypes.Amount
}

// New builds a Sampler bounded to windowSize most-recent samples.
func New(windowSize int) *Sampler {
	if windowSize <= 0 {
		windowSize = 4032 // one sample every 5 minutes for two weeks
	}
	return &Sampler{windowSize: windowSize}
}

// SetMinimum sets a configured minimum that Median adds to the windowed
// samples as one extra value before taking the median. With an empty
// window Median returns the minimum itself; once samples exist the
// median can still fall below it when most samples are lower.
func (s *Sampler) SetMinimum(minimum ledgertypes.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasMinimum = true
	s.minimum = minimum
}

// Seed preloads persisted samples (oldest first) on startup.
func (s *Sampler) Seed(samples []Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(samples) > s.windowSize {
		samples = samples[len(samples)-s.windowSize:]
	}
	s.samples = append([]Sample(nil), samples...)
}

// Record adds a new sample, evicting the oldest once the window is full.
func (s *Sampler) Record(now time.Time, weight ledgertypes.Amount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, Sample{Timestamp: now.UnixNano(), Weight: weight})
	if len(s.samples) > s.windowSize {
		s.samples = s.samples[len(s.samples)-s.windowSize:]
	}
}

// Median returns the median of every currently windowed sample. Online
// weight trails the true total by design (it rises as representatives
// vote and decays only as old samples fall out of the window), so the
// median — not the max or the latest sample — is what quorum math uses
// to resist a single burst of votes inflating the threshold.
func (s *Sampler) Median() ledgertypes.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.samples) == 0 {
		if s.hasMinimum {
			return s.minimum
		}
		return ledgertypes.ZeroAmount()
	}
	weights := make([]ledgertypes.Amount, len(s.samples), len(s.samples)+1)
	for i, sample := range s.samples {
		weights[i] = sample.Weight
	}
	if s.hasMinimum {
		weights = append(weights, s.minimum)
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].Cmp(weights[j]) < 0 })

	mid := len(weights) / 2
	if len(weights)%2 == 1 {
		return weights[mid]
	}
	sum := weights[mid-1].Add(weights[mid]).BigInt()
	return ledgertypes.AmountFromBigInt(sum.Rsh(sum, 1))
}

// Count reports how many samples are currently in the window.
func (s *Sampler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}
