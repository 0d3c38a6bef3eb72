// Package nodectx bundles the collaborators every subsystem needs
// instead of reaching for package-level globals (spec.md's Design
// Notes call this out explicitly): the store, a work verifier, network
// parameters, and a clock subsystems can fake in tests.
package nodectx

import (
	"time"

	"go.uber.org/zap"

	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/metricsx"
	"github.com/latticenet/ledger/internal/store"
	"github.com/latticenet/ledger/internal/work"
)

// Clock abstracts time so elections/confirmation-height/online-weight
// code can be driven deterministically under test.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NetworkParams are the chain-identity constants every block validation
// path needs: the epoch-upgrade link/signer pair and the genesis
// account this ledger is rooted at.
type NetworkParams struct {
	EpochLink   ledgertypes.Hash
	EpochSigner ledgertypes.Account
	Genesis     ledgertypes.Account
}

// Context bundles the node's shared collaborators. It is constructed
// once at startup and passed explicitly to every subsystem that needs
// it, rather than published as a singleton.
type Context struct {
	Store   *store.Store
	Work    work.Verifier
	Params  NetworkParams
	Clock   Clock
	Metrics *metricsx.Metrics
	Logger  *zap.Logger
}

// New assembles a Context from its parts, with Clock set to
// SystemClock; WithClock swaps in another clock.
func New(st *store.Store, verifier work.Verifier, params NetworkParams, m *metricsx.Metrics, logger *zap.Logger) *Context {
	return &Context{
		Store:   st,
		Work:    verifier,
		Params:  params,
		Clock:   SystemClock{},
		Metrics: m,
		Logger:  logger,
	}
}

// WithClock returns a shallow copy of c using clk instead of the
// default system clock, for deterministic tests.
func (c *Context) WithClock(clk Clock) *Context {
	cp := *c
	cp.Clock = clk
	return &cp
}
