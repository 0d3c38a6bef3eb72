package elections

import (
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/latticenet/ledger/internal/ledger"
	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/nodectx"
	"github.com/latticenet/ledger/internal/store"
)

// quorumFraction is the fraction of online weight that must separate the
// leading tally from the runner-up for an election to confirm (§4.4).
const quorumFraction = 2.0 / 3.0

// defaultAnnouncementCutoff is how many announcement rounds a confirmed
// election survives before being reaped (§4.4).
const defaultAnnouncementCutoff = 4

// WeightSource reports a representative's current delegated weight and
// the node's current online-weight estimate, closing over whatever view
// of the store and sampler the caller wants (typically a read
// transaction plus internal/onlineweight.Sampler.Median()).
type WeightSource interface {
	RepresentativeWeight(acct ledgertypes.Account) ledgertypes.Amount
	OnlineWeight() ledgertypes.Amount
}

// CementObserver is notified when an election's cascade confirms a
// block; internal/confirmheight wires this to advance cemented heights.
type CementObserver func(hash ledgertypes.Hash)

// Manager tracks every active election, keyed by chain root. At most one
// election exists per root at a time (§4.4).
type Manager struct {
	mu         sync.Mutex
	elections  map[ledgertypes.Hash]*Election
	blockRoots map[ledgertypes.Hash]ledgertypes.Hash

	processor *ledger.Processor
	weights   WeightSource
	clock     nodectx.Clock
	observer  CementObserver
	logger    *zap.Logger

	announcementCutoff uint32
	onlineMinimum      ledgertypes.Amount
	voteLimiter        *rate.Limiter
}

// Options configures a Manager.
type Options struct {
	Processor          *ledger.Processor
	Weights            WeightSource
	Clock              nodectx.Clock
	Observer           CementObserver
	Logger             *zap.Logger
	AnnouncementCutoff uint32
	OnlineMinimum      ledgertypes.Amount
	// VoteRateLimit bounds accepted votes per second before level-based
	// shedding kicks in (§5 Backpressure).
	VoteRateLimit rate.Limit
	VoteBurst     int
}

// NewManager builds a Manager from opts, defaulting anything left zero.
func NewManager(opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = nodectx.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cutoff := opts.AnnouncementCutoff
	if cutoff == 0 {
		cutoff = defaultAnnouncementCutoff
	}
	limit := opts.VoteRateLimit
	if limit == 0 {
		limit = rate.Inf
	}
	burst := opts.VoteBurst
	if burst == 0 {
		burst = 1
	}
	return &Manager{
		elections:           make(map[ledgertypes.Hash]*Election),
		blockRoots:          make(map[ledgertypes.Hash]ledgertypes.Hash),
		processor:           opts.Processor,
		weights:             opts.Weights,
		clock:               opts.Clock,
		observer:            opts.Observer,
		logger:              opts.Logger.Named("elections"),
		announcementCutoff:  cutoff,
		onlineMinimum:       opts.OnlineMinimum,
		voteLimiter:         rate.NewLimiter(limit, burst),
	}
}

// Start opens a new election over root with winner as its initial
// leading candidate, or returns the existing election if one is already
// running for that root.
func (m *Manager) Start(root ledgertypes.Hash, winner ledgertypes.Block) *Election {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.elections[root]; ok {
		return e
	}
	e := newElection(root, winner, m.clock.Now())
	m.elections[root] = e
	m.blockRoots[winner.Hash()] = root
	return e
}

// AddAlternate registers blk as a forked candidate under root's election.
func (m *Manager) AddAlternate(root ledgertypes.Hash, blk ledgertypes.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.elections[root]
	if !ok {
		return
	}
	e.AddBlock(blk)
	m.blockRoots[blk.Hash()] = root
}

// Get returns the election for root, if any.
func (m *Manager) Get(root ledgertypes.Hash) (*Election, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elections[root]
	return e, ok
}

// Active reports how many elections are neither confirmed-and-reaped nor
// explicitly stopped.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.elections {
		if !e.Stopped {
			n++
		}
	}
	return n
}

// ProcessVote ingests a vote, replacing the caller's standing vote on
// each named hash's election when sequence/cooldown rules (§4.4) permit,
// and recomputing that election's tally. It returns the set of roots
// whose tally changed, so the caller can follow up with CheckQuorum.
func (m *Manager) ProcessVote(v Vote) []ledgertypes.Hash {
	if !v.Verify() {
		return nil
	}
	if !m.voteLimiter.Allow() {
		return nil
	}

	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed []ledgertypes.Hash
	for _, h := range v.Hashes {
		root, ok := m.blockRoots[h]
		if !ok {
			continue
		}
		e, ok := m.elections[root]
		if !ok || e.Stopped {
			continue
		}
		if _, known := e.Blocks[h]; !known {
			continue
		}

		last, had := e.LastVotes[v.Account]
		if had {
			if v.Sequence < last.Sequence {
				continue
			}
			if v.Sequence == last.Sequence && h.Compare(last.Hash) >= 0 {
				continue // replay: not strictly newer, not a smaller tie-break hash
			}
			weight := m.weights.RepresentativeWeight(v.Account)
			cooldown, admitted := cooldownFor(weight, m.weights.OnlineWeight())
			if !admitted {
				continue
			}
			if now.Sub(last.Time) < cooldown {
				continue // replay: cooldown has not elapsed
			}
		}

		e.LastVotes[v.Account] = VoteRecord{Time: now, Sequence: v.Sequence, Hash: h}
		m.retally(e)
		changed = append(changed, root)
	}
	return changed
}

// retally recomputes an election's tally from its current LastVotes,
// summing each voter's representative weight onto the hash it most
// recently named (§4.4 Tally). Caller must hold m.mu.
func (m *Manager) retally(e *Election) {
	tally := make(map[ledgertypes.Hash]ledgertypes.Amount, len(e.Blocks))
	for acct, rec := range e.LastVotes {
		w := m.weights.RepresentativeWeight(acct)
		tally[rec.Hash] = tally[rec.Hash].Add(w)
	}
	e.Tally = tally
}

// CheckQuorum evaluates root's election for a winner switch and/or
// confirmation under tx, performing the ledger rollback/re-apply the
// winner switch requires within the same write transaction (§4.4, §5).
// It returns true if the election confirmed as a result of this call.
func (m *Manager) CheckQuorum(tx *store.Txn, root ledgertypes.Hash) (bool, error) {
	m.mu.Lock()
	e, ok := m.elections[root]
	m.mu.Unlock()
	if !ok || e.Stopped {
		return false, nil
	}

	onlineWeight := m.weights.OnlineWeight()
	total := e.TallyTotal()
	best, bestWeight := e.BestHash()

	if !best.IsZero() && total.Cmp(m.onlineMinimum) >= 0 && best != e.Winner {
		if err := m.switchWinner(tx, e, best); err != nil {
			return false, err
		}
	}

	if e.Confirmed {
		return false, nil
	}

	second := secondBest(e.Tally, best)
	delta := scaleAmount(onlineWeight, quorumFraction)
	if bestWeight.Sub(second).Cmp(delta) > 0 && total.Cmp(m.onlineMinimum) >= 0 {
		return true, m.confirm(tx, e)
	}
	return false, nil
}

func secondBest(tally map[ledgertypes.Hash]ledgertypes.Amount, best ledgertypes.Hash) ledgertypes.Amount {
	second := ledgertypes.ZeroAmount()
	for h, w := range tally {
		if h == best {
			continue
		}
		if w.Cmp(second) > 0 {
			second = w
		}
	}
	return second
}

func (m *Manager) switchWinner(tx *store.Txn, e *Election, newWinner ledgertypes.Hash) error {
	blk, ok := e.Blocks[newWinner]
	if !ok {
		return nil
	}
	if err := m.processor.Rollback(tx, e.Winner); err != nil {
		return err
	}
	if res := m.processor.Process(tx, blk); res.Code != ledger.Progress {
		return nil
	}
	m.mu.Lock()
	e.Winner = newWinner
	m.mu.Unlock()
	return nil
}

// confirm marks e confirmed and cascades confirmation to any ancestor
// that is the sole block of its own still-active election (§4.4 Cascade).
func (m *Manager) confirm(tx *store.Txn, e *Election) error {
	m.mu.Lock()
	e.Confirmed = true
	e.confirmedAtAnnouncement = e.Announcements
	winner := e.Blocks[e.Winner]
	m.mu.Unlock()

	if m.observer != nil {
		m.observer(e.Winner)
	}
	if winner == nil {
		return nil
	}

	for _, dep := range dependencyHashes(tx, winner) {
		if dep.IsZero() {
			continue
		}
		m.mu.Lock()
		depRoot, hasRoot := m.blockRoots[dep]
		var depElection *Election
		if hasRoot {
			depElection = m.elections[depRoot]
		}
		solo := hasRoot && depElection != nil && !depElection.Confirmed && len(depElection.Blocks) == 1
		if solo {
			depElection.Confirmed = true
			depElection.confirmedAtAnnouncement = depElection.Announcements
		}
		m.mu.Unlock()

		if solo && m.observer != nil {
			m.observer(dep)
		}
	}
	return nil
}

// dependencyHashes returns {previous, source/link} for blk, the edges
// cascade confirmation traverses (§4.4).
func dependencyHashes(tx *store.Txn, blk ledgertypes.Block) []ledgertypes.Hash {
	deps := []ledgertypes.Hash{blk.Previous()}
	switch b := blk.(type) {
	case *ledgertypes.ReceiveBlock:
		deps = append(deps, b.SourceHash)
	case *ledgertypes.OpenBlock:
		deps = append(deps, b.SourceHash)
	case *ledgertypes.StateBlock:
		deps = append(deps, b.Link)
	}
	return deps
}

// scaleAmount returns amount*fraction, rounding down, for the quorum
// delta computation (§4.4). Elections are a voting-weight estimate, not
// an exact-accounting path, so float scaling (unlike ledgertypes.Amount
// arithmetic used for balances) is acceptable here.
func scaleAmount(amount ledgertypes.Amount, fraction float64) ledgertypes.Amount {
	scaled := new(big.Float).Mul(new(big.Float).SetInt(amount.BigInt()), big.NewFloat(fraction))
	i, _ := scaled.Int(nil)
	return ledgertypes.AmountFromBigInt(i)
}

// Tick advances every active election's announcement counter by one
// round, driving rebroadcast/vote-request scheduling (§4.4 Announcements)
// and reaping elections confirmed long enough ago. The actual network
// rebroadcast/request send is left to internal/netboundary; Tick returns
// the elections that should be (re)announced this round plus the roots
// that were reaped.
func (m *Manager) Tick() (toAnnounce []*Election, reaped []ledgertypes.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for root, e := range m.elections {
		if e.Stopped {
			continue
		}
		e.Announcements++
		if e.Confirmed && e.Announcements-e.confirmedAtAnnouncement >= m.announcementCutoff {
			e.Stopped = true
			reaped = append(reaped, root)
			continue
		}
		if !e.Confirmed {
			toAnnounce = append(toAnnounce, e)
		}
	}
	return toAnnounce, reaped
}

// Stop removes an election explicitly (§5 Cancellation), e.g. a CLI
// request or an announcement-cutoff reap with no confirmation.
func (m *Manager) Stop(root ledgertypes.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.elections[root]; ok {
		e.Stopped = true
		for h := range e.Blocks {
			delete(m.blockRoots, h)
		}
		delete(m.elections, root)
	}
}

// RequestInterval is the cadence Tick should be driven at; callers wire
// this to a time.Ticker in the node's run loop.
func RequestInterval() time.Duration { return 16 * time.Second }
