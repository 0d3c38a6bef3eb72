// Package netboundary defines the peer-transport boundary the ledger
// core talks through. Framing, discovery, and the wire encoding itself
// are explicitly out of scope (§1 Non-goals): this package specifies
// only the message shapes and the interfaces through which they are
// published and received — message-typed
// envelopes routed by kind, without committing to any particular
// in-memory or networked transport.
package netboundary

import "github.com/latticenet/ledger/internal/ledgertypes"

// MessageKind labels a peer-to-peer envelope's payload as a closed enum.
type MessageKind int

const (
	MessagePublish MessageKind = iota
	MessageConfirmReq
	MessageConfirmAck
	MessageVote
	MessageBulkPull
)

// Envelope is a peer-to-peer message as the transport layer hands it up
// (or takes it down) — payload bytes plus the kind tag that determines
// how the ledger core decodes it. Wire framing and the encoding of
// Payload itself are the transport's concern, not this package's.
type Envelope struct {
	Kind    MessageKind
	PeerID  string
	Payload []byte
}

// Publisher broadcasts ledger-originated messages (a confirmed winner,
// an outgoing vote) to the peer set. internal/elections does not call
// it: Manager.Tick returns the elections to announce and leaves the send
// to its caller (§4.4).
type Publisher interface {
	Publish(env Envelope) error
}

// VoteSource delivers inbound votes to whatever is listening, for
// decoding into internal/elections.Manager.ProcessVote. The node's run
// loop does not consume it.
type VoteSource interface {
	Votes() <-chan SignedVote
}

// SignedVote is the wire shape of a vote before it's decoded into
// elections.Vote; kept separate so this package doesn't import
// internal/elections (the dependency runs the other way: the node
// wiring layer decodes one into the other).
type SignedVote struct {
	Account   ledgertypes.Account
	Sequence  uint64
	Hashes    []ledgertypes.Hash
	Signature ledgertypes.Signature
}

// BlockSource delivers inbound blocks (publishes, bootstrap responses)
// the ledger processor should attempt, in arrival order.
type BlockSource interface {
	Blocks() <-chan ledgertypes.Block
}
