// Package store persists the ledger's tables in a bbolt database: an
// ordered embedded key-value store offering ACID write transactions
// (§6.1). Each logical table is one top-level bucket; key and value
// layouts are fixed-width so accessors never need a length prefix.
package store

// Bucket names, one per §6.1 table.
var (
	bucketBlocks             = []byte("blocks")
	bucketAccounts           = []byte("accounts")
	bucketPending            = []byte("pending")
	bucketRepresentation     = []byte("representation")
	bucketPruned             = []byte("pruned")
	bucketUnchecked          = []byte("unchecked")
	bucketFinalVote          = []byte("final_vote")
	bucketConfirmationHeight = []byte("confirmation_height")
	bucketFrontiers          = []byte("frontiers")
	bucketOnlineWeight       = []byte("online_weight")
	bucketPeers              = []byte("peers")
	bucketMeta               = []byte("meta")
)

var allBuckets = [][]byte{
	bucketBlocks,
	bucketAccounts,
	bucketPending,
	bucketRepresentation,
	bucketPruned,
	bucketUnchecked,
	bucketFinalVote,
	bucketConfirmationHeight,
	bucketFrontiers,
	bucketOnlineWeight,
	bucketPeers,
	bucketMeta,
}

// metaVersionKey holds the schema version as an 8-byte big-endian uint64
// in bucketMeta.
var metaVersionKey = []byte("schema_version")

// schemaVersion is the version this build writes and expects. Bumping it
// requires a matching step in upgrade.go's chain.
const schemaVersion uint64 = 1
