package main

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/latticenet/ledger/internal/config"
	"github.com/latticenet/ledger/internal/confirmheight"
	"github.com/latticenet/ledger/internal/elections"
	"github.com/latticenet/ledger/internal/ledger"
	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/logx"
	"github.com/latticenet/ledger/internal/metricsx"
	"github.com/latticenet/ledger/internal/nodectx"
	"github.com/latticenet/ledger/internal/onlineweight"
	"github.com/latticenet/ledger/internal/rpcboundary"
	"github.com/latticenet/ledger/internal/store"
	"github.com/latticenet/ledger/internal/unchecked"
	"github.com/latticenet/ledger/internal/walletkeys"
	"github.com/latticenet/ledger/internal/work"
	"github.com/prometheus/client_golang/prometheus"
)

// node bundles every subsystem cmd/latticed's subcommands and run loop
// need, assembled once from a loaded config.
type node struct {
	cfg        config.Config
	ctx        *nodectx.Context
	processor  *ledger.Processor
	unchecked  *unchecked.Buffer
	sampler    *onlineweight.Sampler
	elections  *elections.Manager
	confheight *confirmheight.Processor
	adapter    *rpcboundary.NodeAdapter
}

// storeWeightSource implements elections.WeightSource by reading
// representative weights out of the live store and the online-weight
// sampler's rolling median, opening a short read transaction per call —
// acceptable since elections.Manager.ProcessVote calls it off the ledger
// write path (§5 Backpressure keeps vote ingestion separate from writes).
type storeWeightSource struct {
	st      *store.Store
	sampler *onlineweight.Sampler
}

func (w storeWeightSource) RepresentativeWeight(acct ledgertypes.Account) ledgertypes.Amount {
	var weight ledgertypes.Amount
	_ = w.st.View(func(tx *store.Txn) error {
		weight = tx.GetRepresentation(acct)
		return nil
	})
	return weight
}

func (w storeWeightSource) OnlineWeight() ledgertypes.Amount {
	return w.sampler.Median()
}

// scalePercent returns total * pct/100, using math/big.Float for the same
// reason internal/elections' quorum-delta math does: this is a
// configuration-derived threshold estimate, not exact ledger accounting.
func scalePercent(total ledgertypes.Amount, pct float64) ledgertypes.Amount {
	f := new(big.Float).SetInt(total.BigInt())
	f.Mul(f, big.NewFloat(pct/100))
	out, _ := f.Int(nil)
	return ledgertypes.AmountFromBigInt(out)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, newUsageError("load config %s: %w", path, err)
	}
	return cfg, nil
}

func decodeHexAccount(label, raw string) (ledgertypes.Account, error) {
	if raw == "" {
		return ledgertypes.Account{}, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != ledgertypes.HashSize {
		return ledgertypes.Account{}, newUsageError("%s: malformed hex account", label)
	}
	return ledgertypes.AccountFromBytes(b), nil
}

func decodeHexHash(label, raw string) (ledgertypes.Hash, error) {
	if raw == "" {
		return ledgertypes.Hash{}, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != ledgertypes.HashSize {
		return ledgertypes.Hash{}, newUsageError("%s: malformed hex hash", label)
	}
	return ledgertypes.HashFromBytes(b), nil
}

// buildNode opens the store and constructs every subsystem from cfg.
// Callers are responsible for closing n.ctx.Store when done.
func buildNode(cfg config.Config) (*node, error) {
	logger, err := logx.New(logx.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	timeout, err := time.ParseDuration(cfg.Store.Timeout)
	if err != nil {
		timeout = time.Second
	}
	st, err := store.Open(cfg.Store.Path, store.Options{Timeout: timeout, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	epochLink, err := decodeHexHash("network.epoch_link_hex", cfg.Network.EpochLinkHex)
	if err != nil {
		st.Close()
		return nil, err
	}
	if epochLink.IsZero() {
		epochLink = ledgertypes.Hash(ledgertypes.EpochLink)
	}
	epochSigner, err := decodeHexAccount("network.epoch_signer_hex", cfg.Network.EpochSignerHex)
	if err != nil {
		st.Close()
		return nil, err
	}
	genesis, err := decodeHexAccount("network.genesis_hex", cfg.Network.GenesisHex)
	if err != nil {
		st.Close()
		return nil, err
	}

	metrics := metricsx.New(prometheus.DefaultRegisterer)
	verifier := work.NewThreshold(cfg.Work.DifficultyThreshold)
	nctx := nodectx.New(st, verifier, nodectx.NetworkParams{EpochLink: epochLink, EpochSigner: epochSigner, Genesis: genesis}, metrics, logger)

	processor := ledger.NewProcessor(epochLink, epochSigner)

	uncheckedBuf, err := unchecked.New(unchecked.Options{
		TTL:     time.Duration(cfg.Unchecked.TTLHours) * time.Hour,
		MaxSize: cfg.Unchecked.MaxSize,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build unchecked buffer: %w", err)
	}

	sampler := onlineweight.New(cfg.Quorum.WindowSize)
	weights := storeWeightSource{st: st, sampler: sampler}

	var totalWeight ledgertypes.Amount
	_ = st.View(func(tx *store.Txn) error {
		totalWeight = tx.SumRepresentation()
		return nil
	})
	onlineMinimum := scalePercent(totalWeight, cfg.Quorum.OnlineWeightMinimumPercent)
	sampler.SetMinimum(onlineMinimum)

	var confheightProc *confirmheight.Processor
	electionsMgr := elections.NewManager(elections.Options{
		Processor:     processor,
		Weights:       weights,
		Clock:         nctx.Clock,
		Logger:        logger,
		OnlineMinimum: onlineMinimum,
		Observer: func(hash ledgertypes.Hash) {
			if confheightProc != nil {
				_ = confheightProc.Cement(hash)
			}
		},
	})
	confheightProc = confirmheight.New(st, confirmheight.Options{Logger: logger})

	keys := walletkeys.New()
	adapter := &rpcboundary.NodeAdapter{
		Store:      st,
		Keys:       keys,
		Elections:  electionsMgr,
		Unchecked:  uncheckedBuf,
		OnlineRate: sampler,
	}

	return &node{
		cfg:        cfg,
		ctx:        nctx,
		processor:  processor,
		unchecked:  uncheckedBuf,
		sampler:    sampler,
		elections:  electionsMgr,
		confheight: confheightProc,
		adapter:    adapter,
	}, nil
}
