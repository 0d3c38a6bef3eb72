package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/latticenet/ledger/internal/elections"
	"github.com/latticenet/ledger/internal/ledgertypes"
	"github.com/latticenet/ledger/internal/store"
)

// newRunCmd starts the node's long-running loop: periodic election
// announce/reap ticks, confirmation-height drain, and online-weight
// sampling, shutting down gracefully on SIGINT/SIGTERM by waiting on a
// signal channel before closing the store.
func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the node's election, confirmation-height, and online-weight loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			n, err := buildNode(cfg)
			if err != nil {
				return err
			}
			defer n.ctx.Store.Close()

			sampleInterval := time.Duration(cfg.Quorum.SampleIntervalSeconds) * time.Second
			if sampleInterval <= 0 {
				sampleInterval = 5 * time.Minute
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

			sampleTicker := time.NewTicker(sampleInterval)
			defer sampleTicker.Stop()
			announceTicker := time.NewTicker(elections.RequestInterval())
			defer announceTicker.Stop()

			n.ctx.Logger.Info("node started")
			for {
				select {
				case <-shutdown:
					n.ctx.Logger.Info("shutting down")
					return nil
				case now := <-sampleTicker.C:
					var total ledgertypes.Amount
					_ = n.ctx.Store.View(func(tx *store.Txn) error {
						total = tx.SumRepresentation()
						return nil
					})
					n.sampler.Record(now, total)
				case <-announceTicker.C:
					toAnnounce, reaped := n.elections.Tick()
					for _, e := range toAnnounce {
						n.ctx.Logger.Debug("announcing election", zap.String("root", e.Root.String()))
					}
					for _, h := range reaped {
						n.ctx.Logger.Debug("reaped election", zap.String("root", h.String()))
					}
					if err := n.confheight.Tick(); err != nil {
						n.ctx.Logger.Error("confirmation height tick failed", zap.Error(err))
					}
				}
			}
		},
	}
}
