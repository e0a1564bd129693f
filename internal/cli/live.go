package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradegate/broker"
	"tradegate/live"
	sig "tradegate/signal"
)

func newLiveCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the live control loop against the paper broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ro.loadConfig()
			if err != nil {
				return err
			}
			log, err := ro.newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			if len(cfg.Live.Symbols) == 0 {
				return fmt.Errorf("live: no symbols configured")
			}

			strat, err := sig.ByName(cfg.Live.Strategy)
			if err != nil {
				return err
			}

			cycle, err := time.ParseDuration(cfg.Live.CycleInterval)
			if err != nil {
				return fmt.Errorf("bad cycle_interval: %w", err)
			}
			refresh, err := time.ParseDuration(cfg.Live.RefreshInterval)
			if err != nil {
				return fmt.Errorf("bad refresh_interval: %w", err)
			}

			paper := broker.NewPaper(cfg.Account.InitialCapital, cfg.Risk.SlippagePct, cfg.Risk.Commission)
			bus := live.NewBus()

			ctrl, err := live.NewController(live.Options{
				Broker:          broker.NewRetry(paper, log),
				Strategy:        strat,
				Symbols:         cfg.Live.Symbols,
				Params:          cfg.Risk,
				InitialCapital:  cfg.Account.InitialCapital,
				CycleInterval:   cycle,
				RefreshInterval: refresh,
				Log:             log,
			}, bus)
			if err != nil {
				return err
			}

			// Observability job: log every decision and fill.
			decisions := bus.Subscribe(live.TopicDecisions, 64)
			fills := bus.Subscribe(live.TopicFills, 64)
			go func() {
				for {
					select {
					case ev := <-decisions:
						log.Info("decision", zap.Any("decision", ev.Payload))
					case ev := <-fills:
						log.Info("fill", zap.Any("fill", ev.Payload))
					}
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("live loop starting",
				zap.Strings("symbols", cfg.Live.Symbols),
				zap.Duration("cycle", cycle))
			err = ctrl.Run(ctx)
			if ctx.Err() != nil {
				log.Info("live loop stopped")
				return nil
			}
			return err
		},
	}
	return cmd
}
