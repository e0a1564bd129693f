package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradegate/market"
	"tradegate/replay"
	"tradegate/signal"
)

func newReplayCmd(ro *rootOptions) *cobra.Command {
	var (
		strategyName string
		start, end   string
		resultPath   string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a strategy over historical daily bars",
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

			if strategyName == "" {
				strategyName = cfg.Replay.Strategy
			}
			if start == "" {
				start = cfg.Replay.Start
			}
			if end == "" {
				end = cfg.Replay.End
			}
			if resultPath == "" {
				resultPath = cfg.Replay.ResultPath
			}

			startDay, err := time.Parse("2006-01-02", start)
			if err != nil {
				return fmt.Errorf("bad --start %q: %w", start, err)
			}
			endDay, err := time.Parse("2006-01-02", end)
			if err != nil {
				return fmt.Errorf("bad --end %q: %w", end, err)
			}

			strat, err := signal.ByName(strategyName)
			if err != nil {
				return err
			}

			history := market.NewHistory()
			for symb, path := range cfg.Replay.Bars {
				series, err := market.LoadCSV(symb, path)
				if err != nil {
					return err
				}
				history.Add(series)
			}

			var sectors market.SectorMap = market.StaticSectorMap{}
			if cfg.Replay.SectorMap != "" {
				sectors, err = market.LoadSectorMap(cfg.Replay.SectorMap)
				if err != nil {
					return err
				}
			}

			j, err := openJournal(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			eng, err := replay.NewEngine(replay.Config{
				Strategy:       strat,
				History:        history,
				Sectors:        sectors,
				Start:          startDay,
				End:            endDay,
				InitialCapital: cfg.Account.InitialCapital,
				Params:         cfg.Risk,
				LookbackDays:   cfg.Replay.LookbackDays,
				Journal:        j,
				Log:            log,
			})
			if err != nil {
				return err
			}

			res, err := eng.Run(cmd.Context())
			if err != nil {
				return err
			}

			log.Info("replay complete",
				zap.String("run_id", res.RunID),
				zap.Float64("final_equity", res.FinalEquity),
				zap.Float64("total_return", res.Metrics.TotalReturn),
				zap.Float64("sharpe", res.Metrics.SharpeRatio),
				zap.Float64("max_drawdown", res.Metrics.MaxDrawdown),
				zap.Int("trades", len(res.Trades)))

			if resultPath != "" {
				if err := res.SaveJSON(resultPath); err != nil {
					return err
				}
				fmt.Printf("result written to %s\n", resultPath)
			}

			fmt.Printf("run %s: return %.2f%%, sharpe %.2f, %d trades\n",
				res.RunID, 100*res.Metrics.TotalReturn, res.Metrics.SharpeRatio, len(res.Trades))
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "", "Strategy name (default from config)")
	cmd.Flags().StringVar(&start, "start", "", "Start date YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "End date YYYY-MM-DD")
	cmd.Flags().StringVar(&resultPath, "out", "", "Write the full result JSON here")

	return cmd
}
