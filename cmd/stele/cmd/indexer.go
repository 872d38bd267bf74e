package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/service/challenge"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/pool"
	"github.com/b-harvest/stele-backend/service/portfolio"
	"github.com/b-harvest/stele-backend/service/price"
	"github.com/b-harvest/stele-backend/service/rankcache"
	"github.com/b-harvest/stele-backend/service/score"
	"github.com/b-harvest/stele-backend/service/snapshot"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
	"github.com/b-harvest/stele-backend/transformer"
)

func IndexerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "index contract events from block data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Indexer.Validate(); err != nil {
				return fmt.Errorf("validate indexer config: %w", err)
			}

			logger, err := cfg.Indexer.Log.Build()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			mc, err := connectMongoDB(context.Background(), cfg.Indexer.MongoDB)
			if err != nil {
				return err
			}
			defer mc.Disconnect(context.Background())

			ss := store.NewService(cfg.Indexer.Store, mc)
			names, err := ss.EnsureDBIndexes(context.Background())
			if err != nil {
				return fmt.Errorf("ensure db indexes: %w", err)
			}
			logger.Info("created db indexes", zap.Strings("names", names))

			ec, err := ethclient.Dial(cfg.Indexer.Oracle.RPCURL)
			if err != nil {
				return fmt.Errorf("dial ethereum node: %w", err)
			}
			defer ec.Close()
			or, err := oracle.NewEthOracle(cfg.Indexer.Oracle, ec)
			if err != nil {
				return fmt.Errorf("new oracle: %w", err)
			}

			var pub score.Publisher
			if cfg.Indexer.Redis.URI != "" {
				rp, err := newRedisPool(cfg.Indexer.Redis)
				if err != nil {
					return err
				}
				defer rp.Close()
				pub = rankcache.NewService(cfg.Indexer.RankCache, rp)
			}

			ts := token.NewService(cfg.Indexer.Token, ss, or, logger)
			ps := pool.NewService(cfg.Indexer.Pool, ss, or, logger)
			pe := price.NewEngine(cfg.Indexer.Price, ss, ts, ps, logger)
			snaps := snapshot.NewService(ss, logger)
			val := portfolio.NewValuator(ss, or, ts, pe, snaps, logger)
			scs := score.NewService(ss, or, ts, pub, logger)
			m := challenge.NewManager(ss, ts, pe, val, scs, snaps, logger)

			t, err := transformer.New(cfg.Indexer, ss, m, logger)
			if err != nil {
				return fmt.Errorf("new transformer: %w", err)
			}

			logger.Info("started")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					default:
						if err := t.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
							logger.Error("failed to run indexer", zap.Error(err))
						}
					}
					select {
					case <-ctx.Done():
						return
					case <-time.After(time.Second):
					}
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info("gracefully shutting down")
			cancel()
			wg.Wait()
			return nil
		},
	}
	return cmd
}
