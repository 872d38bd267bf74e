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

	"github.com/b-harvest/stele-backend/fetcher"
)

func FetcherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetcher",
		Short: "fetch contract logs into block data files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Fetcher.Validate(); err != nil {
				return fmt.Errorf("validate fetcher config: %w", err)
			}

			logger, err := cfg.Fetcher.Log.Build()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			ec, err := ethclient.Dial(cfg.Fetcher.RPCURL)
			if err != nil {
				return fmt.Errorf("dial ethereum node: %w", err)
			}
			defer ec.Close()

			f := fetcher.New(cfg.Fetcher, ec, logger)

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
						if err := f.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
							logger.Error("failed to run fetcher", zap.Error(err))
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
