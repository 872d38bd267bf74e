package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/b-harvest/stele-backend/server"
	"github.com/b-harvest/stele-backend/service/rankcache"
	"github.com/b-harvest/stele-backend/service/store"
)

func ServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "run web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Server.Validate(); err != nil {
				return fmt.Errorf("validate server config: %w", err)
			}

			logger, err := cfg.Server.Log.Build()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			mc, err := connectMongoDB(context.Background(), cfg.Server.MongoDB)
			if err != nil {
				return err
			}
			defer mc.Disconnect(context.Background())

			rp, err := newRedisPool(cfg.Server.Redis)
			if err != nil {
				return err
			}
			defer rp.Close()

			ss := store.NewService(cfg.Server.Store, mc)
			rc := rankcache.NewService(cfg.Server.RankCache, rp)
			s := server.New(cfg.Server, ss, rc, logger)

			logger.Info("starting server", zap.String("addr", cfg.Server.BindAddr))

			var eg errgroup.Group
			eg.Go(func() error {
				if err := s.Start(cfg.Server.BindAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("run server: %w", err)
				}
				return nil
			})

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			logger.Info("gracefully shutting down")
			if err := s.ShutdownWithTimeout(10 * time.Second); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			return eg.Wait()
		},
	}
	return cmd
}
