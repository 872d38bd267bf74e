package cmd

import (
	"context"
	"fmt"

	"github.com/gomodule/redigo/redis"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/b-harvest/stele-backend/config"
	"github.com/b-harvest/stele-backend/service/store"
)

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func connectMongoDB(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI).SetRegistry(store.Registry()))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		mc.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return mc, nil
}

func newRedisPool(cfg config.RedisConfig) (*redis.Pool, error) {
	rp := &redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(cfg.URI)
		},
	}
	conn := rp.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		rp.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rp, nil
}
