// Package rankcache keeps a JSON copy of every challenge leaderboard in
// Redis for readers that should not hit the entity store.
package rankcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	jsoniter "github.com/json-iterator/go"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/util"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// Pool hands out Redis connections. *redis.Pool satisfies it.
type Pool interface {
	GetContext(ctx context.Context) (redis.Conn, error)
}

type Service struct {
	cfg Config
	rp  Pool
}

func NewService(cfg Config, rp Pool) *Service {
	return &Service{cfg: cfg, rp: rp}
}

func (s *Service) Key(challengeID string) string {
	return s.cfg.KeyPrefix + challengeID
}

// Publish stores the ranking, capped at the configured size. The block
// number is taken from the context when the call is pinned to a block.
func (s *Service) Publish(ctx context.Context, r schema.Ranking) error {
	cache := schema.RankingCache{
		ChallengeID: r.ChallengeID,
		Users:       []schema.RankingCacheUser{},
		UpdatedAt:   time.Unix(r.UpdatedAt, 0).UTC(),
	}
	if n := oracle.BlockNumber(ctx); n != nil {
		cache.BlockNumber = n.Uint64()
	}
	for i := 0; i < util.MinInt(s.cfg.Size, len(r.TopUsers)); i++ {
		cache.Users = append(cache.Users, schema.RankingCacheUser{
			Ranking:     i + 1,
			Address:     r.TopUsers[i],
			Score:       r.Scores[i],
			ProfitRatio: r.ProfitRatios[i],
		})
	}
	if err := s.SaveCache(ctx, s.Key(r.ChallengeID), cache); err != nil {
		return fmt.Errorf("save ranking cache: %w", err)
	}
	return nil
}

// Load returns the cached ranking of the challenge. The error wraps
// redis.ErrNil when nothing was published yet.
func (s *Service) Load(ctx context.Context, challengeID string) (cache schema.RankingCache, err error) {
	err = s.LoadCache(ctx, s.Key(challengeID), &cache)
	return
}

func (s *Service) SaveCache(ctx context.Context, key string, v interface{}) error {
	c, err := s.rp.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis conn: %w", err)
	}
	defer c.Close()
	b, err := jsonit.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	_, err = c.Do("SET", key, b)
	return err
}

func (s *Service) LoadCache(ctx context.Context, key string, v interface{}) error {
	c, err := s.rp.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis conn: %w", err)
	}
	defer c.Close()
	b, err := redis.Bytes(c.Do("GET", key))
	if err != nil {
		return fmt.Errorf("get cache bytes: %w", err)
	}
	if err := jsonit.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal cache: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *Service) Ping(ctx context.Context) error {
	c, err := s.rp.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("get redis conn: %w", err)
	}
	defer c.Close()
	_, err = redis.String(c.Do("PING"))
	return err
}

// RetryLoadingCache calls fn every second until it succeeds, fails with an
// error other than redis.ErrNil, or the timeout passes.
func RetryLoadingCache(ctx context.Context, fn func(context.Context) error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := util.NewImmediateTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				if !errors.Is(err, redis.ErrNil) {
					return err
				}
			} else {
				return nil
			}
		}
	}
}
