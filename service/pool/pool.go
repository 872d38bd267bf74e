package pool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

// Service discovers exchange pools and caches their liquidity and spot
// price.
type Service struct {
	cfg    Config
	st     store.Store
	or     oracle.Oracle
	logger *zap.Logger
}

func NewService(cfg Config, st store.Store, or oracle.Oracle, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, st: st, or: or, logger: logger}
}

// Key returns the cache key of a pair and fee tier. The key does not depend
// on the order of the tokens.
func Key(tokenA, tokenB common.Address, fee uint32) string {
	a, b := util.Addr(tokenA), util.Addr(tokenB)
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return fmt.Sprintf("%s-%s-%d", a, b, fee)
}

// Lookup returns the pool of the pair at the fee tier, or nil if there is
// none. Found pools are cached forever; absence is never cached. Reverting
// calls count as absence, other oracle failures are returned.
func (s *Service) Lookup(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (*schema.Pool, error) {
	id := Key(tokenA, tokenB, fee)
	p, err := store.Get[schema.Pool](ctx, s.st, store.KindPool, id)
	if err != nil {
		return nil, err
	}
	if p != nil {
		metrics.ObserveCache("pool", metrics.OutcomeHit)
		return p, nil
	}
	metrics.ObserveCache("pool", metrics.OutcomeMiss)
	addr, err := s.or.GetPool(ctx, tokenA, tokenB, fee)
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return nil, fmt.Errorf("get pool: %w", err)
		}
		s.logger.Debug("failed to get pool", zap.String("pool", id), zap.Error(err))
		return nil, nil
	}
	if addr == (common.Address{}) {
		return nil, nil
	}
	token0, err := s.or.Token0(ctx, addr)
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return nil, fmt.Errorf("get pool token0: %w", err)
		}
		s.logger.Debug("failed to get pool token0", zap.String("pool", id), zap.Error(err))
		return nil, nil
	}
	token1, err := s.or.Token1(ctx, addr)
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return nil, fmt.Errorf("get pool token1: %w", err)
		}
		s.logger.Debug("failed to get pool token1", zap.String("pool", id), zap.Error(err))
		return nil, nil
	}
	a, b := util.Addr(tokenA), util.Addr(tokenB)
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	p = &schema.Pool{
		ID:           id,
		TokenA:       a,
		TokenB:       b,
		Fee:          fee,
		Address:      util.Addr(addr),
		Token0:       util.Addr(token0),
		Token1:       util.Addr(token1),
		Liquidity:    decimal.Zero,
		SqrtPriceX96: decimal.Zero,
	}
	if err := store.Put(ctx, s.st, store.KindPool, id, p); err != nil {
		return nil, err
	}
	s.logger.Debug("discovered pool", zap.String("pool", id), zap.String("address", p.Address))
	return p, nil
}

// Liquidity returns the pool's liquidity, refreshing it after its TTL.
// A reverted refresh serves the cached value.
func (s *Service) Liquidity(ctx context.Context, p *schema.Pool, now time.Time) (decimal.Decimal, error) {
	if p.LiquidityUpdatedAt > 0 && now.Unix()-p.LiquidityUpdatedAt < int64(s.cfg.LiquidityTTL/time.Second) {
		metrics.ObserveCache("liquidity", metrics.OutcomeHit)
		return p.Liquidity, nil
	}
	l, err := s.or.Liquidity(ctx, common.HexToAddress(p.Address))
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return decimal.Decimal{}, fmt.Errorf("refresh pool liquidity: %w", err)
		}
		metrics.ObserveCache("liquidity", metrics.OutcomeStale)
		s.logger.Debug("failed to refresh pool liquidity, serving cached value",
			zap.String("pool", p.ID), zap.Error(err))
		return p.Liquidity, nil
	}
	metrics.ObserveCache("liquidity", metrics.OutcomeRefresh)
	p.Liquidity = decimal.NewFromBigInt(l, 0)
	p.LiquidityUpdatedAt = now.Unix()
	if err := store.Put(ctx, s.st, store.KindPool, p.ID, p); err != nil {
		return decimal.Decimal{}, err
	}
	return p.Liquidity, nil
}

// SqrtPriceX96 returns the pool's spot sqrt price, refreshing it after its
// TTL. A reverted refresh serves the cached value.
func (s *Service) SqrtPriceX96(ctx context.Context, p *schema.Pool, now time.Time) (decimal.Decimal, error) {
	if p.Slot0UpdatedAt > 0 && now.Unix()-p.Slot0UpdatedAt < int64(s.cfg.Slot0TTL/time.Second) {
		metrics.ObserveCache("slot0", metrics.OutcomeHit)
		return p.SqrtPriceX96, nil
	}
	x, err := s.or.SqrtPriceX96(ctx, common.HexToAddress(p.Address))
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return decimal.Decimal{}, fmt.Errorf("refresh pool slot0: %w", err)
		}
		metrics.ObserveCache("slot0", metrics.OutcomeStale)
		s.logger.Debug("failed to refresh pool slot0, serving cached value",
			zap.String("pool", p.ID), zap.Error(err))
		return p.SqrtPriceX96, nil
	}
	metrics.ObserveCache("slot0", metrics.OutcomeRefresh)
	p.SqrtPriceX96 = decimal.NewFromBigInt(x, 0)
	p.Slot0UpdatedAt = now.Unix()
	if err := store.Put(ctx, s.st, store.KindPool, p.ID, p); err != nil {
		return decimal.Decimal{}, err
	}
	return p.SqrtPriceX96, nil
}
