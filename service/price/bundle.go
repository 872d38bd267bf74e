package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

// InitBundle creates the ETH/USD bundle if it does not exist yet. The
// bundle is priced on first use.
func (e *Engine) InitBundle(ctx context.Context) (created bool, err error) {
	b, err := store.Get[schema.Bundle](ctx, e.st, store.KindBundle, schema.BundleID)
	if err != nil {
		return false, err
	}
	if b != nil {
		return false, nil
	}
	if err := store.Put(ctx, e.st, store.KindBundle, schema.BundleID, schema.Bundle{
		ID:          schema.BundleID,
		EthPriceUSD: decimal.Zero,
	}); err != nil {
		return false, err
	}
	return true, nil
}

// EthPriceUSD returns the bundle's ETH price in USD, refreshing it from the
// most liquid WETH/USD pool once the TTL has passed. The bundle is never
// created here.
func (e *Engine) EthPriceUSD(ctx context.Context, now time.Time) (Result, error) {
	b, err := store.Get[schema.Bundle](ctx, e.st, store.KindBundle, schema.BundleID)
	if err != nil {
		return Result{}, err
	}
	if b == nil {
		e.logger.Warn("eth/usd bundle does not exist")
		return util.NotFoundResult[decimal.Decimal](), nil
	}
	if b.UpdatedAt > 0 && now.Unix()-b.UpdatedAt <= int64(e.cfg.BundleTTL/time.Second) {
		metrics.ObserveCache("bundle", metrics.OutcomeHit)
		return util.FoundResult(b.EthPriceUSD), nil
	}
	p, err := e.BestPool(ctx, e.weth, e.usd, now)
	if err != nil {
		return Result{}, err
	}
	if p != nil {
		price, err := e.PoolPrice(ctx, p, e.weth, now)
		if err != nil {
			return Result{}, err
		}
		if price.IsPositive() {
			metrics.ObserveCache("bundle", metrics.OutcomeRefresh)
			b.EthPriceUSD = price
			b.UpdatedAt = now.Unix()
			if err := store.Put(ctx, e.st, store.KindBundle, schema.BundleID, b); err != nil {
				return Result{}, err
			}
			return util.FoundResult(price), nil
		}
	}
	if b.UpdatedAt == 0 {
		metrics.ObserveCache("bundle", metrics.OutcomeMiss)
		e.logger.Warn("no eth/usd price available")
		return util.NotFoundResult[decimal.Decimal](), nil
	}
	metrics.ObserveCache("bundle", metrics.OutcomeStale)
	e.logger.Warn("failed to refresh eth/usd price, serving cached value",
		zap.String("price", b.EthPriceUSD.String()), zap.Int64("updatedAt", b.UpdatedAt))
	return util.StaleResult(b.EthPriceUSD), nil
}
