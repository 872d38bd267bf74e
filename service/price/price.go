package price

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/pool"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
	"github.com/b-harvest/stele-backend/util"
)

type Result = util.Result[decimal.Decimal]

// Engine prices tokens in ETH and USD through the most liquid exchange pool.
type Engine struct {
	cfg    Config
	st     store.Store
	tokens *token.Service
	pools  *pool.Service
	weth   common.Address
	usd    common.Address
	logger *zap.Logger
}

func NewEngine(cfg Config, st store.Store, tokens *token.Service, pools *pool.Service, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		st:     st,
		tokens: tokens,
		pools:  pools,
		weth:   common.HexToAddress(cfg.WETHAddress),
		usd:    common.HexToAddress(cfg.USDAddress),
		logger: logger,
	}
}

// BestPool returns the pool of the pair with the largest positive
// liquidity across the fee tiers. On equal liquidity the earlier fee tier
// wins. It returns nil if no pool qualifies.
func (e *Engine) BestPool(ctx context.Context, tokenA, tokenB common.Address, now time.Time) (*schema.Pool, error) {
	var best *schema.Pool
	var bestLiquidity decimal.Decimal
	for _, fee := range e.cfg.FeeTiers {
		p, err := e.pools.Lookup(ctx, tokenA, tokenB, fee)
		if err != nil {
			return nil, fmt.Errorf("lookup pool: %w", err)
		}
		if p == nil {
			continue
		}
		l, err := e.pools.Liquidity(ctx, p, now)
		if err != nil {
			return nil, fmt.Errorf("get pool liquidity: %w", err)
		}
		if !l.IsPositive() {
			continue
		}
		if best == nil || l.GreaterThan(bestLiquidity) {
			best, bestLiquidity = p, l
		}
	}
	return best, nil
}

// PoolPrice returns the price of tok in units of the pool's other token.
func (e *Engine) PoolPrice(ctx context.Context, p *schema.Pool, tok common.Address, now time.Time) (decimal.Decimal, error) {
	sqrtPrice, err := e.pools.SqrtPriceX96(ctx, p, now)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get pool sqrt price: %w", err)
	}
	decimals0, err := e.tokens.DecimalsOrDefault(ctx, common.HexToAddress(p.Token0), now)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get token0 decimals: %w", err)
	}
	decimals1, err := e.tokens.DecimalsOrDefault(ctx, common.HexToAddress(p.Token1), now)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get token1 decimals: %w", err)
	}
	price0, price1 := SqrtPriceX96ToPrices(sqrtPrice.BigInt(), decimals0, decimals1)
	if util.Addr(tok) == p.Token0 {
		return price0, nil
	}
	return price1, nil
}

// PriceETH returns the price of tok in ETH. Tokens whose decimals cannot be
// resolved have no price, WETH included.
func (e *Engine) PriceETH(ctx context.Context, tok common.Address, now time.Time) (Result, error) {
	d, err := e.tokens.Decimals(ctx, tok, now)
	if err != nil {
		return Result{}, err
	}
	if !d.OK() {
		return util.NotFoundResult[decimal.Decimal](), nil
	}
	if tok == e.weth {
		return util.FoundResult(decimal.NewFromInt(1)), nil
	}
	p, err := e.BestPool(ctx, tok, e.weth, now)
	if err != nil {
		return Result{}, err
	}
	if p == nil {
		e.logger.Debug("no liquid pool against weth", zap.String("token", util.Addr(tok)))
		return util.NotFoundResult[decimal.Decimal](), nil
	}
	price, err := e.PoolPrice(ctx, p, tok, now)
	if err != nil {
		return Result{}, err
	}
	if !price.IsPositive() {
		return util.NotFoundResult[decimal.Decimal](), nil
	}
	return util.FoundResult(price), nil
}

func (e *Engine) priceBucket(now time.Time) int64 {
	ttl := int64(e.cfg.PriceTTL / time.Second)
	return now.Unix() / ttl * ttl
}

// CachedPriceETH is PriceETH memoized per token and price bucket.
func (e *Engine) CachedPriceETH(ctx context.Context, tok common.Address, now time.Time) (Result, error) {
	bucket := e.priceBucket(now)
	id := fmt.Sprintf("%s-%d", util.Addr(tok), bucket)
	pc, err := store.Get[schema.PriceCache](ctx, e.st, store.KindPriceCache, id)
	if err != nil {
		return Result{}, err
	}
	if pc != nil {
		metrics.ObserveCache("price", metrics.OutcomeHit)
		return util.FoundResult(pc.PriceETH), nil
	}
	r, err := e.PriceETH(ctx, tok, now)
	if err != nil {
		return Result{}, err
	}
	if !r.OK() {
		metrics.ObserveCache("price", metrics.OutcomeMiss)
		return r, nil
	}
	metrics.ObserveCache("price", metrics.OutcomeRefresh)
	if err := store.Put(ctx, e.st, store.KindPriceCache, id, schema.PriceCache{
		ID:          id,
		Token:       util.Addr(tok),
		BucketStart: bucket,
		PriceETH:    r.Value,
	}); err != nil {
		return Result{}, err
	}
	return r, nil
}

// PriceUSD returns the price of tok in USD.
func (e *Engine) PriceUSD(ctx context.Context, tok common.Address, now time.Time) (Result, error) {
	eth, err := e.CachedPriceETH(ctx, tok, now)
	if err != nil {
		return Result{}, err
	}
	if !eth.OK() {
		return eth, nil
	}
	usd, err := e.EthPriceUSD(ctx, now)
	if err != nil {
		return Result{}, err
	}
	if !usd.OK() {
		return usd, nil
	}
	return Result{Value: eth.Value.Mul(usd.Value), Status: usd.Status}, nil
}
