// Package portfolio recomputes an investor's holdings and their USD value
// from the on-chain portfolio view.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/price"
	"github.com/b-harvest/stele-backend/service/snapshot"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
	"github.com/b-harvest/stele-backend/util"
)

// CurrentUSDPrecision is the number of fractional digits kept in an
// investor's current USD value.
const CurrentUSDPrecision = 5

type Pricer interface {
	PriceUSD(ctx context.Context, tok common.Address, now time.Time) (price.Result, error)
}

type Valuator struct {
	st        store.Store
	or        oracle.Oracle
	tokens    *token.Service
	pricer    Pricer
	snapshots *snapshot.Service
	logger    *zap.Logger
}

func NewValuator(st store.Store, or oracle.Oracle, tokens *token.Service, pricer Pricer, snapshots *snapshot.Service, logger *zap.Logger) *Valuator {
	return &Valuator{
		st:        st,
		or:        or,
		tokens:    tokens,
		pricer:    pricer,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Revalue rebuilds the investor's holdings from the chain and prices them
// in USD. Tokens without a price contribute nothing to the total.
func (v *Valuator) Revalue(ctx context.Context, challengeID *big.Int, user common.Address, now time.Time) error {
	cid := challengeID.String()
	investorID := schema.InvestorID(cid, util.Addr(user))
	inv, err := store.Get[schema.Investor](ctx, v.st, store.KindInvestor, investorID)
	if err != nil {
		return fmt.Errorf("load investor: %w", err)
	}
	if inv == nil {
		v.logger.Debug("investor not found", zap.String("investor", investorID))
		return nil
	}
	tokens, amounts, err := v.or.UserPortfolio(ctx, challengeID, user)
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return fmt.Errorf("get user portfolio: %w", err)
		}
		v.logger.Warn("failed to get user portfolio", zap.String("investor", investorID), zap.Error(err))
		return nil
	}
	if len(tokens) != len(amounts) {
		v.logger.Warn("user portfolio length mismatch", zap.String("investor", investorID),
			zap.Int("tokens", len(tokens)), zap.Int("amounts", len(amounts)))
		return nil
	}
	hs := make([]schema.Holding, 0, len(tokens))
	total := decimal.Zero
	for i, tok := range tokens {
		decimals, err := v.tokens.DecimalsOrDefault(ctx, tok, now)
		if err != nil {
			return fmt.Errorf("get token decimals: %w", err)
		}
		symbol, err := v.tokens.Symbol(ctx, tok, now)
		if err != nil {
			return fmt.Errorf("get token symbol: %w", err)
		}
		amount := util.ScaleDown(amounts[i], decimals)
		hs = append(hs, schema.Holding{
			Token:    util.Addr(tok),
			Amount:   amount,
			Decimals: decimals,
			Symbol:   symbol,
		})
		p, err := v.pricer.PriceUSD(ctx, tok, now)
		if err != nil {
			return fmt.Errorf("get token price: %w", err)
		}
		if !p.OK() {
			v.logger.Debug("token has no usd price", zap.String("token", util.Addr(tok)))
			continue
		}
		total = total.Add(amount.Mul(p.Value))
	}
	inv.SetHoldings(hs)
	inv.CurrentUSD = total.Truncate(CurrentUSDPrecision)
	inv.ProfitUSD = inv.CurrentUSD.Sub(inv.SeedMoneyUSD)
	if inv.SeedMoneyUSD.IsZero() {
		inv.ProfitRatio = decimal.Zero
	} else {
		inv.ProfitRatio = inv.ProfitUSD.Div(inv.SeedMoneyUSD)
	}
	inv.UpdatedAt = now.Unix()
	if err := store.Put(ctx, v.st, store.KindInvestor, investorID, inv); err != nil {
		return fmt.Errorf("save investor: %w", err)
	}
	if err := v.snapshots.Investor(ctx, cid, user, now); err != nil {
		return fmt.Errorf("snapshot investor: %w", err)
	}
	return nil
}
