package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

const (
	UnknownSymbol   = "UNKNOWN"
	DefaultDecimals = 18
)

// Service caches token decimals and symbols.
type Service struct {
	cfg    Config
	st     store.Store
	or     oracle.Oracle
	logger *zap.Logger
}

func NewService(cfg Config, st store.Store, or oracle.Oracle, logger *zap.Logger) *Service {
	return &Service{cfg: cfg, st: st, or: or, logger: logger}
}

func (s *Service) fresh(tok *schema.Token, now time.Time) bool {
	return tok != nil && now.Unix()-tok.UpdatedAt < int64(s.cfg.TTL/time.Second)
}

// Decimals returns the token's decimals. A reverted refresh serves the
// previously cached value; with nothing cached the result is not found.
// The returned error is set on store failures and on oracle failures other
// than reverts.
func (s *Service) Decimals(ctx context.Context, token common.Address, now time.Time) (util.Result[int], error) {
	id := util.Addr(token)
	tok, err := store.Get[schema.Token](ctx, s.st, store.KindToken, id)
	if err != nil {
		return util.Result[int]{}, err
	}
	if s.fresh(tok, now) {
		metrics.ObserveCache("token", metrics.OutcomeHit)
		return util.FoundResult(tok.Decimals), nil
	}
	d, err := s.or.Decimals(ctx, token)
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return util.Result[int]{}, fmt.Errorf("get token decimals: %w", err)
		}
		if tok != nil {
			metrics.ObserveCache("token", metrics.OutcomeStale)
			s.logger.Warn("failed to refresh token decimals, serving cached value",
				zap.String("token", id), zap.Int("decimals", tok.Decimals), zap.Error(err))
			return util.StaleResult(tok.Decimals), nil
		}
		metrics.ObserveCache("token", metrics.OutcomeMiss)
		s.logger.Warn("failed to fetch token decimals", zap.String("token", id), zap.Error(err))
		return util.NotFoundResult[int](), nil
	}
	metrics.ObserveCache("token", metrics.OutcomeRefresh)
	if tok == nil {
		tok = &schema.Token{ID: id, Symbol: UnknownSymbol}
	}
	tok.Decimals = int(d)
	if sym, err := s.or.Symbol(ctx, token); err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return util.Result[int]{}, fmt.Errorf("get token symbol: %w", err)
		}
		s.logger.Debug("failed to fetch token symbol", zap.String("token", id), zap.Error(err))
	} else {
		tok.Symbol = sym
	}
	tok.UpdatedAt = now.Unix()
	if err := store.Put(ctx, s.st, store.KindToken, id, tok); err != nil {
		return util.Result[int]{}, err
	}
	return util.FoundResult(tok.Decimals), nil
}

// DecimalsOrDefault is like Decimals but falls back to DefaultDecimals.
func (s *Service) DecimalsOrDefault(ctx context.Context, token common.Address, now time.Time) (int, error) {
	r, err := s.Decimals(ctx, token, now)
	if err != nil {
		return 0, err
	}
	if !r.OK() {
		return DefaultDecimals, nil
	}
	return r.Value, nil
}

// Symbol always returns a symbol, UnknownSymbol if it could never be
// fetched. A row is only created when the decimals resolve as well, so that
// a default never masks a token whose decimals are unknown.
func (s *Service) Symbol(ctx context.Context, token common.Address, now time.Time) (string, error) {
	id := util.Addr(token)
	tok, err := store.Get[schema.Token](ctx, s.st, store.KindToken, id)
	if err != nil {
		return "", err
	}
	if s.fresh(tok, now) {
		metrics.ObserveCache("token", metrics.OutcomeHit)
		return tok.Symbol, nil
	}
	if tok == nil {
		// Decimals creates the row and fetches the symbol with it.
		r, err := s.Decimals(ctx, token, now)
		if err != nil {
			return "", err
		}
		if !r.OK() {
			sym, err := s.or.Symbol(ctx, token)
			if err != nil {
				if !errors.Is(err, oracle.ErrReverted) {
					return "", fmt.Errorf("get token symbol: %w", err)
				}
				return UnknownSymbol, nil
			}
			return sym, nil
		}
		tok, err = store.Get[schema.Token](ctx, s.st, store.KindToken, id)
		if err != nil {
			return "", err
		}
		if tok == nil {
			return UnknownSymbol, nil
		}
		return tok.Symbol, nil
	}
	sym, err := s.or.Symbol(ctx, token)
	if err != nil {
		if !errors.Is(err, oracle.ErrReverted) {
			return "", fmt.Errorf("get token symbol: %w", err)
		}
		metrics.ObserveCache("token", metrics.OutcomeStale)
		s.logger.Debug("failed to refresh token symbol, serving cached value", zap.String("token", id), zap.Error(err))
		return tok.Symbol, nil
	}
	metrics.ObserveCache("token", metrics.OutcomeRefresh)
	tok.Symbol = sym
	if err := store.Put(ctx, s.st, store.KindToken, id, tok); err != nil {
		return "", err
	}
	return sym, nil
}
