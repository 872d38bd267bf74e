package score

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
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

// Register refreshes the challenge's leaderboard from the chain and records
// the registering user's final performance. Scores are denominated in the
// USD token, so nothing is written when its decimals are unknown.
func (s *Service) Register(ctx context.Context, challengeID *big.Int, user common.Address, performance *big.Int, now time.Time) error {
	cid := challengeID.String()
	c, err := store.Get[schema.Challenge](ctx, s.st, store.KindChallenge, cid)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		s.logger.Debug("challenge not found", zap.String("challenge", cid))
		return nil
	}
	stele, err := store.Get[schema.Stele](ctx, s.st, store.KindStele, schema.SteleID)
	if err != nil {
		return fmt.Errorf("load stele: %w", err)
	}
	if stele == nil {
		s.logger.Debug("stele not found", zap.String("challenge", cid))
		return nil
	}
	d, err := s.tokens.Decimals(ctx, common.HexToAddress(stele.USDToken), now)
	if err != nil {
		return fmt.Errorf("get usd token decimals: %w", err)
	}
	if !d.OK() {
		s.logger.Error("usd token decimals unavailable, skipping ranking",
			zap.String("challenge", cid), zap.String("token", stele.USDToken))
		return nil
	}
	usdDecimals := d.Value

	users, rawScores, err := s.or.Ranking(ctx, challengeID)
	if err != nil && !errors.Is(err, oracle.ErrReverted) {
		return fmt.Errorf("get ranking: %w", err)
	}
	if err != nil {
		s.logger.Warn("failed to get ranking", zap.String("challenge", cid), zap.Error(err))
	} else {
		if err := s.saveRanking(ctx, c, users, rawScores, usdDecimals, now); err != nil {
			return err
		}
	}

	score := util.ScaleDown(performance, usdDecimals)
	id := schema.InvestorID(cid, util.Addr(user))
	if err := store.Put(ctx, s.st, store.KindTotalRanking, id, schema.TotalRanking{
		ID:          id,
		ChallengeID: cid,
		User:        util.Addr(user),
		SeedMoney:   c.SeedMoney,
		Score:       score,
		ProfitRatio: ProfitRatio(score, c.SeedMoney),
		UpdatedAt:   now.Unix(),
	}); err != nil {
		return fmt.Errorf("save total ranking: %w", err)
	}
	return nil
}

func (s *Service) saveRanking(ctx context.Context, c *schema.Challenge, users []common.Address, rawScores []*big.Int, usdDecimals int, now time.Time) error {
	if len(users) != len(rawScores) {
		s.logger.Warn("ranking length mismatch", zap.String("challenge", c.ID),
			zap.Int("users", len(users)), zap.Int("scores", len(rawScores)))
		return nil
	}
	r := schema.Ranking{
		ID:           c.ID,
		ChallengeID:  c.ID,
		TopUsers:     []string{},
		Scores:       []decimal.Decimal{},
		ProfitRatios: []decimal.Decimal{},
		UpdatedAt:    now.Unix(),
	}
	for i, u := range users {
		// Unfilled leaderboard positions come back as the zero address.
		if u == (common.Address{}) {
			continue
		}
		score := util.ScaleDown(rawScores[i], usdDecimals)
		r.TopUsers = append(r.TopUsers, util.Addr(u))
		r.Scores = append(r.Scores, score)
		r.ProfitRatios = append(r.ProfitRatios, ProfitRatio(score, c.SeedMoney))
	}
	if err := store.Put(ctx, s.st, store.KindRanking, r.ID, r); err != nil {
		return fmt.Errorf("save ranking: %w", err)
	}
	c.TopUsers = r.TopUsers
	c.Scores = r.Scores
	c.UpdatedAt = now.Unix()
	if err := store.Put(ctx, s.st, store.KindChallenge, c.ID, c); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, r); err != nil {
			s.logger.Warn("failed to publish ranking", zap.String("challenge", c.ID), zap.Error(err))
		}
	}
	return nil
}
