// Package snapshot keeps day-bucketed copies of challenges, the active
// challenge registry and investors.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

type Service struct {
	st     store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	return &Service{st: st, logger: logger}
}

// Challenge writes the challenge's snapshot for the day of now.
func (s *Service) Challenge(ctx context.Context, challengeID string, now time.Time) error {
	c, err := store.Get[schema.Challenge](ctx, s.st, store.KindChallenge, challengeID)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		s.logger.Debug("challenge not found, skipping snapshot", zap.String("challenge", challengeID))
		return nil
	}
	dayID := schema.DayID(now.Unix())
	id := schema.DaySnapshotID(challengeID, dayID)
	return store.Put(ctx, s.st, store.KindChallengeSnapshot, id, schema.ChallengeSnapshot{
		ID:              id,
		ChallengeID:     challengeID,
		DayID:           dayID,
		InvestorCount:   c.InvestorCount,
		RewardAmountUSD: c.RewardAmountUSD,
		IsActive:        c.IsActive,
		TopUsers:        c.TopUsers,
		Scores:          c.Scores,
		Timestamp:       now.Unix(),
	})
}

// ActiveChallenges writes the registry's snapshot for the day of now, with
// participant and reward totals over all slots.
func (s *Service) ActiveChallenges(ctx context.Context, now time.Time) error {
	ac, err := store.Get[schema.ActiveChallenges](ctx, s.st, store.KindActiveChallenges, schema.ActiveChallengesID)
	if err != nil {
		return fmt.Errorf("load active challenges: %w", err)
	}
	if ac == nil {
		s.logger.Debug("active challenges not found, skipping snapshot")
		return nil
	}
	var participants int64
	rewards := decimal.Zero
	for _, slot := range ac.Slots {
		participants += slot.InvestorCount
		rewards = rewards.Add(slot.RewardAmountUSD)
	}
	dayID := schema.DayID(now.Unix())
	id := fmt.Sprintf("%d", dayID)
	return store.Put(ctx, s.st, store.KindActiveChallengesSnapshot, id, schema.ActiveChallengesSnapshot{
		ID:                id,
		DayID:             dayID,
		Slots:             ac.Slots,
		TotalParticipants: participants,
		TotalRewards:      rewards,
		Timestamp:         now.Unix(),
	})
}

// Investor writes the investor's snapshot for the day of now.
func (s *Service) Investor(ctx context.Context, challengeID string, user common.Address, now time.Time) error {
	investorID := schema.InvestorID(challengeID, util.Addr(user))
	inv, err := store.Get[schema.Investor](ctx, s.st, store.KindInvestor, investorID)
	if err != nil {
		return fmt.Errorf("load investor: %w", err)
	}
	if inv == nil {
		s.logger.Debug("investor not found, skipping snapshot", zap.String("investor", investorID))
		return nil
	}
	dayID := schema.DayID(now.Unix())
	id := schema.DaySnapshotID(investorID, dayID)
	return store.Put(ctx, s.st, store.KindInvestorSnapshot, id, schema.InvestorSnapshot{
		ID:             id,
		InvestorID:     investorID,
		ChallengeID:    challengeID,
		DayID:          dayID,
		SeedMoneyUSD:   inv.SeedMoneyUSD,
		CurrentUSD:     inv.CurrentUSD,
		Tokens:         inv.Tokens,
		TokensAmount:   inv.TokensAmount,
		TokensDecimals: inv.TokensDecimals,
		TokensSymbols:  inv.TokensSymbols,
		ProfitUSD:      inv.ProfitUSD,
		ProfitRatio:    inv.ProfitRatio,
		Timestamp:      now.Unix(),
	})
}
