package challenge

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/util"
)

// Create starts a challenge and makes it the registry's challenge for its
// type. The slot is overwritten even if the previous challenge of that type
// has not completed yet.
func (m *Manager) Create(ctx context.Context, ev schema.CreateEvent) error {
	now := blockTime(ev.EventMeta)
	cid := ev.ChallengeID.String()
	c, err := store.Get[schema.Challenge](ctx, m.st, store.KindChallenge, cid)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if c != nil {
		m.skip(schema.EventCreate, ReasonDuplicate, zap.String("challenge", cid))
		return nil
	}
	if !ev.ChallengeType.Valid() {
		m.skip(schema.EventCreate, ReasonInvalidType,
			zap.String("challenge", cid), zap.Int("type", int(ev.ChallengeType)))
		return nil
	}
	stele, err := m.stele(ctx)
	if err != nil {
		return err
	}
	if stele == nil {
		m.skip(schema.EventCreate, ReasonMissingEntity, zap.String("entity", "stele"))
		return nil
	}
	d, err := m.usdDecimals(ctx, stele, now)
	if err != nil {
		return err
	}
	if !d.OK() {
		m.logger.Error("usd token decimals unavailable", zap.String("challenge", cid), zap.String("token", stele.USDToken))
		m.skip(schema.EventCreate, ReasonUnknownDecimals, zap.String("challenge", cid))
		return nil
	}
	c = &schema.Challenge{
		ID:              cid,
		ChallengeType:   ev.ChallengeType,
		StartTime:       now.Unix(),
		EndTime:         now.Add(ev.ChallengeType.Duration()).Unix(),
		SeedMoney:       util.ScaleDown(ev.SeedMoney, d.Value),
		EntryFee:        util.ScaleDown(ev.EntryFee, d.Value),
		RewardAmountUSD: decimal.Zero,
		IsActive:        true,
		TopUsers:        []string{},
		Scores:          []decimal.Decimal{},
		CreatedAt:       now.Unix(),
		UpdatedAt:       now.Unix(),
	}
	if err := store.Put(ctx, m.st, store.KindChallenge, cid, c); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	ac, err := m.registry(ctx)
	if err != nil {
		return err
	}
	if ac == nil {
		m.logger.Debug("active challenges not found", zap.String("challenge", cid))
	} else {
		if prev := ac.Slots[ev.ChallengeType]; prev.ChallengeID != "" && !prev.IsCompleted {
			m.logger.Warn("replacing active challenge that has not completed",
				zap.Stringer("type", ev.ChallengeType),
				zap.String("previous", prev.ChallengeID), zap.String("challenge", cid))
		}
		ac.Slots[ev.ChallengeType] = schema.ActiveSlot{
			ChallengeID:     cid,
			StartTime:       c.StartTime,
			EndTime:         c.EndTime,
			InvestorCount:   0,
			RewardAmountUSD: decimal.Zero,
			IsCompleted:     false,
		}
		ac.UpdatedAt = now.Unix()
		if err := store.Put(ctx, m.st, store.KindActiveChallenges, ac.ID, ac); err != nil {
			return fmt.Errorf("save active challenges: %w", err)
		}
	}
	if err := m.snapshots.Challenge(ctx, cid, now); err != nil {
		return fmt.Errorf("snapshot challenge: %w", err)
	}
	if err := m.snapshots.ActiveChallenges(ctx, now); err != nil {
		return fmt.Errorf("snapshot active challenges: %w", err)
	}
	return nil
}

// Join adds an investor to a challenge, funded with the seed money in the
// USD token. Joining twice has no effect.
func (m *Manager) Join(ctx context.Context, ev schema.JoinEvent) error {
	now := blockTime(ev.EventMeta)
	cid := ev.ChallengeID.String()
	c, err := store.Get[schema.Challenge](ctx, m.st, store.KindChallenge, cid)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		m.skip(schema.EventJoin, ReasonMissingEntity, zap.String("challenge", cid))
		return nil
	}
	investorID := schema.InvestorID(cid, util.Addr(ev.User))
	inv, err := store.Get[schema.Investor](ctx, m.st, store.KindInvestor, investorID)
	if err != nil {
		return fmt.Errorf("load investor: %w", err)
	}
	if inv != nil {
		m.skip(schema.EventJoin, ReasonDuplicate, zap.String("investor", investorID))
		return nil
	}
	stele, err := m.stele(ctx)
	if err != nil {
		return err
	}
	if stele == nil {
		m.skip(schema.EventJoin, ReasonMissingEntity, zap.String("entity", "stele"))
		return nil
	}
	d, err := m.usdDecimals(ctx, stele, now)
	if err != nil {
		return err
	}
	if !d.OK() {
		m.logger.Error("usd token decimals unavailable", zap.String("investor", investorID), zap.String("token", stele.USDToken))
		m.skip(schema.EventJoin, ReasonUnknownDecimals, zap.String("investor", investorID))
		return nil
	}
	symbol, err := m.tokens.Symbol(ctx, common.HexToAddress(stele.USDToken), now)
	if err != nil {
		return fmt.Errorf("get usd token symbol: %w", err)
	}

	// Each counter document remembers the join it last counted, so a retry
	// after a partial write does not count the same join twice.
	joinID := ev.RecordID()
	if c.LastJoinEvent != joinID {
		c.InvestorCount++
		c.RewardAmountUSD = c.RewardAmountUSD.Add(c.EntryFee)
		c.LastJoinEvent = joinID
		c.UpdatedAt = now.Unix()
		if err := store.Put(ctx, m.st, store.KindChallenge, cid, c); err != nil {
			return fmt.Errorf("save challenge: %w", err)
		}
	}
	ac, err := m.registry(ctx)
	if err != nil {
		return err
	}
	if ac != nil && c.ChallengeType.Valid() && ac.Slots[c.ChallengeType].ChallengeID == cid &&
		ac.Slots[c.ChallengeType].LastJoinEvent != joinID {
		slot := &ac.Slots[c.ChallengeType]
		slot.LastJoinEvent = joinID
		slot.InvestorCount++
		slot.RewardAmountUSD = slot.RewardAmountUSD.Add(c.EntryFee)
		ac.UpdatedAt = now.Unix()
		if err := store.Put(ctx, m.st, store.KindActiveChallenges, ac.ID, ac); err != nil {
			return fmt.Errorf("save active challenges: %w", err)
		}
	}

	seed := util.ScaleDown(ev.SeedMoney, d.Value)
	inv = &schema.Investor{
		ID:           investorID,
		ChallengeID:  cid,
		Address:      util.Addr(ev.User),
		SeedMoneyUSD: seed,
		CurrentUSD:   seed,
		ProfitUSD:    decimal.Zero,
		ProfitRatio:  decimal.Zero,
		CreatedAt:    now.Unix(),
		UpdatedAt:    now.Unix(),
	}
	inv.SetHoldings([]schema.Holding{{
		Token:    stele.USDToken,
		Amount:   seed,
		Decimals: d.Value,
		Symbol:   symbol,
	}})
	if err := store.Put(ctx, m.st, store.KindInvestor, investorID, inv); err != nil {
		return fmt.Errorf("save investor: %w", err)
	}

	if err := m.snapshots.Challenge(ctx, cid, now); err != nil {
		return fmt.Errorf("snapshot challenge: %w", err)
	}
	if err := m.snapshots.ActiveChallenges(ctx, now); err != nil {
		return fmt.Errorf("snapshot active challenges: %w", err)
	}
	if err := m.snapshots.Investor(ctx, cid, ev.User, now); err != nil {
		return fmt.Errorf("snapshot investor: %w", err)
	}
	return nil
}

// Swap revalues the investor's portfolio after a trade.
func (m *Manager) Swap(ctx context.Context, ev schema.SwapEvent) error {
	if err := m.valuator.Revalue(ctx, ev.ChallengeID, ev.User, blockTime(ev.EventMeta)); err != nil {
		return fmt.Errorf("revalue portfolio: %w", err)
	}
	return nil
}

// Register closes the investor's participation and refreshes the
// challenge's leaderboard. The challenge stays active until rewarded.
func (m *Manager) Register(ctx context.Context, ev schema.RegisterEvent) error {
	now := blockTime(ev.EventMeta)
	cid := ev.ChallengeID.String()
	investorID := schema.InvestorID(cid, util.Addr(ev.User))
	inv, err := store.Get[schema.Investor](ctx, m.st, store.KindInvestor, investorID)
	if err != nil {
		return fmt.Errorf("load investor: %w", err)
	}
	if inv == nil {
		m.skip(schema.EventRegister, ReasonMissingEntity, zap.String("investor", investorID))
		return nil
	}
	inv.IsClosed = true
	inv.UpdatedAt = now.Unix()
	if err := store.Put(ctx, m.st, store.KindInvestor, investorID, inv); err != nil {
		return fmt.Errorf("save investor: %w", err)
	}
	if err := m.scores.Register(ctx, ev.ChallengeID, ev.User, ev.Performance, now); err != nil {
		return fmt.Errorf("register score: %w", err)
	}
	if err := m.snapshots.Challenge(ctx, cid, now); err != nil {
		return fmt.Errorf("snapshot challenge: %w", err)
	}
	if err := m.snapshots.Investor(ctx, cid, ev.User, now); err != nil {
		return fmt.Errorf("snapshot investor: %w", err)
	}
	return nil
}

// Reward finalizes the challenge. Its registry slot is marked completed but
// keeps pointing at the challenge until the next one of the same type.
func (m *Manager) Reward(ctx context.Context, ev schema.RewardEvent) error {
	now := blockTime(ev.EventMeta)
	cid := ev.ChallengeID.String()
	c, err := store.Get[schema.Challenge](ctx, m.st, store.KindChallenge, cid)
	if err != nil {
		return fmt.Errorf("load challenge: %w", err)
	}
	if c == nil {
		m.skip(schema.EventReward, ReasonMissingEntity, zap.String("challenge", cid))
		return nil
	}
	c.IsActive = false
	c.UpdatedAt = now.Unix()
	if err := store.Put(ctx, m.st, store.KindChallenge, cid, c); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	ac, err := m.registry(ctx)
	if err != nil {
		return err
	}
	if ac != nil && c.ChallengeType.Valid() && ac.Slots[c.ChallengeType].ChallengeID == cid {
		ac.Slots[c.ChallengeType].IsCompleted = true
		ac.UpdatedAt = now.Unix()
		if err := store.Put(ctx, m.st, store.KindActiveChallenges, ac.ID, ac); err != nil {
			return fmt.Errorf("save active challenges: %w", err)
		}
	}
	if err := m.snapshots.Challenge(ctx, cid, now); err != nil {
		return fmt.Errorf("snapshot challenge: %w", err)
	}
	if err := m.snapshots.ActiveChallenges(ctx, now); err != nil {
		return fmt.Errorf("snapshot active challenges: %w", err)
	}
	return nil
}
