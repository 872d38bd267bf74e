// Package challenge drives challenges through their lifecycle and keeps
// the per-type registry of the latest challenge.
package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/metrics"
	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/portfolio"
	"github.com/b-harvest/stele-backend/service/price"
	"github.com/b-harvest/stele-backend/service/score"
	"github.com/b-harvest/stele-backend/service/snapshot"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
	"github.com/b-harvest/stele-backend/util"
)

// Skip reasons reported in the skipped events metric.
const (
	ReasonMissingEntity   = "missing_entity"
	ReasonDuplicate       = "duplicate"
	ReasonInvalidType     = "invalid_type"
	ReasonUnknownDecimals = "unknown_decimals"
)

type Manager struct {
	st        store.Store
	tokens    *token.Service
	prices    *price.Engine
	valuator  *portfolio.Valuator
	scores    *score.Service
	snapshots *snapshot.Service
	logger    *zap.Logger
}

func NewManager(st store.Store, tokens *token.Service, prices *price.Engine, valuator *portfolio.Valuator, scores *score.Service, snapshots *snapshot.Service, logger *zap.Logger) *Manager {
	return &Manager{
		st:        st,
		tokens:    tokens,
		prices:    prices,
		valuator:  valuator,
		scores:    scores,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (m *Manager) skip(eventType, reason string, fields ...zap.Field) {
	metrics.EventsSkipped.WithLabelValues(eventType, reason).Inc()
	m.logger.Debug("skipping event", append([]zap.Field{
		zap.String("event", eventType), zap.String("reason", reason),
	}, fields...)...)
}

func blockTime(meta schema.EventMeta) time.Time {
	return time.Unix(meta.BlockTimestamp, 0).UTC()
}

// usdDecimals resolves the decimals of the USD token the contract was
// deployed with.
func (m *Manager) usdDecimals(ctx context.Context, stele *schema.Stele, now time.Time) (util.Result[int], error) {
	r, err := m.tokens.Decimals(ctx, common.HexToAddress(stele.USDToken), now)
	if err != nil {
		return util.Result[int]{}, fmt.Errorf("get usd token decimals: %w", err)
	}
	return r, nil
}

func (m *Manager) stele(ctx context.Context) (*schema.Stele, error) {
	s, err := store.Get[schema.Stele](ctx, m.st, store.KindStele, schema.SteleID)
	if err != nil {
		return nil, fmt.Errorf("load stele: %w", err)
	}
	return s, nil
}

func (m *Manager) registry(ctx context.Context) (*schema.ActiveChallenges, error) {
	ac, err := store.Get[schema.ActiveChallenges](ctx, m.st, store.KindActiveChallenges, schema.ActiveChallengesID)
	if err != nil {
		return nil, fmt.Errorf("load active challenges: %w", err)
	}
	return ac, nil
}

// SteleCreated creates the contract's singletons. Existing ones are kept.
func (m *Manager) SteleCreated(ctx context.Context, ev schema.SteleCreatedEvent) error {
	now := blockTime(ev.EventMeta)
	s, err := m.stele(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		if err := store.Put(ctx, m.st, store.KindStele, schema.SteleID, schema.Stele{
			ID:          schema.SteleID,
			Owner:       util.Addr(ev.Owner),
			USDToken:    util.Addr(ev.USDToken),
			MaxAssets:   ev.MaxAssets.Int64(),
			SeedMoney:   decimal.NewFromBigInt(ev.SeedMoney, 0),
			EntryFee:    decimal.NewFromBigInt(ev.EntryFee, 0),
			RewardRatio: util.BigIntsToDecimals(ev.RewardRatio),
			Tokens:      []string{},
			UpdatedAt:   now.Unix(),
		}); err != nil {
			return fmt.Errorf("save stele: %w", err)
		}
	} else {
		m.logger.Debug("stele already exists")
	}
	ac, err := m.registry(ctx)
	if err != nil {
		return err
	}
	if ac == nil {
		ac = &schema.ActiveChallenges{ID: schema.ActiveChallengesID, UpdatedAt: now.Unix()}
		if err := store.Put(ctx, m.st, store.KindActiveChallenges, ac.ID, ac); err != nil {
			return fmt.Errorf("save active challenges: %w", err)
		}
	}
	if _, err := m.prices.InitBundle(ctx); err != nil {
		return fmt.Errorf("init bundle: %w", err)
	}
	if err := m.snapshots.ActiveChallenges(ctx, now); err != nil {
		return fmt.Errorf("snapshot active challenges: %w", err)
	}
	return nil
}

// updateStele applies fn to the Stele singleton and saves it.
func (m *Manager) updateStele(ctx context.Context, eventType string, meta schema.EventMeta, fn func(s *schema.Stele)) error {
	s, err := m.stele(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		m.skip(eventType, ReasonMissingEntity, zap.String("entity", "stele"))
		return nil
	}
	fn(s)
	s.UpdatedAt = blockTime(meta).Unix()
	if err := store.Put(ctx, m.st, store.KindStele, s.ID, s); err != nil {
		return fmt.Errorf("save stele: %w", err)
	}
	return nil
}

func (m *Manager) AddToken(ctx context.Context, ev schema.AddTokenEvent) error {
	return m.updateStele(ctx, schema.EventAddToken, ev.EventMeta, func(s *schema.Stele) {
		if t := util.Addr(ev.Token); !util.StringInSlice(t, s.Tokens) {
			s.Tokens = append(s.Tokens, t)
		}
	})
}

func (m *Manager) RemoveToken(ctx context.Context, ev schema.RemoveTokenEvent) error {
	return m.updateStele(ctx, schema.EventRemoveToken, ev.EventMeta, func(s *schema.Stele) {
		s.Tokens = util.RemoveString(s.Tokens, util.Addr(ev.Token))
	})
}

func (m *Manager) RewardRatio(ctx context.Context, ev schema.RewardRatioEvent) error {
	return m.updateStele(ctx, schema.EventRewardRatio, ev.EventMeta, func(s *schema.Stele) {
		s.RewardRatio = util.BigIntsToDecimals(ev.NewRatio)
	})
}

func (m *Manager) SeedMoney(ctx context.Context, ev schema.SeedMoneyEvent) error {
	return m.updateStele(ctx, schema.EventSeedMoney, ev.EventMeta, func(s *schema.Stele) {
		s.SeedMoney = decimal.NewFromBigInt(ev.NewSeedMoney, 0)
	})
}

func (m *Manager) EntryFee(ctx context.Context, ev schema.EntryFeeEvent) error {
	return m.updateStele(ctx, schema.EventEntryFee, ev.EventMeta, func(s *schema.Stele) {
		s.EntryFee = decimal.NewFromBigInt(ev.NewEntryFee, 0)
	})
}

func (m *Manager) MaxAssets(ctx context.Context, ev schema.MaxAssetsEvent) error {
	return m.updateStele(ctx, schema.EventMaxAssets, ev.EventMeta, func(s *schema.Stele) {
		s.MaxAssets = ev.NewMaxAssets.Int64()
	})
}

func (m *Manager) OwnershipTransferred(ctx context.Context, ev schema.OwnershipTransferredEvent) error {
	return m.updateStele(ctx, schema.EventOwnershipTransferred, ev.EventMeta, func(s *schema.Stele) {
		s.Owner = util.Addr(ev.NewOwner)
	})
}
