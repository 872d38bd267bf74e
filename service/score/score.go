// Package score maintains challenge leaderboards and profit ratios.
package score

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/b-harvest/stele-backend/schema"
	"github.com/b-harvest/stele-backend/service/oracle"
	"github.com/b-harvest/stele-backend/service/store"
	"github.com/b-harvest/stele-backend/service/token"
)

// ProfitRatioPrecision is the number of fractional digits kept in a
// profit ratio.
const ProfitRatioPrecision = 4

var hundred = decimal.NewFromInt(100)

// Publisher receives every ranking written by the Service.
type Publisher interface {
	Publish(ctx context.Context, r schema.Ranking) error
}

type Service struct {
	st     store.Store
	or     oracle.Oracle
	tokens *token.Service
	pub    Publisher
	logger *zap.Logger
}

// NewService returns a new Service. pub may be nil.
func NewService(st store.Store, or oracle.Oracle, tokens *token.Service, pub Publisher, logger *zap.Logger) *Service {
	return &Service{st: st, or: or, tokens: tokens, pub: pub, logger: logger}
}

// ProfitRatio returns the percentage gain of score over seedMoney,
// truncated to ProfitRatioPrecision digits. It is zero when seedMoney is
// zero.
func ProfitRatio(score, seedMoney decimal.Decimal) decimal.Decimal {
	if seedMoney.IsZero() {
		return decimal.Zero
	}
	return score.Sub(seedMoney).Div(seedMoney).Mul(hundred).Truncate(ProfitRatioPrecision)
}
