package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

type RankingCache struct {
	ChallengeID string             `json:"challengeId"`
	BlockNumber uint64             `json:"blockNumber"`
	Users       []RankingCacheUser `json:"users"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type RankingCacheUser struct {
	Ranking     int             `json:"ranking"`
	Address     string          `json:"address"`
	Score       decimal.Decimal `json:"score"`
	ProfitRatio decimal.Decimal `json:"profitRatio"`
}
