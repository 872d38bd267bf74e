package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CheckpointBlockNumberKey = "blockNumber"
	CheckpointTimestampKey   = "timestamp"
)

type Checkpoint struct {
	BlockNumber uint64    `bson:"blockNumber"`
	Timestamp   time.Time `bson:"timestamp"`
}

// Token holds the cached ERC20 metadata of a token.
type Token struct {
	ID        string `bson:"_id" json:"id"`
	Decimals  int    `bson:"decimals" json:"decimals"`
	Symbol    string `bson:"symbol" json:"symbol"`
	UpdatedAt int64  `bson:"updatedAt" json:"updatedAt"`
}

const (
	PoolTokenAKey = "tokenA"
	PoolTokenBKey = "tokenB"
)

// Pool is a discovered exchange pool. Address and token ordering never
// change once recorded; liquidity and sqrt price are refreshed separately.
type Pool struct {
	ID                 string          `bson:"_id" json:"id"`
	TokenA             string          `bson:"tokenA" json:"tokenA"`
	TokenB             string          `bson:"tokenB" json:"tokenB"`
	Fee                uint32          `bson:"fee" json:"fee"`
	Address            string          `bson:"address" json:"address"`
	Token0             string          `bson:"token0" json:"token0"`
	Token1             string          `bson:"token1" json:"token1"`
	Liquidity          decimal.Decimal `bson:"liquidity" json:"liquidity"`
	LiquidityUpdatedAt int64           `bson:"liquidityUpdatedAt" json:"liquidityUpdatedAt"`
	SqrtPriceX96       decimal.Decimal `bson:"sqrtPriceX96" json:"sqrtPriceX96"`
	Slot0UpdatedAt     int64           `bson:"slot0UpdatedAt" json:"slot0UpdatedAt"`
}

const BundleID = "1"

type Bundle struct {
	ID          string          `bson:"_id" json:"id"`
	EthPriceUSD decimal.Decimal `bson:"ethPriceUSD" json:"ethPriceUSD"`
	UpdatedAt   int64           `bson:"updatedAt" json:"updatedAt"`
}

// PriceCache is the ETH price of a token within one price bucket.
type PriceCache struct {
	ID          string          `bson:"_id" json:"id"`
	Token       string          `bson:"token" json:"token"`
	BucketStart int64           `bson:"bucketStart" json:"bucketStart"`
	PriceETH    decimal.Decimal `bson:"priceETH" json:"priceETH"`
}

const SteleID = "0"

type Stele struct {
	ID          string            `bson:"_id" json:"id"`
	Owner       string            `bson:"owner" json:"owner"`
	USDToken    string            `bson:"usdToken" json:"usdToken"`
	MaxAssets   int64             `bson:"maxAssets" json:"maxAssets"`
	SeedMoney   decimal.Decimal   `bson:"seedMoney" json:"seedMoney"`
	EntryFee    decimal.Decimal   `bson:"entryFee" json:"entryFee"`
	RewardRatio []decimal.Decimal `bson:"rewardRatio" json:"rewardRatio"`
	Tokens      []string          `bson:"tokens" json:"tokens"`
	UpdatedAt   int64             `bson:"updatedAt" json:"updatedAt"`
}

type Challenge struct {
	ID              string            `bson:"_id" json:"id"`
	ChallengeType   ChallengeType     `bson:"challengeType" json:"challengeType"`
	StartTime       int64             `bson:"startTime" json:"startTime"`
	EndTime         int64             `bson:"endTime" json:"endTime"`
	InvestorCount   int64             `bson:"investorCount" json:"investorCount"`
	SeedMoney       decimal.Decimal   `bson:"seedMoney" json:"seedMoney"`
	EntryFee        decimal.Decimal   `bson:"entryFee" json:"entryFee"`
	RewardAmountUSD decimal.Decimal   `bson:"rewardAmountUSD" json:"rewardAmountUSD"`
	IsActive        bool              `bson:"isActive" json:"isActive"`
	TopUsers        []string          `bson:"topUsers" json:"topUsers"`
	Scores          []decimal.Decimal `bson:"scores" json:"scores"`
	CreatedAt       int64             `bson:"createdAt" json:"createdAt"`
	UpdatedAt       int64             `bson:"updatedAt" json:"updatedAt"`
	// LastJoinEvent is the record id of the last join counted above.
	LastJoinEvent   string            `bson:"lastJoinEvent" json:"lastJoinEvent,omitempty"`
}

const ActiveChallengesID = "0"

// ActiveChallenges has exactly one slot per challenge type.
type ActiveChallenges struct {
	ID        string                        `bson:"_id" json:"id"`
	Slots     [NumChallengeTypes]ActiveSlot `bson:"slots" json:"slots"`
	UpdatedAt int64                         `bson:"updatedAt" json:"updatedAt"`
}

type ActiveSlot struct {
	ChallengeID     string          `bson:"challengeId" json:"challengeId"`
	StartTime       int64           `bson:"startTime" json:"startTime"`
	EndTime         int64           `bson:"endTime" json:"endTime"`
	InvestorCount   int64           `bson:"investorCount" json:"investorCount"`
	RewardAmountUSD decimal.Decimal `bson:"rewardAmountUSD" json:"rewardAmountUSD"`
	IsCompleted     bool            `bson:"isCompleted" json:"isCompleted"`
	LastJoinEvent   string          `bson:"lastJoinEvent" json:"lastJoinEvent,omitempty"`
}

type Investor struct {
	ID             string            `bson:"_id" json:"id"`
	ChallengeID    string            `bson:"challengeId" json:"challengeId"`
	Address        string            `bson:"address" json:"address"`
	SeedMoneyUSD   decimal.Decimal   `bson:"seedMoneyUSD" json:"seedMoneyUSD"`
	CurrentUSD     decimal.Decimal   `bson:"currentUSD" json:"currentUSD"`
	Tokens         []string          `bson:"tokens" json:"tokens"`
	TokensAmount   []decimal.Decimal `bson:"tokensAmount" json:"tokensAmount"`
	TokensDecimals []int             `bson:"tokensDecimals" json:"tokensDecimals"`
	TokensSymbols  []string          `bson:"tokensSymbols" json:"tokensSymbols"`
	ProfitUSD      decimal.Decimal   `bson:"profitUSD" json:"profitUSD"`
	ProfitRatio    decimal.Decimal   `bson:"profitRatio" json:"profitRatio"`
	IsClosed       bool              `bson:"isClosed" json:"isClosed"`
	CreatedAt      int64             `bson:"createdAt" json:"createdAt"`
	UpdatedAt      int64             `bson:"updatedAt" json:"updatedAt"`
}

// Holding is one row of an investor's parallel holding arrays.
type Holding struct {
	Token    string
	Amount   decimal.Decimal
	Decimals int
	Symbol   string
}

// Holdings returns the investor's holdings as rows.
func (inv Investor) Holdings() []Holding {
	hs := make([]Holding, len(inv.Tokens))
	for i := range inv.Tokens {
		hs[i] = Holding{
			Token:    inv.Tokens[i],
			Amount:   inv.TokensAmount[i],
			Decimals: inv.TokensDecimals[i],
			Symbol:   inv.TokensSymbols[i],
		}
	}
	return hs
}

// SetHoldings replaces all four holding arrays at once.
func (inv *Investor) SetHoldings(hs []Holding) {
	inv.Tokens = make([]string, len(hs))
	inv.TokensAmount = make([]decimal.Decimal, len(hs))
	inv.TokensDecimals = make([]int, len(hs))
	inv.TokensSymbols = make([]string, len(hs))
	for i, h := range hs {
		inv.Tokens[i] = h.Token
		inv.TokensAmount[i] = h.Amount
		inv.TokensDecimals[i] = h.Decimals
		inv.TokensSymbols[i] = h.Symbol
	}
}

type Ranking struct {
	ID           string            `bson:"_id" json:"id"`
	ChallengeID  string            `bson:"challengeId" json:"challengeId"`
	TopUsers     []string          `bson:"topUsers" json:"topUsers"`
	Scores       []decimal.Decimal `bson:"scores" json:"scores"`
	ProfitRatios []decimal.Decimal `bson:"profitRatios" json:"profitRatios"`
	UpdatedAt    int64             `bson:"updatedAt" json:"updatedAt"`
}

const (
	TotalRankingChallengeIDKey = "challengeId"
	TotalRankingUserKey        = "user"
)

type TotalRanking struct {
	ID          string          `bson:"_id" json:"id"`
	ChallengeID string          `bson:"challengeId" json:"challengeId"`
	User        string          `bson:"user" json:"user"`
	SeedMoney   decimal.Decimal `bson:"seedMoney" json:"seedMoney"`
	Score       decimal.Decimal `bson:"score" json:"score"`
	ProfitRatio decimal.Decimal `bson:"profitRatio" json:"profitRatio"`
	UpdatedAt   int64           `bson:"updatedAt" json:"updatedAt"`
}

const SnapshotDayIDKey = "dayId"

type ChallengeSnapshot struct {
	ID              string            `bson:"_id" json:"id"`
	ChallengeID     string            `bson:"challengeId" json:"challengeId"`
	DayID           int64             `bson:"dayId" json:"dayId"`
	InvestorCount   int64             `bson:"investorCount" json:"investorCount"`
	RewardAmountUSD decimal.Decimal   `bson:"rewardAmountUSD" json:"rewardAmountUSD"`
	IsActive        bool              `bson:"isActive" json:"isActive"`
	TopUsers        []string          `bson:"topUsers" json:"topUsers"`
	Scores          []decimal.Decimal `bson:"scores" json:"scores"`
	Timestamp       int64             `bson:"timestamp" json:"timestamp"`
}

type ActiveChallengesSnapshot struct {
	ID                string                        `bson:"_id" json:"id"`
	DayID             int64                         `bson:"dayId" json:"dayId"`
	Slots             [NumChallengeTypes]ActiveSlot `bson:"slots" json:"slots"`
	TotalParticipants int64                         `bson:"totalParticipants" json:"totalParticipants"`
	TotalRewards      decimal.Decimal               `bson:"totalRewards" json:"totalRewards"`
	Timestamp         int64                         `bson:"timestamp" json:"timestamp"`
}

type InvestorSnapshot struct {
	ID             string            `bson:"_id" json:"id"`
	InvestorID     string            `bson:"investorId" json:"investorId"`
	ChallengeID    string            `bson:"challengeId" json:"challengeId"`
	DayID          int64             `bson:"dayId" json:"dayId"`
	SeedMoneyUSD   decimal.Decimal   `bson:"seedMoneyUSD" json:"seedMoneyUSD"`
	CurrentUSD     decimal.Decimal   `bson:"currentUSD" json:"currentUSD"`
	Tokens         []string          `bson:"tokens" json:"tokens"`
	TokensAmount   []decimal.Decimal `bson:"tokensAmount" json:"tokensAmount"`
	TokensDecimals []int             `bson:"tokensDecimals" json:"tokensDecimals"`
	TokensSymbols  []string          `bson:"tokensSymbols" json:"tokensSymbols"`
	ProfitUSD      decimal.Decimal   `bson:"profitUSD" json:"profitUSD"`
	ProfitRatio    decimal.Decimal   `bson:"profitRatio" json:"profitRatio"`
	Timestamp      int64             `bson:"timestamp" json:"timestamp"`
}

const (
	EventTypeKey        = "type"
	EventBlockNumberKey = "blockNumber"
)

// EventRecord is the raw decoded form of a contract log.
type EventRecord struct {
	ID              string            `bson:"_id" json:"id"`
	Type            string            `bson:"type" json:"type"`
	BlockNumber     uint64            `bson:"blockNumber" json:"blockNumber"`
	BlockTimestamp  int64             `bson:"blockTimestamp" json:"blockTimestamp"`
	TransactionHash string            `bson:"transactionHash" json:"transactionHash"`
	LogIndex        uint              `bson:"logIndex" json:"logIndex"`
	Params          map[string]string `bson:"params" json:"params"`
}
